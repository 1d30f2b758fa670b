// Package hostcap implements the runtime capability interface the
// embedder grants to executing Java code (§6 Runtime capability
// interface): time, I/O, task spawning, and filesystem access, all
// routed through one seam so a test or a sandboxed embedder can swap in
// a restricted implementation. Named hostcap, not runtime, to avoid
// colliding with the Go standard library's runtime package wherever both
// must be imported in the same file (notably pkg/interp).
package hostcap

import (
	"context"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TaskID identifies one cooperatively-scheduled Java thread of execution
// (§3 Thread state, §5). Backed by a real UUID instead of an incrementing
// counter so independently-scheduled embedders can mint IDs without a
// shared counter.
type TaskID uuid.UUID

func (t TaskID) String() string { return uuid.UUID(t).String() }

// Capability is the full runtime surface §6 grants to executing code:
// sleep/yield/spawn/now/current_task_id plus the stdio and filesystem
// primitives a host-implemented java/io/java/nio bridge needs.
type Capability interface {
	Sleep(ctx context.Context, d time.Duration) error
	Yield(ctx context.Context) error
	Spawn(ctx context.Context, fn func(ctx context.Context) error) error
	Now() time.Time
	CurrentTaskID(ctx context.Context) TaskID

	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer

	Open(name string) (fs.File, error)
	Create(name string) (*os.File, error)
	Unlink(name string) error
	Metadata(name string) (fs.FileInfo, error)

	// FindRuntimeClass locates a classfile resource bundled with the
	// host embedder itself (the Rust original's find_rustjar_class),
	// e.g. a minimal bootstrap class supplied by the embedding program
	// rather than the jmod/classpath. ok is false when the embedder
	// does not supply one.
	FindRuntimeClass(name string) (data []byte, ok bool)
}

// taskIDKey is the context key CurrentTaskID's default implementation
// uses to recover the calling task's identity across goroutine hops
// introduced by Spawn.
type taskIDKey struct{}

// OS is the default Capability, backed directly by the host operating
// system and an errgroup.Group supervising every spawned Java thread so
// the embedder can Wait() for all of them before collect_garbage or
// process exit (§5's concurrency model, grounded in the same
// errgroup-supervised-goroutine pattern the rest of the retrieval pack
// uses for worker fan-out).
type OS struct {
	group *errgroup.Group
	in    io.Reader
	out   io.Writer
	errw  io.Writer

	runtimeClasses map[string][]byte
}

// NewOS creates an OS capability. group is the errgroup every Spawn call
// joins; pass a group already bound to a cancelable context via
// errgroup.WithContext so one failing Java thread can cancel the rest.
func NewOS(group *errgroup.Group, runtimeClasses map[string][]byte) *OS {
	return &OS{
		group:          group,
		in:             os.Stdin,
		out:            os.Stdout,
		errw:           os.Stderr,
		runtimeClasses: runtimeClasses,
	}
}

func (o *OS) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *OS) Yield(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (o *OS) Spawn(ctx context.Context, fn func(ctx context.Context) error) error {
	id := TaskID(uuid.New())
	o.group.Go(func() error {
		return fn(context.WithValue(ctx, taskIDKey{}, id))
	})
	return nil
}

func (o *OS) Now() time.Time { return time.Now() }

func (o *OS) CurrentTaskID(ctx context.Context) TaskID {
	if id, ok := ctx.Value(taskIDKey{}).(TaskID); ok {
		return id
	}
	return TaskID(uuid.Nil)
}

func (o *OS) Stdin() io.Reader  { return o.in }
func (o *OS) Stdout() io.Writer { return o.out }
func (o *OS) Stderr() io.Writer { return o.errw }

func (o *OS) Open(name string) (fs.File, error) { return os.Open(name) }
func (o *OS) Create(name string) (*os.File, error) { return os.Create(name) }
func (o *OS) Unlink(name string) error             { return os.Remove(name) }
func (o *OS) Metadata(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (o *OS) FindRuntimeClass(name string) (data []byte, ok bool) {
	data, ok = o.runtimeClasses[name]
	return data, ok
}
