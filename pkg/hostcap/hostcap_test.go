package hostcap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestSleepRespectsContextCancellation(t *testing.T) {
	group, ctx := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := o.Sleep(cancelCtx, time.Hour); err == nil {
		t.Fatal("expected Sleep to return an error when the context is already canceled")
	}
}

func TestSleepReturnsAfterDuration(t *testing.T) {
	group, ctx := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	start := time.Now()
	if err := o.Sleep(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("Sleep returned before its duration elapsed")
	}
}

func TestYield(t *testing.T) {
	group, ctx := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	if err := o.Yield(ctx); err != nil {
		t.Errorf("Yield on a live context: got %v, want nil", err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := o.Yield(cancelCtx); err == nil {
		t.Error("Yield on a canceled context: expected an error")
	}
}

func TestSpawnRunsOnASeparateTaskID(t *testing.T) {
	group, ctx := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	parentID := o.CurrentTaskID(ctx)

	var (
		mu      sync.Mutex
		childID TaskID
		seen    bool
	)
	if err := o.Spawn(ctx, func(spawnCtx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		childID = o.CurrentTaskID(spawnCtx)
		seen = true
		return nil
	}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("group.Wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !seen {
		t.Fatal("spawned function never ran")
	}
	if childID == parentID {
		t.Error("expected the spawned task to carry a distinct TaskID from its parent")
	}
	if childID.String() == (TaskID{}).String() {
		t.Error("expected a non-nil TaskID to be minted for the spawned task")
	}
}

func TestSpawnPropagatesFailureThroughTheGroup(t *testing.T) {
	group, ctx := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	wantErr := errors.New("task failed")
	if err := o.Spawn(ctx, func(context.Context) error {
		return wantErr
	}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := group.Wait(); !errors.Is(err, wantErr) {
		t.Errorf("group.Wait(): got %v, want %v", err, wantErr)
	}
}

func TestCurrentTaskIDOutsideAnySpawnIsNil(t *testing.T) {
	group, ctx := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	if got := o.CurrentTaskID(ctx); got.String() != (TaskID{}).String() {
		t.Errorf("CurrentTaskID on a bare context: got %s, want the nil UUID", got)
	}
}

func TestNowReturnsWallClockTime(t *testing.T) {
	group, _ := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	before := time.Now()
	got := o.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Now(): got %v, want a time between %v and %v", got, before, after)
	}
}

func TestStdioDefaultsToTheHostStreams(t *testing.T) {
	group, _ := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	if o.Stdin() != os.Stdin {
		t.Error("Stdin(): expected the process's os.Stdin by default")
	}
	if o.Stdout() != os.Stdout {
		t.Error("Stdout(): expected the process's os.Stdout by default")
	}
	if o.Stderr() != os.Stderr {
		t.Error("Stderr(): expected the process's os.Stderr by default")
	}
}

func TestFileOperationsRoundTripThroughTheFilesystem(t *testing.T) {
	group, _ := errgroup.WithContext(context.Background())
	o := NewOS(group, nil)

	path := filepath.Join(t.TempDir(), "greeting.txt")

	f, err := o.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.WriteString("hello"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := o.Metadata(path)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Metadata().Size(): got %d, want 5", info.Size())
	}

	opened, err := o.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := opened.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("Read: got %q, want %q", buf, "hello")
	}
	if err := opened.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := o.Unlink(path); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, err := o.Metadata(path); err == nil {
		t.Error("expected Metadata to fail after Unlink")
	}
}

func TestFindRuntimeClass(t *testing.T) {
	group, _ := errgroup.WithContext(context.Background())
	o := NewOS(group, map[string][]byte{
		"java/lang/Object": {0xCA, 0xFE, 0xBA, 0xBE},
	})

	data, ok := o.FindRuntimeClass("java/lang/Object")
	if !ok {
		t.Fatal("expected java/lang/Object to be found among the embedder's runtime classes")
	}
	if len(data) != 4 {
		t.Errorf("FindRuntimeClass data length: got %d, want 4", len(data))
	}

	if _, ok := o.FindRuntimeClass("does/not/Exist"); ok {
		t.Error("expected an unknown runtime class to report ok=false")
	}
}
