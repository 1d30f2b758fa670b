// Package classloader implements the class loader delegation graph
// (JVM Specification 5.3): bootstrap loader, jar/classpath user loaders,
// and the per-loader registry of linked classes each maintains. Grounded
// on _examples/daimatz-gojvm/pkg/vm/classloader.go's JmodClassLoader /
// UserClassLoader split, generalized so a Registry wraps either loader
// kind uniformly and owns linking (symbolic name -> object.Class) instead
// of handing back bare *classfile.ClassFile values.
package classloader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jvmcore/gojvm/pkg/classfile"
	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/typedesc"
)

// ClassSource supplies the raw bytes of a named class, abstracting over a
// jmod bootstrap image, a directory classpath entry, or a jar file.
type ClassSource interface {
	Find(name string) (*classfile.ClassFile, bool, error)
}

// JmodSource reads classes out of a JDK jmod image, mirroring
// JmodClassLoader.ensureZipReader/LoadClass from the teacher: jmod files
// are zip archives with a 4-byte "JM\x01\x00" prefix and classes stored
// under "classes/".
type JmodSource struct {
	Path string

	once    sync.Once
	reader  *zip.Reader
	openErr error
}

func NewJmodSource(path string) *JmodSource { return &JmodSource{Path: path} }

func (s *JmodSource) ensure() error {
	s.once.Do(func() {
		f, err := os.Open(s.Path)
		if err != nil {
			s.openErr = fmt.Errorf("jmod: opening %s: %w", s.Path, err)
			return
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			s.openErr = fmt.Errorf("jmod: stat %s: %w", s.Path, err)
			return
		}
		data := make([]byte, stat.Size())
		if _, err := io.ReadFull(f, data); err != nil {
			s.openErr = fmt.Errorf("jmod: reading %s: %w", s.Path, err)
			return
		}
		body := data[4:] // skip "JM\x01\x00"
		reader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		if err != nil {
			s.openErr = fmt.Errorf("jmod: opening zip: %w", err)
			return
		}
		s.reader = reader
	})
	return s.openErr
}

func (s *JmodSource) Find(name string) (*classfile.ClassFile, bool, error) {
	if err := s.ensure(); err != nil {
		return nil, false, err
	}
	target := "classes/" + name + ".class"
	for _, file := range s.reader.File {
		if file.Name != target {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, false, fmt.Errorf("jmod: opening %s: %w", target, err)
		}
		defer rc.Close()
		cf, err := classfile.Parse(rc)
		if err != nil {
			return nil, false, fmt.Errorf("jmod: parsing %s: %w", name, err)
		}
		return cf, true, nil
	}
	return nil, false, nil
}

// DirSource reads classes from a directory classpath entry.
type DirSource struct{ Root string }

func NewDirSource(root string) *DirSource { return &DirSource{Root: root} }

func (s *DirSource) Find(name string) (*classfile.ClassFile, bool, error) {
	path := filepath.Join(s.Root, filepath.FromSlash(name)+".class")
	if _, err := os.Stat(path); err != nil {
		return nil, false, nil
	}
	cf, err := classfile.ParseFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("classpath: parsing %s: %w", name, err)
	}
	return cf, true, nil
}

// MultiSource composes several classpath entries (directories and jars)
// into one ClassSource, first-match-wins in the order given, the same
// left-to-right classpath search order `java -cp a:b:c` uses. Needed
// because a user classpath is rarely a single entry, unlike the
// teacher's single bootstrap jmod.
type MultiSource struct {
	Sources []ClassSource
}

func NewMultiSource(sources ...ClassSource) *MultiSource {
	return &MultiSource{Sources: sources}
}

func (s *MultiSource) Find(name string) (*classfile.ClassFile, bool, error) {
	for _, src := range s.Sources {
		cf, ok, err := src.Find(name)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return cf, true, nil
		}
	}
	return nil, false, nil
}

// JarSource reads classes from a jar file, the standard zip layout
// (entries named "a/b/C.class" with no "classes/" prefix, unlike jmod).
type JarSource struct {
	Path string

	once    sync.Once
	reader  *zip.Reader
	openErr error
}

func NewJarSource(path string) *JarSource { return &JarSource{Path: path} }

func (s *JarSource) ensure() error {
	s.once.Do(func() {
		r, err := zip.OpenReader(s.Path)
		if err != nil {
			s.openErr = fmt.Errorf("jar: opening %s: %w", s.Path, err)
			return
		}
		s.reader = &r.Reader
	})
	return s.openErr
}

func (s *JarSource) Find(name string) (*classfile.ClassFile, bool, error) {
	if err := s.ensure(); err != nil {
		return nil, false, err
	}
	target := name + ".class"
	for _, file := range s.reader.File {
		if file.Name != target {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, false, fmt.Errorf("jar: opening %s: %w", target, err)
		}
		defer rc.Close()
		cf, err := classfile.Parse(rc)
		if err != nil {
			return nil, false, fmt.Errorf("jar: parsing %s: %w", name, err)
		}
		return cf, true, nil
	}
	return nil, false, nil
}

// ManifestMainClass reads the Main-Class attribute out of a jar's
// META-INF/MANIFEST.MF (§8 scenario 6).
func ManifestMainClass(jarPath string) (string, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return "", fmt.Errorf("jar: opening %s: %w", jarPath, err)
	}
	defer r.Close()

	for _, file := range r.File {
		if file.Name != "META-INF/MANIFEST.MF" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("jar: opening manifest: %w", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("jar: reading manifest: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if name, ok := strings.CutPrefix(line, "Main-Class: "); ok {
				return strings.TrimSpace(name), nil
			}
		}
		return "", fmt.Errorf("jar: %s has no Main-Class attribute", jarPath)
	}
	return "", fmt.Errorf("jar: %s has no manifest", jarPath)
}

// Registry is one class loader's linked-class table: the unit the JVM's
// "same name, same loader" identity rule (§4.3 invariant) is keyed on.
// Concurrent resolutions of the same not-yet-loaded class collapse onto
// one parse-and-link via singleflight, which is the recursive-entry
// collapsing behavior spec.md describes for class loading expressed with
// a library instead of a hand-rolled mutex-and-flag dance.
type Registry struct {
	name    string
	parent  *Registry
	source  ClassSource // nil for a registry with no own source (pure prototype loader)
	log     *zap.Logger

	mu      sync.RWMutex
	classes map[string]object.Class

	group singleflight.Group
}

// New creates a registry. parent is nil only for the bootstrap loader.
func New(name string, parent *Registry, source ClassSource, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		name:    name,
		parent:  parent,
		source:  source,
		log:     log,
		classes: make(map[string]object.Class),
	}
}

func (r *Registry) Name() string { return r.name }

// Resolve implements the delegation protocol (§4.3 steps 1-4): check this
// loader's own table, delegate to the parent, and only then ask this
// loader's own ClassSource, synthesizing array classes on demand.
func (r *Registry) Resolve(name string) (object.Class, error) {
	if strings.HasPrefix(name, "[") {
		return r.resolveArray(name)
	}

	r.mu.RLock()
	if c, ok := r.classes[name]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	if r.parent != nil {
		if c, err := r.parent.Resolve(name); err == nil {
			return c, nil
		}
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.RLock()
		if c, ok := r.classes[name]; ok {
			r.mu.RUnlock()
			return c, nil
		}
		r.mu.RUnlock()

		if r.source == nil {
			return nil, fmt.Errorf("classloader %s: no source configured", r.name)
		}
		cf, found, err := r.source.Find(name)
		if err != nil {
			return nil, fmt.Errorf("classloader %s: finding %s: %w", r.name, name, err)
		}
		if !found {
			return nil, fmt.Errorf("classloader %s: class %s not found", r.name, name)
		}

		class, err := r.link(cf)
		if err != nil {
			return nil, fmt.Errorf("classloader %s: linking %s: %w", r.name, name, err)
		}

		r.mu.Lock()
		r.classes[name] = class
		r.mu.Unlock()

		r.log.Debug("loaded class", zap.String("loader", r.name), zap.String("class", name))
		return class, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(object.Class), nil
}

// RegisterPrototype installs a host-implemented class (pkg/hostbridge)
// directly into this registry's table, linking it against classes
// already resolvable from this loader (its Super must already resolve).
func (r *Registry) RegisterPrototype(class *object.OrdinaryClass) error {
	if err := r.linkSuperAndInterfaces(class); err != nil {
		return err
	}

	baseSlot := 0
	if class.Super() != nil {
		baseSlot = class.Super().InstanceSize()
	}
	instSlot := baseSlot
	staticSlot := 0
	for _, f := range class.Fields {
		if f.IsStatic() {
			f.SlotIndex = staticSlot
			staticSlot++
		} else {
			f.SlotIndex = instSlot
			instSlot++
		}
	}
	class.InstanceSlotSize = instSlot

	r.mu.Lock()
	r.classes[class.Name()] = class
	r.mu.Unlock()
	return nil
}

func (r *Registry) link(cf *classfile.ClassFile) (object.Class, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, err
	}
	superName := cf.SuperClassName()
	ifaceNames, err := cf.InterfaceNames()
	if err != nil {
		return nil, err
	}

	class := object.NewOrdinaryClass(name, superName, ifaceNames, cf.AccessFlags, r)
	class.Pool = cf.ConstantPool

	methods := make([]*object.Method, 0, len(cf.Methods))
	for i := range cf.Methods {
		mi := &cf.Methods[i]
		var table []object.ExceptionHandler
		if mi.Code != nil {
			table = make([]object.ExceptionHandler, 0, len(mi.Code.ExceptionHandlers))
			for _, h := range mi.Code.ExceptionHandlers {
				var catchName string
				if h.CatchType != 0 {
					catchName, err = classfile.GetClassName(cf.ConstantPool, h.CatchType)
					if err != nil {
						return nil, fmt.Errorf("resolving catch type in %s.%s: %w", name, mi.Name, err)
					}
				}
				table = append(table, object.ExceptionHandler{
					StartPC: h.StartPC, EndPC: h.EndPC, HandlerPC: h.HandlerPC, CatchType: catchName,
				})
			}
		}
		methods = append(methods, &object.Method{
			Owner:          class,
			Name:           mi.Name,
			Descriptor:     mi.Descriptor,
			AccessFlags:    mi.AccessFlags,
			Code:           mi.Code,
			Exceptions:     resolveExceptionNames(cf, mi),
			ExceptionTable: table,
		})
	}
	class.Methods = methods

	if err := r.linkSuperAndInterfaces(class); err != nil {
		return nil, err
	}

	// Instance field slots are allocated after the superclass's own
	// slots, so a subclass's storage array holds the full inherited
	// layout (JVM Specification 5.4.1's instance layout, informally:
	// this core does not reorder for compactness).
	baseSlot := 0
	if class.Super() != nil {
		baseSlot = class.Super().InstanceSize()
	}

	// Static and instance fields are slotted from two independent
	// counters: instance slots continue the inherited layout from
	// baseSlot, static slots start fresh at 0 into this class's own
	// staticStore (object.Class.StaticFields), which is sized to the
	// static field count alone. Mixing the two into one counter would
	// let a static field's SlotIndex run past the end of staticStore
	// whenever baseSlot > 0.
	fields := make([]*object.Field, 0, len(cf.Fields))
	instSlot := baseSlot
	staticSlot := 0
	for i := range cf.Fields {
		fi := &cf.Fields[i]
		desc, err := typedesc.ParseField(fi.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", name, fi.Name, err)
		}
		field := &object.Field{
			Owner:       class,
			Name:        fi.Name,
			Descriptor:  fi.Descriptor,
			AccessFlags: fi.AccessFlags,
			Kind:        desc.Kind,
		}
		if field.IsStatic() {
			field.SlotIndex = staticSlot
			staticSlot++
		} else {
			field.SlotIndex = instSlot
			instSlot++
		}
		fields = append(fields, field)
	}
	class.Fields = fields
	class.InstanceSlotSize = instSlot

	return class, nil
}

func resolveExceptionNames(cf *classfile.ClassFile, mi *classfile.MethodInfo) []string {
	if len(mi.Exceptions) == 0 {
		return nil
	}
	names := make([]string, 0, len(mi.Exceptions))
	for _, idx := range mi.Exceptions {
		if n, err := classfile.GetClassName(cf.ConstantPool, idx); err == nil {
			names = append(names, n)
		}
	}
	return names
}

func (r *Registry) linkSuperAndInterfaces(class *object.OrdinaryClass) error {
	if class.SuperClassName != "" {
		super, err := r.Resolve(class.SuperClassName)
		if err != nil {
			return fmt.Errorf("resolving super %s of %s: %w", class.SuperClassName, class.ClassName, err)
		}
		class.SetSuper(super)
	}
	ifaces := make([]object.Class, 0, len(class.InterfaceNames))
	for _, in := range class.InterfaceNames {
		iface, err := r.Resolve(in)
		if err != nil {
			return fmt.Errorf("resolving interface %s of %s: %w", in, class.ClassName, err)
		}
		ifaces = append(ifaces, iface)
	}
	class.SetInterfaces(ifaces)
	return nil
}

// resolveArray synthesizes (and caches) the object.Class for an array
// descriptor name like "[I" or "[Ljava/lang/String;" (§4.3: array classes
// are created and cached by the requesting registry r, which also
// resolves the element class through its own delegation chain, with
// java/lang/Object as super and Cloneable/Serializable as interfaces —
// elided here since this core does not implement those marker checks).
func (r *Registry) resolveArray(name string) (object.Class, error) {
	r.mu.RLock()
	if c, ok := r.classes[name]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	desc, err := typedesc.ParseField(name)
	if err != nil {
		return nil, fmt.Errorf("classloader %s: bad array class name %s: %w", r.name, name, err)
	}
	if !desc.IsArray() {
		return nil, fmt.Errorf("classloader %s: %s is not an array descriptor", r.name, name)
	}

	var elemClass object.Class
	if desc.Elem.Kind.IsReference() && desc.Elem.ClassName != "" {
		elemClass, err = r.Resolve(desc.Elem.ClassName)
		if err != nil {
			return nil, fmt.Errorf("classloader %s: resolving element class of %s: %w", r.name, name, err)
		}
	} else if desc.Elem.IsArray() {
		elemClass, err = r.Resolve(desc.Elem.String())
		if err != nil {
			return nil, err
		}
	}

	arr := object.NewArrayClass(name, desc.Elem.Kind, elemClass, r)
	objectClass, err := r.Resolve("java/lang/Object")
	if err == nil {
		arr.SetSuper(objectClass)
	}

	r.mu.Lock()
	r.classes[name] = arr
	r.mu.Unlock()
	return arr, nil
}
