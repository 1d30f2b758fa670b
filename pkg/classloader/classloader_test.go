package classloader

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jvmcore/gojvm/pkg/classfile"
	"github.com/jvmcore/gojvm/pkg/object"
)

// mapSource is a fake ClassSource backed by hand-built classfile.ClassFile
// values, standing in for a real jmod/jar/directory so Resolve/link can be
// exercised without parsing actual bytes off disk.
type mapSource struct {
	classes map[string]*classfile.ClassFile
	finds   int
}

func (s *mapSource) Find(name string) (*classfile.ClassFile, bool, error) {
	s.finds++
	cf, ok := s.classes[name]
	return cf, ok, nil
}

// simpleClassFile builds a minimal linkable classfile for name/superName
// with no fields or methods: a 1-indexed constant pool holding just the
// two Utf8/Class entries layering needs.
func simpleClassFile(name, superName string) *classfile.ClassFile {
	pool := []classfile.ConstantPoolEntry{nil} // index 0 unused
	addUtf8 := func(s string) uint16 {
		pool = append(pool, &classfile.ConstantUtf8{Value: s})
		return uint16(len(pool) - 1)
	}
	nameIdx := addUtf8(name)
	thisIdx := uint16(len(pool))
	pool = append(pool, &classfile.ConstantClass{NameIndex: nameIdx})

	cf := &classfile.ClassFile{
		ConstantPool: pool,
		ThisClass:    thisIdx,
	}
	if superName != "" {
		superNameIdx := addUtf8(superName)
		superIdx := uint16(len(pool))
		pool = append(pool, &classfile.ConstantClass{NameIndex: superNameIdx})
		cf.ConstantPool = pool
		cf.SuperClass = superIdx
	}
	return cf
}

func TestResolveLinksAndCachesAClass(t *testing.T) {
	src := &mapSource{classes: map[string]*classfile.ClassFile{
		"java/lang/Object": simpleClassFile("java/lang/Object", ""),
	}}
	reg := New("bootstrap", nil, src, nil)

	c1, err := reg.Resolve("java/lang/Object")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c1.Name() != "java/lang/Object" {
		t.Errorf("Name(): got %s, want java/lang/Object", c1.Name())
	}

	c2, err := reg.Resolve("java/lang/Object")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if c1 != c2 {
		t.Error("expected the same Class instance on a cached re-resolve")
	}
	if src.finds != 1 {
		t.Errorf("source.Find calls: got %d, want 1 (second resolve should hit the cache)", src.finds)
	}
}

func TestResolveLinksSuperChain(t *testing.T) {
	src := &mapSource{classes: map[string]*classfile.ClassFile{
		"java/lang/Object": simpleClassFile("java/lang/Object", ""),
		"Animal":            simpleClassFile("Animal", "java/lang/Object"),
	}}
	reg := New("bootstrap", nil, src, nil)

	animal, err := reg.Resolve("Animal")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if animal.Super() == nil || animal.Super().Name() != "java/lang/Object" {
		t.Errorf("Super(): got %v, want java/lang/Object", animal.Super())
	}
}

func TestResolveMissingClassFails(t *testing.T) {
	reg := New("bootstrap", nil, &mapSource{classes: map[string]*classfile.ClassFile{}}, nil)
	if _, err := reg.Resolve("does/not/Exist"); err == nil {
		t.Fatal("expected an error resolving a class absent from the source")
	}
}

func TestResolveDelegatesToParentFirst(t *testing.T) {
	bootSrc := &mapSource{classes: map[string]*classfile.ClassFile{
		"java/lang/Object": simpleClassFile("java/lang/Object", ""),
	}}
	boot := New("bootstrap", nil, bootSrc, nil)

	appSrc := &mapSource{classes: map[string]*classfile.ClassFile{
		"java/lang/Object": simpleClassFile("java/lang/Object", ""), // would shadow boot's if parent delegation were skipped
		"App":               simpleClassFile("App", "java/lang/Object"),
	}}
	app := New("app", boot, appSrc, nil)

	c, err := app.Resolve("java/lang/Object")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	bootClass, _ := boot.Resolve("java/lang/Object")
	if c != bootClass {
		t.Error("expected the child loader to delegate java/lang/Object to its parent rather than load its own copy")
	}
	if _, err := app.Resolve("App"); err != nil {
		t.Fatalf("Resolve(App): %v", err)
	}
	if appSrc.finds != 1 { // only App itself, not java/lang/Object, should ever hit app's own source
		t.Errorf("app source.Find calls: got %d, want 1 (java/lang/Object should never reach app's own source)", appSrc.finds)
	}
}

func TestResolveArraySynthesizesAndCaches(t *testing.T) {
	src := &mapSource{classes: map[string]*classfile.ClassFile{
		"java/lang/Object": simpleClassFile("java/lang/Object", ""),
	}}
	reg := New("bootstrap", nil, src, nil)

	a1, err := reg.Resolve("[I")
	if err != nil {
		t.Fatalf("Resolve([I): %v", err)
	}
	if !a1.IsArray() {
		t.Error("expected [I to resolve to an array class")
	}
	if a1.Super() == nil || a1.Super().Name() != "java/lang/Object" {
		t.Error("expected array classes to have java/lang/Object as super")
	}

	a2, err := reg.Resolve("[I")
	if err != nil {
		t.Fatalf("second Resolve([I): %v", err)
	}
	if a1 != a2 {
		t.Error("expected array class resolution to be cached")
	}
}

func TestRegisterPrototypeComputesInstanceLayout(t *testing.T) {
	src := &mapSource{classes: map[string]*classfile.ClassFile{
		"java/lang/Object": simpleClassFile("java/lang/Object", ""),
	}}
	reg := New("bootstrap", nil, src, nil)
	if _, err := reg.Resolve("java/lang/Object"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	proto := object.NewOrdinaryClass("Point", "java/lang/Object", nil, 0, nil)
	proto.Fields = []*object.Field{{Owner: proto, Name: "x", Descriptor: "I"}}
	if err := reg.RegisterPrototype(proto); err != nil {
		t.Fatalf("RegisterPrototype: %v", err)
	}

	got, err := reg.Resolve("Point")
	if err != nil {
		t.Fatalf("Resolve(Point): %v", err)
	}
	if got != object.Class(proto) {
		t.Error("expected RegisterPrototype to install the class directly, resolvable by name")
	}
	if proto.InstanceSize() == 0 {
		t.Error("expected a nonzero instance size for a class with one declared field")
	}
}

func TestMultiSourceFirstMatchWins(t *testing.T) {
	first := &mapSource{classes: map[string]*classfile.ClassFile{
		"Shared": simpleClassFile("Shared", ""),
	}}
	second := &mapSource{classes: map[string]*classfile.ClassFile{
		"Shared": simpleClassFile("Shared", ""),
		"Other":  simpleClassFile("Other", ""),
	}}
	multi := NewMultiSource(first, second)

	if _, ok, err := multi.Find("Shared"); err != nil || !ok {
		t.Fatalf("Find(Shared): ok=%v err=%v", ok, err)
	}
	if first.finds != 1 {
		t.Errorf("first.finds: got %d, want 1", first.finds)
	}
	if second.finds != 0 {
		t.Errorf("second.finds: got %d, want 0 (first source already matched)", second.finds)
	}

	if _, ok, err := multi.Find("Other"); err != nil || !ok {
		t.Fatalf("Find(Other): ok=%v err=%v", ok, err)
	}
	if second.finds != 1 {
		t.Errorf("second.finds after falling through: got %d, want 1", second.finds)
	}
}

func TestMultiSourcePropagatesSourceError(t *testing.T) {
	failing := failingSource{}
	multi := NewMultiSource(failing)
	if _, _, err := multi.Find("Anything"); err == nil {
		t.Fatal("expected an error to propagate from a failing source")
	}
}

type failingSource struct{}

func (failingSource) Find(name string) (*classfile.ClassFile, bool, error) {
	return nil, false, fmt.Errorf("simulated source failure for %s: %w", name, errors.New("boom"))
}
