package gc

import (
	"testing"

	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

type fakeRoots struct {
	roots []value.Value
}

func (f fakeRoots) Roots() []value.Value { return f.roots }

func fieldClass(name string, fields ...*object.Field) *object.OrdinaryClass {
	c := object.NewOrdinaryClass(name, "java/lang/Object", nil, 0, nil)
	c.Fields = fields
	for i, f := range fields {
		f.Owner = c
		f.SlotIndex = i
	}
	return c
}

func TestCollectSweepsUnreachable(t *testing.T) {
	h := NewHeap(nil)
	class := object.NewOrdinaryClass("Leaf", "java/lang/Object", nil, 0, nil)

	reachable := object.NewInstance(class, 0)
	garbage := object.NewInstance(class, 0)
	h.Track(reachable)
	h.Track(garbage)

	roots := fakeRoots{roots: []value.Value{value.RefValue(reachable)}}
	stats := h.Collect(roots)

	if stats.Live != 1 {
		t.Errorf("Live: got %d, want 1", stats.Live)
	}
	if stats.Swept != 1 {
		t.Errorf("Swept: got %d, want 1", stats.Swept)
	}
	if len(h.objs) != 1 || h.objs[0] != object.HeapObject(reachable) {
		t.Errorf("heap after collect: got %v, want only the reachable instance", h.objs)
	}
}

func TestCollectWalksObjectFieldGraph(t *testing.T) {
	h := NewHeap(nil)
	leafClass := object.NewOrdinaryClass("Leaf", "java/lang/Object", nil, 0, nil)
	nodeClass := fieldClass("Node", &object.Field{Name: "next", Descriptor: "LLeaf;", Kind: value.Object})

	leaf := object.NewInstance(leafClass, 0)
	h.Track(leaf)
	node := object.NewInstance(nodeClass, 1)
	node.Storage().Set(0, value.RefValue(leaf))
	h.Track(node)

	stats := h.Collect(fakeRoots{roots: []value.Value{value.RefValue(node)}})

	if stats.Live != 2 {
		t.Errorf("Live: got %d, want 2 (node plus its reachable field)", stats.Live)
	}
	if stats.Swept != 0 {
		t.Errorf("Swept: got %d, want 0", stats.Swept)
	}
}

func TestCollectWalksArrayElements(t *testing.T) {
	h := NewHeap(nil)
	elemClass := object.NewOrdinaryClass("Elem", "java/lang/Object", nil, 0, nil)
	arrClass := object.NewArrayClass("[LElem;", value.Object, elemClass, nil)

	held := object.NewInstance(elemClass, 0)
	h.Track(held)
	arr := object.NewArrayInstance(arrClass, value.Object, 2)
	arr.Set(0, value.RefValue(held))
	h.Track(arr)

	stats := h.Collect(fakeRoots{roots: []value.Value{value.RefValue(arr)}})

	if stats.Live != 2 {
		t.Errorf("Live: got %d, want 2 (array plus its one live element)", stats.Live)
	}
}

func TestCollectIgnoresNonReferenceRoots(t *testing.T) {
	h := NewHeap(nil)
	class := object.NewOrdinaryClass("C", "java/lang/Object", nil, 0, nil)
	garbage := object.NewInstance(class, 0)
	h.Track(garbage)

	roots := fakeRoots{roots: []value.Value{value.IntValue(42), value.NullValue()}}
	stats := h.Collect(roots)

	if stats.Live != 0 {
		t.Errorf("Live: got %d, want 0", stats.Live)
	}
	if stats.Swept != 1 {
		t.Errorf("Swept: got %d, want 1", stats.Swept)
	}
}

func TestCollectHandlesCycles(t *testing.T) {
	h := NewHeap(nil)
	nodeClass := fieldClass("CycleNode", &object.Field{Name: "next", Descriptor: "LCycleNode;", Kind: value.Object})

	a := object.NewInstance(nodeClass, 1)
	b := object.NewInstance(nodeClass, 1)
	a.Storage().Set(0, value.RefValue(b))
	b.Storage().Set(0, value.RefValue(a))
	h.Track(a)
	h.Track(b)

	stats := h.Collect(fakeRoots{roots: []value.Value{value.RefValue(a)}})

	if stats.Live != 2 {
		t.Errorf("Live: got %d, want 2 (mutual reference cycle should still mark both as live and terminate)", stats.Live)
	}
}
