// Package gc implements a stop-the-world mark-and-sweep collector over
// the heap of object.HeapObject/object.ArrayInstance values (§4.7's
// collect_garbage, §5). It is a pure leaf package: it knows object and
// value only, and walks whatever root value.Value slices its caller
// supplies (live frames' operand stacks and locals, classloader statics)
// rather than reaching into pkg/interp's frame-stack types directly, so
// interp depends on gc and not the other way around.
package gc

import (
	"go.uber.org/zap"

	"github.com/jvmcore/gojvm/pkg/object"
	"github.com/jvmcore/gojvm/pkg/value"
)

// Heap tracks every live allocation so Collect can sweep it. Allocation
// sites (interp's new/anewarray/newarray handling) call Track on every
// object.HeapObject/object.ArrayInstance they create.
type Heap struct {
	log  *zap.Logger
	objs []object.HeapObject
}

func NewHeap(log *zap.Logger) *Heap {
	if log == nil {
		log = zap.NewNop()
	}
	return &Heap{log: log}
}

func (h *Heap) Track(inst object.HeapObject) {
	h.objs = append(h.objs, inst)
}

// Stats summarizes one Collect pass.
type Stats struct {
	Live int
	Swept int
}

// RootProvider supplies every live value.Value root for a Collect pass:
// each active frame's operand stack and locals, plus every classloader's
// static field storage. pkg/interp implements this over its live thread
// states; defined here (rather than imported) to keep gc a leaf package.
type RootProvider interface {
	Roots() []value.Value
}

// Collect runs one mark-and-sweep pass: mark every object.HeapObject
// transitively reachable from roots, then drop unmarked entries from the
// heap's tracking table so they become eligible for normal Go GC.
func (h *Heap) Collect(roots RootProvider) Stats {
	for _, o := range h.objs {
		o.SetMarked(false)
	}

	var stack []object.HeapObject
	for _, v := range roots.Roots() {
		if v.Kind != value.Object || v.IsNull() {
			continue
		}
		if inst, ok := v.Ref.(object.HeapObject); ok {
			stack = append(stack, inst)
		}
	}

	live := 0
	for len(stack) > 0 {
		inst := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if inst.Marked() {
			continue
		}
		inst.SetMarked(true)
		live++
		stack = append(stack, childRefs(inst)...)
	}

	kept := h.objs[:0]
	swept := 0
	for _, o := range h.objs {
		if o.Marked() {
			kept = append(kept, o)
		} else {
			swept++
		}
	}
	h.objs = kept

	h.log.Debug("gc collect", zap.Int("live", live), zap.Int("swept", swept))
	return Stats{Live: live, Swept: swept}
}

// childRefs returns the object references one instance directly holds:
// an ordinary object's field storage, or a reference array's elements.
func childRefs(inst object.HeapObject) []object.HeapObject {
	var children []object.HeapObject
	switch v := inst.(type) {
	case *object.Instance:
		class := v.Class()
		for cur := class; cur != nil; cur = cur.Super() {
			for _, f := range cur.DeclaredFields() {
				if f.IsStatic() || f.Kind != value.Object {
					continue
				}
				fv := v.Storage().Get(f.SlotIndex)
				if !fv.IsNull() {
					if child, ok := fv.Ref.(object.HeapObject); ok {
						children = append(children, child)
					}
				}
			}
		}
	case *object.ArrayInstance:
		if v.ElemKind() != value.Object {
			return nil
		}
		for _, fv := range v.RawBuffer() {
			if !fv.IsNull() {
				if child, ok := fv.Ref.(object.HeapObject); ok {
					children = append(children, child)
				}
			}
		}
	}
	return children
}
