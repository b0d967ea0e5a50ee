package backend

import "github.com/jcnc-org/snow/ir"

// slotAllocator assigns each virtual register a frame-local slot number.
// Grounded on gvm/vm/compile.go's Instruction encoding, which packs a
// fixed register index straight into the instruction word — here the
// allocation is linear-scan instead of a flat fixed set: parameters
// claim the first slots in declaration order, then every instruction
// that defines a fresh register claims the next slot as it is visited
// in program order, so slot number always equals "order this value was
// produced in," with no reuse/coloring (spec.md §4.3 does not call for
// register reuse — frame-local slot counts are cheap compared to the
// flat machines this style descends from).
type slotAllocator struct {
	slots map[int]int
	next  int
}

func newSlotAllocator(fn *ir.Function) *slotAllocator {
	a := &slotAllocator{slots: make(map[int]int, fn.NumRegisters())}
	for _, p := range fn.Params {
		a.assign(p)
	}
	return a
}

func (a *slotAllocator) assign(r ir.Register) int {
	if slot, ok := a.slots[r.ID()]; ok {
		return slot
	}
	slot := a.next
	a.slots[r.ID()] = slot
	a.next++
	return slot
}

// slot returns r's assigned slot, allocating one on first sight — a
// defensive fallback for any register the pre-pass over instructions
// did not already visit (there should be none, since every register is
// either a parameter or some instruction's Dest).
func (a *slotAllocator) slot(r ir.Register) int {
	return a.assign(r)
}

func (a *slotAllocator) frameSize() int { return a.next }
