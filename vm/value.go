// Package vm implements the stack-based execution engine: a decoder
// for the VM's textual program form, frame-based call stack, per-frame
// operand stack and local variable store, and the dispatch-table-driven
// interpreter loop.
//
// Grounded on gvm/vm/vm.go (engine state, numeric helpers,
// execInstructions), gvm/vm/compile.go+parse.go (line preprocessing,
// label resolution), and gvm/vm/run.go (RunProgram/RunProgramDebugMode,
// the defer-recover safety net, and the GC-disable-during-run trick).
// The one structural departure from gvm: gvm is a flat 32-register
// machine with a single shared stack; this engine is a per-frame stack
// machine, because spec.md §3 is explicit that each call gets its own
// operand stack and local variable store.
package vm

import (
	"fmt"

	"github.com/jcnc-org/snow/ir"
)

// Value is a runtime value on the operand stack or in a frame's local
// slots. Exactly one of the fields matching Type is meaningful, mirroring
// ir.Const's tagged-union shape so constants can be pushed onto the
// stack with no conversion step.
type Value struct {
	Type  ir.ElemType
	Int   int64
	Float float64
	Bool  bool
	Str   string
	List  []Value
	// Ref indexes into the engine's heap of struct/array objects; zero
	// value means "null" (no object allocated yet).
	Ref int
}

func (v Value) String() string {
	switch v.Type {
	case ir.TypeBool:
		return fmt.Sprintf("%t", v.Bool)
	case ir.TypeString:
		return v.Str
	case ir.TypeFloat, ir.TypeDouble:
		return fmt.Sprintf("%v", v.Float)
	case ir.TypeRef:
		if v.Ref == 0 {
			return "null"
		}
		return fmt.Sprintf("ref(%d)", v.Ref)
	case ir.TypeList:
		return fmt.Sprintf("list(%d)", len(v.List))
	default:
		return fmt.Sprintf("%d", v.Int)
	}
}

// IsNumeric reports whether v carries a number the arithmetic handlers
// can operate on directly.
func (v Value) IsNumeric() bool {
	switch v.Type {
	case ir.TypeByte, ir.TypeShort, ir.TypeInt, ir.TypeLong, ir.TypeFloat, ir.TypeDouble:
		return true
	default:
		return false
	}
}

// Object is a heap-allocated struct instance or array backing store,
// addressed by Value.Ref.
type Object struct {
	StructName string // empty for a bare array
	Fields     []Value
}
