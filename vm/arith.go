package vm

import (
	"fmt"

	"github.com/jcnc-org/snow/ir"
	"github.com/jcnc-org/snow/vmopcode"
)

// execArithOrCompareOrConvert handles every per-type arithmetic,
// bitwise, unary, comparison-branch, and conversion opcode: pop the
// right-hand operand first, then the left (the right-to-left pop
// convention spec.md §4.4/Open Question pins down — the backend always
// pushes lhs before rhs, so popping rhs first restores the natural
// left-to-right operand order for the Go-level operator application
// below).
//
// Grounded on gvm/vm/vm.go's arithAddi/arithAddf-style per-op helper
// functions, generalized from a fixed int32/float32 pair to the full
// B/S/I/L/F/D family plus the R_ADD reference-typed op, keyed off each
// opcode's (Kind, Type) metadata instead of a per-opcode switch so the
// type-family reorganization of vmopcode never needs a parallel rewrite
// here.
func (e *Engine) execArithOrCompareOrConvert(f *Frame, instr decoded) (bool, error) {
	if isConversionOp(instr.op) {
		return true, e.execConversion(f, instr.op)
	}
	if instr.op == vmopcode.OpRAdd {
		return true, e.execRefAdd(f)
	}

	kind, kok := vmopcode.KindOf(instr.op)
	t, tok := vmopcode.TypeOf(instr.op)
	if !kok || !tok {
		return false, nil
	}

	switch kind {
	case vmopcode.KindNeg, vmopcode.KindInc:
		return true, e.execUnaryArith(f, kind, t)
	case vmopcode.KindPush, vmopcode.KindLoad, vmopcode.KindStore:
		// Handled directly by Engine.exec; never reached.
		return false, nil
	default:
		if vmopcode.IsCompareKind(kind) {
			return true, e.execCompareBranch(f, instr, kind, t)
		}
		rhs, err := f.pop()
		if err != nil {
			return true, err
		}
		lhs, err := f.pop()
		if err != nil {
			return true, err
		}
		result, err := applyTyped(kind, t, lhs, rhs)
		if err != nil {
			return true, err
		}
		return true, f.push(result)
	}
}

func isConversionOp(op vmopcode.Opcode) bool {
	switch op {
	case vmopcode.OpI2L, vmopcode.OpI2F, vmopcode.OpI2D, vmopcode.OpL2I, vmopcode.OpL2F, vmopcode.OpL2D,
		vmopcode.OpF2D, vmopcode.OpD2F, vmopcode.OpF2I, vmopcode.OpD2I:
		return true
	default:
		return false
	}
}

func (e *Engine) execConversion(f *Frame, op vmopcode.Opcode) error {
	v, err := f.pop()
	if err != nil {
		return err
	}
	var out Value
	switch op {
	case vmopcode.OpI2L, vmopcode.OpL2I:
		out = Value{Type: destType(op), Int: v.Int}
	case vmopcode.OpI2F, vmopcode.OpL2F:
		out = Value{Type: destType(op), Float: float64(v.Int)}
	case vmopcode.OpI2D, vmopcode.OpL2D:
		out = Value{Type: destType(op), Float: float64(v.Int)}
	case vmopcode.OpF2D, vmopcode.OpD2F:
		out = Value{Type: destType(op), Float: v.Float}
	case vmopcode.OpF2I, vmopcode.OpD2I:
		out = Value{Type: destType(op), Int: int64(v.Float)}
	default:
		return fmt.Errorf("%w: unhandled conversion %s", ErrUnknownOpcode, op)
	}
	return f.push(out)
}

func destType(op vmopcode.Opcode) ir.ElemType {
	switch op {
	case vmopcode.OpI2L:
		return ir.TypeLong
	case vmopcode.OpL2I:
		return ir.TypeInt
	case vmopcode.OpI2F, vmopcode.OpL2F:
		return ir.TypeFloat
	case vmopcode.OpI2D, vmopcode.OpL2D:
		return ir.TypeDouble
	case vmopcode.OpF2D:
		return ir.TypeDouble
	case vmopcode.OpD2F:
		return ir.TypeFloat
	case vmopcode.OpF2I, vmopcode.OpD2I:
		return ir.TypeInt
	default:
		return ir.TypeVoid
	}
}

// execRefAdd implements R_ADD: string concatenation when either operand
// is a string (with a "null" substitution for a null reference
// operand), else a plain numeric add for two non-string
// reference-typed numeric wrappers, else "dest := src"-as-move when one
// side is a bare reference copy (the irbuilder's emitMove fallback for
// non-numeric types).
func (e *Engine) execRefAdd(f *Frame) error {
	rhs, err := f.pop()
	if err != nil {
		return err
	}
	lhs, err := f.pop()
	if err != nil {
		return err
	}
	if lhs.Type == ir.TypeString || rhs.Type == ir.TypeString {
		return f.push(Value{Type: ir.TypeString, Str: refString(lhs) + refString(rhs)})
	}
	if lhs.IsNumeric() && rhs.IsNumeric() {
		result, err := applyTyped(vmopcode.KindAdd, ir.TypeDouble, promoteToDouble(lhs), promoteToDouble(rhs))
		if err != nil {
			return err
		}
		return f.push(result)
	}
	// Move semantics: rhs is the zero-constant irbuilder's emitMove
	// always pairs with a reference lhs.
	return f.push(lhs)
}

func refString(v Value) string {
	switch v.Type {
	case ir.TypeString:
		return v.Str
	case ir.TypeRef:
		if v.Ref == 0 {
			return "null"
		}
		return v.String()
	default:
		return v.String()
	}
}

func promoteToDouble(v Value) Value {
	if v.Type == ir.TypeFloat || v.Type == ir.TypeDouble {
		return Value{Type: ir.TypeDouble, Float: v.Float}
	}
	return Value{Type: ir.TypeDouble, Float: float64(v.Int)}
}

// execUnaryArith implements NEG/INC: pop one operand, apply, push the
// result at the opcode's own family type.
func (e *Engine) execUnaryArith(f *Frame, kind vmopcode.OpKind, t ir.ElemType) error {
	v, err := f.pop()
	if err != nil {
		return err
	}
	result, err := applyUnary(kind, t, v)
	if err != nil {
		return err
	}
	return f.push(result)
}

func applyUnary(kind vmopcode.OpKind, t ir.ElemType, v Value) (Value, error) {
	isFloat := t == ir.TypeFloat || t == ir.TypeDouble
	switch kind {
	case vmopcode.KindNeg:
		if isFloat {
			return Value{Type: t, Float: -v.Float}, nil
		}
		return Value{Type: t, Int: -v.Int}, nil
	case vmopcode.KindInc:
		if isFloat {
			return Value{Type: t, Float: v.Float + 1}, nil
		}
		return Value{Type: t, Int: v.Int + 1}, nil
	default:
		return Value{}, fmt.Errorf("%w: unhandled unary op", ErrUnknownOpcode)
	}
}

// execCompareBranch implements every <T>_C* opcode: pop right then left,
// evaluate the predicate, and branch to the absolute target encoded in
// the instruction's one operand when it holds — spec.md §4.4's
// comparison-as-direct-branch semantics, replacing a separate
// push-bool-then-JUMPT/JUMPF step entirely.
func (e *Engine) execCompareBranch(f *Frame, instr decoded, kind vmopcode.OpKind, t ir.ElemType) error {
	rhs, err := f.pop()
	if err != nil {
		return err
	}
	lhs, err := f.pop()
	if err != nil {
		return err
	}
	target, err := intArg(instr.args, 0)
	if err != nil {
		return err
	}
	fire, err := evalPredicate(kind, t, lhs, rhs)
	if err != nil {
		return err
	}
	if fire {
		f.pc = target
	}
	return nil
}

func evalPredicate(kind vmopcode.OpKind, t ir.ElemType, lhs, rhs Value) (bool, error) {
	switch {
	case t == ir.TypeRef:
		return refPredicate(kind, lhs, rhs)
	case t == ir.TypeFloat || t == ir.TypeDouble:
		return floatPredicate(kind, lhs.Float, rhs.Float)
	default:
		return intPredicate(kind, lhs.Int, rhs.Int)
	}
}

// refPredicate implements R_CE/R_CNE's value-based equality: numeric
// operands compare by value after promotion, strings by content, bools
// by their own Bool field (the fix for comparisons that fall back to
// CMP_REQ/CMP_RNE on a bool-typed operand — the old default branch
// compared the always-zero Ref field instead), and everything else by
// reference identity.
func refPredicate(kind vmopcode.OpKind, lhs, rhs Value) (bool, error) {
	var equal bool
	switch {
	case lhs.Type == ir.TypeBool || rhs.Type == ir.TypeBool:
		equal = lhs.Bool == rhs.Bool
	case lhs.Type == ir.TypeString || rhs.Type == ir.TypeString:
		equal = lhs.Str == rhs.Str && lhs.Type == rhs.Type
	case lhs.IsNumeric() && rhs.IsNumeric():
		equal = promoteToDouble(lhs).Float == promoteToDouble(rhs).Float
	default:
		equal = lhs.Ref == rhs.Ref
	}
	switch kind {
	case vmopcode.KindCE:
		return equal, nil
	case vmopcode.KindCNE:
		return !equal, nil
	default:
		return false, fmt.Errorf("%w: reference comparison only supports eq/ne", ErrUnknownOpcode)
	}
}

func floatPredicate(kind vmopcode.OpKind, l, r float64) (bool, error) {
	switch kind {
	case vmopcode.KindCE:
		return l == r, nil
	case vmopcode.KindCNE:
		return l != r, nil
	case vmopcode.KindCG:
		return l > r, nil
	case vmopcode.KindCGE:
		return l >= r, nil
	case vmopcode.KindCL:
		return l < r, nil
	case vmopcode.KindCLE:
		return l <= r, nil
	default:
		return false, fmt.Errorf("%w: unhandled float predicate", ErrUnknownOpcode)
	}
}

func intPredicate(kind vmopcode.OpKind, l, r int64) (bool, error) {
	switch kind {
	case vmopcode.KindCE:
		return l == r, nil
	case vmopcode.KindCNE:
		return l != r, nil
	case vmopcode.KindCG:
		return l > r, nil
	case vmopcode.KindCGE:
		return l >= r, nil
	case vmopcode.KindCL:
		return l < r, nil
	case vmopcode.KindCLE:
		return l <= r, nil
	default:
		return false, fmt.Errorf("%w: unhandled int predicate", ErrUnknownOpcode)
	}
}

// applyTyped applies one of the per-type arithmetic/bitwise opcodes to
// two already-popped operands, dispatching by the element type the
// opcode's family was declared for rather than by the operands' own
// Type tag, since the backend only ever emits an opcode whose type
// matches the operands it was compiled for (after any widening
// conversion).
func applyTyped(kind vmopcode.OpKind, t ir.ElemType, lhs, rhs Value) (Value, error) {
	if t == ir.TypeFloat || t == ir.TypeDouble {
		return applyFloat(kind, t, lhs.Float, rhs.Float)
	}
	return applyInt(kind, t, lhs.Int, rhs.Int)
}

func applyFloat(kind vmopcode.OpKind, t ir.ElemType, l, r float64) (Value, error) {
	switch kind {
	case vmopcode.KindAdd:
		return Value{Type: t, Float: l + r}, nil
	case vmopcode.KindSub:
		return Value{Type: t, Float: l - r}, nil
	case vmopcode.KindMul:
		return Value{Type: t, Float: l * r}, nil
	case vmopcode.KindDiv:
		if r == 0 {
			return Value{}, ErrDivideByZero
		}
		return Value{Type: t, Float: l / r}, nil
	default:
		return Value{}, fmt.Errorf("%w: unhandled float op", ErrUnknownOpcode)
	}
}

func applyInt(kind vmopcode.OpKind, t ir.ElemType, l, r int64) (Value, error) {
	switch kind {
	case vmopcode.KindAdd:
		return Value{Type: t, Int: l + r}, nil
	case vmopcode.KindSub:
		return Value{Type: t, Int: l - r}, nil
	case vmopcode.KindMul:
		return Value{Type: t, Int: l * r}, nil
	case vmopcode.KindDiv:
		if r == 0 {
			return Value{}, ErrDivideByZero
		}
		return Value{Type: t, Int: l / r}, nil
	case vmopcode.KindMod:
		if r == 0 {
			return Value{}, ErrDivideByZero
		}
		return Value{Type: t, Int: l % r}, nil
	case vmopcode.KindAnd:
		return Value{Type: t, Int: l & r}, nil
	case vmopcode.KindOr:
		return Value{Type: t, Int: l | r}, nil
	case vmopcode.KindXor:
		return Value{Type: t, Int: l ^ r}, nil
	default:
		return Value{}, fmt.Errorf("%w: unhandled int op", ErrUnknownOpcode)
	}
}
