package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcnc-org/snow/ir"
	"github.com/jcnc-org/snow/vmopcode"
)

func TestApplyTypedIntegerArithmetic(t *testing.T) {
	v, err := applyTyped(vmopcode.KindAdd, ir.TypeLong, Value{Type: ir.TypeLong, Int: 2}, Value{Type: ir.TypeLong, Int: 3})
	require.NoError(t, err)
	require.Equal(t, int64(5), v.Int)

	v, err = applyTyped(vmopcode.KindMod, ir.TypeInt, Value{Type: ir.TypeInt, Int: 7}, Value{Type: ir.TypeInt, Int: 3})
	require.NoError(t, err)
	require.Equal(t, int64(1), v.Int)
}

func TestApplyTypedIntegerDivideByZero(t *testing.T) {
	_, err := applyTyped(vmopcode.KindDiv, ir.TypeLong, Value{Type: ir.TypeLong, Int: 1}, Value{Type: ir.TypeLong, Int: 0})
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestApplyTypedFloatArithmetic(t *testing.T) {
	v, err := applyTyped(vmopcode.KindDiv, ir.TypeDouble, Value{Type: ir.TypeDouble, Float: 7}, Value{Type: ir.TypeDouble, Float: 2})
	require.NoError(t, err)
	require.Equal(t, 3.5, v.Float)
}

func TestApplyTypedFloatDivideByZero(t *testing.T) {
	_, err := applyTyped(vmopcode.KindDiv, ir.TypeFloat, Value{Type: ir.TypeFloat, Float: 1}, Value{Type: ir.TypeFloat, Float: 0})
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestApplyTypedBitwiseFamily(t *testing.T) {
	v, err := applyTyped(vmopcode.KindAnd, ir.TypeLong, Value{Type: ir.TypeLong, Int: 0b110}, Value{Type: ir.TypeLong, Int: 0b011})
	require.NoError(t, err)
	require.Equal(t, int64(0b010), v.Int)
}

func TestApplyUnaryNegAndInc(t *testing.T) {
	v, err := applyUnary(vmopcode.KindNeg, ir.TypeInt, Value{Type: ir.TypeInt, Int: 5})
	require.NoError(t, err)
	require.Equal(t, int64(-5), v.Int)

	v, err = applyUnary(vmopcode.KindInc, ir.TypeInt, Value{Type: ir.TypeInt, Int: 5})
	require.NoError(t, err)
	require.Equal(t, int64(6), v.Int)

	v, err = applyUnary(vmopcode.KindNeg, ir.TypeDouble, Value{Type: ir.TypeDouble, Float: 1.5})
	require.NoError(t, err)
	require.Equal(t, -1.5, v.Float)
}

func TestEvalPredicateIntAndFloat(t *testing.T) {
	fire, err := evalPredicate(vmopcode.KindCL, ir.TypeInt, Value{Type: ir.TypeInt, Int: 1}, Value{Type: ir.TypeInt, Int: 2})
	require.NoError(t, err)
	require.True(t, fire)

	fire, err = evalPredicate(vmopcode.KindCGE, ir.TypeDouble, Value{Type: ir.TypeDouble, Float: 1}, Value{Type: ir.TypeDouble, Float: 2})
	require.NoError(t, err)
	require.False(t, fire)
}

func TestRefPredicateStringEquality(t *testing.T) {
	fire, err := refPredicate(vmopcode.KindCE, Value{Type: ir.TypeString, Str: "a"}, Value{Type: ir.TypeString, Str: "a"})
	require.NoError(t, err)
	require.True(t, fire)

	fire, err = refPredicate(vmopcode.KindCNE, Value{Type: ir.TypeString, Str: "a"}, Value{Type: ir.TypeString, Str: "b"})
	require.NoError(t, err)
	require.True(t, fire)
}

func TestRefPredicateBoolEquality(t *testing.T) {
	fire, err := refPredicate(vmopcode.KindCE, Value{Type: ir.TypeBool, Bool: true}, Value{Type: ir.TypeBool, Bool: true})
	require.NoError(t, err)
	require.True(t, fire)

	fire, err = refPredicate(vmopcode.KindCE, Value{Type: ir.TypeBool, Bool: true}, Value{Type: ir.TypeBool, Bool: false})
	require.NoError(t, err)
	require.False(t, fire)
}

func newArithFrame() *Frame { return newFrame("mod.f", 0, nil, -1) }

func TestExecCompareBranchSetsProgramCounterWhenPredicateHolds(t *testing.T) {
	e := &Engine{}
	f := newArithFrame()
	require.NoError(t, f.push(Value{Type: ir.TypeInt, Int: 1}))
	require.NoError(t, f.push(Value{Type: ir.TypeInt, Int: 2}))
	instr := decoded{op: vmopcode.OpICL, args: []string{"42"}}
	require.NoError(t, e.execCompareBranch(f, instr, vmopcode.KindCL, ir.TypeInt))
	require.Equal(t, 42, f.pc)
}

func TestExecCompareBranchLeavesProgramCounterWhenPredicateFails(t *testing.T) {
	e := &Engine{}
	f := newArithFrame()
	f.pc = 7
	require.NoError(t, f.push(Value{Type: ir.TypeInt, Int: 2}))
	require.NoError(t, f.push(Value{Type: ir.TypeInt, Int: 1}))
	instr := decoded{op: vmopcode.OpICL, args: []string{"42"}}
	require.NoError(t, e.execCompareBranch(f, instr, vmopcode.KindCL, ir.TypeInt))
	require.Equal(t, 7, f.pc)
}

func TestExecRefAddConcatenatesStrings(t *testing.T) {
	e := &Engine{}
	f := newArithFrame()
	require.NoError(t, f.push(Value{Type: ir.TypeString, Str: "foo"}))
	require.NoError(t, f.push(Value{Type: ir.TypeString, Str: "bar"}))
	require.NoError(t, e.execRefAdd(f))

	out, err := f.pop()
	require.NoError(t, err)
	require.Equal(t, "foobar", out.Str)
}

func TestExecRefAddNumericOperandsAddNumerically(t *testing.T) {
	e := &Engine{}
	f := newArithFrame()
	require.NoError(t, f.push(Value{Type: ir.TypeLong, Int: 4}))
	require.NoError(t, f.push(Value{Type: ir.TypeLong, Int: 5}))
	require.NoError(t, e.execRefAdd(f))

	out, err := f.pop()
	require.NoError(t, err)
	require.Equal(t, 9.0, out.Float)
}

func TestExecConversionWidensIntToDouble(t *testing.T) {
	e := &Engine{}
	f := newArithFrame()
	require.NoError(t, f.push(Value{Type: ir.TypeInt, Int: 7}))
	require.NoError(t, e.execConversion(f, vmopcode.OpI2D))

	out, err := f.pop()
	require.NoError(t, err)
	require.Equal(t, ir.TypeDouble, out.Type)
	require.Equal(t, 7.0, out.Float)
}
