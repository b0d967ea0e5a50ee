package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcnc-org/snow/ir"
)

func TestLowerEmitsCallConventionAndArithmetic(t *testing.T) {
	prog := ir.NewProgram()

	add := ir.NewFunction("mod.add", ir.TypeLong)
	a := add.AddParam(ir.TypeLong)
	b := add.AddParam(ir.TypeLong)
	sum := add.NewRegister()
	add.Emit(ir.BinOp{Dest: sum, Op: ir.AddL64, Lhs: a, Rhs: b})
	add.Emit(ir.Return{Value: sum})
	prog.AddFunction(add)

	main := ir.NewFunction("mod.main", ir.TypeLong)
	x := main.NewRegister()
	y := main.NewRegister()
	r := main.NewRegister()
	main.Emit(ir.LoadConst{Dest: x, Value: ir.IntConst(ir.TypeLong, 2)})
	main.Emit(ir.LoadConst{Dest: y, Value: ir.IntConst(ir.TypeLong, 3)})
	main.Emit(ir.Call{Dest: r, Target: "mod.add", Args: []ir.Register{x, y}})
	main.Emit(ir.Return{Value: r})
	prog.AddFunction(main)

	text, err := Lower(prog, nil)
	require.NoError(t, err)
	require.Contains(t, text, "LABEL mod.add:")
	require.Contains(t, text, "L_ADD")
	require.Contains(t, text, "CALL mod.add 2")
	require.Contains(t, text, "LABEL mod.main:")
	require.Contains(t, text, "RET") // mod.add is not the entry point
	require.Contains(t, text, "HALT") // mod.main is the entry point
}

func TestLowerZeroAddPeepholeFoldsToMov(t *testing.T) {
	prog := ir.NewProgram()
	fn := ir.NewFunction("mod.id", ir.TypeLong)
	src := fn.AddParam(ir.TypeLong)
	zero := fn.NewRegister()
	dst := fn.NewRegister()
	fn.Emit(ir.LoadConst{Dest: zero, Value: ir.IntConst(ir.TypeLong, 0)})
	fn.Emit(ir.BinOp{Dest: dst, Op: ir.AddL64, Lhs: src, Rhs: zero})
	fn.Emit(ir.Return{Value: dst})
	prog.AddFunction(fn)

	text, err := Lower(prog, nil)
	require.NoError(t, err)
	require.Contains(t, text, "MOV ")
	require.NotContains(t, text, "L_PUSH")
	require.NotContains(t, text, "L_ADD")
}

func TestLowerMixedWidthAddEmitsWideningConversion(t *testing.T) {
	prog := ir.NewProgram()
	fn := ir.NewFunction("mod.main", ir.TypeDouble)
	i := fn.NewRegister()
	fn.SetRegisterType(i, ir.TypeInt)
	d := fn.NewRegister()
	fn.SetRegisterType(d, ir.TypeDouble)
	sum := fn.NewRegister()
	fn.Emit(ir.LoadConst{Dest: i, Value: ir.IntConst(ir.TypeInt, 2)})
	fn.Emit(ir.LoadConst{Dest: d, Value: ir.FloatConst(ir.TypeDouble, 3.0)})
	fn.Emit(ir.BinOp{Dest: sum, Op: ir.AddD64, Lhs: i, Rhs: d})
	fn.Emit(ir.Return{Value: sum})
	prog.AddFunction(fn)

	text, err := Lower(prog, nil)
	require.NoError(t, err)
	require.Contains(t, text, "I2D")
	require.Contains(t, text, "D_ADD")
}

func TestLowerComparisonValueExpandsToBranch(t *testing.T) {
	prog := ir.NewProgram()
	fn := ir.NewFunction("mod.main", ir.TypeInt)
	a := fn.NewRegister()
	fn.SetRegisterType(a, ir.TypeInt)
	b := fn.NewRegister()
	fn.SetRegisterType(b, ir.TypeInt)
	dest := fn.NewRegister()
	fn.SetRegisterType(dest, ir.TypeInt)
	fn.Emit(ir.LoadConst{Dest: a, Value: ir.IntConst(ir.TypeInt, 1)})
	fn.Emit(ir.LoadConst{Dest: b, Value: ir.IntConst(ir.TypeInt, 2)})
	fn.Emit(ir.BinOp{Dest: dest, Op: ir.CmpIEQ, Lhs: a, Rhs: b})
	fn.Emit(ir.Return{Value: dest})
	prog.AddFunction(fn)

	text, err := Lower(prog, nil)
	require.NoError(t, err)
	require.Contains(t, text, "I_CE")
	require.Contains(t, text, "I_PUSH 0")
	require.Contains(t, text, "I_PUSH 1")
	require.Contains(t, text, "JUMP ")
}

func TestLowerCondJumpIsOneBranchInstruction(t *testing.T) {
	prog := ir.NewProgram()
	fn := ir.NewFunction("mod.main", ir.TypeVoid)
	a := fn.NewRegister()
	fn.SetRegisterType(a, ir.TypeInt)
	b := fn.NewRegister()
	fn.SetRegisterType(b, ir.TypeInt)
	end := ir.Label{Name: "mod.main.end"}
	fn.Emit(ir.LoadConst{Dest: a, Value: ir.IntConst(ir.TypeInt, 1)})
	fn.Emit(ir.LoadConst{Dest: b, Value: ir.IntConst(ir.TypeInt, 2)})
	fn.Emit(ir.CmpJump{Op: ir.CmpILT, Lhs: a, Rhs: b, Target: end})
	fn.Emit(ir.LabelInstr{Name: end})
	fn.Emit(ir.Return{Void: true})
	prog.AddFunction(fn)

	text, err := Lower(prog, nil)
	require.NoError(t, err)
	require.Contains(t, text, "I_CL mod.main.end")
	require.NotContains(t, text, "JUMPT")
	require.NotContains(t, text, "JUMPF")
}

func TestLowerUnresolvedLabelIsAnError(t *testing.T) {
	prog := ir.NewProgram()
	fn := ir.NewFunction("mod.main", ir.TypeVoid)
	fn.Emit(ir.Jump{Target: ir.Label{Name: "mod.main.nowhere"}})
	prog.AddFunction(fn)

	_, err := Lower(prog, nil)
	require.Error(t, err)
}

func TestLowerIntrinsicCallTargetsAreNotFlaggedUnresolved(t *testing.T) {
	prog := ir.NewProgram()
	fn := ir.NewFunction("mod.main", ir.TypeLong)
	arr := fn.NewRegister()
	idx := fn.NewRegister()
	out := fn.NewRegister()
	fn.Emit(ir.Call{Dest: out, Target: "__index_r", Args: []ir.Register{arr, idx}})
	fn.Emit(ir.Return{Value: out})
	prog.AddFunction(fn)

	text, err := Lower(prog, nil)
	require.NoError(t, err)
	require.Contains(t, text, "CALL __index_r 2")
}
