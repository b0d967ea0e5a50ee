package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConstDefinesAndString(t *testing.T) {
	fn := NewFunction("mod.f", TypeLong)
	dst := fn.NewRegister()
	instr := LoadConst{Dest: dst, Value: IntConst(TypeLong, 7)}

	got, ok := instr.Defines()
	require.True(t, ok)
	require.Equal(t, dst, got)
	require.Equal(t, "%0 = CONST l64(7)", instr.String())
}

func TestBinOpString(t *testing.T) {
	fn := NewFunction("mod.f", TypeLong)
	a, b, c := fn.NewRegister(), fn.NewRegister(), fn.NewRegister()
	instr := BinOp{Dest: c, Op: AddL64, Lhs: a, Rhs: b}
	require.Equal(t, "%2 = ADD_L64 %0, %1", instr.String())
}

func TestCallDefinesVoidVsValued(t *testing.T) {
	fn := NewFunction("mod.f", TypeVoid)
	arg := fn.NewRegister()

	voidCall := Call{Void: true, Target: "mod.sink", Args: []Register{arg}}
	_, ok := voidCall.Defines()
	require.False(t, ok)
	require.Equal(t, "CALL mod.sink, %0", voidCall.String())

	dst := fn.NewRegister()
	valued := Call{Dest: dst, Target: "mod.add", Args: []Register{arg}}
	got, ok := valued.Defines()
	require.True(t, ok)
	require.Equal(t, dst, got)
	require.Equal(t, "%1 = CALL mod.add, %0", valued.String())
}

func TestControlFlowInstructionsDefineNoRegister(t *testing.T) {
	fn := NewFunction("mod.f", TypeVoid)
	a, b := fn.NewRegister(), fn.NewRegister()
	target := fn.NewLabel("done")

	for _, instr := range []Instruction{
		LabelInstr{Name: target},
		Jump{Target: target},
		CmpJump{Op: CmpLLT, Lhs: a, Rhs: b, Target: target},
		Return{Void: true},
	} {
		_, ok := instr.Defines()
		require.False(t, ok)
	}
}

func TestReturnStringVoidVsValued(t *testing.T) {
	fn := NewFunction("mod.f", TypeLong)
	v := fn.NewRegister()
	require.Equal(t, "RET", Return{Void: true}.String())
	require.Equal(t, "RET %0", Return{Value: v}.String())
}

func TestCmpJumpString(t *testing.T) {
	fn := NewFunction("mod.f", TypeVoid)
	a, b := fn.NewRegister(), fn.NewRegister()
	target := fn.NewLabel("loop")
	instr := CmpJump{Op: CmpIGT, Lhs: a, Rhs: b, Target: target}
	require.Contains(t, instr.String(), "IF-CMP_IGT %0, %1 GOTO")
}
