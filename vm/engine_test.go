package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcnc-org/snow/ir"
)

func runSource(t *testing.T, source, entry string) (Value, error) {
	t.Helper()
	prog, err := Load(source)
	require.NoError(t, err)
	e := NewEngine(prog, nil)
	return e.Run(entry)
}

func TestEngineArithmeticAndReturn(t *testing.T) {
	// mod.add run directly as the entry point sees zero-valued params
	// (nothing populated its locals), so 0 + 0 == 0 is the expected
	// result; the call-convention path is exercised separately below.
	source := `
LABEL mod.add:
R_LOAD 0
R_LOAD 1
L_ADD
R_STORE 2
R_LOAD 2
RET
`
	result, err := runSource(t, source, "mod.add")
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Int)
}

func TestEngineCallConvention(t *testing.T) {
	// mod.main calls mod.add(2, 3) and returns the sum.
	source := `
LABEL mod.main:
I_PUSH 2
I_PUSH 3
CALL mod.add 2
I_STORE 0
I_LOAD 0
RET
LABEL mod.add:
I_LOAD 0
I_LOAD 1
I_ADD
I_STORE 2
I_LOAD 2
RET
`
	result, err := runSource(t, source, "mod.main")
	require.NoError(t, err)
	require.Equal(t, int64(5), result.Int)
}

func TestEngineVoidCallLeavesNoPhantomOperand(t *testing.T) {
	source := `
LABEL mod.main:
I_PUSH 1
CALL mod.sink 1
I_PUSH 42
RET
LABEL mod.sink:
I_LOAD 0
POP
RET
`
	result, err := runSource(t, source, "mod.main")
	require.NoError(t, err)
	require.Equal(t, int64(42), result.Int)
}

func TestEngineMovCopiesSlotInSrcDstOrder(t *testing.T) {
	source := `
LABEL mod.main:
I_PUSH 9
I_STORE 0
MOV 0 1
I_LOAD 1
RET
`
	result, err := runSource(t, source, "mod.main")
	require.NoError(t, err)
	require.Equal(t, int64(9), result.Int)
}

func TestEngineCompareBranchUsedAsControlFlow(t *testing.T) {
	source := `
LABEL mod.main:
R_PUSH true
R_PUSH true
R_CE mod.main.then
R_PUSH 0
RET
LABEL mod.main.then:
R_PUSH 1
RET
`
	result, err := runSource(t, source, "mod.main")
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Int)
}

func TestEngineMixedIntFloatAddWithConversion(t *testing.T) {
	// 2 (int) + 3.0 (double): the caller must widen the int operand to
	// double with I2D before D_ADD, exactly as backend.emitBinOp does;
	// the VM itself performs no implicit promotion.
	source := `
LABEL mod.main:
I_PUSH 2
I2D
D_PUSH 3.0
D_ADD
RET
`
	result, err := runSource(t, source, "mod.main")
	require.NoError(t, err)
	require.Equal(t, ir.TypeDouble, result.Type)
	require.Equal(t, 5.0, result.Float)
}

func TestEngineDivideByZeroTraps(t *testing.T) {
	source := `
LABEL mod.main:
L_PUSH 1
L_PUSH 0
L_DIV
RET
`
	_, err := runSource(t, source, "mod.main")
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestEngineCallStackOverflow(t *testing.T) {
	source := `
LABEL mod.main:
CALL mod.main 0
RET
`
	_, err := runSource(t, source, "mod.main")
	require.ErrorIs(t, err, ErrCallStackOverflow)
}

func TestEngineSetLimitsTightensCallDepth(t *testing.T) {
	source := `
LABEL mod.main:
CALL mod.main 0
RET
`
	prog, err := Load(source)
	require.NoError(t, err)
	e := NewEngine(prog, nil)
	e.SetLimits(3, 0)
	_, err = e.Run("mod.main")
	require.ErrorIs(t, err, ErrCallStackOverflow)
}

func TestEngineArrayNewAndIndex(t *testing.T) {
	source := `
LABEL mod.main:
R_PUSH 10
R_PUSH 20
R_PUSH 30
R_PUSH 3
R_ARRNEW
R_STORE 0
R_LOAD 0
R_PUSH 1
R_INDEXR
RET
`
	result, err := runSource(t, source, "mod.main")
	require.NoError(t, err)
	require.Equal(t, int64(20), result.Int)
}

func TestEngineHaltLeavesRootFrameResultInspectable(t *testing.T) {
	source := `
LABEL mod.main:
I_PUSH 99
HALT
`
	result, err := runSource(t, source, "mod.main")
	require.NoError(t, err)
	require.Equal(t, int64(99), result.Int)
}

func TestEngineDebugStepping(t *testing.T) {
	source := `
LABEL mod.main:
R_PUSH 7
RET
`
	prog, err := Load(source)
	require.NoError(t, err)
	e := NewEngine(prog, nil)
	require.NoError(t, e.Start("mod.main"))

	_, done, err := e.Step()
	require.NoError(t, err)
	require.False(t, done)

	result, done, err := e.Step()
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, int64(7), result.Int)
}

func TestEngineBreakpointToggle(t *testing.T) {
	prog, err := Load("LABEL mod.main:\nR_PUSH 1\nRET\n")
	require.NoError(t, err)
	e := NewEngine(prog, nil)
	require.False(t, e.AtBreakpoint())
	e.ToggleBreakpoint(0)
	require.NoError(t, e.Start("mod.main"))
	require.True(t, e.AtBreakpoint())
	e.ToggleBreakpoint(0)
	require.False(t, e.AtBreakpoint())
}
