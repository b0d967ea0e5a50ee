package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadResolvesJumpAndCallLabels(t *testing.T) {
	source := `
LABEL mod.main:
JUMP mod.main.skip
R_PUSH 1
LABEL mod.main.skip:
CALL mod.helper 0
RET
LABEL mod.helper:
RET
`
	prog, err := Load(source)
	require.NoError(t, err)
	require.Contains(t, prog.funcs, "mod.main")
	require.Contains(t, prog.funcs, "mod.helper")
}

func TestLoadUnknownOpcodeIsError(t *testing.T) {
	_, err := Load("LABEL mod.main:\nNOT_REAL 1\n")
	require.ErrorIs(t, err, ErrUnknownOpcode)
}

func TestLoadUnknownJumpLabelIsError(t *testing.T) {
	_, err := Load("LABEL mod.main:\nJUMP mod.main.nowhere\n")
	require.ErrorIs(t, err, ErrUnknownLabel)
}

func TestLoadDerivesFrameSizeFromHighestSlotReference(t *testing.T) {
	source := `
LABEL mod.f:
R_LOAD 0
R_STORE 3
RET
`
	prog, err := Load(source)
	require.NoError(t, err)
	require.Equal(t, 4, prog.funcs["mod.f"].numSlots)
}

func TestLoadResolvesCompareBranchLabel(t *testing.T) {
	source := `
LABEL mod.main:
I_PUSH 1
I_PUSH 2
I_CL mod.main.target
I_PUSH 0
JUMP mod.main.end
LABEL mod.main.target:
I_PUSH 1
LABEL mod.main.end:
HALT
`
	prog, err := Load(source)
	require.NoError(t, err)
	require.Len(t, prog.instrs, 7)
}

func TestLoadSkipsBlankLinesAndComments(t *testing.T) {
	source := "\n# a comment\nLABEL mod.f:\n\nRET\n"
	prog, err := Load(source)
	require.NoError(t, err)
	require.Len(t, prog.instrs, 1)
}
