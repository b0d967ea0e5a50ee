package vmopcode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcnc-org/snow/ir"
)

func TestFromIRResolvesArithmeticFamily(t *testing.T) {
	op, ok := FromIR(ir.AddL64)
	require.True(t, ok)
	require.Equal(t, OpLAdd, op)
}

func TestFromIRResolvesComparisonFamily(t *testing.T) {
	op, ok := FromIR(ir.CmpIEQ)
	require.True(t, ok)
	require.Equal(t, OpICE, op)

	op, ok = FromIR(ir.CmpREQ)
	require.True(t, ok)
	require.Equal(t, OpRCE, op)
}

func TestFromIRStructuralOpcodeHasNoEntry(t *testing.T) {
	_, ok := FromIR(ir.OpCall)
	require.False(t, ok)
}

func TestConversionForIdentityNeedsNone(t *testing.T) {
	_, ok := ConversionFor(ir.TypeLong, ir.TypeLong)
	require.False(t, ok)
}

func TestConversionForWidening(t *testing.T) {
	op, ok := ConversionFor(ir.TypeInt, ir.TypeDouble)
	require.True(t, ok)
	require.Equal(t, OpI2D, op)
}

func TestConversionForUndefinedPair(t *testing.T) {
	_, ok := ConversionFor(ir.TypeString, ir.TypeDouble)
	require.False(t, ok)
}
