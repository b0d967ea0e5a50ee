package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinOpForArithmeticByType(t *testing.T) {
	op, ok := BinOpFor("add", TypeLong)
	require.True(t, ok)
	require.Equal(t, AddL64, op)

	op, ok = BinOpFor("mod", TypeInt)
	require.True(t, ok)
	require.Equal(t, ModI32, op)

	op, ok = BinOpFor("and", TypeByte)
	require.True(t, ok)
	require.Equal(t, AndB8, op)
}

func TestBinOpForStringConcatUsesAddR(t *testing.T) {
	op, ok := BinOpFor("add", TypeString)
	require.True(t, ok)
	require.Equal(t, AddR, op)
}

func TestBinOpForStringSubIsUndefined(t *testing.T) {
	_, ok := BinOpFor("sub", TypeString)
	require.False(t, ok)
}

func TestBinOpForBitwiseOnFloatIsUndefined(t *testing.T) {
	_, ok := BinOpFor("and", TypeFloat)
	require.False(t, ok)
}

func TestCmpOpForResolvesPerTypePredicate(t *testing.T) {
	op, ok := CmpOpFor("lt", TypeDouble)
	require.True(t, ok)
	require.Equal(t, CmpDLT, op)
}

func TestCmpOpForStringOnlySupportsEquality(t *testing.T) {
	op, ok := CmpOpFor("eq", TypeString)
	require.True(t, ok)
	require.Equal(t, CmpREQ, op)

	_, ok = CmpOpFor("lt", TypeString)
	require.False(t, ok)
}

func TestIsArithmeticCoversEveryTypedFamily(t *testing.T) {
	require.True(t, AddL64.IsArithmetic())
	require.True(t, SubD64.IsArithmetic())
	require.True(t, MulI32.IsArithmetic())
	require.True(t, DivB8.IsArithmetic())
	require.True(t, ModL64.IsArithmetic())
	require.False(t, AndL64.IsArithmetic())
	require.False(t, OpCall.IsArithmetic())
}

func TestIsAddOnlyTrueForAddFamily(t *testing.T) {
	require.True(t, AddR.IsAdd())
	require.False(t, SubL64.IsAdd())
}

func TestIsCompareCoversAllPredicateFamilies(t *testing.T) {
	require.True(t, CmpIEQ.IsCompare())
	require.True(t, CmpRNE.IsCompare())
	require.False(t, AddL64.IsCompare())
}

func TestOpcodeStringKnownAndUnknown(t *testing.T) {
	require.Equal(t, "ADD_L64", AddL64.String())
	require.Equal(t, "?opcode?", Opcode(-1).String())
}
