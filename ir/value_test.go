package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWidenPicksWiderRank(t *testing.T) {
	require.Equal(t, TypeDouble, Widen(TypeInt, TypeDouble))
	require.Equal(t, TypeLong, Widen(TypeLong, TypeByte))
}

func TestWidenReferenceTypesActAsTheirOwnTop(t *testing.T) {
	require.Equal(t, TypeRef, Widen(TypeString, TypeInt))
	require.Equal(t, TypeRef, Widen(TypeInt, TypeRef))
}

func TestElemTypeFromNameKnownAndUnknown(t *testing.T) {
	require.Equal(t, TypeLong, ElemTypeFromName("int64"))
	require.Equal(t, TypeVoid, ElemTypeFromName(""))
	require.Equal(t, TypeRef, ElemTypeFromName("Widget"))
}

func TestIsZeroNumericAcrossTypes(t *testing.T) {
	require.True(t, IntConst(TypeLong, 0).IsZeroNumeric())
	require.False(t, IntConst(TypeLong, 1).IsZeroNumeric())
	require.True(t, FloatConst(TypeDouble, 0).IsZeroNumeric())
	require.False(t, StringConst("").IsZeroNumeric())
}

func TestRegisterAndLabelString(t *testing.T) {
	fn := NewFunction("mod.f", TypeVoid)
	r := fn.NewRegister()
	require.Equal(t, "%0", r.String())

	l := fn.NewLabel("cond")
	require.Contains(t, l.String(), "mod.f.cond.")
}
