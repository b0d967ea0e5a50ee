package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcnc-org/snow/ir"
)

func TestParseLiteralOperandScalars(t *testing.T) {
	v, err := parseLiteralOperand([]string{"42"})
	require.NoError(t, err)
	require.Equal(t, ir.TypeInt, v.Type)
	require.Equal(t, int64(42), v.Int)

	v, err = parseLiteralOperand([]string{"3.5"})
	require.NoError(t, err)
	require.Equal(t, ir.TypeDouble, v.Type)
	require.Equal(t, 3.5, v.Float)

	v, err = parseLiteralOperand([]string{"true"})
	require.NoError(t, err)
	require.True(t, v.Bool)

	v, err = parseLiteralOperand([]string{"null"})
	require.NoError(t, err)
	require.Equal(t, ir.TypeRef, v.Type)
}

func TestParseNumberLiteralSuffixes(t *testing.T) {
	v, rest, err := parseNumberLiteral("7b")
	require.NoError(t, err)
	require.Equal(t, ir.TypeByte, v.Type)
	require.Equal(t, int64(7), v.Int)
	require.Equal(t, "", rest)

	v, _, err = parseNumberLiteral("7s")
	require.NoError(t, err)
	require.Equal(t, ir.TypeShort, v.Type)

	v, _, err = parseNumberLiteral("7")
	require.NoError(t, err)
	require.Equal(t, ir.TypeInt, v.Type)

	v, _, err = parseNumberLiteral("7L")
	require.NoError(t, err)
	require.Equal(t, ir.TypeLong, v.Type)
	require.Equal(t, int64(7), v.Int)

	v, _, err = parseNumberLiteral("2.5f")
	require.NoError(t, err)
	require.Equal(t, ir.TypeFloat, v.Type)
	require.Equal(t, 2.5, v.Float)

	v, _, err = parseNumberLiteral("2.5")
	require.NoError(t, err)
	require.Equal(t, ir.TypeDouble, v.Type)

	v, _, err = parseNumberLiteral("2d")
	require.NoError(t, err)
	require.Equal(t, ir.TypeDouble, v.Type)
	require.Equal(t, 2.0, v.Float)
}

func TestParseTypedLiteralBareNumber(t *testing.T) {
	v, err := parseTypedLiteral(ir.TypeInt, []string{"5"})
	require.NoError(t, err)
	require.Equal(t, ir.TypeInt, v.Type)
	require.Equal(t, int64(5), v.Int)

	v, err = parseTypedLiteral(ir.TypeDouble, []string{"5"})
	require.NoError(t, err)
	require.Equal(t, ir.TypeDouble, v.Type)
	require.Equal(t, 5.0, v.Float)
}

func TestParseLiteralOperandString(t *testing.T) {
	v, err := parseLiteralOperand([]string{`"hello"`})
	require.NoError(t, err)
	require.Equal(t, "hello", v.Str)
}

func TestParseLiteralOperandArrayLiteral(t *testing.T) {
	v, err := parseLiteralOperand([]string{"[1,", "2,", "3]"})
	require.NoError(t, err)
	require.Equal(t, ir.TypeList, v.Type)
	require.Len(t, v.List, 3)
	require.Equal(t, int64(2), v.List[1].Int)
}

func TestParseLiteralOperandNestedArray(t *testing.T) {
	v, err := parseLiteralOperand([]string{"[[1,", "2],", "[3]]"})
	require.NoError(t, err)
	require.Len(t, v.List, 2)
	require.Equal(t, ir.TypeList, v.List[0].Type)
}

func TestParseLiteralOperandEmptyIsError(t *testing.T) {
	_, err := parseLiteralOperand(nil)
	require.Error(t, err)
}

func TestParseLiteralOperandUnterminatedStringIsError(t *testing.T) {
	_, err := parseLiteralOperand([]string{`"oops`})
	require.Error(t, err)
}

func TestParseLiteralOperandTrailingInputIsError(t *testing.T) {
	_, err := parseLiteralOperand([]string{"1", "2"})
	require.Error(t, err)
}
