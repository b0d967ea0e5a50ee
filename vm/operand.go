package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jcnc-org/snow/ir"
)

func intArg(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: missing operand %d", ErrInvalidOperand, i)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOperand, err)
	}
	return n, nil
}

// parseTypedLiteral decodes a typed <T>_PUSH operand (a bare number,
// with no suffix letter since the opcode itself already carries the
// type) into a Value of exactly that type, per spec.md §4.4's "<T>_PUSH
// handlers parse by type prefix."
func parseTypedLiteral(t ir.ElemType, args []string) (Value, error) {
	if len(args) == 0 {
		return Value{}, fmt.Errorf("%w: %s_PUSH requires an operand", ErrInvalidOperand, t)
	}
	text := strings.Join(args, " ")
	if t == ir.TypeFloat || t == ir.TypeDouble {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrInvalidOperand, err)
		}
		return Value{Type: t, Float: f}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidOperand, err)
	}
	return Value{Type: t, Int: n}, nil
}

// parseLiteralOperand decodes an R_PUSH operand back into a Value. The
// backend always emits one of: a quoted string, "true"/"false", a
// suffixed or bare number, "null", or a bracketed array literal whose
// elements recursively follow the same grammar — the same
// recursive-descent shape spec.md §6 describes for R_PUSH [...] array
// literals.
func parseLiteralOperand(args []string) (Value, error) {
	if len(args) == 0 {
		return Value{}, fmt.Errorf("%w: R_PUSH requires an operand", ErrInvalidOperand)
	}
	text := strings.Join(args, " ")
	v, rest, err := parseLiteral(text)
	if err != nil {
		return Value{}, err
	}
	if strings.TrimSpace(rest) != "" {
		return Value{}, fmt.Errorf("%w: trailing input after literal: %q", ErrInvalidOperand, rest)
	}
	return v, nil
}

func parseLiteral(text string) (Value, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Value{}, "", fmt.Errorf("%w: empty literal", ErrInvalidOperand)
	}
	switch {
	case text[0] == '"':
		return parseStringLiteral(text)
	case text[0] == '[':
		return parseArrayLiteral(text)
	case strings.HasPrefix(text, "true"):
		return Value{Type: ir.TypeBool, Bool: true}, text[len("true"):], nil
	case strings.HasPrefix(text, "false"):
		return Value{Type: ir.TypeBool, Bool: false}, text[len("false"):], nil
	case strings.HasPrefix(text, "null"):
		return Value{Type: ir.TypeRef, Ref: 0}, text[len("null"):], nil
	default:
		return parseNumberLiteral(text)
	}
}

func parseStringLiteral(text string) (Value, string, error) {
	// text[0] == '"'; find the matching unescaped closing quote.
	for i := 1; i < len(text); i++ {
		if text[i] == '\\' {
			i++
			continue
		}
		if text[i] == '"' {
			unquoted, err := strconv.Unquote(text[:i+1])
			if err != nil {
				return Value{}, "", fmt.Errorf("%w: bad string literal: %v", ErrInvalidOperand, err)
			}
			return Value{Type: ir.TypeString, Str: unquoted}, text[i+1:], nil
		}
	}
	return Value{}, "", fmt.Errorf("%w: unterminated string literal", ErrInvalidOperand)
}

// parseNumberLiteral parses one numeric array-literal atom per spec.md
// §6's suffix grammar: optional sign, a digit run with an optional '.'
// fraction, then an optional single trailing type suffix — L (Long), s
// (Short), b (Byte), f (Float), d (explicit Double). With no suffix, a
// fractional literal (containing '.') defaults to Double and a whole
// literal defaults to Int, preserving each atom's own width and
// float-vs-double distinction instead of collapsing every number to one
// catch-all type.
func parseNumberLiteral(text string) (Value, string, error) {
	i := 0
	if i < len(text) && (text[i] == '-' || text[i] == '+') {
		i++
	}
	start := i
	hasDot := false
	for i < len(text) && (isDigit(text[i]) || text[i] == '.') {
		if text[i] == '.' {
			hasDot = true
		}
		i++
	}
	if i == start {
		return Value{}, "", fmt.Errorf("%w: expected a number at %q", ErrInvalidOperand, text)
	}
	numText := text[:i]
	rest := text[i:]

	t := ir.TypeInt
	if hasDot {
		t = ir.TypeDouble
	}
	if len(rest) > 0 {
		switch rest[0] {
		case 'L':
			t = ir.TypeLong
			rest = rest[1:]
		case 's':
			t = ir.TypeShort
			rest = rest[1:]
		case 'b':
			t = ir.TypeByte
			rest = rest[1:]
		case 'f':
			t = ir.TypeFloat
			rest = rest[1:]
		case 'd':
			t = ir.TypeDouble
			rest = rest[1:]
		}
	}

	if t == ir.TypeFloat || t == ir.TypeDouble {
		f, err := strconv.ParseFloat(numText, 64)
		if err != nil {
			return Value{}, "", fmt.Errorf("%w: %v", ErrInvalidOperand, err)
		}
		return Value{Type: t, Float: f}, rest, nil
	}
	n, err := strconv.ParseInt(numText, 10, 64)
	if err != nil {
		return Value{}, "", fmt.Errorf("%w: %v", ErrInvalidOperand, err)
	}
	return Value{Type: t, Int: n}, rest, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// parseArrayLiteral recursively parses "[e0, e1, ...]", allowing nested
// array literals as elements, per spec.md §6's R_PUSH grammar.
func parseArrayLiteral(text string) (Value, string, error) {
	if text[0] != '[' {
		return Value{}, "", fmt.Errorf("%w: expected '[' at %q", ErrInvalidOperand, text)
	}
	rest := strings.TrimSpace(text[1:])
	var elems []Value
	if strings.HasPrefix(rest, "]") {
		return Value{Type: ir.TypeList, List: elems}, rest[1:], nil
	}
	for {
		v, r, err := parseLiteral(rest)
		if err != nil {
			return Value{}, "", err
		}
		elems = append(elems, v)
		r = strings.TrimSpace(r)
		if strings.HasPrefix(r, ",") {
			rest = strings.TrimSpace(r[1:])
			continue
		}
		if strings.HasPrefix(r, "]") {
			return Value{Type: ir.TypeList, List: elems}, r[1:], nil
		}
		return Value{}, "", fmt.Errorf("%w: expected ',' or ']' at %q", ErrInvalidOperand, r)
	}
}
