package ir

import "fmt"

// Instruction is one three-address SSA instruction. Concrete variants
// below mirror the table in spec.md §3: a value-producing instruction
// defines exactly one Register; LABEL, JUMP, RET, and CMP-JUMP define
// none.
type Instruction interface {
	fmt.Stringer
	// Defines returns the register this instruction assigns, and false
	// for instructions with no result (Label, Jump, Return, CmpJump).
	Defines() (Register, bool)
}

// LoadConst is `%dest = CONST <value>`.
type LoadConst struct {
	Dest  Register
	Value Const
}

func (i LoadConst) Defines() (Register, bool) { return i.Dest, true }
func (i LoadConst) String() string {
	return fmt.Sprintf("%s = CONST %s", i.Dest, formatConst(i.Value))
}

// BinOp is `%dest = OP %lhs, %rhs`, covering arithmetic and bitwise
// families. Op encodes both the operation and the promoted element
// type, per ir.BinOpFor.
type BinOp struct {
	Dest     Register
	Op       Opcode
	Lhs, Rhs Register
}

func (i BinOp) Defines() (Register, bool) { return i.Dest, true }
func (i BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Dest, i.Op, i.Lhs, i.Rhs)
}

// UnaryOp is `%dest = OP %src` (negation, bitwise-not-as-logical-not,
// increment).
type UnaryOp struct {
	Dest Register
	Op   Opcode
	Src  Register
}

func (i UnaryOp) Defines() (Register, bool) { return i.Dest, true }
func (i UnaryOp) String() string {
	return fmt.Sprintf("%s = %s %s", i.Dest, i.Op, i.Src)
}

// Call is `%dest = CALL <name>, %arg0, ...`. Dest is the zero Register
// when Void is true (the call's value is discarded/there is none).
type Call struct {
	Dest   Register
	Void   bool
	Target string
	Args   []Register
}

func (i Call) Defines() (Register, bool) {
	if i.Void {
		return Register{}, false
	}
	return i.Dest, true
}

func (i Call) String() string {
	args := ""
	for idx, a := range i.Args {
		if idx > 0 {
			args += ", "
		}
		args += a.String()
	}
	if i.Void {
		return fmt.Sprintf("CALL %s, %s", i.Target, args)
	}
	return fmt.Sprintf("%s = CALL %s, %s", i.Dest, i.Target, args)
}

// LabelInstr is `LABEL L:`, a branch target with no runtime effect.
type LabelInstr struct {
	Name Label
}

func (i LabelInstr) Defines() (Register, bool) { return Register{}, false }
func (i LabelInstr) String() string             { return fmt.Sprintf("LABEL %s:", i.Name) }

// Jump is an unconditional `JUMP L`.
type Jump struct {
	Target Label
}

func (i Jump) Defines() (Register, bool) { return Register{}, false }
func (i Jump) String() string            { return fmt.Sprintf("JUMP %s", i.Target) }

// CmpJump is `IF-CMP-<op> %a, %b GOTO L`: evaluate the comparison and
// branch to Target when true, otherwise fall through. Op is one of the
// CMP_* family from ir.CmpOpFor.
type CmpJump struct {
	Op     Opcode
	Lhs, Rhs Register
	Target Label
}

func (i CmpJump) Defines() (Register, bool) { return Register{}, false }
func (i CmpJump) String() string {
	return fmt.Sprintf("IF-%s %s, %s GOTO %s", i.Op, i.Lhs, i.Rhs, i.Target)
}

// Return is `RET` (void) or `RET %v`.
type Return struct {
	Void  bool
	Value Register
}

func (i Return) Defines() (Register, bool) { return Register{}, false }
func (i Return) String() string {
	if i.Void {
		return "RET"
	}
	return fmt.Sprintf("RET %s", i.Value)
}

func formatConst(c Const) string {
	switch c.Type {
	case TypeBool:
		return fmt.Sprintf("%t", c.Bool)
	case TypeString:
		return fmt.Sprintf("%q", c.String)
	case TypeFloat, TypeDouble:
		return fmt.Sprintf("%s(%v)", c.Type, c.Float)
	case TypeList:
		s := c.ListElemType.String() + "["
		for idx, e := range c.List {
			if idx > 0 {
				s += ", "
			}
			s += formatConst(e)
		}
		return s + "]"
	default:
		return fmt.Sprintf("%s(%d)", c.Type, c.Int)
	}
}
