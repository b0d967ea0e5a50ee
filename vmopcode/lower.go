package vmopcode

import "github.com/jcnc-org/snow/ir"

// irToVM maps every ir.Opcode onto its vmopcode.Opcode counterpart. The
// two enums are deliberately kept in the same per-type-family order so
// this table reads as a near-identity transposition — the backend
// consults it once per BinOp/UnaryOp/CmpJump instruction it lowers.
var irToVM = map[ir.Opcode]Opcode{
	ir.AddB8: OpBAdd, ir.AddS16: OpSAdd, ir.AddI32: OpIAdd, ir.AddL64: OpLAdd,
	ir.AddF32: OpFAdd, ir.AddD64: OpDAdd, ir.AddR: OpRAdd,

	ir.SubB8: OpBSub, ir.SubS16: OpSSub, ir.SubI32: OpISub, ir.SubL64: OpLSub,
	ir.SubF32: OpFSub, ir.SubD64: OpDSub,

	ir.MulB8: OpBMul, ir.MulS16: OpSMul, ir.MulI32: OpIMul, ir.MulL64: OpLMul,
	ir.MulF32: OpFMul, ir.MulD64: OpDMul,

	ir.DivB8: OpBDiv, ir.DivS16: OpSDiv, ir.DivI32: OpIDiv, ir.DivL64: OpLDiv,
	ir.DivF32: OpFDiv, ir.DivD64: OpDDiv,

	ir.ModB8: OpBMod, ir.ModS16: OpSMod, ir.ModI32: OpIMod, ir.ModL64: OpLMod,

	ir.NegB8: OpBNeg, ir.NegS16: OpSNeg, ir.NegI32: OpINeg, ir.NegL64: OpLNeg,
	ir.NegF32: OpFNeg, ir.NegD64: OpDNeg,

	ir.IncB8: OpBInc, ir.IncS16: OpSInc, ir.IncI32: OpIInc, ir.IncL64: OpLInc,
	ir.IncF32: OpFInc, ir.IncD64: OpDInc,

	ir.AndB8: OpBAnd, ir.AndS16: OpSAnd, ir.AndI32: OpIAnd, ir.AndL64: OpLAnd,
	ir.OrB8: OpBOr, ir.OrS16: OpSOr, ir.OrI32: OpIOr, ir.OrL64: OpLOr,
	ir.XorB8: OpBXor, ir.XorS16: OpSXor, ir.XorI32: OpIXor, ir.XorL64: OpLXor,

	ir.CmpIEQ: OpICE, ir.CmpINE: OpICNE, ir.CmpILT: OpICL, ir.CmpIGT: OpICG,
	ir.CmpILE: OpICLE, ir.CmpIGE: OpICGE,

	ir.CmpLEQ: OpLCE, ir.CmpLNE: OpLCNE, ir.CmpLLT: OpLCL, ir.CmpLGT: OpLCG,
	ir.CmpLLE: OpLCLE, ir.CmpLGE: OpLCGE,

	ir.CmpFEQ: OpFCE, ir.CmpFNE: OpFCNE, ir.CmpFLT: OpFCL, ir.CmpFGT: OpFCG,
	ir.CmpFLE: OpFCLE, ir.CmpFGE: OpFCGE,

	ir.CmpDEQ: OpDCE, ir.CmpDNE: OpDCNE, ir.CmpDLT: OpDCL, ir.CmpDGT: OpDCG,
	ir.CmpDLE: OpDCLE, ir.CmpDGE: OpDCGE,

	ir.CmpBEQ: OpBCE, ir.CmpBNE: OpBCNE, ir.CmpBLT: OpBCL, ir.CmpBGT: OpBCG,
	ir.CmpBLE: OpBCLE, ir.CmpBGE: OpBCGE,

	ir.CmpSEQ: OpSCE, ir.CmpSNE: OpSCNE, ir.CmpSLT: OpSCL, ir.CmpSGT: OpSCG,
	ir.CmpSLE: OpSCLE, ir.CmpSGE: OpSCGE,

	ir.CmpREQ: OpRCE, ir.CmpRNE: OpRCNE,
}

// FromIR resolves the VM opcode corresponding to an ir.Opcode. ok is
// false for the IR's purely-structural opcodes (CONST/CALL/RET/JUMP/
// LABEL/CMP_JUMP), which the backend lowers through dedicated emission
// paths rather than a table lookup since their operand shape differs
// per instruction kind.
func FromIR(op ir.Opcode) (Opcode, bool) {
	vop, ok := irToVM[op]
	return vop, ok
}

// ConversionFor resolves the widening/narrowing opcode needed to move a
// value already on the operand stack from "from" to "to", per spec.md
// §4.3's promotion table. ok is false when no conversion is needed
// (from == to) or when the pair has no defined conversion (e.g.
// anything to/from TypeRef/TypeString).
func ConversionFor(from, to ir.ElemType) (Opcode, bool) {
	if from == to {
		return OpNop, false
	}
	// Byte and short values carry their payload in the same Int field as
	// int, so the int conversions widen them too.
	if from == ir.TypeByte || from == ir.TypeShort {
		from = ir.TypeInt
	}
	switch {
	case from == ir.TypeInt && to == ir.TypeLong:
		return OpI2L, true
	case from == ir.TypeInt && to == ir.TypeFloat:
		return OpI2F, true
	case from == ir.TypeInt && to == ir.TypeDouble:
		return OpI2D, true
	case from == ir.TypeLong && to == ir.TypeInt:
		return OpL2I, true
	case from == ir.TypeLong && to == ir.TypeFloat:
		return OpL2F, true
	case from == ir.TypeLong && to == ir.TypeDouble:
		return OpL2D, true
	case from == ir.TypeFloat && to == ir.TypeDouble:
		return OpF2D, true
	case from == ir.TypeDouble && to == ir.TypeFloat:
		return OpD2F, true
	case from == ir.TypeFloat && to == ir.TypeInt:
		return OpF2I, true
	case from == ir.TypeDouble && to == ir.TypeInt:
		return OpD2I, true
	default:
		return OpNop, false
	}
}
