// Package vmopcode defines the flat textual VM opcode space the
// backend emits into and the vm package decodes: every opcode the
// assembled program can mention, as a string, one per line, matching
// gvm's "instruction = opcode mnemonic + operands" wire shape.
//
// Grounded on gvm/vm/bytecode.go's Bytecode enum + strToInstrMap/
// instrToStrMap idiom (built once in init()), widened from gvm's ~60
// flat opcodes into the typed per-element-width family spec.md §6
// requires: one ADD/SUB/MUL/DIV/MOD/NEG/INC/AND/OR/XOR/PUSH/LOAD/STORE/
// CE/CNE/CG/CGE/CL/CLE member per type (B/S/I/L get the full 19-member
// family; F/D drop MOD/AND/OR/XOR; R keeps only ADD/PUSH/LOAD/STORE/CE/
// CNE), mnemonics named "<T>_<OP>" (e.g. I_ADD, D_CE, B_PUSH) exactly as
// spec.md §4.0/§6 spells them.
package vmopcode

import "github.com/jcnc-org/snow/ir"

// Opcode is the VM's own instruction discriminant, decoded from the
// textual mnemonic a program's line begins with.
type Opcode int

const (
	OpNop Opcode = iota

	// Stack/register housekeeping, untyped.
	OpPop // POP
	OpDup // DUP
	OpMov // MOV <src-slot> <dst-slot>

	// Byte family.
	OpBAdd
	OpBSub
	OpBMul
	OpBDiv
	OpBMod
	OpBNeg
	OpBInc
	OpBAnd
	OpBOr
	OpBXor
	OpBPush
	OpBLoad
	OpBStore
	OpBCE
	OpBCNE
	OpBCG
	OpBCGE
	OpBCL
	OpBCLE

	// Short family.
	OpSAdd
	OpSSub
	OpSMul
	OpSDiv
	OpSMod
	OpSNeg
	OpSInc
	OpSAnd
	OpSOr
	OpSXor
	OpSPush
	OpSLoad
	OpSStore
	OpSCE
	OpSCNE
	OpSCG
	OpSCGE
	OpSCL
	OpSCLE

	// Int family.
	OpIAdd
	OpISub
	OpIMul
	OpIDiv
	OpIMod
	OpINeg
	OpIInc
	OpIAnd
	OpIOr
	OpIXor
	OpIPush
	OpILoad
	OpIStore
	OpICE
	OpICNE
	OpICG
	OpICGE
	OpICL
	OpICLE

	// Long family.
	OpLAdd
	OpLSub
	OpLMul
	OpLDiv
	OpLMod
	OpLNeg
	OpLInc
	OpLAnd
	OpLOr
	OpLXor
	OpLPush
	OpLLoad
	OpLStore
	OpLCE
	OpLCNE
	OpLCG
	OpLCGE
	OpLCL
	OpLCLE

	// Float family (no MOD/AND/OR/XOR).
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFNeg
	OpFInc
	OpFPush
	OpFLoad
	OpFStore
	OpFCE
	OpFCNE
	OpFCG
	OpFCGE
	OpFCL
	OpFCLE

	// Double family (no MOD/AND/OR/XOR).
	OpDAdd
	OpDSub
	OpDMul
	OpDDiv
	OpDNeg
	OpDInc
	OpDPush
	OpDLoad
	OpDStore
	OpDCE
	OpDCNE
	OpDCG
	OpDCGE
	OpDCL
	OpDCLE

	// Reference family: concat/move, literal push (string/bool/null/
	// array), generic slot load/store, value-equality compare.
	OpRAdd
	OpRPush
	OpRLoad
	OpRStore
	OpRCE
	OpRCNE

	// Conversions, <Src>2<Dst>.
	OpI2L
	OpI2F
	OpI2D
	OpL2I
	OpL2F
	OpL2D
	OpF2D
	OpD2F
	OpF2I
	OpD2I

	// Flow control.
	OpJump
	OpLabel
	OpCall
	OpRet
	OpHalt

	// Reference ops.
	OpIndexR // array/struct-field read
	OpIndexW // array/struct-field write
	OpArrayNew

	// System.
	OpSyscall
)

// OpKind is the operation a typed opcode performs, independent of which
// type family (B/S/I/L/F/D/R) it was declared for.
type OpKind int

const (
	KindAdd OpKind = iota
	KindSub
	KindMul
	KindDiv
	KindMod
	KindNeg
	KindInc
	KindAnd
	KindOr
	KindXor
	KindPush
	KindLoad
	KindStore
	KindCE
	KindCNE
	KindCG
	KindCGE
	KindCL
	KindCLE
)

// IsCompareKind reports whether k is one of the six comparison
// predicates, the family spec.md §4.4 says branches directly to the
// absolute target encoded in its first operand rather than pushing a
// result.
func IsCompareKind(k OpKind) bool {
	switch k {
	case KindCE, KindCNE, KindCG, KindCGE, KindCL, KindCLE:
		return true
	default:
		return false
	}
}

// opMeta records, per typed opcode, the operation it performs and the
// element type its family was declared for. Populated in init() from
// the per-family opcode lists below rather than written out by hand, so
// the (Opcode, Kind, Type) triples can never drift out of sync with the
// const block order.
type opMeta struct {
	Kind OpKind
	Type ir.ElemType
}

var opMetaTable map[Opcode]opMeta

// opcodeNames/strToOpcode mirror gvm/vm/bytecode.go's instrToStrMap/
// strToInstrMap pair.
var opcodeNames map[Opcode]string
var strToOpcode map[string]Opcode

func init() {
	fullKinds := []OpKind{
		KindAdd, KindSub, KindMul, KindDiv, KindMod, KindNeg, KindInc,
		KindAnd, KindOr, KindXor, KindPush, KindLoad, KindStore,
		KindCE, KindCNE, KindCG, KindCGE, KindCL, KindCLE,
	}
	floatKinds := []OpKind{
		KindAdd, KindSub, KindMul, KindDiv, KindNeg, KindInc,
		KindPush, KindLoad, KindStore,
		KindCE, KindCNE, KindCG, KindCGE, KindCL, KindCLE,
	}
	refKinds := []OpKind{KindAdd, KindPush, KindLoad, KindStore, KindCE, KindCNE}

	kindSuffix := map[OpKind]string{
		KindAdd: "ADD", KindSub: "SUB", KindMul: "MUL", KindDiv: "DIV", KindMod: "MOD",
		KindNeg: "NEG", KindInc: "INC", KindAnd: "AND", KindOr: "OR", KindXor: "XOR",
		KindPush: "PUSH", KindLoad: "LOAD", KindStore: "STORE",
		KindCE: "CE", KindCNE: "CNE", KindCG: "CG", KindCGE: "CGE", KindCL: "CL", KindCLE: "CLE",
	}

	type family struct {
		letter string
		typ    ir.ElemType
		ops    []Opcode
		kinds  []OpKind
	}

	families := []family{
		{"B", ir.TypeByte, []Opcode{
			OpBAdd, OpBSub, OpBMul, OpBDiv, OpBMod, OpBNeg, OpBInc, OpBAnd, OpBOr, OpBXor,
			OpBPush, OpBLoad, OpBStore, OpBCE, OpBCNE, OpBCG, OpBCGE, OpBCL, OpBCLE,
		}, fullKinds},
		{"S", ir.TypeShort, []Opcode{
			OpSAdd, OpSSub, OpSMul, OpSDiv, OpSMod, OpSNeg, OpSInc, OpSAnd, OpSOr, OpSXor,
			OpSPush, OpSLoad, OpSStore, OpSCE, OpSCNE, OpSCG, OpSCGE, OpSCL, OpSCLE,
		}, fullKinds},
		{"I", ir.TypeInt, []Opcode{
			OpIAdd, OpISub, OpIMul, OpIDiv, OpIMod, OpINeg, OpIInc, OpIAnd, OpIOr, OpIXor,
			OpIPush, OpILoad, OpIStore, OpICE, OpICNE, OpICG, OpICGE, OpICL, OpICLE,
		}, fullKinds},
		{"L", ir.TypeLong, []Opcode{
			OpLAdd, OpLSub, OpLMul, OpLDiv, OpLMod, OpLNeg, OpLInc, OpLAnd, OpLOr, OpLXor,
			OpLPush, OpLLoad, OpLStore, OpLCE, OpLCNE, OpLCG, OpLCGE, OpLCL, OpLCLE,
		}, fullKinds},
		{"F", ir.TypeFloat, []Opcode{
			OpFAdd, OpFSub, OpFMul, OpFDiv, OpFNeg, OpFInc,
			OpFPush, OpFLoad, OpFStore, OpFCE, OpFCNE, OpFCG, OpFCGE, OpFCL, OpFCLE,
		}, floatKinds},
		{"D", ir.TypeDouble, []Opcode{
			OpDAdd, OpDSub, OpDMul, OpDDiv, OpDNeg, OpDInc,
			OpDPush, OpDLoad, OpDStore, OpDCE, OpDCNE, OpDCG, OpDCGE, OpDCL, OpDCLE,
		}, floatKinds},
		{"R", ir.TypeRef, []Opcode{
			OpRAdd, OpRPush, OpRLoad, OpRStore, OpRCE, OpRCNE,
		}, refKinds},
	}

	opMetaTable = make(map[Opcode]opMeta)
	opcodeNames = make(map[Opcode]string)
	for _, fam := range families {
		for i, op := range fam.ops {
			opMetaTable[op] = opMeta{Kind: fam.kinds[i], Type: fam.typ}
			opcodeNames[op] = fam.letter + "_" + kindSuffix[fam.kinds[i]]
		}
	}

	opcodeNames[OpNop] = "NOP"
	opcodeNames[OpPop] = "POP"
	opcodeNames[OpDup] = "DUP"
	opcodeNames[OpMov] = "MOV"

	opcodeNames[OpI2L] = "I2L"
	opcodeNames[OpI2F] = "I2F"
	opcodeNames[OpI2D] = "I2D"
	opcodeNames[OpL2I] = "L2I"
	opcodeNames[OpL2F] = "L2F"
	opcodeNames[OpL2D] = "L2D"
	opcodeNames[OpF2D] = "F2D"
	opcodeNames[OpD2F] = "D2F"
	opcodeNames[OpF2I] = "F2I"
	opcodeNames[OpD2I] = "D2I"

	opcodeNames[OpJump] = "JUMP"
	opcodeNames[OpLabel] = "LABEL"
	opcodeNames[OpCall] = "CALL"
	opcodeNames[OpRet] = "RET"
	opcodeNames[OpHalt] = "HALT"

	opcodeNames[OpIndexR] = "R_INDEXR"
	opcodeNames[OpIndexW] = "R_INDEXW"
	opcodeNames[OpArrayNew] = "R_ARRNEW"

	opcodeNames[OpSyscall] = "SYSCALL"

	strToOpcode = make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		strToOpcode[name] = op
	}
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "?opcode?"
}

// FromString resolves a textual mnemonic back to its Opcode, used by
// the vm package's decoder on every non-comment, non-label program line.
func FromString(s string) (Opcode, bool) {
	op, ok := strToOpcode[s]
	return op, ok
}

// KindOf reports the operation a typed opcode performs. ok is false for
// opcodes with no type family (NOP/POP/DUP/MOV, conversions, flow,
// reference-ops, syscall).
func KindOf(op Opcode) (OpKind, bool) {
	m, ok := opMetaTable[op]
	if !ok {
		return 0, false
	}
	return m.Kind, true
}

// TypeOf reports the element type a typed opcode's family was declared
// for. ok mirrors KindOf's.
func TypeOf(op Opcode) (ir.ElemType, bool) {
	m, ok := opMetaTable[op]
	if !ok {
		return ir.TypeVoid, false
	}
	return m.Type, true
}

var opByKindType map[OpKind]map[ir.ElemType]Opcode

func init() {
	opByKindType = make(map[OpKind]map[ir.ElemType]Opcode)
	for op, m := range opMetaTable {
		byType, ok := opByKindType[m.Kind]
		if !ok {
			byType = make(map[ir.ElemType]Opcode)
			opByKindType[m.Kind] = byType
		}
		byType[m.Type] = op
	}
}

// OpcodeFor resolves the opcode for a given operation at a given
// element type, the inverse of KindOf/TypeOf — used by the backend to
// pick the right typed PUSH/LOAD/STORE for a register's own type.
func OpcodeFor(kind OpKind, t ir.ElemType) (Opcode, bool) {
	byType, ok := opByKindType[kind]
	if !ok {
		return 0, false
	}
	op, ok := byType[t]
	return op, ok
}

// NumOperands reports how many whitespace-separated operand tokens
// follow the mnemonic for op, mirroring gvm/vm/bytecode.go's
// NumRequiredOpArgs table.
func NumOperands(op Opcode) int {
	if kind, ok := KindOf(op); ok {
		switch kind {
		case KindPush, KindLoad, KindStore:
			return 1 // literal, or slot index
		case KindCE, KindCNE, KindCG, KindCGE, KindCL, KindCLE:
			return 1 // absolute branch target
		default:
			return 0 // operates on already-loaded operand-stack values
		}
	}
	switch op {
	case OpNop, OpPop, OpDup, OpRet, OpHalt, OpLabel:
		return 0
	case OpMov:
		return 2
	case OpJump:
		return 1
	case OpCall, OpIndexR, OpIndexW, OpArrayNew, OpSyscall:
		return -1 // variadic, array/call-arg lists
	case OpI2L, OpI2F, OpI2D, OpL2I, OpL2F, OpL2D, OpF2D, OpD2F, OpF2I, OpD2I:
		return 0 // operates on the top of the operand stack in place
	default:
		return 0
	}
}
