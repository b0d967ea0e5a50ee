// Package backend turns a fully built ir.Program into the VM's textual
// program form: one flat instruction stream per function, addressed by
// symbolic labels the vm package's loader resolves the same two-pass
// way gvm/vm/compile.go resolves its own labels.
//
// Grounded directly on CompileSourceFromBuffer's two-pass shape
// (preprocess-and-collect, then resolve-and-emit) — here the "source"
// being compiled is already-typed IR rather than raw text, so the
// preprocess pass is a peephole scan instead of a label regex scan, but
// the second pass still only fires once every label this function
// could reference has been seen.
package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/jcnc-org/snow/ir"
	"github.com/jcnc-org/snow/vmopcode"
)

// Lower compiles every function in prog into the VM's textual program
// form and concatenates them, in program order, into one linear
// listing ready for vm.Load.
func Lower(prog *ir.Program, logger hclog.Logger) (string, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	log := logger.Named("backend")

	var b strings.Builder
	var errs *multierror.Error
	labels := map[string]bool{}
	var referenced []labelRef
	for _, fn := range prog.Functions() {
		log.Debug("lowering function", "name", fn.Name, "registers", fn.NumRegisters())
		text, err := lowerFunction(fn)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("backend: function %s: %w", fn.Name, err))
			continue
		}
		collectLabelsAndRefs(fn.Name, text, labels, &referenced)
		b.WriteString(text)
		b.WriteString("\n")
	}
	if err := errs.ErrorOrNil(); err != nil {
		return "", err
	}

	// Second pass: every JUMP/compare-branch/CALL target must resolve to
	// a label defined somewhere in the program — the same "labels must
	// all resolve by the time the whole buffer has been scanned" check
	// CompileSourceFromBuffer performs once its preprocess pass finishes
	// collecting every label in the buffer.
	for _, ref := range referenced {
		if intrinsicNames[ref.target] {
			continue
		}
		if !labels[ref.target] {
			errs = multierror.Append(errs, fmt.Errorf("backend: function %s: unresolved label %q", ref.inFunc, ref.target))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return "", err
	}
	return b.String(), nil
}

type labelRef struct {
	inFunc string
	target string
}

// intrinsicNames are CALL targets the VM engine itself implements
// (struct/array indexing, array allocation) rather than functions the
// IR defines a body for, so the label fix-up pass must not flag them
// as unresolved.
var intrinsicNames = map[string]bool{
	"__index_r":   true,
	"__index_w":   true,
	"__array_new": true,
}

// collectLabelsAndRefs scans one function's already-lowered text for
// LABEL definitions (added to labels) and JUMP/compare-branch/CALL
// targets (appended to referenced for the second pass to check). A
// compare-branch line is recognized by its mnemonic's OpKind rather
// than a hardcoded list, since every typed family (B/S/I/L/F/D/R)
// contributes six of them.
func collectLabelsAndRefs(fnName, text string, labels map[string]bool, referenced *[]labelRef) {
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "LABEL ") {
			name := strings.TrimSuffix(strings.TrimPrefix(line, "LABEL "), ":")
			labels[name] = true
			continue
		}
		fields := strings.Fields(line)
		op, ok := vmopcode.FromString(fields[0])
		if !ok {
			continue
		}
		switch op {
		case vmopcode.OpJump:
			if len(fields) > 1 {
				*referenced = append(*referenced, labelRef{inFunc: fnName, target: fields[1]})
			}
		case vmopcode.OpCall:
			if len(fields) > 1 {
				*referenced = append(*referenced, labelRef{inFunc: fnName, target: fields[1]})
			}
		default:
			if kind, ok := vmopcode.KindOf(op); ok && vmopcode.IsCompareKind(kind) && len(fields) > 1 {
				*referenced = append(*referenced, labelRef{inFunc: fnName, target: fields[1]})
			}
		}
	}
}

type emitter struct {
	fn      *ir.Function
	slots   *slotAllocator
	out     strings.Builder
	isEntry bool
	labelSeq int
	// zeroFoldedAt marks the index of a LoadConst instruction that the
	// peephole pass folded into the following BinOp's MOV form; the
	// main emission loop skips these indices entirely.
	zeroFoldedAt map[int]bool
}

// isEntryFunction reports whether fn is the module-qualified "main"
// entrypoint — the one function whose RET spec.md §4.3/§8 say must
// surface as HALT so the root frame's result stays inspectable once
// the program stops.
func isEntryFunction(name string) bool {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:] == "main"
	}
	return name == "main"
}

func lowerFunction(fn *ir.Function) (string, error) {
	e := &emitter{fn: fn, slots: newSlotAllocator(fn), isEntry: isEntryFunction(fn.Name), zeroFoldedAt: make(map[int]bool)}
	for _, instr := range fn.Body {
		if d, ok := instr.Defines(); ok {
			e.slots.assign(d)
		}
	}
	e.findPeepholes()

	e.line("LABEL %s:", fn.Name)
	var errs *multierror.Error
	for i, instr := range fn.Body {
		if e.zeroFoldedAt[i] {
			continue
		}
		if err := e.emit(i, instr); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return "", err
	}
	return e.out.String(), nil
}

// findPeepholes recognizes the exact "LoadConst zero; BinOp Add
// dest,src,zero" shape irbuilder's emitMove always produces and marks
// the LoadConst for deletion, rewriting the BinOp into a plain MOV at
// emission time. This is the `ADD_T zero x -> MOV` peephole spec.md
// §4.3/§8 names.
func (e *emitter) findPeepholes() {
	for i := 0; i+1 < len(e.fn.Body); i++ {
		lc, ok := e.fn.Body[i].(ir.LoadConst)
		if !ok || !lc.Value.IsZeroNumeric() {
			continue
		}
		bin, ok := e.fn.Body[i+1].(ir.BinOp)
		if !ok || !bin.Op.IsAdd() || bin.Rhs != lc.Dest {
			continue
		}
		e.zeroFoldedAt[i] = true
	}
}

func (e *emitter) line(format string, args ...any) {
	fmt.Fprintf(&e.out, format+"\n", args...)
}

func (e *emitter) emit(i int, instr ir.Instruction) error {
	switch ins := instr.(type) {
	case ir.LoadConst:
		return e.emitLoadConst(ins)
	case ir.BinOp:
		if i > 0 && e.isFoldedAdd(i, ins) {
			e.line("MOV %d %d", e.slots.slot(ins.Lhs), e.slots.slot(ins.Dest))
			return nil
		}
		return e.emitBinOp(ins)
	case ir.UnaryOp:
		return e.emitUnaryOp(ins)
	case ir.Call:
		return e.emitCall(ins)
	case ir.LabelInstr:
		e.line("LABEL %s:", ins.Name)
		return nil
	case ir.Jump:
		e.line("JUMP %s", ins.Target)
		return nil
	case ir.CmpJump:
		return e.emitCmpJump(ins)
	case ir.Return:
		return e.emitReturn(ins)
	default:
		return fmt.Errorf("backend: unsupported instruction type %T", instr)
	}
}

// isFoldedAdd reports whether the BinOp at index i is the second half
// of a peephole pair whose first half (the zero LoadConst immediately
// before it) was already marked for deletion.
func (e *emitter) isFoldedAdd(i int, ins ir.BinOp) bool {
	return e.zeroFoldedAt[i-1]
}

// slotFamily collapses an element type down to the opcode family that
// handles it: the six numeric widths keep their own identity, every
// other type (bool/string/list/ref) shares the reference family.
func slotFamily(t ir.ElemType) ir.ElemType {
	switch t {
	case ir.TypeByte, ir.TypeShort, ir.TypeInt, ir.TypeLong, ir.TypeFloat, ir.TypeDouble:
		return t
	default:
		return ir.TypeRef
	}
}

// typeOf looks up a register's own recorded element type, falling back
// to TypeLong for the (theoretically unreachable, since every register
// creation site in irbuilder annotates its type) case where none was
// ever set.
func (e *emitter) typeOf(r ir.Register) ir.ElemType {
	if t, ok := e.fn.RegisterType(r); ok {
		return t
	}
	return ir.TypeLong
}

func (e *emitter) freshLabel(purpose string) string {
	e.labelSeq++
	return fmt.Sprintf("%s.%s.%d", e.fn.Name, purpose, e.labelSeq)
}

// loadOperand emits a typed LOAD for r followed by a conversion if r's
// own type differs from the promoted type t this operand is about to
// be used at, per spec.md §4.3's per-operand widening rule. The
// reference family is the one exception: AddR/CE/CNE always operate on
// R_LOAD regardless of the operand's own recorded type, since the
// reference opcodes dispatch on the runtime Value's own tag rather than
// on any statically promoted type.
func (e *emitter) loadOperand(r ir.Register, t ir.ElemType) {
	if t == ir.TypeRef {
		e.line("%s %d", vmopcode.OpRLoad, e.slots.slot(r))
		return
	}
	opType := slotFamily(e.typeOf(r))
	loadOp, ok := vmopcode.OpcodeFor(vmopcode.KindLoad, opType)
	if !ok {
		loadOp = vmopcode.OpRLoad
	}
	e.line("%s %d", loadOp, e.slots.slot(r))
	if conv, ok := vmopcode.ConversionFor(opType, t); ok {
		e.line("%s", conv)
	}
}

func (e *emitter) storeResult(r ir.Register, t ir.ElemType) {
	if t == ir.TypeRef {
		e.line("%s %d", vmopcode.OpRStore, e.slots.slot(r))
		return
	}
	storeOp, ok := vmopcode.OpcodeFor(vmopcode.KindStore, t)
	if !ok {
		storeOp = vmopcode.OpRStore
	}
	e.line("%s %d", storeOp, e.slots.slot(r))
}

func (e *emitter) emitLoadConst(ins ir.LoadConst) error {
	fam := slotFamily(ins.Value.Type)
	pushOp, ok := vmopcode.OpcodeFor(vmopcode.KindPush, fam)
	if !ok {
		pushOp = vmopcode.OpRPush
	}
	switch fam {
	case ir.TypeRef:
		e.line("%s %s", pushOp, formatLiteral(ins.Value))
	case ir.TypeFloat, ir.TypeDouble:
		e.line("%s %v", pushOp, ins.Value.Float)
	default:
		e.line("%s %d", pushOp, ins.Value.Int)
	}
	e.storeResult(ins.Dest, fam)
	return nil
}

// isCompareKind reports whether op belongs to one of the six comparison
// families, which branch directly to a target rather than producing a
// stack value — emitBinOp needs this to tell a used-as-value comparison
// apart from ordinary arithmetic.
func isCompareKind(k vmopcode.OpKind) bool { return vmopcode.IsCompareKind(k) }

func (e *emitter) emitBinOp(ins ir.BinOp) error {
	op, ok := vmopcode.FromIR(ins.Op)
	if !ok {
		return fmt.Errorf("backend: no VM opcode for IR opcode %s", ins.Op)
	}
	kind, _ := vmopcode.KindOf(op)
	t, _ := vmopcode.TypeOf(op)

	if isCompareKind(kind) {
		return e.emitCompareValue(ins, op, t)
	}

	e.loadOperand(ins.Lhs, t)
	e.loadOperand(ins.Rhs, t)
	e.line("%s", op)
	e.storeResult(ins.Dest, t)
	return nil
}

// emitCompareValue materializes a comparison used as an expression
// value (as opposed to ir.CmpJump's direct control-flow form) into the
// push-0/push-1-around-a-branch dance spec.md §8's scenario names: load
// both operands, branch to a fresh "true" label on the predicate, push
// 0 and jump past, otherwise land on "true" and push 1, then store
// either way. The materialized 0/1 is pushed through the comparison's
// own promoted family (numeric T, or the reference family's bool
// literal for R_CE/R_CNE) rather than a dedicated boolean opcode.
func (e *emitter) emitCompareValue(ins ir.BinOp, op vmopcode.Opcode, t ir.ElemType) error {
	e.loadOperand(ins.Lhs, t)
	e.loadOperand(ins.Rhs, t)
	trueLabel := e.freshLabel("cmp_true")
	endLabel := e.freshLabel("cmp_end")
	e.line("%s %s", op, trueLabel)
	e.pushBranchConst(t, false)
	e.line("JUMP %s", endLabel)
	e.line("LABEL %s:", trueLabel)
	e.pushBranchConst(t, true)
	e.line("LABEL %s:", endLabel)
	e.storeResult(ins.Dest, t)
	return nil
}

func (e *emitter) pushBranchConst(t ir.ElemType, v bool) {
	n := 0
	if v {
		n = 1
	}
	if t == ir.TypeRef {
		e.line("%s %t", vmopcode.OpRPush, v)
		return
	}
	pushOp, ok := vmopcode.OpcodeFor(vmopcode.KindPush, t)
	if !ok {
		pushOp = vmopcode.OpIPush
	}
	e.line("%s %d", pushOp, n)
}

func (e *emitter) emitUnaryOp(ins ir.UnaryOp) error {
	op, ok := vmopcode.FromIR(ins.Op)
	if !ok {
		return fmt.Errorf("backend: no VM opcode for IR opcode %s", ins.Op)
	}
	t, _ := vmopcode.TypeOf(op)
	e.loadOperand(ins.Src, t)
	e.line("%s", op)
	e.storeResult(ins.Dest, t)
	return nil
}

func (e *emitter) emitCall(ins ir.Call) error {
	for _, a := range ins.Args {
		at := slotFamily(e.typeOf(a))
		loadOp, ok := vmopcode.OpcodeFor(vmopcode.KindLoad, at)
		if !ok {
			loadOp = vmopcode.OpRLoad
		}
		e.line("%s %d", loadOp, e.slots.slot(a))
	}
	e.line("CALL %s %d", ins.Target, len(ins.Args))
	if !ins.Void {
		dt := slotFamily(e.typeOf(ins.Dest))
		storeOp, ok := vmopcode.OpcodeFor(vmopcode.KindStore, dt)
		if !ok {
			storeOp = vmopcode.OpRStore
		}
		e.line("%s %d", storeOp, e.slots.slot(ins.Dest))
	}
	return nil
}

// emitCmpJump lowers a control-flow comparison (the condition of an if/
// while, never an expression value) directly into one typed branch
// instruction — no separate JUMPT, since the <T>_C* opcode itself
// branches to the absolute target in its one operand.
func (e *emitter) emitCmpJump(ins ir.CmpJump) error {
	op, ok := vmopcode.FromIR(ins.Op)
	if !ok {
		return fmt.Errorf("backend: no VM opcode for comparison %s", ins.Op)
	}
	t, _ := vmopcode.TypeOf(op)
	e.loadOperand(ins.Lhs, t)
	e.loadOperand(ins.Rhs, t)
	e.line("%s %s", op, ins.Target)
	return nil
}

// emitReturn loads the return value (if any) with its own recorded
// type and terminates the function: HALT for the module's entry point,
// so the engine can leave the root frame's result inspectable, RET for
// every other function.
func (e *emitter) emitReturn(ins ir.Return) error {
	if ins.Void {
		e.line(e.terminator())
		return nil
	}
	vt := slotFamily(e.typeOf(ins.Value))
	loadOp, ok := vmopcode.OpcodeFor(vmopcode.KindLoad, vt)
	if !ok {
		loadOp = vmopcode.OpRLoad
	}
	e.line("%s %d", loadOp, e.slots.slot(ins.Value))
	e.line(e.terminator())
	return nil
}

func (e *emitter) terminator() string {
	if e.isEntry {
		return "HALT"
	}
	return "RET"
}

// formatLiteral formats a constant for R_PUSH: bool/string/null
// verbatim, and a list recursively through formatArrayElem so every
// numeric element carries the §6 suffix grammar (L/s/b/f/d) needed to
// tell its width and float-vs-double distinction apart from a bare
// default-typed literal.
func formatLiteral(c ir.Const) string {
	switch c.Type {
	case ir.TypeBool:
		return fmt.Sprintf("%t", c.Bool)
	case ir.TypeString:
		return fmt.Sprintf("%q", c.String)
	case ir.TypeList:
		parts := make([]string, 0, len(c.List))
		for _, el := range c.List {
			parts = append(parts, formatArrayElem(el))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.TypeRef:
		return "null"
	default:
		return formatArrayElem(c)
	}
}

// formatArrayElem formats one array-literal atom with its §6 suffix:
// Long 'L', Short 's', Byte 'b', Float 'f', Double and Int bare
// (distinguished by the presence of a decimal point), nested lists
// recursively, everything else as in formatLiteral.
func formatArrayElem(c ir.Const) string {
	switch c.Type {
	case ir.TypeByte:
		return fmt.Sprintf("%db", c.Int)
	case ir.TypeShort:
		return fmt.Sprintf("%ds", c.Int)
	case ir.TypeInt:
		return fmt.Sprintf("%d", c.Int)
	case ir.TypeLong:
		return fmt.Sprintf("%dL", c.Int)
	case ir.TypeFloat:
		return fmt.Sprintf("%vf", c.Float)
	case ir.TypeDouble:
		s := strconv.FormatFloat(c.Float, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case ir.TypeBool:
		return fmt.Sprintf("%t", c.Bool)
	case ir.TypeString:
		return fmt.Sprintf("%q", c.String)
	case ir.TypeList:
		parts := make([]string, 0, len(c.List))
		for _, el := range c.List {
			parts = append(parts, formatArrayElem(el))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.TypeRef:
		return "null"
	default:
		return fmt.Sprintf("%d", c.Int)
	}
}
