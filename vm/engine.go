package vm

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/jcnc-org/snow/ir"
	"github.com/jcnc-org/snow/vm/syscall"
	"github.com/jcnc-org/snow/vmopcode"
)

// maxCallDepth bounds the frame stack; exceeding it is ErrCallStackOverflow
// rather than an unbounded Go-stack recursion panic, since the
// interpreter loop itself is iterative, not recursive.
const maxCallDepth = 4096

// Engine is the running VM: the decoded program, the live call stack,
// a heap of allocated objects, and the syscall subsystem. One Engine
// runs exactly one program to completion (or to a trapped error); reuse
// a fresh Engine per run.
//
// Grounded on gvm/vm/vm.go's VM struct (registers/stack/pc/errcode),
// replaced here by a Frame-stack since spec.md §3 mandates per-call
// frames instead of one flat register file.
type Engine struct {
	prog    *Program
	frames  []*Frame
	heap    []Object
	sys     *syscall.Table
	log     hclog.Logger
	errcode error

	// maxDepth/stackLimit default to maxCallDepth/maxOperandStack but can
	// be tightened by SetLimits (cmd/snowvm wires these from
	// vmconfig.Config so an operator can lower them without a rebuild).
	maxDepth   int
	stackLimit int

	// breakpoints mirrors gvm/vm/run.go's debug-mode breakpoint map.
	breakpoints map[int]bool
}

// NewEngine creates an Engine ready to run prog, with the syscall
// subsystem's stdin/stdout/stderr preallocated as fd 0/1/2.
func NewEngine(prog *Program, logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{
		prog:        prog,
		sys:         syscall.NewTable(),
		log:         logger.Named("vm"),
		maxDepth:    maxCallDepth,
		stackLimit:  maxOperandStack,
		breakpoints: make(map[int]bool),
	}
}

// SetLimits tightens the call-stack depth and per-frame operand-stack
// ceilings below their compiled-in defaults; a zero or negative value
// leaves the corresponding limit unchanged.
func (e *Engine) SetLimits(maxDepth, operandStackSize int) {
	if maxDepth > 0 && maxDepth < e.maxDepth {
		e.maxDepth = maxDepth
	}
	if operandStackSize > 0 && operandStackSize < e.stackLimit {
		e.stackLimit = operandStackSize
	}
}

// Run executes the program starting at entryFunc until it returns,
// traps, or halts, returning the top-level return value (zero Value for
// a void entry point).
func (e *Engine) Run(entryFunc string) (Value, error) {
	if err := e.Start(entryFunc); err != nil {
		return Value{}, err
	}
	result, _, err := e.loop(false)
	return result, err
}

// Start pushes entryFunc's root frame without executing any
// instructions, letting a caller then drive the program one
// instruction at a time with Step — used by cmd/snowvm's debug REPL,
// which needs to print the initial state before anything has run.
func (e *Engine) Start(entryFunc string) error {
	meta, ok := e.prog.funcs[entryFunc]
	if !ok {
		return fmt.Errorf("vm: unknown entry function %q", entryFunc)
	}
	root := newFrame(entryFunc, meta.numSlots, nil, -1)
	root.stackLimit = e.stackLimit
	e.frames = append(e.frames, root)
	root.pc = meta.entry
	return nil
}

// Step runs exactly one instruction in single-step debug mode, used by
// cmd/snowvm's breakpoint REPL (adapted from gvm/vm/run.go's
// RunProgramDebugMode "n"/"next" command). The bool result reports
// whether the program has finished (frame stack emptied) as of this
// step.
func (e *Engine) Step() (Value, bool, error) {
	return e.loop(true)
}

func (e *Engine) curFrame() *Frame {
	return e.frames[len(e.frames)-1]
}

// loop is the main dispatch: decode-and-execute until the frame stack
// empties (program finished), an error traps execution, or singleStep
// is true and one instruction has run. Grounded on
// gvm/vm/vm.go's execInstructions(singleStep bool).
func (e *Engine) loop(singleStep bool) (result Value, finished bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vm: %v (recovered)", r)
			finished = true
		}
	}()

	for len(e.frames) > 0 {
		f := e.curFrame()
		if f.pc >= len(e.prog.instrs) {
			return Value{}, true, ErrProgramFinished
		}
		instr := e.prog.instrs[f.pc]
		f.pc++

		e.log.Trace("exec", "func", f.funcName, "pc", f.pc-1, "op", instr.op)

		ret, done, execErr := e.exec(f, instr)
		if execErr != nil {
			e.errcode = execErr
			return Value{}, true, execErr
		}
		if done && len(e.frames) == 0 {
			return ret, true, nil
		}
		if singleStep {
			return ret, len(e.frames) == 0, nil
		}
	}
	return Value{}, true, nil
}

// exec runs a single decoded instruction against frame f, returning a
// return value only when f was just popped by a RET/HALT (done == true).
//
// Typed PUSH/LOAD/STORE (one member per B/S/I/L/F/D/R family) are
// dispatched generically here via vmopcode.KindOf/TypeOf rather than as
// ~21 explicit cases: a Frame's locals/stack already carry each Value's
// own type tag (vm/frame.go), so LOAD/STORE behave identically
// regardless of which typed opcode performed them — the per-type
// distinction is purely an emission-time convention the backend uses to
// self-describe what it's loading/storing.
func (e *Engine) exec(f *Frame, instr decoded) (Value, bool, error) {
	switch instr.op {
	case vmopcode.OpNop, vmopcode.OpLabel:
		return Value{}, false, nil
	case vmopcode.OpPop:
		_, err := f.pop()
		return Value{}, false, err
	case vmopcode.OpDup:
		v, err := f.peek()
		if err != nil {
			return Value{}, false, err
		}
		return Value{}, false, f.push(v)
	case vmopcode.OpMov:
		src, err := intArg(instr.args, 0)
		if err != nil {
			return Value{}, false, err
		}
		dst, err := intArg(instr.args, 1)
		if err != nil {
			return Value{}, false, err
		}
		v, err := f.load(src)
		if err != nil {
			return Value{}, false, err
		}
		return Value{}, false, f.store(dst, v)
	case vmopcode.OpJump:
		target, err := intArg(instr.args, 0)
		if err != nil {
			return Value{}, false, err
		}
		f.pc = target
		return Value{}, false, nil
	case vmopcode.OpCall:
		return e.execCall(f, instr)
	case vmopcode.OpRet:
		return e.execReturn(f)
	case vmopcode.OpHalt:
		return e.execHalt(f)
	case vmopcode.OpIndexR:
		return Value{}, false, e.execIndexRead(f)
	case vmopcode.OpIndexW:
		return Value{}, false, e.execIndexWrite(f)
	case vmopcode.OpArrayNew:
		return Value{}, false, e.execArrayNew(f)
	case vmopcode.OpSyscall:
		return Value{}, false, e.execSyscall(f, instr)
	default:
		if kind, ok := vmopcode.KindOf(instr.op); ok {
			switch kind {
			case vmopcode.KindPush:
				t, _ := vmopcode.TypeOf(instr.op)
				v, err := parseTypedPush(t, instr.args)
				if err != nil {
					return Value{}, false, err
				}
				return Value{}, false, f.push(v)
			case vmopcode.KindLoad:
				slot, err := intArg(instr.args, 0)
				if err != nil {
					return Value{}, false, err
				}
				v, err := f.load(slot)
				if err != nil {
					return Value{}, false, err
				}
				return Value{}, false, f.push(v)
			case vmopcode.KindStore:
				slot, err := intArg(instr.args, 0)
				if err != nil {
					return Value{}, false, err
				}
				v, err := f.pop()
				if err != nil {
					return Value{}, false, err
				}
				return Value{}, false, f.store(slot, v)
			}
		}
		if handled, err := e.execArithOrCompareOrConvert(f, instr); handled {
			return Value{}, false, err
		}
		return Value{}, false, fmt.Errorf("%w: %s", ErrUnknownOpcode, instr.op)
	}
}

// parseTypedPush decodes a PUSH opcode's operand into a Value of type
// t. The reference family (R_PUSH) carries string/bool/null/array
// literals with their own internal shape grammar; every numeric family
// carries a bare, unsuffixed literal since the opcode itself already
// names the type.
func parseTypedPush(t ir.ElemType, args []string) (Value, error) {
	if t == ir.TypeRef {
		return parseLiteralOperand(args)
	}
	return parseTypedLiteral(t, args)
}

// execHalt terminates the whole program, capturing the entry function's
// top-of-stack value (if any) before clearing the frame stack so the
// caller of Run/Step still gets back an inspectable result — unlike a
// nested RET, HALT never has a caller frame to resume, so it must grab
// the result itself.
func (e *Engine) execHalt(f *Frame) (Value, bool, error) {
	var result Value
	if len(f.stack) > 0 {
		v, err := f.pop()
		if err != nil {
			return Value{}, false, err
		}
		result = v
	}
	e.frames = nil
	return result, true, nil
}

// execSyscall decodes "SYSCALL <callId> <nargs>", pops nargs Values off
// f's stack (left-to-right order, popped right-to-left like every other
// call-shaped instruction), splits them into the numeric-arg and
// string-arg channels syscall.Table.Dispatch expects, and pushes the
// single int64 result it returns back as a Value.
func (e *Engine) execSyscall(f *Frame, instr decoded) error {
	if len(instr.args) < 2 {
		return fmt.Errorf("%w: SYSCALL requires a call id and arg count", ErrInvalidOperand)
	}
	callID, err := strconv.ParseInt(instr.args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: SYSCALL call id: %v", ErrInvalidOperand, err)
	}
	nargs, err := strconv.Atoi(instr.args[1])
	if err != nil {
		return fmt.Errorf("%w: SYSCALL arg count: %v", ErrInvalidOperand, err)
	}

	vals := make([]Value, nargs)
	for i := nargs - 1; i >= 0; i-- {
		v, err := f.pop()
		if err != nil {
			return err
		}
		vals[i] = v
	}

	var nums []int64
	var strs []string
	for _, v := range vals {
		if v.Type == ir.TypeString {
			strs = append(strs, v.Str)
			continue
		}
		nums = append(nums, v.Int)
	}

	result, err := e.sys.Dispatch(callID, nums, strs)
	if err != nil {
		return fmt.Errorf("vm: syscall %d: %w", callID, err)
	}
	return f.push(Value{Type: ir.TypeLong, Int: result})
}

func (e *Engine) execCall(f *Frame, instr decoded) (Value, bool, error) {
	if len(instr.args) < 2 {
		return Value{}, false, fmt.Errorf("%w: CALL requires a target and arg count", ErrInvalidOperand)
	}
	target := instr.args[0]
	nargs, err := strconv.Atoi(instr.args[1])
	if err != nil {
		return Value{}, false, fmt.Errorf("%w: CALL arg count: %v", ErrInvalidOperand, err)
	}

	if entryPC, err := strconv.Atoi(target); err == nil {
		if len(e.frames) >= e.maxDepth {
			return Value{}, false, ErrCallStackOverflow
		}
		args := make([]Value, nargs)
		for i := nargs - 1; i >= 0; i-- {
			v, err := f.pop()
			if err != nil {
				return Value{}, false, err
			}
			args[i] = v
		}
		meta := e.findFuncByEntry(entryPC)
		callee := newFrame(target, meta.numSlots, f, f.pc)
		callee.stackLimit = e.stackLimit
		callee.pc = entryPC
		for i, a := range args {
			if i < len(callee.locals) {
				callee.locals[i] = a
			}
		}
		e.frames = append(e.frames, callee)
		return Value{}, false, nil
	}

	// Intrinsic, handled in-process without a new frame.
	return e.execIntrinsic(f, target, nargs)
}

func (e *Engine) findFuncByEntry(entryPC int) funcMeta {
	for _, m := range e.prog.funcs {
		if m.entry == entryPC {
			return m
		}
	}
	return funcMeta{entry: entryPC, numSlots: 0}
}

func (e *Engine) execReturn(f *Frame) (Value, bool, error) {
	var retVal Value
	if len(f.stack) > 0 {
		v, err := f.pop()
		if err != nil {
			return Value{}, false, err
		}
		retVal = v
	}
	e.frames = e.frames[:len(e.frames)-1]
	if len(e.frames) == 0 {
		return retVal, true, nil
	}
	caller := e.curFrame()
	caller.pc = f.returnAddr
	// backend only emits a typed STORE right after CALL when the call was
	// non-void; a void call's caller has no such instruction waiting, so
	// only push the return value onto the caller's stack when there is
	// something positioned to immediately consume it — otherwise it
	// would leak as a phantom operand-stack entry.
	if f.returnAddr < len(e.prog.instrs) {
		if kind, ok := vmopcode.KindOf(e.prog.instrs[f.returnAddr].op); ok && kind == vmopcode.KindStore {
			if err := caller.push(retVal); err != nil {
				return Value{}, false, err
			}
		}
	}
	return Value{}, false, nil
}

// DumpState prints the current frame's next instruction, its operand
// stack, and its local slots — the Supplemented Feature D.2 debug dump,
// adapted from gvm/vm/run.go's PrintCurrentState (there: registers +
// reverse stack; here: per-frame locals + operand stack, since this
// engine has no flat register file).
func (e *Engine) DumpState() {
	if len(e.frames) == 0 {
		fmt.Println("->\t\t<no active frame>")
		return
	}
	f := e.curFrame()
	if f.pc < len(e.prog.instrs) {
		instr := e.prog.instrs[f.pc]
		fmt.Printf("->\t\tnext instruction> %d: %s %v\n", f.pc, instr.op, instr.args)
	}
	fmt.Println("->\t\tfunc>", f.funcName)
	fmt.Println("->\t\tlocals>", f.locals)
	fmt.Println("->\t\toperand stack>", f.stack)
}

// ToggleBreakpoint sets or clears a breakpoint at instruction index pc,
// mirroring gvm/vm/run.go's RunProgramDebugMode "b"/"break" toggle.
func (e *Engine) ToggleBreakpoint(pc int) {
	if e.breakpoints[pc] {
		delete(e.breakpoints, pc)
		return
	}
	e.breakpoints[pc] = true
}

// AtBreakpoint reports whether the current frame's next instruction is
// a registered breakpoint.
func (e *Engine) AtBreakpoint() bool {
	if len(e.frames) == 0 {
		return false
	}
	return e.breakpoints[e.curFrame().pc]
}
