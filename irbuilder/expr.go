package irbuilder

import (
	"fmt"

	"github.com/jcnc-org/snow/ast"
	"github.com/jcnc-org/snow/ir"
)

// lowerExpr dispatches on the concrete Go type of e, mirroring gvm's
// opcode-switch idiom one level up: here the "opcode" is the AST node's
// dynamic type rather than an integer discriminant, since ast.Expression
// carries no separate numeric tag of its own.
func (fc *funcContext) lowerExpr(e ast.Expression) (ir.Register, error) {
	switch expr := e.(type) {
	case *ast.LiteralExpr:
		return fc.lowerLiteral(expr)
	case *ast.IdentExpr:
		return fc.lowerIdent(expr)
	case *ast.MemberExpr:
		return fc.lowerMember(expr)
	case *ast.IndexExpr:
		return fc.lowerIndexLoad(expr)
	case *ast.BinaryExpr:
		return fc.lowerBinary(expr)
	case *ast.UnaryExpr:
		return fc.lowerUnary(expr)
	case *ast.CallExpr:
		return fc.lowerCall(expr)
	case *ast.ArrayLiteralExpr:
		return fc.lowerArrayLiteral(expr)
	case *ast.NewExpr:
		return fc.lowerNew(expr)
	default:
		return ir.Register{}, fmt.Errorf("irbuilder: unsupported expression type %T", e)
	}
}

func (fc *funcContext) lowerLiteral(e *ast.LiteralExpr) (ir.Register, error) {
	t := ir.ElemTypeFromName(e.Type)
	c, err := constFromAny(normalizeLiteral(e.Value, t))
	if err != nil {
		return ir.Register{}, err
	}
	c.Type = t
	dest := fc.fn.NewRegister()
	fc.fn.SetRegisterType(dest, t)
	fc.fn.Emit(ir.LoadConst{Dest: dest, Value: c})
	return dest, nil
}

// normalizeLiteral widens an int literal's Go representation to the
// declared width's native Go type family so constFromAny's type switch
// (which only recognizes int64/float64/bool/string/[]any) accepts it
// regardless of whether the parser handed back a plain int or a
// float64 for a float-typed literal.
func normalizeLiteral(v any, t ir.ElemType) any {
	switch t {
	case ir.TypeFloat, ir.TypeDouble:
		switch n := v.(type) {
		case int64:
			return float64(n)
		case int:
			return float64(n)
		}
	case ir.TypeByte, ir.TypeShort, ir.TypeInt, ir.TypeLong:
		switch n := v.(type) {
		case int:
			return int64(n)
		}
	}
	return v
}

func (fc *funcContext) lowerIdent(e *ast.IdentExpr) (ir.Register, error) {
	if r, ok := fc.lookup(e.Name); ok {
		return r, nil
	}
	return ir.Register{}, fmt.Errorf("irbuilder: undeclared identifier %q", e.Name)
}

// lowerMember handles both cross-module constant references
// (`module.NAME`, resolved through the global constant table) and
// struct field reads (`value.field`, lowered to a synthetic
// `__index_r` call carrying the field's resolved offset).
func (fc *funcContext) lowerMember(e *ast.MemberExpr) (ir.Register, error) {
	if e.TargetIsModule {
		fq := e.ModuleName + "." + e.Field
		c, ok := fc.b.prog.Constants.Get(fq)
		if !ok {
			return ir.Register{}, fmt.Errorf("irbuilder: unknown module constant %q", fq)
		}
		dest := fc.fn.NewRegister()
		fc.fn.SetRegisterType(dest, c.Type)
		fc.fn.Emit(ir.LoadConst{Dest: dest, Value: c})
		return dest, nil
	}
	return fc.lowerFieldLoad(e)
}

// lowerFieldLoad lowers `target.field` to a call against the synthetic
// field-accessor intrinsic `__index_r`, passing the resolved offset as
// a constant second argument. The offset is resolved through
// prog.Structs, climbing the struct's parent chain, so a subclass
// instance reads an inherited field at the same offset its parent
// would use.
func (fc *funcContext) lowerFieldLoad(e *ast.MemberExpr) (ir.Register, error) {
	structName, err := fc.inferStructType(e.Target)
	if err != nil {
		return ir.Register{}, err
	}
	offset, err := fc.b.prog.Structs.FieldOffset(structName, e.Field)
	if err != nil {
		return ir.Register{}, err
	}
	targetReg, err := fc.lowerExpr(e.Target)
	if err != nil {
		return ir.Register{}, err
	}
	offsetReg := fc.fn.NewRegister()
	fc.fn.SetRegisterType(offsetReg, ir.TypeInt)
	fc.fn.Emit(ir.LoadConst{Dest: offsetReg, Value: ir.IntConst(ir.TypeInt, int64(offset))})

	dest := fc.fn.NewRegister()
	fc.fn.SetRegisterType(dest, ir.TypeRef)
	fc.fn.Emit(ir.Call{Dest: dest, Target: "__index_r", Args: []ir.Register{targetReg, offsetReg}})
	return dest, nil
}

func (fc *funcContext) lowerFieldStore(target *ast.MemberExpr, val ir.Register) error {
	structName, err := fc.inferStructType(target.Target)
	if err != nil {
		return err
	}
	offset, err := fc.b.prog.Structs.FieldOffset(structName, target.Field)
	if err != nil {
		return err
	}
	targetReg, err := fc.lowerExpr(target.Target)
	if err != nil {
		return err
	}
	offsetReg := fc.fn.NewRegister()
	fc.fn.SetRegisterType(offsetReg, ir.TypeInt)
	fc.fn.Emit(ir.LoadConst{Dest: offsetReg, Value: ir.IntConst(ir.TypeInt, int64(offset))})

	fc.fn.Emit(ir.Call{Void: true, Target: "__index_w", Args: []ir.Register{targetReg, offsetReg, val}})
	return nil
}

// inferStructType determines which struct layout governs a field
// access. Only identifier targets are handled: the name is looked up in
// declaredTypes, which holds the module-qualified struct name recorded
// for `self` and for reference-typed parameters and locals. Any other
// target expression, or an identifier with no recorded type, is an
// error.
func (fc *funcContext) inferStructType(target ast.Expression) (string, error) {
	if id, ok := target.(*ast.IdentExpr); ok {
		if t, ok := fc.declaredTypes[id.Name]; ok {
			return t, nil
		}
	}
	return "", fmt.Errorf("irbuilder: cannot infer struct type for field access target %T", target)
}

func (fc *funcContext) lowerIndexLoad(e *ast.IndexExpr) (ir.Register, error) {
	targetReg, err := fc.lowerExpr(e.Target)
	if err != nil {
		return ir.Register{}, err
	}
	idxReg, err := fc.lowerExpr(e.Index)
	if err != nil {
		return ir.Register{}, err
	}
	dest := fc.fn.NewRegister()
	fc.fn.SetRegisterType(dest, ir.TypeRef)
	fc.fn.Emit(ir.Call{Dest: dest, Target: "__index_r", Args: []ir.Register{targetReg, idxReg}})
	return dest, nil
}

func (fc *funcContext) lowerIndexStore(target *ast.IndexExpr, val ir.Register) error {
	targetReg, err := fc.lowerExpr(target.Target)
	if err != nil {
		return err
	}
	idxReg, err := fc.lowerExpr(target.Index)
	if err != nil {
		return err
	}
	fc.fn.Emit(ir.Call{Void: true, Target: "__index_w", Args: []ir.Register{targetReg, idxReg, val}})
	return nil
}

func (fc *funcContext) lowerBinary(e *ast.BinaryExpr) (ir.Register, error) {
	lhs, err := fc.lowerExpr(e.Left)
	if err != nil {
		return ir.Register{}, err
	}
	rhs, err := fc.lowerExpr(e.Right)
	if err != nil {
		return ir.Register{}, err
	}
	lt, _ := fc.fn.RegisterType(lhs)
	rt, _ := fc.fn.RegisterType(rhs)
	t := ir.Widen(lt, rt)

	dest := fc.fn.NewRegister()
	if pred, isCompare := predicateFor(e.Op); isCompare {
		op, ok := ir.CmpOpFor(pred, t)
		if !ok {
			return ir.Register{}, fmt.Errorf("irbuilder: no comparison opcode for %s at type %s", pred, t)
		}
		// A comparison used as a value is still just a BinOp at the IR
		// level — the backend's own <T>_C* handlers branch directly
		// (spec §4.4), so expanding the push-0/push-1 dance around the
		// branch is the backend's job, not the builder's. Keep dest
		// typed as the promoted operand type rather than TypeBool so
		// the backend loads both operands at their natural width.
		fc.fn.SetRegisterType(dest, t)
		fc.fn.Emit(ir.BinOp{Dest: dest, Op: op, Lhs: lhs, Rhs: rhs})
		return dest, nil
	}

	kind := binOpKind(e.Op)
	op, ok := ir.BinOpFor(kind, t)
	if !ok {
		return ir.Register{}, fmt.Errorf("irbuilder: no %s opcode at type %s", kind, t)
	}
	fc.fn.SetRegisterType(dest, t)
	fc.fn.Emit(ir.BinOp{Dest: dest, Op: op, Lhs: lhs, Rhs: rhs})
	return dest, nil
}

func binOpKind(op ast.BinaryOp) string {
	switch op {
	case ast.OpAdd:
		return "add"
	case ast.OpSub:
		return "sub"
	case ast.OpMul:
		return "mul"
	case ast.OpDiv:
		return "div"
	case ast.OpMod:
		return "mod"
	case ast.OpAnd:
		return "and"
	case ast.OpOr:
		return "or"
	case ast.OpXor:
		return "xor"
	default:
		return "?"
	}
}

func (fc *funcContext) lowerUnary(e *ast.UnaryExpr) (ir.Register, error) {
	src, err := fc.lowerExpr(e.Operand)
	if err != nil {
		return ir.Register{}, err
	}
	t, _ := fc.fn.RegisterType(src)
	dest := fc.fn.NewRegister()
	fc.fn.SetRegisterType(dest, t)

	switch e.Op {
	case ast.OpNeg:
		op, ok := negOpFor(t)
		if !ok {
			return ir.Register{}, fmt.Errorf("irbuilder: no negation opcode at type %s", t)
		}
		fc.fn.Emit(ir.UnaryOp{Dest: dest, Op: op, Src: src})
	case ast.OpInc:
		op, ok := incOpFor(t)
		if !ok {
			return ir.Register{}, fmt.Errorf("irbuilder: no increment opcode at type %s", t)
		}
		fc.fn.Emit(ir.UnaryOp{Dest: dest, Op: op, Src: src})
	case ast.OpNot:
		// Logical not on a bool: a CmpJump of src against a false
		// constant branches to a load of true, the fall-through loads
		// false. Unlike lowerBinary's comparisons, which stay a single
		// BinOp, this expands into branches at the IR level.
		falseReg := fc.fn.NewRegister()
		fc.fn.SetRegisterType(falseReg, ir.TypeBool)
		fc.fn.Emit(ir.LoadConst{Dest: falseReg, Value: ir.BoolConst(false)})
		trueLabel := fc.fn.NewLabel("not_true")
		endLabel := fc.fn.NewLabel("not_end")
		op, _ := ir.CmpOpFor("eq", ir.TypeRef)
		fc.fn.Emit(ir.CmpJump{Op: op, Lhs: src, Rhs: falseReg, Target: trueLabel})
		fc.fn.Emit(ir.LoadConst{Dest: dest, Value: ir.BoolConst(false)})
		fc.fn.Emit(ir.Jump{Target: endLabel})
		fc.fn.Emit(ir.LabelInstr{Name: trueLabel})
		fc.fn.Emit(ir.LoadConst{Dest: dest, Value: ir.BoolConst(true)})
		fc.fn.Emit(ir.LabelInstr{Name: endLabel})
	default:
		return ir.Register{}, fmt.Errorf("irbuilder: unsupported unary operator %v", e.Op)
	}
	return dest, nil
}

func negOpFor(t ir.ElemType) (ir.Opcode, bool) {
	switch t {
	case ir.TypeByte:
		return ir.NegB8, true
	case ir.TypeShort:
		return ir.NegS16, true
	case ir.TypeInt:
		return ir.NegI32, true
	case ir.TypeLong:
		return ir.NegL64, true
	case ir.TypeFloat:
		return ir.NegF32, true
	case ir.TypeDouble:
		return ir.NegD64, true
	default:
		return ir.OpInvalid, false
	}
}

func incOpFor(t ir.ElemType) (ir.Opcode, bool) {
	switch t {
	case ir.TypeByte:
		return ir.IncB8, true
	case ir.TypeShort:
		return ir.IncS16, true
	case ir.TypeInt:
		return ir.IncI32, true
	case ir.TypeLong:
		return ir.IncL64, true
	case ir.TypeFloat:
		return ir.IncF32, true
	case ir.TypeDouble:
		return ir.IncD64, true
	default:
		return ir.OpInvalid, false
	}
}

// lowerCall resolves the callee's return type through the global
// function table built during BuildProgram's pre-scan, falling back to
// the first argument's type only when the callee is not in the table
// at all (an extern/intrinsic, per SPEC_FULL.md §E's Open Question
// decision).
func (fc *funcContext) lowerCall(e *ast.CallExpr) (ir.Register, error) {
	args := make([]ir.Register, 0, len(e.Args))
	for _, a := range e.Args {
		r, err := fc.lowerExpr(a)
		if err != nil {
			return ir.Register{}, err
		}
		args = append(args, r)
	}

	retType, known := fc.b.prog.Funcs.ReturnType(e.Target)
	if !known {
		if len(args) > 0 {
			retType, _ = fc.fn.RegisterType(args[0])
		} else {
			retType = ir.TypeVoid
		}
	}

	if retType == ir.TypeVoid {
		fc.fn.Emit(ir.Call{Void: true, Target: e.Target, Args: args})
		return ir.Register{}, nil
	}
	dest := fc.fn.NewRegister()
	fc.fn.SetRegisterType(dest, retType)
	fc.fn.Emit(ir.Call{Dest: dest, Target: e.Target, Args: args})
	return dest, nil
}

func (fc *funcContext) lowerArrayLiteral(e *ast.ArrayLiteralExpr) (ir.Register, error) {
	elemType := ir.ElemTypeFromName(e.ElementType)
	elemRegs := make([]ir.Register, 0, len(e.Elements))
	for _, el := range e.Elements {
		r, err := fc.lowerExpr(el)
		if err != nil {
			return ir.Register{}, err
		}
		elemRegs = append(elemRegs, r)
	}
	dest := fc.fn.NewRegister()
	fc.fn.SetRegisterType(dest, ir.TypeList)
	fc.fn.Emit(ir.Call{Dest: dest, Target: "__array_new", Args: elemRegs})
	_ = elemType // width carried by the VM's decoded array-literal form, §6
	return dest, nil
}

func (fc *funcContext) lowerNew(e *ast.NewExpr) (ir.Register, error) {
	args := make([]ir.Register, 0, len(e.Args))
	for _, a := range e.Args {
		r, err := fc.lowerExpr(a)
		if err != nil {
			return ir.Register{}, err
		}
		args = append(args, r)
	}
	dest := fc.fn.NewRegister()
	fc.fn.SetRegisterType(dest, ir.TypeRef)
	fc.fn.Emit(ir.Call{Dest: dest, Target: fc.mod.Name + "." + e.StructName + ".__new", Args: args})
	return dest, nil
}
