package irbuilder

import (
	"fmt"

	"github.com/jcnc-org/snow/ast"
	"github.com/jcnc-org/snow/ir"
)

// funcContext is the per-function lowering state: the in-progress
// ir.Function, a scoped symbol table (one map per lexical block,
// innermost last), and back-pointers the expression/statement handlers
// need to resolve cross-module constants and struct layouts.
type funcContext struct {
	b        *builder
	mod      *ast.Module
	fn       *ir.Function
	scopes   []map[string]ir.Register
	curBreak *ir.Label // loop-exit label for a future break statement, nil outside a loop

	// receiverStruct is the unqualified struct name this function is a
	// method of (empty for a free function); declaredTypes maps a local's
	// declared source-type name by variable name, consulted by
	// inferStructType since a Register only carries an ElemType, not the
	// original struct name, once allocated.
	receiverStruct string
	declaredTypes  map[string]string
}

func (fc *funcContext) pushScope() { fc.scopes = append(fc.scopes, map[string]ir.Register{}) }
func (fc *funcContext) popScope()  { fc.scopes = fc.scopes[:len(fc.scopes)-1] }

func (fc *funcContext) declare(name string, r ir.Register) {
	fc.scopes[len(fc.scopes)-1][name] = r
}

func (fc *funcContext) lookup(name string) (ir.Register, bool) {
	for i := len(fc.scopes) - 1; i >= 0; i-- {
		if r, ok := fc.scopes[i][name]; ok {
			return r, true
		}
	}
	return ir.Register{}, false
}

func (b *builder) buildFunction(mod *ast.Module, fd *ast.FunctionDecl) (*ir.Function, error) {
	fn := ir.NewFunction(qualifiedName(mod.Name, fd), ir.ElemTypeFromName(fd.ReturnType))
	fc := &funcContext{b: b, mod: mod, fn: fn, receiverStruct: fd.ReceiverStruct, declaredTypes: make(map[string]string)}
	fc.pushScope()

	if fd.ReceiverStruct != "" {
		recv := fn.AddParam(ir.TypeRef)
		fc.declare("self", recv)
		fc.declaredTypes["self"] = mod.Name + "." + fd.ReceiverStruct
	}
	for _, p := range fd.Params {
		r := fn.AddParam(ir.ElemTypeFromName(p.Type))
		fc.declare(p.Name, r)
		if ir.ElemTypeFromName(p.Type) == ir.TypeRef {
			fc.declaredTypes[p.Name] = mod.Name + "." + p.Type
		}
	}

	for _, stmt := range fd.Body {
		if err := fc.lowerStatement(stmt); err != nil {
			return nil, fmt.Errorf("irbuilder: function %s: %w", fn.Name, err)
		}
	}

	// Every path a void function takes must still end the IR body with
	// an explicit RET so the backend never has to special-case
	// fall-off-the-end; a non-void function that truly falls through
	// without returning is a semantic-analysis bug upstream, not
	// something this package can recover from, so it is left as-is.
	if fn.ReturnType == ir.TypeVoid {
		if len(fn.Body) == 0 || !isReturn(fn.Body[len(fn.Body)-1]) {
			fn.Emit(ir.Return{Void: true})
		}
	}

	fc.popScope()
	return fn, nil
}

func isReturn(instr ir.Instruction) bool {
	_, ok := instr.(ir.Return)
	return ok
}

func (fc *funcContext) lowerStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.DeclStatement:
		return fc.lowerDecl(s)
	case *ast.AssignStatement:
		return fc.lowerAssign(s)
	case *ast.IfStatement:
		return fc.lowerIf(s)
	case *ast.WhileStatement:
		return fc.lowerWhile(s)
	case *ast.ReturnStatement:
		return fc.lowerReturn(s)
	case *ast.ExprStatement:
		_, err := fc.lowerExpr(s.Expr)
		return err
	default:
		return fmt.Errorf("irbuilder: unsupported statement type %T", stmt)
	}
}

func (fc *funcContext) lowerDecl(s *ast.DeclStatement) error {
	val, err := fc.lowerExpr(s.Init)
	if err != nil {
		return err
	}
	t := ir.ElemTypeFromName(s.Type)
	dest := fc.fn.NewRegister()
	fc.fn.SetRegisterType(dest, t)
	fc.emitMove(dest, val, t)
	fc.declare(s.Name, dest)
	if t == ir.TypeRef {
		fc.declaredTypes[s.Name] = fc.mod.Name + "." + s.Type
	}
	return nil
}

func (fc *funcContext) lowerAssign(s *ast.AssignStatement) error {
	val, err := fc.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	switch target := s.Target.(type) {
	case *ast.IdentExpr:
		dest, ok := fc.lookup(target.Name)
		if !ok {
			return fmt.Errorf("irbuilder: assignment to undeclared local %q", target.Name)
		}
		t, _ := fc.fn.RegisterType(dest)
		fc.emitMove(dest, val, t)
		return nil
	case *ast.MemberExpr:
		return fc.lowerFieldStore(target, val)
	case *ast.IndexExpr:
		return fc.lowerIndexStore(target, val)
	default:
		return fmt.Errorf("irbuilder: unsupported assignment target %T", s.Target)
	}
}

// emitMove lowers a "dest := src" copy as `ADD_T dest, src, 0`, the
// same zero-constant-add trick spec.md §4.3/§8 calls out by name; the
// backend's peephole recognizes this exact shape and rewrites it to a
// plain register MOV, so no separate IR-level move instruction is
// needed.
func (fc *funcContext) emitMove(dest, src ir.Register, t ir.ElemType) {
	zeroReg := fc.fn.NewRegister()
	fc.fn.SetRegisterType(zeroReg, t)
	fc.fn.Emit(ir.LoadConst{Dest: zeroReg, Value: zeroValueFor(t)})
	op, ok := ir.BinOpFor("add", t)
	if !ok {
		// BinOpFor has no add opcode for this type (bool, void;
		// string/ref/list already map to ADD_R), so fall back to
		// ADD_R. The backend's peephole turns it into a MOV only when
		// ir.Const.IsZeroNumeric holds for the zero constant; a
		// remaining R_ADD pushes the left operand unless a string or
		// two numeric operands are involved (see vm execRefAdd).
		op = ir.AddR
	}
	fc.fn.Emit(ir.BinOp{Dest: dest, Op: op, Lhs: src, Rhs: zeroReg})
}

func zeroValueFor(t ir.ElemType) ir.Const {
	switch t {
	case ir.TypeFloat, ir.TypeDouble:
		return ir.FloatConst(t, 0)
	case ir.TypeString:
		return ir.StringConst("")
	case ir.TypeRef, ir.TypeList:
		return ir.Const{Type: ir.TypeRef}
	default:
		return ir.IntConst(t, 0)
	}
}

func (fc *funcContext) lowerIf(s *ast.IfStatement) error {
	elseLabel := fc.fn.NewLabel("if_else")
	endLabel := fc.fn.NewLabel("if_end")

	if err := fc.lowerCondJump(s.Cond, elseLabel); err != nil {
		return err
	}
	fc.pushScope()
	for _, st := range s.Then {
		if err := fc.lowerStatement(st); err != nil {
			return err
		}
	}
	fc.popScope()
	fc.fn.Emit(ir.Jump{Target: endLabel})
	fc.fn.Emit(ir.LabelInstr{Name: elseLabel})
	if s.Else != nil {
		fc.pushScope()
		for _, st := range s.Else {
			if err := fc.lowerStatement(st); err != nil {
				return err
			}
		}
		fc.popScope()
	}
	fc.fn.Emit(ir.LabelInstr{Name: endLabel})
	return nil
}

func (fc *funcContext) lowerWhile(s *ast.WhileStatement) error {
	condLabel := fc.fn.NewLabel("while_cond")
	endLabel := fc.fn.NewLabel("while_end")
	prevBreak := fc.curBreak
	fc.curBreak = &endLabel

	fc.fn.Emit(ir.LabelInstr{Name: condLabel})
	if err := fc.lowerCondJump(s.Cond, endLabel); err != nil {
		return err
	}
	fc.pushScope()
	for _, st := range s.Body {
		if err := fc.lowerStatement(st); err != nil {
			return err
		}
	}
	fc.popScope()
	fc.fn.Emit(ir.Jump{Target: condLabel})
	fc.fn.Emit(ir.LabelInstr{Name: endLabel})

	fc.curBreak = prevBreak
	return nil
}

// lowerCondJump lowers Cond and emits a CmpJump to target that fires
// when Cond is FALSE — every caller uses target as a skip-to-else or
// exit-loop label, so the natural source-level predicate is always
// inverted before being handed to ir.CmpOpFor. When Cond is itself a
// comparison BinaryExpr the comparison is emitted directly; otherwise
// Cond is evaluated as a boolean value and compared against a literal
// false.
func (fc *funcContext) lowerCondJump(cond ast.Expression, target ir.Label) error {
	if be, ok := cond.(*ast.BinaryExpr); ok {
		if pred, isCompare := predicateFor(be.Op); isCompare {
			lhs, err := fc.lowerExpr(be.Left)
			if err != nil {
				return err
			}
			rhs, err := fc.lowerExpr(be.Right)
			if err != nil {
				return err
			}
			lt, _ := fc.fn.RegisterType(lhs)
			rt, _ := fc.fn.RegisterType(rhs)
			t := ir.Widen(lt, rt)
			pred = invertPredicate(pred)
			op, ok := ir.CmpOpFor(pred, t)
			if !ok {
				return fmt.Errorf("irbuilder: no comparison opcode for predicate %s at type %s", pred, t)
			}
			fc.fn.Emit(ir.CmpJump{Op: op, Lhs: lhs, Rhs: rhs, Target: target})
			return nil
		}
	}
	val, err := fc.lowerExpr(cond)
	if err != nil {
		return err
	}
	falseReg := fc.fn.NewRegister()
	fc.fn.SetRegisterType(falseReg, ir.TypeBool)
	fc.fn.Emit(ir.LoadConst{Dest: falseReg, Value: ir.BoolConst(false)})
	op, _ := ir.CmpOpFor("eq", ir.TypeRef)
	fc.fn.Emit(ir.CmpJump{Op: op, Lhs: val, Rhs: falseReg, Target: target})
	return nil
}

func predicateFor(op ast.BinaryOp) (string, bool) {
	switch op {
	case ast.OpEq:
		return "eq", true
	case ast.OpNe:
		return "ne", true
	case ast.OpLt:
		return "lt", true
	case ast.OpGt:
		return "gt", true
	case ast.OpLe:
		return "le", true
	case ast.OpGe:
		return "ge", true
	default:
		return "", false
	}
}

func invertPredicate(p string) string {
	switch p {
	case "eq":
		return "ne"
	case "ne":
		return "eq"
	case "lt":
		return "ge"
	case "gt":
		return "le"
	case "le":
		return "gt"
	case "ge":
		return "lt"
	default:
		return p
	}
}

func (fc *funcContext) lowerReturn(s *ast.ReturnStatement) error {
	if s.Value == nil {
		fc.fn.Emit(ir.Return{Void: true})
		return nil
	}
	val, err := fc.lowerExpr(s.Value)
	if err != nil {
		return err
	}
	fc.fn.Emit(ir.Return{Value: val})
	return nil
}
