// Package irbuilder lowers the AST contract defined in package ast into
// package ir's typed SSA form.
//
// Grounded on gvm/vm/exec.go's execNextInstruction switch-on-discriminant
// idiom, generalized here from "switch on opcode, run a handler" to
// "switch on ast.Kind (and, within expressions, on Go type), run a
// lowering function."
package irbuilder

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/jcnc-org/snow/ast"
	"github.com/jcnc-org/snow/ir"
)

// BuildProgram lowers a set of top-level AST roots (one per parsed
// module, typically) into an ir.Program. Pre-scan failures (a root of
// unrecognized kind, a module constant of an unsupported literal type)
// are aggregated via go-multierror rather than aborting on the first
// one, so a caller gets the full list of problems in a single pass.
// Struct names are not checked for duplicates: a later layout with the
// same name replaces the earlier one.
func BuildProgram(roots []ast.Node, logger hclog.Logger) (*ir.Program, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	prog := ir.NewProgram()
	b := &builder{prog: prog, log: logger.Named("irbuilder")}

	var errs *multierror.Error
	modules := make([]*ast.Module, 0, len(roots))
	for _, root := range roots {
		mod, ok := root.(*ast.Module)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("irbuilder: unsupported root kind %v", root.Kind()))
			continue
		}
		modules = append(modules, mod)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	// Pre-scan phase 1: struct layouts, so field-offset lookups during
	// the main pass never race a not-yet-registered struct.
	for _, mod := range modules {
		for _, sd := range mod.Structs {
			b.log.Debug("registering struct layout", "struct", sd.Name, "parent", sd.Parent)
			parent := ""
			if sd.Parent != "" {
				parent = mod.Name + "." + sd.Parent
			}
			prog.Structs.Register(mod.Name+"."+sd.Name, parent, sd.Fields)
		}
	}

	// Pre-scan phase 2: global constants and function return types, so
	// forward/mutual/cross-module references resolve regardless of
	// declaration order.
	for _, mod := range modules {
		for _, cd := range mod.Constants {
			fq := mod.Name + "." + cd.Name
			c, err := constFromAny(cd.Value)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("irbuilder: module %s const %s: %w", mod.Name, cd.Name, err))
				continue
			}
			prog.Constants.Register(fq, c)
		}
		for _, fd := range mod.Functions {
			fq := qualifiedName(mod.Name, fd)
			prog.Funcs.Register(fq, ir.ElemTypeFromName(fd.ReturnType))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	// Main pass: lower every function body.
	for _, mod := range modules {
		for _, fd := range mod.Functions {
			fn, err := b.buildFunction(mod, fd)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			prog.AddFunction(fn)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return prog, nil
}

func qualifiedName(moduleName string, fd *ast.FunctionDecl) string {
	if fd.ReceiverStruct != "" {
		return moduleName + "." + fd.ReceiverStruct + "." + fd.Name
	}
	return moduleName + "." + fd.Name
}

// constFromAny converts a pre-scanned Go literal (int64/float64/bool/
// string/[]any) into an ir.Const. Lists are folded element-by-element;
// an empty list defaults its element type to TypeRef since there is no
// element to infer a width from.
func constFromAny(v any) (ir.Const, error) {
	switch val := v.(type) {
	case int64:
		return ir.IntConst(ir.TypeLong, val), nil
	case int:
		return ir.IntConst(ir.TypeInt, int64(val)), nil
	case float64:
		return ir.FloatConst(ir.TypeDouble, val), nil
	case bool:
		return ir.BoolConst(val), nil
	case string:
		return ir.StringConst(val), nil
	case []any:
		elemType := ir.TypeRef
		elems := make([]ir.Const, 0, len(val))
		for i, e := range val {
			c, err := constFromAny(e)
			if err != nil {
				return ir.Const{}, err
			}
			if i == 0 {
				elemType = c.Type
			}
			elems = append(elems, c)
		}
		return ir.ListConst(elemType, elems), nil
	default:
		return ir.Const{}, fmt.Errorf("irbuilder: unsupported constant literal type %T", v)
	}
}

// builder holds the state shared across every function lowered from the
// same BuildProgram call: the program under construction and a logger.
// Per-function mutable state (the in-progress ir.Function, the scoped
// symbol table) lives in funcContext instead, so builder itself stays
// safe to reuse sequentially across functions.
type builder struct {
	prog *ir.Program
	log  hclog.Logger
}
