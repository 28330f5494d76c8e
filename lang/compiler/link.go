package compiler

import (
	"fmt"

	"github.com/aislang/aisl/lang/ast"
	"github.com/aislang/aisl/lang/bytecode"
	"github.com/aislang/aisl/lang/desugar"
	"github.com/aislang/aisl/lang/loader"
)

// CompileEntry loads entryName and its full transitive import closure via
// l, synthesizes a test-spec main for the entry module if it declares
// tests and has no main of its own, desugars every module with a single
// shared label counter, and links them into one Program. A non-entry
// module's functions are visible to callers under "<module>.<func>"; the
// entry module's own functions are visible unqualified, matching how a
// script invokes its own top-level definitions.
func CompileEntry(l *loader.Loader, entryName string) (*bytecode.Program, error) {
	if _, err := l.Load(entryName); err != nil {
		return nil, err
	}
	order, err := l.Closure(entryName)
	if err != nil {
		return nil, err
	}

	mods := make(map[string]*ast.Module, len(order))
	for _, name := range order {
		mod, _ := l.Cached(name)
		mods[name] = mod
	}
	return linkUnits(entryName, order, mods)
}

// CompileStandalone compiles a single module with no imports; it is the
// entry point used by tests and by one-off scripts run without a search
// path (the compiler still runs the synthetic test-spec main machinery and
// the same two-pass linker, with a dependency closure of exactly one
// module).
func CompileStandalone(mod *ast.Module) (*bytecode.Program, error) {
	name := mod.Name
	if name == "" {
		name = "main"
	}
	return linkUnits(name, []string{name}, map[string]*ast.Module{name: mod})
}

func linkUnits(entryName string, order []string, mods map[string]*ast.Module) (*bytecode.Program, error) {
	d := desugar.New()
	c := newCompiler()

	type unit struct {
		name string
		mod  *ast.Module
	}
	var units []unit

	for _, name := range order {
		mod := mods[name]
		if name == entryName {
			if err := ensureMain(mod); err != nil {
				return nil, err
			}
		}
		desugared, err := d.Module(mod)
		if err != nil {
			return nil, fmt.Errorf("desugaring %s: %w", name, err)
		}
		units = append(units, unit{name: name, mod: desugared})
	}

	// Pass 1: assign every function across every linked module a stable
	// index and record its arity before any body is emitted, so a call can
	// target a function compiled earlier or later, in this module or another.
	for _, u := range units {
		qualify := qualifier(u.name, entryName)
		for _, def := range u.mod.Defs {
			if def.Func == nil {
				continue
			}
			qname := qualify(def.Func.Name)
			if _, dup := c.funcIndex[qname]; dup {
				return nil, fmt.Errorf("duplicate function %q", qname)
			}
			idx := len(c.prog.Functions)
			c.funcIndex[qname] = idx
			c.prog.Functions = append(c.prog.Functions, bytecode.FunctionEntry{
				Name:       qname,
				ParamCount: uint32(len(def.Func.Params)),
			})
		}
	}

	// Pass 2: emit every function body now that every call target resolves.
	for _, u := range units {
		qualify := qualifier(u.name, entryName)
		for _, def := range u.mod.Defs {
			if def.Func == nil {
				continue
			}
			if err := c.emitFunction(def.Func, qualify(def.Func.Name)); err != nil {
				return nil, err
			}
		}
	}

	if err := c.prog.ValidateJumps(); err != nil {
		return nil, err
	}
	return c.prog, nil
}

func qualifier(moduleName, entryName string) func(fn string) string {
	if moduleName == entryName {
		return func(fn string) string { return fn }
	}
	return func(fn string) string { return moduleName + "." + fn }
}

// ensureMain appends a synthetic main FuncDef to mod, built from its
// test-specs, if mod declares at least one test-spec and has no main of
// its own (spec.md's test-spec entry synthesis).
func ensureMain(mod *ast.Module) error {
	for _, def := range mod.Defs {
		if def.Func != nil && def.Func.Name == "main" {
			return nil
		}
	}
	var specs []*ast.TestSpec
	for _, def := range mod.Defs {
		if def.Test != nil {
			specs = append(specs, def.Test)
		}
	}
	if len(specs) == 0 {
		return nil
	}

	var stmts []ast.Expr
	for si, spec := range specs {
		for ci, tc := range spec.Cases {
			stmt, err := synthesizeCase(spec.Target, tc, fmt.Sprintf("_result_%d_%d", si, ci))
			if err != nil {
				return err
			}
			stmts = append(stmts, stmt)
		}
	}
	stmts = append(stmts, ast.NewIntLit(0))

	mod.Defs = append(mod.Defs, ast.Def{Func: &ast.FuncDef{
		Name:       "main",
		ReturnType: ast.Int,
		Body:       &ast.Seq{Exprs: stmts},
	}})
	return nil
}

// synthesizeCase builds the statement that runs one test case: print its
// description, call the target with its literal arguments, bind the
// result to tmpName, and compare it to the expected literal.
func synthesizeCase(target string, tc ast.TestCase, tmpName string) (ast.Expr, error) {
	resultType := tc.Expected.StaticType()

	call := &ast.Apply{Callee: &ast.Var{Name: target}, Args: tc.Args}

	printDesc := &ast.Apply{
		Callee: &ast.Var{Name: "print"},
		Args:   []ast.Expr{ast.NewStringLit(tc.Description + "\n")},
	}

	cmp := &ast.BinOp{
		Op:    "=",
		Left:  ast.NewTypedVar(tmpName, resultType),
		Right: tc.Expected,
	}

	mismatch := &ast.Seq{Exprs: []ast.Expr{
		&ast.Apply{Callee: &ast.Var{Name: "print"}, Args: []ast.Expr{ast.NewStringLit("  - Expected: ")}},
		&ast.Apply{Callee: &ast.Var{Name: "print"}, Args: []ast.Expr{tc.Expected}},
		&ast.Apply{Callee: &ast.Var{Name: "print"}, Args: []ast.Expr{ast.NewStringLit(", Got: ")}},
		&ast.Apply{Callee: &ast.Var{Name: "print"}, Args: []ast.Expr{ast.NewTypedVar(tmpName, resultType)}},
		&ast.Apply{Callee: &ast.Var{Name: "print"}, Args: []ast.Expr{ast.NewStringLit("\n")}},
	}}
	match := &ast.Apply{
		Callee: &ast.Var{Name: "print"},
		Args:   []ast.Expr{ast.NewStringLit("  - PASS\n")},
	}

	check := &ast.Let{
		Bindings: []ast.Binding{{Name: tmpName, Type: resultType, Value: call}},
		Body:     &ast.Cond{Test: cmp, Then: match, Else: mismatch},
	}

	return &ast.Seq{Exprs: []ast.Expr{printDesc, check}}, nil
}
