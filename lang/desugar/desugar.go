// Package desugar rewrites the structured control-flow constructs of
// lang/ast (while, infinite loop, statement-form if, break, continue) into
// a core IR of three pseudo-calls recognised by the compiler: label(name),
// goto(name), and ifnot(cond, name), plus the original primitive
// expressions (spec.md §4.3).
//
// Label names are generated from a single counter shared across an entire
// module, so two labels never collide even across different functions of
// the same module.
package desugar

import (
	"fmt"

	"github.com/aislang/aisl/lang/ast"
)

// Error is a compile-time desugaring failure: break/continue used outside
// any enclosing loop.
type Error struct {
	Pos ast.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg) }

// Desugarer tracks the freshly-generated label counter and the stack of
// enclosing loop contexts needed to resolve break/continue.
type Desugarer struct {
	counter int
	loops   []loopCtx
}

type loopCtx struct {
	start, end string
}

// New returns a Desugarer whose label counter starts at zero.
func New() *Desugarer { return &Desugarer{} }

func (d *Desugarer) freshLabel(prefix string) string {
	d.counter++
	return fmt.Sprintf("%s%d", prefix, d.counter)
}

// Module desugars every function body of m, returning a new Module value
// (the Defs slice and its FuncDefs are replaced; other AST nodes are shared
// where unmodified). m itself is not modified, and test-specs are carried
// over unchanged.
func (d *Desugarer) Module(m *ast.Module) (*ast.Module, error) {
	out := &ast.Module{Name: m.Name, Imports: m.Imports}
	for _, def := range m.Defs {
		switch {
		case def.Func != nil:
			body, err := d.stmt(def.Func.Body)
			if err != nil {
				return nil, err
			}
			nf := *def.Func
			nf.Body = body
			out.Defs = append(out.Defs, ast.Def{Func: &nf})
		case def.Test != nil:
			out.Defs = append(out.Defs, ast.Def{Test: def.Test})
		}
	}
	return out, nil
}

// stmt desugars e in "statement" position: if e is itself a control-flow
// construct that expands to multiple steps (while/loop/break/continue/
// statement-form if), the result is a Seq of the expanded steps; otherwise
// e is desugared recursively and returned unchanged in shape.
func (d *Desugarer) stmt(e ast.Expr) (ast.Expr, error) {
	steps, err := d.expand(e)
	if err != nil {
		return nil, err
	}
	if len(steps) == 1 {
		return steps[0], nil
	}
	return &ast.Seq{Exprs: steps}, nil
}

// expand returns the ordered list of steps e desugars to. Most expressions
// desugar to exactly one step (after recursively desugaring their
// children); control-flow constructs desugar to several.
func (d *Desugarer) expand(e ast.Expr) ([]ast.Expr, error) {
	switch n := e.(type) {
	case *ast.While:
		return d.expandWhile(n)
	case *ast.Loop:
		return d.expandLoop(n)
	case *ast.Cond:
		if n.Else == nil {
			return d.expandIfStmt(n)
		}
		test, err := d.stmt(n.Test)
		if err != nil {
			return nil, err
		}
		then, err := d.stmt(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := d.stmt(n.Else)
		if err != nil {
			return nil, err
		}
		nc := *n
		nc.Test, nc.Then, nc.Else = test, then, els
		return []ast.Expr{&nc}, nil
	case *ast.Break:
		if len(d.loops) == 0 {
			return nil, &Error{Pos: n.Pos(), Msg: "break outside of a loop"}
		}
		top := d.loops[len(d.loops)-1]
		return []ast.Expr{gotoCall(top.end)}, nil
	case *ast.Continue:
		if len(d.loops) == 0 {
			return nil, &Error{Pos: n.Pos(), Msg: "continue outside of a loop"}
		}
		top := d.loops[len(d.loops)-1]
		return []ast.Expr{gotoCall(top.start)}, nil
	case *ast.Seq:
		var out []ast.Expr
		for _, sub := range n.Exprs {
			sub2, err := d.expand(sub)
			if err != nil {
				return nil, err
			}
			out = append(out, sub2...)
		}
		return []ast.Expr{&ast.Seq{Exprs: out}}, nil
	case *ast.Let:
		bindings := make([]ast.Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			v, err := d.stmt(b.Value)
			if err != nil {
				return nil, err
			}
			bindings[i] = ast.Binding{Name: b.Name, Type: b.Type, Value: v}
		}
		body, err := d.stmt(n.Body)
		if err != nil {
			return nil, err
		}
		return []ast.Expr{&ast.Let{Bindings: bindings, Body: body}}, nil
	case *ast.Apply:
		callee, err := d.stmt(n.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i], err = d.stmt(a)
			if err != nil {
				return nil, err
			}
		}
		return []ast.Expr{&ast.Apply{Callee: callee, Args: args}}, nil
	case *ast.BinOp:
		left, err := d.stmt(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.stmt(n.Right)
		if err != nil {
			return nil, err
		}
		return []ast.Expr{&ast.BinOp{Op: n.Op, Left: left, Right: right}}, nil
	case *ast.Unary:
		x, err := d.stmt(n.X)
		if err != nil {
			return nil, err
		}
		return []ast.Expr{&ast.Unary{Op: n.Op, X: x}}, nil
	case *ast.Return:
		v, err := d.stmt(n.Value)
		if err != nil {
			return nil, err
		}
		return []ast.Expr{&ast.Return{Value: v}}, nil
	case *ast.IOPrim:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			v, err := d.stmt(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return []ast.Expr{&ast.IOPrim{Kind: n.Kind, Args: args}}, nil
	default:
		// literals and variable references carry no children.
		return []ast.Expr{e}, nil
	}
}

func (d *Desugarer) expandWhile(n *ast.While) ([]ast.Expr, error) {
	ls, le := d.freshLabel("Lwhile_start"), d.freshLabel("Lwhile_end")
	cond, err := d.stmt(n.Cond)
	if err != nil {
		return nil, err
	}
	d.loops = append(d.loops, loopCtx{start: ls, end: le})
	body, err := d.stmt(n.Body)
	if err != nil {
		return nil, err
	}
	d.loops = d.loops[:len(d.loops)-1]

	return []ast.Expr{
		labelCall(ls),
		ifnotCall(cond, le),
		body,
		gotoCall(ls),
		labelCall(le),
		&ast.UnitLit{},
	}, nil
}

func (d *Desugarer) expandLoop(n *ast.Loop) ([]ast.Expr, error) {
	ls, le := d.freshLabel("Lloop_start"), d.freshLabel("Lloop_end")
	d.loops = append(d.loops, loopCtx{start: ls, end: le})
	body, err := d.stmt(n.Body)
	if err != nil {
		return nil, err
	}
	d.loops = d.loops[:len(d.loops)-1]

	return []ast.Expr{
		labelCall(ls),
		body,
		gotoCall(ls),
		labelCall(le),
		&ast.UnitLit{},
	}, nil
}

func (d *Desugarer) expandIfStmt(n *ast.Cond) ([]ast.Expr, error) {
	ls := d.freshLabel("Lif_end")
	test, err := d.stmt(n.Test)
	if err != nil {
		return nil, err
	}
	then, err := d.stmt(n.Then)
	if err != nil {
		return nil, err
	}
	return []ast.Expr{
		ifnotCall(test, ls),
		then,
		labelCall(ls),
		&ast.UnitLit{},
	}, nil
}

func labelCall(name string) ast.Expr {
	return &ast.Apply{
		Callee: &ast.Var{Name: "label"},
		Args:   []ast.Expr{&ast.StringLit{Value: name}},
	}
}

func gotoCall(name string) ast.Expr {
	return &ast.Apply{
		Callee: &ast.Var{Name: "goto"},
		Args:   []ast.Expr{&ast.StringLit{Value: name}},
	}
}

func ifnotCall(cond ast.Expr, name string) ast.Expr {
	return &ast.Apply{
		Callee: &ast.Var{Name: "ifnot"},
		Args:   []ast.Expr{cond, &ast.StringLit{Value: name}},
	}
}

// IsControlPseudo reports whether e is a desugarer-produced label/goto/ifnot
// pseudo-call, recognised by the compiler as stack-neutral control flow
// rather than a value-producing expression (see lang/compiler).
func IsControlPseudo(e ast.Expr) (name string, ok bool) {
	app, ok := e.(*ast.Apply)
	if !ok {
		return "", false
	}
	v, ok := app.Callee.(*ast.Var)
	if !ok {
		return "", false
	}
	switch v.Name {
	case "label", "goto", "ifnot":
		return v.Name, true
	default:
		return "", false
	}
}
