// Package sexpr is a minimal, peripheral S-expression reader that turns
// .aisl source text into the typed AST contract lang/compiler consumes.
// spec.md §1 marks the lexer/parser as an out-of-scope external
// collaborator with an unspecified concrete grammar; this package exists
// only so cmd/aislc and the end-to-end scenarios of spec.md §8 have a real
// front end to drive, not as a general-purpose language parser.
package sexpr

import (
	"strconv"
	"strings"

	"github.com/aislang/aisl/lang/ast"
)

// Read parses src (the contents of a .aisl source file) into the typed AST
// contract lang/compiler consumes. It implements the "minimal S-expression
// reader" described as peripheral front-end scaffolding: a handful of
// keyword heads (defn, let, if, while, loop, break, continue, return, seq,
// the I/O primitives, binary-op symbols, literals) and nothing else.
func Read(src []byte, filename string) (*ast.Module, error) {
	forms, err := readAll(src, filename)
	if err != nil {
		return nil, err
	}
	if len(forms) != 1 {
		return nil, &Error{Msg: "a source file must contain exactly one top-level (module ...) form"}
	}
	b := &builder{}
	return b.module(forms[0])
}

// builder tracks the lexical scope of declared variable types (function
// parameters and let bindings) so that a bare variable reference can be
// emitted as a correctly-typed ast.Var (spec.md's type-directed operator
// dispatch needs the operand's static type, not just its name). Compound
// expressions (BinOp, Apply, Cond, Seq, Unary results) are left Unknown:
// the reader infers types only for literals and variable references, so a
// polymorphic builtin (print, to_string, +, ...) applied directly to a
// compound sub-expression rather than a typed variable won't resolve --
// write `(let ((s <type> (+ a b))) (print s))` instead of `(print (+ a
// b))`.
type builder struct {
	scopes []map[string]ast.Type
}

func (b *builder) pushScope() { b.scopes = append(b.scopes, map[string]ast.Type{}) }
func (b *builder) popScope()  { b.scopes = b.scopes[:len(b.scopes)-1] }

func (b *builder) declare(name string, t ast.Type) {
	b.scopes[len(b.scopes)-1][name] = t
}

func (b *builder) lookup(name string) (ast.Type, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if t, ok := b.scopes[i][name]; ok {
			return t, true
		}
	}
	return ast.Unknown, false
}

func (b *builder) module(n node) (*ast.Module, error) {
	if n.isAtom || len(n.list) < 2 {
		return nil, &Error{Pos: n.pos, Msg: "expected (module <name> ...)"}
	}
	if head(n) != "module" {
		return nil, &Error{Pos: n.pos, Msg: "expected top-level (module ...) form"}
	}
	nameNode := n.list[1]
	if !nameNode.isAtom {
		return nil, &Error{Pos: nameNode.pos, Msg: "module name must be a symbol"}
	}
	m := &ast.Module{Name: nameNode.atom}
	for _, d := range n.list[2:] {
		if d.isAtom {
			return nil, &Error{Pos: d.pos, Msg: "expected an (import ...), (defn ...), or (test ...) form"}
		}
		switch head(d) {
		case "import":
			for _, imp := range d.list[1:] {
				if !imp.isAtom {
					return nil, &Error{Pos: imp.pos, Msg: "import name must be a symbol"}
				}
				m.Imports = append(m.Imports, imp.atom)
			}
		case "defn":
			fn, err := b.funcDef(d)
			if err != nil {
				return nil, err
			}
			m.Defs = append(m.Defs, ast.Def{Func: fn})
		case "test":
			ts, err := b.testSpec(d)
			if err != nil {
				return nil, err
			}
			m.Defs = append(m.Defs, ast.Def{Test: ts})
		default:
			return nil, &Error{Pos: d.pos, Msg: "unknown module-level form " + head(d)}
		}
	}
	return m, nil
}

// head returns the leading symbol of a list node, or "" if n is not a
// non-empty list starting with an atom.
func head(n node) string {
	if n.isAtom || len(n.list) == 0 || !n.list[0].isAtom {
		return ""
	}
	return n.list[0].atom
}

var typeNames = map[string]ast.Type{
	"int":     ast.Int,
	"float":   ast.Float,
	"bool":    ast.Bool,
	"string":  ast.String,
	"unit":    ast.Unit,
	"decimal": ast.Decimal,
	"array":   ast.Array,
	"map":     ast.Map,
	"json":    ast.JSON,
}

func buildType(n node) (ast.Type, error) {
	if !n.isAtom {
		return ast.Unknown, &Error{Pos: n.pos, Msg: "expected a type name"}
	}
	t, ok := typeNames[n.atom]
	if !ok {
		return ast.Unknown, &Error{Pos: n.pos, Msg: "unknown type " + n.atom}
	}
	return t, nil
}

// funcDef reads (defn <name> ((<pname> <ptype>)*) <returnType> <body>).
func (b *builder) funcDef(n node) (*ast.FuncDef, error) {
	if len(n.list) != 5 {
		return nil, &Error{Pos: n.pos, Msg: "expected (defn <name> (<params>) <return-type> <body>)"}
	}
	nameNode, paramsNode, retNode, bodyNode := n.list[1], n.list[2], n.list[3], n.list[4]
	if !nameNode.isAtom {
		return nil, &Error{Pos: nameNode.pos, Msg: "function name must be a symbol"}
	}
	if paramsNode.isAtom {
		return nil, &Error{Pos: paramsNode.pos, Msg: "expected a parameter list"}
	}
	params := make([]ast.Param, len(paramsNode.list))
	for i, p := range paramsNode.list {
		if p.isAtom || len(p.list) != 2 || !p.list[0].isAtom {
			return nil, &Error{Pos: p.pos, Msg: "expected (<param-name> <type>)"}
		}
		t, err := buildType(p.list[1])
		if err != nil {
			return nil, err
		}
		params[i] = ast.Param{Name: p.list[0].atom, Type: t}
	}
	retType, err := buildType(retNode)
	if err != nil {
		return nil, err
	}

	b.pushScope()
	for _, p := range params {
		b.declare(p.Name, p.Type)
	}
	body, err := b.expr(bodyNode)
	b.popScope()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{Name: nameNode.atom, Params: params, ReturnType: retType, Body: body}, nil
}

// testSpec reads (test <target> (case "<desc>" (<args>) <expected>)*).
func (b *builder) testSpec(n node) (*ast.TestSpec, error) {
	if len(n.list) < 2 || !n.list[1].isAtom {
		return nil, &Error{Pos: n.pos, Msg: "expected (test <target-function> ...)"}
	}
	ts := &ast.TestSpec{Target: n.list[1].atom}
	b.pushScope()
	defer b.popScope()
	for _, c := range n.list[2:] {
		if c.isAtom || head(c) != "case" || len(c.list) != 4 {
			return nil, &Error{Pos: c.pos, Msg: "expected (case \"description\" (<args>) <expected>)"}
		}
		descNode, argsNode, expNode := c.list[1], c.list[2], c.list[3]
		desc, ok := stringLitValue(descNode)
		if !ok {
			return nil, &Error{Pos: descNode.pos, Msg: "case description must be a string literal"}
		}
		if argsNode.isAtom {
			return nil, &Error{Pos: argsNode.pos, Msg: "expected an argument list"}
		}
		args := make([]ast.Expr, len(argsNode.list))
		for i, a := range argsNode.list {
			e, err := b.expr(a)
			if err != nil {
				return nil, err
			}
			args[i] = e
		}
		expected, err := b.expr(expNode)
		if err != nil {
			return nil, err
		}
		ts.Cases = append(ts.Cases, ast.TestCase{Description: desc, Args: args, Expected: expected})
	}
	return ts, nil
}

func stringLitValue(n node) (string, bool) {
	if !n.isAtom || !strings.HasPrefix(n.atom, "\"") {
		return "", false
	}
	return n.atom[1:], true
}

var binOpSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"and": true, "or": true,
}

var ioKinds = map[string]ast.IOKind{
	"io-open":  ast.IOOpen,
	"io-read":  ast.IORead,
	"io-write": ast.IOWrite,
	"io-close": ast.IOClose,
}

// expr reads one body expression. Literals, variable references, and the
// keyword forms listed in SPEC_FULL.md's front-end section are recognised;
// anything else with a symbol head is an ordinary function or builtin
// call, left for lang/compiler to resolve by name.
func (b *builder) expr(n node) (ast.Expr, error) {
	if n.isAtom {
		return b.atomExpr(n)
	}
	if len(n.list) == 0 {
		return nil, &Error{Pos: n.pos, Msg: "empty form"}
	}
	h := head(n)

	if binOpSymbols[h] {
		if len(n.list) != 3 {
			return nil, &Error{Pos: n.pos, Msg: h + " expects exactly two operands"}
		}
		left, err := b.expr(n.list[1])
		if err != nil {
			return nil, err
		}
		right, err := b.expr(n.list[2])
		if err != nil {
			return nil, err
		}
		return &ast.BinOp{Op: h, Left: left, Right: right}, nil
	}
	if kind, ok := ioKinds[h]; ok {
		args, err := b.exprList(n.list[1:])
		if err != nil {
			return nil, err
		}
		return &ast.IOPrim{Kind: kind, Args: args}, nil
	}

	switch h {
	case "not", "neg":
		if len(n.list) != 2 {
			return nil, &Error{Pos: n.pos, Msg: h + " expects exactly one operand"}
		}
		x, err := b.expr(n.list[1])
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: h, X: x}, nil
	case "let":
		return b.let(n)
	case "if":
		return b.cond(n)
	case "while":
		if len(n.list) != 3 {
			return nil, &Error{Pos: n.pos, Msg: "expected (while <cond> <body>)"}
		}
		cond, err := b.expr(n.list[1])
		if err != nil {
			return nil, err
		}
		body, err := b.expr(n.list[2])
		if err != nil {
			return nil, err
		}
		return &ast.While{Cond: cond, Body: body}, nil
	case "loop":
		if len(n.list) != 2 {
			return nil, &Error{Pos: n.pos, Msg: "expected (loop <body>)"}
		}
		body, err := b.expr(n.list[1])
		if err != nil {
			return nil, err
		}
		return &ast.Loop{Body: body}, nil
	case "break":
		return &ast.Break{}, nil
	case "continue":
		return &ast.Continue{}, nil
	case "return":
		if len(n.list) != 2 {
			return nil, &Error{Pos: n.pos, Msg: "expected (return <value>)"}
		}
		v, err := b.expr(n.list[1])
		if err != nil {
			return nil, err
		}
		return &ast.Return{Value: v}, nil
	case "seq":
		exprs, err := b.exprList(n.list[1:])
		if err != nil {
			return nil, err
		}
		return &ast.Seq{Exprs: exprs}, nil
	default:
		return b.apply(n)
	}
}

func (b *builder) exprList(ns []node) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(ns))
	for i, n := range ns {
		e, err := b.expr(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// let reads (let ((<name> <type> <value>)*) <body>); each binding's value
// is read in the scope of the bindings declared before it (sequential let,
// not parallel), matching lang/compiler's compileLet which stores each one
// to its own slot in order.
func (b *builder) let(n node) (ast.Expr, error) {
	if len(n.list) != 3 {
		return nil, &Error{Pos: n.pos, Msg: "expected (let ((<bindings>)) <body>)"}
	}
	bindingsNode, bodyNode := n.list[1], n.list[2]
	if bindingsNode.isAtom {
		return nil, &Error{Pos: bindingsNode.pos, Msg: "expected a binding list"}
	}
	b.pushScope()
	defer b.popScope()

	bindings := make([]ast.Binding, len(bindingsNode.list))
	for i, bn := range bindingsNode.list {
		if bn.isAtom || len(bn.list) != 3 || !bn.list[0].isAtom {
			return nil, &Error{Pos: bn.pos, Msg: "expected (<name> <type> <value>)"}
		}
		t, err := buildType(bn.list[1])
		if err != nil {
			return nil, err
		}
		v, err := b.expr(bn.list[2])
		if err != nil {
			return nil, err
		}
		bindings[i] = ast.Binding{Name: bn.list[0].atom, Type: t, Value: v}
		b.declare(bn.list[0].atom, t)
	}
	body, err := b.expr(bodyNode)
	if err != nil {
		return nil, err
	}
	return &ast.Let{Bindings: bindings, Body: body}, nil
}

// cond reads (if <test> <then>) as a statement-form if (desugar.go lowers
// it to ifnot+label), or (if <test> <then> <else>) as the expression form
// with both arms.
func (b *builder) cond(n node) (ast.Expr, error) {
	if len(n.list) != 3 && len(n.list) != 4 {
		return nil, &Error{Pos: n.pos, Msg: "expected (if <test> <then>) or (if <test> <then> <else>)"}
	}
	test, err := b.expr(n.list[1])
	if err != nil {
		return nil, err
	}
	then, err := b.expr(n.list[2])
	if err != nil {
		return nil, err
	}
	c := &ast.Cond{Test: test, Then: then}
	if len(n.list) == 4 {
		els, err := b.expr(n.list[3])
		if err != nil {
			return nil, err
		}
		c.Else = els
	}
	return c, nil
}

func (b *builder) apply(n node) (ast.Expr, error) {
	if !n.list[0].isAtom {
		return nil, &Error{Pos: n.list[0].pos, Msg: "call target must be a name"}
	}
	args, err := b.exprList(n.list[1:])
	if err != nil {
		return nil, err
	}
	return &ast.Apply{Callee: &ast.Var{Name: n.list[0].atom}, Args: args}, nil
}

func (b *builder) atomExpr(n node) (ast.Expr, error) {
	if strings.HasPrefix(n.atom, "\"") {
		return ast.NewStringLit(n.atom[1:]), nil
	}
	switch n.atom {
	case "true":
		return ast.NewBoolLit(true), nil
	case "false":
		return ast.NewBoolLit(false), nil
	case "unit":
		return ast.NewUnitLit(), nil
	}
	if iv, err := strconv.ParseInt(n.atom, 10, 64); err == nil {
		return ast.NewIntLit(iv), nil
	}
	if fv, err := strconv.ParseFloat(n.atom, 64); err == nil && strings.ContainsAny(n.atom, ".eE") {
		return ast.NewFloatLit(fv), nil
	}
	if t, ok := b.lookup(n.atom); ok {
		return ast.NewTypedVar(n.atom, t), nil
	}
	return &ast.Var{Name: n.atom}, nil
}
