// Package compiler lowers a desugared AST (see lang/desugar) into a
// bytecode.Program. It is a two-pass compiler: the first pass walks every
// function definition in the modules being linked and assigns each one a
// stable index in the program's function table, so that a call to a
// function declared later in the same module, or in another module, needs
// no forward-reference patching; the second pass emits each function
// body's instructions in turn.
//
// Within a function body, labels and jumps are resolved with a simple
// label-table-plus-pending-jump-list scheme rather than a basic-block
// control-flow graph: every label(name) pseudo-call records its address as
// soon as it is emitted, and every goto(name)/ifnot(cond,name) records a
// (name, instruction index) pending fixup; once the whole body has been
// emitted, every pending fixup is patched against the label table, and an
// unresolved label name at that point is a compile error.
package compiler

import (
	"fmt"

	"github.com/aislang/aisl/lang/ast"
	"github.com/aislang/aisl/lang/bytecode"
	"github.com/aislang/aisl/lang/desugar"
)

// Error is a compile-time failure: an undefined variable or label, an
// arity mismatch, or an operator applied to a static type it has no typed
// opcode for.
type Error struct {
	Pos ast.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg) }

func errf(pos ast.Position, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// compiler holds the state shared by every function of a single module
// being compiled: the program under construction, a string-pool dedup
// table, and the name->index map of every function visible for CALL
// (every function of every module being linked, registered by linkUnits'
// first pass).
type compiler struct {
	prog      *bytecode.Program
	strPool   map[string]uint32
	funcIndex map[string]int
}

func newCompiler() *compiler {
	return &compiler{
		prog:      &bytecode.Program{},
		strPool:   make(map[string]uint32),
		funcIndex: make(map[string]int),
	}
}

func (c *compiler) internString(s string) uint32 {
	if idx, ok := c.strPool[s]; ok {
		return idx
	}
	idx := uint32(len(c.prog.Strings))
	c.prog.Strings = append(c.prog.Strings, s)
	c.strPool[s] = idx
	return idx
}

// scope is one lexical block of locals, introduced by a Let or by a
// function's parameter list.
type scope struct {
	names map[string]uint32
}

// fcomp holds the state of compiling a single function body.
type fcomp struct {
	c       *compiler
	name    string
	scopes  []scope
	nextLoc uint32

	labels  map[string]uint32
	pending []pendingJump
}

type pendingJump struct {
	label string
	addr  uint32 // index of the instruction whose operand needs patching
}

func newFcomp(c *compiler, name string) *fcomp {
	return &fcomp{c: c, name: name, labels: make(map[string]uint32)}
}

func (f *fcomp) pushScope() { f.scopes = append(f.scopes, scope{names: make(map[string]uint32)}) }
func (f *fcomp) popScope()  { f.scopes = f.scopes[:len(f.scopes)-1] }

func (f *fcomp) declareLocal(name string) uint32 {
	slot := f.nextLoc
	f.nextLoc++
	f.scopes[len(f.scopes)-1].names[name] = slot
	return slot
}

func (f *fcomp) resolveLocal(name string) (uint32, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if slot, ok := f.scopes[i].names[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func (f *fcomp) emit(in bytecode.Instruction) uint32 {
	addr := uint32(len(f.c.prog.Instructions))
	f.c.prog.Instructions = append(f.c.prog.Instructions, in)
	return addr
}

// emitFunction compiles fn's body into the program, recording its entry in
// the function table at the index already assigned by linkUnits' first pass.
func (c *compiler) emitFunction(fn *ast.FuncDef, qualifiedName string) error {
	start := uint32(len(c.prog.Instructions))
	f := newFcomp(c, qualifiedName)
	f.pushScope()
	for _, p := range fn.Params {
		f.declareLocal(p.Name)
	}

	if err := f.compileStmt(fn.Body); err != nil {
		return err
	}
	f.emit(bytecode.Simple(bytecode.RETURN))
	f.popScope()

	if err := f.resolvePending(); err != nil {
		return err
	}

	idx := c.funcIndex[qualifiedName]
	c.prog.Functions[idx] = bytecode.FunctionEntry{
		Name:       qualifiedName,
		StartAddr:  start,
		LocalCount: f.nextLoc,
		ParamCount: uint32(len(fn.Params)),
	}
	return nil
}

func (f *fcomp) resolvePending() error {
	for _, p := range f.pending {
		target, ok := f.labels[p.label]
		if !ok {
			return errf(ast.Position{}, "function %s: undefined label %q", f.name, p.label)
		}
		in := f.c.prog.Instructions[p.addr]
		f.c.prog.Instructions[p.addr] = bytecode.Jump(in.Op, target)
	}
	return nil
}

// compileStmt compiles e for its side effects, leaving exactly one value on
// the stack (unit, if e has none) -- the "value of a statement" contract
// that Seq relies on to decide whether to POP a non-final element.
func (f *fcomp) compileStmt(e ast.Expr) error {
	return f.compileSeqElem(e, false)
}

// compileSeqElem compiles e as one element of a Seq. When notLast is true
// and e produced a value (i.e. it is not a control pseudo-call), the value
// is popped immediately after.
func (f *fcomp) compileSeqElem(e ast.Expr, notLast bool) error {
	if name, ok := desugar.IsControlPseudo(e); ok {
		return f.compileControlPseudo(name, e.(*ast.Apply))
	}
	if err := f.compileExpr(e); err != nil {
		return err
	}
	if notLast {
		f.emit(bytecode.Simple(bytecode.POP))
	}
	return nil
}

func (f *fcomp) compileControlPseudo(name string, app *ast.Apply) error {
	label := app.Args[len(app.Args)-1].(*ast.StringLit).Value
	switch name {
	case "label":
		f.labels[label] = uint32(len(f.c.prog.Instructions))
	case "goto":
		addr := f.emit(bytecode.Jump(bytecode.JUMP, bytecode.PendingJumpSentinel))
		f.pending = append(f.pending, pendingJump{label: label, addr: addr})
	case "ifnot":
		if err := f.compileExpr(app.Args[0]); err != nil {
			return err
		}
		addr := f.emit(bytecode.Jump(bytecode.JUMP_IF_FALSE, bytecode.PendingJumpSentinel))
		f.pending = append(f.pending, pendingJump{label: label, addr: addr})
	}
	return nil
}

// compileExpr compiles e, leaving exactly one value on the stack. Unlike
// compileStmt, e here is never itself a label/goto/ifnot pseudo-call: those
// are only ever produced by the desugarer at statement position.
func (f *fcomp) compileExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.IntLit:
		f.emit(bytecode.PushInt(n.Value))
	case *ast.FloatLit:
		f.emit(bytecode.PushFloat(n.Value))
	case *ast.BoolLit:
		f.emit(bytecode.PushBool(n.Value))
	case *ast.UnitLit:
		f.emit(bytecode.Simple(bytecode.PUSH_UNIT))
	case *ast.StringLit:
		idx := f.c.internString(n.Value)
		f.emit(bytecode.PushString(idx))
	case *ast.Var:
		slot, ok := f.resolveLocal(n.Name)
		if !ok {
			return errf(n.Pos(), "undefined variable %q", n.Name)
		}
		f.emit(bytecode.U32(bytecode.LOAD_LOCAL, slot))
	case *ast.BinOp:
		return f.compileBinOp(n)
	case *ast.Unary:
		return f.compileUnary(n)
	case *ast.Seq:
		return f.compileSeq(n)
	case *ast.Let:
		return f.compileLet(n)
	case *ast.Cond:
		return f.compileCondExpr(n)
	case *ast.Apply:
		return f.compileApply(n)
	case *ast.Return:
		if err := f.compileExpr(n.Value); err != nil {
			return err
		}
		f.emit(bytecode.Simple(bytecode.RETURN))
	case *ast.IOPrim:
		return f.compileIOPrim(n)
	default:
		return errf(e.Pos(), "compiler: unsupported expression %T", e)
	}
	return nil
}

func (f *fcomp) compileSeq(n *ast.Seq) error {
	if len(n.Exprs) == 0 {
		f.emit(bytecode.Simple(bytecode.PUSH_UNIT))
		return nil
	}
	for i, sub := range n.Exprs {
		if err := f.compileSeqElem(sub, i != len(n.Exprs)-1); err != nil {
			return err
		}
	}
	return nil
}

func (f *fcomp) compileLet(n *ast.Let) error {
	f.pushScope()
	for _, b := range n.Bindings {
		if err := f.compileExpr(b.Value); err != nil {
			return err
		}
		slot := f.declareLocal(b.Name)
		f.emit(bytecode.U32(bytecode.STORE_LOCAL, slot))
	}
	if err := f.compileExpr(n.Body); err != nil {
		return err
	}
	f.popScope()
	return nil
}

// compileCondExpr compiles an if/then/else with both arms present -- the
// expression form, which the desugarer leaves untouched and the compiler
// lowers directly with its own pair of jumps (spec.md §4.4).
func (f *fcomp) compileCondExpr(n *ast.Cond) error {
	if err := f.compileExpr(n.Test); err != nil {
		return err
	}
	jElse := f.emit(bytecode.Jump(bytecode.JUMP_IF_FALSE, bytecode.PendingJumpSentinel))
	if err := f.compileExpr(n.Then); err != nil {
		return err
	}
	jEnd := f.emit(bytecode.Jump(bytecode.JUMP, bytecode.PendingJumpSentinel))
	elseAddr := uint32(len(f.c.prog.Instructions))
	if err := f.compileExpr(n.Else); err != nil {
		return err
	}
	endAddr := uint32(len(f.c.prog.Instructions))
	f.c.prog.Instructions[jElse] = bytecode.Jump(bytecode.JUMP_IF_FALSE, elseAddr)
	f.c.prog.Instructions[jEnd] = bytecode.Jump(bytecode.JUMP, endAddr)
	return nil
}

func (f *fcomp) compileBinOp(n *ast.BinOp) error {
	switch n.Op {
	case "and":
		return f.compileShortCircuit(n, true)
	case "or":
		return f.compileShortCircuit(n, false)
	}
	if err := f.compileExpr(n.Left); err != nil {
		return err
	}
	if err := f.compileExpr(n.Right); err != nil {
		return err
	}
	family, ok := binOps[n.Op]
	if !ok {
		return errf(n.Pos(), "unknown operator %q", n.Op)
	}
	t := n.Left.StaticType()
	op, ok := family[t]
	if !ok {
		return errf(n.Pos(), "operator %q has no implementation for type %s", n.Op, t)
	}
	f.emit(bytecode.Simple(op))
	return nil
}

// compileShortCircuit compiles "and"/"or" by branching before evaluating
// the right operand; the AND_BOOL/OR_BOOL opcodes still exist for any
// caller that already has both operands on the stack (e.g. a desugared
// ifnot condition built from a precomputed bool), but the natural compiled
// form of the source-level operators must not evaluate the right side
// unless needed.
func (f *fcomp) compileShortCircuit(n *ast.BinOp, isAnd bool) error {
	if err := f.compileExpr(n.Left); err != nil {
		return err
	}
	f.emit(bytecode.Simple(bytecode.DUP))
	if isAnd {
		f.emit(bytecode.Simple(bytecode.NOT_BOOL))
	}
	jShort := f.emit(bytecode.Jump(bytecode.JUMP_IF_TRUE, bytecode.PendingJumpSentinel))
	f.emit(bytecode.Simple(bytecode.POP))
	if err := f.compileExpr(n.Right); err != nil {
		return err
	}
	end := uint32(len(f.c.prog.Instructions))
	f.c.prog.Instructions[jShort] = bytecode.Jump(bytecode.JUMP_IF_TRUE, end)
	return nil
}

func (f *fcomp) compileUnary(n *ast.Unary) error {
	if n.Op == "not" {
		if err := f.compileExpr(n.X); err != nil {
			return err
		}
		f.emit(bytecode.Simple(bytecode.NOT_BOOL))
		return nil
	}
	if err := f.compileExpr(n.X); err != nil {
		return err
	}
	family, ok := unaryOps[n.Op]
	if !ok {
		return errf(n.Pos(), "unknown unary operator %q", n.Op)
	}
	op, ok := family[n.X.StaticType()]
	if !ok {
		return errf(n.Pos(), "operator %q has no implementation for type %s", n.Op, n.X.StaticType())
	}
	f.emit(bytecode.Simple(op))
	return nil
}

func (f *fcomp) compileApply(n *ast.Apply) error {
	callee, ok := n.Callee.(*ast.Var)
	if !ok {
		return errf(n.Pos(), "call target must be a function name")
	}

	if b, ok := builtins[callee.Name]; ok {
		return f.compileBuiltin(callee.Name, b, n)
	}
	if callee.Name == "host_call" {
		return f.compileHostCall(n)
	}

	idx, ok := f.c.funcIndex[callee.Name]
	if !ok {
		return errf(n.Pos(), "undefined function %q", callee.Name)
	}
	if want := int(f.c.prog.Functions[idx].ParamCount); len(n.Args) != want {
		return errf(n.Pos(), "%s expects %d argument(s), got %d", callee.Name, want, len(n.Args))
	}
	for _, a := range n.Args {
		if err := f.compileExpr(a); err != nil {
			return err
		}
	}
	f.emit(bytecode.Call(uint32(idx), uint32(len(n.Args))))
	return nil
}

func (f *fcomp) compileBuiltin(name string, b builtin, n *ast.Apply) error {
	if len(n.Args) != b.arity {
		return errf(n.Pos(), "%s expects %d argument(s), got %d", name, b.arity, len(n.Args))
	}
	for _, a := range n.Args {
		if err := f.compileExpr(a); err != nil {
			return err
		}
	}
	op := b.op
	if b.resolve != nil {
		var t ast.Type
		if len(n.Args) > 0 {
			t = n.Args[0].StaticType()
		}
		resolved, ok := b.resolve(t)
		if !ok {
			return errf(n.Pos(), "%s has no implementation for type %s", name, t)
		}
		op = resolved
	}
	f.emit(bytecode.Simple(op))
	return nil
}

// compileHostCall compiles host_call(<op id literal>, args...): the first
// argument must be a compile-time integer literal naming the host
// operation (see lang/host's descriptor table); the rest are pushed as the
// call's arguments, popped by the VM per the descriptor's declared arity.
func (f *fcomp) compileHostCall(n *ast.Apply) error {
	if len(n.Args) == 0 {
		return errf(n.Pos(), "host_call requires at least an operation id")
	}
	idLit, ok := n.Args[0].(*ast.IntLit)
	if !ok {
		return errf(n.Pos(), "host_call's first argument must be a literal host operation id")
	}
	for _, a := range n.Args[1:] {
		if err := f.compileExpr(a); err != nil {
			return err
		}
	}
	f.emit(bytecode.U32(bytecode.HOST_CALL, uint32(idLit.Value)))
	return nil
}

func (f *fcomp) compileIOPrim(n *ast.IOPrim) error {
	for _, a := range n.Args {
		if err := f.compileExpr(a); err != nil {
			return err
		}
	}
	switch n.Kind {
	case ast.IOOpen:
		f.emit(bytecode.Simple(bytecode.IO_OPEN))
	case ast.IORead:
		f.emit(bytecode.Simple(bytecode.IO_READ))
	case ast.IOWrite:
		f.emit(bytecode.Simple(bytecode.IO_WRITE))
	case ast.IOClose:
		f.emit(bytecode.Simple(bytecode.IO_CLOSE))
	default:
		return errf(n.Pos(), "unknown io primitive")
	}
	return nil
}
