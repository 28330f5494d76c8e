// Package ast defines the typed AST contract that the compiler consumes.
// spec.md §1 treats the lexer and parser that produce this tree as an
// out-of-scope external collaborator; this package only describes the
// shape of their output; see lang/sexpr for a minimal, peripheral producer
// used by the CLI and by end-to-end tests.
package ast

// Type is the static type annotation an expression may carry.
type Type int

const (
	// Unknown means no static type annotation was given; the compiler's
	// type-directed dispatch falls back to its default-typing rules
	// (spec.md §4.4).
	Unknown Type = iota
	Int
	Float
	Bool
	String
	Unit
	Decimal
	Array
	Map
	JSON
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Unit:
		return "unit"
	case Decimal:
		return "decimal"
	case Array:
		return "array"
	case Map:
		return "map"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// Position is a source location, used only for diagnostics.
type Position struct {
	Line, Col int
}

// Expr is the tagged-variant interface every AST expression implements.
type Expr interface {
	exprNode()
	// Pos returns the expression's source position for diagnostics.
	Pos() Position
	// StaticType returns the expression's declared static type, or Unknown
	// if none was annotated.
	StaticType() Type
}

type base struct {
	Position Position
	Type     Type
}

func (b base) Pos() Position    { return b.Position }
func (b base) StaticType() Type { return b.Type }
func (base) exprNode()          {}

// IntLit is an integer literal.
type IntLit struct {
	base
	Value int64
}

// NewIntLit returns an IntLit whose static type is already set to Int, as
// a real front end would produce for any bare integer literal.
func NewIntLit(v int64) *IntLit { return &IntLit{base: base{Type: Int}, Value: v} }

// FloatLit is a floating-point literal.
type FloatLit struct {
	base
	Value float64
}

// NewFloatLit returns a FloatLit with static type Float.
func NewFloatLit(v float64) *FloatLit { return &FloatLit{base: base{Type: Float}, Value: v} }

// StringLit is a string literal.
type StringLit struct {
	base
	Value string
}

// NewStringLit returns a StringLit with static type String.
func NewStringLit(v string) *StringLit { return &StringLit{base: base{Type: String}, Value: v} }

// BoolLit is a boolean literal.
type BoolLit struct {
	base
	Value bool
}

// NewBoolLit returns a BoolLit with static type Bool.
func NewBoolLit(v bool) *BoolLit { return &BoolLit{base: base{Type: Bool}, Value: v} }

// UnitLit is the unit literal.
type UnitLit struct{ base }

// NewUnitLit returns a UnitLit with static type Unit.
func NewUnitLit() *UnitLit { return &UnitLit{base: base{Type: Unit}} }

// Var is a variable reference.
type Var struct {
	base
	Name string
}

// NewTypedVar returns a Var reference whose static type is known (e.g. the
// declared type of the local it refers to); untyped Var{Name: n} literals
// are also valid wherever the type can be left Unknown.
func NewTypedVar(name string, t Type) *Var { return &Var{base: base{Type: t}, Name: name} }

// BinOp is one of + - * / = < > <= >=.
type BinOp struct {
	base
	Op          string
	Left, Right Expr
}

// Unary is one of neg or not.
type Unary struct {
	base
	Op string
	X  Expr
}

// Cond is an if/then/else expression.
type Cond struct {
	base
	Test, Then, Else Expr
}

// Seq is an ordered sequence of expressions; its value is the value of the
// last one.
type Seq struct {
	base
	Exprs []Expr
}

// Binding is one (name, value) pair of a Let.
type Binding struct {
	Name  string
	Type  Type
	Value Expr
}

// Let introduces a list of bindings in order, then evaluates Body.
type Let struct {
	base
	Bindings []Binding
	Body     Expr
}

// Apply calls Callee with Args, in order.
type Apply struct {
	base
	Callee Expr
	Args   []Expr
}

// While loops while Cond is true, evaluating Body each iteration.
type While struct {
	base
	Cond, Body Expr
}

// Loop is an infinite loop, exited only via Break/Return.
type Loop struct {
	base
	Body Expr
}

// Break exits the nearest enclosing loop.
type Break struct{ base }

// Continue restarts the nearest enclosing loop.
type Continue struct{ base }

// Return returns Value from the enclosing function.
type Return struct {
	base
	Value Expr
}

// IOKind enumerates the built-in I/O primitives spec.md §3 lists on the AST
// itself (open/read/write/close), distinct from the wider host-call opcode
// catalogue of lang/host.
type IOKind int

const (
	IOOpen IOKind = iota
	IORead
	IOWrite
	IOClose
)

// IOPrim is one of the AST-level I/O primitives.
type IOPrim struct {
	base
	Kind IOKind
	Args []Expr
}

// Param is a function parameter; its type is mandatory (spec.md §3).
type Param struct {
	Name string
	Type Type
}

// FuncDef is a function definition: name, typed parameter list, mandatory
// return type, and body.
type FuncDef struct {
	Name       string
	Params     []Param
	ReturnType Type
	Body       Expr
}

// TestCase is one case of a TestSpec: a human-readable description, a list
// of literal argument expressions, and an expected literal result.
type TestCase struct {
	Description string
	Args        []Expr
	Expected    Expr
}

// TestSpec names the function under test and its cases (spec.md §4.4,
// synthetic main).
type TestSpec struct {
	Target string
	Cases  []TestCase
}

// Def is a module-level definition: a function or a test-spec.
type Def struct {
	Func *FuncDef
	Test *TestSpec
}

// Module is (name, ordered imports, ordered definitions).
type Module struct {
	Name    string
	Imports []string
	Defs    []Def
}
