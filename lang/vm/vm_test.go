package vm_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/ast"
	"github.com/aislang/aisl/lang/compiler"
	"github.com/aislang/aisl/lang/vm"
)

func compile(t *testing.T, mod *ast.Module) *vm.Thread {
	t.Helper()
	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	require.NoError(t, prog.ValidateJumps())
	var stdout bytes.Buffer
	return vm.NewThread(prog, vm.IOContext{Stdout: &stdout})
}

func TestArithmetic(t *testing.T) {
	// fn main() int { return 2 + 3 * 4 }
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{
			Name:       "main",
			ReturnType: ast.Int,
			Body: &ast.Return{Value: &ast.BinOp{
				Op:   "+",
				Left: ast.NewIntLit(2),
				Right: &ast.BinOp{
					Op:    "*",
					Left:  ast.NewIntLit(3),
					Right: ast.NewIntLit(4),
				},
			}},
		}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, int64(14), result.AsInt())
}

func TestRecursiveFactorial(t *testing.T) {
	// fn fact(n int) int { if n <= 1 { return 1 } return n * fact(n - 1) }
	fact := &ast.FuncDef{
		Name:       "fact",
		Params:     []ast.Param{{Name: "n", Type: ast.Int}},
		ReturnType: ast.Int,
		Body: &ast.Cond{
			Test: &ast.BinOp{Op: "<=", Left: ast.NewTypedVar("n", ast.Int), Right: ast.NewIntLit(1)},
			Then: &ast.Return{Value: ast.NewIntLit(1)},
			Else: &ast.Return{Value: &ast.BinOp{
				Op:   "*",
				Left: ast.NewTypedVar("n", ast.Int),
				Right: &ast.Apply{
					Callee: &ast.Var{Name: "fact"},
					Args: []ast.Expr{&ast.BinOp{
						Op:    "-",
						Left:  ast.NewTypedVar("n", ast.Int),
						Right: ast.NewIntLit(1),
					}},
				},
			}},
		},
	}
	main := &ast.FuncDef{
		Name:       "main",
		ReturnType: ast.Int,
		Body: &ast.Return{Value: &ast.Apply{
			Callee: &ast.Var{Name: "fact"},
			Args:   []ast.Expr{ast.NewIntLit(6)},
		}},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{{Func: fact}, {Func: main}}}

	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, int64(720), result.AsInt())
}

func TestLoopWithBreak(t *testing.T) {
	// fn main() int { while true { break } return 7 }
	// Exercises the desugarer's while/break pseudo-ops end to end through
	// the VM's JUMP/JUMP_IF_FALSE handling, not just the compiler's jump
	// patching (already covered in lang/compiler's own tests).
	body := &ast.Seq{Exprs: []ast.Expr{
		&ast.While{Cond: ast.NewBoolLit(true), Body: &ast.Break{}},
		&ast.Return{Value: ast.NewIntLit(7)},
	}}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: body}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, int64(7), result.AsInt())
}

func TestArrayBuiltins(t *testing.T) {
	// fn main() int {
	//   let a = array_new() in
	//   array_push(a, 10)
	//   array_push(a, 20)
	//   return array_get(a, 1)
	// }
	body := &ast.Let{
		Bindings: []ast.Binding{{Name: "a", Type: ast.Array, Value: &ast.Apply{Callee: &ast.Var{Name: "array_new"}}}},
		Body: &ast.Seq{Exprs: []ast.Expr{
			&ast.Apply{Callee: &ast.Var{Name: "array_push"}, Args: []ast.Expr{ast.NewTypedVar("a", ast.Array), ast.NewIntLit(10)}},
			&ast.Apply{Callee: &ast.Var{Name: "array_push"}, Args: []ast.Expr{ast.NewTypedVar("a", ast.Array), ast.NewIntLit(20)}},
			&ast.Return{Value: &ast.Apply{
				Callee: &ast.Var{Name: "array_get"},
				Args:   []ast.Expr{ast.NewTypedVar("a", ast.Array), ast.NewIntLit(1)},
			}},
		}},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: body}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, int64(20), result.AsInt())
}

func TestArrayGetOutOfRangeIsUnit(t *testing.T) {
	body := &ast.Let{
		Bindings: []ast.Binding{{Name: "a", Type: ast.Array, Value: &ast.Apply{Callee: &ast.Var{Name: "array_new"}}}},
		Body: &ast.Return{Value: &ast.Apply{
			Callee: &ast.Var{Name: "array_get"},
			Args:   []ast.Expr{ast.NewTypedVar("a", ast.Array), ast.NewIntLit(5)},
		}},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Unit, Body: body}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.True(t, result.IsUnit())
}

func TestStringGetReturnsByteOrNegativeOneOutOfRange(t *testing.T) {
	body := &ast.Return{Value: &ast.Apply{
		Callee: &ast.Var{Name: "string_get"},
		Args:   []ast.Expr{ast.NewStringLit("ab"), ast.NewIntLit(5)},
	}}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: body}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, int64(-1), result.AsInt())

	body2 := &ast.Return{Value: &ast.Apply{
		Callee: &ast.Var{Name: "string_get"},
		Args:   []ast.Expr{ast.NewStringLit("ab"), ast.NewIntLit(1)},
	}}
	mod2 := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: body2}},
	}}
	th2 := compile(t, mod2)
	result2, err := th2.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, int64('b'), result2.AsInt())
}

func TestStringSliceClampsInsteadOfErroring(t *testing.T) {
	body := &ast.Return{Value: &ast.Apply{
		Callee: &ast.Var{Name: "string_slice"},
		Args:   []ast.Expr{ast.NewStringLit("hello"), ast.NewIntLit(-2), ast.NewIntLit(3)},
	}}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.String, Body: body}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, "hel", result.AsString())

	body2 := &ast.Return{Value: &ast.Apply{
		Callee: &ast.Var{Name: "string_slice"},
		Args:   []ast.Expr{ast.NewStringLit("hello"), ast.NewIntLit(10), ast.NewIntLit(3)},
	}}
	mod2 := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.String, Body: body2}},
	}}
	th2 := compile(t, mod2)
	result2, err := th2.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, "", result2.AsString())
}

func TestMapRoundTrip(t *testing.T) {
	// fn main() int {
	//   let m = map_new() in
	//   map_set(m, "x", 42)
	//   return map_get(m, "x")
	// }
	body := &ast.Let{
		Bindings: []ast.Binding{{Name: "m", Type: ast.Map, Value: &ast.Apply{Callee: &ast.Var{Name: "map_new"}}}},
		Body: &ast.Seq{Exprs: []ast.Expr{
			&ast.Apply{Callee: &ast.Var{Name: "map_set"}, Args: []ast.Expr{
				ast.NewTypedVar("m", ast.Map), ast.NewStringLit("x"), ast.NewIntLit(42),
			}},
			&ast.Return{Value: &ast.Apply{
				Callee: &ast.Var{Name: "map_get"},
				Args:   []ast.Expr{ast.NewTypedVar("m", ast.Map), ast.NewStringLit("x")},
			}},
		}},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: body}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, int64(42), result.AsInt())
}

func TestMapGetMissingKeyIsUnit(t *testing.T) {
	body := &ast.Let{
		Bindings: []ast.Binding{{Name: "m", Type: ast.Map, Value: &ast.Apply{Callee: &ast.Var{Name: "map_new"}}}},
		Body: &ast.Return{Value: &ast.Apply{
			Callee: &ast.Var{Name: "map_get"},
			Args:   []ast.Expr{ast.NewTypedVar("m", ast.Map), ast.NewStringLit("missing")},
		}},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Unit, Body: body}},
	}}
	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	th := vm.NewThread(prog, vm.IOContext{Stdout: &bytes.Buffer{}})
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.True(t, result.IsUnit())
}

func TestGCRetainsReachableArray(t *testing.T) {
	// An explicit gc_collect must not collect an array still reachable
	// through a local, and the surviving array's contents must still read
	// back correctly after the collection runs.
	body := &ast.Let{
		Bindings: []ast.Binding{{Name: "a", Type: ast.Array, Value: &ast.Apply{Callee: &ast.Var{Name: "array_new"}}}},
		Body: &ast.Seq{Exprs: []ast.Expr{
			&ast.Apply{Callee: &ast.Var{Name: "array_push"}, Args: []ast.Expr{
				ast.NewTypedVar("a", ast.Array), ast.NewStringLit("kept"),
			}},
			&ast.Apply{Callee: &ast.Var{Name: "gc_collect"}},
			&ast.Return{Value: &ast.Apply{
				Callee: &ast.Var{Name: "array_get"},
				Args:   []ast.Expr{ast.NewTypedVar("a", ast.Array), ast.NewIntLit(0)},
			}},
		}},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.String, Body: body}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, "kept", result.AsString())
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: &ast.Return{Value: &ast.BinOp{
			Op: "/", Left: ast.NewIntLit(1), Right: ast.NewIntLit(0),
		}}}},
	}}
	th := compile(t, mod)
	_, err := th.Run(context.Background(), "main")
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestPrintWritesToStdout(t *testing.T) {
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: &ast.Seq{Exprs: []ast.Expr{
			&ast.Apply{Callee: &ast.Var{Name: "print"}, Args: []ast.Expr{ast.NewStringLit("hi")}},
			&ast.Return{Value: ast.NewIntLit(0)},
		}}}},
	}}
	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	var stdout bytes.Buffer
	th := vm.NewThread(prog, vm.IOContext{Stdout: &stdout})
	_, err = th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, "hi", stdout.String())
}

func TestJSONRoundTrip(t *testing.T) {
	// fn main() string {
	//   let doc = json_parse("{\"a\":1}") in
	//   json_stringify(doc)
	// }
	body := &ast.Let{
		Bindings: []ast.Binding{{Name: "doc", Type: ast.JSON, Value: &ast.Apply{
			Callee: &ast.Var{Name: "json_parse"},
			Args:   []ast.Expr{ast.NewStringLit(`{"a":1}`)},
		}}},
		Body: &ast.Return{Value: &ast.Apply{
			Callee: &ast.Var{Name: "json_stringify"},
			Args:   []ast.Expr{ast.NewTypedVar("doc", ast.JSON)},
		}},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.String, Body: body}},
	}}
	th := compile(t, mod)
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, result.AsString())
}

func TestRunRespectsContextCancellation(t *testing.T) {
	// An infinite loop must stop once its context is cancelled rather than
	// hang the test suite.
	body := &ast.While{Cond: ast.NewBoolLit(true), Body: ast.NewUnitLit()}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Unit, Body: body}},
	}}
	th := compile(t, mod)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := th.Run(ctx, "main")
	require.ErrorIs(t, err, context.Canceled)
}

func TestUndefinedEntryFunction(t *testing.T) {
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: ast.NewIntLit(0)}},
	}}
	th := compile(t, mod)
	_, err := th.Run(context.Background(), "does_not_exist")
	require.Error(t, err)
}
