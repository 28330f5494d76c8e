package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/ast"
	"github.com/aislang/aisl/lang/bytecode"
	"github.com/aislang/aisl/lang/compiler"
)

func TestCompileArithmetic(t *testing.T) {
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

	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	require.NoError(t, prog.ValidateJumps())

	idx := prog.FunctionByName("main")
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, uint32(0), prog.Functions[idx].ParamCount)

	var ops []bytecode.Opcode
	for _, in := range prog.Instructions {
		ops = append(ops, in.Op)
	}
	require.Contains(t, ops, bytecode.MUL_I64)
	require.Contains(t, ops, bytecode.ADD_I64)
}

func TestCompileWhileLoop(t *testing.T) {
	// fn count_to(n int) int {
	//   let i = 0 in
	//   while (i < n) { i = i + 1 }  -- modelled as: while cond { let rebinds i via outer mutation is not
	//   supported without assignment, so instead we just loop a fixed body and return i.
	// }
	// Simplify: while true { break }; return 1
	body := &ast.Seq{Exprs: []ast.Expr{
		&ast.While{
			Cond: ast.NewBoolLit(true),
			Body: &ast.Break{},
		},
		&ast.Return{Value: ast.NewIntLit(1)},
	}}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: body}},
	}}

	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	require.NoError(t, prog.ValidateJumps())

	var jumps int
	for _, in := range prog.Instructions {
		if in.Op.IsJump() {
			jumps++
			require.NotEqual(t, bytecode.PendingJumpSentinel, in.JumpTarget())
		}
	}
	require.Greater(t, jumps, 0)
}

func TestCompileFunctionCall(t *testing.T) {
	// fn double(x int) int { return x + x }
	// fn main() int { return double(21) }
	double := &ast.FuncDef{
		Name:       "double",
		Params:     []ast.Param{{Name: "x", Type: ast.Int}},
		ReturnType: ast.Int,
		Body: &ast.Return{Value: &ast.BinOp{
			Op:    "+",
			Left:  ast.NewTypedVar("x", ast.Int),
			Right: ast.NewTypedVar("x", ast.Int),
		}},
	}
	main := &ast.FuncDef{
		Name:       "main",
		ReturnType: ast.Int,
		Body: &ast.Return{Value: &ast.Apply{
			Callee: &ast.Var{Name: "double"},
			Args:   []ast.Expr{ast.NewIntLit(21)},
		}},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{{Func: double}, {Func: main}}}

	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	require.NoError(t, prog.ValidateJumps())

	mainIdx := prog.FunctionByName("main")
	var foundCall bool
	end := uint32(len(prog.Instructions))
	if mainIdx+1 < len(prog.Functions) {
		end = prog.Functions[mainIdx+1].StartAddr
	}
	for addr := prog.Functions[mainIdx].StartAddr; addr < end; addr++ {
		in := prog.Instructions[addr]
		if in.Op == bytecode.CALL {
			foundCall = true
			funcIdx, argCount := in.CallArgs()
			require.Equal(t, uint32(prog.FunctionByName("double")), funcIdx)
			require.Equal(t, uint32(1), argCount)
		}
	}
	require.True(t, foundCall)
}

func TestCompileUndefinedVariable(t *testing.T) {
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: &ast.Return{Value: &ast.Var{Name: "nope"}}}},
	}}
	_, err := compiler.CompileStandalone(mod)
	require.Error(t, err)
	var cerr *compiler.Error
	require.ErrorAs(t, err, &cerr)
}

func TestCompileArityMismatch(t *testing.T) {
	f := &ast.FuncDef{Name: "f", Params: []ast.Param{{Name: "x", Type: ast.Int}}, ReturnType: ast.Int, Body: &ast.Return{Value: ast.NewIntLit(1)}}
	main := &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: &ast.Return{Value: &ast.Apply{
		Callee: &ast.Var{Name: "f"},
		Args:   nil,
	}}}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{{Func: f}, {Func: main}}}
	_, err := compiler.CompileStandalone(mod)
	require.Error(t, err)
}

func TestSyntheticMainFromTestSpec(t *testing.T) {
	add := &ast.FuncDef{
		Name:       "add",
		Params:     []ast.Param{{Name: "a", Type: ast.Int}, {Name: "b", Type: ast.Int}},
		ReturnType: ast.Int,
		Body: &ast.Return{Value: &ast.BinOp{
			Op:    "+",
			Left:  ast.NewTypedVar("a", ast.Int),
			Right: ast.NewTypedVar("b", ast.Int),
		}},
	}
	spec := &ast.TestSpec{
		Target: "add",
		Cases: []ast.TestCase{
			{Description: "adds two positives", Args: []ast.Expr{ast.NewIntLit(2), ast.NewIntLit(3)}, Expected: ast.NewIntLit(5)},
		},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{{Func: add}, {Test: spec}}}

	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	require.NoError(t, prog.ValidateJumps())
	require.GreaterOrEqual(t, prog.FunctionByName("main"), 0)
}

func TestLetBindingScoping(t *testing.T) {
	// fn main() int { let x = 10 in let y = 20 in x + y }
	body := &ast.Let{
		Bindings: []ast.Binding{{Name: "x", Type: ast.Int, Value: ast.NewIntLit(10)}},
		Body: &ast.Let{
			Bindings: []ast.Binding{{Name: "y", Type: ast.Int, Value: ast.NewIntLit(20)}},
			Body: &ast.Return{Value: &ast.BinOp{
				Op:    "+",
				Left:  ast.NewTypedVar("x", ast.Int),
				Right: ast.NewTypedVar("y", ast.Int),
			}},
		},
	}
	mod := &ast.Module{Name: "m", Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "main", ReturnType: ast.Int, Body: body}},
	}}
	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	idx := prog.FunctionByName("main")
	require.Equal(t, uint32(2), prog.Functions[idx].LocalCount)
}
