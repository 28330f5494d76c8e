package desugar_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/ast"
	"github.com/aislang/aisl/lang/desugar"
)

func labelNames(exprs []ast.Expr) []string {
	var out []string
	for _, e := range exprs {
		if name, ok := desugar.IsControlPseudo(e); ok {
			app := e.(*ast.Apply)
			s := app.Args[len(app.Args)-1].(*ast.StringLit).Value
			out = append(out, name+":"+s)
		}
	}
	return out
}

func TestWhileExpandsToLabelGotoIfnot(t *testing.T) {
	d := desugar.New()
	w := &ast.While{
		Cond: &ast.BoolLit{Value: true},
		Body: &ast.IntLit{Value: 1},
	}
	out, err := d.Module(&ast.Module{Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "f", Body: w}},
	}})
	require.NoError(t, err)

	body := out.Defs[0].Func.Body.(*ast.Seq)
	require.Len(t, body.Exprs, 6)
	require.Equal(t, "label", mustPseudo(t, body.Exprs[0]))
	require.Equal(t, "ifnot", mustPseudo(t, body.Exprs[1]))
	require.IsType(t, &ast.IntLit{}, body.Exprs[2])
	require.Equal(t, "goto", mustPseudo(t, body.Exprs[3]))
	require.Equal(t, "label", mustPseudo(t, body.Exprs[4]))
	require.IsType(t, &ast.UnitLit{}, body.Exprs[5])
}

func mustPseudo(t *testing.T, e ast.Expr) string {
	t.Helper()
	name, ok := desugar.IsControlPseudo(e)
	require.True(t, ok, "expected control pseudo-call, got %T", e)
	return name
}

func TestBreakOutsideLoopIsError(t *testing.T) {
	d := desugar.New()
	_, err := d.Module(&ast.Module{Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "f", Body: &ast.Break{}}},
	}})
	require.Error(t, err)
	var derr *desugar.Error
	require.ErrorAs(t, err, &derr)
}

func TestBreakJumpsToLoopEnd(t *testing.T) {
	d := desugar.New()
	loop := &ast.Loop{
		Body: &ast.Seq{Exprs: []ast.Expr{&ast.Break{}}},
	}
	out, err := d.Module(&ast.Module{Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "f", Body: loop}},
	}})
	require.NoError(t, err)

	top := out.Defs[0].Func.Body.(*ast.Seq)
	// label Ls, body(seq containing goto Le), goto Ls, label Le, unit
	require.Len(t, top.Exprs, 5)
	startLabel := top.Exprs[0].(*ast.Apply).Args[0].(*ast.StringLit).Value
	endLabel := top.Exprs[3].(*ast.Apply).Args[0].(*ast.StringLit).Value
	require.NotEqual(t, startLabel, endLabel)

	bodySeq := top.Exprs[1].(*ast.Seq)
	breakGoto := bodySeq.Exprs[0].(*ast.Apply)
	require.Equal(t, endLabel, breakGoto.Args[0].(*ast.StringLit).Value)
}

func TestLabelsUniqueAcrossFunctions(t *testing.T) {
	d := desugar.New()
	mk := func() *ast.FuncDef {
		return &ast.FuncDef{Name: "f", Body: &ast.Loop{Body: &ast.IntLit{Value: 1}}}
	}
	out, err := d.Module(&ast.Module{Defs: []ast.Def{
		{Func: mk()},
		{Func: mk()},
	}})
	require.NoError(t, err)

	label := func(fn *ast.FuncDef) string {
		seq := fn.Body.(*ast.Seq)
		return seq.Exprs[0].(*ast.Apply).Args[0].(*ast.StringLit).Value
	}
	require.NotEqual(t, label(out.Defs[0].Func), label(out.Defs[1].Func))
}

func TestIfStatementFormDesugars(t *testing.T) {
	d := desugar.New()
	stmt := &ast.Cond{Test: &ast.BoolLit{Value: true}, Then: &ast.IntLit{Value: 1}}
	out, err := d.Module(&ast.Module{Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "f", Body: stmt}},
	}})
	require.NoError(t, err)

	seq := out.Defs[0].Func.Body.(*ast.Seq)
	require.Equal(t, "ifnot", mustPseudo(t, seq.Exprs[0]))
	require.IsType(t, &ast.IntLit{}, seq.Exprs[1])
	require.Equal(t, "label", mustPseudo(t, seq.Exprs[2]))
}

func TestIfExpressionFormIsUntouched(t *testing.T) {
	d := desugar.New()
	expr := &ast.Cond{Test: &ast.BoolLit{Value: true}, Then: &ast.IntLit{Value: 1}, Else: &ast.IntLit{Value: 2}}
	out, err := d.Module(&ast.Module{Defs: []ast.Def{
		{Func: &ast.FuncDef{Name: "f", Body: expr}},
	}})
	require.NoError(t, err)
	require.IsType(t, &ast.Cond{}, out.Defs[0].Func.Body)
}
