package sexpr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aislang/aisl/lang/compiler"
	"github.com/aislang/aisl/lang/sexpr"
	"github.com/aislang/aisl/lang/vm"
)

func run(t *testing.T, src string) (int64, string) {
	t.Helper()
	mod, err := sexpr.Read([]byte(src), "test.aisl")
	require.NoError(t, err)
	prog, err := compiler.CompileStandalone(mod)
	require.NoError(t, err)
	require.NoError(t, prog.ValidateJumps())

	var stdout stdoutBuf
	th := vm.NewThread(prog, vm.IOContext{Stdout: &stdout})
	result, err := th.Run(context.Background(), "main")
	require.NoError(t, err)
	return result.AsInt(), stdout.String()
}

type stdoutBuf struct{ b []byte }

func (s *stdoutBuf) Write(p []byte) (int, error) { s.b = append(s.b, p...); return len(p), nil }
func (s *stdoutBuf) String() string               { return string(s.b) }

func TestRecursiveFactorialThroughReader(t *testing.T) {
	src := `
(module arith
  (defn factorial ((n int)) int
    (if (= n 0)
        1
        (* n (factorial (- n 1)))))
  (defn main () int
    (factorial 6)))
`
	result, _ := run(t, src)
	require.Equal(t, int64(720), result)
}

func TestLetAndPrint(t *testing.T) {
	src := `
(module greet
  (defn main () int
    (let ((x int 2) (y int 3) (sum int (+ x y)))
      (seq
        (print sum)
        0))))
`
	result, out := run(t, src)
	require.Equal(t, int64(0), result)
	require.Equal(t, "5", out)
}

func TestWhileWithBreak(t *testing.T) {
	src := `
(module loopy
  (defn main () int
    (seq
      (while true (break))
      7)))
`
	result, _ := run(t, src)
	require.Equal(t, int64(7), result)
}

func TestStatementIf(t *testing.T) {
	src := `
(module cond_stmt
  (defn main () int
    (seq
      (if true (print "yes"))
      1)))
`
	result, out := run(t, src)
	require.Equal(t, int64(1), result)
	require.Equal(t, "yes", out)
}

func TestArrayBuiltins(t *testing.T) {
	src := `
(module builtins
  (defn main () int
    (let ((a array (array_new)))
      (seq
        (array_push a 10)
        (array_push a 20)
        (array_get a 1)))))
`
	result, _ := run(t, src)
	require.Equal(t, int64(20), result)
}

func TestUnknownFormIsReadError(t *testing.T) {
	_, err := sexpr.Read([]byte(`(module m (bogus-top-level-form))`), "bad.aisl")
	require.Error(t, err)
}

func TestBreakOutsideLoopIsCompileError(t *testing.T) {
	src := `
(module bad
  (defn main () int
    (seq
      (break)
      0)))
`
	mod, err := sexpr.Read([]byte(src), "bad.aisl")
	require.NoError(t, err)
	_, err = compiler.CompileStandalone(mod)
	require.Error(t, err)
}
