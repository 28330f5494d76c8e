package host

import (
	"os"
	"os/exec"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

// processRun executes a program named by args[0] with the argv array in
// args[1], returning its combined stdout+stderr on success.
func processRun(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	prog := args[0].AsString()
	argv := args[1].AsArray()
	sargs := make([]string, len(argv.Elems))
	for i, a := range argv.Elems {
		sargs[i] = a.AsString()
	}
	out, err := exec.Command(prog, sargs...).CombinedOutput()
	if err != nil {
		return value.NewErr(h, err.Error()+": "+string(out)), nil
	}
	return value.NewOk(h, value.NewString(h, string(out))), nil
}

func processEnv(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	v, ok := os.LookupEnv(args[0].AsString())
	if !ok {
		return value.NewErr(h, "environment variable not set"), nil
	}
	return value.NewOk(h, value.NewString(h, v)), nil
}
