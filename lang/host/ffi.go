package host

import (
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

// ffiOpen loads a shared library by path and returns an opaque handle for
// ffiCallInt64. purego dynamically binds the library without cgo, matching
// spec.md's foreign-function builtin.
func ffiOpen(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	lib, err := purego.Dlopen(args[0].AsString(), purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewHostHandle(h, value.HostFFILibrary, lib)), nil
}

// ffiCallInt64 calls a foreign function of signature int64(int64) named by
// args[1] in the library handle args[0], passing args[2]. purego panics
// rather than erroring when a symbol can't be resolved, so the lookup runs
// under a recover to turn that into an AISL err(...) result instead of
// aborting the VM.
func ffiCallInt64(h *gc.Heap, _ vm.IOContext, args []value.Value) (result value.Value, err error) {
	lib, ok := ffiLibraryOf(args[0])
	if !ok {
		return value.NewErr(h, "ffi_call: not an ffi library handle"), nil
	}
	symbol := args[1].AsString()
	arg := args[2].AsInt()

	defer func() {
		if r := recover(); r != nil {
			result = value.NewErr(h, fmt.Sprintf("ffi_call: %v", r))
		}
	}()

	var fn func(int64) int64
	purego.RegisterLibFunc(&fn, lib, symbol)
	return value.NewOk(h, value.Int(fn(arg))), nil
}

func ffiLibraryOf(v value.Value) (uintptr, bool) {
	if v.Tag() != value.HostHandleT {
		return 0, false
	}
	hh := v.AsHostHandle()
	if hh.Kind != value.HostFFILibrary {
		return 0, false
	}
	lib, ok := hh.Data.(uintptr)
	return lib, ok
}
