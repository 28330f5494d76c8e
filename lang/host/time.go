package host

import (
	"time"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

func timeNowUnixMillis(_ *gc.Heap, _ vm.IOContext, _ []value.Value) (value.Value, error) {
	return value.Int(time.Now().UnixMilli()), nil
}

func timeSleepMillis(_ *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	time.Sleep(time.Duration(args[0].AsInt()) * time.Millisecond)
	return value.UnitValue, nil
}
