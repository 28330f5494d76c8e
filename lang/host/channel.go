package host

import (
	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

// channelNew, channelSend and channelRecv back spec.md's reserved
// CHANNEL_NEW/SEND/RECV opcodes. The bytecode operand union (§4.1) has no
// slot for a channel handle, so rather than widen the instruction format
// these are exposed as ordinary host ops over a Go chan wrapped in a
// HostHandle — the single-threaded VM contract (§5) means a send followed
// by a recv on the same thread behaves like a cooperative blocking queue.
func channelNew(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	capacity := int(args[0].AsInt())
	ch := make(chan value.Value, capacity)
	return value.NewOk(h, value.NewHostHandle(h, value.HostChannel, ch)), nil
}

func channelSend(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	ch, ok := channelOf(args[0])
	if !ok {
		return value.NewErr(h, "channel_send: not a channel handle"), nil
	}
	ch <- args[1]
	return value.NewOk(h, value.UnitValue), nil
}

func channelRecv(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	ch, ok := channelOf(args[0])
	if !ok {
		return value.NewErr(h, "channel_recv: not a channel handle"), nil
	}
	v, open := <-ch
	if !open {
		return value.NewErr(h, "channel_recv: channel closed"), nil
	}
	return value.NewOk(h, v), nil
}

func channelOf(v value.Value) (chan value.Value, bool) {
	if v.Tag() != value.HostHandleT {
		return nil, false
	}
	hh := v.AsHostHandle()
	if hh.Kind != value.HostChannel {
		return nil, false
	}
	ch, ok := hh.Data.(chan value.Value)
	return ch, ok
}
