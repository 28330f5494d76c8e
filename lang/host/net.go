package host

import (
	"net"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

func netDialTCP(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	conn, err := net.Dial("tcp", args[0].AsString())
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewHostHandle(h, value.HostSocket, conn)), nil
}

func netSend(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	conn, ok := socketOf(args[0])
	if !ok {
		return value.NewErr(h, "net_send: not a socket handle"), nil
	}
	n, err := conn.Write([]byte(args[1].AsString()))
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.Int(int64(n))), nil
}

func netRecv(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	conn, ok := socketOf(args[0])
	if !ok {
		return value.NewErr(h, "net_recv: not a socket handle"), nil
	}
	buf := make([]byte, args[1].AsInt())
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewString(h, string(buf[:n]))), nil
}

func netClose(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	conn, ok := socketOf(args[0])
	if !ok {
		return value.NewErr(h, "net_close: not a socket handle"), nil
	}
	if err := conn.Close(); err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.UnitValue), nil
}

func socketOf(v value.Value) (net.Conn, bool) {
	if v.Tag() != value.HostHandleT {
		return nil, false
	}
	hh := v.AsHostHandle()
	if hh.Kind != value.HostSocket || hh.Closed {
		return nil, false
	}
	conn, ok := hh.Data.(net.Conn)
	return conn, ok
}
