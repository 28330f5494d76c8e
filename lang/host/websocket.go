package host

import (
	"github.com/gorilla/websocket"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

func websocketDial(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	conn, _, err := websocket.DefaultDialer.Dial(args[0].AsString(), nil)
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewHostHandle(h, value.HostWebSocket, conn)), nil
}

func websocketSend(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	conn, ok := websocketOf(args[0])
	if !ok {
		return value.NewErr(h, "websocket_send: not a websocket handle"), nil
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(args[1].AsString())); err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.UnitValue), nil
}

func websocketRecv(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	conn, ok := websocketOf(args[0])
	if !ok {
		return value.NewErr(h, "websocket_recv: not a websocket handle"), nil
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.NewString(h, string(data))), nil
}

func websocketClose(h *gc.Heap, _ vm.IOContext, args []value.Value) (value.Value, error) {
	conn, ok := websocketOf(args[0])
	if !ok {
		return value.NewErr(h, "websocket_close: not a websocket handle"), nil
	}
	if err := conn.Close(); err != nil {
		return value.NewErr(h, err.Error()), nil
	}
	return value.NewOk(h, value.UnitValue), nil
}

func websocketOf(v value.Value) (*websocket.Conn, bool) {
	if v.Tag() != value.HostHandleT {
		return nil, false
	}
	hh := v.AsHostHandle()
	if hh.Kind != value.HostWebSocket || hh.Closed {
		return nil, false
	}
	conn, ok := hh.Data.(*websocket.Conn)
	return conn, ok
}
