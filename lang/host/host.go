// Package host implements the concrete operations behind AISL's single
// HOST_CALL escape hatch: the network, process, filesystem-adjacent,
// cryptographic, regular-expression, embedded-database, WebSocket, and FFI
// builtins that spec.md treats as external collaborators rather than core
// VM semantics. A Table is a vm.HostDispatcher: lang/vm depends only on
// that interface, never on this package, so a program that needs none of
// these operations can run with Host left nil.
package host

import (
	"fmt"

	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
	"github.com/aislang/aisl/lang/vm"
)

// Op identifies one host operation; the numeric values are the op ids a
// compiled host_call(<id>, ...) literal must agree with (see
// lang/compiler's compileHostCall).
type Op uint32

const (
	OpTimeNowUnixMillis Op = iota + 1
	OpTimeSleepMillis

	OpProcessRun
	OpProcessEnv

	OpNetDialTCP
	OpNetSend
	OpNetRecv
	OpNetClose

	OpWebSocketDial
	OpWebSocketSend
	OpWebSocketRecv
	OpWebSocketClose

	OpSQLiteOpen
	OpSQLiteExec
	OpSQLiteQuery
	OpSQLiteClose

	OpRegexCompile
	OpRegexMatch
	OpRegexFindAll
	OpRegexReplace

	OpCryptoSHA256
	OpCryptoSHA512
	OpCryptoBlake2b256

	OpFFIOpen
	OpFFICallInt64

	OpCryptoBcrypt
	OpCryptoHKDF

	OpChannelNew
	OpChannelSend
	OpChannelRecv
)

type opFunc func(h *gc.Heap, io vm.IOContext, args []value.Value) (value.Value, error)

type opDef struct {
	arity int
	fn    opFunc
}

// Table is the default vm.HostDispatcher: every Op wired to its concrete
// implementation.
type Table struct {
	defs map[Op]opDef
}

// NewTable builds the full descriptor table: every Op declared above,
// with its arity. Each is backed by the standard library (time, process,
// TCP, SHA-256/512, channels) or a third-party client library (WebSocket,
// SQLite, regex, BLAKE2b/bcrypt/HKDF, FFI); none of them are implemented
// by hand-rolled protocol code.
func NewTable() *Table {
	t := &Table{defs: make(map[Op]opDef)}
	t.register(OpTimeNowUnixMillis, 0, timeNowUnixMillis)
	t.register(OpTimeSleepMillis, 1, timeSleepMillis)

	t.register(OpProcessRun, 2, processRun)
	t.register(OpProcessEnv, 1, processEnv)

	t.register(OpNetDialTCP, 1, netDialTCP)
	t.register(OpNetSend, 2, netSend)
	t.register(OpNetRecv, 2, netRecv)
	t.register(OpNetClose, 1, netClose)

	t.register(OpWebSocketDial, 1, websocketDial)
	t.register(OpWebSocketSend, 2, websocketSend)
	t.register(OpWebSocketRecv, 1, websocketRecv)
	t.register(OpWebSocketClose, 1, websocketClose)

	t.register(OpSQLiteOpen, 1, sqliteOpen)
	t.register(OpSQLiteExec, 2, sqliteExec)
	t.register(OpSQLiteQuery, 2, sqliteQuery)
	t.register(OpSQLiteClose, 1, sqliteClose)

	t.register(OpRegexCompile, 1, regexCompile)
	t.register(OpRegexMatch, 2, regexMatch)
	t.register(OpRegexFindAll, 2, regexFindAll)
	t.register(OpRegexReplace, 3, regexReplace)

	t.register(OpCryptoSHA256, 1, cryptoSHA256)
	t.register(OpCryptoSHA512, 1, cryptoSHA512)
	t.register(OpCryptoBlake2b256, 1, cryptoBlake2b256)

	t.register(OpFFIOpen, 1, ffiOpen)
	t.register(OpFFICallInt64, 3, ffiCallInt64)

	t.register(OpCryptoBcrypt, 2, cryptoBcrypt)
	t.register(OpCryptoHKDF, 3, cryptoHKDF)

	t.register(OpChannelNew, 1, channelNew)
	t.register(OpChannelSend, 2, channelSend)
	t.register(OpChannelRecv, 1, channelRecv)
	return t
}

func (t *Table) register(op Op, arity int, fn opFunc) { t.defs[op] = opDef{arity: arity, fn: fn} }

// Arity implements vm.HostDispatcher.
func (t *Table) Arity(opID uint32) (int, bool) {
	d, ok := t.defs[Op(opID)]
	if !ok {
		return 0, false
	}
	return d.arity, true
}

// Call implements vm.HostDispatcher.
func (t *Table) Call(h *gc.Heap, io vm.IOContext, opID uint32, args []value.Value) (value.Value, error) {
	d, ok := t.defs[Op(opID)]
	if !ok {
		return value.Value{}, fmt.Errorf("host: unknown operation %d", opID)
	}
	return d.fn(h, io, args)
}
