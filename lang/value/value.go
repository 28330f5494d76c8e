// Package value defines the runtime representation of every AISL value:
// the six scalar types the compiler dispatches on directly (int, float,
// bool, string, unit, decimal) plus the three compound types (array, map,
// json) and the opaque host-handle family used by lang/host. Int, float,
// bool and unit are carried inline in a Value struct; strings, decimals and
// everything else are heap objects registered with a lang/gc.Heap.
package value

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/aislang/aisl/lang/gc"
)

// Tag discriminates the kind of data a Value holds. The VM never needs to
// inspect Tag at an arithmetic opcode (the compiler already picked the
// typed opcode for the static type), but it is load-bearing for the
// type(), eq(), and the generic host-call marshalling code.
type Tag uint8

const (
	Unit Tag = iota
	IntT
	FloatT
	BoolT
	StringT
	DecimalT
	ArrayT
	MapT
	JSONT
	ResultT
	HostHandleT
)

func (t Tag) String() string {
	switch t {
	case Unit:
		return "unit"
	case IntT:
		return "int"
	case FloatT:
		return "float"
	case BoolT:
		return "bool"
	case StringT:
		return "string"
	case DecimalT:
		return "decimal"
	case ArrayT:
		return "array"
	case MapT:
		return "map"
	case JSONT:
		return "json"
	case ResultT:
		return "result"
	case HostHandleT:
		return "host_handle"
	default:
		return "unknown"
	}
}

// Value is the VM's universal operand: a small tagged union. Int, float,
// bool and unit carry their payload inline in num; every other tag
// (including string and decimal) carries a pointer to a heap Object
// registered with the running Heap.
type Value struct {
	tag Tag
	num uint64
	obj gc.Object
}

// Int wraps a 64-bit signed integer.
func Int(v int64) Value { return Value{tag: IntT, num: uint64(v)} }

// Float wraps a 64-bit IEEE-754 float.
func Float(v float64) Value { return Value{tag: FloatT, num: math.Float64bits(v)} }

// Bool wraps a boolean.
func Bool(v bool) Value {
	var n uint64
	if v {
		n = 1
	}
	return Value{tag: BoolT, num: n}
}

// UnitValue is the single value of type unit.
var UnitValue = Value{tag: Unit}

// fromObject wraps a heap Object under the given tag. Callers use the
// typed constructors below (NewString, NewArray, ...) rather than calling
// this directly.
func fromObject(tag Tag, obj gc.Object) Value { return Value{tag: tag, obj: obj} }

// Tag returns v's discriminant.
func (v Value) Tag() Tag { return v.tag }

// IsUnit reports whether v is the unit value.
func (v Value) IsUnit() bool { return v.tag == Unit }

// AsInt returns the integer payload; the caller must have checked Tag() ==
// IntT (the VM only calls this from typed opcodes that already guarantee
// it, per spec.md's type-directed dispatch contract).
func (v Value) AsInt() int64 { return int64(v.num) }

// AsFloat returns the float payload.
func (v Value) AsFloat() float64 { return math.Float64frombits(v.num) }

// AsBool returns the bool payload.
func (v Value) AsBool() bool { return v.num != 0 }

// Object returns the heap object a compound value wraps, or nil for a
// scalar. The VM uses this to enumerate GC roots on its operand stack.
func (v Value) Object() gc.Object { return v.obj }

func (v Value) String() string {
	switch v.tag {
	case Unit:
		return "unit"
	case IntT:
		return fmt.Sprintf("%d", v.AsInt())
	case FloatT:
		return fmt.Sprintf("%g", v.AsFloat())
	case BoolT:
		return fmt.Sprintf("%t", v.AsBool())
	case StringT:
		return v.obj.(*String).S
	case DecimalT:
		return v.obj.(*Decimal).D.String()
	case ArrayT:
		return fmt.Sprintf("array(len=%d)", len(v.obj.(*Array).Elems))
	case MapT:
		return fmt.Sprintf("map(len=%d)", v.obj.(*Map).Len())
	case JSONT:
		return "json(...)"
	case ResultT:
		r := v.obj.(*Result)
		if r.Ok {
			return fmt.Sprintf("ok(%s)", r.Value)
		}
		return fmt.Sprintf("err(%s)", r.Err)
	case HostHandleT:
		return fmt.Sprintf("host_handle(%s)", v.obj.(*HostHandle).Kind)
	default:
		return "<invalid>"
	}
}

// String is a heap-allocated string. AISL string literals decoded from the
// bytecode's string pool are copied into one of these so that runtime
// string operations (concat, slice) all produce garbage-collected values
// uniformly, whether they originated in the pool or at runtime.
type String struct {
	gc.Header
	S string
}

func (s *String) Trace(func(gc.Object)) {}
func (s *String) Size() uintptr         { return uintptr(16 + len(s.S)) }

// NewString allocates and registers a String.
func NewString(h *gc.Heap, s string) Value {
	obj := h.Register(&String{S: s}).(*String)
	return fromObject(StringT, obj)
}

// Decimal is a heap-allocated arbitrary-precision decimal, backed by
// shopspring/decimal.
type Decimal struct {
	gc.Header
	D decimal.Decimal
}

func (d *Decimal) Trace(func(gc.Object)) {}
func (d *Decimal) Size() uintptr         { return 40 }

// NewDecimal allocates and registers a Decimal.
func NewDecimal(h *gc.Heap, d decimal.Decimal) Value {
	obj := h.Register(&Decimal{D: d}).(*Decimal)
	return fromObject(DecimalT, obj)
}

// Array is a heap-allocated, growable, zero-indexed sequence of Values.
type Array struct {
	gc.Header
	Elems []Value
}

func (a *Array) Trace(visit func(gc.Object)) {
	for _, e := range a.Elems {
		if o := e.Object(); o != nil {
			visit(o)
		}
	}
}
func (a *Array) Size() uintptr { return uintptr(24 + 24*len(a.Elems)) }

// NewArray allocates and registers an Array holding a copy of elems.
func NewArray(h *gc.Heap, elems []Value) Value {
	obj := h.Register(&Array{Elems: append([]Value(nil), elems...)}).(*Array)
	return fromObject(ArrayT, obj)
}

// Result is the ok/err tagged value returned by fallible host operations.
type Result struct {
	gc.Header
	Ok    bool
	Value Value
	Err   string
}

func (r *Result) Trace(visit func(gc.Object)) {
	if o := r.Value.Object(); o != nil {
		visit(o)
	}
}
func (r *Result) Size() uintptr { return 48 }

// NewOk allocates and registers a successful Result wrapping v.
func NewOk(h *gc.Heap, v Value) Value {
	obj := h.Register(&Result{Ok: true, Value: v}).(*Result)
	return fromObject(ResultT, obj)
}

// NewErr allocates and registers a failed Result carrying msg.
func NewErr(h *gc.Heap, msg string) Value {
	obj := h.Register(&Result{Ok: false, Err: msg}).(*Result)
	return fromObject(ResultT, obj)
}

// HostHandle is an opaque handle to a host-side resource -- a file
// descriptor, socket, WebSocket connection, SQLite connection or prepared
// statement, child process, compiled regular expression, or FFI library
// handle. Data holds the concrete resource (lang/host owns its type);
// value never inspects it beyond the Kind tag.
type HostHandle struct {
	gc.Header
	Kind   HostKind
	Data   any
	Closed bool
}

func (h *HostHandle) Trace(func(gc.Object)) {}
func (h *HostHandle) Size() uintptr         { return 32 }

// HostKind enumerates the families of host handle.
type HostKind uint8

const (
	HostFile HostKind = iota
	HostSocket
	HostWebSocket
	HostSQLiteConn
	HostSQLiteStmt
	HostProcess
	HostRegex
	HostFFILibrary
	HostChannel
)

func (k HostKind) String() string {
	switch k {
	case HostFile:
		return "file"
	case HostSocket:
		return "socket"
	case HostWebSocket:
		return "websocket"
	case HostSQLiteConn:
		return "sqlite_conn"
	case HostSQLiteStmt:
		return "sqlite_stmt"
	case HostProcess:
		return "process"
	case HostRegex:
		return "regex"
	case HostFFILibrary:
		return "ffi_library"
	case HostChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// NewHostHandle allocates and registers a HostHandle wrapping data.
func NewHostHandle(h *gc.Heap, kind HostKind, data any) Value {
	obj := h.Register(&HostHandle{Kind: kind, Data: data}).(*HostHandle)
	return fromObject(HostHandleT, obj)
}

// AsHostHandle returns the underlying HostHandle; the caller must have
// already checked Tag() == HostHandleT.
func (v Value) AsHostHandle() *HostHandle { return v.obj.(*HostHandle) }

// AsString returns the underlying String object's Go string.
func (v Value) AsString() string { return v.obj.(*String).S }

// AsDecimal returns the underlying decimal.Decimal.
func (v Value) AsDecimal() decimal.Decimal { return v.obj.(*Decimal).D }

// AsArray returns the underlying Array.
func (v Value) AsArray() *Array { return v.obj.(*Array) }

// AsResult returns the underlying Result.
func (v Value) AsResult() *Result { return v.obj.(*Result) }

// AsMap returns the underlying Map.
func (v Value) AsMap() *Map { return v.obj.(*Map) }
