package vm

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aislang/aisl/lang/bytecode"
	"github.com/aislang/aisl/lang/value"
)

// step executes the single instruction at ip (never HALT or RETURN, which
// Run handles itself since they affect the call-stack/termination logic)
// and returns the address execution continues at.
func (th *Thread) step(ip uint32, in bytecode.Instruction) (uint32, error) {
	switch in.Op {
	case bytecode.NOP:
		// no-op

	case bytecode.PUSH_INT:
		th.push(value.Int(in.Int()))
	case bytecode.PUSH_FLOAT:
		th.push(value.Float(in.Float()))
	case bytecode.PUSH_BOOL:
		th.push(value.Bool(in.Bool()))
	case bytecode.PUSH_STRING:
		th.push(value.NewString(th.Heap, th.prog.Strings[in.U32Operand()]))
	case bytecode.PUSH_UNIT:
		th.push(value.UnitValue)
	case bytecode.POP:
		th.pop()
	case bytecode.DUP:
		th.push(th.top())

	case bytecode.LOAD_LOCAL:
		th.push(th.frame().locals[in.U32Operand()])
	case bytecode.STORE_LOCAL:
		th.frame().locals[in.U32Operand()] = th.pop()

	case bytecode.ADD_I64, bytecode.SUB_I64, bytecode.MUL_I64, bytecode.DIV_I64, bytecode.MOD_I64:
		b, a := th.pop().AsInt(), th.pop().AsInt()
		r, err := intArith(ip, in.Op, a, b)
		if err != nil {
			return ip, err
		}
		th.push(value.Int(r))
	case bytecode.NEG_I64:
		th.push(value.Int(-th.pop().AsInt()))

	case bytecode.ADD_F64, bytecode.SUB_F64, bytecode.MUL_F64, bytecode.DIV_F64, bytecode.MOD_F64:
		b, a := th.pop().AsFloat(), th.pop().AsFloat()
		th.push(value.Float(floatArith(in.Op, a, b)))
	case bytecode.NEG_F64:
		th.push(value.Float(-th.pop().AsFloat()))

	case bytecode.ADD_DECIMAL, bytecode.SUB_DECIMAL, bytecode.MUL_DECIMAL, bytecode.DIV_DECIMAL:
		b, a := th.pop().AsDecimal(), th.pop().AsDecimal()
		th.push(value.NewDecimal(th.Heap, decimalArith(in.Op, a, b)))
	case bytecode.NEG_DECIMAL:
		th.push(value.NewDecimal(th.Heap, th.pop().AsDecimal().Neg()))

	case bytecode.EQ_I64, bytecode.NE_I64, bytecode.LT_I64, bytecode.GT_I64, bytecode.LE_I64, bytecode.GE_I64:
		b, a := th.pop().AsInt(), th.pop().AsInt()
		th.push(value.Bool(compareToBool(in.Op, value.CompareInt(a, b))))
	case bytecode.EQ_F64, bytecode.NE_F64, bytecode.LT_F64, bytecode.GT_F64, bytecode.LE_F64, bytecode.GE_F64:
		b, a := th.pop().AsFloat(), th.pop().AsFloat()
		th.push(value.Bool(compareToBool(in.Op, value.CompareFloat(a, b))))
	case bytecode.EQ_DECIMAL, bytecode.NE_DECIMAL, bytecode.LT_DECIMAL, bytecode.GT_DECIMAL, bytecode.LE_DECIMAL, bytecode.GE_DECIMAL:
		b, a := th.pop().AsDecimal(), th.pop().AsDecimal()
		th.push(value.Bool(compareToBool(in.Op, a.Cmp(b))))

	case bytecode.AND_BOOL:
		b, a := th.pop().AsBool(), th.pop().AsBool()
		th.push(value.Bool(a && b))
	case bytecode.OR_BOOL:
		b, a := th.pop().AsBool(), th.pop().AsBool()
		th.push(value.Bool(a || b))
	case bytecode.NOT_BOOL:
		th.push(value.Bool(!th.pop().AsBool()))

	case bytecode.JUMP:
		return in.JumpTarget(), nil
	case bytecode.JUMP_IF_FALSE:
		if !th.pop().AsBool() {
			return in.JumpTarget(), nil
		}
	case bytecode.JUMP_IF_TRUE:
		if th.pop().AsBool() {
			return in.JumpTarget(), nil
		}

	case bytecode.CALL:
		return th.call(ip, in)

	case bytecode.STRING_LEN:
		th.push(value.Int(int64(len(th.pop().AsString()))))
	case bytecode.STRING_CONCAT:
		b, a := th.pop().AsString(), th.pop().AsString()
		th.push(value.NewString(th.Heap, a+b))
	case bytecode.STRING_SLICE:
		length, start, s := th.pop().AsInt(), th.pop().AsInt(), th.pop().AsString()
		th.push(th.stringSlice(s, start, length))
	case bytecode.STRING_GET:
		idx, s := th.pop().AsInt(), th.pop().AsString()
		th.push(th.stringGet(s, idx))
	case bytecode.STRING_EQ:
		b, a := th.pop().AsString(), th.pop().AsString()
		th.push(value.Bool(a == b))
	case bytecode.STRING_FROM_I64:
		th.push(value.NewString(th.Heap, strconv.FormatInt(th.pop().AsInt(), 10)))
	case bytecode.STRING_FROM_F64:
		th.push(value.NewString(th.Heap, strconv.FormatFloat(th.pop().AsFloat(), 'g', -1, 64)))
	case bytecode.STRING_FROM_BOOL:
		th.push(value.NewString(th.Heap, strconv.FormatBool(th.pop().AsBool())))
	case bytecode.STRING_FROM_DECIMAL:
		th.push(value.NewString(th.Heap, th.pop().AsDecimal().String()))
	case bytecode.STRING_SPLIT:
		sep, s := th.pop().AsString(), th.pop().AsString()
		parts := strings.Split(s, sep)
		elems := make([]value.Value, len(parts))
		for i, p := range parts {
			elems[i] = value.NewString(th.Heap, p)
		}
		th.push(value.NewArray(th.Heap, elems))
	case bytecode.STRING_TRIM:
		th.push(value.NewString(th.Heap, strings.TrimSpace(th.pop().AsString())))
	case bytecode.STRING_REPLACE:
		newS, oldS, s := th.pop().AsString(), th.pop().AsString(), th.pop().AsString()
		th.push(value.NewString(th.Heap, strings.ReplaceAll(s, oldS, newS)))
	case bytecode.STRING_CONTAINS:
		sub, s := th.pop().AsString(), th.pop().AsString()
		th.push(value.Bool(strings.Contains(s, sub)))
	case bytecode.STRING_STARTS_WITH:
		prefix, s := th.pop().AsString(), th.pop().AsString()
		th.push(value.Bool(strings.HasPrefix(s, prefix)))
	case bytecode.STRING_ENDS_WITH:
		suffix, s := th.pop().AsString(), th.pop().AsString()
		th.push(value.Bool(strings.HasSuffix(s, suffix)))
	case bytecode.STRING_TO_UPPER:
		th.push(value.NewString(th.Heap, strings.ToUpper(th.pop().AsString())))
	case bytecode.STRING_TO_LOWER:
		th.push(value.NewString(th.Heap, strings.ToLower(th.pop().AsString())))

	case bytecode.ARRAY_NEW:
		th.push(value.NewArray(th.Heap, nil))
	case bytecode.ARRAY_PUSH:
		elem, arr := th.pop(), th.pop()
		a := arr.AsArray()
		a.Elems = append(a.Elems, elem)
		th.push(value.UnitValue)
	case bytecode.ARRAY_GET:
		idx, arr := th.pop().AsInt(), th.pop().AsArray()
		if idx < 0 || idx >= int64(len(arr.Elems)) {
			th.push(value.UnitValue)
		} else {
			th.push(arr.Elems[idx])
		}
	case bytecode.ARRAY_SET:
		elem, idx, arr := th.pop(), th.pop().AsInt(), th.pop().AsArray()
		if idx < 0 || idx >= int64(len(arr.Elems)) {
			th.push(value.NewErr(th.Heap, fmt.Sprintf("array index %d out of range (len %d)", idx, len(arr.Elems))))
		} else {
			arr.Elems[idx] = elem
			th.push(value.NewOk(th.Heap, value.UnitValue))
		}
	case bytecode.ARRAY_LEN:
		th.push(value.Int(int64(len(th.pop().AsArray().Elems))))

	case bytecode.MAP_NEW:
		th.push(value.NewMapValue(th.Heap))
	case bytecode.MAP_SET:
		v, k, m := th.pop(), th.pop(), th.pop().AsMap()
		m.Set(k, v)
		th.push(value.UnitValue)
	case bytecode.MAP_GET:
		k, m := th.pop(), th.pop().AsMap()
		if v, ok := m.Get(k); ok {
			th.push(v)
		} else {
			th.push(value.UnitValue)
		}
	case bytecode.MAP_HAS:
		k, m := th.pop(), th.pop().AsMap()
		_, ok := m.Get(k)
		th.push(value.Bool(ok))
	case bytecode.MAP_DELETE:
		k, m := th.pop(), th.pop().AsMap()
		th.push(value.Bool(m.Delete(k)))
	case bytecode.MAP_LEN:
		th.push(value.Int(int64(th.pop().AsMap().Len())))
	case bytecode.MAP_KEYS:
		m := th.pop().AsMap()
		var keys []value.Value
		m.Each(func(k, _ value.Value) { keys = append(keys, k) })
		th.push(value.NewArray(th.Heap, keys))

	case bytecode.IO_OPEN:
		mode, path := th.pop().AsString(), th.pop().AsString()
		th.push(th.ioOpen(path, mode))
	case bytecode.IO_READ:
		n, handle := th.pop().AsInt(), th.pop()
		th.push(th.ioRead(handle, n))
	case bytecode.IO_WRITE:
		data, handle := th.pop().AsString(), th.pop()
		th.push(th.ioWrite(handle, data))
	case bytecode.IO_CLOSE:
		th.push(th.ioClose(th.pop()))
	case bytecode.IO_STDIN_READ:
		th.push(th.ioStdinRead())

	case bytecode.PRINT_I64:
		fmt.Fprintf(th.IO.Stdout, "%d", th.pop().AsInt())
		th.push(value.UnitValue)
	case bytecode.PRINT_F64:
		fmt.Fprintf(th.IO.Stdout, "%g", th.pop().AsFloat())
		th.push(value.UnitValue)
	case bytecode.PRINT_BOOL:
		fmt.Fprintf(th.IO.Stdout, "%t", th.pop().AsBool())
		th.push(value.UnitValue)
	case bytecode.PRINT_STRING:
		fmt.Fprint(th.IO.Stdout, th.pop().AsString())
		th.push(value.UnitValue)
	case bytecode.PRINT_ARRAY:
		th.printArray(th.pop().AsArray())
		th.push(value.UnitValue)
	case bytecode.PRINT_MAP:
		th.printMap(th.pop().AsMap())
		th.push(value.UnitValue)
	case bytecode.PRINT_DECIMAL:
		fmt.Fprint(th.IO.Stdout, th.pop().AsDecimal().String())
		th.push(value.UnitValue)

	case bytecode.IS_OK:
		th.push(value.Bool(th.pop().AsResult().Ok))
	case bytecode.IS_ERR:
		th.push(value.Bool(!th.pop().AsResult().Ok))
	case bytecode.UNWRAP:
		r := th.pop().AsResult()
		if !r.Ok {
			return ip, typeErr(ip, in.Op, "unwrap called on err(%s)", r.Err)
		}
		th.push(r.Value)
	case bytecode.UNWRAP_OR:
		def, r := th.pop(), th.pop().AsResult()
		if r.Ok {
			th.push(r.Value)
		} else {
			th.push(def)
		}
	case bytecode.ERROR_CODE:
		r := th.pop().AsResult()
		if r.Ok {
			th.push(value.Int(0))
		} else {
			th.push(value.Int(1))
		}
	case bytecode.ERROR_MSG:
		th.push(value.NewString(th.Heap, th.pop().AsResult().Err))

	case bytecode.JSON_PARSE:
		v, err := value.ParseJSON(th.Heap, th.pop().AsString())
		if err != nil {
			return ip, typeErr(ip, in.Op, "%s", err)
		}
		th.push(v)
	case bytecode.JSON_STRINGIFY:
		s, err := value.StringifyJSON(th.pop())
		if err != nil {
			return ip, typeErr(ip, in.Op, "%s", err)
		}
		th.push(value.NewString(th.Heap, s))
	case bytecode.JSON_GET:
		key, doc := th.pop().AsString(), th.pop()
		th.push(value.NewJSON(th.Heap, jsonGet(doc.AsJSON(), key)))
	case bytecode.JSON_TYPE:
		th.push(value.NewString(th.Heap, jsonTypeName(th.pop().AsJSON())))

	case bytecode.GC_COLLECT:
		th.Heap.Collect()
		th.push(value.UnitValue)
	case bytecode.GC_STATS:
		th.push(th.gcStats())

	case bytecode.HOST_CALL:
		return th.hostCall(ip, in)

	default:
		return ip, typeErr(ip, in.Op, "unimplemented opcode")
	}
	return ip + 1, nil
}

func (th *Thread) call(ip uint32, in bytecode.Instruction) (uint32, error) {
	funcIdx, argCount := in.CallArgs()
	if int(funcIdx) >= len(th.prog.Functions) {
		return ip, typeErr(ip, in.Op, "call to undefined function index %d", funcIdx)
	}
	fn := th.prog.Functions[funcIdx]
	n := int(argCount)
	if n > len(th.operands) {
		return ip, typeErr(ip, in.Op, "stack underflow calling %s", fn.Name)
	}
	args := th.operands[len(th.operands)-n:]
	locals := make([]value.Value, fn.LocalCount)
	copy(locals, args)
	th.operands = th.operands[:len(th.operands)-n]

	th.frames = append(th.frames, &callFrame{
		funcIdx:    int(funcIdx),
		returnAddr: ip + 1,
		locals:     locals,
	})
	return fn.StartAddr, nil
}

func (th *Thread) hostCall(ip uint32, in bytecode.Instruction) (uint32, error) {
	if th.Host == nil {
		return ip, typeErr(ip, in.Op, "no host dispatcher configured")
	}
	opID := in.U32Operand()
	n, ok := th.Host.Arity(opID)
	if !ok {
		return ip, typeErr(ip, in.Op, "unknown host operation %d", opID)
	}
	if n > len(th.operands) {
		return ip, typeErr(ip, in.Op, "stack underflow in host operation %d", opID)
	}
	args := append([]value.Value(nil), th.operands[len(th.operands)-n:]...)
	th.operands = th.operands[:len(th.operands)-n]
	result, err := th.Host.Call(th.Heap, th.IO, opID, args)
	if err != nil {
		return ip, err
	}
	th.push(result)
	return ip + 1, nil
}

func intArith(ip uint32, op bytecode.Opcode, a, b int64) (int64, error) {
	switch op {
	case bytecode.ADD_I64:
		return a + b, nil
	case bytecode.SUB_I64:
		return a - b, nil
	case bytecode.MUL_I64:
		return a * b, nil
	case bytecode.DIV_I64:
		if b == 0 {
			return 0, typeErr(ip, op, "division by zero")
		}
		return a / b, nil
	case bytecode.MOD_I64:
		if b == 0 {
			return 0, typeErr(ip, op, "division by zero")
		}
		return a % b, nil
	}
	panic("unreachable")
}

func floatArith(op bytecode.Opcode, a, b float64) float64 {
	switch op {
	case bytecode.ADD_F64:
		return a + b
	case bytecode.SUB_F64:
		return a - b
	case bytecode.MUL_F64:
		return a * b
	case bytecode.DIV_F64:
		return a / b
	case bytecode.MOD_F64:
		return math.Mod(a, b)
	}
	panic("unreachable")
}

func decimalArith(op bytecode.Opcode, a, b decimal.Decimal) decimal.Decimal {
	switch op {
	case bytecode.ADD_DECIMAL:
		return a.Add(b)
	case bytecode.SUB_DECIMAL:
		return a.Sub(b)
	case bytecode.MUL_DECIMAL:
		return a.Mul(b)
	case bytecode.DIV_DECIMAL:
		return a.Div(b)
	}
	panic("unreachable")
}

// compareToBool turns a three-way compare result (-1/0/1, or 2 for the
// float NaN sentinel) into the bool this particular comparison opcode
// wants. NaN (cmp==2) is ordered neither less, greater, nor equal to
// anything, so every comparison except NE correctly yields false.
func compareToBool(op bytecode.Opcode, cmp int) bool {
	switch op {
	case bytecode.EQ_I64, bytecode.EQ_F64, bytecode.EQ_DECIMAL:
		return cmp == 0
	case bytecode.NE_I64, bytecode.NE_F64, bytecode.NE_DECIMAL:
		return cmp != 0
	case bytecode.LT_I64, bytecode.LT_F64, bytecode.LT_DECIMAL:
		return cmp == -1
	case bytecode.GT_I64, bytecode.GT_F64, bytecode.GT_DECIMAL:
		return cmp == 1
	case bytecode.LE_I64, bytecode.LE_F64, bytecode.LE_DECIMAL:
		return cmp == -1 || cmp == 0
	case bytecode.GE_I64, bytecode.GE_F64, bytecode.GE_DECIMAL:
		return cmp == 1 || cmp == 0
	}
	panic("unreachable")
}

// stringSlice implements slice(str, start, length): negative start or length
// clamp to zero, and start beyond the string's end yields the empty string,
// rather than erroring (strings are immutable byte sequences, per spec).
func (th *Thread) stringSlice(s string, start, length int64) value.Value {
	b := []byte(s)
	if start < 0 {
		start = 0
	}
	if length < 0 {
		length = 0
	}
	if start > int64(len(b)) {
		return value.NewString(th.Heap, "")
	}
	end := start + length
	if end > int64(len(b)) {
		end = int64(len(b))
	}
	return value.NewString(th.Heap, string(b[start:end]))
}

// stringGet returns the byte at idx as an int, or -1 out of range.
func (th *Thread) stringGet(s string, idx int64) value.Value {
	b := []byte(s)
	if idx < 0 || idx >= int64(len(b)) {
		return value.Int(-1)
	}
	return value.Int(int64(b[idx]))
}

func (th *Thread) printArray(a *value.Array) {
	fmt.Fprint(th.IO.Stdout, "[")
	for i, e := range a.Elems {
		if i > 0 {
			fmt.Fprint(th.IO.Stdout, ", ")
		}
		fmt.Fprint(th.IO.Stdout, e.String())
	}
	fmt.Fprint(th.IO.Stdout, "]")
}

func (th *Thread) printMap(m *value.Map) {
	fmt.Fprint(th.IO.Stdout, "{")
	first := true
	m.Each(func(k, v value.Value) {
		if !first {
			fmt.Fprint(th.IO.Stdout, ", ")
		}
		first = false
		fmt.Fprintf(th.IO.Stdout, "%s: %s", k.String(), v.String())
	})
	fmt.Fprint(th.IO.Stdout, "}")
}

func (th *Thread) gcStats() value.Value {
	s := th.Heap.StatsSnapshot()
	m := value.NewMapValue(th.Heap)
	mv := m.AsMap()
	mv.Set(value.NewString(th.Heap, "bytes_allocated"), value.Int(int64(s.BytesAllocated)))
	mv.Set(value.NewString(th.Heap, "next_gc"), value.Int(int64(s.NextGC)))
	mv.Set(value.NewString(th.Heap, "object_count"), value.Int(int64(s.ObjectCount)))
	mv.Set(value.NewString(th.Heap, "collections"), value.Int(int64(s.Collections)))
	return m
}

func jsonGet(doc any, key string) any {
	switch d := doc.(type) {
	case map[string]any:
		return d[key]
	case []any:
		if idx, err := strconv.Atoi(key); err == nil && idx >= 0 && idx < len(d) {
			return d[idx]
		}
		return nil
	default:
		return nil
	}
}

func jsonTypeName(doc any) string {
	switch doc.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func (th *Thread) ioOpen(path, mode string) value.Value {
	var flag int
	switch mode {
	case "r":
		flag = os.O_RDONLY
	case "w":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a":
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return value.NewErr(th.Heap, fmt.Sprintf("io_open: unknown mode %q", mode))
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return value.NewErr(th.Heap, err.Error())
	}
	return value.NewOk(th.Heap, value.NewHostHandle(th.Heap, value.HostFile, &fileHandle{f: f}))
}

// fileHandle wraps *os.File with the bufio.Reader IO_READ needs to support
// reading less than a whole file in repeated calls.
type fileHandle struct {
	f *os.File
	r *bufio.Reader
}

func (th *Thread) ioRead(handle value.Value, n int64) value.Value {
	fh, ok := fileHandleOf(handle)
	if !ok {
		return value.NewErr(th.Heap, "io_read: not a file handle")
	}
	if fh.r == nil {
		fh.r = bufio.NewReader(fh.f)
	}
	buf := make([]byte, n)
	read, err := fh.r.Read(buf)
	if err != nil && read == 0 {
		return value.NewErr(th.Heap, err.Error())
	}
	return value.NewOk(th.Heap, value.NewString(th.Heap, string(buf[:read])))
}

func (th *Thread) ioWrite(handle value.Value, data string) value.Value {
	fh, ok := fileHandleOf(handle)
	if !ok {
		return value.NewErr(th.Heap, "io_write: not a file handle")
	}
	n, err := fh.f.WriteString(data)
	if err != nil {
		return value.NewErr(th.Heap, err.Error())
	}
	return value.NewOk(th.Heap, value.Int(int64(n)))
}

func (th *Thread) ioClose(handle value.Value) value.Value {
	fh, ok := fileHandleOf(handle)
	if !ok {
		return value.NewErr(th.Heap, "io_close: not a file handle")
	}
	hh := handle.AsHostHandle()
	if hh.Closed {
		return value.NewOk(th.Heap, value.UnitValue)
	}
	hh.Closed = true
	if err := fh.f.Close(); err != nil {
		return value.NewErr(th.Heap, err.Error())
	}
	return value.NewOk(th.Heap, value.UnitValue)
}

func fileHandleOf(v value.Value) (*fileHandle, bool) {
	if v.Tag() != value.HostHandleT {
		return nil, false
	}
	hh := v.AsHostHandle()
	if hh.Kind != value.HostFile {
		return nil, false
	}
	fh, ok := hh.Data.(*fileHandle)
	return fh, ok
}

func (th *Thread) ioStdinRead() value.Value {
	if th.stdinReader == nil {
		th.stdinReader = bufio.NewReader(th.IO.Stdin)
	}
	line, err := th.stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return value.NewErr(th.Heap, err.Error())
	}
	return value.NewOk(th.Heap, value.NewString(th.Heap, strings.TrimSuffix(line, "\n")))
}
