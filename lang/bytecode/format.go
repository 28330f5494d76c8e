package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the four-byte little-endian magic number ("AISL") that opens
// every binary artifact.
const Magic uint32 = 0x4149534C

// FormatError reports a failure to load a serialized artifact: a magic
// mismatch, a premature EOF, or a declared count that does not match the
// table that follows it. Per spec.md §4.1, a failed load must never
// partially apply -- DecodeBinary (like DecodeText) only ever returns a
// fully valid Program or no Program at all.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "bytecode: format error: " + e.Reason }

func formatErrf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// EncodeBinary serializes p to the packed little-endian binary artifact
// format described in spec.md §4.1.
func EncodeBinary(p *Program) []byte {
	size := 4 + 4 + len(p.Instructions)*12 + 4
	for _, s := range p.Strings {
		size += 4 + len(s)
	}
	size += 4
	for _, fn := range p.Functions {
		size += 4 + len(fn.Name) + 4 + 4 + 4
	}
	buf := make([]byte, 0, size)

	buf = appendU32(buf, Magic)
	buf = appendU32(buf, uint32(len(p.Instructions)))
	for _, in := range p.Instructions {
		buf = append(buf, byte(in.Op), 0, 0, 0)
		buf = appendU64(buf, in.Operand)
	}

	buf = appendU32(buf, uint32(len(p.Strings)))
	for _, s := range p.Strings {
		buf = appendU32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}

	buf = appendU32(buf, uint32(len(p.Functions)))
	for _, fn := range p.Functions {
		buf = appendU32(buf, uint32(len(fn.Name)))
		buf = append(buf, fn.Name...)
		buf = appendU32(buf, fn.StartAddr)
		buf = appendU32(buf, fn.LocalCount)
		buf = appendU32(buf, fn.ParamCount)
	}
	return buf
}

// DecodeBinary parses a packed binary artifact produced by EncodeBinary. On
// any format error, it returns (nil, err); callers must not attempt to run a
// nil Program.
func DecodeBinary(data []byte) (*Program, error) {
	r := &byteReader{data: data}

	magic, err := r.u32()
	if err != nil {
		return nil, formatErrf("reading magic: %v", err)
	}
	if magic != Magic {
		return nil, formatErrf("bad magic: got %#x, want %#x", magic, Magic)
	}

	instrCount, err := r.u32()
	if err != nil {
		return nil, formatErrf("reading instruction count: %v", err)
	}
	instructions := make([]Instruction, instrCount)
	for i := range instructions {
		opByte, err := r.byte()
		if err != nil {
			return nil, formatErrf("reading instruction %d opcode: %v", i, err)
		}
		if _, err := r.skip(3); err != nil {
			return nil, formatErrf("reading instruction %d padding: %v", i, err)
		}
		operand, err := r.u64()
		if err != nil {
			return nil, formatErrf("reading instruction %d operand: %v", i, err)
		}
		instructions[i] = Instruction{Op: Opcode(opByte), Operand: operand}
	}

	stringCount, err := r.u32()
	if err != nil {
		return nil, formatErrf("reading string count: %v", err)
	}
	strs := make([]string, stringCount)
	for i := range strs {
		length, err := r.u32()
		if err != nil {
			return nil, formatErrf("reading string %d length: %v", i, err)
		}
		b, err := r.bytes(int(length))
		if err != nil {
			return nil, formatErrf("reading string %d bytes: %v", i, err)
		}
		strs[i] = string(b)
	}

	funcCount, err := r.u32()
	if err != nil {
		return nil, formatErrf("reading function count: %v", err)
	}
	funcs := make([]FunctionEntry, funcCount)
	for i := range funcs {
		nameLen, err := r.u32()
		if err != nil {
			return nil, formatErrf("reading function %d name length: %v", i, err)
		}
		nameBytes, err := r.bytes(int(nameLen))
		if err != nil {
			return nil, formatErrf("reading function %d name: %v", i, err)
		}
		start, err := r.u32()
		if err != nil {
			return nil, formatErrf("reading function %d start addr: %v", i, err)
		}
		locals, err := r.u32()
		if err != nil {
			return nil, formatErrf("reading function %d local count: %v", i, err)
		}
		params, err := r.u32()
		if err != nil {
			return nil, formatErrf("reading function %d param count: %v", i, err)
		}
		funcs[i] = FunctionEntry{Name: string(nameBytes), StartAddr: start, LocalCount: locals, ParamCount: params}
	}

	if !r.atEOF() {
		return nil, formatErrf("trailing %d bytes after function table", len(r.data)-r.pos)
	}

	return &Program{Instructions: instructions, Strings: strs, Functions: funcs}, nil
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

type byteReader struct {
	data []byte
	pos  int
}

var errPrematureEOF = errors.New("premature EOF")

func (r *byteReader) atEOF() bool { return r.pos >= len(r.data) }

func (r *byteReader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errPrematureEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) skip(n int) (int, error) {
	if r.pos+n > len(r.data) {
		return 0, errPrematureEOF
	}
	r.pos += n
	return n, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, errPrematureEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteBinary writes the artifact to w.
func WriteBinary(w io.Writer, p *Program) error {
	_, err := w.Write(EncodeBinary(p))
	return err
}
