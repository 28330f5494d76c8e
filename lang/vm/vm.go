// Package vm implements the stack-based virtual machine that executes a
// bytecode.Program: an operand stack, a call stack of frames (return
// address, locals), and the opcode dispatch loop. The VM never inspects
// the AST or the compiler; bytecode.Program is its only contract with the
// rest of the toolchain, per spec.md §1's "either side can be replaced"
// boundary.
package vm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aislang/aisl/lang/bytecode"
	"github.com/aislang/aisl/lang/gc"
	"github.com/aislang/aisl/lang/value"
)

// RuntimeError reports a failure the dispatch loop cannot recover from: a
// type assumption a typed opcode made that did not hold, a call to an
// out-of-range function index, a host call with no host dispatcher configured,
// or similar. It should be unreachable for bytecode lang/compiler emitted
// from a well-typed AST; it exists because the VM also accepts bytecode
// loaded from an artifact file, which might not have come from this
// compiler at all (spec.md §4.1).
type RuntimeError struct {
	IP  uint32
	Op  bytecode.Opcode
	Msg string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at ip=%d (%s): %s", e.IP, e.Op, e.Msg)
}

// HostDispatcher executes the single HOST_CALL escape hatch opcode,
// marshalling opID and args to whatever host-side library backs it (see
// lang/host). The VM depends only on this interface, not on lang/host
// itself, so either side may be swapped independently. HOST_CALL's operand
// carries only the host op id (not an argument count, unlike CALL), so the
// VM asks Arity how many operand-stack values to pop and pass along.
type HostDispatcher interface {
	Arity(opID uint32) (int, bool)
	Call(heap *gc.Heap, io IOContext, opID uint32, args []value.Value) (value.Value, error)
}

// IOContext carries a thread's standard I/O streams to opcodes (PRINT_*,
// the IO_* family, and HostDispatcher.Call) that need them.
type IOContext struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

type callFrame struct {
	funcIdx    int
	returnAddr uint32
	locals     []value.Value
}

// Thread executes one bytecode.Program to completion. It is not safe for
// concurrent use (spec.md's Non-goals exclude concurrent mutation of
// running programs).
type Thread struct {
	IO   IOContext
	Heap *gc.Heap
	Host HostDispatcher

	prog        *bytecode.Program
	operands    []value.Value
	frames      []*callFrame
	stdinReader *bufio.Reader
}

// NewThread returns a Thread ready to run prog. A zero-valued field of ioc
// defaults to the corresponding os.Std{out,err,in} stream, the same
// "nil means the real stream" convention the teacher's Thread uses.
func NewThread(prog *bytecode.Program, ioc IOContext) *Thread {
	if ioc.Stdout == nil {
		ioc.Stdout = os.Stdout
	}
	if ioc.Stderr == nil {
		ioc.Stderr = os.Stderr
	}
	if ioc.Stdin == nil {
		ioc.Stdin = os.Stdin
	}
	th := &Thread{prog: prog, IO: ioc}
	th.Heap = gc.NewHeap(th)
	return th
}

// Roots implements gc.RootSource: every compound value currently reachable
// from the operand stack or any live frame's locals.
func (th *Thread) Roots() []gc.Object {
	var roots []gc.Object
	for _, v := range th.operands {
		if o := v.Object(); o != nil {
			roots = append(roots, o)
		}
	}
	for _, f := range th.frames {
		for _, v := range f.locals {
			if o := v.Object(); o != nil {
				roots = append(roots, o)
			}
		}
	}
	return roots
}

func (th *Thread) push(v value.Value) { th.operands = append(th.operands, v) }

func (th *Thread) pop() value.Value {
	v := th.operands[len(th.operands)-1]
	th.operands = th.operands[:len(th.operands)-1]
	return v
}

func (th *Thread) top() value.Value { return th.operands[len(th.operands)-1] }

// Run executes the function named entry to completion and returns its
// result. ctx is checked between instructions so a long-running or
// infinite-looping program can be cancelled from the outside.
func (th *Thread) Run(ctx context.Context, entry string) (value.Value, error) {
	idx := th.prog.FunctionByName(entry)
	if idx < 0 {
		return value.Value{}, fmt.Errorf("vm: no such function %q", entry)
	}
	fn := th.prog.Functions[idx]
	th.frames = append(th.frames, &callFrame{funcIdx: idx, locals: make([]value.Value, fn.LocalCount)})
	ip := fn.StartAddr

	for {
		select {
		case <-ctx.Done():
			return value.Value{}, ctx.Err()
		default:
		}

		if int(ip) >= len(th.prog.Instructions) {
			return value.Value{}, &RuntimeError{IP: ip, Msg: "fell off the end of the program"}
		}
		in := th.prog.Instructions[ip]

		if in.Op == bytecode.HALT {
			var result value.Value
			if len(th.operands) > 0 {
				result = th.top()
			}
			return result, nil
		}
		if in.Op == bytecode.RETURN {
			result := th.pop()
			done, retIP, err := th.doReturn()
			if err != nil {
				return value.Value{}, err
			}
			if done {
				return result, nil
			}
			ip = retIP
			th.push(result)
			continue
		}

		next, err := th.step(ip, in)
		if err != nil {
			return value.Value{}, err
		}
		ip = next

		if th.Heap.ShouldCollect() {
			th.Heap.Collect()
		}
	}
}

// doReturn pops the current frame. It reports done=true when that was the
// outermost frame (program finished), otherwise it returns the instruction
// address execution resumes at in the caller.
func (th *Thread) doReturn() (done bool, resumeIP uint32, err error) {
	cur := th.frames[len(th.frames)-1]
	th.frames = th.frames[:len(th.frames)-1]
	if len(th.frames) == 0 {
		return true, 0, nil
	}
	return false, cur.returnAddr, nil
}

func (th *Thread) frame() *callFrame { return th.frames[len(th.frames)-1] }

func typeErr(ip uint32, op bytecode.Opcode, format string, args ...any) error {
	return &RuntimeError{IP: ip, Op: op, Msg: fmt.Sprintf(format, args...)}
}
