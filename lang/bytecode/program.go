package bytecode

import "strconv"

// FunctionEntry is one row of a Program's function table: a function's
// name, its entry address (instruction index), its local-slot count, and
// its parameter count. All three are fixed at link time (spec.md §3).
type FunctionEntry struct {
	Name       string
	StartAddr  uint32
	LocalCount uint32
	ParamCount uint32
}

// Program is an immutable bytecode artifact: an ordered instruction
// sequence, a string constant pool, and a function table. It is the
// compiler's output and the VM's input; neither side depends on anything
// else to execute a program.
type Program struct {
	Instructions []Instruction
	Strings      []string
	Functions    []FunctionEntry
}

// FunctionByName returns the index of the function named name, or -1 if no
// such function exists.
func (p *Program) FunctionByName(name string) int {
	for i, fn := range p.Functions {
		if fn.Name == name {
			return i
		}
	}
	return -1
}

// ValidateJumps checks the invariant that every jump-family instruction's
// target is a valid instruction index within the bounds of the function body
// that contains it (spec.md §8: "For all functions, every reachable JUMP*
// target is a valid instruction index in the function body").
func (p *Program) ValidateJumps() error {
	for fi, fn := range p.Functions {
		end := uint32(len(p.Instructions))
		if fi+1 < len(p.Functions) {
			end = p.Functions[fi+1].StartAddr
		}
		for addr := fn.StartAddr; addr < end; addr++ {
			in := p.Instructions[addr]
			if in.Op.IsJump() {
				t := in.JumpTarget()
				if t < fn.StartAddr || t >= end {
					return &JumpError{Function: fn.Name, Address: addr, Target: t}
				}
			}
		}
	}
	return nil
}

// JumpError reports an out-of-range jump target discovered by ValidateJumps.
type JumpError struct {
	Function string
	Address  uint32
	Target   uint32
}

func (e *JumpError) Error() string {
	return "invalid jump target " + strconv.Itoa(int(e.Target)) + " at address " +
		strconv.Itoa(int(e.Address)) + " in function " + e.Function
}
