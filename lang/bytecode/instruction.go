package bytecode

import "math"

// Instruction is a fixed-size tagged record: an Opcode plus one 8-byte
// operand. The operand is reinterpreted according to Op: an i64, an f64 (via
// its bit pattern), a u32 index (constant pool / local slot), a jump target,
// or a packed (func_idx, arg_count) pair for CALL.
type Instruction struct {
	Op      Opcode
	Operand uint64
}

func insn(op Opcode, operand uint64) Instruction { return Instruction{Op: op, Operand: operand} }

// PushInt builds a PUSH_INT instruction.
func PushInt(v int64) Instruction { return insn(PUSH_INT, uint64(v)) }

// PushFloat builds a PUSH_FLOAT instruction.
func PushFloat(v float64) Instruction { return insn(PUSH_FLOAT, math.Float64bits(v)) }

// PushBool builds a PUSH_BOOL instruction.
func PushBool(v bool) Instruction {
	if v {
		return insn(PUSH_BOOL, 1)
	}
	return insn(PUSH_BOOL, 0)
}

// PushString builds a PUSH_STRING instruction referencing the string pool by
// index.
func PushString(index uint32) Instruction { return insn(PUSH_STRING, uint64(index)) }

// U32 builds an instruction whose sole operand is a plain u32 (LOAD_LOCAL,
// STORE_LOCAL, HOST_CALL).
func U32(op Opcode, v uint32) Instruction { return insn(op, uint64(v)) }

// Jump builds a jump-family instruction with the given target instruction
// index (or the 0xFFFFFFFF pending-jump sentinel, see lang/compiler).
func Jump(op Opcode, target uint32) Instruction { return insn(op, uint64(target)) }

// Call builds a CALL instruction. The function index occupies the high 32
// bits, the argument count the low 32 bits.
func Call(funcIdx, argCount uint32) Instruction {
	return insn(CALL, uint64(funcIdx)<<32|uint64(argCount))
}

// Simple builds a zero-operand instruction (POP, DUP, RETURN, HALT, the
// typed arithmetic/comparison/logical family, and so on).
func Simple(op Opcode) Instruction { return insn(op, 0) }

// Int returns the operand reinterpreted as an int64.
func (in Instruction) Int() int64 { return int64(in.Operand) }

// Float returns the operand reinterpreted as a float64.
func (in Instruction) Float() float64 { return math.Float64frombits(in.Operand) }

// Bool returns the operand reinterpreted as a bool.
func (in Instruction) Bool() bool { return in.Operand != 0 }

// U32Operand returns the low 32 bits of the operand as a plain index.
func (in Instruction) U32Operand() uint32 { return uint32(in.Operand) }

// JumpTarget returns the operand as a jump target instruction index.
func (in Instruction) JumpTarget() uint32 { return uint32(in.Operand) }

// CallArgs returns the (func_idx, arg_count) pair of a CALL instruction.
func (in Instruction) CallArgs() (funcIdx, argCount uint32) {
	return uint32(in.Operand >> 32), uint32(in.Operand)
}

// PendingJumpSentinel is written as a forward jump's target until the
// compiler's label resolution pass patches it in place. The VM never
// observes this value.
const PendingJumpSentinel uint32 = 0xFFFFFFFF
