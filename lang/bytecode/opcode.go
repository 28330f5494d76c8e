// Package bytecode defines the instruction set and artifact format shared by
// the compiler and the virtual machine.
//
// An artifact ("program") is an ordered sequence of fixed-size Instructions,
// a string constant pool, and a function table. It is the only contract
// between the compiler back end and the VM front end: the compiler never
// invokes the VM directly, and the VM never inspects the AST. Either side can
// be replaced as long as it agrees on this package.
//
// Instructions are fixed-size tagged records (an Opcode plus one 8-byte
// operand) rather than the variable-length varint encoding a bytecode VM
// might otherwise use, because the artifact format (format.go) requires
// struct-packed, byte-exact records for its round-trip guarantee.
package bytecode

import "fmt"

// Opcode identifies the operation an Instruction performs.
type Opcode uint8

// Opcodes are grouped the way spec.md groups them: stack, locals, typed
// arithmetic/comparison, logical, control flow, string/array/map, I/O,
// result inspection, JSON, GC, and a single generic host-call escape hatch
// for the large catalogue of host builtins (network, filesystem, process,
// crypto, time, regex, SQLite, WebSocket, channel, FFI) that spec.md treats
// as external collaborators.
const (
	NOP Opcode = iota

	// --- stack ---
	PUSH_INT
	PUSH_FLOAT
	PUSH_BOOL
	PUSH_STRING
	PUSH_UNIT
	POP
	DUP

	// --- locals ---
	LOAD_LOCAL
	STORE_LOCAL

	// --- typed arithmetic ---
	ADD_I64
	SUB_I64
	MUL_I64
	DIV_I64
	MOD_I64
	NEG_I64
	ADD_F64
	SUB_F64
	MUL_F64
	DIV_F64
	MOD_F64
	NEG_F64
	ADD_DECIMAL
	SUB_DECIMAL
	MUL_DECIMAL
	DIV_DECIMAL
	NEG_DECIMAL

	// --- typed comparison ---
	EQ_I64
	NE_I64
	LT_I64
	GT_I64
	LE_I64
	GE_I64
	EQ_F64
	NE_F64
	LT_F64
	GT_F64
	LE_F64
	GE_F64
	EQ_DECIMAL
	NE_DECIMAL
	LT_DECIMAL
	GT_DECIMAL
	LE_DECIMAL
	GE_DECIMAL

	// --- logical ---
	AND_BOOL
	OR_BOOL
	NOT_BOOL

	// --- control flow ---
	JUMP
	JUMP_IF_FALSE
	JUMP_IF_TRUE
	CALL
	RETURN
	HALT

	// --- string ---
	STRING_LEN
	STRING_CONCAT
	STRING_SLICE
	STRING_GET
	STRING_EQ
	STRING_FROM_I64
	STRING_FROM_F64
	STRING_FROM_BOOL
	STRING_FROM_DECIMAL
	STRING_SPLIT
	STRING_TRIM
	STRING_REPLACE
	STRING_CONTAINS
	STRING_STARTS_WITH
	STRING_ENDS_WITH
	STRING_TO_UPPER
	STRING_TO_LOWER

	// --- array ---
	ARRAY_NEW
	ARRAY_PUSH
	ARRAY_GET
	ARRAY_SET
	ARRAY_LEN

	// --- map ---
	MAP_NEW
	MAP_SET
	MAP_GET
	MAP_HAS
	MAP_DELETE
	MAP_LEN
	MAP_KEYS

	// --- I/O ---
	IO_OPEN
	IO_READ
	IO_WRITE
	IO_CLOSE
	IO_STDIN_READ
	PRINT_I64
	PRINT_F64
	PRINT_BOOL
	PRINT_STRING
	PRINT_ARRAY
	PRINT_MAP
	PRINT_DECIMAL

	// --- result / error ---
	IS_OK
	IS_ERR
	UNWRAP
	UNWRAP_OR
	ERROR_CODE
	ERROR_MSG

	// --- json ---
	JSON_PARSE
	JSON_STRINGIFY
	JSON_GET
	JSON_TYPE

	// --- gc ---
	GC_COLLECT
	GC_STATS

	// --- host escape hatch (network, fs, process, crypto, time, regex,
	// sqlite, websocket, channel, ffi; see lang/host) ---
	HOST_CALL

	opcodeMax
)

// argMin is the lowest-numbered opcode that carries an operand. The
// operand-carrying opcodes are not contiguous above it (POP, DUP and the
// typed arithmetic/comparison/logical family sit above it and take none);
// HasOperand is the test that decides.
const argMin = PUSH_INT

// jumpMin/jumpMax bound the opcodes whose operand is a jump target; IsJump
// uses them, and Program.ValidateJumps relies on IsJump.
const (
	jumpMin = JUMP
	jumpMax = JUMP_IF_TRUE
)

// HasOperand reports whether op's operand is meaningful. The text format
// writes and reads an operand only for these opcodes; the binary format
// stores an 8-byte operand for every instruction regardless.
func (op Opcode) HasOperand() bool {
	switch op {
	case PUSH_INT, PUSH_FLOAT, PUSH_BOOL, PUSH_STRING,
		LOAD_LOCAL, STORE_LOCAL,
		JUMP, JUMP_IF_FALSE, JUMP_IF_TRUE, CALL, HOST_CALL:
		return true
	default:
		return false
	}
}

// IsJump reports whether op's operand is a jump target instruction index.
func (op Opcode) IsJump() bool {
	return op >= jumpMin && op <= jumpMax
}

var opcodeNames = [...]string{
	NOP: "nop", PUSH_INT: "push_int", PUSH_FLOAT: "push_float", PUSH_BOOL: "push_bool",
	PUSH_STRING: "push_string", PUSH_UNIT: "push_unit", POP: "pop", DUP: "dup",
	LOAD_LOCAL: "load_local", STORE_LOCAL: "store_local",
	ADD_I64: "add_i64", SUB_I64: "sub_i64", MUL_I64: "mul_i64", DIV_I64: "div_i64", MOD_I64: "mod_i64", NEG_I64: "neg_i64",
	ADD_F64: "add_f64", SUB_F64: "sub_f64", MUL_F64: "mul_f64", DIV_F64: "div_f64", MOD_F64: "mod_f64", NEG_F64: "neg_f64",
	ADD_DECIMAL: "add_decimal", SUB_DECIMAL: "sub_decimal", MUL_DECIMAL: "mul_decimal", DIV_DECIMAL: "div_decimal", NEG_DECIMAL: "neg_decimal",
	EQ_I64: "eq_i64", NE_I64: "ne_i64", LT_I64: "lt_i64", GT_I64: "gt_i64", LE_I64: "le_i64", GE_I64: "ge_i64",
	EQ_F64: "eq_f64", NE_F64: "ne_f64", LT_F64: "lt_f64", GT_F64: "gt_f64", LE_F64: "le_f64", GE_F64: "ge_f64",
	EQ_DECIMAL: "eq_decimal", NE_DECIMAL: "ne_decimal", LT_DECIMAL: "lt_decimal", GT_DECIMAL: "gt_decimal", LE_DECIMAL: "le_decimal", GE_DECIMAL: "ge_decimal",
	AND_BOOL: "and_bool", OR_BOOL: "or_bool", NOT_BOOL: "not_bool",
	JUMP: "jump", JUMP_IF_FALSE: "jump_if_false", JUMP_IF_TRUE: "jump_if_true",
	CALL: "call", RETURN: "return", HALT: "halt",
	STRING_LEN: "string_len", STRING_CONCAT: "string_concat", STRING_SLICE: "string_slice",
	STRING_GET: "string_get", STRING_EQ: "string_eq",
	STRING_FROM_I64: "string_from_i64", STRING_FROM_F64: "string_from_f64",
	STRING_FROM_BOOL: "string_from_bool", STRING_FROM_DECIMAL: "string_from_decimal",
	STRING_SPLIT: "string_split", STRING_TRIM: "string_trim", STRING_REPLACE: "string_replace",
	STRING_CONTAINS: "string_contains", STRING_STARTS_WITH: "string_starts_with",
	STRING_ENDS_WITH: "string_ends_with", STRING_TO_UPPER: "string_to_upper", STRING_TO_LOWER: "string_to_lower",
	ARRAY_NEW: "array_new", ARRAY_PUSH: "array_push", ARRAY_GET: "array_get", ARRAY_SET: "array_set", ARRAY_LEN: "array_len",
	MAP_NEW: "map_new", MAP_SET: "map_set", MAP_GET: "map_get", MAP_HAS: "map_has",
	MAP_DELETE: "map_delete", MAP_LEN: "map_len", MAP_KEYS: "map_keys",
	IO_OPEN: "io_open", IO_READ: "io_read", IO_WRITE: "io_write", IO_CLOSE: "io_close", IO_STDIN_READ: "io_stdin_read",
	PRINT_I64: "print_i64", PRINT_F64: "print_f64", PRINT_BOOL: "print_bool", PRINT_STRING: "print_string",
	PRINT_ARRAY: "print_array", PRINT_MAP: "print_map", PRINT_DECIMAL: "print_decimal",
	IS_OK: "is_ok", IS_ERR: "is_err", UNWRAP: "unwrap", UNWRAP_OR: "unwrap_or",
	ERROR_CODE: "error_code", ERROR_MSG: "error_msg",
	JSON_PARSE: "json_parse", JSON_STRINGIFY: "json_stringify", JSON_GET: "json_get", JSON_TYPE: "json_type",
	GC_COLLECT: "gc_collect", GC_STATS: "gc_stats",
	HOST_CALL: "host_call",
}

var namesToOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// LookupMnemonic returns the opcode for a text-format mnemonic. The mapping
// is bijective: an unrecognised mnemonic fails the load, per spec.md §4.1.
func LookupMnemonic(s string) (Opcode, bool) {
	op, ok := namesToOpcode[s]
	return op, ok
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal_opcode(%d)", byte(op))
}
