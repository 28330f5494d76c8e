package compiler

import (
	"github.com/aislang/aisl/lang/ast"
	"github.com/aislang/aisl/lang/bytecode"
)

// builtin describes one non-pseudo Apply callee the compiler recognises by
// name: how many arguments it pops, and which opcode to emit. The
// polymorphic builtins (print, to_string) resolve their opcode from the
// static type of their first operand instead of a fixed one; those use
// resolve instead of op. The BinOp/Unary operators are dispatched the same
// way, through binOps and unaryOps below.
type builtin struct {
	arity   int
	op      bytecode.Opcode
	resolve func(t ast.Type) (bytecode.Opcode, bool)
}

var builtins = map[string]builtin{
	"string_len":          {arity: 1, op: bytecode.STRING_LEN},
	"string_concat":       {arity: 2, op: bytecode.STRING_CONCAT},
	"string_slice":        {arity: 3, op: bytecode.STRING_SLICE},
	"string_get":          {arity: 2, op: bytecode.STRING_GET},
	"string_eq":           {arity: 2, op: bytecode.STRING_EQ},
	"string_split":        {arity: 2, op: bytecode.STRING_SPLIT},
	"string_trim":         {arity: 1, op: bytecode.STRING_TRIM},
	"string_replace":      {arity: 3, op: bytecode.STRING_REPLACE},
	"string_contains":     {arity: 2, op: bytecode.STRING_CONTAINS},
	"string_starts_with":  {arity: 2, op: bytecode.STRING_STARTS_WITH},
	"string_ends_with":    {arity: 2, op: bytecode.STRING_ENDS_WITH},
	"string_to_upper":     {arity: 1, op: bytecode.STRING_TO_UPPER},
	"string_to_lower":     {arity: 1, op: bytecode.STRING_TO_LOWER},
	"array_new":           {arity: 0, op: bytecode.ARRAY_NEW},
	"array_push":          {arity: 2, op: bytecode.ARRAY_PUSH},
	"array_get":           {arity: 2, op: bytecode.ARRAY_GET},
	"array_set":           {arity: 3, op: bytecode.ARRAY_SET},
	"array_len":           {arity: 1, op: bytecode.ARRAY_LEN},
	"map_new":             {arity: 0, op: bytecode.MAP_NEW},
	"map_set":             {arity: 3, op: bytecode.MAP_SET},
	"map_get":             {arity: 2, op: bytecode.MAP_GET},
	"map_has":             {arity: 2, op: bytecode.MAP_HAS},
	"map_delete":          {arity: 2, op: bytecode.MAP_DELETE},
	"map_len":             {arity: 1, op: bytecode.MAP_LEN},
	"map_keys":            {arity: 1, op: bytecode.MAP_KEYS},
	"io_stdin_read":       {arity: 0, op: bytecode.IO_STDIN_READ},
	"is_ok":               {arity: 1, op: bytecode.IS_OK},
	"is_err":              {arity: 1, op: bytecode.IS_ERR},
	"unwrap":              {arity: 1, op: bytecode.UNWRAP},
	"unwrap_or":           {arity: 2, op: bytecode.UNWRAP_OR},
	"error_code":          {arity: 1, op: bytecode.ERROR_CODE},
	"error_msg":           {arity: 1, op: bytecode.ERROR_MSG},
	"json_parse":          {arity: 1, op: bytecode.JSON_PARSE},
	"json_stringify":      {arity: 1, op: bytecode.JSON_STRINGIFY},
	"json_get":            {arity: 2, op: bytecode.JSON_GET},
	"json_type":           {arity: 1, op: bytecode.JSON_TYPE},
	"gc_collect":          {arity: 0, op: bytecode.GC_COLLECT},
	"gc_stats":            {arity: 0, op: bytecode.GC_STATS},

	"print": {arity: 1, resolve: func(t ast.Type) (bytecode.Opcode, bool) {
		switch t {
		case ast.Int:
			return bytecode.PRINT_I64, true
		case ast.Float:
			return bytecode.PRINT_F64, true
		case ast.Bool:
			return bytecode.PRINT_BOOL, true
		case ast.String:
			return bytecode.PRINT_STRING, true
		case ast.Array:
			return bytecode.PRINT_ARRAY, true
		case ast.Map:
			return bytecode.PRINT_MAP, true
		case ast.Decimal:
			return bytecode.PRINT_DECIMAL, true
		default:
			return 0, false
		}
	}},
	"to_string": {arity: 1, resolve: func(t ast.Type) (bytecode.Opcode, bool) {
		switch t {
		case ast.Int:
			return bytecode.STRING_FROM_I64, true
		case ast.Float:
			return bytecode.STRING_FROM_F64, true
		case ast.Bool:
			return bytecode.STRING_FROM_BOOL, true
		case ast.Decimal:
			return bytecode.STRING_FROM_DECIMAL, true
		default:
			return 0, false
		}
	}},
}

// binOps maps a BinOp.Op name to the opcode family dispatched by the
// static type of its left operand (spec.md's type-directed dispatch: short
// polymorphic names like "+" or "=" compile to one of several typed
// opcodes based on static type, resolved entirely at compile time so the
// VM never branches on a runtime tag for these).
var binOps = map[string]map[ast.Type]bytecode.Opcode{
	"+": {ast.Int: bytecode.ADD_I64, ast.Float: bytecode.ADD_F64, ast.Decimal: bytecode.ADD_DECIMAL},
	"-": {ast.Int: bytecode.SUB_I64, ast.Float: bytecode.SUB_F64, ast.Decimal: bytecode.SUB_DECIMAL},
	"*": {ast.Int: bytecode.MUL_I64, ast.Float: bytecode.MUL_F64, ast.Decimal: bytecode.MUL_DECIMAL},
	"/": {ast.Int: bytecode.DIV_I64, ast.Float: bytecode.DIV_F64, ast.Decimal: bytecode.DIV_DECIMAL},
	"%": {ast.Int: bytecode.MOD_I64, ast.Float: bytecode.MOD_F64},
	"=": {ast.Int: bytecode.EQ_I64, ast.Float: bytecode.EQ_F64, ast.Decimal: bytecode.EQ_DECIMAL},
	"!=": {ast.Int: bytecode.NE_I64, ast.Float: bytecode.NE_F64, ast.Decimal: bytecode.NE_DECIMAL},
	"<": {ast.Int: bytecode.LT_I64, ast.Float: bytecode.LT_F64, ast.Decimal: bytecode.LT_DECIMAL},
	">": {ast.Int: bytecode.GT_I64, ast.Float: bytecode.GT_F64, ast.Decimal: bytecode.GT_DECIMAL},
	"<=": {ast.Int: bytecode.LE_I64, ast.Float: bytecode.LE_F64, ast.Decimal: bytecode.LE_DECIMAL},
	">=": {ast.Int: bytecode.GE_I64, ast.Float: bytecode.GE_F64, ast.Decimal: bytecode.GE_DECIMAL},
}

var unaryOps = map[string]map[ast.Type]bytecode.Opcode{
	"neg": {ast.Int: bytecode.NEG_I64, ast.Float: bytecode.NEG_F64, ast.Decimal: bytecode.NEG_DECIMAL},
}
