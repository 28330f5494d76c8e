package cli

import (
	"fmt"

	"github.com/aislang/aisl/lang/ast"
	"github.com/aislang/aisl/lang/compiler"
	"github.com/aislang/aisl/lang/desugar"
	"github.com/aislang/aisl/lang/sexpr"
)

// diagnostic is the (code, position, message) triple spec.md §7 requires
// every lex/parse/compile error to carry.
type diagnostic struct {
	code        string
	pos         ast.Position
	msg         string
	humanPrefix string
}

func classify(err error) diagnostic {
	switch e := err.(type) {
	case *sexpr.Error:
		return diagnostic{code: "PARSE_ERROR", pos: e.Pos, msg: e.Msg, humanPrefix: "Parse error"}
	case *desugar.Error:
		return diagnostic{code: "COMPILE_ERROR", pos: e.Pos, msg: e.Msg, humanPrefix: "Compile error"}
	case *compiler.Error:
		return diagnostic{code: "COMPILE_ERROR", pos: e.Pos, msg: e.Msg, humanPrefix: "Compile error"}
	default:
		return diagnostic{code: "ERROR", msg: err.Error(), humanPrefix: "Error"}
	}
}

// FormatError renders err per the AISL_ERROR_FORMAT configuration: "machine"
// produces ERROR:<CODE>:<LINE>:<COL>:<MESSAGE>; anything else (the default)
// produces a human-readable one-liner prefixed by its kind.
func FormatError(err error, errorFormat string) string {
	d := classify(err)
	if errorFormat == "machine" {
		return fmt.Sprintf("ERROR:%s:%d:%d:%s", d.code, d.pos.Line, d.pos.Col, d.msg)
	}
	return fmt.Sprintf("%s: %s", d.humanPrefix, d.msg)
}
