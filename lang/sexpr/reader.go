package sexpr

import (
	"fmt"

	"github.com/aislang/aisl/lang/ast"
)

// Error is a read-time failure: malformed parenthesization, an unterminated
// string, or an unrecognised form shape. It carries a position the same way
// lang/desugar.Error and lang/compiler.Error do, so a CLI driver can print
// all three kinds of front-to-back errors uniformly.
type Error struct {
	Pos ast.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg) }

// node is a generic S-expression: either an atom (a symbol, number, bool,
// or quoted string, kept as its raw source spelling) or a parenthesized
// list of sub-nodes. build.go interprets nodes against the handful of
// keyword forms spec.md's AST contract requires; reader.go knows nothing
// about that contract.
type node struct {
	atom string
	list []node
	isAtom bool
	pos  ast.Position
}

// readAll reads every top-level form in src.
func readAll(src []byte, filename string) ([]node, error) {
	l := newLexer(src, filename)
	var forms []node
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			return forms, nil
		}
		n, err := readForm(l, tok)
		if err != nil {
			return nil, err
		}
		forms = append(forms, n)
	}
}

// readForm reads one complete form given its already-consumed first token.
func readForm(l *lexer, first token) (node, error) {
	switch first.kind {
	case tokAtom:
		return node{atom: first.text, isAtom: true, pos: first.pos}, nil
	case tokLParen:
		var items []node
		for {
			tok, err := l.next()
			if err != nil {
				return node{}, err
			}
			if tok.kind == tokRParen {
				return node{list: items, pos: first.pos}, nil
			}
			if tok.kind == tokEOF {
				return node{}, &Error{Pos: first.pos, Msg: "unterminated list"}
			}
			item, err := readForm(l, tok)
			if err != nil {
				return node{}, err
			}
			items = append(items, item)
		}
	default:
		return node{}, &Error{Pos: first.pos, Msg: "unexpected token"}
	}
}
