package sexpr

import (
	"fmt"
	"strings"

	"github.com/aislang/aisl/lang/ast"
)

type tokenKind int

const (
	tokLParen tokenKind = iota
	tokRParen
	tokAtom
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  ast.Position
}

// lexer splits source text into parens and atoms (symbols, numbers,
// booleans, and double-quoted strings); everything between a ';' and the
// next newline is a comment.
type lexer struct {
	src       []byte
	off       int
	line, col int
	filename  string
}

func newLexer(src []byte, filename string) *lexer {
	return &lexer{src: src, line: 1, col: 1, filename: filename}
}

func (l *lexer) errorf(pos ast.Position, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte() (byte, bool) {
	if l.off >= len(l.src) {
		return 0, false
	}
	return l.src[l.off], true
}

func (l *lexer) advance() byte {
	b := l.src[l.off]
	l.off++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

func isDelim(b byte) bool { return isSpace(b) || b == '(' || b == ')' || b == ';' }

func (l *lexer) skipSpaceAndComments() {
	for {
		b, ok := l.peekByte()
		if !ok {
			return
		}
		if isSpace(b) {
			l.advance()
			continue
		}
		if b == ';' {
			for {
				b, ok := l.peekByte()
				if !ok || b == '\n' {
					break
				}
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	pos := ast.Position{Line: l.line, Col: l.col}
	b, ok := l.peekByte()
	if !ok {
		return token{kind: tokEOF, pos: pos}, nil
	}
	switch b {
	case '(':
		l.advance()
		return token{kind: tokLParen, pos: pos}, nil
	case ')':
		l.advance()
		return token{kind: tokRParen, pos: pos}, nil
	case '"':
		return l.readString(pos)
	default:
		return l.readAtom(pos)
	}
}

func (l *lexer) readString(pos ast.Position) (token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		b, ok := l.peekByte()
		if !ok {
			return token{}, l.errorf(pos, "unterminated string literal")
		}
		if b == '"' {
			l.advance()
			break
		}
		if b == '\\' {
			l.advance()
			esc, ok := l.peekByte()
			if !ok {
				return token{}, l.errorf(pos, "unterminated string literal")
			}
			l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				return token{}, l.errorf(pos, "unknown string escape %q", esc)
			}
			continue
		}
		sb.WriteByte(b)
		l.advance()
	}
	// text carries the raw, unescaped Go string value; tokAtom's text is the
	// literal source spelling, so a leading '"' tags this as a string token
	// without needing a separate tokenKind.
	return token{kind: tokAtom, text: "\"" + sb.String(), pos: pos}, nil
}

func (l *lexer) readAtom(pos ast.Position) (token, error) {
	start := l.off
	for {
		b, ok := l.peekByte()
		if !ok || isDelim(b) {
			break
		}
		l.advance()
	}
	if l.off == start {
		return token{}, l.errorf(pos, "unexpected byte %q", l.src[start])
	}
	return token{kind: tokAtom, text: string(l.src[start:l.off]), pos: pos}, nil
}
