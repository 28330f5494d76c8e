package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// TextMagic opens the parallel, human-writable artifact format recognised
// alongside the binary one (spec.md §4.1).
const TextMagic = "AISLTEXT1"

// EncodeText renders p in the "AISLTEXT1" token-stream format: a whitespace-
// delimited sequence of tokens, starting with the magic token, followed by
// the strings section, the functions section, and the instructions section,
// in that order.
func EncodeText(p *Program) string {
	var b strings.Builder
	b.WriteString(TextMagic)
	b.WriteString("\n")

	fmt.Fprintf(&b, "strings %d\n", len(p.Strings))
	for _, s := range p.Strings {
		fmt.Fprintf(&b, "  %s\n", strconv.Quote(s))
	}

	fmt.Fprintf(&b, "functions %d\n", len(p.Functions))
	for _, fn := range p.Functions {
		fmt.Fprintf(&b, "  %s %d %d %d\n", strconv.Quote(fn.Name), fn.StartAddr, fn.LocalCount, fn.ParamCount)
	}

	fmt.Fprintf(&b, "instructions %d\n", len(p.Instructions))
	for _, in := range p.Instructions {
		if in.Op.HasOperand() {
			fmt.Fprintf(&b, "  %s %d\n", in.Op, in.Operand)
		} else {
			fmt.Fprintf(&b, "  %s\n", in.Op)
		}
	}
	return b.String()
}

// DecodeText parses the "AISLTEXT1" token-stream format produced by
// EncodeText. An unrecognised mnemonic, a malformed count, or a truncated
// stream fails the load without returning a partially built Program (the
// same all-or-nothing contract as DecodeBinary).
func DecodeText(src string) (*Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, formatErrf("tokenizing: %v", err)
	}
	t := &textReader{toks: toks}

	if t.next() != TextMagic {
		return nil, formatErrf("bad text magic: got %q, want %q", t.cur, TextMagic)
	}

	var p Program

	if t.next() != "strings" {
		return nil, formatErrf("expected 'strings' section, got %q", t.cur)
	}
	n, err := t.uintTok()
	if err != nil {
		return nil, formatErrf("string count: %v", err)
	}
	p.Strings = make([]string, n)
	for i := range p.Strings {
		s, err := t.quotedTok()
		if err != nil {
			return nil, formatErrf("string %d: %v", i, err)
		}
		p.Strings[i] = s
	}

	if t.next() != "functions" {
		return nil, formatErrf("expected 'functions' section, got %q", t.cur)
	}
	n, err = t.uintTok()
	if err != nil {
		return nil, formatErrf("function count: %v", err)
	}
	p.Functions = make([]FunctionEntry, n)
	for i := range p.Functions {
		name, err := t.quotedTok()
		if err != nil {
			return nil, formatErrf("function %d name: %v", i, err)
		}
		start, err := t.uintTok()
		if err != nil {
			return nil, formatErrf("function %d start: %v", i, err)
		}
		locals, err := t.uintTok()
		if err != nil {
			return nil, formatErrf("function %d locals: %v", i, err)
		}
		params, err := t.uintTok()
		if err != nil {
			return nil, formatErrf("function %d params: %v", i, err)
		}
		p.Functions[i] = FunctionEntry{Name: name, StartAddr: uint32(start), LocalCount: uint32(locals), ParamCount: uint32(params)}
	}

	if t.next() != "instructions" {
		return nil, formatErrf("expected 'instructions' section, got %q", t.cur)
	}
	n, err = t.uintTok()
	if err != nil {
		return nil, formatErrf("instruction count: %v", err)
	}
	p.Instructions = make([]Instruction, n)
	for i := range p.Instructions {
		mnemonic := t.next()
		if mnemonic == "" {
			return nil, formatErrf("instruction %d: unexpected end of stream", i)
		}
		op, ok := LookupMnemonic(mnemonic)
		if !ok {
			return nil, formatErrf("instruction %d: unknown mnemonic %q", i, mnemonic)
		}
		var operand uint64
		if op.HasOperand() {
			v, err := t.uintTok()
			if err != nil {
				return nil, formatErrf("instruction %d operand: %v", i, err)
			}
			operand = v
		}
		p.Instructions[i] = Instruction{Op: op, Operand: operand}
	}

	if !t.atEOF() {
		return nil, formatErrf("trailing tokens after instructions section")
	}

	return &p, nil
}

type textReader struct {
	toks []string
	pos  int
	cur  string
}

func (t *textReader) next() string {
	if t.pos >= len(t.toks) {
		t.cur = ""
		return ""
	}
	t.cur = t.toks[t.pos]
	t.pos++
	return t.cur
}

func (t *textReader) atEOF() bool { return t.pos >= len(t.toks) }

func (t *textReader) uintTok() (uint64, error) {
	tok := t.next()
	v, err := strconv.ParseUint(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", tok, err)
	}
	return v, nil
}

// quotedTok reads a token and, if it looks like a Go-quoted string, unquotes
// it; otherwise it is returned verbatim (so the hand-written AISLTEXT1
// fixtures used in tests may omit quotes around simple identifiers).
func (t *textReader) quotedTok() (string, error) {
	tok := t.next()
	if tok == "" {
		return "", fmt.Errorf("unexpected end of stream")
	}
	if len(tok) >= 2 && tok[0] == '"' {
		return strconv.Unquote(tok)
	}
	return tok, nil
}

// tokenize splits src into whitespace-delimited tokens, treating a
// double-quoted run (with backslash escapes) as a single token so that
// string constants may contain spaces.
func tokenize(src string) ([]string, error) {
	var toks []string
	i, n := 0, len(src)
	for i < n {
		for i < n && isSpace(src[i]) {
			i++
		}
		if i >= n {
			break
		}
		if src[i] == '"' {
			start := i
			i++
			for i < n {
				if src[i] == '\\' && i+1 < n {
					i += 2
					continue
				}
				if src[i] == '"' {
					i++
					break
				}
				i++
			}
			if i > n {
				return nil, fmt.Errorf("unterminated quoted token starting at %d", start)
			}
			toks = append(toks, src[start:i])
			continue
		}
		start := i
		for i < n && !isSpace(src[i]) {
			i++
		}
		toks = append(toks, src[start:i])
	}
	return toks, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
