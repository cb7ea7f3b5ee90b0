package sexpr

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// ErrNotParsable is returned for any malformed input; the engine surfaces
// it as the generic "parse" protocol error rather than a specific reason,
// per the wire contract.
var ErrNotParsable = errors.New("sexpr: not parsable")

const idSymbols = "!$%&*/:<=>?_~"
const idExtra = "+-.@#"

// Parse decodes exactly one top-level expression from line, ignoring
// leading and trailing whitespace. Anything else - no expression, trailing
// garbage, unmatched brackets, bad escapes - is ErrNotParsable.
func Parse(line string) (*Expr, error) {
	p := &parser{src: []rune(line)}
	p.skipSpace()
	if p.eof() {
		return nil, ErrNotParsable
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, ErrNotParsable
	}
	return e, nil
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) atDelimiter() bool {
	if p.eof() {
		return true
	}
	c := p.peek()
	return unicode.IsSpace(c) || c == ')' || c == ']'
}

func (p *parser) parseExpr() (*Expr, error) {
	switch p.peek() {
	case '(':
		return p.parseCompound('(', ')')
	case '[':
		return p.parseCompound('[', ']')
	case ')', ']':
		return nil, ErrNotParsable
	default:
		return p.parseAtom()
	}
}

func (p *parser) parseCompound(open, close rune) (*Expr, error) {
	p.pos++ // consume opener
	var items []*Expr
	for {
		p.skipSpace()
		if p.eof() {
			return nil, ErrNotParsable
		}
		if p.peek() == close {
			p.pos++
			if len(items) == 0 {
				return nil, ErrNotParsable
			}
			return MkCompound(items...), nil
		}
		if p.peek() == ')' || p.peek() == ']' {
			// closes the wrong kind of bracket
			return nil, ErrNotParsable
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
}

func (p *parser) parseAtom() (*Expr, error) {
	if e, ok := p.tryBool(); ok {
		return e, nil
	}
	if e, err, tried := p.tryNumber(); tried {
		return e, err
	}
	if e, err, tried := p.tryString(); tried {
		return e, err
	}
	return p.parseIdentifier()
}

func (p *parser) tryBool() (*Expr, bool) {
	if p.peek() != '#' {
		return nil, false
	}
	if p.pos+1 >= len(p.src) {
		return nil, false
	}
	c := p.src[p.pos+1]
	if c != 't' && c != 'f' {
		return nil, false
	}
	// must be followed by a delimiter
	save := p.pos
	p.pos += 2
	if !p.atDelimiter() {
		p.pos = save
		return nil, false
	}
	return MkBool(c == 't'), true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// tryNumber returns (expr, err, attempted). attempted is false when the
// atom clearly isn't a number (caller falls through to string/identifier).
func (p *parser) tryNumber() (*Expr, error, bool) {
	start := p.pos
	c := p.peek()
	if c != '+' && c != '-' && !isDigit(c) {
		return nil, nil, false
	}
	// A lone '+' / '-' (not followed by a digit) is an identifier, not a
	// number - bail out without consuming so parseIdentifier gets a shot.
	if (c == '+' || c == '-') && (p.pos+1 >= len(p.src) || !isDigit(p.src[p.pos+1])) {
		return nil, nil, false
	}

	pos := p.pos
	if c == '+' || c == '-' {
		pos++
	}
	var b strings.Builder
	b.WriteString(string(p.src[start:pos]))
	sawDot := false
	for pos < len(p.src) {
		ch := p.src[pos]
		if unicode.IsSpace(ch) || ch == ')' || ch == ']' {
			break
		}
		if ch == '.' {
			if sawDot {
				return nil, ErrNotParsable, true
			}
			sawDot = true
			b.WriteRune(ch)
			pos++
			continue
		}
		if !isDigit(ch) {
			return nil, ErrNotParsable, true
		}
		b.WriteRune(ch)
		pos++
	}

	text := b.String()
	if sawDot {
		parts := strings.SplitN(text, ".", 2)
		if parts[0] == "" || parts[1] == "" {
			return nil, ErrNotParsable, true
		}
		// parts[0] may be a bare sign with no digits, e.g. "-.5"
		digits := parts[0]
		if digits == "+" || digits == "-" {
			return nil, ErrNotParsable, true
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, ErrNotParsable, true
		}
		p.pos = pos
		return MkFloat(f), nil, true
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, ErrNotParsable, true
	}
	p.pos = pos
	return MkInt(n), nil, true
}

// tryString returns (expr, err, attempted).
func (p *parser) tryString() (*Expr, error, bool) {
	if p.peek() != '"' {
		return nil, nil, false
	}
	pos := p.pos + 1
	var b strings.Builder
	for {
		if pos >= len(p.src) {
			return nil, ErrNotParsable, true
		}
		ch := p.src[pos]
		if ch == '"' {
			pos++
			p.pos = pos
			return MkString(b.String()), nil, true
		}
		if ch == '\\' {
			if pos+1 >= len(p.src) {
				return nil, ErrNotParsable, true
			}
			next := p.src[pos+1]
			if next != '\\' && next != '"' {
				return nil, ErrNotParsable, true
			}
			// the closing quote may not be the last escape's backslash:
			// i.e. there must be at least one more char after the escape
			// pair to hold the real closing quote, unless next==" and
			// that quote is itself the closer only if it's not preceded
			// by this backslash being the last two chars of the string.
			if pos+2 > len(p.src) {
				return nil, ErrNotParsable, true
			}
			b.WriteRune(next)
			pos += 2
			continue
		}
		b.WriteRune(ch)
		pos++
	}
}

func isIdentInit(r rune) bool {
	return unicode.IsLetter(r) || strings.ContainsRune(idSymbols, r)
}

func isIdentSubsequent(r rune) bool {
	return isIdentInit(r) || isDigit(r) || strings.ContainsRune(idExtra, r)
}

func (p *parser) parseIdentifier() (*Expr, error) {
	c := p.peek()
	if c == '+' || c == '-' {
		// bare sign identifier
		save := p.pos
		p.pos++
		if p.atDelimiter() {
			return MkIdent(string(c)), nil
		}
		p.pos = save
	}
	if !isIdentInit(c) {
		return nil, ErrNotParsable
	}
	start := p.pos
	p.pos++
	for !p.atDelimiter() {
		if !isIdentSubsequent(p.peek()) {
			return nil, ErrNotParsable
		}
		p.pos++
	}
	return MkIdent(string(p.src[start:p.pos])), nil
}
