// Package sexpr implements the line-oriented S-expression codec used by
// the battleship wire protocol: a tagged tree of booleans, numbers,
// strings and identifiers, plus ordered compounds.
package sexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the variant held by an Expr.
type Kind uint8

const (
	Bool Kind = iota
	Int
	Float
	String
	Ident
	Compound
)

// Expr is a tagged S-expression node. Exactly one of the scalar fields is
// meaningful for a given Kind; Items is meaningful only for Compound.
type Expr struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Items []*Expr
}

// Constructors keep call sites free of struct literals.

func MkBool(b bool) *Expr    { return &Expr{Kind: Bool, Bool: b} }
func MkInt(n int64) *Expr    { return &Expr{Kind: Int, Int: n} }
func MkFloat(f float64) *Expr { return &Expr{Kind: Float, Float: f} }
func MkString(s string) *Expr { return &Expr{Kind: String, Str: s} }
func MkIdent(s string) *Expr  { return &Expr{Kind: Ident, Str: s} }
func MkCompound(items ...*Expr) *Expr {
	return &Expr{Kind: Compound, Items: items}
}

// List is an alias of MkCompound kept for call sites that build a wire
// message rather than parse one.
func List(items ...*Expr) *Expr { return MkCompound(items...) }

// IsAtom reports whether e is anything but a Compound.
func (e *Expr) IsAtom() bool { return e != nil && e.Kind != Compound }

// String formats e back to its single-line wire form.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case Bool:
		if e.Bool {
			return "#t"
		}
		return "#f"
	case Int:
		return strconv.FormatInt(e.Int, 10)
	case Float:
		return strconv.FormatFloat(e.Float, 'f', -1, 64)
	case String:
		return quote(e.Str)
	case Ident:
		return e.Str
	case Compound:
		parts := make([]string, len(e.Items))
		for i, it := range e.Items {
			parts[i] = it.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		panic(fmt.Sprintf("sexpr: unknown kind %d", e.Kind))
	}
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
