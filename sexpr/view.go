package sexpr

import "fmt"

// Shape describes the arity and kinds a command handler expects, so every
// handler can fail uniformly on malformed input instead of hand-rolling
// type assertions.
type Shape struct {
	Kinds []Kind
}

// ErrShape is returned by Expect when e does not match the expected shape.
type ErrShape struct {
	Reason string
}

func (e *ErrShape) Error() string { return e.Reason }

// Expect asserts that e is a Compound whose items match kinds positionally
// and returns the items for convenient destructuring.
func Expect(e *Expr, kinds ...Kind) ([]*Expr, error) {
	if e == nil || e.Kind != Compound {
		return nil, &ErrShape{Reason: "expected a compound expression"}
	}
	if len(e.Items) != len(kinds) {
		return nil, &ErrShape{Reason: fmt.Sprintf("expected %d arguments, got %d", len(kinds), len(e.Items))}
	}
	for i, k := range kinds {
		if e.Items[i].Kind != k {
			return nil, &ErrShape{Reason: fmt.Sprintf("argument %d has the wrong type", i)}
		}
	}
	return e.Items, nil
}

// Head returns the identifier naming a compound's command, e.g. "shoot"
// for (shoot 1 2 3).
func Head(e *Expr) (string, bool) {
	if e == nil || e.Kind != Compound || len(e.Items) == 0 {
		return "", false
	}
	if e.Items[0].Kind != Ident {
		return "", false
	}
	return e.Items[0].Str, true
}
