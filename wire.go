package battleship

import "battleship/sexpr"

// These builders assemble outgoing command replies. They live in the root
// package because both directory and engine need to address a Peer
// without importing each other or a session package that would create an
// import cycle.

// Reply builds `(head arg1 arg2 …)`.
func Reply(head string, args ...*sexpr.Expr) *sexpr.Expr {
	items := make([]*sexpr.Expr, 0, len(args)+1)
	items = append(items, sexpr.MkIdent(head))
	items = append(items, args...)
	return sexpr.MkCompound(items...)
}

// Err builds `(error "reason")`.
func Err(reason string) *sexpr.Expr {
	return Reply("error", sexpr.MkString(reason))
}

// IDExpr renders a game id as a wire integer.
func IDExpr(id GameID) *sexpr.Expr { return sexpr.MkInt(int64(id)) }

// Ident is a convenience alias for building bare identifier atoms such as
// `joined`, `ok` or `aborted`.
func Ident(s string) *sexpr.Expr { return sexpr.MkIdent(s) }
