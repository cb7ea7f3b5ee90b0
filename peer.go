package battleship

import "battleship/sexpr"

// Peer is anything that can receive a wire-formatted reply: a live
// session, or a test double standing in for one. Deliver must not block
// the caller's game-state critical section for longer than a single
// buffered write; a slow or dead peer should drop bytes rather than stall
// the rest of the game.
type Peer interface {
	Nickname() string
	Deliver(*sexpr.Expr)
}
