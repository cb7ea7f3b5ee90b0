package engine

import (
	"errors"
	"fmt"

	"battleship"
	"battleship/commit"
	"battleship/sexpr"
)

func sexprInt(n int) *sexpr.Expr    { return sexpr.MkInt(int64(n)) }
func sexprStr(s string) *sexpr.Expr { return sexpr.MkString(s) }

var (
	// ErrNotInGame is returned by Shoot once play has ended and by
	// Adjudicate once the game has finished. A nick that is not part of
	// the game gets a separate, formatted error instead.
	ErrNotInGame = errors.New("engine: not part of this game")
	// ErrOutstandingShot is returned by Shoot when the caller already has
	// an unanswered shot in flight.
	ErrOutstandingShot = errors.New("engine: shot already pending")
	// ErrOutOfRange is returned by Shoot for coordinates outside the board.
	ErrOutOfRange = errors.New("engine: coordinate out of range")
	// ErrNoPendingShot is returned by Adjudicate when the caller has no
	// inbound shot to answer.
	ErrNoPendingShot = errors.New("engine: no pending shot to adjudicate")
	// ErrNotTerminal is returned by SubmitLayout before the game has
	// reached its terminal hit count.
	ErrNotTerminal = errors.New("engine: game has not reached a terminal hit count")
	// ErrLayoutAlreadySubmitted is returned on a repeat `(layout …)`.
	ErrLayoutAlreadySubmitted = errors.New("engine: layout already submitted")
)

// Shoot fires a coordinate from nick at its opponent. The target receives
// `(shoot ID X Y)` relayed verbatim; the shooter's single outstanding-shot
// slot is installed so a second shoot before adjudication is rejected.
func (g *Game) Shoot(nick string, x, y int) error {
	var err error
	g.exec(func(g *Game) {
		if g.phase != phasePlaying {
			err = ErrNotInGame
			return
		}
		mine, theirs, e := g.sideOf(nick)
		if e != nil {
			err = e
			return
		}
		if x < 0 || x >= battleship.BoardSize || y < 0 || y >= battleship.BoardSize {
			err = ErrOutOfRange
			return
		}
		if mine.outstanding != nil {
			err = ErrOutstandingShot
			return
		}
		mine.outstanding = &Coordinate{X: x, Y: y}
		theirs.Peer.Deliver(battleship.Reply("shoot", battleship.IDExpr(g.ID), sexprInt(x), sexprInt(y)))
	})
	return err
}

// Adjudicate answers the shot currently outstanding against nick with hit
// or miss, updates nick's server-side board view, relays the verdict to
// the shooter, and — if this adjudication brings either side to terminal
// hit count — emits the `(end …)` frame(s) and enters the
// awaiting-layouts phase.
func (g *Game) Adjudicate(nick string, hit bool) error {
	var err error
	g.exec(func(g *Game) {
		// A shot fired just before termination may still be awaiting
		// adjudication after the game has moved to awaiting-layouts; that
		// adjudication must still land so a simultaneous mutual sinking
		// resolves as a draw rather than a lone winner.
		if g.phase == phaseDone {
			err = ErrNotInGame
			return
		}
		mine, opponent, e := g.sideOf(nick)
		if e != nil {
			err = e
			return
		}
		if opponent.outstanding == nil {
			err = ErrNoPendingShot
			return
		}
		shot := *opponent.outstanding
		opponent.outstanding = nil

		if hit {
			// hits counts distinct Hit cells in the view, not adjudications:
			// re-adjudicating an already-hit cell (a shooter firing twice at
			// the same coordinate) must not advance the terminal count.
			if mine.view[shot.Y][shot.X] != battleship.Hit {
				mine.hits++
			}
			mine.view[shot.Y][shot.X] = battleship.Hit
		} else {
			mine.view[shot.Y][shot.X] = battleship.Miss
		}

		verdict := "miss"
		if hit {
			verdict = "hit"
		}
		opponent.Peer.Deliver(battleship.Reply(verdict, battleship.IDExpr(g.ID)))

		g.checkTerminal()
	})
	return err
}

// checkTerminal looks for any side whose own board has just been fully
// sunk (hit_count reached total tonnage) and, for each one found, emits
// `(end ID "NICK")` naming the side that LANDED the sinking hit, i.e. the
// sunk side's opponent. Each side is reported at most once (ended). When
// the other side is sunk too, by a later adjudication of a shot that was
// already in flight, a second `(end …)` follows, naming the other
// winner; that pair of frames is how a draw is signaled. It then switches
// the game to awaiting-layouts.
func (g *Game) checkTerminal() {
	var winners []*Side
	for _, sunk := range g.sides {
		if sunk.hits >= battleship.TotalTonnage && !sunk.ended {
			sunk.ended = true
			winners = append(winners, opponentOf(g, sunk))
		}
	}
	if len(winners) == 0 {
		return
	}
	for _, w := range winners {
		msg := battleship.Reply("end", battleship.IDExpr(g.ID), sexprStr(w.Nick))
		g.sides[0].Peer.Deliver(msg)
		g.sides[1].Peer.Deliver(msg)
	}
	g.phase = phaseAwaitingLayouts
}

func opponentOf(g *Game, s *Side) *Side {
	if g.sides[0] == s {
		return g.sides[1]
	}
	return g.sides[0]
}

// SubmitLayout records nick's revealed layout. Once both sides have
// submitted, verification runs and the game concludes with `(game ok)` or
// `(game aborted)` plus mismatch records.
func (g *Game) SubmitLayout(nick string, layout battleship.Layout) error {
	var err error
	g.exec(func(g *Game) {
		if g.phase != phaseAwaitingLayouts {
			err = ErrNotTerminal
			return
		}
		mine, _, e := g.sideOf(nick)
		if e != nil {
			err = e
			return
		}
		if mine.layout != nil {
			err = ErrLayoutAlreadySubmitted
			return
		}
		l := layout
		mine.layout = &l

		if g.sides[0].layout == nil || g.sides[1].layout == nil {
			return
		}
		g.verify()
		g.finish()
	})
	return err
}

// verify runs the four checks (two hash, two board) and broadcasts the
// outcome. Called with both layouts already recorded.
func (g *Game) verify() {
	for _, s := range g.sides {
		hashOK := commit.Hash(s.ServerSalt, s.ClientSalt, *s.layout) == s.Hash
		if !hashOK {
			g.mismatch = append(g.mismatch, Mismatch{Nick: s.Nick, Hash: true})
		}
		boardOK, err := commit.CheckBoard(*s.layout, s.view)
		if err != nil || !boardOK {
			g.mismatch = append(g.mismatch, Mismatch{Nick: s.Nick, Hash: false})
		}
	}

	if len(g.mismatch) > 0 {
		records := make([]*sexpr.Expr, 0, len(g.mismatch))
		for _, m := range g.mismatch {
			kind := "board-mismatch"
			if m.Hash {
				kind = "hash-mismatch"
			}
			records = append(records, battleship.Reply(kind, battleship.IDExpr(g.ID), sexprStr(m.Nick)))
		}
		// The mismatch records ride as one line, per spec.md 4.6 ("one line
		// of mismatch records ... concatenated into a single compound");
		// wrapped in a `mismatches` head since every wire reply must be a
		// single expression.
		line := battleship.Reply("mismatches", records...)
		outcome := battleship.Reply("game", battleship.Ident("aborted"))
		for _, s := range g.sides {
			s.Peer.Deliver(outcome)
			s.Peer.Deliver(line)
		}
		return
	}

	ok := battleship.Reply("game", battleship.Ident("ok"))
	g.sides[0].Peer.Deliver(ok)
	g.sides[1].Peer.Deliver(ok)
}

func (g *Game) String() string {
	return fmt.Sprintf("game %d (%s vs %s)", g.ID, g.sides[0].Nick, g.sides[1].Nick)
}
