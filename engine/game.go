// Package engine implements the two-player game state machine: pairing
// into a running match, turn-by-turn shot relay, terminal-hit detection,
// layout collection and commitment verification, one goroutine per game,
// exactly as the teacher's Game.Play owns one goroutine per Kalah match
// and serializes all of its state behind a single select loop instead of
// locks.
package engine

import (
	"fmt"

	"battleship"
)

// Coordinate is a single board cell.
type Coordinate struct{ X, Y int }

// Side is one occupant's state within a game.
type Side struct {
	Peer       battleship.Peer
	Nick       string
	ClientSalt string
	ServerSalt string
	Hash       string

	view        battleship.BoardView
	hits        int
	outstanding *Coordinate // this side's last shot, not yet adjudicated
	layout      *battleship.Layout
	ended       bool // an (end ...) naming this side has already been sent
}

// View returns a copy of what the opponent has learned about this side's
// board so far.
func (s *Side) View() battleship.BoardView { return s.view }

// HitCount returns the number of hits landed against this side.
func (s *Side) HitCount() int { return s.hits }

type phase uint8

const (
	phasePlaying phase = iota
	phaseAwaitingLayouts
	phaseDone
)

// Mismatch records one verification failure, identifying which side
// cheated and how.
type Mismatch struct {
	Nick string
	Hash bool // true: hash mismatch. false: board mismatch.
}

// Game is a single two-player match, run on its own goroutine.
type Game struct {
	ID    battleship.GameID
	sides [2]*Side

	phase     phase
	mismatch  []Mismatch
	abandoned bool

	cmds    chan func(*Game)
	stopped chan struct{}
}

// NewGame pairs host and join into a running game and starts its goroutine.
// It delivers `(game ID joined)` to the host, signaling that the opponent
// has arrived. This is the only `(game ID joined)` the host receives: the
// session that handled the join replies to the joiner alone, and no
// second copy is sent to the host.
func NewGame(id battleship.GameID, host, join *Side) *Game {
	g := &Game{
		ID:      id,
		sides:   [2]*Side{host, join},
		cmds:    make(chan func(*Game)),
		stopped: make(chan struct{}),
	}
	go g.run()
	g.exec(func(g *Game) {
		g.sides[0].Peer.Deliver(battleship.Reply("game", battleship.IDExpr(g.ID), battleship.Ident("joined")))
	})
	return g
}

func (g *Game) run() {
	for {
		select {
		case cmd := <-g.cmds:
			cmd(g)
		case <-g.stopped:
			return
		}
	}
}

// exec submits f to run inside the game's goroutine and waits for it to
// finish. Once the game has finished, f runs directly on the caller's
// goroutine instead: a finished game's state no longer changes (every
// command checks the phase first and returns its error without writing),
// so Outcome and Mismatches can still read it and late commands against
// a torn-down game get their phase error rather than deadlocking.
// g.cmds is never closed - only g.stopped is - so a send that loses the
// race against a finished game simply never becomes selectable (nothing
// is left receiving from it) and the stopped case wins instead; closing
// both channels would let select land on a send to a closed channel and
// panic.
func (g *Game) exec(f func(*Game)) {
	done := make(chan struct{})
	select {
	case g.cmds <- func(g *Game) { f(g); close(done) }:
		<-done
	case <-g.stopped:
		f(g)
	}
}

func (g *Game) finish() {
	if g.phase == phaseDone {
		return
	}
	g.phase = phaseDone
	close(g.stopped)
}

// sideOf returns the side belonging to nick and its opponent, or an error
// if nick is not in this game.
func (g *Game) sideOf(nick string) (mine, theirs *Side, err error) {
	switch nick {
	case g.sides[0].Nick:
		return g.sides[0], g.sides[1], nil
	case g.sides[1].Nick:
		return g.sides[1], g.sides[0], nil
	default:
		return nil, nil, fmt.Errorf("engine: %q is not part of game %d", nick, g.ID)
	}
}

// Outcome reports, from nick's point of view, whether the finished game
// was won, lost, drawn or aborted. Ongoing is returned while play
// continues.
func (g *Game) Outcome(nick string) battleship.Outcome {
	var result battleship.Outcome
	g.exec(func(g *Game) {
		if g.phase != phaseDone {
			result = battleship.Ongoing
			return
		}
		if len(g.mismatch) > 0 || g.abandoned {
			result = battleship.Aborted
			return
		}
		// mine.hits counts hits landed against nick's OWN board, so a
		// fully-sunk mine means nick lost; the win condition is the
		// opponent's board having been sunk instead.
		mine, theirs, err := g.sideOf(nick)
		if err != nil {
			result = battleship.Ongoing
			return
		}
		mineSunk := mine.hits >= battleship.TotalTonnage
		theirsSunk := theirs.hits >= battleship.TotalTonnage
		switch {
		case mineSunk && theirsSunk:
			result = battleship.Drawn
		case theirsSunk:
			result = battleship.Won
		default:
			result = battleship.Lost
		}
	})
	return result
}

// Mismatches reports the verification failures for a finished, aborted
// game (empty otherwise).
func (g *Game) Mismatches() []Mismatch {
	var out []Mismatch
	g.exec(func(g *Game) {
		out = append(out, g.mismatch...)
	})
	return out
}

// Abandon is called by the directory when one of this game's sessions
// disconnects mid-play. It synthesizes `(game aborted)` for the
// remaining side and tears the game down; spec.md leaves this case
// undefined, and this is the documented choice (see DESIGN.md).
func (g *Game) Abandon(disconnectedNick string) {
	g.exec(func(g *Game) {
		if g.phase == phaseDone {
			return
		}
		_, survivor, err := g.sideOf(disconnectedNick)
		if err != nil {
			return
		}
		g.abandoned = true
		survivor.Peer.Deliver(battleship.Reply("game", battleship.Ident("aborted")))
		g.finish()
	})
}
