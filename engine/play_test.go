package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"battleship"
	"battleship/commit"
	"battleship/sexpr"
)

type fakePeer struct {
	nick string
	out  chan *sexpr.Expr
}

func newFakePeer(nick string) *fakePeer {
	return &fakePeer{nick: nick, out: make(chan *sexpr.Expr, 32)}
}

func (p *fakePeer) Nickname() string      { return p.nick }
func (p *fakePeer) Deliver(e *sexpr.Expr) { p.out <- e }

func (p *fakePeer) next(t *testing.T) *sexpr.Expr {
	t.Helper()
	select {
	case e := <-p.out:
		return e
	case <-time.After(time.Second):
		t.Fatalf("%s: timed out waiting for a delivery", p.nick)
		return nil
	}
}

func honestLayout(rowOffset int) battleship.Layout {
	return battleship.Layout{
		{Size: 5, X: 0, Y: 0 + rowOffset, Dir: battleship.Horizontal},
		{Size: 4, X: 0, Y: 1 + rowOffset, Dir: battleship.Horizontal},
		{Size: 3, X: 0, Y: 2 + rowOffset, Dir: battleship.Horizontal},
		{Size: 3, X: 0, Y: 3 + rowOffset, Dir: battleship.Horizontal},
		{Size: 2, X: 0, Y: 4 + rowOffset, Dir: battleship.Horizontal},
	}
}

func newTestGame(t *testing.T, hostLayout, joinLayout battleship.Layout) (*Game, *fakePeer, *fakePeer) {
	t.Helper()
	hostPeer := newFakePeer("foo")
	joinPeer := newFakePeer("bar")

	host := &Side{Peer: hostPeer, Nick: "foo", ClientSalt: "hc", ServerSalt: "hs"}
	host.Hash = commit.Hash(host.ServerSalt, host.ClientSalt, hostLayout)
	join := &Side{Peer: joinPeer, Nick: "bar", ClientSalt: "jc", ServerSalt: "js"}
	join.Hash = commit.Hash(join.ServerSalt, join.ClientSalt, joinLayout)

	g := NewGame(1, host, join)
	require.Equal(t, `(game 1 joined)`, hostPeer.next(t).String())
	return g, hostPeer, joinPeer
}

// sinkFleet plays out every exchange required to bring attacker's hits to
// total tonnage against defender, shooting every cell the defender's
// honest layout occupies and consuming the relayed shot notice and hit
// verdict of each exchange.
func sinkFleet(t *testing.T, g *Game, attacker, defender *fakePeer, layout battleship.Layout) {
	t.Helper()
	for _, ship := range layout {
		for _, cell := range ship.Cells() {
			require.NoError(t, g.Shoot(attacker.nick, cell[0], cell[1]))
			defender.next(t) // shoot notice
			require.NoError(t, g.Adjudicate(defender.nick, true))
			attacker.next(t) // hit verdict
		}
	}
}

func TestHappyWin(t *testing.T) {
	hostLayout := honestLayout(0)
	joinLayout := honestLayout(0)
	g, hostPeer, joinPeer := newTestGame(t, hostLayout, joinLayout)

	sinkFleet(t, g, joinPeer, hostPeer, hostLayout)

	endHost := hostPeer.next(t)
	require.Contains(t, endHost.String(), `"bar"`)
	endJoin := joinPeer.next(t)
	require.Equal(t, endHost.String(), endJoin.String())

	require.NoError(t, g.SubmitLayout("foo", hostLayout))
	require.NoError(t, g.SubmitLayout("bar", joinLayout))

	require.Equal(t, `(game ok)`, hostPeer.next(t).String())
	require.Equal(t, `(game ok)`, joinPeer.next(t).String())

	require.Equal(t, battleship.Won, g.Outcome("bar"))
	require.Equal(t, battleship.Lost, g.Outcome("foo"))
}

// TestMutualSinkingEndsInDraw exercises the case where both sides' final
// shots are outstanding at once: whichever adjudication lands first moves
// the game to awaiting-layouts, but the second, already in-flight shot
// must still be adjudicated so both sides see their own `(end ...)` frame
// naming the other as the finisher - the draw signal.
func TestMutualSinkingEndsInDraw(t *testing.T) {
	hostLayout := honestLayout(0)
	joinLayout := honestLayout(0)
	g, hostPeer, joinPeer := newTestGame(t, hostLayout, joinLayout)

	var fooCells, barCells [][2]int
	for _, ship := range hostLayout {
		fooCells = append(fooCells, ship.Cells()...)
	}
	for _, ship := range joinLayout {
		barCells = append(barCells, ship.Cells()...)
	}

	for _, cell := range fooCells[:len(fooCells)-1] {
		require.NoError(t, g.Shoot("bar", cell[0], cell[1]))
		hostPeer.next(t) // shoot notice
		require.NoError(t, g.Adjudicate("foo", true))
		joinPeer.next(t) // hit verdict
	}
	for _, cell := range barCells[:len(barCells)-1] {
		require.NoError(t, g.Shoot("foo", cell[0], cell[1]))
		joinPeer.next(t) // shoot notice
		require.NoError(t, g.Adjudicate("bar", true))
		hostPeer.next(t) // hit verdict
	}

	lastFoo := fooCells[len(fooCells)-1]
	lastBar := barCells[len(barCells)-1]

	// Both final shots go out before either is adjudicated.
	require.NoError(t, g.Shoot("bar", lastFoo[0], lastFoo[1]))
	hostPeer.next(t) // shoot notice
	require.NoError(t, g.Shoot("foo", lastBar[0], lastBar[1]))
	joinPeer.next(t) // shoot notice

	require.NoError(t, g.Adjudicate("foo", true)) // foo's board is now fully sunk
	require.Equal(t, `(hit 1)`, joinPeer.next(t).String())
	endHost1 := hostPeer.next(t)
	endJoin1 := joinPeer.next(t)
	require.Equal(t, `(end 1 "bar")`, endHost1.String())
	require.Equal(t, endHost1.String(), endJoin1.String())

	require.NoError(t, g.Adjudicate("bar", true)) // bar's board is now fully sunk too
	require.Equal(t, `(hit 1)`, hostPeer.next(t).String())
	endHost2 := hostPeer.next(t)
	endJoin2 := joinPeer.next(t)
	require.Equal(t, `(end 1 "foo")`, endHost2.String())
	require.Equal(t, endHost2.String(), endJoin2.String())

	require.NoError(t, g.SubmitLayout("foo", hostLayout))
	require.NoError(t, g.SubmitLayout("bar", joinLayout))
	require.Equal(t, `(game ok)`, hostPeer.next(t).String())
	require.Equal(t, `(game ok)`, joinPeer.next(t).String())

	require.Equal(t, battleship.Drawn, g.Outcome("foo"))
	require.Equal(t, battleship.Drawn, g.Outcome("bar"))
}

func TestHashMismatchAbortsGame(t *testing.T) {
	hostLayout := honestLayout(0)
	joinLayout := honestLayout(0)
	g, hostPeer, joinPeer := newTestGame(t, hostLayout, joinLayout)

	sinkFleet(t, g, joinPeer, hostPeer, hostLayout)
	hostPeer.next(t)
	joinPeer.next(t)

	lyingLayout := honestLayout(0)
	lyingLayout[0].X = 9 // does not match the committed hash

	require.NoError(t, g.SubmitLayout("foo", lyingLayout))
	require.NoError(t, g.SubmitLayout("bar", joinLayout))

	require.Equal(t, `(game aborted)`, hostPeer.next(t).String())
	mismatches := hostPeer.next(t)
	require.Contains(t, mismatches.String(), `hash-mismatch`)
	require.Contains(t, mismatches.String(), `"foo"`)

	require.Equal(t, battleship.Aborted, g.Outcome("foo"))
	require.Equal(t, battleship.Aborted, g.Outcome("bar"))
}

func TestBoardMismatchAbortsGame(t *testing.T) {
	committed := honestLayout(0)
	g, hostPeer, joinPeer := newTestGame(t, committed, committed)

	// foo dishonestly calls a water cell a hit. To still reach the
	// terminal hit count with exactly 17 recorded hits, bar skips one
	// real ship cell it would otherwise have shot.
	skip := [2]int{1, 4}
	for _, ship := range committed {
		for _, cell := range ship.Cells() {
			if cell == skip {
				continue
			}
			require.NoError(t, g.Shoot("bar", cell[0], cell[1]))
			hostPeer.next(t) // shoot notice
			require.NoError(t, g.Adjudicate("foo", true))
			joinPeer.next(t) // hit verdict
		}
	}
	require.NoError(t, g.Shoot("bar", 9, 9))
	hostPeer.next(t) // shoot notice
	require.NoError(t, g.Adjudicate("foo", true))
	joinPeer.next(t) // hit verdict

	hostPeer.next(t)
	joinPeer.next(t)

	require.NoError(t, g.SubmitLayout("foo", committed))
	require.NoError(t, g.SubmitLayout("bar", committed))

	require.Equal(t, `(game aborted)`, hostPeer.next(t).String())
	mismatches := hostPeer.next(t)
	require.Contains(t, mismatches.String(), `board-mismatch`)
	require.Contains(t, mismatches.String(), `"foo"`)
}

func TestShootRejectsSecondOutstandingShot(t *testing.T) {
	layout := honestLayout(0)
	g, _, _ := newTestGame(t, layout, layout)

	require.NoError(t, g.Shoot("bar", 0, 0))
	require.ErrorIs(t, g.Shoot("bar", 0, 1), ErrOutstandingShot)
}

func TestAdjudicateRejectsWithoutPendingShot(t *testing.T) {
	layout := honestLayout(0)
	g, _, _ := newTestGame(t, layout, layout)

	require.ErrorIs(t, g.Adjudicate("foo", true), ErrNoPendingShot)
}

func TestShootRejectsOutOfRange(t *testing.T) {
	layout := honestLayout(0)
	g, _, _ := newTestGame(t, layout, layout)

	require.ErrorIs(t, g.Shoot("bar", 10, 0), ErrOutOfRange)
}

func TestAbandonSynthesizesAbortForSurvivor(t *testing.T) {
	layout := honestLayout(0)
	g, hostPeer, _ := newTestGame(t, layout, layout)

	g.Abandon("bar")
	require.Equal(t, `(game aborted)`, hostPeer.next(t).String())
	require.Equal(t, battleship.Aborted, g.Outcome("foo"))
}
