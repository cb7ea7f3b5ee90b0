package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"battleship/sexpr"
)

// fakePeer is a test double standing in for a live session.
type fakePeer struct {
	nick string
	out  chan *sexpr.Expr
}

func newFakePeer(nick string) *fakePeer {
	return &fakePeer{nick: nick, out: make(chan *sexpr.Expr, 16)}
}

func (p *fakePeer) Nickname() string { return p.nick }
func (p *fakePeer) Deliver(e *sexpr.Expr) {
	select {
	case p.out <- e:
	default:
	}
}

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

func TestRegisterRejectsDuplicateNick(t *testing.T) {
	d := New(0)
	_, err := d.Register("foo", "csalt", newFakePeer("foo"))
	require.NoError(t, err)

	_, err = d.Register("foo", "other-csalt", newFakePeer("foo"))
	require.ErrorIs(t, err, ErrDuplicateNick)
}

func TestStartThenJoinCreatesActiveGame(t *testing.T) {
	d := New(0)
	hostPeer := newFakePeer("foo")
	joinPeer := newFakePeer("bar")
	_, err := d.Register("foo", "c1", hostPeer)
	require.NoError(t, err)
	_, err = d.Register("bar", "c2", joinPeer)
	require.NoError(t, err)

	id, err := d.Start("foo", "host-hash")
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	g, hostNick, err := d.Join("bar", id, "join-hash")
	require.NoError(t, err)
	require.NotNil(t, g)
	require.Equal(t, "foo", hostNick)

	// host sees its single (game ID joined) signaling its turn.
	msg := hostPeer.next(t)
	require.Equal(t, `(game 1 joined)`, msg.String())
}

func TestJoinRejectsSelfJoinAndUnknownGame(t *testing.T) {
	d := New(0)
	_, err := d.Register("foo", "c1", newFakePeer("foo"))
	require.NoError(t, err)
	id, err := d.Start("foo", "h")
	require.NoError(t, err)

	_, _, err = d.Join("foo", id, "h2")
	require.ErrorIs(t, err, ErrSelfJoin)

	_, _, err = d.Join("foo", 999, "h2")
	require.ErrorIs(t, err, ErrUnknownGame)
}

func TestAutoDegeneratesToStartWhenNothingIsWaiting(t *testing.T) {
	d := New(0)
	_, err := d.Register("foo", "c1", newFakePeer("foo"))
	require.NoError(t, err)

	joined, id, g, _, err := d.Auto("foo", "h")
	require.NoError(t, err)
	require.False(t, joined)
	require.EqualValues(t, 1, id)
	require.Nil(t, g)
}

func TestAutoJoinsAnExistingWaitingGame(t *testing.T) {
	d := New(0)
	_, err := d.Register("foo", "c1", newFakePeer("foo"))
	require.NoError(t, err)
	_, err = d.Register("bar", "c2", newFakePeer("bar"))
	require.NoError(t, err)

	_, err = d.Start("foo", "h1")
	require.NoError(t, err)

	joined, id, g, hostNick, err := d.Auto("bar", "h2")
	require.NoError(t, err)
	require.True(t, joined)
	require.EqualValues(t, 1, id)
	require.NotNil(t, g)
	require.Equal(t, "foo", hostNick)
}

func TestJoinPlayerResolvesHostsWaitingGame(t *testing.T) {
	d := New(0)
	_, err := d.Register("foo", "c1", newFakePeer("foo"))
	require.NoError(t, err)
	_, err = d.Register("bar", "c2", newFakePeer("bar"))
	require.NoError(t, err)
	_, err = d.Start("foo", "h1")
	require.NoError(t, err)

	gid, g, hostNick, err := d.JoinPlayer("bar", "foo", "h2")
	require.NoError(t, err)
	require.EqualValues(t, 1, gid)
	require.NotNil(t, g)
	require.Equal(t, "foo", hostNick)

	_, _, _, err = d.JoinPlayer("bar", "nobody", "h3")
	require.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestListBlocksUntilAGameExists(t *testing.T) {
	d := New(0)
	_, err := d.Register("foo", "c1", newFakePeer("foo"))
	require.NoError(t, err)

	result := make(chan []Entry, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		entries, err := d.ListWaiting(ctx)
		require.NoError(t, err)
		result <- entries
	}()

	select {
	case <-result:
		t.Fatal("ListWaiting returned before any game existed")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = d.Start("foo", "h")
	require.NoError(t, err)

	select {
	case entries := <-result:
		require.Len(t, entries, 1)
		require.Equal(t, "foo", entries[0].Host)
		require.False(t, entries[0].Active())
	case <-time.After(time.Second):
		t.Fatal("ListWaiting did not unblock after start")
	}
}

func TestUnregisterRemovesWaitingGame(t *testing.T) {
	d := New(0)
	_, err := d.Register("foo", "c1", newFakePeer("foo"))
	require.NoError(t, err)
	id, err := d.Start("foo", "h")
	require.NoError(t, err)
	require.NotZero(t, id)

	d.Unregister("foo")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = d.ListWaiting(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGameIDsAreNeverReused(t *testing.T) {
	d := New(0)
	_, err := d.Register("foo", "c1", newFakePeer("foo"))
	require.NoError(t, err)

	id1, err := d.Start("foo", "h1")
	require.NoError(t, err)
	d.Unregister("foo")

	_, err = d.Register("foo", "c1", newFakePeer("foo"))
	require.NoError(t, err)
	id2, err := d.Start("foo", "h2")
	require.NoError(t, err)

	require.Greater(t, id2, id1)
}
