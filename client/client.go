// Package client is a thin, synchronous mirror of the wire protocol, used
// by tests and any external tooling that wants to drive a battleshipd
// server without reimplementing the S-expression codec. It follows the
// same command sequence as the original reference client, translated
// from its async connect/start/join calls into ordinary blocking Go
// calls over a bufio-framed connection.
package client

import (
	"bufio"
	"fmt"
	"io"

	"battleship"
	"battleship/commit"
	"battleship/sexpr"
)

// Client drives one connection through the protocol.
type Client struct {
	rw         io.ReadWriter
	r          *bufio.Reader
	Nick       string
	clientSalt string
	serverSalt string
}

// New wraps an already-connected stream. Connect must be called before
// any other method.
func New(rw io.ReadWriter) *Client {
	return &Client{rw: rw, r: bufio.NewReader(rw)}
}

func (c *Client) send(e *sexpr.Expr) error {
	_, err := fmt.Fprintln(c.rw, e.String())
	return err
}

func (c *Client) recv() (*sexpr.Expr, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	return sexpr.Parse(line)
}

// Connect registers nick with a freshly generated client salt and
// records the server's salt from the `(ok SSALT)` reply.
func (c *Client) Connect(nick string) error {
	salt, err := commit.Salt(0)
	if err != nil {
		return err
	}
	c.Nick = nick
	c.clientSalt = salt

	if err := c.send(battleship.Reply("nick", sexpr.MkString(nick), sexpr.MkString(salt))); err != nil {
		return err
	}
	reply, err := c.recv()
	if err != nil {
		return err
	}
	items, err := sexpr.Expect(reply, sexpr.Ident, sexpr.String)
	if err != nil {
		return fmt.Errorf("client: nick: unexpected reply %s", reply)
	}
	if items[0].Str != "ok" {
		return fmt.Errorf("client: nick rejected: %s", reply)
	}
	c.serverSalt = items[1].Str
	return nil
}

// Hash computes this client's commitment for layout using the salts
// established during Connect.
func (c *Client) Hash(layout battleship.Layout) string {
	return commit.Hash(c.serverSalt, c.clientSalt, layout)
}

// Start announces a new waiting game committed to layout and returns its id.
func (c *Client) Start(layout battleship.Layout) (battleship.GameID, error) {
	if err := c.send(battleship.Reply("start", sexpr.MkString(c.Hash(layout)))); err != nil {
		return 0, err
	}
	return c.expectStarted()
}

func (c *Client) expectStarted() (battleship.GameID, error) {
	reply, err := c.recv()
	if err != nil {
		return 0, err
	}
	items, err := sexpr.Expect(reply, sexpr.Ident, sexpr.Int)
	if err != nil || items[0].Str != "started" {
		return 0, fmt.Errorf("client: expected (started ID), got %s", reply)
	}
	return battleship.GameID(items[1].Int), nil
}

// Join seats this client into gid, committed to layout.
func (c *Client) Join(gid battleship.GameID, layout battleship.Layout) error {
	if err := c.send(battleship.Reply("join", battleship.IDExpr(gid), sexpr.MkString(c.Hash(layout)))); err != nil {
		return err
	}
	return c.expectJoined(gid)
}

func (c *Client) expectJoined(gid battleship.GameID) error {
	reply, err := c.recv()
	if err != nil {
		return err
	}
	items, err := sexpr.Expect(reply, sexpr.Ident, sexpr.Int, sexpr.Ident)
	if err != nil || items[0].Str != "game" || items[2].Str != "joined" {
		return fmt.Errorf("client: expected (game ID joined), got %s", reply)
	}
	if battleship.GameID(items[1].Int) != gid && gid != 0 {
		return fmt.Errorf("client: joined/started a different game id than expected")
	}
	return nil
}

// AwaitOpponent, as host, waits for the single `(game ID joined)` that
// signals the opponent has arrived and it is safe to start reading shots.
func (c *Client) AwaitOpponent(gid battleship.GameID) error {
	return c.expectJoined(gid)
}

// Shoot fires at (x, y) in game gid.
func (c *Client) Shoot(gid battleship.GameID, x, y int) error {
	return c.send(battleship.Reply("shoot", battleship.IDExpr(gid), sexpr.MkInt(int64(x)), sexpr.MkInt(int64(y))))
}

// ReadShot blocks for the next `(shoot ID X Y)` relayed to this client.
func (c *Client) ReadShot() (gid battleship.GameID, x, y int, err error) {
	reply, err := c.recv()
	if err != nil {
		return 0, 0, 0, err
	}
	items, err := sexpr.Expect(reply, sexpr.Ident, sexpr.Int, sexpr.Int, sexpr.Int)
	if err != nil || items[0].Str != "shoot" {
		return 0, 0, 0, fmt.Errorf("client: expected (shoot ID X Y), got %s", reply)
	}
	return battleship.GameID(items[1].Int), int(items[2].Int), int(items[3].Int), nil
}

// Adjudicate answers the shot most recently read with ReadShot.
func (c *Client) Adjudicate(gid battleship.GameID, hit bool) error {
	verdict := "miss"
	if hit {
		verdict = "hit"
	}
	return c.send(battleship.Reply(verdict, battleship.IDExpr(gid)))
}

// ReadVerdict blocks for the `(hit ID)`/`(miss ID)` relayed back for this
// client's own shot.
func (c *Client) ReadVerdict() (hit bool, gid battleship.GameID, err error) {
	reply, err := c.recv()
	if err != nil {
		return false, 0, err
	}
	items, err := sexpr.Expect(reply, sexpr.Ident, sexpr.Int)
	if err != nil {
		return false, 0, fmt.Errorf("client: expected (hit ID) or (miss ID), got %s", reply)
	}
	switch items[0].Str {
	case "hit":
		return true, battleship.GameID(items[1].Int), nil
	case "miss":
		return false, battleship.GameID(items[1].Int), nil
	default:
		return false, 0, fmt.Errorf("client: unexpected verdict %s", reply)
	}
}

// ReadEnd blocks for one `(end ID "NICK")` frame.
func (c *Client) ReadEnd() (gid battleship.GameID, winner string, err error) {
	reply, err := c.recv()
	if err != nil {
		return 0, "", err
	}
	items, err := sexpr.Expect(reply, sexpr.Ident, sexpr.Int, sexpr.String)
	if err != nil || items[0].Str != "end" {
		return 0, "", fmt.Errorf("client: expected (end ID NICK), got %s", reply)
	}
	return battleship.GameID(items[1].Int), items[2].Str, nil
}

// SubmitLayout reveals layout for gid.
func (c *Client) SubmitLayout(gid battleship.GameID, layout battleship.Layout) error {
	items := make([]*sexpr.Expr, 0, 7)
	items = append(items, sexpr.MkIdent("layout"), battleship.IDExpr(gid))
	for _, ship := range layout {
		items = append(items, sexpr.MkCompound(
			sexpr.MkInt(int64(ship.Size)),
			sexpr.MkInt(int64(ship.X)),
			sexpr.MkInt(int64(ship.Y)),
			sexpr.MkIdent(ship.Dir.String()),
		))
	}
	return c.send(sexpr.MkCompound(items...))
}

// ReadOutcome blocks for `(game ok)` or `(game aborted)` plus, on
// abort, the follow-up `(mismatches …)` line.
func (c *Client) ReadOutcome() (ok bool, mismatches []string, err error) {
	reply, err := c.recv()
	if err != nil {
		return false, nil, err
	}
	items, err := sexpr.Expect(reply, sexpr.Ident, sexpr.Ident)
	if err != nil || items[0].Str != "game" {
		return false, nil, fmt.Errorf("client: expected (game ok) or (game aborted), got %s", reply)
	}
	if items[1].Str == "ok" {
		return true, nil, nil
	}
	line, err := c.recv()
	if err != nil {
		return false, nil, err
	}
	for _, rec := range line.Items[1:] {
		mismatches = append(mismatches, rec.String())
	}
	return false, mismatches, nil
}

// List requests the waiting/active game set.
func (c *Client) List() ([]*sexpr.Expr, error) {
	if err := c.send(sexpr.MkCompound(sexpr.MkIdent("list"))); err != nil {
		return nil, err
	}
	reply, err := c.recv()
	if err != nil {
		return nil, err
	}
	if reply.Kind != sexpr.Compound || len(reply.Items) == 0 || reply.Items[0].Str != "games" {
		return nil, fmt.Errorf("client: expected (games …), got %s", reply)
	}
	return reply.Items[1:], nil
}
