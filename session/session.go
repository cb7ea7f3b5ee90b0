// Package session owns one connection for its entire lifetime: reading
// newline-framed S-expressions, dispatching them to the directory and
// engine, and serializing writes back out, the same shape as the
// teacher's Client.Handle/Client.Respond split between a read goroutine
// and a lock-guarded write path — generalized here to a dedicated writer
// goroutine instead of a mutex, since every write already funnels
// through one channel.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"battleship"
	"battleship/commit"
	"battleship/directory"
	"battleship/engine"
	"battleship/sexpr"
)

// Session is one accepted connection.
type Session struct {
	nick string
	dir  *directory.Directory

	out    chan *sexpr.Expr
	closed chan struct{}

	// ctx is scoped to this connection's lifetime: Run cancels it once the
	// read loop returns, so any command handler that had to spawn a
	// goroutine to avoid blocking the read loop (dispatchList's
	// ListWaiting call) is torn down along with the connection instead of
	// leaking forever.
	ctx context.Context

	clientSalt string
	serverSalt string

	currentGame battleship.GameID
	current     *engine.Game
}

// New creates a session bound to dir. Call Run to drive it to
// completion; Run blocks until the connection's read side returns EOF or
// an unrecoverable error.
func New(dir *directory.Directory) *Session {
	return &Session{
		dir:    dir,
		out:    make(chan *sexpr.Expr, 64),
		closed: make(chan struct{}),
		ctx:    context.Background(),
	}
}

// Nickname implements battleship.Peer.
func (s *Session) Nickname() string { return s.nick }

// Deliver implements battleship.Peer. It never blocks the caller beyond
// a buffered channel send; once the session is closed, deliveries are
// dropped on the floor, matching spec.md §4.3's "peer sees no further
// traffic" on abrupt disconnect.
func (s *Session) Deliver(e *sexpr.Expr) {
	select {
	case s.out <- e:
	case <-s.closed:
	default:
		battleship.Debug.Printf("dropping delivery to %s: output backlogged", s.nick)
	}
}

// Run drives the session until the connection closes. r and w are the
// stream's halves; the caller owns closing the underlying connection.
func (s *Session) Run(ctx context.Context, r io.Reader, w io.Writer) {
	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx
	defer cancel()

	writerDone := make(chan struct{})
	go s.writeLoop(w, writerDone)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.handleLine(line)
	}

	if s.nick != "" {
		s.dir.Unregister(s.nick)
	}
	close(s.closed)
	<-writerDone
}

func (s *Session) writeLoop(w io.Writer, done chan struct{}) {
	defer close(done)
	bw := bufio.NewWriter(w)
	for {
		select {
		case e, ok := <-s.out:
			if !ok {
				return
			}
			fmt.Fprintln(bw, e.String())
			bw.Flush()
		case <-s.closed:
			// drain whatever is already queued before exiting
			for {
				select {
				case e := <-s.out:
					fmt.Fprintln(bw, e.String())
					bw.Flush()
				default:
					return
				}
			}
		}
	}
}

func (s *Session) handleLine(line string) {
	expr, err := sexpr.Parse(line)
	if err != nil {
		s.Deliver(battleship.Err("parse"))
		return
	}

	head, ok := sexpr.Head(expr)
	if !ok {
		s.Deliver(battleship.Err("not a command"))
		return
	}

	if s.nick == "" {
		if head != "nick" {
			s.Deliver(battleship.Err("login required"))
			return
		}
		s.dispatchNick(expr)
		return
	}

	switch head {
	case "nick":
		s.Deliver(battleship.Err("already logged in"))
	case "start":
		s.dispatchStart(expr)
	case "auto":
		s.dispatchAuto(expr)
	case "join":
		s.dispatchJoin(expr)
	case "joinplayer":
		s.dispatchJoinPlayer(expr)
	case "list":
		s.dispatchList(expr)
	case "shoot":
		s.dispatchShoot(expr)
	case "hit":
		s.dispatchAdjudicate(expr, true)
	case "miss":
		s.dispatchAdjudicate(expr, false)
	case "layout":
		s.dispatchLayout(expr)
	default:
		s.Deliver(battleship.Err("unknown command"))
	}
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (s *Session) dispatchNick(expr *sexpr.Expr) {
	items, err := sexpr.Expect(expr, sexpr.Ident, sexpr.String, sexpr.String)
	if err != nil {
		s.Deliver(battleship.Err("nick: " + err.Error()))
		return
	}
	nick := items[1].Str
	clientSalt := items[2].Str
	if !isAlnum(nick) {
		s.Deliver(battleship.Err("nick must be alphanumeric"))
		return
	}

	serverSalt, err := s.dir.Register(nick, clientSalt, s)
	if err != nil {
		s.Deliver(battleship.Err(err.Error()))
		return
	}
	s.nick = nick
	s.clientSalt = clientSalt
	s.serverSalt = serverSalt
	s.Deliver(battleship.Reply("ok", sexpr.MkString(serverSalt)))
}

func hashArg(items []*sexpr.Expr, idx int) (string, bool) {
	if idx >= len(items) || items[idx].Kind != sexpr.String {
		return "", false
	}
	return items[idx].Str, true
}

func (s *Session) rejectIfInGame() bool {
	if s.current != nil {
		s.Deliver(battleship.Err("already in a game"))
		return true
	}
	return false
}

func (s *Session) dispatchStart(expr *sexpr.Expr) {
	items, err := sexpr.Expect(expr, sexpr.Ident, sexpr.String)
	if err != nil {
		s.Deliver(battleship.Err("start: " + err.Error()))
		return
	}
	if s.rejectIfInGame() {
		return
	}
	hash, _ := hashArg(items, 1)
	id, err := s.dir.Start(s.nick, hash)
	if err != nil {
		s.Deliver(battleship.Err(err.Error()))
		return
	}
	s.Deliver(battleship.Reply("started", battleship.IDExpr(id)))
}

func (s *Session) dispatchAuto(expr *sexpr.Expr) {
	items, err := sexpr.Expect(expr, sexpr.Ident, sexpr.String)
	if err != nil {
		s.Deliver(battleship.Err("auto: " + err.Error()))
		return
	}
	if s.rejectIfInGame() {
		return
	}
	hash, _ := hashArg(items, 1)
	joined, id, g, _, err := s.dir.Auto(s.nick, hash)
	if err != nil {
		s.Deliver(battleship.Err(err.Error()))
		return
	}
	if !joined {
		s.Deliver(battleship.Reply("started", battleship.IDExpr(id)))
		return
	}
	s.currentGame = id
	s.current = g
	s.Deliver(battleship.Reply("game", battleship.IDExpr(id), battleship.Ident("joined")))
}

func (s *Session) dispatchJoin(expr *sexpr.Expr) {
	items, err := sexpr.Expect(expr, sexpr.Ident, sexpr.Int, sexpr.String)
	if err != nil {
		s.Deliver(battleship.Err("join: " + err.Error()))
		return
	}
	if s.rejectIfInGame() {
		return
	}
	id := battleship.GameID(items[1].Int)
	hash := items[2].Str
	g, _, err := s.dir.Join(s.nick, id, hash)
	if err != nil {
		s.Deliver(battleship.Err(err.Error()))
		return
	}
	s.currentGame = id
	s.current = g
	s.Deliver(battleship.Reply("game", battleship.IDExpr(id), battleship.Ident("joined")))
}

func (s *Session) dispatchJoinPlayer(expr *sexpr.Expr) {
	items, err := sexpr.Expect(expr, sexpr.Ident, sexpr.String, sexpr.String)
	if err != nil {
		s.Deliver(battleship.Err("joinplayer: " + err.Error()))
		return
	}
	if s.rejectIfInGame() {
		return
	}
	target := items[1].Str
	hash := items[2].Str
	id, g, _, err := s.dir.JoinPlayer(s.nick, target, hash)
	if err != nil {
		s.Deliver(battleship.Err(err.Error()))
		return
	}
	s.currentGame = id
	s.current = g
	s.Deliver(battleship.Reply("game", battleship.IDExpr(id), battleship.Ident("joined")))
}

// dispatchList answers `(list)`. ListWaiting blocks until a game exists,
// so it runs on its own goroutine rather than inline in the read loop:
// handleLine is called synchronously from Run's scan loop, and a `(list)`
// sent while nothing is waiting would otherwise stall that loop - and
// with it, detecting the connection's own disconnect - until a game
// finally appears. The goroutine is bounded by s.ctx, which Run cancels
// as soon as the read loop exits, so a client that asks to list and then
// vanishes doesn't leak it.
func (s *Session) dispatchList(expr *sexpr.Expr) {
	if _, err := sexpr.Expect(expr, sexpr.Ident); err != nil {
		s.Deliver(battleship.Err("list: " + err.Error()))
		return
	}
	ctx := s.ctx
	go func() {
		entries, err := s.dir.ListWaiting(ctx)
		if err != nil {
			// Most commonly ctx was cancelled because the connection is
			// already gone; Deliver drops it either way.
			s.Deliver(battleship.Err("list: " + err.Error()))
			return
		}
		rows := make([]*sexpr.Expr, 0, len(entries))
		for _, e := range entries {
			if e.Active() {
				rows = append(rows, battleship.Reply("active", sexpr.MkString(e.Host), sexpr.MkString(e.Joiner), battleship.IDExpr(e.ID)))
			} else {
				rows = append(rows, battleship.Reply("waiting", sexpr.MkString(e.Host), battleship.IDExpr(e.ID)))
			}
		}
		s.Deliver(battleship.Reply("games", rows...))
	}()
}

func (s *Session) requireCurrentGame(id battleship.GameID) bool {
	if s.current == nil || s.currentGame != id {
		s.Deliver(battleship.Err("not in that game"))
		return false
	}
	return true
}

func (s *Session) dispatchShoot(expr *sexpr.Expr) {
	items, err := sexpr.Expect(expr, sexpr.Ident, sexpr.Int, sexpr.Int, sexpr.Int)
	if err != nil {
		s.Deliver(battleship.Err("shoot: " + err.Error()))
		return
	}
	id := battleship.GameID(items[1].Int)
	if !s.requireCurrentGame(id) {
		return
	}
	x, y := int(items[2].Int), int(items[3].Int)
	if err := s.current.Shoot(s.nick, x, y); err != nil {
		s.Deliver(battleship.Err(err.Error()))
	}
}

func (s *Session) dispatchAdjudicate(expr *sexpr.Expr, hit bool) {
	items, err := sexpr.Expect(expr, sexpr.Ident, sexpr.Int)
	if err != nil {
		s.Deliver(battleship.Err("adjudicate: " + err.Error()))
		return
	}
	id := battleship.GameID(items[1].Int)
	if !s.requireCurrentGame(id) {
		return
	}
	if err := s.current.Adjudicate(s.nick, hit); err != nil {
		s.Deliver(battleship.Err(err.Error()))
	}
}

func (s *Session) dispatchLayout(expr *sexpr.Expr) {
	items, err := sexpr.Expect(expr, sexpr.Ident, sexpr.Int,
		sexpr.Compound, sexpr.Compound, sexpr.Compound, sexpr.Compound, sexpr.Compound)
	if err != nil {
		s.Deliver(battleship.Err("layout: " + err.Error()))
		return
	}
	id := battleship.GameID(items[1].Int)
	if !s.requireCurrentGame(id) {
		return
	}

	var layout battleship.Layout
	for i := 0; i < 5; i++ {
		ship, err := parseShip(items[2+i])
		if err != nil {
			s.Deliver(battleship.Err("layout: " + err.Error()))
			return
		}
		layout[i] = ship
	}
	if !commit.ValidFleet(layout) {
		s.Deliver(battleship.Err("layout: not the legal fleet"))
		return
	}

	if err := s.current.SubmitLayout(s.nick, layout); err != nil {
		s.Deliver(battleship.Err(err.Error()))
	}
}

// parseShip reads a `(size x y orientation)` ship declaration.
func parseShip(e *sexpr.Expr) (battleship.Ship, error) {
	items, err := sexpr.Expect(e, sexpr.Int, sexpr.Int, sexpr.Int, sexpr.Ident)
	if err != nil {
		return battleship.Ship{}, fmt.Errorf("bad ship declaration: %w", err)
	}
	dir, ok := battleship.ParseOrientation(items[3].Str)
	if !ok {
		return battleship.Ship{}, fmt.Errorf("unknown orientation %q", items[3].Str)
	}
	return battleship.Ship{
		Size: int(items[0].Int),
		X:    int(items[1].Int),
		Y:    int(items[2].Int),
		Dir:  dir,
	}, nil
}
