// Package directory is the single goroutine owning the player table and
// the game table. All mutation happens inside its own select loop, the
// same way the teacher's queue.go serializes access to the waiting queue
// through a pair of channels (enqueue/forget) rather than a mutex; here
// the pattern is generalized into request/response closures so the
// directory can answer lookups as well as accept mutations.
package directory

import (
	"errors"

	"github.com/google/uuid"

	"battleship"
	"battleship/commit"
	"battleship/engine"
)

var (
	ErrDuplicateNick  = errors.New("directory: nickname already in use")
	ErrUnknownPlayer  = errors.New("directory: unknown player")
	ErrAlreadyInGame  = errors.New("directory: player already occupies a game")
	ErrUnknownGame    = errors.New("directory: unknown game id")
	ErrGameFull       = errors.New("directory: game already has two occupants")
	ErrSelfJoin       = errors.New("directory: cannot join your own waiting game")
	ErrNoWaitingGame  = errors.New("directory: player hosts no waiting game")
	ErrNotInAnyGame   = errors.New("directory: player does not occupy a game")
)

// player is a directory entry: one bound nickname, its current
// connection, and the commitment material it was registered with.
type player struct {
	nick       string
	connID     uuid.UUID
	peer       battleship.Peer
	clientSalt string
	serverSalt string
	hashField  string            // commitment hash announced with start/auto/join
	gameID     battleship.GameID // 0 if not currently in a game
}

// record tracks one game's occupancy independent of engine.Game's own
// internal state, so the directory can answer `list`/`joinplayer`
// queries without reaching into the engine goroutine.
type record struct {
	id       battleship.GameID
	host     string
	join     string // "" while waiting
	instance *engine.Game
}

func (r *record) waiting() bool { return r.join == "" }

type state struct {
	players map[string]*player
	games   map[battleship.GameID]*record
	nextID  battleship.GameID

	changed chan struct{} // closed and replaced whenever the waiting set changes
}

// Directory is the process-wide registry of players and games.
type Directory struct {
	cmds       chan func(*state)
	saltLength uint
}

// New starts the directory goroutine. saltLength configures the length of
// server salts issued by Register; zero uses commit.SaltLength.
func New(saltLength uint) *Directory {
	d := &Directory{cmds: make(chan func(*state)), saltLength: saltLength}
	st := &state{
		players: make(map[string]*player),
		games:   make(map[battleship.GameID]*record),
		nextID:  1,
		changed: make(chan struct{}),
	}
	go d.run(st)
	return d
}

func (d *Directory) run(st *state) {
	for cmd := range d.cmds {
		cmd(st)
	}
}

func (d *Directory) exec(f func(*state)) {
	done := make(chan struct{})
	d.cmds <- func(st *state) { f(st); close(done) }
	<-done
}

// notifyChanged wakes every goroutine blocked in ListWaiting.
func (st *state) notifyChanged() {
	close(st.changed)
	st.changed = make(chan struct{})
}

// Register binds nick to peer, generating a fresh server salt. It fails
// if nick is already taken.
func (d *Directory) Register(nick, clientSalt string, peer battleship.Peer) (serverSalt string, err error) {
	salt, saltErr := commit.Salt(d.saltLength)
	if saltErr != nil {
		return "", saltErr
	}
	d.exec(func(st *state) {
		if _, taken := st.players[nick]; taken {
			err = ErrDuplicateNick
			return
		}
		st.players[nick] = &player{
			nick:       nick,
			connID:     uuid.New(),
			peer:       peer,
			clientSalt: clientSalt,
			serverSalt: salt,
		}
		serverSalt = salt
	})
	return serverSalt, err
}

// Unregister removes nick entirely: its waiting game (if any) is
// destroyed; its active game (if any) is abandoned for the opponent per
// the disconnect policy spec.md leaves open.
func (d *Directory) Unregister(nick string) {
	d.exec(func(st *state) {
		p, ok := st.players[nick]
		if !ok {
			return
		}
		if gid := p.gameID; gid != 0 {
			if rec, ok := st.games[gid]; ok {
				if rec.waiting() {
					delete(st.games, gid)
					st.notifyChanged()
				} else {
					rec.instance.Abandon(nick)
					delete(st.games, gid)
				}
			}
		}
		delete(st.players, nick)
	})
}

// Peer returns the live peer registered under nick, for use by the
// session that wants to address another nickname's connection.
func (d *Directory) Peer(nick string) (battleship.Peer, bool) {
	var p battleship.Peer
	var ok bool
	d.exec(func(st *state) {
		pl, found := st.players[nick]
		if found {
			p, ok = pl.peer, true
		}
	})
	return p, ok
}
