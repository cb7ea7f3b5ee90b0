package directory

import (
	"context"

	"battleship"
	"battleship/engine"
)

// Entry is one row of a `(list)` reply: either a waiting game (one
// occupant) or an active one (two).
type Entry struct {
	ID     battleship.GameID
	Host   string
	Joiner string // "" for a waiting entry
}

func (e Entry) Active() bool { return e.Joiner != "" }

// Start creates a new waiting game hosted by nick, committed under hash.
// It fails if nick is already occupying a game.
func (d *Directory) Start(nick, hash string) (battleship.GameID, error) {
	var id battleship.GameID
	var err error
	d.exec(func(st *state) {
		p, ok := st.players[nick]
		if !ok {
			err = ErrUnknownPlayer
			return
		}
		if p.gameID != 0 {
			err = ErrAlreadyInGame
			return
		}
		id = st.nextID
		st.nextID++
		p.gameID = id
		p.hashField = hash
		st.games[id] = &record{id: id, host: nick}
		st.notifyChanged()
	})
	return id, err
}

// Join seats nick into the waiting game gid under commitment hash,
// starting the engine's game goroutine.
func (d *Directory) Join(nick string, gid battleship.GameID, hash string) (*engine.Game, string, error) {
	var g *engine.Game
	var hostNick string
	var err error
	d.exec(func(st *state) {
		p, ok := st.players[nick]
		if !ok {
			err = ErrUnknownPlayer
			return
		}
		rec, ok := st.games[gid]
		if !ok {
			err = ErrUnknownGame
			return
		}
		if !rec.waiting() {
			err = ErrGameFull
			return
		}
		if rec.host == nick {
			err = ErrSelfJoin
			return
		}
		if p.gameID != 0 {
			err = ErrAlreadyInGame
			return
		}
		host := st.players[rec.host]
		rec.join = nick
		p.gameID = gid
		p.hashField = hash
		host.gameID = gid

		g = engine.NewGame(gid,
			&engine.Side{Peer: host.peer, Nick: host.nick, ClientSalt: host.clientSalt, ServerSalt: host.serverSalt, Hash: host.hashField},
			&engine.Side{Peer: p.peer, Nick: p.nick, ClientSalt: p.clientSalt, ServerSalt: p.serverSalt, Hash: p.hashField},
		)
		rec.instance = g
		hostNick = host.nick
		st.notifyChanged()
	})
	return g, hostNick, err
}

// Auto pairs nick with any waiting game if one exists (tie-break:
// first-found, which matches the original's observed behavior);
// otherwise it starts a new waiting game exactly as Start would.
func (d *Directory) Auto(nick, hash string) (joined bool, gid battleship.GameID, g *engine.Game, hostNick string, err error) {
	var waitingID battleship.GameID
	found := false
	d.exec(func(st *state) {
		if p, ok := st.players[nick]; ok && p.gameID != 0 {
			err = ErrAlreadyInGame
			return
		}
		for id, rec := range st.games {
			if rec.waiting() && rec.host != nick {
				waitingID = id
				found = true
				return
			}
		}
	})
	if err != nil {
		return
	}
	if !found {
		id, e := d.Start(nick, hash)
		return false, id, nil, "", e
	}
	g, hostNick, err = d.Join(nick, waitingID, hash)
	return true, waitingID, g, hostNick, err
}

// JoinPlayer resolves targetNick to the single waiting game it hosts and
// joins nick to it under commitment hash.
func (d *Directory) JoinPlayer(nick, targetNick, hash string) (gid battleship.GameID, g *engine.Game, hostNick string, err error) {
	var found battleship.GameID
	ok := false
	d.exec(func(st *state) {
		target, exists := st.players[targetNick]
		if !exists {
			err = ErrUnknownPlayer
			return
		}
		rec, has := st.games[target.gameID]
		if target.gameID == 0 || !has || !rec.waiting() {
			err = ErrNoWaitingGame
			return
		}
		found = rec.id
		ok = true
	})
	if err != nil || !ok {
		return 0, nil, "", err
	}
	g, hostNick, err = d.Join(nick, found, hash)
	return found, g, hostNick, err
}

// snapshot returns every currently known game as an Entry, waiting and
// active alike, in map iteration order; waiting games are not listed
// ahead of active ones.
func (st *state) snapshot() []Entry {
	var out []Entry
	for _, rec := range st.games {
		out = append(out, Entry{ID: rec.id, Host: rec.host, Joiner: rec.join})
	}
	return out
}

// ListWaiting blocks until at least one game (waiting or active) exists,
// then returns the full current set. It implements the server-side
// broadcast-on-change pattern described for blocking `list`: snapshot,
// and if empty, wait on the directory's change signal and retry.
func (d *Directory) ListWaiting(ctx context.Context) ([]Entry, error) {
	for {
		var entries []Entry
		var wait chan struct{}
		d.exec(func(st *state) {
			entries = st.snapshot()
			if len(entries) == 0 {
				wait = st.changed
			}
		})
		if len(entries) > 0 {
			return entries, nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
