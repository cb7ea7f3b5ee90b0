// Package conf loads and represents the server's startup configuration,
// following the same toml-file-plus-defaults shape the teacher codebase
// uses for its own server.toml.
package conf

import (
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"battleship"
)

// wire is the on-disk shape decoded directly by toml.
type wire struct {
	Debug  bool   `toml:"debug"`
	Socket string `toml:"socket"`
	Salt   struct {
		Length uint `toml:"length"`
	} `toml:"salt"`
	Game struct {
		MoveTimeoutMS uint `toml:"move_timeout_ms"`
	} `toml:"game"`
}

// Conf is the configuration actually consumed by the server.
type Conf struct {
	Debug bool

	// SocketPath is the filename of the Unix-domain socket the server
	// listens on. A stale file at this path is removed before binding.
	SocketPath string

	// SaltLength is the length, in characters, of server-generated salts.
	SaltLength uint

	// MoveTimeout bounds nothing in the protocol itself (the spec leaves
	// stalls unenforced) but is surfaced for deployments that want to
	// evict games via an external watchdog; zero disables it.
	MoveTimeout time.Duration

	path string
}

// Default returns the configuration used when no file is present.
func Default() *Conf {
	return &Conf{
		Debug:       false,
		SocketPath:  "battleship.sock",
		SaltLength:  16,
		MoveTimeout: 0,
	}
}

// Open reads a toml configuration file, falling back to Default() values
// for anything it does not set.
func Open(path string) (*Conf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var w wire
	if _, err := toml.NewDecoder(f).Decode(&w); err != nil {
		return nil, err
	}

	c := Default()
	c.path = path
	c.Debug = w.Debug
	if w.Socket != "" {
		c.SocketPath = w.Socket
	}
	if w.Salt.Length > 0 {
		c.SaltLength = w.Salt.Length
	}
	if w.Game.MoveTimeoutMS > 0 {
		c.MoveTimeout = time.Duration(w.Game.MoveTimeoutMS) * time.Millisecond
	}
	return c, nil
}

// Dump serializes c in the on-disk toml shape, for `-dump-config`.
func (c *Conf) Dump(w io.Writer) error {
	var out wire
	out.Debug = c.Debug
	out.Socket = c.SocketPath
	out.Salt.Length = c.SaltLength
	out.Game.MoveTimeoutMS = uint(c.MoveTimeout / time.Millisecond)
	return toml.NewEncoder(w).Encode(out)
}

// ApplyDebug wires c.Debug into the shared battleship.Debug logger, the
// same switch the teacher flips in its own conf.init()/start().
func (c *Conf) ApplyDebug() {
	if c.Debug {
		battleship.Debug.SetOutput(os.Stderr)
		battleship.Debug.Print("debug logging enabled")
	} else {
		battleship.Debug.SetOutput(io.Discard)
	}
}
