// Package commit implements the pre-game commitment scheme: salt
// generation, canonical layout serialization, and the hash that binds a
// player to a ship layout without revealing it before play ends.
package commit

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"battleship"
)

// SaltLength is the length, in characters, of a generated salt.
const SaltLength = 16

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Salt returns a fresh, random, printable token of n characters. A zero n
// falls back to SaltLength, the default used when no configuration
// overrides it. It is generated with crypto/rand, not math/rand, because
// it feeds a commitment hash that must resist adversarial guessing.
func Salt(n uint) (string, error) {
	if n == 0 {
		n = SaltLength
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("commit: generating salt: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}
	return string(out), nil
}

// Canonical renders a layout to the fixed textual form used as hash
// input: the five ships sorted by (size desc, x desc, y desc), each
// rendered "size x y orientation", joined with ";".
func Canonical(layout battleship.Layout) string {
	ships := append([]battleship.Ship(nil), layout[:]...)
	sort.Slice(ships, func(i, j int) bool {
		a, b := ships[i], ships[j]
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		if a.X != b.X {
			return a.X > b.X
		}
		return a.Y > b.Y
	})

	parts := make([]string, len(ships))
	for i, s := range ships {
		parts[i] = fmt.Sprintf("%d %d %d %s", s.Size, s.X, s.Y, s.Dir)
	}
	return strings.Join(parts, ";")
}

// Hash computes the commitment digest over (serverSalt, clientSalt,
// canonical layout). Both the server and a well-behaved client must
// derive the same digest from the same inputs; SHA-256 is used here the
// same way the teacher codebase already reaches for it to hash an
// authentication token.
func Hash(serverSalt, clientSalt string, layout battleship.Layout) string {
	h := sha256.New()
	fmt.Fprint(h, serverSalt)
	h.Write([]byte{0})
	fmt.Fprint(h, clientSalt)
	h.Write([]byte{0})
	fmt.Fprint(h, Canonical(layout))
	return hex.EncodeToString(h.Sum(nil))
}
