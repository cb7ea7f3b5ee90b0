package battleship

import (
	"io"
	"log"
)

// Debug is silent by default; cmd/battleshipd points it at stderr when the
// configuration enables debug logging.
var Debug = log.New(io.Discard, "[debug] ", log.Ltime|log.Lmicroseconds)
