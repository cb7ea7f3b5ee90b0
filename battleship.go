// Package battleship holds the domain types shared by the protocol codec,
// the commitment primitives, the session layer, the game directory and the
// game engine: board geometry, ship sizes, game outcomes and ids.
package battleship

import "fmt"

// BoardSize is the width and height of a player's grid.
const BoardSize = 10

// FleetSizes is the multiset of ship lengths every layout must contain.
var FleetSizes = [5]int{5, 4, 3, 3, 2}

// TotalTonnage is the cumulative length of the fleet, i.e. the hit count
// that marks a side as sunk.
var TotalTonnage = sum(FleetSizes[:])

func sum(xs []int) int {
	var n int
	for _, x := range xs {
		n += x
	}
	return n
}

// GameID identifies a game for the lifetime of a server run. Ids are never
// reused.
type GameID uint64

// Orientation is the axis a ship extends along from its anchor cell.
type Orientation bool

const (
	Horizontal Orientation = false
	Vertical   Orientation = true
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ParseOrientation recognizes the wire spelling of an orientation.
func ParseOrientation(s string) (Orientation, bool) {
	switch s {
	case "vertical":
		return Vertical, true
	case "horizontal":
		return Horizontal, true
	default:
		return false, false
	}
}

// Ship is one declared placement: a hull of Size cells starting at (X, Y)
// and extending along Orientation.
type Ship struct {
	Size int
	X, Y int
	Dir  Orientation
}

// Cells enumerates the board coordinates a ship occupies.
func (s Ship) Cells() [][2]int {
	cells := make([][2]int, 0, s.Size)
	for i := 0; i < s.Size; i++ {
		if s.Dir == Horizontal {
			cells = append(cells, [2]int{s.X + i, s.Y})
		} else {
			cells = append(cells, [2]int{s.X, s.Y + i})
		}
	}
	return cells
}

// Layout is a full, five-ship fleet placement.
type Layout [5]Ship

// CellState is what the opponent has learned about one of a player's
// cells, from that player's point of view as observed by the server.
type CellState uint8

const (
	Unknown CellState = iota
	Hit
	Miss
)

func (c CellState) String() string {
	switch c {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "unknown"
	}
}

// BoardView is the server's record of what the opponent has observed
// about one player's board: a 10x10 grid of cell states.
type BoardView [BoardSize][BoardSize]CellState

// Outcome is the terminal result of a finished, verified game, from one
// side's point of view.
type Outcome uint8

const (
	Ongoing Outcome = iota
	Won
	Lost
	Drawn
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Ongoing:
		return "ongoing"
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Drawn:
		return "drawn"
	case Aborted:
		return "aborted"
	default:
		panic(fmt.Sprintf("battleship: illegal outcome %d", uint8(o)))
	}
}
