package commit

import (
	"fmt"

	"battleship"
)

// MaterializeBoard renders a declared layout to a ship/water grid, the
// shape a board check compares against the server's recorded hits and
// misses.
func MaterializeBoard(layout battleship.Layout) (grid [battleship.BoardSize][battleship.BoardSize]bool, err error) {
	for _, ship := range layout {
		for _, cell := range ship.Cells() {
			x, y := cell[0], cell[1]
			if x < 0 || x >= battleship.BoardSize || y < 0 || y >= battleship.BoardSize {
				return grid, fmt.Errorf("commit: ship of size %d at (%d,%d) %s runs off the board", ship.Size, ship.X, ship.Y, ship.Dir)
			}
			if grid[y][x] {
				return grid, fmt.Errorf("commit: ships overlap at (%d,%d)", x, y)
			}
			grid[y][x] = true
		}
	}
	return grid, nil
}

// ValidFleet reports whether layout contains exactly the legal multiset of
// ship sizes, {5,4,3,3,2}.
func ValidFleet(layout battleship.Layout) bool {
	want := battleship.FleetSizes
	got := make([]int, len(layout))
	for i, s := range layout {
		got[i] = s.Size
	}
	return sameMultiset(want[:], got)
}

func sameMultiset(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int]int, len(a))
	for _, x := range a {
		counts[x]++
	}
	for _, x := range b {
		counts[x]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// CheckBoard reports whether the declared layout is consistent with the
// server's recorded view: every cell the server marked Hit must be a ship
// cell, every cell marked Miss must be water. Unknown cells are
// unconstrained.
func CheckBoard(layout battleship.Layout, view battleship.BoardView) (bool, error) {
	grid, err := MaterializeBoard(layout)
	if err != nil {
		return false, err
	}
	for y := 0; y < battleship.BoardSize; y++ {
		for x := 0; x < battleship.BoardSize; x++ {
			switch view[y][x] {
			case battleship.Hit:
				if !grid[y][x] {
					return false, nil
				}
			case battleship.Miss:
				if grid[y][x] {
					return false, nil
				}
			}
		}
	}
	return true, nil
}
