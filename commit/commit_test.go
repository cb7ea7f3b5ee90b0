package commit

import (
	"testing"

	"battleship"
	"github.com/stretchr/testify/require"
)

func honestLayout() battleship.Layout {
	return battleship.Layout{
		{Size: 5, X: 0, Y: 0, Dir: battleship.Horizontal},
		{Size: 4, X: 0, Y: 1, Dir: battleship.Horizontal},
		{Size: 3, X: 0, Y: 2, Dir: battleship.Horizontal},
		{Size: 3, X: 0, Y: 3, Dir: battleship.Horizontal},
		{Size: 2, X: 0, Y: 4, Dir: battleship.Horizontal},
	}
}

func TestSaltIsRandomAndPrintable(t *testing.T) {
	a, err := Salt(0)
	require.NoError(t, err)
	b, err := Salt(0)
	require.NoError(t, err)
	require.Len(t, a, SaltLength)
	require.NotEqual(t, a, b)
	for _, r := range a {
		require.Contains(t, saltAlphabet, string(r))
	}
}

func TestSaltHonorsRequestedLength(t *testing.T) {
	s, err := Salt(32)
	require.NoError(t, err)
	require.Len(t, s, 32)
}

func TestCanonicalIsPermutationInvariant(t *testing.T) {
	layout := honestLayout()
	permuted := battleship.Layout{layout[4], layout[2], layout[0], layout[3], layout[1]}
	require.Equal(t, Canonical(layout), Canonical(permuted))
}

func TestHashDeterministicAndSensitiveToEveryInput(t *testing.T) {
	layout := honestLayout()
	base := Hash("server-salt", "client-salt", layout)

	require.Equal(t, base, Hash("server-salt", "client-salt", layout))
	require.NotEqual(t, base, Hash("SERVER-salt", "client-salt", layout))
	require.NotEqual(t, base, Hash("server-salt", "CLIENT-salt", layout))

	mutated := layout
	mutated[0].X++
	require.NotEqual(t, base, Hash("server-salt", "client-salt", mutated))
}

func TestValidFleet(t *testing.T) {
	require.True(t, ValidFleet(honestLayout()))

	bad := honestLayout()
	bad[0].Size = 1
	require.False(t, ValidFleet(bad))
}

func TestCheckBoardHonors(t *testing.T) {
	layout := honestLayout()

	var view battleship.BoardView
	view[0][0] = battleship.Hit // ship cell of the size-5 ship
	view[9][9] = battleship.Miss

	ok, err := CheckBoard(layout, view)
	require.NoError(t, err)
	require.True(t, ok)

	view[9][9] = battleship.Hit // (9,9) is water: this should fail
	ok, err = CheckBoard(layout, view)
	require.NoError(t, err)
	require.False(t, ok)
}
