package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/corengine/internal/board"
)

// TestEndgameProbeRecognizesAllEightClasses checks that every material
// signature the known-endgame table claims to cover is actually registered,
// for both possible strong-side colors. The pawn guard is covered by
// TestEndgameProbeIgnoresPawns.
func TestEndgameProbeRecognizesAllEightClasses(t *testing.T) {
	e := newEndgameEvaluator()

	cases := []struct {
		name string
		fen  string
	}{
		{"KQvK white queen", "4k3/8/8/8/8/8/3Q4/4K3 w - - 0 1"},
		{"KQvK black queen", "4k3/3q4/8/8/8/8/8/4K3 w - - 0 1"},
		{"KRvK white rook", "4k3/8/8/8/8/8/3R4/4K3 w - - 0 1"},
		{"KRvK black rook", "4k3/3r4/8/8/8/8/8/4K3 w - - 0 1"},
		{"KBNvK white minors", "4k3/8/8/8/8/8/2BN4/4K3 w - - 0 1"},
		{"KBNvK black minors", "4k3/2bn4/8/8/8/8/8/4K3 w - - 0 1"},
		{"KQvKR white queen", "3rk3/8/8/8/8/8/3Q4/4K3 w - - 0 1"},
		{"KQvKR black queen", "4k3/3q4/8/8/8/8/3R4/4K3 w - - 0 1"},
		{"KQvKB white queen", "3bk3/8/8/8/8/8/3Q4/4K3 w - - 0 1"},
		{"KQvKB black queen", "4k3/3q4/8/8/8/8/3B4/4K3 w - - 0 1"},
		{"KQvKN white queen", "3nk3/8/8/8/8/8/3Q4/4K3 w - - 0 1"},
		{"KQvKN black queen", "4k3/3q4/8/8/8/8/3N4/4K3 w - - 0 1"},
		{"KRvKN white rook", "3nk3/8/8/8/8/8/3R4/4K3 w - - 0 1"},
		{"KRvKN black rook", "4k3/3r4/8/8/8/8/3N4/4K3 w - - 0 1"},
		{"KRvKB white rook", "3bk3/8/8/8/8/8/3R4/4K3 w - - 0 1"},
		{"KRvKB black rook", "4k3/3r4/8/8/8/8/3B4/4K3 w - - 0 1"},
	}

	for _, c := range cases {
		pos, err := board.ParseFEN(c.fen)
		require.NoError(t, err, c.name)

		key := computeEndgameKey(pos)
		_, ok := e.byKey[key]
		assert.True(t, ok, "%s: material signature not registered", c.name)
	}
}

// TestEndgameProbeIgnoresPawns checks the generic Probe guard: any pawn on
// the board, even alongside a recognized signature's other pieces, defers
// entirely to general evaluation.
func TestEndgameProbeIgnoresPawns(t *testing.T) {
	e := newEndgameEvaluator()
	pos, err := board.ParseFEN("4k3/8/8/8/8/3P4/3Q4/4K3 w - - 0 1")
	require.NoError(t, err)

	_, ok := e.Probe(pos)
	assert.False(t, ok, "Probe should defer when pawns are present")
	_ = e
}

// TestEndgameDrawishClassesScoreZero checks that KRvKN and KRvKB, which the
// source material treats as drawish rather than winning, are recognized but
// score flat zero.
func TestEndgameDrawishClassesScoreZero(t *testing.T) {
	e := newEndgameEvaluator()

	pos, err := board.ParseFEN("3nk3/8/8/8/8/8/3R4/4K3 w - - 0 1")
	require.NoError(t, err)

	score, ok := e.Probe(pos)
	require.True(t, ok)
	assert.Equal(t, 0, score)

	pos, err = board.ParseFEN("3bk3/8/8/8/8/8/3R4/4K3 w - - 0 1")
	require.NoError(t, err)

	score, ok = e.Probe(pos)
	require.True(t, ok)
	assert.Equal(t, 0, score)
}

// TestEndgameMajorPieceClassesFavorStrongSide checks that KQvKR scores in
// the strong side's favor (positive from white's perspective when white
// holds the queen, negative when black does), matching the sign convention
// Probe documents.
func TestEndgameMajorPieceClassesFavorStrongSide(t *testing.T) {
	e := newEndgameEvaluator()

	white, err := board.ParseFEN("3rk3/8/8/8/8/8/3Q4/4K3 w - - 0 1")
	require.NoError(t, err)
	score, ok := e.Probe(white)
	require.True(t, ok)
	assert.Positive(t, score, "white holding the queen in KQvKR should score positive")

	black, err := board.ParseFEN("4k3/3q4/8/8/8/8/3R4/4K3 w - - 0 1")
	require.NoError(t, err)
	score, ok = e.Probe(black)
	require.True(t, ok)
	assert.Negative(t, score, "black holding the queen in KQvKR should score negative")
}
