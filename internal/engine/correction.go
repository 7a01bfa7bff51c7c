package engine

import (
	"github.com/hailam/corengine/internal/board"
)

// corrHistSize is the modulus applied to the pawn key; keyed by pawn
// structure rather than the full position hash because pawn skeletons
// recur far more often than exact positions, giving the table real hits.
const corrHistSize = 16384

// CorrectionHistory adjusts static evaluation based on search results.
// When the search discovers the static eval was wrong, we record the error
// and apply corrections to similar positions in the future.
// Based on Stockfish's correction history.
type CorrectionHistory struct {
	// Pawn-structure correction indexed by pawn_key % corrHistSize, one
	// table per side to move since the same skeleton values differently
	// depending on whose turn it is to exploit it.
	positionCorr [2][corrHistSize]int16
}

// NewCorrectionHistory creates a new correction history table.
func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

// Get returns the correction value for a position.
// The correction should be added to the static evaluation.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	idx := pos.PawnKey % corrHistSize
	return int(ch.positionCorr[pos.SideToMove][idx])
}

// Update records a correction based on the difference between
// the static evaluation and the search result.
// Uses gravity update: new = old + (target - old) / 16
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	// Only update if we have meaningful data
	if depth < 1 {
		return
	}

	// Calculate the error
	diff := searchScore - staticEval

	// Scale bonus by depth (deeper searches are more reliable)
	bonus := diff * depth / 8

	// Clamp the bonus to prevent extreme updates
	if bonus > 256 {
		bonus = 256
	} else if bonus < -256 {
		bonus = -256
	}

	idx := pos.PawnKey % corrHistSize
	us := pos.SideToMove
	old := int(ch.positionCorr[us][idx])

	// Gravity update: gradually move toward the target
	newVal := old + (bonus-old)/16

	// Clamp to int16 range but with reasonable limits
	if newVal > 16000 {
		newVal = 16000
	} else if newVal < -16000 {
		newVal = -16000
	}

	ch.positionCorr[us][idx] = int16(newVal)
}

// Clear resets all correction values.
func (ch *CorrectionHistory) Clear() {
	for c := range ch.positionCorr {
		for i := range ch.positionCorr[c] {
			ch.positionCorr[c][i] = 0
		}
	}
}

// Age scales down all correction values (called between games/positions).
func (ch *CorrectionHistory) Age() {
	for c := range ch.positionCorr {
		for i := range ch.positionCorr[c] {
			ch.positionCorr[c][i] /= 2
		}
	}
}
