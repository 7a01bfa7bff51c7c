package engine

import (
	"github.com/hailam/corengine/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// PVTable stores the principal variation, indexed by ply. Each worker keeps
// one; the MultiPV path's dedicated worker is no exception.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}
