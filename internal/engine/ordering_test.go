package engine

import (
	"testing"

	"github.com/hailam/corengine/internal/board"
)

// TestMovePickerYieldsLegalMoveSet is the move-picker-perft equivalence
// property: scoring and best-first-picking a move list must produce exactly
// the legal move set the generator reports, no more and no fewer.
func TestMovePickerYieldsLegalMoveSet(t *testing.T) {
	positions := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1",
	}

	for _, fen := range positions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}

		want := make(map[board.Move]bool)
		reference := pos.GenerateLegalMoves()
		for i := 0; i < reference.Len(); i++ {
			want[reference.Get(i)] = true
		}

		moves := pos.GenerateLegalMoves()
		mo := NewMoveOrderer()
		scores := mo.ScoreMoves(pos, moves, 0, board.NoMove)

		got := make(map[board.Move]bool)
		for i := 0; i < moves.Len(); i++ {
			PickMove(moves, scores, i)
			got[moves.Get(i)] = true
		}

		if len(got) != len(want) {
			t.Fatalf("%s: picker yielded %d distinct moves, generator has %d", fen, len(got), len(want))
		}
		for m := range want {
			if !got[m] {
				t.Errorf("%s: picker never yielded legal move %v", fen, m)
			}
		}
	}
}
