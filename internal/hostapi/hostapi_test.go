package hostapi

import (
	"context"
	"testing"
	"time"

	"github.com/hailam/corengine/internal/board"
	"github.com/hailam/corengine/internal/config"
	"github.com/hailam/corengine/internal/engine"
)

func TestSearchReturnsLegalMove(t *testing.T) {
	h := New(config.Default())
	pos := board.NewPosition()

	res, err := h.Search(context.Background(), pos, Settings{MaxDepth: 4, MoveTime: 500})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.BestMove == board.NoMove {
		t.Fatal("Search returned NoMove for starting position")
	}
}

func TestSearchRespectsContextCancellation(t *testing.T) {
	h := New(config.Default())
	pos := board.NewPosition()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := h.Search(ctx, pos, Settings{MaxDepth: 60})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Search ignored context cancellation, took %v", elapsed)
	}
	_ = res
}

func TestSearchMultiPVYieldsDistinctMoves(t *testing.T) {
	h := New(config.Default())
	pos := board.NewPosition()

	res, err := h.Search(context.Background(), pos, Settings{MaxDepth: 4, MoveTime: 500, NPVs: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.BestMove == board.NoMove {
		t.Fatal("MultiPV search returned NoMove")
	}
}

func TestSearchMovesWhitelistIsHonored(t *testing.T) {
	h := New(config.Default())
	pos := board.NewPosition()

	legal := pos.GenerateLegalMoves()
	var whitelist []board.Move
	for i := 0; i < legal.Len() && len(whitelist) < 1; i++ {
		whitelist = append(whitelist, legal.Get(i))
	}

	res, err := h.Search(context.Background(), pos, Settings{MaxDepth: 4, MoveTime: 500, SearchMoves: whitelist})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.BestMove != whitelist[0] {
		t.Errorf("Search ignored search_moves whitelist: got %s, want %s", res.BestMove, whitelist[0])
	}
}

func TestResizeTTConvertsBytesToMegabytes(t *testing.T) {
	h := New(config.Default())

	if err := h.ResizeTT(16 * 1024 * 1024); err != nil {
		t.Fatalf("ResizeTT: %v", err)
	}
	if h.hashMB != 16 {
		t.Errorf("Host.hashMB = %d, want 16", h.hashMB)
	}
	if err := h.ResizeTT(0); err == nil {
		t.Error("expected an error for a too-small byte count")
	}
}

func TestClearTTIsSafeBeforeAnySearch(t *testing.T) {
	h := New(config.Default())
	h.ClearTT()
}

func TestOptionRegistryRejectsOutOfRangeSpin(t *testing.T) {
	h := New(config.Default())
	r := NewOptionRegistry(h)

	if err := r.Set("Hash", "0"); err == nil {
		t.Error("expected an error for Hash below its minimum")
	}
	if err := r.Set("Hash", "32"); err != nil {
		t.Errorf("Set(Hash, 32): %v", err)
	}
	if err := r.Set("NoSuchOption", "1"); err == nil {
		t.Error("expected an error for an unknown option name")
	}
}

func TestOptionRegistryThreadsRebuildsWorkerPool(t *testing.T) {
	h := New(config.Default())
	r := NewOptionRegistry(h)

	if err := r.Set("Threads", "3"); err != nil {
		t.Fatalf("Set(Threads, 3): %v", err)
	}
	if h.threads != 3 {
		t.Errorf("Host.threads = %d, want 3", h.threads)
	}

	pos := board.NewPosition()
	res, err := h.Search(context.Background(), pos, Settings{MaxDepth: 4, MoveTime: 300})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.BestMove == board.NoMove {
		t.Error("Search returned NoMove after resizing the worker pool")
	}
}

func TestNewFromEngineSharesTheCallerOwnedEngine(t *testing.T) {
	eng := engine.NewEngine(8)
	h := NewFromEngine(eng, 1, 8)

	pos := board.NewPosition()
	res, err := h.Search(context.Background(), pos, Settings{MaxDepth: 4, MoveTime: 300})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.BestMove == board.NoMove {
		t.Error("Search returned NoMove for an engine constructed outside the Host")
	}
}
