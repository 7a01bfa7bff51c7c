// Package hostapi exposes the engine's external contract as plain Go types
// and functions: search/stop/tt.resize/tt.clear plus the configuration hooks
// a host (UCI loop, GUI, or anything else) drives the engine through. It
// deliberately stays thin — the text protocol itself lives in cmd/corengine
// and internal/uci; this package is what both talk to.
package hostapi

import (
	"context"
	"sync"
	"time"

	"github.com/hailam/corengine/internal/board"
	"github.com/hailam/corengine/internal/config"
	"github.com/hailam/corengine/internal/engine"
	"github.com/hailam/corengine/internal/xerrors"
	"github.com/hailam/corengine/internal/xlog"
)

var hostLog = xlog.Get("hostapi")

// Settings is the full set of recognized search options. Zero value searches
// with the current worker pool, untimed, to the engine's default depth cap
// with no contempt, noise, node budget, or root-move restriction.
type Settings struct {
	Contempt          int          // centipawns added to draw scores favoring us
	NPVs              int          // distinct PVs to search; 0 or 1 disables MultiPV
	NThreads          int          // parallel workers; 0 leaves the current pool size
	EvalRandomMargin  int          // symmetric noise bound in cp; 0 disables
	EvalRandSeed      uint64       // deterministic noise seed
	MaxNodes          uint64       // node budget across the main worker; 0 = unbounded
	MaxDepth          int          // iteration cap; 0 = engine default (MaxPly)
	WhiteTime         int          // ms remaining, white
	WhiteInc          int          // ms increment, white
	BlackTime         int          // ms remaining, black
	BlackInc          int          // ms increment, black
	MoveTime          int          // fixed thinking time in ms; overrides the clocks above
	SearchMoves       []board.Move // whitelist of root moves to consider; empty = all
	Ply               int          // game ply at the search root, for time-control scaling
}

// Results is the `{best_move, ponder_move, score}` contract callers get back
// from Search. PonderMove is NoMove when the winning worker's PV has fewer
// than two moves.
type Results struct {
	BestMove   board.Move
	PonderMove board.Move
	Score      int
}

// Host owns one engine instance. Its configuration hooks (thread count and
// hash size changes, which rebuild internal state the search loop reads)
// take a mutex so they do not run concurrently with each other; Search
// releases that mutex before searching, so it does not keep them from
// running during a search.
type Host struct {
	mu      sync.Mutex
	eng     *engine.Engine
	threads int
	hashMB  int

	nnueBigPath   string
	nnueSmallPath string
}

// tryLoadNNUE loads the NNUE networks once both the big and small weight
// file paths have been set via the EvalFile/EvalFileSmall options.
func (h *Host) tryLoadNNUE() error {
	if h.nnueBigPath == "" || h.nnueSmallPath == "" {
		return nil
	}
	return h.eng.LoadNNUE(h.nnueBigPath, h.nnueSmallPath)
}

// New builds a Host around a freshly configured engine.
func New(cfg config.EngineConfig) *Host {
	if cfg.Engine.HashMB <= 0 {
		cfg.Engine.HashMB = 64
	}
	if cfg.Engine.Threads <= 0 {
		cfg.Engine.Threads = 1
	}

	eng := engine.NewEngine(cfg.Engine.HashMB)
	h := &Host{eng: eng, hashMB: cfg.Engine.HashMB}
	if err := eng.SetThreads(cfg.Engine.Threads); err != nil {
		hostLog.Errorf("initial SetThreads(%d) failed: %v", cfg.Engine.Threads, err)
	} else {
		h.threads = cfg.Engine.Threads
	}

	if cfg.NNUE.Enabled && cfg.NNUE.WeightsFile != "" {
		if err := eng.LoadNNUE(cfg.NNUE.WeightsFile, cfg.NNUE.WeightsFile); err != nil {
			hostLog.Errorf("NNUE load from %q failed: %v", cfg.NNUE.WeightsFile, err)
		} else {
			eng.SetUseNNUE(true)
		}
	}

	return h
}

// NewFromEngine wraps an already-constructed engine instead of building one,
// for callers (internal/uci) that own the engine's lifecycle themselves and
// only want the option registry and Search/Stop surface on top of it.
func NewFromEngine(eng *engine.Engine, threads, hashMB int) *Host {
	return &Host{eng: eng, threads: threads, hashMB: hashMB}
}

// Configure applies a new EngineConfig's engine-level settings (hash size,
// thread count). It must not be called while a search is in flight.
func (h *Host) Configure(cfg config.EngineConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cfg.Engine.HashMB > 0 && cfg.Engine.HashMB != h.hashMB {
		if err := h.eng.ResizeTT(cfg.Engine.HashMB); err != nil {
			return err
		}
		h.hashMB = cfg.Engine.HashMB
	}
	if cfg.Engine.Threads > 0 && cfg.Engine.Threads != h.threads {
		if err := h.eng.SetThreads(cfg.Engine.Threads); err != nil {
			return err
		}
		h.threads = cfg.Engine.Threads
	}
	return nil
}

// ResizeTT reallocates the transposition table to the given size in bytes,
// per the `tt.resize(bytes)` hook; the engine itself works in megabytes, so
// this just converts units.
func (h *Host) ResizeTT(bytes int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	mb := bytes / (1024 * 1024)
	if mb <= 0 {
		return xerrors.New(xerrors.KindInput, "hostapi", "tt.resize: size too small")
	}
	if err := h.eng.ResizeTT(mb); err != nil {
		return err
	}
	h.hashMB = mb
	return nil
}

// ClearTT clears the transposition table and move-ordering caches.
func (h *Host) ClearTT() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.eng.Clear()
}

// Stop requests the in-flight search to return as soon as possible. Async,
// idempotent: calling it with no search running, or calling it twice, is a
// no-op either way.
func (h *Host) Stop() {
	h.eng.Stop()
}

// Search runs one search to completion (or until ctx is canceled) and
// returns the best move, an implied ponder move, and its score. The search
// itself never errors; the only error returned comes from applying
// NThreads, and the other settings values are passed to the engine
// unchecked.
func (h *Host) Search(ctx context.Context, pos *board.Position, settings Settings) (Results, error) {
	h.mu.Lock()
	if settings.NThreads > 0 && settings.NThreads != h.threads {
		if err := h.eng.SetThreads(settings.NThreads); err != nil {
			h.mu.Unlock()
			return Results{}, err
		}
		h.threads = settings.NThreads
	}
	eng := h.eng
	h.mu.Unlock()

	eng.SetContempt(settings.Contempt)
	eng.SetEvalNoise(settings.EvalRandomMargin, settings.EvalRandSeed)
	eng.SetSearchMoves(settings.SearchMoves)
	defer eng.SetSearchMoves(nil)

	done := make(chan struct{})
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				eng.Stop()
			case <-done:
			}
		}()
	}
	defer close(done)

	npvs := settings.NPVs
	if npvs > 1 {
		results := eng.SearchMultiPV(pos, toSearchLimits(settings))
		if len(results) == 0 {
			return Results{}, nil
		}
		return resultsFromSearchResult(results[0]), nil
	}

	if settings.MoveTime > 0 || settings.WhiteTime > 0 || settings.BlackTime > 0 {
		limits := engine.UCILimits{
			Time:      [2]time.Duration{msToDuration(settings.WhiteTime), msToDuration(settings.BlackTime)},
			Inc:       [2]time.Duration{msToDuration(settings.WhiteInc), msToDuration(settings.BlackInc)},
			MoveTime:  msToDuration(settings.MoveTime),
			Depth:     settings.MaxDepth,
			Nodes:     settings.MaxNodes,
		}
		r := eng.SearchUCIFull(pos, limits, settings.Ply)
		return resultsFromWorker(r), nil
	}

	r := eng.SearchFull(pos, toSearchLimits(settings))
	return resultsFromWorker(r), nil
}

func toSearchLimits(s Settings) engine.SearchLimits {
	return engine.SearchLimits{
		Depth:    s.MaxDepth,
		Nodes:    s.MaxNodes,
		MoveTime: msToDuration(s.MoveTime),
		MultiPV:  s.NPVs,
	}
}

func msToDuration(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func ponderFromPV(pv []board.Move) board.Move {
	if len(pv) < 2 {
		return board.NoMove
	}
	return pv[1]
}

func resultsFromWorker(r engine.WorkerResult) Results {
	return Results{BestMove: r.Move, PonderMove: ponderFromPV(r.PV), Score: r.Score}
}

func resultsFromSearchResult(r engine.SearchResult) Results {
	return Results{BestMove: r.Move, PonderMove: ponderFromPV(r.PV), Score: r.Score}
}
