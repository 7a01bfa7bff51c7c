package engine

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/corengine/internal/board"
	"github.com/hailam/corengine/internal/tracing"
	"github.com/hailam/corengine/internal/xerrors"
	"github.com/hailam/corengine/internal/xlog"
	"github.com/hailam/corengine/sfnnue"
)

var engineLog = xlog.Get("engine")

// NumWorkers is the number of parallel search workers (matches CPU cores).
var NumWorkers = runtime.GOMAXPROCS(0)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = no limit)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
	MultiPV  int           // Number of principal variations to find (0 or 1 = single best move)
}

// SearchResult contains the result of a single PV search.
type SearchResult struct {
	Move  board.Move
	Score int
	PV    []board.Move
	Depth int
}

// Difficulty represents the AI difficulty level.
type Difficulty int

const (
	Easy   Difficulty = iota // depth 3, 500ms
	Medium                   // depth 7, 1s
	Hard                     // Maximum strength: depth 40, 3s
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 7, MoveTime: 1 * time.Second},
	Hard:   {Depth: 40, MoveTime: 3 * time.Second}, // Max strength (time-limited)
}

// Engine is the chess AI engine.
type Engine struct {
	// Workers for parallel search
	workers       []*Worker
	pawnTable     *PawnTable
	tt            *TranspositionTable
	sharedHistory *SharedHistory // Shared history for Lazy SMP
	stopFlag      atomic.Bool

	// Single-threaded worker driving the MultiPV path: each requested PV is
	// searched to completion with the previous best moves excluded from the
	// root, one iterative-deepening run at a time. It shares the main
	// transposition table but owns an independent stop flag so sequential
	// MultiPV passes never race the Lazy-SMP worker pool.
	searcher       *Worker
	searcherStop   atomic.Bool

	difficulty Difficulty

	// Position history for repetition detection
	rootPosHashes []uint64

	// NNUE evaluation
	useNNUE bool
	nnueNet *sfnnue.Networks // Shared networks (immutable after load)

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table size in MB.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	sharedHistory := NewSharedHistory()

	e := &Engine{
		tt:            tt,
		pawnTable:     NewPawnTable(1),
		sharedHistory: sharedHistory,
		difficulty:    Medium,
		workers:       make([]*Worker, NumWorkers),
	}

	engineLog.Infof("creating %d workers (GOMAXPROCS=%d)", NumWorkers, runtime.GOMAXPROCS(0))

	// Create workers, each with its own pawn table for thread safety
	for i := 0; i < NumWorkers; i++ {
		workerPawnTable := NewPawnTable(1) // 1MB per worker
		e.workers[i] = NewWorker(i, tt, workerPawnTable, sharedHistory, &e.stopFlag)
	}

	// Create the dedicated MultiPV worker
	e.searcher = NewWorker(-1, tt, NewPawnTable(1), sharedHistory, &e.searcherStop)

	return e
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// SetSink attaches a tracing sink to every worker. Passing nil restores the
// default no-op sink, returning the hot path to its zero-overhead baseline.
func (e *Engine) SetSink(sink tracing.Sink) {
	for _, w := range e.workers {
		w.SetSink(sink)
	}
}

// SetPositionHistory sets the position history for repetition detection.
// This should be called before Search() with hashes from the game's move history.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootPosHashes = make([]uint64, len(hashes))
	copy(e.rootPosHashes, hashes)

	// Set for all workers
	for _, w := range e.workers {
		w.SetRootHistory(hashes)
	}

	// Set for legacy searcher
	e.searcher.SetRootHistory(hashes)
}

// Search finds the best move for the given position.
func (e *Engine) Search(pos *board.Position) board.Move {
	limits := DifficultySettings[e.difficulty]
	return e.SearchWithLimits(pos, limits)
}

// voteScore ranks a worker's final result the way the Lazy-SMP root join
// does: deeper completed iterations dominate, an exact (non-fail-high/low)
// bound is worth a fixed bonus over a bound of the same depth and score,
// and the raw score breaks remaining ties.
func voteScore(r WorkerResult) int {
	bonus := 0
	if r.Exact {
		bonus = 400
	}
	return r.Depth*500 + r.Score + bonus
}

// joinWorkers picks the winning result once every worker has stopped
// searching: the highest vote score wins, ties going to the main worker
// (id 0) since it searches the unstaggered, full-window line.
func joinWorkers(finals []WorkerResult) WorkerResult {
	best := finals[0]
	bestVote := voteScore(best)
	for i := 1; i < len(finals); i++ {
		if finals[i].Move == board.NoMove {
			continue
		}
		v := voteScore(finals[i])
		if v > bestVote {
			best = finals[i]
			bestVote = v
		}
	}
	return best
}

// SearchWithLimits finds the best move with specific search limits.
// Uses Lazy SMP with multiple workers searching in parallel.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	return e.searchWithLimitsFull(pos, limits).Move
}

// SearchFull is SearchWithLimits but returns the winning worker's score and
// PV alongside the move, for callers (the host API surface) that need to
// report a score and a ponder move rather than just a move.
func (e *Engine) SearchFull(pos *board.Position, limits SearchLimits) SearchResult {
	r := e.searchWithLimitsFull(pos, limits)
	return SearchResult{Move: r.Move, Score: r.Score, PV: r.PV, Depth: r.Depth}
}

func (e *Engine) searchWithLimitsFull(pos *board.Position, limits SearchLimits) WorkerResult {
	// Reset for new search
	e.stopFlag.Store(false)
	e.tt.NewSearch()

	if e.useNNUE && e.nnueNet != nil {
		engineLog.Debugf("starting search with NNUE evaluation")
	} else {
		engineLog.Debugf("starting search with classical evaluation")
	}

	// Reset all workers
	for _, w := range e.workers {
		w.Reset()
	}

	startTime := time.Now()

	// Determine maximum depth
	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	// Determine deadline
	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	numWorkers := len(e.workers)
	resultCh := make(chan WorkerResult, numWorkers*maxDepth)
	finals := make([]WorkerResult, numWorkers)

	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < numWorkers; i++ {
		workerID := i
		g.Go(func() error {
			finals[workerID] = e.workerSearch(workerID, pos, maxDepth, resultCh)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(resultCh)
		close(done)
	}()

	var bestMove board.Move
	var bestScore int
	var bestPV []board.Move
	var bestDepth int

resultLoop:
	for {
		select {
		case result, ok := <-resultCh:
			if !ok {
				break resultLoop
			}

			// Stream progress for UI/UCI reporting; final move selection
			// happens via vote once every worker has joined below.
			if result.Move != board.NoMove && result.Depth >= bestDepth {
				bestMove = result.Move
				bestScore = result.Score
				bestPV = result.PV
				bestDepth = result.Depth

				if e.OnInfo != nil {
					elapsed := time.Since(startTime)
					e.OnInfo(SearchInfo{
						Depth:    bestDepth,
						Score:    bestScore,
						Nodes:    e.getTotalNodes(),
						Time:     elapsed,
						PV:       bestPV,
						HashFull: e.tt.HashFull(),
					})
				}

				if bestScore > MateScore-100 || bestScore < -MateScore+100 {
					e.stopFlag.Store(true)
					break resultLoop
				}
			}

			if !deadline.IsZero() && time.Now().After(deadline) {
				e.stopFlag.Store(true)
				break resultLoop
			}

			if limits.Nodes > 0 && e.getTotalNodes() >= limits.Nodes {
				e.stopFlag.Store(true)
				break resultLoop
			}

		case <-done:
			break resultLoop
		}
	}

	e.stopFlag.Store(true)
	<-done

	winner := joinWorkers(finals)
	if winner.Move != board.NoMove {
		return winner
	}
	return WorkerResult{Move: bestMove, Score: bestScore, PV: bestPV, Depth: bestDepth}
}

// SearchWithUCILimits finds the best move using UCI time controls.
// Supports wtime/btime/winc/binc for proper tournament time management.
func (e *Engine) SearchWithUCILimits(pos *board.Position, limits UCILimits, ply int) board.Move {
	return e.searchWithUCILimitsFull(pos, limits, ply).Move
}

// SearchUCIFull is SearchWithUCILimits but returns the winning worker's score
// and PV alongside the move, for callers that need to report a score and a
// ponder move rather than just a move.
func (e *Engine) SearchUCIFull(pos *board.Position, limits UCILimits, ply int) WorkerResult {
	return e.searchWithUCILimitsFull(pos, limits, ply)
}

func (e *Engine) searchWithUCILimitsFull(pos *board.Position, limits UCILimits, ply int) WorkerResult {
	// Initialize time manager
	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)

	// Reset for new search
	e.stopFlag.Store(false)
	e.tt.NewSearch()

	// Reset all workers
	for _, w := range e.workers {
		w.Reset()
	}

	startTime := time.Now()
	var bestMove board.Move
	var bestScore int
	var bestPV []board.Move
	var bestDepth int
	var lastBestMove board.Move
	var stabilityCount int
	var instabilityCount int

	// Determine maximum depth
	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	numWorkers := len(e.workers)
	resultCh := make(chan WorkerResult, numWorkers*maxDepth)
	finals := make([]WorkerResult, numWorkers)

	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < numWorkers; i++ {
		workerID := i
		g.Go(func() error {
			finals[workerID] = e.workerSearch(workerID, pos, maxDepth, resultCh)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(resultCh)
		close(done)
	}()

resultLoop:
	for {
		select {
		case result, ok := <-resultCh:
			if !ok {
				break resultLoop
			}

			if result.Move != board.NoMove && result.Depth >= bestDepth {
				if result.Depth > bestDepth {
					if result.Move == lastBestMove {
						stabilityCount++
						instabilityCount = 0
					} else {
						instabilityCount++
						stabilityCount = 0
					}
					lastBestMove = result.Move
				}

				bestMove = result.Move
				bestScore = result.Score
				bestPV = result.PV
				bestDepth = result.Depth

				if e.OnInfo != nil {
					elapsed := time.Since(startTime)
					e.OnInfo(SearchInfo{
						Depth:    bestDepth,
						Score:    bestScore,
						Nodes:    e.getTotalNodes(),
						Time:     elapsed,
						PV:       bestPV,
						HashFull: e.tt.HashFull(),
					})
				}

				if bestScore > MateScore-100 || bestScore < -MateScore+100 {
					e.stopFlag.Store(true)
					break resultLoop
				}

				if tm.PastOptimum() {
					if stabilityCount >= 4 {
						e.stopFlag.Store(true)
						break resultLoop
					}
				}
			}

			if tm.ShouldStop() {
				e.stopFlag.Store(true)
				break resultLoop
			}

			if limits.Nodes > 0 && e.getTotalNodes() >= limits.Nodes {
				e.stopFlag.Store(true)
				break resultLoop
			}

		case <-done:
			break resultLoop
		}
	}

	e.stopFlag.Store(true)
	<-done

	winner := joinWorkers(finals)
	if winner.Move != board.NoMove {
		return winner
	}
	return WorkerResult{Move: bestMove, Score: bestScore, PV: bestPV, Depth: bestDepth}
}

// workerSearch runs iterative deepening search in a worker goroutine and
// returns its own final (deepest-completed) result for the root join.
// Uses depth staggering: workers start at different depths to reduce redundant shallow work.
func (e *Engine) workerSearch(workerID int, pos *board.Position, maxDepth int, resultCh chan<- WorkerResult) WorkerResult {
	worker := e.workers[workerID]
	worker.InitSearch(pos)
	defer worker.FinishSearch()

	var prevScore int
	var final WorkerResult

	// Depth staggering: helper workers skip shallow depths
	// Worker 0 (main): starts at depth 1
	// Workers 1-2: start at depth 2
	// Workers 3-5: start at depth 3
	// Workers 6+: start at depth 4
	startDepth := 1
	if workerID >= 6 {
		startDepth = 4
	} else if workerID >= 3 {
		startDepth = 3
	} else if workerID >= 1 {
		startDepth = 2
	}

	// Track recent scores for volatility calculation
	recentScores := make([]int, 0, 10)

	for depth := startDepth; depth <= maxDepth; depth++ {
		if e.stopFlag.Load() {
			return final
		}

		var move board.Move
		var score int
		exact := true

		// Use dynamic aspiration windows after depth 4
		// Window size adapts based on score volatility
		if depth >= 5 && prevScore != 0 {
			// Calculate volatility from recent scores
			volatility := 0
			if len(recentScores) >= 2 {
				minScore, maxScore := recentScores[0], recentScores[0]
				for _, s := range recentScores {
					if s < minScore {
						minScore = s
					}
					if s > maxScore {
						maxScore = s
					}
				}
				volatility = maxScore - minScore
			}

			// Dynamic window size based on volatility
			var window int
			if volatility > 400 {
				// High volatility (tactical position): use wider window
				window = 150 + volatility/4
			} else if volatility < 50 {
				// Stable position: use tight window
				window = 25
			} else {
				// Normal: moderate window
				window = 50 + volatility/8
			}

			// Add worker-specific variation for search diversity
			window += (workerID % 8) * 3

			alpha := prevScore - window
			beta := prevScore + window
			retryCount := 0

			for {
				move, score = worker.SearchDepth(depth, alpha, beta)

				if e.stopFlag.Load() {
					return final
				}

				if score <= alpha {
					// Failed low: gradually expand alpha
					exact = false
					retryCount++
					if retryCount >= 2 {
						alpha = -Infinity
					} else {
						alpha = prevScore - window*2
					}
				} else if score >= beta {
					// Failed high: gradually expand beta
					exact = false
					retryCount++
					if retryCount >= 2 {
						beta = Infinity
					} else {
						beta = prevScore + window*2
					}
				} else {
					exact = true
					break
				}

				if alpha == -Infinity && beta == Infinity {
					break
				}
			}
		} else {
			move, score = worker.SearchDepth(depth, -Infinity, Infinity)
		}

		if e.stopFlag.Load() {
			return final
		}

		prevScore = score

		// Track score for volatility calculation
		recentScores = append(recentScores, score)
		if len(recentScores) > 10 {
			recentScores = recentScores[1:] // Keep last 10 scores
		}

		pv := worker.GetPV()
		result := WorkerResult{
			WorkerID: workerID,
			Depth:    depth,
			Score:    score,
			Move:     move,
			PV:       pv,
			Nodes:    worker.Nodes(),
			Exact:    exact,
		}
		final = result
		resultCh <- result
	}

	return final
}

// getTotalNodes returns the total nodes searched by all workers.
func (e *Engine) getTotalNodes() uint64 {
	var total uint64
	for _, w := range e.workers {
		total += w.Nodes()
	}
	return total
}

// SearchMultiPV finds multiple best moves (principal variations) for analysis.
func (e *Engine) SearchMultiPV(pos *board.Position, limits SearchLimits) []SearchResult {
	numPV := limits.MultiPV
	if numPV <= 0 {
		numPV = 1
	}

	results := make([]SearchResult, 0, numPV)
	excludedMoves := make([]board.Move, 0, numPV)

	for i := 0; i < numPV; i++ {
		// Search excluding already-found best moves
		move, score, pv, depth := e.searchWithExclusions(pos, limits, excludedMoves)
		if move == board.NoMove {
			break
		}

		results = append(results, SearchResult{
			Move:  move,
			Score: score,
			PV:    pv,
			Depth: depth,
		})
		excludedMoves = append(excludedMoves, move)
	}

	// Sort results by score (descending) to ensure best moves are first
	for i := 0; i < len(results)-1; i++ {
		maxIdx := i
		for j := i + 1; j < len(results); j++ {
			if results[j].Score > results[maxIdx].Score {
				maxIdx = j
			}
		}
		if maxIdx != i {
			results[i], results[maxIdx] = results[maxIdx], results[i]
		}
	}

	return results
}

// searchWithExclusions searches for best move excluding certain moves at the root.
func (e *Engine) searchWithExclusions(pos *board.Position, limits SearchLimits, excluded []board.Move) (board.Move, int, []board.Move, int) {
	e.searcherStop.Store(false)
	e.searcher.Reset()
	e.searcher.SetExcludedMoves(excluded)
	e.searcher.InitSearch(pos.Copy())
	e.tt.NewSearch()

	startTime := time.Now()
	var bestMove board.Move
	var bestScore int
	var bestDepth int

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	for depth := 1; depth <= maxDepth; depth++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		move, score := e.searcher.SearchDepth(depth, -Infinity, Infinity)

		if e.searcherStop.Load() {
			break
		}

		if move != board.NoMove {
			bestMove = move
			bestScore = score
			bestDepth = depth
		}

		if score > MateScore-100 || score < -MateScore+100 {
			break
		}

		if !deadline.IsZero() {
			elapsed := time.Since(startTime)
			remaining := limits.MoveTime - elapsed
			if remaining < elapsed {
				break
			}
		}
	}

	pv := e.searcher.GetPV()
	e.searcher.SetExcludedMoves(nil) // Clear exclusions

	return bestMove, bestScore, pv, bestDepth
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
	e.searcherStop.Store(true)
}

// ResizeTT reallocates the transposition table to sizeMB megabytes. Callers
// must not invoke this while a search is in progress; the engine does not
// serialize against concurrent Search calls itself.
func (e *Engine) ResizeTT(sizeMB int) error {
	if err := e.tt.Resize(sizeMB); err != nil {
		engineLog.Errorf("tt resize to %dMB failed: %v", sizeMB, err)
		return err
	}
	engineLog.Infof("tt resized to %dMB", sizeMB)
	return nil
}

// SetThreads rebuilds the worker pool to n Lazy-SMP workers. Callers must not
// invoke this while a search is in progress, for the same reason as ResizeTT:
// the new workers are wired to the existing transposition table and shared
// history, so in-flight searches reading the old e.workers slice would race
// against the rebuild.
func (e *Engine) SetThreads(n int) error {
	if n <= 0 {
		return xerrors.New(xerrors.KindInput, "engine", "thread count must be positive")
	}
	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		workers[i] = NewWorker(i, e.tt, NewPawnTable(1), e.sharedHistory, &e.stopFlag)
	}
	e.workers = workers
	engineLog.Infof("resized worker pool to %d threads", n)
	return nil
}

// Clear clears the transposition table and other caches.
func (e *Engine) Clear() {
	e.tt.Clear()
	// Clear all worker orderers
	for _, w := range e.workers {
		w.orderer.Clear()
	}
	e.searcher.orderer.Clear()
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return board.Perft(pos, depth)
}

// PerftDivide runs a divide-mode perft, reporting each root move's
// sub-count alongside the total leaf count.
func (e *Engine) PerftDivide(pos *board.Position, depth int) ([]board.DivideEntry, uint64) {
	return board.PerftDivide(pos, depth)
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// LoadNNUE loads NNUE network files.
func (e *Engine) LoadNNUE(bigPath, smallPath string) error {
	engineLog.Infof("loading NNUE networks: big=%s small=%s", bigPath, smallPath)

	nets, err := sfnnue.LoadNetworks(bigPath, smallPath)
	if err != nil {
		engineLog.Errorf("failed to load NNUE networks: %v", err)
		return err
	}
	e.nnueNet = nets

	// Initialize NNUE evaluators for all workers
	for _, w := range e.workers {
		w.initNNUE(nets)
	}

	// Initialize for legacy searcher
	e.searcher.initNNUE(nets)

	engineLog.Infof("NNUE networks loaded successfully")
	return nil
}

// SetUseNNUE enables or disables NNUE evaluation.
func (e *Engine) SetUseNNUE(use bool) {
	e.useNNUE = use
	for _, w := range e.workers {
		w.useNNUE = use
	}
	e.searcher.useNNUE = use

	if use {
		engineLog.Debugf("evaluation mode: NNUE")
	} else {
		engineLog.Debugf("evaluation mode: classical")
	}
}

// SetContempt sets the drawn-score bias (centipawns favoring the engine)
// applied by every worker, per the `contempt` host setting.
func (e *Engine) SetContempt(cp int) {
	for _, w := range e.workers {
		w.SetContempt(cp)
	}
	e.searcher.SetContempt(cp)
}

// SetEvalNoise configures the symmetric eval-noise term on every worker, per
// the `eval_random_margin`/`eval_rand_seed` host settings; margin <= 0
// disables it. Required for Lazy-SMP helper-thread evaluation diversity.
func (e *Engine) SetEvalNoise(margin int, seed uint64) {
	for _, w := range e.workers {
		w.SetEvalNoise(margin, seed)
	}
	e.searcher.SetEvalNoise(margin, seed)
}

// SetSearchMoves restricts root-move selection to the given whitelist, per
// the `search_moves` host setting; an empty slice clears the restriction.
func (e *Engine) SetSearchMoves(moves []board.Move) {
	for _, w := range e.workers {
		w.SetIncludedRootMoves(moves)
	}
	e.searcher.SetIncludedRootMoves(moves)
}

// UseNNUE returns whether NNUE evaluation is enabled.
func (e *Engine) UseNNUE() bool {
	return e.useNNUE
}

// HasNNUE returns whether NNUE networks are loaded.
func (e *Engine) HasNNUE() bool {
	return e.nnueNet != nil
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	return sign + itoa(pawns) + "." + itoa(centipawns)
}

// Simple integer to string (avoid fmt import)
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
