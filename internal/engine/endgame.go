package engine

import "github.com/hailam/corengine/internal/board"

// endgameKey is a bit-packed material signature: two bits per piece type
// (knight, bishop, rook, queen) for each side, holding a popcount clamped
// to 3; pawns are not part of the key (Probe rejects any position with pawns). Two positions with the same signature have the same piece
// composition modulo count above 3, which is all the known-endgame table
// below ever needs to distinguish.
type endgameKey uint32

func computeEndgameKey(pos *board.Position) endgameKey {
	var key endgameKey
	shift := uint(0)
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Knight; pt <= board.Queen; pt++ {
			count := pos.Pieces[c][pt].PopCount()
			if count > 3 {
				count = 3
			}
			key |= endgameKey(count) << shift
			shift += 2
		}
	}
	return key
}

func packKey(wn, wb, wr, wq, bn, bb, br, bq int) endgameKey {
	clamp := func(n int) endgameKey {
		if n > 3 {
			n = 3
		}
		return endgameKey(n)
	}
	return clamp(wn) | clamp(wb)<<2 | clamp(wr)<<4 | clamp(wq)<<6 |
		clamp(bn)<<8 | clamp(bb)<<10 | clamp(br)<<12 | clamp(bq)<<14
}

// endgameEvaluator implements the known-endgame specializations that a
// plain material+PST evaluation gets wrong: driving a lone king to the
// edge or a mating corner with overwhelming material, and recognizing the
// handful of drawn-unless-technique endings.
type endgameEvaluator struct {
	byKey map[endgameKey]func(pos *board.Position, strong board.Color) int
}

func newEndgameEvaluator() *endgameEvaluator {
	e := &endgameEvaluator{byKey: make(map[endgameKey]func(*board.Position, board.Color) int)}

	e.byKey[packKey(0, 0, 0, 1, 0, 0, 0, 0)] = evalKQvK  // KQvK (white queen)
	e.byKey[packKey(0, 0, 0, 0, 0, 0, 0, 1)] = evalKQvK  // KQvK (black queen)
	e.byKey[packKey(0, 0, 1, 0, 0, 0, 0, 0)] = evalKRvK  // KRvK
	e.byKey[packKey(0, 0, 0, 0, 0, 0, 1, 0)] = evalKRvK  // KRvK
	e.byKey[packKey(1, 1, 0, 0, 0, 0, 0, 0)] = evalKBNvK // KBNvK
	e.byKey[packKey(0, 0, 0, 0, 1, 1, 0, 0)] = evalKBNvK // KBNvK

	e.byKey[packKey(0, 0, 0, 1, 0, 0, 1, 0)] = evalKQvKR // KQvKR (white queen, black rook)
	e.byKey[packKey(0, 0, 1, 0, 0, 0, 0, 1)] = evalKQvKR // KQvKR (black queen, white rook)
	e.byKey[packKey(0, 0, 0, 1, 0, 1, 0, 0)] = evalKQvKB // KQvKB (white queen, black bishop)
	e.byKey[packKey(0, 1, 0, 0, 0, 0, 0, 1)] = evalKQvKB // KQvKB (black queen, white bishop)
	e.byKey[packKey(0, 0, 0, 1, 1, 0, 0, 0)] = evalKQvKN // KQvKN (white queen, black knight)
	e.byKey[packKey(1, 0, 0, 0, 0, 0, 0, 1)] = evalKQvKN // KQvKN (black queen, white knight)
	e.byKey[packKey(0, 0, 1, 0, 1, 0, 0, 0)] = evalKRvKN // KRvKN (white rook, black knight)
	e.byKey[packKey(1, 0, 0, 0, 0, 0, 1, 0)] = evalKRvKN // KRvKN (black rook, white knight)
	e.byKey[packKey(0, 0, 1, 0, 0, 1, 0, 0)] = evalKRvKB // KRvKB (white rook, black bishop)
	e.byKey[packKey(0, 1, 0, 0, 0, 0, 1, 0)] = evalKRvKB // KRvKB (black rook, white bishop)

	return e
}

// Probe returns a known-endgame score (from white's perspective) and true
// if this exact material signature is specialized; the caller falls back to
// the general evaluation otherwise.
func (e *endgameEvaluator) Probe(pos *board.Position) (int, bool) {
	if pos.Pieces[board.White][board.Pawn]|pos.Pieces[board.Black][board.Pawn] != 0 {
		return 0, false
	}
	key := computeEndgameKey(pos)
	fn, ok := e.byKey[key]
	if !ok {
		return 0, false
	}

	strong := board.White
	if pos.Material() < 0 {
		strong = board.Black
	}
	return fn(pos, strong), true
}

// cornerDistanceBonus rewards driving the weak king toward the board edge
// and, for bishop-pair/knight mates, toward the bishop's own-colored
// corner, and rewards the two kings being close together (so the strong
// side can actually deliver mate rather than just confine the king).
func cornerDistanceBonus(weakKing, strongKing board.Square, preferBishopCorners bool, bishopSq board.Square) int {
	wf, wr := weakKing.File(), weakKing.Rank()

	centerDist := manhattanToNearestCorner(wf, wr)
	if preferBishopCorners {
		centerDist = manhattanToBishopCorner(wf, wr, bishopSq)
	}

	kingDist := absInt(int(weakKing.File())-int(strongKing.File())) +
		absInt(int(weakKing.Rank())-int(strongKing.Rank()))

	return (14-centerDist)*10 + (14-kingDist)*4
}

func manhattanToNearestCorner(file, rank int) int {
	corners := [4][2]int{{0, 0}, {0, 7}, {7, 0}, {7, 7}}
	best := 99
	for _, c := range corners {
		d := absInt(file-c[0]) + absInt(rank-c[1])
		if d < best {
			best = d
		}
	}
	return best
}

// manhattanToBishopCorner measures distance to the two corners matching
// the mating bishop's square color, since a lone king can only be mated in
// a corner the bishop controls.
func manhattanToBishopCorner(file, rank int, bishopSq board.Square) int {
	lightSquared := (int(bishopSq.File())+int(bishopSq.Rank()))%2 == 0
	var corners [2][2]int
	if lightSquared {
		corners = [2][2]int{{0, 0}, {7, 7}}
	} else {
		corners = [2][2]int{{0, 7}, {7, 0}}
	}
	best := 99
	for _, c := range corners {
		d := absInt(file-c[0]) + absInt(rank-c[1])
		if d < best {
			best = d
		}
	}
	return best
}

// centerManhattanDistance measures how far sq sits from the nearest of the
// four center squares, the king-confinement metric the queen/rook endings
// below drive the defending king away from (cornering it buys nothing once
// there's no mating-corner piece to exploit; the center is the only square
// set every king must cross to reach any edge).
func centerManhattanDistance(sq board.Square) int {
	df := absInt(int(sq.File()) - 3)
	if d := absInt(int(sq.File()) - 4); d < df {
		df = d
	}
	dr := absInt(int(sq.Rank()) - 3)
	if d := absInt(int(sq.Rank()) - 4); d < dr {
		dr = d
	}
	return df + dr
}

// cornerKingEvaluation rewards pushing the defending king away from the
// center and bringing the two kings together, the generic king-driving term
// behind every major-piece known win below.
func cornerKingEvaluation(pos *board.Position, strong board.Color) int {
	strongKing := pos.KingSquare[strong]
	weakKing := pos.KingSquare[strong.Other()]
	ctDist := centerManhattanDistance(weakKing)
	kingDist := absInt(int(strongKing.File())-int(weakKing.File())) +
		absInt(int(strongKing.Rank())-int(weakKing.Rank()))
	return 8 * (ctDist*ctDist - kingDist)
}

const knownWinScore = 10000

func evalKQvK(pos *board.Position, strong board.Color) int {
	weak := strong.Other()
	score := knownWinScore + cornerDistanceBonus(pos.KingSquare[weak], pos.KingSquare[strong], false, 0)
	if strong == board.Black {
		return -score
	}
	return score
}

func evalKRvK(pos *board.Position, strong board.Color) int {
	weak := strong.Other()
	score := knownWinScore - 500 + cornerDistanceBonus(pos.KingSquare[weak], pos.KingSquare[strong], false, 0)
	if strong == board.Black {
		return -score
	}
	return score
}

func evalKBNvK(pos *board.Position, strong board.Color) int {
	weak := strong.Other()
	bishopSq := pos.Pieces[strong][board.Bishop].LSB()
	score := knownWinScore - 800 + cornerDistanceBonus(pos.KingSquare[weak], pos.KingSquare[strong], true, bishopSq)
	if strong == board.Black {
		return -score
	}
	return score
}

// evalKQvKR is a theoretical win but the trickiest of the major-piece
// endings to convert, so it gets no additive bonus, and a penalty when the
// strong side's queen shares a rank or file with its own king.
func evalKQvKR(pos *board.Position, strong board.Color) int {
	score := knownWinScore + cornerKingEvaluation(pos, strong)
	strongKing := pos.KingSquare[strong]
	if board.RookAttacks(strongKing, 0)&pos.Pieces[strong][board.Queen] != 0 {
		score -= 500
	}
	if strong == board.Black {
		return -score
	}
	return score
}

// evalKQvKB is an easier conversion than KQvKR, hence a bonus over the
// KQvKR score; the same 500 penalty applies when the strong side's queen
// shares a diagonal with its own king.
func evalKQvKB(pos *board.Position, strong board.Color) int {
	score := knownWinScore + cornerKingEvaluation(pos, strong) + 625
	strongKing := pos.KingSquare[strong]
	if board.BishopAttacks(strongKing, 0)&pos.Pieces[strong][board.Queen] != 0 {
		score -= 500
	}
	if strong == board.Black {
		return -score
	}
	return score
}

// evalKQvKN has no pin-style tactic for the defender to lean on, so it
// scores a clean bonus above KQvKB with no penalty term.
func evalKQvKN(pos *board.Position, strong board.Color) int {
	score := knownWinScore + cornerKingEvaluation(pos, strong) + 1250
	if strong == board.Black {
		return -score
	}
	return score
}

// evalKRvKN and evalKRvKB are recognized so the search doesn't waste depth
// re-deriving them from general eval, but rook vs. a single minor is drawish
// without pawns and isn't scored as a known win.
func evalKRvKN(pos *board.Position, strong board.Color) int {
	return 0
}

func evalKRvKB(pos *board.Position, strong board.Color) int {
	return 0
}
