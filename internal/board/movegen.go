package board

// GenMask selects which move categories generate_moves should emit.
type GenMask uint8

const (
	GenQuiets GenMask = 1 << iota
	GenCaptures
	GenAll = GenQuiets | GenCaptures
)

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.GenerateMoves(ml, GenAll)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves (may leave king in check).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	p.GenerateMoves(ml, GenAll)
	return ml
}

// GenerateCaptures generates all capture/promotion moves (the move picker's noisy set).
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.GenerateMoves(ml, GenCaptures)
	return p.filterLegalMoves(ml)
}

// GenerateMoves writes pseudo-legal moves whose category is enabled in mask
// into ml. When the side to move is in check, only evasions are produced:
// king moves to non-attacked squares (x-ray occupancy with the king
// removed), blocks along between(king, checker), and captures of the single
// checker; in double-check only king moves are produced. Pinned pieces are
// restricted to the line through the pinner and the king.
func (p *Position) GenerateMoves(ml *MoveList, mask GenMask) {
	if p.Checkers != 0 {
		p.generateEvasions(ml, mask)
		return
	}

	us := p.SideToMove
	pinned := p.Pinned

	if mask&GenCaptures != 0 {
		p.generatePawnCaptures(ml, us, pinned)
	}
	p.generatePawnQuiets(ml, us, pinned, mask)

	p.generatePieceMoves(ml, Knight, us, pinned, mask)
	p.generatePieceMoves(ml, Bishop, us, pinned, mask)
	p.generatePieceMoves(ml, Rook, us, pinned, mask)
	p.generatePieceMoves(ml, Queen, us, pinned, mask)
	p.generateKingMoves(ml, us, mask)

	if mask&GenQuiets != 0 {
		p.generateCastlingMoves(ml, us)
	}
}

// pinRestriction returns the destination bitboard allowed for a pinned piece:
// restricted to the line through the king and the pinner so the piece may
// still slide along the pin without exposing the king.
func pinRestriction(from, ksq Square, pinned Bitboard) Bitboard {
	if pinned&SquareBB(from) == 0 {
		return Universe
	}
	return Line(ksq, from)
}

func (p *Position) generatePieceMoves(ml *MoveList, pt PieceType, us Color, pinned Bitboard, mask GenMask) {
	occupied := p.AllOccupied
	own := p.Occupied[us]
	enemies := p.Occupied[us.Other()]
	ksq := p.KingSquare[us]

	pieces := p.Pieces[us][pt]
	for pieces != 0 {
		from := pieces.PopLSB()
		var attacks Bitboard
		switch pt {
		case Knight:
			attacks = KnightAttacks(from)
		case Bishop:
			attacks = BishopAttacks(from, occupied)
		case Rook:
			attacks = RookAttacks(from, occupied)
		case Queen:
			attacks = QueenAttacks(from, occupied)
		}
		attacks &= ^own
		attacks &= pinRestriction(from, ksq, pinned)

		if mask&GenCaptures != 0 {
			caps := attacks & enemies
			for caps != 0 {
				to := caps.PopLSB()
				ml.Add(NewCapture(from, to, pt, p.PieceAt(to).Type()))
			}
		}
		if mask&GenQuiets != 0 {
			quiets := attacks & ^occupied
			for quiets != 0 {
				to := quiets.PopLSB()
				ml.Add(NewMove(from, to, pt))
			}
		}
	}
}

func (p *Position) generateKingMoves(ml *MoveList, us Color, mask GenMask) {
	from := p.KingSquare[us]
	them := us.Other()
	occNoKing := p.AllOccupied &^ SquareBB(from)
	attacks := KingAttacks(from) & ^p.Occupied[us]

	for attacks != 0 {
		to := attacks.PopLSB()
		if p.AttackersByColor(to, them, occNoKing) != 0 {
			continue
		}
		if !p.IsEmpty(to) {
			if mask&GenCaptures != 0 {
				ml.Add(NewCapture(from, to, King, p.PieceAt(to).Type()))
			}
		} else if mask&GenQuiets != 0 {
			ml.Add(NewMove(from, to, King))
		}
	}
}

// generatePawnQuiets emits pawn pushes: plain single and double pushes under
// GenQuiets, push promotions under GenCaptures (they belong to the noisy set).
func (p *Position) generatePawnQuiets(ml *MoveList, us Color, pinned Bitboard, mask GenMask) {
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	ksq := p.KingSquare[us]

	var push1, push2, promotionRank Bitboard
	var pushDir int
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		promotionRank = Rank1
		pushDir = -8
	}
	if mask&GenQuiets == 0 {
		push1 &= promotionRank
		push2 = 0
	}
	if mask&GenCaptures == 0 {
		push1 &^= promotionRank
	}

	nonPromo := push1 & ^promotionRank
	for nonPromo != 0 {
		to := nonPromo.PopLSB()
		from := Square(int(to) - pushDir)
		if pinRestriction(from, ksq, pinned)&SquareBB(to) == 0 {
			continue
		}
		ml.Add(NewMove(from, to, Pawn))
	}

	for push2 != 0 {
		to := push2.PopLSB()
		from := Square(int(to) - 2*pushDir)
		if pinRestriction(from, ksq, pinned)&SquareBB(to) == 0 {
			continue
		}
		ml.Add(NewDoublePush(from, to, Pawn))
	}

	promoPush := push1 & promotionRank
	for promoPush != 0 {
		to := promoPush.PopLSB()
		from := Square(int(to) - pushDir)
		if pinRestriction(from, ksq, pinned)&SquareBB(to) == 0 {
			continue
		}
		addPromotions(ml, from, to, NoPieceType)
	}
}

func (p *Position) generatePawnCaptures(ml *MoveList, us Color, pinned Bitboard) {
	pawns := p.Pieces[us][Pawn]
	enemies := p.Occupied[us.Other()]
	ksq := p.KingSquare[us]

	var attackL, attackR, promotionRank Bitboard
	var pushDir int
	if us == White {
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	emit := func(bb Bitboard, fromOffset int) {
		for bb != 0 {
			to := bb.PopLSB()
			from := Square(int(to) - fromOffset)
			if pinRestriction(from, ksq, pinned)&SquareBB(to) == 0 {
				continue
			}
			capturedPt := p.PieceAt(to).Type()
			if promotionRank&SquareBB(to) != 0 {
				addPromotions(ml, from, to, capturedPt)
			} else {
				ml.Add(NewCapture(from, to, Pawn, capturedPt))
			}
		}
	}
	emit(attackL, pushDir-1)
	emit(attackR, pushDir+1)

	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			from := epAttackers.PopLSB()
			if pinRestriction(from, ksq, pinned)&epBB == 0 {
				continue
			}
			if p.enPassantRevealsCheck(from, us) {
				continue
			}
			ml.Add(NewEnPassant(from, p.EnPassant))
		}
	}
}

// enPassantRevealsCheck detects the rare case where removing both the
// capturing pawn and the captured pawn from the same rank uncovers a
// horizontal check on the king (the classic en-passant discovered-check pin).
func (p *Position) enPassantRevealsCheck(from Square, us Color) bool {
	them := us.Other()
	ksq := p.KingSquare[us]
	capturedSq := p.EnPassant - 8
	if us == Black {
		capturedSq = p.EnPassant + 8
	}
	if ksq.Rank() != from.Rank() {
		return false
	}
	occ := p.AllOccupied &^ SquareBB(from) &^ SquareBB(capturedSq)
	attackers := RookAttacks(ksq, occ) & (p.Pieces[them][Rook] | p.Pieces[them][Queen])
	return attackers != 0
}

func addPromotions(ml *MoveList, from, to Square, captured PieceType) {
	for _, promo := range [4]PieceType{Queen, Rook, Bishop, Knight} {
		if captured != NoPieceType {
			ml.Add(NewPromotionCapture(from, to, captured, promo))
		} else {
			ml.Add(NewPromotion(from, to, promo))
		}
	}
}

// generateCastlingMoves implements the unified standard/FRC castling rule:
// legal only if the right is set, the castle-rook is not pinned, the king's
// path (inclusive of target) has no opponent-attacked square, and every
// square between king and its target and between the rook and its target
// (excluding the king itself and the castle-rook) is empty.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	for side := 0; side < 2; side++ {
		if !p.CastlingRights.CanCastle(us, side == CastleKingSide) {
			continue
		}
		rookFrom := p.RookSquares[us][side]
		if rookFrom == NoSquare {
			continue
		}
		kingFrom := p.KingSquare[us]
		kingTo := castleKingTarget(us, side)
		rookTo := castleRookTarget(us, side)

		if p.Pinned&SquareBB(rookFrom) != 0 {
			continue
		}

		occNoKingRook := p.AllOccupied &^ SquareBB(kingFrom) &^ SquareBB(rookFrom)
		kingPath := Between(kingFrom, kingTo) | SquareBB(kingTo) | SquareBB(kingFrom)
		rookPath := Between(rookFrom, rookTo) | SquareBB(rookTo)
		mustBeEmpty := (kingPath | rookPath) &^ SquareBB(kingFrom) &^ SquareBB(rookFrom)
		if mustBeEmpty&occNoKingRook != 0 {
			continue
		}

		attacked := false
		sqs := kingPath
		for sqs != 0 {
			sq := sqs.PopLSB()
			if p.AttackersByColor(sq, them, occNoKingRook) != 0 {
				attacked = true
				break
			}
		}
		if attacked {
			continue
		}

		ml.Add(NewCastling(kingFrom, kingTo, rookFrom.File(), side))
	}
}

func castleRookTarget(c Color, side int) Square {
	rank := 0
	if c == Black {
		rank = 7
	}
	if side == CastleKingSide {
		return NewSquare(5, rank) // f-file
	}
	return NewSquare(3, rank) // d-file
}

// generateEvasions implements the check-response pipeline: in double check
// only king moves are legal; otherwise block/capture-of-checker along
// between(king, checker) is added for non-king pieces honoring pins, plus
// king moves to non-attacked squares via x-ray occupancy with the king removed.
func (p *Position) generateEvasions(ml *MoveList, mask GenMask) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	p.generateKingMoves(ml, us, mask)

	if p.Checkers.PopCount() >= 2 {
		return // double check: king moves only
	}

	checkerSq := p.Checkers.LSB()
	target := Between(checkerSq, ksq) | SquareBB(checkerSq)
	pinned := p.Pinned

	// En passant evasion: capturing a checking pawn that just double-pushed.
	if mask&GenCaptures != 0 && p.EnPassant != NoSquare {
		capturedPawnSq := p.EnPassant - 8
		if us == Black {
			capturedPawnSq = p.EnPassant + 8
		}
		if capturedPawnSq == checkerSq {
			pawns := p.Pieces[us][Pawn]
			epBB := SquareBB(p.EnPassant)
			var epAttackers Bitboard
			if us == White {
				epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
			} else {
				epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
			}
			for epAttackers != 0 {
				from := epAttackers.PopLSB()
				if pinRestriction(from, ksq, pinned)&epBB == 0 {
					continue
				}
				if p.enPassantRevealsCheck(from, us) {
					continue
				}
				ml.Add(NewEnPassant(from, p.EnPassant))
			}
		}
	}

	p.generateEvasionPieceMoves(ml, Pawn, us, target, pinned, mask)
	p.generateEvasionPieceMoves(ml, Knight, us, target, pinned, mask)
	p.generateEvasionPieceMoves(ml, Bishop, us, target, pinned, mask)
	p.generateEvasionPieceMoves(ml, Rook, us, target, pinned, mask)
	p.generateEvasionPieceMoves(ml, Queen, us, target, pinned, mask)
	_ = them
}

func (p *Position) generateEvasionPieceMoves(ml *MoveList, pt PieceType, us Color, target, pinned Bitboard, mask GenMask) {
	occupied := p.AllOccupied
	ksq := p.KingSquare[us]
	pieces := p.Pieces[us][pt]

	for pieces != 0 {
		from := pieces.PopLSB()
		var attacks Bitboard
		switch pt {
		case Pawn:
			// Non-capture blocks (pushes) and captures of the checker handled uniformly below.
			attacks = pawnQuietAndCaptureTargets(p, from, us)
		case Knight:
			attacks = KnightAttacks(from)
		case Bishop:
			attacks = BishopAttacks(from, occupied)
		case Rook:
			attacks = RookAttacks(from, occupied)
		case Queen:
			attacks = QueenAttacks(from, occupied)
		}
		attacks &= target
		attacks &= pinRestriction(from, ksq, pinned)

		for attacks != 0 {
			to := attacks.PopLSB()
			capturedPt := p.PieceAt(to).Type()
			promotionRank := Rank8
			if us == Black {
				promotionRank = Rank1
			}
			isPromo := pt == Pawn && promotionRank.IsSet(to)
			switch {
			case isPromo && capturedPt != NoPieceType:
				if mask&GenCaptures != 0 {
					addPromotions(ml, from, to, capturedPt)
				}
			case isPromo:
				if mask&GenCaptures != 0 {
					addPromotions(ml, from, to, NoPieceType)
				}
			case capturedPt != NoPieceType:
				if mask&GenCaptures != 0 {
					ml.Add(NewCapture(from, to, pt, capturedPt))
				}
			case pt == Pawn && abs(int(to)-int(from)) == 16:
				if mask&GenQuiets != 0 {
					ml.Add(NewDoublePush(from, to, pt))
				}
			default:
				if mask&GenQuiets != 0 {
					ml.Add(NewMove(from, to, pt))
				}
			}
		}
	}
}

// pawnQuietAndCaptureTargets returns every square a pawn on `from` could
// move to, ignoring pins/targets (single push, double push, both captures);
// the caller intersects this with the evasion target set.
func pawnQuietAndCaptureTargets(p *Position, from Square, us Color) Bitboard {
	bb := SquareBB(from)
	empty := ^p.AllOccupied
	enemies := p.Occupied[us.Other()]
	var out Bitboard
	if us == White {
		push1 := bb.North() & empty
		out |= push1
		out |= (push1 & Rank3).North() & empty
		out |= (bb.NorthWest() | bb.NorthEast()) & enemies
	} else {
		push1 := bb.South() & empty
		out |= push1
		out |= (push1 & Rank6).South() & empty
		out |= (bb.SouthWest() | bb.SouthEast()) & enemies
	}
	return out
}

// filterLegalMoves performs the explicit legality test named in §4.3's move
// picker contract for non-evasion positions: evasions generated above are
// already legal by construction.
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	if p.Checkers != 0 {
		return ml
	}
	result := NewMoveList()
	for i := 0; i < ml.Len(); i++ {
		if p.IsMoveLegal(ml.Get(i)) {
			result.Add(ml.Get(i))
		}
	}
	return result
}

// IsMoveLegal additionally filters self-check on top of pseudo-legality.
// King moves and castling are already filtered at generation time; every
// other move only needs a pin check, already enforced by the generator, so
// this is a cheap re-validation kept for moves arriving from outside the
// generator (e.g. the hash move).
func (p *Position) IsMoveLegal(m Move) bool {
	if !p.IsMovePseudoLegal(m) {
		return false
	}
	us := p.SideToMove
	them := us.Other()
	from := m.From()
	ksq := p.KingSquare[us]

	if from == ksq {
		if m.IsCastling() {
			return true // already validated during generation
		}
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(m.To(), them, occ) == 0
	}

	if m.IsEnPassant() {
		return !p.enPassantRevealsCheck(from, us) &&
			pinRestriction(from, ksq, p.Pinned)&SquareBB(m.To()) != 0
	}

	if p.Checkers != 0 {
		checkerSq := p.Checkers.LSB()
		if p.Checkers.PopCount() >= 2 {
			return false
		}
		target := Between(checkerSq, ksq) | SquareBB(checkerSq)
		if target&SquareBB(m.To()) == 0 {
			return false
		}
	}

	return pinRestriction(from, ksq, p.Pinned)&SquareBB(m.To()) != 0
}

// PseudoLegal is an alias for IsMovePseudoLegal kept for call sites that
// only need to validate a hash move retrieved from the transposition table.
func (p *Position) PseudoLegal(m Move) bool {
	return p.IsMovePseudoLegal(m)
}

// IsMovePseudoLegal returns true iff a move with that encoding could have
// been produced by the generator for the current position, without the
// legality (self-check) filter.
func (p *Position) IsMovePseudoLegal(m Move) bool {
	if m == NoMove {
		return false
	}
	us := p.SideToMove
	from, to := m.From(), m.To()
	piece := p.PieceAt(from)
	if piece == NoPiece || piece.Color() != us {
		return false
	}
	if piece.Type() != m.SourcePieceType() {
		return false
	}
	if p.Occupied[us]&SquareBB(to) != 0 {
		return false
	}

	switch m.Type() {
	case MoveCastle:
		if piece.Type() != King {
			return false
		}
		side := m.CastlesSide()
		return p.RookSquares[us][side] != NoSquare &&
			p.RookSquares[us][side].File() == m.CastlesRookFile() &&
			p.CastlingRights.CanCastle(us, side == CastleKingSide)
	case MoveEnPassant:
		return piece.Type() == Pawn && to == p.EnPassant && p.EnPassant != NoSquare
	}

	var attacks Bitboard
	occupied := p.AllOccupied
	switch piece.Type() {
	case Pawn:
		return pawnMoveMatches(p, from, to, us, m)
	case Knight:
		attacks = KnightAttacks(from)
	case Bishop:
		attacks = BishopAttacks(from, occupied)
	case Rook:
		attacks = RookAttacks(from, occupied)
	case Queen:
		attacks = QueenAttacks(from, occupied)
	case King:
		attacks = KingAttacks(from)
	}
	return attacks&SquareBB(to) != 0
}

func pawnMoveMatches(p *Position, from, to Square, us Color, m Move) bool {
	targets := pawnQuietAndCaptureTargets(p, from, us)
	return targets&SquareBB(to) != 0
}

// GivesCheck returns true iff making m would leave the opponent king in
// check, without mutating the board.
func (p *Position) GivesCheck(m Move) bool {
	us := p.SideToMove
	them := p.SideToMove.Other()
	ksq := p.KingSquare[them]
	occAfter := (p.AllOccupied &^ SquareBB(m.From())) | SquareBB(m.To())

	if m.IsCastling() {
		rookTo := castleRookTarget(us, m.CastlesSide())
		occ := p.AllOccupied &^ SquareBB(m.From()) &^ SquareBB(p.RookSquares[us][m.CastlesSide()]) | SquareBB(m.To()) | SquareBB(rookTo)
		return RookAttacks(rookTo, occ)&SquareBB(ksq) != 0
	}
	if m.IsEnPassant() {
		occAfter &^= PawnPushes(m.To(), them) // the captured pawn's square
	}
	// Discovered check: another slider of ours sees the king once the move is made.
	if (BishopAttacks(ksq, occAfter)&(p.Pieces[us][Bishop]|p.Pieces[us][Queen])|
		RookAttacks(ksq, occAfter)&(p.Pieces[us][Rook]|p.Pieces[us][Queen]))&^SquareBB(m.From()) != 0 {
		return true
	}

	pt := m.SourcePieceType()
	if m.IsPromotion() {
		pt = m.Promotion()
	}

	switch pt {
	case Pawn:
		return PawnAttacks(m.To(), p.SideToMove)&SquareBB(ksq) != 0
	case Knight:
		return KnightAttacks(m.To())&SquareBB(ksq) != 0
	case Bishop:
		return BishopAttacks(m.To(), occAfter)&SquareBB(ksq) != 0
	case Rook:
		return RookAttacks(m.To(), occAfter)&SquareBB(ksq) != 0
	case Queen:
		return QueenAttacks(m.To(), occAfter)&SquareBB(ksq) != 0
	}
	return false
}

// MakeMove applies a move to the position and returns undo information.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece:  NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		Checkers:       p.Checkers,
		Pinned:         p.Pinned,
		Valid:          false,
	}

	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	piece := p.PieceAt(from)

	if piece == NoPiece {
		return undo
	}
	undo.Valid = true
	pt := piece.Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	if m.IsEnPassant() {
		capturedSq := to - 8
		if us == Black {
			capturedSq = to + 8
		}
		undo.CapturedPiece = p.removePiece(capturedSq)
		p.Hash ^= zobristPiece[them][Pawn][capturedSq]
		p.PawnKey ^= zobristPiece[them][Pawn][capturedSq]
	} else if captured := p.PieceAt(to); captured != NoPiece {
		undo.CapturedPiece = captured
		p.removePiece(to)
		p.Hash ^= zobristPiece[them][captured.Type()][to]
		if captured.Type() == Pawn {
			p.PawnKey ^= zobristPiece[them][Pawn][to]
		}
	}

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[us][pt][from]
	p.Hash ^= zobristPiece[us][pt][to]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[us][Pawn][from]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promoPt] |= SquareBB(to)
		p.Hash ^= zobristPiece[us][Pawn][to]
		p.Hash ^= zobristPiece[us][promoPt][to]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	}

	if m.IsCastling() {
		side := m.CastlesSide()
		rookFrom := p.RookSquares[us][side]
		rookTo := castleRookTarget(us, side)
		p.movePiece(rookFrom, rookTo)
		p.Hash ^= zobristPiece[us][Rook][rookFrom]
		p.Hash ^= zobristPiece[us][Rook][rookTo]
	}

	if pt == King {
		if us == White {
			p.CastlingRights &^= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			p.CastlingRights &^= BlackKingSideCastle | BlackQueenSideCastle
		}
	}
	p.updateCastlingRightsForSquare(from)
	p.updateCastlingRightsForSquare(to)

	p.Hash ^= zobristCastling[p.CastlingRights]

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		epSquare := Square((int(from) + int(to)) / 2)
		p.EnPassant = epSquare
		p.Hash ^= zobristEnPassant[epSquare.File()]
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}

	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.UpdateCheckers()
	p.Pinned = p.ComputePinned()
	p.history = append(p.history, p.Hash)

	return undo
}

// updateCastlingRightsForSquare clears castling rights that depend on a rook
// home square whenever that square is vacated or captured on.
func (p *Position) updateCastlingRightsForSquare(sq Square) {
	for c := White; c <= Black; c++ {
		for side := 0; side < 2; side++ {
			if p.RookSquares[c][side] == sq {
				if side == CastleKingSide {
					if c == White {
						p.CastlingRights &^= WhiteKingSideCastle
					} else {
						p.CastlingRights &^= BlackKingSideCastle
					}
				} else {
					if c == White {
						p.CastlingRights &^= WhiteQueenSideCastle
					} else {
						p.CastlingRights &^= BlackQueenSideCastle
					}
				}
			}
		}
	}
}

// UnmakeMove undoes a move using the stored undo information.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	if len(p.history) > 0 {
		p.history = p.history[:len(p.history)-1]
	}

	them := p.SideToMove
	us := them.Other()
	from := m.From()
	to := m.To()

	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.Pinned = undo.Pinned
	p.SideToMove = us

	if us == Black {
		p.FullMoveNumber--
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][promoPt] &^= SquareBB(to)
		p.Pieces[us][Pawn] |= SquareBB(to)
	}

	p.movePiece(to, from)

	if m.IsCastling() {
		side := m.CastlesSide()
		rookFrom := p.RookSquares[us][side]
		rookTo := castleRookTarget(us, side)
		p.movePiece(rookTo, rookFrom)
	}

	if undo.CapturedPiece != NoPiece {
		if m.IsEnPassant() {
			capturedSq := to - 8
			if us == Black {
				capturedSq = to + 8
			}
			p.setPiece(undo.CapturedPiece, capturedSq)
		} else {
			p.setPiece(undo.CapturedPiece, to)
		}
	}
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	return p.GenerateLegalMoves().Len() > 0
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw returns true if the position is a draw (stalemate, 50-move, insufficient material, repetition).
func (p *Position) IsDraw() bool {
	if p.IsStalemate() {
		return true
	}
	if p.HalfMoveClock >= 100 {
		return true
	}
	if p.IsRepetitionDraw(2) {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wKnights := p.Pieces[White][Knight].PopCount()
	wBishops := p.Pieces[White][Bishop].PopCount()
	bKnights := p.Pieces[Black][Knight].PopCount()
	bBishops := p.Pieces[Black][Bishop].PopCount()

	if wKnights+wBishops+bKnights+bBishops == 0 {
		return true
	}
	if wKnights+wBishops <= 1 && bKnights+bBishops == 0 {
		return true
	}
	if bKnights+bBishops <= 1 && wKnights+wBishops == 0 {
		return true
	}

	return false
}
