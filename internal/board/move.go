package board

import "fmt"

// Move encodes a chess move in 32 bits:
// bits 0-5:   source square (0-63)
// bits 6-11:  destination square (0-63)
// bits 12-15: source piece type (NoPieceType..King, one extra bit of headroom)
// bits 16-19: captured piece type (NoPieceType if none)
// bits 20-22: move type
// bits 23-25: promotion piece type (valid only for promotion variants)
// bits 26-28: castles rook file (valid only for castling variant)
// bit  29:    castles side (0=king-side, 1=queen-side)
type Move uint32

// MoveType enumerates the move variants named in the data model.
type MoveType uint8

const (
	MoveNormal MoveType = iota
	MoveDoublePush
	MoveCapture
	MoveEnPassant
	MoveCastle
	MovePromotion
	MovePromotionCapture
)

const (
	shiftFrom     = 0
	shiftTo       = 6
	shiftSrcPiece = 12
	shiftCapPiece = 16
	shiftType     = 20
	shiftPromo    = 23
	shiftRookFile = 26
	shiftCastleSide = 29

	maskSquare = 0x3F
	maskPiece  = 0xF
	maskType   = 0x7
	maskFile   = 0x7
)

// NoMove represents the null move (value 0, per the data model).
const NoMove Move = 0

// CastleKingSide / CastleQueenSide identify the castling side bit.
const (
	CastleKingSide  = 0
	CastleQueenSide = 1
)

// moveFields bundles every packed component; used by the constructors below
// so each call site (the move generator) can build a move from state it
// already has on hand at generation time.
type moveFields struct {
	From, To       Square
	SourcePiece    PieceType
	CapturedPiece  PieceType
	Type           MoveType
	Promotion      PieceType
	RookFile       int
	CastleSide     int
}

func makeMove(f moveFields) Move {
	m := Move(f.From)<<shiftFrom |
		Move(f.To)<<shiftTo |
		Move(f.SourcePiece)<<shiftSrcPiece |
		Move(f.CapturedPiece)<<shiftCapPiece |
		Move(f.Type)<<shiftType |
		Move(f.Promotion)<<shiftPromo |
		Move(f.RookFile)<<shiftRookFile |
		Move(f.CastleSide)<<shiftCastleSide
	return m
}

// NewMove creates a quiet (non-capture, non-special) move.
func NewMove(from, to Square, srcPiece PieceType) Move {
	return makeMove(moveFields{From: from, To: to, SourcePiece: srcPiece, CapturedPiece: NoPieceType, Type: MoveNormal})
}

// NewDoublePush creates a pawn double-push move.
func NewDoublePush(from, to Square, srcPiece PieceType) Move {
	return makeMove(moveFields{From: from, To: to, SourcePiece: srcPiece, CapturedPiece: NoPieceType, Type: MoveDoublePush})
}

// NewCapture creates a simple-capture move.
func NewCapture(from, to Square, srcPiece, capturedPiece PieceType) Move {
	return makeMove(moveFields{From: from, To: to, SourcePiece: srcPiece, CapturedPiece: capturedPiece, Type: MoveCapture})
}

// NewPromotion creates a simple-promotion move (no capture).
func NewPromotion(from, to Square, promo PieceType) Move {
	return makeMove(moveFields{From: from, To: to, SourcePiece: Pawn, CapturedPiece: NoPieceType, Type: MovePromotion, Promotion: promo})
}

// NewPromotionCapture creates a promotion-capture move.
func NewPromotionCapture(from, to Square, capturedPiece, promo PieceType) Move {
	return makeMove(moveFields{From: from, To: to, SourcePiece: Pawn, CapturedPiece: capturedPiece, Type: MovePromotionCapture, Promotion: promo})
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return makeMove(moveFields{From: from, To: to, SourcePiece: Pawn, CapturedPiece: Pawn, Type: MoveEnPassant})
}

// NewCastling creates a castling move. rookFile is the castle-rook's source
// file (read from the board, not hard-coded, so Fischer-Random positions
// resolve to their own rook squares).
func NewCastling(from, to Square, rookFile, side int) Move {
	return makeMove(moveFields{From: from, To: to, SourcePiece: King, CapturedPiece: NoPieceType, Type: MoveCastle, RookFile: rookFile, CastleSide: side})
}

// From returns the origin square.
func (m Move) From() Square {
	return Square((m >> shiftFrom) & maskSquare)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> shiftTo) & maskSquare)
}

// SourcePieceType returns the moving piece's type as recorded at generation time.
func (m Move) SourcePieceType() PieceType {
	return PieceType((m >> shiftSrcPiece) & maskPiece)
}

// CapturedPieceType returns the captured piece's type, or NoPieceType if none.
func (m Move) CapturedPieceType() PieceType {
	return PieceType((m >> shiftCapPiece) & maskPiece)
}

// Type returns the move variant.
func (m Move) Type() MoveType {
	return MoveType((m >> shiftType) & maskType)
}

// Promotion returns the promotion piece type (only meaningful for promotion variants).
func (m Move) Promotion() PieceType {
	return PieceType((m >> shiftPromo) & maskPiece)
}

// CastlesRookFile returns the castle-rook's source file (only meaningful for castling moves).
func (m Move) CastlesRookFile() int {
	return int((m >> shiftRookFile) & maskFile)
}

// CastlesSide returns CastleKingSide or CastleQueenSide (only meaningful for castling moves).
func (m Move) CastlesSide() int {
	return int((m >> shiftCastleSide) & 1)
}

// IsPromotion returns true if this move promotes a pawn.
func (m Move) IsPromotion() bool {
	t := m.Type()
	return t == MovePromotion || t == MovePromotionCapture
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m.Type() == MoveCastle
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Type() == MoveEnPassant
}

// IsCapture returns true if this move captures a piece (including en passant and promotion-captures).
func (m Move) IsCapture(pos *Position) bool {
	_ = pos
	t := m.Type()
	return t == MoveCapture || t == MoveEnPassant || t == MovePromotionCapture
}

// IsQuiet returns true if this is not a capture or promotion.
func (m Move) IsQuiet(pos *Position) bool {
	return !m.IsCapture(pos) && !m.IsPromotion()
}

// IsDoublePush returns true if this move is a pawn double push.
func (m Move) IsDoublePush() bool {
	return m.Type() == MoveDoublePush
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q"). Castling
// prints the king's own from and destination squares ("e1g1"), FRC included.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if m.IsPromotion() {
		promoChars := []byte{0, 'n', 'b', 'r', 'q'}
		promo := m.Promotion()
		if promo >= Knight && promo <= Queen {
			s += string(promoChars[promo-Knight+1])
		}
	}

	return s
}

// ParseMove parses a long-algebraic UCI move string against the current position.
// FRC king-side/queen-side castling notation (e1h1, e1a1-style rook-destination
// squares) is resolved via the board's own rook_sq table.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}
	pt := piece.Type()
	us := piece.Color()

	capturedAt := func(sq Square) PieceType {
		if cp := pos.PieceAt(sq); cp != NoPiece {
			return cp.Type()
		}
		return NoPieceType
	}

	// Castling: UCI may use king-destination (e1g1) or, under FRC, the
	// rook-destination convention (e1h1); both resolve against rook_sq.
	if pt == King {
		for side := 0; side < 2; side++ {
			rookSq := pos.RookSquares[us][side]
			if rookSq == NoSquare {
				continue
			}
			kingTarget := castleKingTarget(us, side)
			if to == kingTarget || to == rookSq {
				return NewCastling(from, kingTarget, rookSq.File(), side), nil
			}
		}
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		if cap := capturedAt(to); cap != NoPieceType {
			return NewPromotionCapture(from, to, cap, promo), nil
		}
		return NewPromotion(from, to, promo), nil
	}

	if pt == Pawn && to == pos.EnPassant && pos.EnPassant != NoSquare {
		return NewEnPassant(from, to), nil
	}

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		return NewDoublePush(from, to, pt), nil
	}

	if cap := capturedAt(to); cap != NoPieceType {
		return NewCapture(from, to, pt, cap), nil
	}

	return NewMove(from, to, pt), nil
}

// castleKingTarget returns the king's destination square for castling on the
// given side, which is fixed regardless of FRC home squares.
func castleKingTarget(c Color, side int) Square {
	rank := 0
	if c == Black {
		rank = 7
	}
	if side == CastleKingSide {
		return NewSquare(6, rank) // g-file
	}
	return NewSquare(2, rank) // c-file
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo stores information needed to undo a move.
type UndoInfo struct {
	CapturedPiece  Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	Checkers       Bitboard
	Pinned         Bitboard
	KingSquare     [2]Square
	Pieces         [2][6]Bitboard
	Occupied       [2]Bitboard
	AllOccupied    Bitboard
	Valid          bool
}
