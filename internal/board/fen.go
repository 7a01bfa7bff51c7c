package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}
	pos.updateOccupied()
	pos.findKings()

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	// Parse castling rights (field 2)
	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	// Parse en passant square (field 3)
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		pos.EnPassant = sq
	}

	// Parse half-move clock (field 4, optional)
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		pos.HalfMoveClock = hmc
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	// Update derived state
	pos.updateOccupied()
	pos.findKings()
	pos.Hash = pos.ComputeHash()
	pos.PawnKey = pos.ComputePawnKey()
	pos.UpdateCheckers()
	pos.Pinned = pos.ComputePinned()
	pos.history = []uint64{pos.Hash}

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN starts from rank 8
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}

			if c >= '1' && c <= '8' {
				// Skip empty squares
				file += int(c - '0')
			} else {
				// Place a piece
				piece := PieceFromChar(byte(c))
				if piece == NoPiece {
					return fmt.Errorf("invalid piece character: %c", c)
				}
				sq := NewSquare(file, rank)
				pos.setPiece(piece, sq)
				file++
			}
		}

		if file != 8 {
			return fmt.Errorf("invalid number of squares in rank %d: got %d", rank+1, file)
		}
	}

	return nil
}

// parseCastlingRights parses the castling rights section of a FEN string and
// resolves each side's castle-rook home square. Standard "KQkq" tokens infer
// the rook square as the outermost rook on the back rank relative to the
// king (Stockfish's convention for non-standard start positions given in
// standard notation); Shredder-FEN tokens (a file letter other than k/q)
// name the rook's file directly and mark the position as FRC. A KQkq token
// that resolves to a non-standard rook or king square also marks it as FRC.
func parseCastlingRights(pos *Position, castling string) error {
	pos.RookSquares[White][CastleKingSide] = NoSquare
	pos.RookSquares[White][CastleQueenSide] = NoSquare
	pos.RookSquares[Black][CastleKingSide] = NoSquare
	pos.RookSquares[Black][CastleQueenSide] = NoSquare

	if castling == "-" {
		pos.CastlingRights = NoCastling
		return nil
	}

	for _, c := range castling {
		switch c {
		case 'K':
			pos.CastlingRights |= WhiteKingSideCastle
			pos.RookSquares[White][CastleKingSide] = outermostRook(pos, White, true)
		case 'Q':
			pos.CastlingRights |= WhiteQueenSideCastle
			pos.RookSquares[White][CastleQueenSide] = outermostRook(pos, White, false)
		case 'k':
			pos.CastlingRights |= BlackKingSideCastle
			pos.RookSquares[Black][CastleKingSide] = outermostRook(pos, Black, true)
		case 'q':
			pos.CastlingRights |= BlackQueenSideCastle
			pos.RookSquares[Black][CastleQueenSide] = outermostRook(pos, Black, false)
		case 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H':
			pos.FRC = true
			file := int(c - 'A')
			sq := NewSquare(file, 0)
			king := pos.KingSquare[White]
			if file > king.File() {
				pos.CastlingRights |= WhiteKingSideCastle
				pos.RookSquares[White][CastleKingSide] = sq
			} else {
				pos.CastlingRights |= WhiteQueenSideCastle
				pos.RookSquares[White][CastleQueenSide] = sq
			}
		case 'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h':
			pos.FRC = true
			file := int(c - 'a')
			sq := NewSquare(file, 7)
			king := pos.KingSquare[Black]
			if file > king.File() {
				pos.CastlingRights |= BlackKingSideCastle
				pos.RookSquares[Black][CastleKingSide] = sq
			} else {
				pos.CastlingRights |= BlackQueenSideCastle
				pos.RookSquares[Black][CastleQueenSide] = sq
			}
		default:
			return fmt.Errorf("invalid castling character: %c", c)
		}
	}

	// KQkq tokens that resolve to non-standard king/rook squares are FRC too.
	for c := White; c <= Black; c++ {
		for side := 0; side < 2; side++ {
			if sq := pos.RookSquares[c][side]; sq != NoSquare && (sq.File() != 7-7*side || pos.KingSquare[c].File() != 4) {
				pos.FRC = true
			}
		}
	}

	return nil
}

// outermostRook finds the castle-rook square implied by a standard KQkq
// token: the rook of the given color on its back rank furthest toward the
// named side from the king.
func outermostRook(pos *Position, c Color, kingSide bool) Square {
	rank := 0
	if c == Black {
		rank = 7
	}
	rooks := pos.Pieces[c][Rook] & RankMask[rank]
	king := pos.KingSquare[c]
	best := NoSquare
	for rooks != 0 {
		sq := rooks.PopLSB()
		if kingSide && sq.File() > king.File() {
			if best == NoSquare || sq.File() > best.File() {
				best = sq
			}
		} else if !kingSide && sq.File() < king.File() {
			if best == NoSquare || sq.File() < best.File() {
				best = sq
			}
		}
	}
	return best
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	// Piece placement
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				empty++
			} else {
				if empty > 0 {
					sb.WriteString(strconv.Itoa(empty))
					empty = 0
				}
				sb.WriteString(piece.String())
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	// Side to move
	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	// Castling rights
	sb.WriteByte(' ')
	sb.WriteString(p.castlingFENField())

	// En passant
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	// Half-move clock and full-move number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}

// castlingFENField renders the castling-rights field, using Shredder-style
// rook-file letters when the position was parsed as Fischer-Random.
func (p *Position) castlingFENField() string {
	if !p.FRC {
		return p.CastlingRights.String()
	}
	if p.CastlingRights == NoCastling {
		return "-"
	}
	s := ""
	if p.CastlingRights&WhiteKingSideCastle != 0 {
		s += string(byte('A' + p.RookSquares[White][CastleKingSide].File()))
	}
	if p.CastlingRights&WhiteQueenSideCastle != 0 {
		s += string(byte('A' + p.RookSquares[White][CastleQueenSide].File()))
	}
	if p.CastlingRights&BlackKingSideCastle != 0 {
		s += string(byte('a' + p.RookSquares[Black][CastleKingSide].File()))
	}
	if p.CastlingRights&BlackQueenSideCastle != 0 {
		s += string(byte('a' + p.RookSquares[Black][CastleQueenSide].File()))
	}
	return s
}

// ComputeHash computes the Zobrist hash for the position from scratch.
func (p *Position) ComputeHash() uint64 {
	hash := zobristBase

	// Hash pieces
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				hash ^= zobristPiece[c][pt][sq]
			}
		}
	}

	// Hash side to move
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}

	// Hash castling rights
	hash ^= zobristCastling[p.CastlingRights]

	// Hash en passant
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	return hash
}

// ComputePawnKey computes the pawn hash key from scratch.
// Only includes pawn positions for pawn structure caching.
func (p *Position) ComputePawnKey() uint64 {
	var key uint64

	for c := White; c <= Black; c++ {
		bb := p.Pieces[c][Pawn]
		for bb != 0 {
			sq := bb.PopLSB()
			key ^= zobristPiece[c][Pawn][sq]
		}
	}

	return key
}
