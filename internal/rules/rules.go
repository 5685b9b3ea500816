// Package rules implements the pluggable per-game rule sets that the
// session engine consults for board geometry, move legality, and
// win/draw detection. Every function here is pure and CPU-bound: no I/O,
// safe for concurrent read, initialized once at process start.
package rules

import "gridgame/internal/model"

// Failure enumerates the ways a move can be rejected by ValidateMove.
type Failure int

const (
	// FailureNone means the move is legal.
	FailureNone Failure = iota
	FailureOutOfBounds
	FailureCellOccupied
	FailureIllegalGeometry
)

// Rules is the per-game contract the registry dispatches on.
type Rules interface {
	// InitialBoard returns a fresh, empty board sized for this game.
	InitialBoard() model.Board

	// ValidateMove checks whether player may place at (row, col) given the
	// current board. For connect_four, row is the caller-computed drop
	// row; the rule re-derives and verifies it against col.
	ValidateMove(board model.Board, row, col int, playerID string) Failure

	// CheckWinner reports whether the placement just made at (row, col)
	// completes a win for playerID. Evaluated only in the neighborhood of
	// the placed cell - never a full board scan.
	CheckWinner(board model.Board, row, col int, playerID string) bool

	// CheckDraw reports whether the game is a draw given moveCount
	// accepted moves and no winner.
	CheckDraw(board model.Board, moveCount int) bool

	// Dimensions returns (rows, cols) for this game's board.
	Dimensions() (rows, cols int)
}

var registry = map[model.GameType]Rules{
	model.TicTacToe:   TicTacToe{},
	model.ConnectFour: ConnectFour{},
}

// For resolves game type to its Rules implementation. The caller must
// validate gameType.Valid() first; For panics on an unregistered type so a
// programming error surfaces loudly instead of silently misbehaving.
func For(gameType model.GameType) Rules {
	r, ok := registry[gameType]
	if !ok {
		panic("rules: unregistered game type " + string(gameType))
	}
	return r
}

func emptyBoard(rows, cols int) model.Board {
	b := make(model.Board, rows)
	for r := range b {
		b[r] = make([]*string, cols)
	}
	return b
}
