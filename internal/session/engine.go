// Package session implements the Session Engine: the WAITING -> ACTIVE
// -> FINISHED state machine for Create Session, Join Session, and
// Submit Move. Every mutation runs under the store's row lock so the
// critical section (load, validate, mutate, commit) is serialized per
// session, never across sessions.
package session

import (
	"context"
	"time"

	"gridgame/internal/apperr"
	"gridgame/internal/model"
	"gridgame/internal/rules"
	"gridgame/internal/store"
)

// Store is the subset of the Session Store the engine depends on,
// declared here (consumer side) so tests can substitute a fake without
// a database.
type Store interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	CreateSession(ctx context.Context, sess *model.Session) error
	LockSession(ctx context.Context, id string) (store.SessionTx, error)
}

// IDGenerator mints opaque ids for new entities. Swappable in tests;
// backed by google/uuid in production.
type IDGenerator func() string

// Clock returns the current time. Swappable in tests.
type Clock func() time.Time

// Engine wraps a Store and the rules registry to implement the session
// lifecycle. Mirrors the teacher's Service+Processor split, collapsed
// into one type since the state machine here, not a search algorithm,
// is the bulk of the logic.
type Engine struct {
	store Store
	newID IDGenerator
	now   Clock
}

func New(s Store, newID IDGenerator, now Clock) *Engine {
	return &Engine{store: s, newID: newID, now: now}
}

// CreateSessionInput carries the validated request facade fields for
// 4.C.1.
type CreateSessionInput struct {
	HostID   string
	HostName *string
	HostIcon *string
	GameIcon *string
	GameType model.GameType
}

// CreateSession verifies the host exists, builds an empty board for
// the requested game type, and persists a new WAITING session.
func (e *Engine) CreateSession(ctx context.Context, in CreateSessionInput) (*model.Session, error) {
	gameType := in.GameType
	if gameType == "" {
		gameType = model.TicTacToe
	}
	if !gameType.Valid() {
		return nil, apperr.Validation(apperr.CodeUnknownGameType, "unknown game_type")
	}

	host, err := e.store.GetUser(ctx, in.HostID)
	if err != nil {
		return nil, err
	}

	hostPlayer := model.Player{ID: host.ID, Name: host.Name, Icon: host.Icon}
	if in.HostName != nil {
		hostPlayer.Name = *in.HostName
	}
	if in.HostIcon != nil {
		hostPlayer.Icon = in.HostIcon
	}

	sess := &model.Session{
		ID:        e.newID(),
		GameType:  gameType,
		GameIcon:  in.GameIcon,
		Host:      hostPlayer,
		Status:    model.StatusWaiting,
		Board:     rules.For(gameType).InitialBoard(),
		CreatedAt: e.now(),
	}

	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// JoinSession implements 4.C.2. Once the session has left WAITING,
// re-joining as the host or current guest is an idempotent success and
// joining by anyone else is a conflict. The host joining its own WAITING
// session is a conflict too.
func (e *Engine) JoinSession(ctx context.Context, sessionID, playerID string) (*model.Session, error) {
	tx, err := e.store.LockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sess := tx.Session()

	if sess.Status != model.StatusWaiting {
		if sess.HasPlayer(playerID) {
			return sess, nil
		}
		if sess.Status == model.StatusFinished {
			return nil, apperr.Conflict(apperr.CodeAlreadyFinished, "session already finished")
		}
		return nil, apperr.Conflict(apperr.CodeAlreadyFull, "session already has a guest")
	}

	if playerID == sess.Host.ID {
		return nil, apperr.Conflict(apperr.CodeCannotJoinOwnSession, "host cannot join their own session as guest")
	}

	guest, err := e.store.GetUser(ctx, playerID)
	if err != nil {
		return nil, err
	}

	sess.Guest = &model.Player{ID: guest.ID, Name: guest.Name, Icon: guest.Icon}
	sess.Status = model.StatusActive
	hostID := sess.Host.ID
	sess.CurrentTurn = &hostID

	if err := tx.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sess, nil
}

// SubmitMove implements 4.C.3: validates turn order and move legality,
// mutates the board, appends the move, and evaluates win/draw.
func (e *Engine) SubmitMove(ctx context.Context, sessionID, playerID string, row, col int) (*model.Session, error) {
	tx, err := e.store.LockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sess := tx.Session()

	switch sess.Status {
	case model.StatusWaiting:
		return nil, apperr.Conflict(apperr.CodeNotActive, "session is not active")
	case model.StatusFinished:
		return nil, apperr.Conflict(apperr.CodeAlreadyFinished, "session already finished")
	}

	if !sess.HasPlayer(playerID) {
		return nil, apperr.Validation(apperr.CodeNotInSession, "player is not part of this session")
	}
	if sess.CurrentTurn == nil || *sess.CurrentTurn != playerID {
		return nil, apperr.Conflict(apperr.CodeNotYourTurn, "it is not this player's turn")
	}

	r := rules.For(sess.GameType)
	switch r.ValidateMove(sess.Board, row, col, playerID) {
	case rules.FailureOutOfBounds:
		return nil, apperr.Validation(apperr.CodeInvalidCoordinates, "move is out of bounds")
	case rules.FailureCellOccupied, rules.FailureIllegalGeometry:
		return nil, apperr.Conflict(apperr.CodeCellOccupied, "cell is occupied or move is not legal")
	}

	sess.Board[row][col] = &playerID

	move := &model.Move{SessionID: sess.ID, PlayerID: playerID, Row: row, Col: col}
	if err := tx.AppendMove(ctx, move); err != nil {
		return nil, err
	}
	moveNo := move.MoveNo

	switch {
	case r.CheckWinner(sess.Board, row, col, playerID):
		winner := playerID
		sess.Winner = &winner
		sess.Status = model.StatusFinished
		sess.CurrentTurn = nil
	case r.CheckDraw(sess.Board, moveNo):
		sess.Draw = true
		sess.Status = model.StatusFinished
		sess.CurrentTurn = nil
	default:
		other := sess.OtherPlayer(playerID)
		if other != nil {
			otherID := other.ID
			sess.CurrentTurn = &otherID
		}
	}

	if err := tx.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sess, nil
}
