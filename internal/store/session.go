package store

import (
	"context"
	"database/sql"
	"fmt"

	"gridgame/internal/apperr"
	"gridgame/internal/model"
)

const sessionColumns = `
	id, game_type, game_icon, host_id, host_name, host_icon,
	guest_id, guest_name, guest_icon, status, current_turn,
	board, winner, draw, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting
// scanSession serve GetSession, LockSession, and ListSessions alike.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var sess model.Session
	var gameIcon, hostIcon, guestID, guestName, guestIcon, currentTurn, winner sql.NullString
	var boardRaw []byte

	err := row.Scan(
		&sess.ID, &sess.GameType, &gameIcon,
		&sess.Host.ID, &sess.Host.Name, &hostIcon,
		&guestID, &guestName, &guestIcon,
		&sess.Status, &currentTurn,
		&boardRaw, &winner, &sess.Draw, &sess.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sess.GameIcon = nullableStringPtr(gameIcon)
	sess.Host.Icon = nullableStringPtr(hostIcon)
	sess.CurrentTurn = nullableStringPtr(currentTurn)
	sess.Winner = nullableStringPtr(winner)

	if guestID.Valid {
		sess.Guest = &model.Player{
			ID:   guestID.String,
			Name: guestName.String,
			Icon: nullableStringPtr(guestIcon),
		}
	}

	board, err := decodeBoard(boardRaw)
	if err != nil {
		return nil, err
	}
	sess.Board = board

	return &sess, nil
}

// CreateSession inserts a freshly created WAITING session.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	boardJSON, err := encodeBoard(sess.Board)
	if err != nil {
		return err
	}

	q := `INSERT INTO sessions (` + sessionColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	var guestID, guestName, guestIcon any
	if sess.Guest != nil {
		guestID, guestName, guestIcon = sess.Guest.ID, sess.Guest.Name, sess.Guest.Icon
	}

	_, err = s.db.ExecContext(ctx, q,
		sess.ID, sess.GameType, sess.GameIcon, sess.Host.ID, sess.Host.Name, sess.Host.Icon,
		guestID, guestName, guestIcon, sess.Status, sess.CurrentTurn,
		boardJSON, sess.Winner, sess.Draw, sess.CreatedAt)
	if err != nil {
		return s.markDegraded(apperr.Internal("create session", err))
	}
	return nil
}

// GetSession loads a session without locking it, for the read-only
// query surface.
func (s *Store) GetSession(ctx context.Context, id string) (*model.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	sess, err := scanSession(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound(apperr.CodeNotFoundSession, "session not found")
	}
	if err != nil {
		return nil, s.markDegraded(apperr.Internal("get session", err))
	}
	return sess, nil
}

// SessionTx is the handle for a session's critical section: load,
// validate, mutate, commit, all under one row lock.
type SessionTx interface {
	Session() *model.Session
	UpdateSession(ctx context.Context, sess *model.Session) error
	AppendMove(ctx context.Context, move *model.Move) error
	Commit() error
	Rollback() error
}

type sessionTx struct {
	store   *Store
	tx      *sql.Tx
	session *model.Session
}

// LockSession begins a transaction and takes an exclusive row lock on
// the session via SELECT ... FOR UPDATE. A second request touching the
// same session blocks on this call until the first's SessionTx commits
// or rolls back.
func (s *Store) LockSession(ctx context.Context, id string) (SessionTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.markDegraded(apperr.Internal("begin tx", err))
	}

	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`

	sess, err := scanSession(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, apperr.NotFound(apperr.CodeNotFoundSession, "session not found")
	}
	if err != nil {
		tx.Rollback()
		return nil, s.markDegraded(apperr.Internal("lock session", err))
	}

	return &sessionTx{store: s, tx: tx, session: sess}, nil
}

func (t *sessionTx) Session() *model.Session { return t.session }

func (t *sessionTx) UpdateSession(ctx context.Context, sess *model.Session) error {
	boardJSON, err := encodeBoard(sess.Board)
	if err != nil {
		return err
	}

	const q = `
		UPDATE sessions SET
			guest_id = $2, guest_name = $3, guest_icon = $4,
			status = $5, current_turn = $6, board = $7, winner = $8, draw = $9
		WHERE id = $1`

	var guestID, guestName, guestIcon any
	if sess.Guest != nil {
		guestID, guestName, guestIcon = sess.Guest.ID, sess.Guest.Name, sess.Guest.Icon
	}

	_, err = t.tx.ExecContext(ctx, q, sess.ID, guestID, guestName, guestIcon,
		sess.Status, sess.CurrentTurn, boardJSON, sess.Winner, sess.Draw)
	if err != nil {
		return t.store.markDegraded(apperr.Internal("update session", err))
	}
	t.session = sess
	return nil
}

func (t *sessionTx) AppendMove(ctx context.Context, move *model.Move) error {
	const q = `
		INSERT INTO moves (session_id, player_id, "row", "col", move_no)
		VALUES ($1, $2, $3, $4, (SELECT COALESCE(MAX(move_no), 0) + 1 FROM moves WHERE session_id = $1))
		RETURNING move_no, created_at`

	err := t.tx.QueryRowContext(ctx, q, move.SessionID, move.PlayerID, move.Row, move.Col).
		Scan(&move.MoveNo, &move.CreatedAt)
	if err != nil {
		return t.store.markDegraded(apperr.Internal("append move", err))
	}
	return nil
}

func (t *sessionTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return t.store.markDegraded(apperr.Internal("commit session tx", err))
	}
	return nil
}

func (t *sessionTx) Rollback() error {
	return t.tx.Rollback()
}

// ListMoves returns every accepted move for a session in submission
// order.
func (s *Store) ListMoves(ctx context.Context, sessionID string) ([]model.Move, error) {
	const q = `
		SELECT id, session_id, player_id, "row", "col", move_no, created_at
		FROM moves WHERE session_id = $1 ORDER BY move_no ASC`

	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, s.markDegraded(apperr.Internal("list moves", err))
	}
	defer rows.Close()

	var moves []model.Move
	for rows.Next() {
		var m model.Move
		if err := rows.Scan(&m.ID, &m.SessionID, &m.PlayerID, &m.Row, &m.Col, &m.MoveNo, &m.CreatedAt); err != nil {
			return nil, s.markDegraded(apperr.Internal("scan move", err))
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

// ListSessions returns a cursor-paginated, optionally filtered page of
// sessions ordered newest first.
func (s *Store) ListSessions(ctx context.Context, filter model.SessionFilter) (*model.SessionPage, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		query += " AND status = " + bind(*filter.Status)
	}
	if filter.HostID != nil {
		query += " AND host_id = " + bind(*filter.HostID)
	}
	if filter.Cursor != "" {
		createdAt, id, err := decodeCursor(filter.Cursor)
		if err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidPaging, "invalid cursor")
		}
		query += fmt.Sprintf(" AND (created_at, id) < (%s, %s)", bind(createdAt), bind(id))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + bind(limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.markDegraded(apperr.Internal("list sessions", err))
	}
	defer rows.Close()

	var items []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, s.markDegraded(apperr.Internal("scan session", err))
		}
		items = append(items, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, s.markDegraded(apperr.Internal("list sessions", err))
	}

	page := &model.SessionPage{Items: items}
	if len(items) > limit {
		last := items[limit-1]
		page.Items = items[:limit]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}
