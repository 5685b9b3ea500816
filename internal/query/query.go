// Package query is the read-only Query Surface: GetSession,
// ListSessions, and Leaderboard. These never acquire the session lock -
// per spec, reads outside a move transaction may observe a session at
// any committed state.
package query

import (
	"context"

	"gridgame/internal/model"
)

// Store is the subset of the Session Store the query surface reads
// from, declared consumer-side for testability.
type Store interface {
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListMoves(ctx context.Context, sessionID string) ([]model.Move, error)
	ListSessions(ctx context.Context, filter model.SessionFilter) (*model.SessionPage, error)
	LeaderboardAggregate(ctx context.Context, metric model.LeaderboardMetric, limit int) ([]model.LeaderboardEntry, error)
}

// Surface implements the Query Surface over a Store.
type Surface struct {
	store Store
}

func New(s Store) *Surface {
	return &Surface{store: s}
}

// SessionDetail is the full projection for Get Session: the session
// plus its ordered move history.
type SessionDetail struct {
	Session model.Session
	Moves   []model.Move
}

// GetSession returns the full projection with embedded players, board,
// and ordered moves. Returns a not_found *apperr.Error if absent.
func (q *Surface) GetSession(ctx context.Context, id string) (*SessionDetail, error) {
	sess, err := q.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	moves, err := q.store.ListMoves(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: *sess, Moves: moves}, nil
}

// ListSessions returns a cursor-paginated, optionally status/host
// filtered page of compact session projections.
func (q *Surface) ListSessions(ctx context.Context, filter model.SessionFilter) (*model.SessionPage, error) {
	return q.store.ListSessions(ctx, filter)
}

// Leaderboard ranks players by the requested metric, derived from
// FINISHED sessions.
func (q *Surface) Leaderboard(ctx context.Context, metric model.LeaderboardMetric, limit int) ([]model.LeaderboardEntry, error) {
	if !metric.Valid() {
		metric = model.MetricWinCount
	}
	return q.store.LeaderboardAggregate(ctx, metric, limit)
}
