package store

import (
	"context"
	"database/sql"

	"gridgame/internal/apperr"
	"gridgame/internal/model"
)

// CreateUser inserts a new identity. IDs are generated by the caller
// (google/uuid) so the store stays oblivious to ID generation policy.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	const q = `
		INSERT INTO users (id, name, icon, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, q, u.ID, u.Name, u.Icon, u.CreatedAt)
	if err != nil {
		return s.markDegraded(apperr.Internal("create user", err))
	}
	return nil
}

// GetUser loads a user by id, or a not_found *apperr.Error if it does
// not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, name, icon, created_at FROM users WHERE id = $1`

	var u model.User
	err := s.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Name, &u.Icon, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound(apperr.CodeNotFoundUser, "user not found")
	}
	if err != nil {
		return nil, s.markDegraded(apperr.Internal("get user", err))
	}
	return &u, nil
}
