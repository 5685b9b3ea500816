package store

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gridgame/internal/model"
)

// encodeBoard marshals a board for storage in the sessions.board JSONB
// column. lib/pq sends the result as a text parameter and Postgres
// infers the jsonb cast from the column type.
func encodeBoard(b model.Board) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("store: encode board: %w", err)
	}
	return string(data), nil
}

func decodeBoard(raw []byte) (model.Board, error) {
	var b model.Board
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("store: decode board: %w", err)
	}
	return b, nil
}

func nullableStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// encodeCursor and decodeCursor implement keyset pagination over
// (created_at, id) descending, matching the ORDER BY ListSessions uses.
func encodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("store: malformed cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("store: malformed cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("store: malformed cursor timestamp: %w", err)
	}
	return createdAt, parts[1], nil
}
