package store

// Schema defines the PostgreSQL database structure. Mirrors the teacher's
// storage/schema.go convention of a single executed-at-startup SQL
// constant, translated from SQLite to PostgreSQL and widened from one
// `games` table to the three-table users/sessions/moves shape spec.md's
// data model calls for.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	icon TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	game_type TEXT NOT NULL,
	game_icon TEXT,
	host_id TEXT NOT NULL REFERENCES users(id),
	host_name TEXT NOT NULL,
	host_icon TEXT,
	guest_id TEXT REFERENCES users(id),
	guest_name TEXT,
	guest_icon TEXT,
	status TEXT NOT NULL DEFAULT 'WAITING',
	current_turn TEXT,
	board JSONB NOT NULL,
	winner TEXT,
	draw BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_host_id ON sessions(host_id);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC);

CREATE TABLE IF NOT EXISTS moves (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	player_id TEXT NOT NULL,
	"row" INTEGER NOT NULL,
	"col" INTEGER NOT NULL,
	move_no INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(session_id, move_no)
);

CREATE INDEX IF NOT EXISTS idx_moves_session_id ON moves(session_id);
`
