package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults and applies the
// schema.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{Client: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			position TEXT NOT NULL,
			division TEXT NOT NULL DEFAULT '',
			generation INT NOT NULL,
			avatar_url TEXT NOT NULL DEFAULT '',
			date_of_birth TIMESTAMPTZ,
			total_meetings_attended INT NOT NULL DEFAULT 0,
			total_late_meetings_attended INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS meetings (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL DEFAULT 'Ngoprek',
			division TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_meetings (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			meeting_id UUID NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
			late_time_ns BIGINT NOT NULL DEFAULT 0,
			attended_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, meeting_id)
		)`,
		`CREATE TABLE IF NOT EXISTS meeting_schedules (
			id UUID PRIMARY KEY,
			division TEXT NOT NULL,
			day TEXT NOT NULL,
			hour INT NOT NULL,
			minute INT NOT NULL,
			is_just_once BOOLEAN NOT NULL,
			date_end TIMESTAMPTZ,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
