package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	postgresSchema = `CREATE TABLE IF NOT EXISTS outbox_kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`
	postgresGet    = `SELECT value FROM outbox_kv WHERE key=$1`
	postgresUpsert = `INSERT INTO outbox_kv (key, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	postgresDelete = `DELETE FROM outbox_kv WHERE key=$1`
)

type PostgresStore struct {
	Db *sql.DB // using database/sql
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{Db: db}
}

// EnsureSchema creates the key-value table when it does not exist yet.
func (p *PostgresStore) EnsureSchema(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "postgresql", "ensure_schema", "")
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	_, err = p.Db.ExecContext(ctx, postgresSchema)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, key string) (value string, found bool, err error) {
	ctx, span := startSpan(ctx, "postgresql", "get", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	err = p.Db.QueryRowContext(ctx, postgresGet, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, key, value string) (err error) {
	ctx, span := startSpan(ctx, "postgresql", "set", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	_, err = p.Db.ExecContext(ctx, postgresUpsert, key, value, time.Now().UTC())
	return err
}

func (p *PostgresStore) Remove(ctx context.Context, key string) (err error) {
	ctx, span := startSpan(ctx, "postgresql", "remove", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	_, err = p.Db.ExecContext(ctx, postgresDelete, key)
	return err
}

func (p *PostgresStore) Close() error {
	return p.Db.Close()
}
