package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medshare/pkg/platform/sentinel"
)

// Schema creates the ledger tables. History tables are append-only; purge is
// the only operation that deletes from them.
const Schema = `
CREATE TABLE IF NOT EXISTS private_state (
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BYTEA NOT NULL,
	PRIMARY KEY (collection, key)
);

CREATE TABLE IF NOT EXISTS private_state_history (
	id         BIGSERIAL PRIMARY KEY,
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BYTEA NOT NULL,
	written_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS public_state (
	key   TEXT PRIMARY KEY,
	value BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS public_state_history (
	id         BIGSERIAL PRIMARY KEY,
	key        TEXT NOT NULL,
	value      BYTEA NOT NULL,
	written_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_public_state_history_key ON public_state_history (key, id);
CREATE INDEX IF NOT EXISTS idx_private_state_history_key ON private_state_history (collection, key, id);
`

// EnsureSchema applies the ledger schema. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

// PostgresLedger persists the record store in PostgreSQL. Writes to a key and
// its history run in one transaction so a committed value is always visible
// in HistoryForKey.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) GetPrivate(ctx context.Context, collection, key string) ([]byte, error) {
	var value []byte
	err := l.db.QueryRowContext(ctx,
		`SELECT value FROM private_state WHERE collection = $1 AND key = $2`,
		collection, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get private: %w", sentinel.ErrUnavailable, err)
	}
	return value, nil
}

func (l *PostgresLedger) PutPrivate(ctx context.Context, collection, key string, value []byte) error {
	return l.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO private_state (collection, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (collection, key) DO UPDATE SET value = EXCLUDED.value`,
			collection, key, value); err != nil {
			return fmt.Errorf("put private: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO private_state_history (collection, key, value) VALUES ($1, $2, $3)`,
			collection, key, value); err != nil {
			return fmt.Errorf("put private history: %w", err)
		}
		return nil
	})
}

func (l *PostgresLedger) DelPrivate(ctx context.Context, collection, key string) error {
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM private_state WHERE collection = $1 AND key = $2`,
		collection, key); err != nil {
		return fmt.Errorf("%w: del private: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (l *PostgresLedger) PurgePrivate(ctx context.Context, collection, key string) error {
	return l.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM private_state WHERE collection = $1 AND key = $2`,
			collection, key); err != nil {
			return fmt.Errorf("purge private: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM private_state_history WHERE collection = $1 AND key = $2`,
			collection, key); err != nil {
			return fmt.Errorf("purge private history: %w", err)
		}
		return nil
	})
}

func (l *PostgresLedger) PrivateByRange(ctx context.Context, collection, start, end string) ([]KV, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT key, value FROM private_state
		 WHERE collection = $1 AND key >= $2 AND ($3 = '' OR key < $3)
		 ORDER BY key`,
		collection, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: range query: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []KV
	for rows.Next() {
		var kv KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, fmt.Errorf("scan range row: %w", err)
		}
		out = append(out, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: range query rows: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (l *PostgresLedger) PrivateQuery(ctx context.Context, collection string, sel Selector) ([]KV, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT key, value FROM private_state
		 WHERE collection = $1 AND convert_from(value, 'UTF8')::jsonb ->> $2 = $3
		 ORDER BY key`,
		collection, sel.Field, sel.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: rich query: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []KV
	for rows.Next() {
		var kv KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, fmt.Errorf("scan rich query row: %w", err)
		}
		out = append(out, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rich query rows: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (l *PostgresLedger) PutState(ctx context.Context, key string, value []byte) error {
	return l.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO public_state (key, value) VALUES ($1, $2)
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			key, value); err != nil {
			return fmt.Errorf("put state: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO public_state_history (key, value) VALUES ($1, $2)`,
			key, value); err != nil {
			return fmt.Errorf("put state history: %w", err)
		}
		return nil
	})
}

func (l *PostgresLedger) GetState(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := l.db.QueryRowContext(ctx,
		`SELECT value FROM public_state WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get state: %w", sentinel.ErrUnavailable, err)
	}
	return value, nil
}

func (l *PostgresLedger) HistoryForKey(ctx context.Context, key string) ([][]byte, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT value FROM public_state_history WHERE key = $1 ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: history rows: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (l *PostgresLedger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", sentinel.ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
