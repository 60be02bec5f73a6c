package install

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresBackend keeps the record in the single-row installation table.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := b.db.QueryRowContext(ctx, `SELECT record FROM installation WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load installation: %w", err)
	}
	return raw, nil
}

func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO installation (id, record, updated_at)
		VALUES (1, $1::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, updated_at = NOW()
	`, string(data))
	if err != nil {
		return fmt.Errorf("save installation: %w", err)
	}
	return nil
}

func (b *PostgresBackend) SaveIfAbsent(ctx context.Context, data []byte) error {
	result, err := b.db.ExecContext(ctx, `
		INSERT INTO installation (id, record, updated_at)
		VALUES (1, $1::jsonb, NOW())
		ON CONFLICT (id) DO NOTHING
	`, string(data))
	if err != nil {
		return fmt.Errorf("create installation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create installation: %w", err)
	}
	if affected == 0 {
		return ErrExists
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM installation WHERE id = 1`); err != nil {
		return fmt.Errorf("delete installation: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}
