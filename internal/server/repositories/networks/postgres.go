// Package networks persists trained model snapshots, one per account.
package networks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the encoded snapshot for accountID or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, accountID int64) (string, error) {
	var s string
	err := r.db.QueryRowContext(ctx, `SELECT snapshot FROM networks WHERE account_id = $1`, accountID).Scan(&s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, accountID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM networks WHERE account_id = $1)`, accountID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Store replaces the snapshot of accountID wholesale.
func (r *PostgresRepository) Store(ctx context.Context, accountID int64, snapshot string) error {
	query := `
		INSERT INTO networks (account_id, snapshot, trained_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, trained_at = EXCLUDED.trained_at
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, snapshot); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, accountID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM networks WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
