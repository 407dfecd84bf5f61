// Package accounts provides the PostgreSQL-backed account repository.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/dbx"
	"github.com/dmitrijs2005/mousetrap/internal/server/models"
)

const (
	uniqueViolation = "23505"
	primaryKey      = "accounts_pkey"

	// createAttempts bounds retries when concurrent inserts pick the same id.
	createAttempts = 3
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func wrap(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrorAlreadyExist
	}
	return fmt.Errorf("db error: %w", err)
}

// idTaken reports whether err is a primary key collision, i.e. another
// insert computed the same MAX(id)+1 first.
func idTaken(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == primaryKey
}

// Create inserts account with the next free id (MAX(id)+1, at least 1).
// Id collisions with a concurrent insert are retried; a taken user name
// yields common.ErrorAlreadyExist.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, username, password_hash, email)
		 SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3 FROM accounts
		 RETURNING id
		 `

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		err = r.db.QueryRowContext(ctx, query,
			account.UserName, account.PasswordHash, account.Email).Scan(&account.ID)
		if err == nil {
			return account, nil
		}
		if !idTaken(err) {
			break
		}
	}

	return nil, wrap(err)
}

// CreateWithID inserts account keeping its id. It reports false when a row
// with that id already exists.
func (r *PostgresRepository) CreateWithID(ctx context.Context, account *models.Account) (bool, error) {
	query :=
		`INSERT INTO accounts (id, username, password_hash, email)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		account.ID, account.UserName, account.PasswordHash, account.Email)
	if err != nil {
		return false, wrap(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) GetIDByUserName(ctx context.Context, userName string) (int64, error) {
	query := `SELECT id FROM accounts WHERE username = $1`

	var id int64
	err := r.db.QueryRowContext(ctx, query, userName).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) getString(ctx context.Context, query string, id int64) (string, error) {
	var s string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	return r.getString(ctx, `SELECT password_hash FROM accounts WHERE id = $1`, id)
}

func (r *PostgresRepository) GetEmail(ctx context.Context, id int64) (string, error) {
	return r.getString(ctx, `SELECT email FROM accounts WHERE id = $1`, id)
}

// Delete removes the account row. Dependent rows go with it through the
// foreign keys; callers that need explicit ordering delete them first.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListUserNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT username FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return names, nil
}

// ListIDs returns the ids of all non-admin accounts.
func (r *PostgresRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM accounts WHERE id <> 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}
