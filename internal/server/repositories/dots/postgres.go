// Package dots provides the PostgreSQL-backed store of motion samples.
package dots

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mousetrap/internal/dbx"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
)

// rowsPerStatement keeps multi-row inserts well below the Postgres bind
// parameter limit.
const rowsPerStatement = 1000

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertBatch appends dots for accountID using multi-row inserts. Run it
// inside a transaction to make the whole batch atomic.
func (r *PostgresRepository) InsertBatch(ctx context.Context, accountID int64, dots []motion.Dot) error {
	for len(dots) > 0 {
		n := min(rowsPerStatement, len(dots))
		query, args := insertStatement(accountID, dots[:n])
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		dots = dots[n:]
	}
	return nil
}

func insertStatement(accountID int64, dots []motion.Dot) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO dots (account_id, x, y, v) VALUES ")

	args := make([]any, 0, len(dots)*4)
	for i, d := range dots {
		if i > 0 {
			b.WriteString(", ")
		}
		p := i * 4
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d)", p+1, p+2, p+3, p+4)
		args = append(args, accountID, d.X, d.Y, d.V)
	}
	return b.String(), args
}

func (r *PostgresRepository) Count(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dots WHERE account_id = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func scanDots(rows *sql.Rows) ([]motion.Dot, error) {
	defer rows.Close()

	var out []motion.Dot
	for rows.Next() {
		var d motion.Dot
		if err := rows.Scan(&d.X, &d.Y, &d.V); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Load returns every sample of accountID in insertion order.
func (r *PostgresRepository) Load(ctx context.Context, accountID int64) ([]motion.Dot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT x, y, v FROM dots WHERE account_id = $1 ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanDots(rows)
}

// LoadOthers returns up to limit samples belonging to other non-admin accounts.
func (r *PostgresRepository) LoadOthers(ctx context.Context, accountID int64, limit int) ([]motion.Dot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT x, y, v FROM dots WHERE account_id <> $1 AND account_id <> 0 ORDER BY id LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanDots(rows)
}

// MaxSpeed returns the highest recorded speed for accountID, 0 when there are
// no samples.
func (r *PostgresRepository) MaxSpeed(ctx context.Context, accountID int64) (float64, error) {
	var v sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(v) FROM dots WHERE account_id = $1`, accountID).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return v.Float64, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, accountID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dots WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
