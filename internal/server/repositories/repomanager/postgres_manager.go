// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/mousetrap/internal/dbx"
	"github.com/dmitrijs2005/mousetrap/internal/server/migrations"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/dots"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/networks"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

// Dots returns a dots.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Dots(db dbx.DBTX) dots.Repository {
	return dots.NewPostgresRepository(db)
}

// Networks returns a networks.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Networks(db dbx.DBTX) networks.Repository {
	return networks.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
