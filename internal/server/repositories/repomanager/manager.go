package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mousetrap/internal/dbx"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/dots"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/networks"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Dots(db dbx.DBTX) dots.Repository
	Networks(db dbx.DBTX) networks.Repository
}
