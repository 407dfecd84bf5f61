// Package services contains server-side business logic on top of the
// repositories: the persistence adapter (Store), account management, and
// motion/model access used by the protocol handler.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/dbx"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/server/models"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/repomanager"
)

// Store is the persistence adapter. It composes the account, dot and network
// repositories and runs multi-statement operations in one transaction.
type Store struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewStore constructs a Store over db.
func NewStore(db *sql.DB, m repomanager.RepositoryManager) *Store {
	return &Store{db: db, repomanager: m}
}

// InsertAccount creates an account with the next free id.
func (s *Store) InsertAccount(ctx context.Context, userName, passwordHash, email string) (int64, error) {
	a, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		UserName:     userName,
		PasswordHash: passwordHash,
		Email:        email,
	})
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

// InsertAccountWithID creates an account with a fixed id unless it exists.
func (s *Store) InsertAccountWithID(ctx context.Context, a *models.Account) (bool, error) {
	return s.repomanager.Accounts(s.db).CreateWithID(ctx, a)
}

func (s *Store) GetAccountIDByUserName(ctx context.Context, userName string) (int64, error) {
	return s.repomanager.Accounts(s.db).GetIDByUserName(ctx, userName)
}

func (s *Store) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	return s.repomanager.Accounts(s.db).GetPasswordHash(ctx, id)
}

func (s *Store) GetEmail(ctx context.Context, id int64) (string, error) {
	return s.repomanager.Accounts(s.db).GetEmail(ctx, id)
}

// AccountExists reports whether id is a registered account.
func (s *Store) AccountExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.GetEmail(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

// DeleteAccount removes the account with its samples and model atomically.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Dots(tx).DeleteAll(ctx, id); err != nil {
			return fmt.Errorf("error deleting samples: %w", err)
		}
		if err := s.repomanager.Networks(tx).Delete(ctx, id); err != nil {
			return fmt.Errorf("error deleting model: %w", err)
		}
		return s.repomanager.Accounts(tx).Delete(ctx, id)
	})
}

func (s *Store) ListUserNames(ctx context.Context) ([]string, error) {
	return s.repomanager.Accounts(s.db).ListUserNames(ctx)
}

// ListAccountIDs returns all non-admin account ids.
func (s *Store) ListAccountIDs(ctx context.Context) ([]int64, error) {
	return s.repomanager.Accounts(s.db).ListIDs(ctx)
}

// InsertDots appends a whole batch in one transaction.
func (s *Store) InsertDots(ctx context.Context, id int64, dots []motion.Dot) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Dots(tx).InsertBatch(ctx, id, dots)
	})
}

func (s *Store) CountDots(ctx context.Context, id int64) (int, error) {
	return s.repomanager.Dots(s.db).Count(ctx, id)
}

func (s *Store) LoadDots(ctx context.Context, id int64) ([]motion.Dot, error) {
	return s.repomanager.Dots(s.db).Load(ctx, id)
}

// LoadOtherAccountsDots returns up to limit samples of every other user.
func (s *Store) LoadOtherAccountsDots(ctx context.Context, id int64, limit int) ([]motion.Dot, error) {
	return s.repomanager.Dots(s.db).LoadOthers(ctx, id, limit)
}

func (s *Store) MaxSpeed(ctx context.Context, id int64) (float64, error) {
	return s.repomanager.Dots(s.db).MaxSpeed(ctx, id)
}

// LoadNetwork returns the encoded model of id or common.ErrorNotFound.
func (s *Store) LoadNetwork(ctx context.Context, id int64) (string, error) {
	return s.repomanager.Networks(s.db).Get(ctx, id)
}

func (s *Store) HasNetwork(ctx context.Context, id int64) (bool, error) {
	return s.repomanager.Networks(s.db).Exists(ctx, id)
}

// StoreNetwork replaces the model of id.
func (s *Store) StoreNetwork(ctx context.Context, id int64, snapshot string) error {
	return s.repomanager.Networks(s.db).Store(ctx, id, snapshot)
}
