package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/cryptox"
	"github.com/dmitrijs2005/mousetrap/internal/protocol"
	"github.com/dmitrijs2005/mousetrap/internal/server/models"
)

// AccountStore is the part of Store the account service needs.
type AccountStore interface {
	InsertAccount(ctx context.Context, userName, passwordHash, email string) (int64, error)
	InsertAccountWithID(ctx context.Context, a *models.Account) (bool, error)
	GetAccountIDByUserName(ctx context.Context, userName string) (int64, error)
	GetPasswordHash(ctx context.Context, id int64) (string, error)
	DeleteAccount(ctx context.Context, id int64) error
	ListUserNames(ctx context.Context) ([]string, error)
}

// AccountService handles registration, login and administration.
type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

// Register validates the fields, hashes the password and creates the
// account. A taken user name yields common.ErrorAlreadyExist.
func (s *AccountService) Register(ctx context.Context, userName, password, email string) (int64, error) {
	if err := protocol.ValidateRegistration(userName, password, email); err != nil {
		return 0, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("error hashing password: %w", err)
	}

	id, err := s.store.InsertAccount(ctx, userName, hash, email)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExist) {
			return 0, err
		}
		return 0, fmt.Errorf("error creating account: %w", err)
	}
	return id, nil
}

// Login checks the credentials and returns the account id. Unknown users and
// wrong passwords both yield common.ErrorUnauthorized.
func (s *AccountService) Login(ctx context.Context, userName, password string) (int64, error) {
	id, err := s.store.GetAccountIDByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrorUnauthorized
		}
		return 0, common.ErrorInternal
	}

	hash, err := s.store.GetPasswordHash(ctx, id)
	if err != nil {
		return 0, common.ErrorInternal
	}
	if !cryptox.CheckPassword(hash, password) {
		return 0, common.ErrorUnauthorized
	}
	return id, nil
}

// Delete removes a non-admin account by name. The administrator cannot be
// deleted.
func (s *AccountService) Delete(ctx context.Context, userName string) error {
	id, err := s.store.GetAccountIDByUserName(ctx, userName)
	if err != nil {
		return err
	}
	if id == common.AdminID {
		return common.ErrorUnauthorized
	}
	return s.store.DeleteAccount(ctx, id)
}

func (s *AccountService) ListUserNames(ctx context.Context) ([]string, error) {
	return s.store.ListUserNames(ctx)
}

// EnsureAdmin creates the administrator account (id 0) unless it exists.
func (s *AccountService) EnsureAdmin(ctx context.Context, userName, password, email string) (bool, error) {
	if err := protocol.ValidateRegistration(userName, password, email); err != nil {
		return false, fmt.Errorf("admin account: %w", err)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return false, err
	}
	return s.store.InsertAccountWithID(ctx, &models.Account{
		ID:           common.AdminID,
		UserName:     userName,
		PasswordHash: hash,
		Email:        email,
	})
}
