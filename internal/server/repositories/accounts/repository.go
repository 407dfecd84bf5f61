package accounts

import (
	"context"

	"github.com/dmitrijs2005/mousetrap/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	CreateWithID(ctx context.Context, account *models.Account) (bool, error)
	GetIDByUserName(ctx context.Context, userName string) (int64, error)
	GetPasswordHash(ctx context.Context, id int64) (string, error)
	GetEmail(ctx context.Context, id int64) (string, error)
	Delete(ctx context.Context, id int64) error
	ListUserNames(ctx context.Context) ([]string, error)
	ListIDs(ctx context.Context) ([]int64, error)
}
