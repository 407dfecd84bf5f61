package networks

import "context"

type Repository interface {
	Get(ctx context.Context, accountID int64) (string, error)
	Exists(ctx context.Context, accountID int64) (bool, error)
	Store(ctx context.Context, accountID int64, snapshot string) error
	Delete(ctx context.Context, accountID int64) error
}
