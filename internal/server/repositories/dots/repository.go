package dots

import (
	"context"

	"github.com/dmitrijs2005/mousetrap/internal/motion"
)

type Repository interface {
	InsertBatch(ctx context.Context, accountID int64, dots []motion.Dot) error
	Count(ctx context.Context, accountID int64) (int, error)
	Load(ctx context.Context, accountID int64) ([]motion.Dot, error)
	LoadOthers(ctx context.Context, accountID int64, limit int) ([]motion.Dot, error)
	MaxSpeed(ctx context.Context, accountID int64) (float64, error)
	DeleteAll(ctx context.Context, accountID int64) error
}
