package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/mousetrap/internal/motion"
)

// ModelStore is the part of Store the model service needs.
type ModelStore interface {
	InsertDots(ctx context.Context, id int64, dots []motion.Dot) error
	CountDots(ctx context.Context, id int64) (int, error)
	LoadNetwork(ctx context.Context, id int64) (string, error)
	GetEmail(ctx context.Context, id int64) (string, error)
}

// Defense is what an endpoint needs to start monitoring.
type Defense struct {
	Snapshot string
	Limit    float64
	Email    string
}

// ModelService stores learning samples and hands out trained models.
type ModelService struct {
	store      ModelStore
	lock       sync.Locker
	minSamples int
	costLimit  float64
}

// NewModelService constructs a ModelService. lock is the model lock shared
// with the training scheduler.
func NewModelService(store ModelStore, lock sync.Locker, minSamples int, costLimit float64) *ModelService {
	return &ModelService{store: store, lock: lock, minSamples: minSamples, costLimit: costLimit}
}

// AppendDots commits one learning batch and reports whether the account now
// has enough samples to be trained.
func (s *ModelService) AppendDots(ctx context.Context, id int64, dots []motion.Dot) (bool, error) {
	if len(dots) > 0 {
		if err := s.store.InsertDots(ctx, id, dots); err != nil {
			return false, fmt.Errorf("error storing samples: %w", err)
		}
	}
	return s.Enough(ctx, id)
}

// Enough reports whether id has at least the configured number of samples.
func (s *ModelService) Enough(ctx context.Context, id int64) (bool, error) {
	n, err := s.store.CountDots(ctx, id)
	if err != nil {
		return false, err
	}
	return n >= s.minSamples, nil
}

// Defense returns the trained model of id with the scoring limit and the
// notification address. common.ErrorNotFound means no model yet.
func (s *ModelService) Defense(ctx context.Context, id int64) (*Defense, error) {
	s.lock.Lock()
	snapshot, err := s.store.LoadNetwork(ctx, id)
	s.lock.Unlock()
	if err != nil {
		return nil, err
	}

	email, err := s.store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Defense{Snapshot: snapshot, Limit: s.costLimit, Email: email}, nil
}
