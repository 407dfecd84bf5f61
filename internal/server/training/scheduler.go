// Package training runs one long-lived training loop per user account. A loop
// waits until its account has collected enough motion samples, trains an
// autoencoder on them once, and stores the resulting model.
package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/nn"
)

var ErrNotStarted = errors.New("scheduler not started")

// ModelLock serializes every read-modify-write of stored models. The same
// lock guards the model read done for DEFEND.
type ModelLock struct {
	sync.Mutex
}

// Store is the persistence the scheduler needs.
type Store interface {
	ListAccountIDs(ctx context.Context) ([]int64, error)
	AccountExists(ctx context.Context, id int64) (bool, error)
	CountDots(ctx context.Context, id int64) (int, error)
	LoadDots(ctx context.Context, id int64) ([]motion.Dot, error)
	LoadOtherAccountsDots(ctx context.Context, id int64, limit int) ([]motion.Dot, error)
	MaxSpeed(ctx context.Context, id int64) (float64, error)
	HasNetwork(ctx context.Context, id int64) (bool, error)
	StoreNetwork(ctx context.Context, id int64, snapshot string) error
}

// Observer is notified after every training run.
type Observer interface {
	TrainingFinished(d time.Duration, cost float64, err error)
}

// Trainer fits a fresh network to normalized samples.
type Trainer func(ctx context.Context, samples [][]float64) (*nn.Network, nn.TrainResult, error)

// Options configures a Scheduler.
type Options struct {
	MinSamples        int
	RetrainInterval   time.Duration
	TickInterval      time.Duration
	DiscoverInterval  time.Duration
	CostThreshold     float64
	MaxEpochs         int
	SeparationSamples int
}

// DefaultOptions returns production settings.
func DefaultOptions() Options {
	return Options{
		MinSamples:        250000,
		RetrainInterval:   time.Hour,
		TickInterval:      time.Second,
		DiscoverInterval:  time.Minute,
		CostThreshold:     nn.DefaultTrainOptions().CostThreshold,
		MaxEpochs:         nn.DefaultTrainOptions().MaxEpochs,
		SeparationSamples: 10000,
	}
}

// Scheduler owns the per-account training loops.
type Scheduler struct {
	opts     Options
	store    Store
	lock     *ModelLock
	logger   logging.Logger
	observer Observer
	train    Trainer

	mu    sync.Mutex
	ctx   context.Context
	loops map[int64]struct{}
	wg    sync.WaitGroup
}

// NewScheduler builds a Scheduler; observer may be nil.
func NewScheduler(opts Options, store Store, lock *ModelLock, observer Observer, logger logging.Logger) *Scheduler {
	s := &Scheduler{
		opts:     opts,
		store:    store,
		lock:     lock,
		logger:   logger.With("module", "training"),
		observer: observer,
		loops:    make(map[int64]struct{}),
	}
	s.train = s.defaultTrainer
	return s
}

// SetTrainer replaces the training function.
func (s *Scheduler) SetTrainer(t Trainer) {
	s.train = t
}

func (s *Scheduler) defaultTrainer(ctx context.Context, samples [][]float64) (*nn.Network, nn.TrainResult, error) {
	net, err := nn.New(nn.DefaultLayout)
	if err != nil {
		return nil, nn.TrainResult{}, err
	}

	opts := nn.DefaultTrainOptions()
	opts.CostThreshold = s.opts.CostThreshold
	opts.MaxEpochs = s.opts.MaxEpochs
	opts.OnEpoch = func(epoch int, cost, rate float64) {
		if epoch%100 == 0 {
			s.logger.Debug(ctx, "training epoch", "epoch", epoch, "cost", cost, "rate", rate)
		}
	}

	res, err := net.Train(ctx, samples, samples, opts)
	if errors.Is(err, nn.ErrNotConverged) {
		// The model is still usable; keep it.
		s.logger.Warn(ctx, "training did not converge", "epochs", res.Epochs, "cost", res.AvgCost)
		err = nil
	}
	return net, res, err
}

// Start discovers the current accounts, launches their loops and keeps
// discovering new accounts every DiscoverInterval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.Discover(ctx); err != nil {
		return err
	}

	if s.opts.DiscoverInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			t := time.NewTicker(s.opts.DiscoverInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if err := s.Discover(ctx); err != nil {
						s.logger.Error(ctx, "account discovery failed", "error", err)
					}
				}
			}
		}()
	}
	return nil
}

// Discover launches loops for accounts that do not have one yet.
func (s *Scheduler) Discover(ctx context.Context) error {
	s.mu.Lock()
	runCtx := s.ctx
	s.mu.Unlock()
	if runCtx == nil {
		return ErrNotStarted
	}

	ids, err := s.store.ListAccountIDs(ctx)
	if err != nil {
		return fmt.Errorf("error listing accounts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if runCtx.Err() != nil {
		return nil
	}
	for _, id := range ids {
		if _, ok := s.loops[id]; ok {
			continue
		}
		s.loops[id] = struct{}{}
		s.wg.Add(1)
		go s.loop(runCtx, id)
	}
	return nil
}

// Running reports how many account loops are alive.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loops)
}

// Wait blocks until every loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, id int64) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.loops, id)
		s.mu.Unlock()
	}()

	log := s.logger.With("account_id", id)
	log.Debug(ctx, "training loop started")

	for {
		exists, err := s.store.AccountExists(ctx, id)
		if err != nil {
			log.Error(ctx, "account lookup failed", "error", err)
		} else if !exists {
			log.Info(ctx, "account gone, training loop stopped")
			return
		} else if err := s.tick(ctx, id); err != nil && ctx.Err() == nil {
			log.Error(ctx, "training failed", "error", err)
		}

		if !s.sleep(ctx) {
			log.Debug(ctx, "training loop stopped")
			return
		}
	}
}

// sleep waits RetrainInterval in TickInterval steps. It returns false once
// ctx is done.
func (s *Scheduler) sleep(ctx context.Context) bool {
	tick := s.opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	deadline := time.Now().Add(s.opts.RetrainInterval)

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		if !time.Now().Before(deadline) {
			return ctx.Err() == nil
		}
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
}

// tick trains the account once when it has enough samples and no model.
func (s *Scheduler) tick(ctx context.Context, id int64) error {
	n, err := s.store.CountDots(ctx, id)
	if err != nil {
		return err
	}
	if n < s.opts.MinSamples {
		return nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	has, err := s.store.HasNetwork(ctx, id)
	if err != nil || has {
		return err
	}
	return s.trainAccount(ctx, id)
}

func (s *Scheduler) trainAccount(ctx context.Context, id int64) (err error) {
	log := s.logger.With("account_id", id)
	started := time.Now()
	var res nn.TrainResult
	defer func() {
		if s.observer != nil && ctx.Err() == nil {
			s.observer.TrainingFinished(time.Since(started), res.AvgCost, err)
		}
	}()

	dots, err := s.store.LoadDots(ctx, id)
	if err != nil {
		return err
	}
	maxSpeed, err := s.store.MaxSpeed(ctx, id)
	if err != nil {
		return err
	}
	if maxSpeed <= 0 {
		maxSpeed = motion.MaxSpeed(dots)
	}

	samples := motion.Normalize(dots, maxSpeed)
	log.Info(ctx, "training started", "samples", len(samples))

	net, res, err := s.train(ctx, samples)
	if err != nil {
		return err
	}
	net.MaxSpeed = maxSpeed

	snapshot, err := net.Encode()
	if err != nil {
		return err
	}
	if err := s.store.StoreNetwork(ctx, id, snapshot); err != nil {
		return err
	}

	log.Info(ctx, "training finished", "epochs", res.Epochs, "cost", res.AvgCost, "took", time.Since(started))
	s.logSeparation(ctx, log, id, net, samples)
	return nil
}

// logSeparation logs how much worse the new model reconstructs other users'
// samples than its owner's.
func (s *Scheduler) logSeparation(ctx context.Context, log logging.Logger, id int64, net *nn.Network, own [][]float64) {
	limit := s.opts.SeparationSamples
	if limit <= 0 {
		return
	}
	others, err := s.store.LoadOtherAccountsDots(ctx, id, limit)
	if err != nil {
		log.Warn(ctx, "loading other accounts' samples failed", "error", err)
		return
	}
	if len(others) == 0 {
		return
	}

	ownCost, err := net.AvgCost(own[:min(len(own), limit)])
	if err != nil {
		return
	}
	otherCost, err := net.AvgCost(motion.Normalize(others, net.MaxSpeed))
	if err != nil {
		return
	}
	log.Info(ctx, "model separation", "own_cost", ownCost, "other_cost", otherCost, "ratio", otherCost/max(ownCost, 1e-12))
}
