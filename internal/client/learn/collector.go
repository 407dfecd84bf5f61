// Package learn collects training samples on the endpoint and uploads them
// in batches until stopped.
package learn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
)

var ErrRunning = errors.New("collector is already running")

// Sampler yields n motion dots, honouring ctx.
type Sampler interface {
	Collect(ctx context.Context, n int) ([]motion.Dot, error)
}

// Uploader stores one batch and reports whether the account has enough
// samples for training.
type Uploader interface {
	UploadDots(ctx context.Context, dots []motion.Dot) (bool, error)
}

// Collector samples motion in the background and uploads each batch with
// LEARNU/DATABL/ENDATA until stopped. Any sampling or upload error ends the
// run; Err reports it. A finished Collector can be started again.
type Collector struct {
	sampler   Sampler
	uploader  Uploader
	batchSize int
	logger    logging.Logger
	// OnEnough is called once per run, the first time the service reports
	// enough samples.
	OnEnough func()

	uploaded atomic.Int64
	enough   atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// New builds a stopped Collector that uploads batchSize dots per round.
func New(sampler Sampler, uploader Uploader, batchSize int, logger logging.Logger) *Collector {
	return &Collector{
		sampler:   sampler,
		uploader:  uploader,
		batchSize: batchSize,
		logger:    logger.With("module", "learn"),
	}
}

// Start launches the collection loop.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		select {
		case <-c.done:
		default:
			return ErrRunning
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel, c.done, c.err = cancel, make(chan struct{}), nil
	c.enough.Store(false)
	go c.loop(runCtx, c.done)
	return nil
}

// Stop ends the loop and waits for it. The batch being sampled is dropped.
func (c *Collector) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (c *Collector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Uploaded is the number of dots stored so far.
func (c *Collector) Uploaded() int64 { return c.uploaded.Load() }

// Enough reports whether the service has said training can start.
func (c *Collector) Enough() bool { return c.enough.Load() }

// Err returns the error that ended the last run, if any.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Collector) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		dots, err := c.sampler.Collect(ctx, c.batchSize)
		if err != nil {
			c.finish(ctx, err)
			return
		}

		enough, err := c.uploader.UploadDots(ctx, dots)
		if err != nil {
			c.finish(ctx, err)
			return
		}
		c.uploaded.Add(int64(len(dots)))
		c.logger.Debug(ctx, "batch uploaded", "dots", len(dots), "total", c.uploaded.Load())

		if enough && !c.enough.Swap(true) {
			c.logger.Info(ctx, "enough data collected")
			if c.OnEnough != nil {
				c.OnEnough()
			}
		}
	}
}

func (c *Collector) finish(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	c.logger.Warn(ctx, "learning stopped", "error", err)
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}
