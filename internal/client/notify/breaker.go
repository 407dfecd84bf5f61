package notify

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
)

// BreakerConfig tunes the circuit breaker around a Sender.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		MaxRequests:         1,
		Interval:            10 * time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 3,
	}
}

// BreakerSender stops calling a failing Sender for a while instead of
// stalling every lockdown on it. gobreaker.ErrOpenState is returned while
// the circuit is open.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, cfg BreakerConfig, logger logging.Logger) *BreakerSender {
	logger = logger.With("module", "notify")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerSender{next: next, cb: cb}
}

func (b *BreakerSender) Send(ctx context.Context, to, subject, body string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Send(ctx, to, subject, body)
	})
	return err
}

// State exposes the breaker state.
func (b *BreakerSender) State() gobreaker.State {
	return b.cb.State()
}
