// Package guard runs the endpoint's anomaly detection loop.
//
// A Guard moves through Idle → Armed → Monitoring → LockdownNotified and
// back to Idle on Stop. While monitoring it scores batches of live motion
// against the account's model. The first batch whose reconstruction cost
// exceeds the limit issues a lock token, mails the lock link to the owner
// and parks the loop until Stop; monitoring does not resume by itself.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/mousetrap/internal/client/lockd"
	"github.com/dmitrijs2005/mousetrap/internal/client/notify"
	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/nn"
)

type State int32

const (
	StateIdle State = iota
	StateArmed
	StateMonitoring
	StateLockdownNotified
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateMonitoring:
		return "monitoring"
	case StateLockdownNotified:
		return "lockdown-notified"
	default:
		return "unknown"
	}
}

var (
	ErrNotArmed = errors.New("guard is not armed")
	ErrBusy     = errors.New("guard is already running")
	ErrNoModel  = errors.New("no model to guard with")
)

// Sampler produces live motion samples.
type Sampler interface {
	Collect(ctx context.Context, n int) ([]motion.Dot, error)
}

// TokenIssuer hands out lock tokens; lockd.Listener implements it.
type TokenIssuer interface {
	Issue() (lockd.Token, error)
}

// LinkFunc turns a token value into the URL mailed to the owner.
type LinkFunc func(token string) (string, error)

// Options tunes the monitoring loop.
//
//   - BatchSize: dots collected and scored per round.
//   - TokenValidity: quoted in the lockdown email; the listener enforces it.
//   - RetryDelay: pause after a failed sampling round.
type Options struct {
	BatchSize     int
	TokenValidity time.Duration
	RetryDelay    time.Duration
}

// DefaultOptions returns 100-dot batches, a one hour token and a one second
// retry delay.
func DefaultOptions() Options {
	return Options{BatchSize: 100, TokenValidity: time.Hour, RetryDelay: time.Second}
}

// Guard runs the anomaly detection loop for one armed model.
//
// Lifecycle: Arm stores the model, Start launches sampling, and Stop cancels
// and joins it from any state. After a lockdown notification the loop stays
// parked until Stop; it never returns to Monitoring on its own.
// All methods are safe for concurrent use.
type Guard struct {
	sampler Sampler
	issuer  TokenIssuer
	sender  notify.Sender
	link    LinkFunc
	opts    Options
	logger  logging.Logger

	mu       sync.Mutex
	state    State
	network  *nn.Network
	limit    float64
	email    string
	lastCost float64
	cancel   context.CancelFunc
	done     chan struct{}
}

// New builds an idle Guard. A non-positive opts.BatchSize falls back to the
// default.
//
// Parameters:
//
//	sampler: source of motion dots, usually a motion.Sampler
//	issuer:  mints the lock token, usually the lockd.Listener
//	sender:  delivers the lockdown email; its errors are logged only
//	link:    turns a token into the URL placed in the email
func New(sampler Sampler, issuer TokenIssuer, sender notify.Sender, link LinkFunc, opts Options, logger logging.Logger) *Guard {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	return &Guard{
		sampler: sampler,
		issuer:  issuer,
		sender:  sender,
		link:    link,
		opts:    opts,
		logger:  logger.With("module", "guard"),
	}
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastCost returns the cost of the most recently scored batch.
func (g *Guard) LastCost() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCost
}

// Arm loads the model, the cost limit and the owner's address.
func (g *Guard) Arm(network *nn.Network, limit float64, email string) error {
	if network == nil {
		return ErrNoModel
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateMonitoring || g.state == StateLockdownNotified {
		return ErrBusy
	}
	g.network, g.limit, g.email = network, limit, email
	g.state = StateArmed
	return nil
}

// Start begins monitoring. The loop lives until Stop or until ctx ends.
func (g *Guard) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case StateArmed:
	case StateIdle:
		return ErrNotArmed
	default:
		return ErrBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	g.cancel, g.done = cancel, done
	g.state = StateMonitoring

	go g.loop(runCtx, done, g.network, g.limit, g.email)
	g.logger.Info(ctx, "monitoring started", "limit", g.limit)
	return nil
}

// Stop cancels the loop, waits for it and returns to Idle. The model is
// dropped; a new Arm is needed before the next Start.
func (g *Guard) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	g.mu.Lock()
	g.state = StateIdle
	g.network, g.limit, g.email = nil, 0, ""
	g.mu.Unlock()
}

func (g *Guard) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

func (g *Guard) loop(ctx context.Context, done chan struct{}, network *nn.Network, limit float64, email string) {
	defer close(done)

	for {
		dots, err := g.sampler.Collect(ctx, g.opts.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.logger.Warn(ctx, "sampling failed", "error", err)
			if !g.sleep(ctx) {
				return
			}
			continue
		}

		cost, err := network.AvgCost(motion.Normalize(dots, network.MaxSpeed))
		if err != nil {
			g.logger.Error(ctx, "scoring failed", "error", err)
			if !g.sleep(ctx) {
				return
			}
			continue
		}

		g.mu.Lock()
		g.lastCost = cost
		g.mu.Unlock()

		if cost <= limit {
			g.logger.Debug(ctx, "motion ok", "cost", cost, "limit", limit)
			continue
		}

		g.logger.Warn(ctx, "irregular motion", "cost", cost, "limit", limit)
		g.lockdown(ctx, email)
		g.setState(StateLockdownNotified)

		<-ctx.Done()
		return
	}
}

// lockdown issues a token and mails the lock link. Failures are logged; the
// guard still reports the lockdown.
func (g *Guard) lockdown(ctx context.Context, email string) {
	tok, err := g.issuer.Issue()
	if err != nil {
		g.logger.Error(ctx, "issuing lock token failed", "error", err)
		return
	}
	url, err := g.link(tok.Value)
	if err != nil {
		g.logger.Error(ctx, "building lock link failed", "error", err)
		return
	}

	subject, body := notify.LockdownMessage(url, g.opts.TokenValidity)
	if err := g.sender.Send(ctx, email, subject, body); err != nil {
		g.logger.Warn(ctx, "lockdown notification failed", "to", email, "error", err)
		return
	}
	g.logger.Info(ctx, "lockdown notification sent", "to", email)
}

func (g *Guard) sleep(ctx context.Context) bool {
	t := time.NewTimer(g.opts.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
