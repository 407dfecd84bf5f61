package cli

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/mousetrap/internal/client/client"
	"github.com/dmitrijs2005/mousetrap/internal/client/config"
	"github.com/dmitrijs2005/mousetrap/internal/client/guard"
	"github.com/dmitrijs2005/mousetrap/internal/client/learn"
	"github.com/dmitrijs2005/mousetrap/internal/client/lockd"
	"github.com/dmitrijs2005/mousetrap/internal/client/lockscreen"
	"github.com/dmitrijs2005/mousetrap/internal/client/notify"
	"github.com/dmitrijs2005/mousetrap/internal/client/pointer"
	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/netx"
	"github.com/dmitrijs2005/mousetrap/internal/nn"
)

const connectTimeout = 30 * time.Second

// backend is the part of client.Client the commands use.
type backend interface {
	Connect(ctx context.Context) error
	Connected() bool
	Login(ctx context.Context, userName, password string) (client.Role, error)
	Register(ctx context.Context, userName, password, email string) error
	FetchDefense(ctx context.Context) (*client.Defense, error)
	ListUsers(ctx context.Context) ([]string, error)
	DeleteUser(ctx context.Context, userName string) error
	Close(ctx context.Context) error
}

type defender interface {
	Arm(network *nn.Network, limit float64, email string) error
	Start(ctx context.Context) error
	Stop()
	State() guard.State
}

type collector interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	Uploaded() int64
}

type lockServer interface {
	Serve(ctx context.Context, ln net.Listener) error
}

type App struct {
	config  *config.Config
	api     backend
	guard   defender
	learner collector
	lock    lockServer
	logger  logging.Logger

	reader   *bufio.Reader
	out      io.Writer
	userName string
	role     client.Role
}

// NewApp wires the endpoint components from c.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	logger := logging.NewJSONLogger(os.Stderr, c.LogLevel)

	var sender notify.Sender = notify.NewLogSender(logger)
	if c.SESFromAddress != "" {
		ses, err := notify.NewSESSender(ctx, c.SESRegion, c.SESFromAddress, logger)
		if err != nil {
			return nil, err
		}
		sender = notify.NewBreakerSender(ses, notify.DefaultBreakerConfig("ses"), logger)
	}

	sampler := motion.NewSampler(pointer.NewXDoTool())
	listener := lockd.NewListener(c.LockListenAddr, c.TokenValidity, lockscreen.New(), logger)
	api := client.New(c.ServerEndpointAddr, c.ReconnectDelay, logger)

	link := func(token string) (string, error) {
		return netx.LockURL(netx.ReachableHost(c.LockHost), c.LockListenAddr, token)
	}
	opts := guard.DefaultOptions()
	opts.BatchSize = c.BatchSize
	opts.TokenValidity = c.TokenValidity
	g := guard.New(sampler, listener, sender, link, opts, logger)

	learner := learn.New(sampler, api, c.BatchSize, logger)
	learner.OnEnough = func() {
		printlnFn("Enough data collected, the model will be trained shortly.")
	}

	return &App{
		config:  c,
		api:     api,
		guard:   g,
		learner: learner,
		lock:    listener,
		logger:  logger.With("module", "cli"),
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

// Run binds the lock listener and runs the REPL until the user exits.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.LockListenAddr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.lock.Serve(gctx, ln)
	})
	g.Go(func() error {
		defer cancel()
		a.Root(gctx)
		return nil
	})
	return g.Wait()
}

func (a *App) isLoggedIn() bool {
	return a.role != client.RoleNone
}

func (a *App) isAdmin() bool {
	return a.role == client.RoleAdmin
}

// ensureConnected (re)establishes the session. A lost session also loses
// the login.
func (a *App) ensureConnected(ctx context.Context) error {
	if a.api.Connected() {
		return nil
	}
	if a.isLoggedIn() {
		printlnFn("Connection lost, please log in again.")
		a.userName, a.role = "", client.RoleNone
	}
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return a.api.Connect(cctx)
}

func (a *App) shutdown(ctx context.Context) {
	a.learner.Stop()
	a.guard.Stop()

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.api.Close(cctx); err != nil {
		a.logger.Warn(ctx, "closing session failed", "error", err)
	}
}
