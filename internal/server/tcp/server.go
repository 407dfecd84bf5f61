// Package tcp implements the connection server: a bounded accept loop that
// hands each endpoint connection an exclusive slot and a handler goroutine,
// and a reclaim loop that returns slots once their handlers have finished.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/protocol"
	"github.com/dmitrijs2005/mousetrap/internal/server/services"
	"github.com/dmitrijs2005/mousetrap/internal/server/slots"
)

// Accounts is the account service used by the handlers.
type Accounts interface {
	Register(ctx context.Context, userName, password, email string) (int64, error)
	Login(ctx context.Context, userName, password string) (int64, error)
	Delete(ctx context.Context, userName string) error
	ListUserNames(ctx context.Context) ([]string, error)
}

// Models is the sample/model service used by the handlers.
type Models interface {
	AppendDots(ctx context.Context, id int64, dots []motion.Dot) (bool, error)
	Enough(ctx context.Context, id int64) (bool, error)
	Defense(ctx context.Context, id int64) (*services.Defense, error)
}

// Discoverer is told about new accounts so their training loops start.
type Discoverer interface {
	Discover(ctx context.Context) error
}

// Observer receives connection and request events.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	SlotsFree(n int)
	Request(op string)
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened() {}
func (nopObserver) ConnectionClosed() {}
func (nopObserver) SlotsFree(int)     {}
func (nopObserver) Request(string)    {}

// Options configures a Server.
type Options struct {
	Addr             string
	MaxConnections   int
	PollInterval     time.Duration
	AcceptTimeout    time.Duration
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
}

// DefaultOptions returns production settings.
func DefaultOptions() Options {
	return Options{
		Addr:             ":5000",
		MaxConnections:   100,
		PollInterval:     time.Second,
		AcceptTimeout:    100 * time.Millisecond,
		HandshakeTimeout: 10 * time.Second,
		IdleTimeout:      10 * time.Minute,
	}
}

type deadlineListener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// Server accepts endpoint connections.
type Server struct {
	opts     Options
	accounts Accounts
	models   Models
	discover Discoverer
	observer Observer
	logger   logging.Logger
	routes   map[protocol.Op]route

	pool     *slots.Pool
	mu       sync.Mutex
	handlers map[int]*handler
	reclaim  chan int
	running  sync.WaitGroup
}

// NewServer builds a Server. discover and observer may be nil.
func NewServer(opts Options, accounts Accounts, models Models, discover Discoverer, observer Observer, logger logging.Logger) *Server {
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = DefaultOptions().MaxConnections
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.AcceptTimeout <= 0 {
		opts.AcceptTimeout = DefaultOptions().AcceptTimeout
	}
	if observer == nil {
		observer = nopObserver{}
	}

	s := &Server{
		opts:     opts,
		accounts: accounts,
		models:   models,
		discover: discover,
		observer: observer,
		logger:   logger.With("module", "tcp_server"),
		pool:     slots.New(opts.MaxConnections),
		handlers: make(map[int]*handler),
		reclaim:  make(chan int, opts.MaxConnections),
	}
	s.routes = s.routeTable()
	return s
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. It returns after the
// accept loop, the reclaim loop and every handler have finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info(ctx, "Starting TCP server", "address", ln.Addr().String(), "max_connections", s.opts.MaxConnections)

	reclaimDone := make(chan struct{})
	go func() {
		defer close(reclaimDone)
		s.reclaimLoop()
	}()

	err := s.acceptLoop(ctx, ln)
	_ = ln.Close()

	s.logger.Info(ctx, "Stopping TCP server...")
	s.closeAll()
	s.running.Wait()
	close(s.reclaim)
	<-reclaimDone

	return err
}

// acceptLoop only calls Accept while a slot is free; with a full pool it
// polls, leaving excess connections in the kernel backlog. It is the only
// caller of pool.Get, so a slot seen free before Accept is still free after.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if s.pool.Available() == 0 {
			s.observer.SlotsFree(0)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.opts.PollInterval):
			}
			continue
		}

		conn, err := s.accept(ctx, ln)
		if conn == nil {
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		}

		id, ok := s.pool.Get()
		if !ok {
			s.logger.Error(ctx, "no free slot for accepted connection")
			_ = conn.Close()
			continue
		}

		s.start(ctx, id, conn)
		s.observer.SlotsFree(s.pool.Available())
	}
}

// accept waits for one connection, waking up every AcceptTimeout to observe
// ctx. It returns a nil conn once ctx is done.
func (s *Server) accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	dl, hasDeadline := ln.(deadlineListener)
	if !hasDeadline {
		stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
		defer stop()
	}

	for {
		if hasDeadline {
			_ = dl.SetDeadline(time.Now().Add(s.opts.AcceptTimeout))
		}
		conn, err := ln.Accept()
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			continue
		}
		return nil, err
	}
}

func (s *Server) start(ctx context.Context, slot int, conn net.Conn) {
	h := &handler{
		server: s,
		slot:   slot,
		conn:   conn,
		done:   make(chan struct{}),
		logger: s.logger.With("conn_id", uuid.NewString(), "slot", slot, "remote", conn.RemoteAddr().String()),
	}
	h.setState(StateAccepted)

	s.mu.Lock()
	s.handlers[slot] = h
	s.mu.Unlock()

	s.observer.ConnectionOpened()
	s.running.Add(1)
	go func() {
		defer func() {
			close(h.done)
			s.reclaim <- slot
			s.running.Done()
		}()
		h.serve(ctx)
	}()
}

// reclaimLoop frees a slot only after its handler goroutine has finished.
func (s *Server) reclaimLoop() {
	for slot := range s.reclaim {
		s.mu.Lock()
		h := s.handlers[slot]
		s.mu.Unlock()

		if h != nil {
			<-h.done
			h.setState(StateReleased)
		}

		s.mu.Lock()
		delete(s.handlers, slot)
		s.mu.Unlock()

		s.pool.Free(slot)
		s.observer.ConnectionClosed()
		s.observer.SlotsFree(s.pool.Available())
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handlers {
		_ = h.conn.Close()
	}
}

// Active reports how many handlers are registered.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// FreeSlots reports how many connection slots are free.
func (s *Server) FreeSlots() int {
	return s.pool.Available()
}
