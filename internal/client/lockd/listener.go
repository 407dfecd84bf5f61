package lockd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
)

const (
	maxRequestBytes = 8 << 10
	readTimeout     = 5 * time.Second
)

// Locker locks the workstation.
type Locker interface {
	Lock(ctx context.Context) error
}

// Listener validates lock requests against the current token. At most one
// token is live; a successful lock consumes it.
type Listener struct {
	addr     string
	validity time.Duration
	locker   Locker
	logger   logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	current Token

	ln        net.Listener
	ready     chan struct{}
	readyOnce sync.Once
}

// NewListener creates a Listener for addr.
//
// Parameters:
//   - addr: TCP address to bind in Run, e.g. ":8080".
//   - validity: how long an issued token stays usable.
//   - locker: called once per accepted request.
//   - logger: tagged with module=lockd.
//
// No token is live until Issue is called, so every request is rejected.
func NewListener(addr string, validity time.Duration, locker Locker, logger logging.Logger) *Listener {
	return &Listener{
		addr:     addr,
		validity: validity,
		locker:   locker,
		logger:   logger.With("module", "lockd"),
		now:      time.Now,
		ready:    make(chan struct{}),
	}
}

// Issue replaces the current token with a fresh one. Earlier tokens stop
// working immediately.
func (l *Listener) Issue() (Token, error) {
	t, err := NewToken(l.now())
	if err != nil {
		return Token{}, err
	}
	l.mu.Lock()
	l.current = t
	l.mu.Unlock()
	return t, nil
}

// Revoke invalidates the current token.
func (l *Listener) Revoke() {
	l.mu.Lock()
	l.current = Token{}
	l.mu.Unlock()
}

// consume checks value and, when it matches, invalidates the token.
func (l *Listener) consume(value string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.current.Matches(value, l.now(), l.validity) {
		return false
	}
	l.current = Token{}
	return true
}

// Addr returns the bound address once the listener is up.
func (l *Listener) Addr() net.Addr {
	<-l.ready
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Run listens on the configured address until ctx ends.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		l.readyOnce.Do(func() { close(l.ready) })
		return err
	}
	return l.Serve(ctx, ln)
}

// Serve accepts lock requests on ln until ctx ends. ln is closed on return.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	l.readyOnce.Do(func() { close(l.ready) })

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	l.logger.Info(ctx, "lock listener started", "addr", ln.Addr().String())

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.logger.Info(ctx, "lock listener stopped")
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handle(ctx, conn)
		}()
	}
}

// handle serves one request. Anything but a valid token closes the
// connection without a reply.
func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(readTimeout))

	r := bufio.NewReader(io.LimitReader(conn, maxRequestBytes))
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return
	}

	value, ok := ParseRequest(line)
	if !ok || !l.consume(value) {
		l.logger.Debug(ctx, "lock request rejected", "remote", conn.RemoteAddr().String())
		return
	}

	l.logger.Warn(ctx, "lock requested", "remote", conn.RemoteAddr().String())
	if err := l.locker.Lock(ctx); err != nil {
		l.logger.Error(ctx, "lock failed", "error", err)
		return
	}
	_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 7\r\nConnection: close\r\n\r\nlocked\n")
}

// ParseRequest extracts the token from a request line such as
// "GET /?token=ABC HTTP/1.1". Parsing is lenient: the method and protocol
// are ignored and the value runs up to the next '&', '#' or whitespace.
func ParseRequest(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", false
	}
	_, after, found := strings.Cut(fields[1], "token=")
	if !found {
		return "", false
	}
	if i := strings.IndexAny(after, "&#"); i >= 0 {
		after = after[:i]
	}
	if after == "" {
		return "", false
	}
	return after, true
}
