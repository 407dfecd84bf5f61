package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/nn"
	"github.com/dmitrijs2005/mousetrap/internal/protocol"
)

// Role is what a successful login grants.
type Role int

const (
	RoleNone Role = iota
	RoleUser
	RoleAdmin
)

// Defense is the model the service hands out for monitoring.
type Defense struct {
	Network *nn.Network
	Limit   float64
	Email   string
}

// DialFunc opens the transport connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type Client struct {
	addr           string
	reconnectDelay time.Duration
	dial           DialFunc
	logger         logging.Logger

	mu      sync.Mutex
	channel *protocol.Channel
}

// New returns a disconnected Client for addr.
func New(addr string, reconnectDelay time.Duration, logger logging.Logger) *Client {
	d := &net.Dialer{}
	return &Client{
		addr:           addr,
		reconnectDelay: reconnectDelay,
		dial:           d.DialContext,
		logger:         logger.With("module", "client"),
	}
}

// SetDialer replaces the transport dialer.
func (c *Client) SetDialer(dial DialFunc) {
	c.dial = dial
}

// Connected reports whether a session is established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel != nil
}

// Connect establishes a session, retrying every reconnectDelay. It returns
// ErrUnavailable once ctx ends without a session.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		return nil
	}

	for {
		ch, err := c.connect(ctx)
		if err == nil {
			c.channel = ch
			c.logger.Info(ctx, "connected", "addr", c.addr)
			return nil
		}
		c.logger.Warn(ctx, "connect failed", "addr", c.addr, "error", err)

		t := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-t.C:
		}
	}
}

func (c *Client) connect(ctx context.Context) (*protocol.Channel, error) {
	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return nil, err
	}
	ch, err := protocol.HandshakeClient(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ch, nil
}

// request runs one round trip under the session lock.
func (c *Client) request(ctx context.Context, m protocol.Message, expect ...protocol.Op) (protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestLocked(ctx, m, expect...)
}

func (c *Client) requestLocked(ctx context.Context, m protocol.Message, expect ...protocol.Op) (protocol.Message, error) {
	if c.channel == nil {
		return protocol.Message{}, ErrUnavailable
	}
	reply, err := c.channel.Request(ctx, m, expect...)
	if err != nil {
		return reply, c.fail(ctx, err)
	}
	return reply, nil
}

// fail drops the session after a transport or protocol fault. Once a reply
// has been lost or mismatched the stream can no longer be trusted, so the
// next request has to reconnect and redo the handshake. The returned error
// wraps both ErrUnavailable and the cause.
func (c *Client) fail(ctx context.Context, err error) error {
	c.logger.Warn(ctx, "session dropped", "error", err)
	_ = c.channel.Close()
	c.channel = nil
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Login authenticates the session.
func (c *Client) Login(ctx context.Context, userName, password string) (Role, error) {
	if err := protocol.ValidateCredentials(userName, password); err != nil {
		return RoleNone, err
	}

	reply, err := c.request(ctx, protocol.NewMessage(protocol.OpLogin, userName, password), protocol.OpLoginReply)
	if err != nil {
		return RoleNone, err
	}

	switch reply.Field(0) {
	case protocol.Admin:
		return RoleAdmin, nil
	case protocol.True:
		return RoleUser, nil
	default:
		return RoleNone, ErrUnauthorized
	}
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, userName, password, email string) error {
	if err := protocol.ValidateRegistration(userName, password, email); err != nil {
		return err
	}

	reply, err := c.request(ctx, protocol.NewMessage(protocol.OpRegister, userName, password, email), protocol.OpRegisterReply)
	if err != nil {
		return err
	}
	if !reply.Bool() {
		return ErrRejected
	}
	return nil
}

// FetchDefense downloads the trained model of the logged-in account.
// ErrNoModel is returned when there is none yet.
func (c *Client) FetchDefense(ctx context.Context) (*Defense, error) {
	reply, err := c.request(ctx, protocol.NewMessage(protocol.OpDefend), protocol.OpNetworkReply, protocol.OpNoData)
	if err != nil {
		return nil, err
	}
	if reply.Op == protocol.OpNoData {
		return nil, ErrNoModel
	}

	network, err := nn.Decode(reply.Field(0))
	if err != nil {
		return nil, err
	}
	limit, err := strconv.ParseFloat(reply.Field(1), 64)
	if err != nil {
		return nil, fmt.Errorf("bad cost limit %q: %w", reply.Field(1), err)
	}
	return &Defense{Network: network, Limit: limit, Email: reply.Field(2)}, nil
}

// UploadDots sends dots as one learn batch and reports whether the account
// now has enough samples for training.
func (c *Client) UploadDots(ctx context.Context, dots []motion.Dot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.requestLocked(ctx, protocol.NewMessage(protocol.OpLearn), protocol.OpReady, protocol.OpServerError)
	if err != nil {
		return false, err
	}
	if reply.Op == protocol.OpServerError {
		return false, ErrUnauthorized
	}

	for _, chunk := range protocol.ChunkDots(dots, protocol.BlockSize) {
		blob, err := protocol.EncodeDots(chunk)
		if err != nil {
			return false, err
		}
		if err := c.channel.Send(protocol.NewMessage(protocol.OpDataBlock, blob)); err != nil {
			return false, c.fail(ctx, err)
		}
	}

	reply, err = c.requestLocked(ctx, protocol.NewMessage(protocol.OpEndData), protocol.OpTrainReady)
	if err != nil {
		return false, err
	}
	return reply.Bool(), nil
}

// ListUsers returns all user names. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	reply, err := c.request(ctx, protocol.NewMessage(protocol.OpViewAccounts), protocol.OpAccountList)
	if err != nil {
		return nil, err
	}
	if reply.Field(0) == protocol.False {
		return nil, ErrUnauthorized
	}
	return protocol.DecodeNames(reply.Field(0))
}

// DeleteUser removes an account with everything it owns. Admin only.
func (c *Client) DeleteUser(ctx context.Context, userName string) error {
	if err := protocol.ValidateField(userName); err != nil {
		return err
	}

	reply, err := c.request(ctx, protocol.NewMessage(protocol.OpDeleteUser, userName), protocol.OpDeleteReply)
	if err != nil {
		return err
	}
	if !reply.Bool() {
		return ErrRejected
	}
	return nil
}

// Close says goodbye and closes the session. It is a no-op when not
// connected.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil {
		return nil
	}
	_, err := c.channel.Request(ctx, protocol.NewMessage(protocol.OpExit), protocol.OpBye)
	cerr := c.channel.Close()
	c.channel = nil
	if err != nil {
		return err
	}
	return cerr
}
