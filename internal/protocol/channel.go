package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"time"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/cryptox"
	"github.com/dmitrijs2005/mousetrap/internal/framing"
)

var (
	ErrHandshake       = errors.New("handshake failed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// Channel is an established encrypted connection. Every payload is sealed
// with the session key before framing and opened after receiving.
//
// A Channel is not safe for concurrent Send or concurrent Receive calls; one
// reader and one writer at a time.
type Channel struct {
	conn   net.Conn
	cipher *cryptox.SessionCipher
	idle   time.Duration
}

// HandshakeClient runs the endpoint side of key agreement on conn.
func HandshakeClient(ctx context.Context, conn net.Conn) (*Channel, error) {
	stop := bindContext(ctx, conn)
	defer stop()

	priv, err := cryptox.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	pemKey, err := cryptox.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	hello := append([]byte(HelloClient+common.FieldSeparator), pemKey...)
	if err := framing.Send(conn, hello); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	reply, err := framing.Receive(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	wrapped, ok := bytes.CutPrefix(reply, []byte(HelloServer+common.FieldSeparator))
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrHandshake, HelloServer)
	}

	key, err := cryptox.UnwrapKey(priv, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return newChannel(conn, key)
}

// HandshakeServer runs the service side of key agreement on conn.
func HandshakeServer(ctx context.Context, conn net.Conn) (*Channel, error) {
	stop := bindContext(ctx, conn)
	defer stop()

	hello, err := framing.Receive(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	pemKey, ok := bytes.CutPrefix(hello, []byte(HelloClient+common.FieldSeparator))
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrHandshake, HelloClient)
	}

	pub, err := cryptox.DecodePublicKey(pemKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	key, err := cryptox.NewSessionKey()
	if err != nil {
		return nil, err
	}
	wrapped, err := cryptox.WrapKey(pub, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	reply := append([]byte(HelloServer+common.FieldSeparator), wrapped...)
	if err := framing.Send(conn, reply); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	return newChannel(conn, key)
}

func newChannel(conn net.Conn, key []byte) (*Channel, error) {
	c, err := cryptox.NewSessionCipher(key)
	common.WipeByteArray(key)
	if err != nil {
		return nil, err
	}
	return &Channel{conn: conn, cipher: c}, nil
}

// bindContext makes blocking I/O on conn return once ctx is done. The
// returned func detaches it again and clears the deadline.
func bindContext(ctx context.Context, conn net.Conn) func() {
	if d, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(d)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	return func() {
		if stop() {
			_ = conn.SetDeadline(time.Time{})
		}
	}
}

// SetIdleTimeout makes every Receive fail if no message arrives within d.
// Zero disables the deadline.
func (c *Channel) SetIdleTimeout(d time.Duration) {
	c.idle = d
}

// Send encrypts and frames m.
func (c *Channel) Send(m Message) error {
	sealed, err := c.cipher.Seal(m.Encode())
	if err != nil {
		return err
	}
	return framing.Send(c.conn, sealed)
}

// Receive reads, decrypts and decodes the next message.
func (c *Channel) Receive() (Message, error) {
	if c.idle > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.idle))
	}
	sealed, err := framing.Receive(c.conn)
	if err != nil {
		return Message{}, err
	}
	plain, err := c.cipher.Open(sealed)
	if err != nil {
		return Message{}, err
	}
	return Decode(plain), nil
}

// Request sends m and waits for a reply whose opcode is one of expect.
func (c *Channel) Request(ctx context.Context, m Message, expect ...Op) (Message, error) {
	stop := bindContext(ctx, c.conn)
	defer stop()

	if err := c.Send(m); err != nil {
		return Message{}, err
	}
	reply, err := c.Receive()
	if err != nil {
		return Message{}, err
	}
	if len(expect) > 0 && !slices.Contains(expect, reply.Op) {
		return reply, fmt.Errorf("%w: %s to %s", ErrUnexpectedReply, reply.Code, m.Op)
	}
	return reply, nil
}

// RemoteAddr returns the peer address.
func (c *Channel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Channel) Close() error {
	return c.conn.Close()
}
