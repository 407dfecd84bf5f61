package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/protocol"
)

// maxPendingDots bounds the samples buffered between LEARNU and ENDATA.
const maxPendingDots = 1 << 20

// session is the per-connection protocol state.
type session struct {
	accountID int64
	loggedIn  bool
	isAdmin   bool
	receiving bool
	pending   []motion.Dot
}

type handler struct {
	server  *Server
	slot    int
	conn    net.Conn
	channel *protocol.Channel
	session session
	state   atomic.Int32
	done    chan struct{}
	logger  logging.Logger
}

func (h *handler) setState(st State) {
	h.state.Store(int32(st))
}

// State returns the current lifecycle stage.
func (h *handler) State() State {
	return State(h.state.Load())
}

// reply is what a route returns: an optional message and whether the
// connection should be closed after sending it.
type reply struct {
	msg   *protocol.Message
	close bool
}

type route func(ctx context.Context, h *handler, m protocol.Message) reply

func send(m protocol.Message) reply {
	return reply{msg: &m}
}

func (s *Server) routeTable() map[protocol.Op]route {
	return map[protocol.Op]route{
		protocol.OpLogin:        s.handleLogin,
		protocol.OpRegister:     s.handleRegister,
		protocol.OpDefend:       s.handleDefend,
		protocol.OpLearn:        s.handleLearn,
		protocol.OpDataBlock:    s.handleDataBlock,
		protocol.OpEndData:      s.handleEndData,
		protocol.OpViewAccounts: s.handleViewAccounts,
		protocol.OpDeleteUser:   s.handleDeleteUser,
		protocol.OpExit:         s.handleExit,
	}
}

func (h *handler) serve(ctx context.Context) {
	s := h.server
	defer func() {
		h.setState(StateClosing)
		_ = h.conn.Close()
		h.logger.Debug(ctx, "connection closed")
	}()

	h.setState(StateHandshaking)
	hctx := ctx
	if s.opts.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, s.opts.HandshakeTimeout)
		defer cancel()
	}
	ch, err := protocol.HandshakeServer(hctx, h.conn)
	if err != nil {
		h.logger.Warn(ctx, "handshake failed", "error", err)
		return
	}
	h.channel = ch
	h.channel.SetIdleTimeout(s.opts.IdleTimeout)
	h.setState(StateServing)
	h.logger.Debug(ctx, "session established")

	for {
		m, err := h.channel.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			h.logger.Warn(ctx, "receive failed", "error", err)
			return
		}

		s.observer.Request(m.Code)
		r := s.dispatch(ctx, h, m)
		if r.msg != nil {
			if err := h.channel.Send(*r.msg); err != nil {
				h.logger.Warn(ctx, "send failed", "error", err)
				return
			}
		}
		if r.close {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, h *handler, m protocol.Message) reply {
	rt, ok := s.routes[m.Op]
	if !ok {
		h.logger.Warn(ctx, "unknown request", "code", m.Code)
		return send(protocol.NewMessage(protocol.OpServerError, "unknown request"))
	}
	return rt(ctx, h, m)
}

func (s *Server) handleLogin(ctx context.Context, h *handler, m protocol.Message) reply {
	user, pass := m.Field(0), m.Field(1)
	if err := protocol.ValidateCredentials(user, pass); err != nil {
		return send(protocol.BoolReply(protocol.OpLoginReply, false))
	}

	id, err := s.accounts.Login(ctx, user, pass)
	if err != nil {
		if !errors.Is(err, common.ErrorUnauthorized) {
			h.logger.Error(ctx, "login failed", "error", err)
		}
		return send(protocol.BoolReply(protocol.OpLoginReply, false))
	}

	h.session = session{accountID: id, loggedIn: true, isAdmin: id == common.AdminID}
	h.logger.Info(ctx, "logged in", "user", user, "account_id", id)

	if h.session.isAdmin {
		return send(protocol.NewMessage(protocol.OpLoginReply, protocol.Admin))
	}
	return send(protocol.BoolReply(protocol.OpLoginReply, true))
}

func (s *Server) handleRegister(ctx context.Context, h *handler, m protocol.Message) reply {
	user, pass, email := m.Field(0), m.Field(1), m.Field(2)

	id, err := s.accounts.Register(ctx, user, pass, email)
	if err != nil {
		h.logger.Info(ctx, "registration rejected", "user", user, "error", err)
		return send(protocol.BoolReply(protocol.OpRegisterReply, false))
	}

	h.logger.Info(ctx, "registered", "user", user, "account_id", id)
	if s.discover != nil {
		if err := s.discover.Discover(ctx); err != nil {
			h.logger.Error(ctx, "training discovery failed", "error", err)
		}
	}
	return send(protocol.BoolReply(protocol.OpRegisterReply, true))
}

func (s *Server) handleDefend(ctx context.Context, h *handler, _ protocol.Message) reply {
	if !h.session.loggedIn || h.session.isAdmin {
		return send(protocol.NewMessage(protocol.OpNoData))
	}

	d, err := s.models.Defense(ctx, h.session.accountID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			h.logger.Error(ctx, "loading model failed", "error", err)
		}
		return send(protocol.NewMessage(protocol.OpNoData))
	}

	limit := strconv.FormatFloat(d.Limit, 'g', -1, 64)
	return send(protocol.NewMessage(protocol.OpNetworkReply, d.Snapshot, limit, d.Email))
}

func (s *Server) handleLearn(ctx context.Context, h *handler, _ protocol.Message) reply {
	if !h.session.loggedIn {
		return send(protocol.NewMessage(protocol.OpServerError, "login required"))
	}
	h.session.receiving = true
	h.session.pending = nil
	return send(protocol.NewMessage(protocol.OpReady))
}

func (s *Server) handleDataBlock(ctx context.Context, h *handler, m protocol.Message) reply {
	if !h.session.loggedIn || !h.session.receiving {
		return reply{}
	}

	dots, err := protocol.DecodeDots(m.Field(0))
	if err != nil {
		h.logger.Warn(ctx, "bad data block", "error", err)
		return reply{}
	}
	if len(dots) > protocol.BlockSize {
		h.logger.Warn(ctx, "oversized data block truncated", "dots", len(dots))
		dots = dots[:protocol.BlockSize]
	}
	if len(h.session.pending)+len(dots) > maxPendingDots {
		h.logger.Warn(ctx, "pending batch full, block dropped")
		return reply{}
	}
	h.session.pending = append(h.session.pending, dots...)
	return reply{}
}

func (s *Server) handleEndData(ctx context.Context, h *handler, _ protocol.Message) reply {
	if !h.session.loggedIn {
		return send(protocol.BoolReply(protocol.OpTrainReady, false))
	}

	var (
		enough bool
		err    error
	)
	if h.session.receiving {
		pending := h.session.pending
		h.session.receiving = false
		h.session.pending = nil
		enough, err = s.models.AppendDots(ctx, h.session.accountID, pending)
		if err == nil {
			h.logger.Info(ctx, "samples stored", "dots", len(pending), "enough", enough)
		}
	} else {
		enough, err = s.models.Enough(ctx, h.session.accountID)
	}
	if err != nil {
		h.logger.Error(ctx, "storing samples failed", "error", err)
		return send(protocol.BoolReply(protocol.OpTrainReady, false))
	}
	return send(protocol.BoolReply(protocol.OpTrainReady, enough))
}

func (s *Server) handleViewAccounts(ctx context.Context, h *handler, _ protocol.Message) reply {
	if !h.session.isAdmin {
		return send(protocol.NewMessage(protocol.OpAccountList, protocol.False))
	}

	names, err := s.accounts.ListUserNames(ctx)
	if err != nil {
		h.logger.Error(ctx, "listing accounts failed", "error", err)
		return send(protocol.NewMessage(protocol.OpAccountList, protocol.False))
	}
	blob, err := protocol.EncodeNames(names)
	if err != nil {
		return send(protocol.NewMessage(protocol.OpAccountList, protocol.False))
	}
	return send(protocol.NewMessage(protocol.OpAccountList, blob))
}

func (s *Server) handleDeleteUser(ctx context.Context, h *handler, m protocol.Message) reply {
	if !h.session.isAdmin {
		return send(protocol.BoolReply(protocol.OpDeleteReply, false))
	}

	user := m.Field(0)
	if err := s.accounts.Delete(ctx, user); err != nil {
		h.logger.Info(ctx, "delete rejected", "user", user, "error", err)
		return send(protocol.BoolReply(protocol.OpDeleteReply, false))
	}
	h.logger.Info(ctx, "account deleted", "user", user)
	return send(protocol.BoolReply(protocol.OpDeleteReply, true))
}

func (s *Server) handleExit(ctx context.Context, h *handler, _ protocol.Message) reply {
	return reply{msg: &protocol.Message{Op: protocol.OpBye, Code: protocol.OpBye.String()}, close: true}
}
