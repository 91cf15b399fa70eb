package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wireboard-server/internal/proto"
)

// Handler consumes relay traffic for a Session. Engine implements it.
type Handler interface {
	OnConnected(ctx context.Context) error
	Handle(ctx context.Context, f proto.Frame) error
	OnDisconnected(err error)
}

// SessionOptions configures reconnection and buffering.
type SessionOptions struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration
	ReadLimit  int64
	SendBuffer int
}

func (o *SessionOptions) setDefaults() {
	if o.MinBackoff <= 0 {
		o.MinBackoff = 250 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 16 << 20
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
}

// Session keeps a websocket connection to the relay alive, redialling with
// exponential backoff after every outage.
type Session struct {
	url  string
	opts SessionOptions
	log  *zerolog.Logger

	out chan proto.Inbound

	mu        sync.RWMutex
	connected bool
}

// NewSession creates a session for the relay websocket url.
func NewSession(url string, opts SessionOptions, logger *zerolog.Logger) *Session {
	opts.setDefaults()
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Session{
		url:  url,
		opts: opts,
		log:  logger,
		out:  make(chan proto.Inbound, opts.SendBuffer),
	}
}

// Connected reports whether a connection is currently up.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Send queues msg for the current connection. It fails with ErrNotConnected
// while the relay is unreachable.
func (s *Session) Send(ctx context.Context, msg proto.Inbound) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	select {
	case s.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run dials, serves and redials until ctx ends.
func (s *Session) Run(ctx context.Context, h Handler) error {
	for {
		conn, err := s.dial(ctx, h)
		if err != nil {
			return err
		}

		err = s.serve(ctx, conn, h)
		h.OnDisconnected(err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Str("url", s.url).Msg("relay connection lost, reconnecting")
	}
}

func (s *Session) dial(ctx context.Context, h Handler) (*websocket.Conn, error) {
	b := retry.NewExponential(s.opts.MinBackoff)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithCappedDuration(s.opts.MaxBackoff, b)

	return retry.DoValue(ctx, b, func(ctx context.Context) (*websocket.Conn, error) {
		conn, _, err := websocket.Dial(ctx, s.url, nil)
		if err != nil {
			s.log.Debug().Err(err).Str("url", s.url).Msg("dial relay")
			h.OnDisconnected(err)
			return nil, retry.RetryableError(err)
		}
		return conn, nil
	})
}

func (s *Session) serve(ctx context.Context, conn *websocket.Conn, h Handler) error {
	defer conn.CloseNow()
	conn.SetReadLimit(s.opts.ReadLimit)

	// frames queued for a previous connection would reach the relay before the join
	s.drain()
	s.setConnected(true)
	defer s.setConnected(false)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			var f proto.Frame
			if err := wsjson.Read(gctx, conn, &f); err != nil {
				return fmt.Errorf("read frame: %w", err)
			}
			if err := h.Handle(gctx, f); err != nil {
				s.log.Warn().Err(err).Str("type", f.Type).Str("event", f.Event).Msg("failed to handle frame")
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case msg := <-s.out:
				if err := wsjson.Write(gctx, conn, msg); err != nil {
					return fmt.Errorf("write frame: %w", err)
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	s.log.Info().Str("url", s.url).Msg("connected to relay")
	if err := h.OnConnected(gctx); err != nil {
		s.log.Warn().Err(err).Msg("on connected")
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}
	return err
}

func (s *Session) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *Session) drain() {
	for {
		select {
		case <-s.out:
		default:
			return
		}
	}
}
