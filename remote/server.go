package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/bridge"
	"github.com/VanDung-dev/flm-bridge/envelope"
	"github.com/VanDung-dev/flm-bridge/handle"
	"github.com/VanDung-dev/flm-bridge/logging"
	"github.com/VanDung-dev/flm-bridge/metrics"
	"github.com/VanDung-dev/flm-bridge/wire"
)

// Server exposes a bridge on a REP socket. Requests are served one at a
// time in arrival order.
type Server struct {
	b       *bridge.Bridge
	address string
	session uuid.UUID
	log     zerolog.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	sock   zmq4.Socket

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithServerMetrics records requests in m.
func WithServerMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server for b listening on address, such as
// "tcp://127.0.0.1:5570".
func NewServer(b *bridge.Bridge, address string, opts ...ServerOption) *Server {
	s := &Server{
		b:       b,
		address: address,
		session: uuid.New(),
		log:     logging.Nop(),
		metrics: metrics.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.session.String()).Logger()
	return s
}

// Start binds the socket and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("remote: server already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.sock = zmq4.NewRep(s.ctx)
	if err := s.sock.Listen(s.address); err != nil {
		s.cancel()
		return fmt.Errorf("failed to bind %s: %w", s.address, err)
	}
	s.running = true

	s.wg.Add(1)
	go s.loop()

	s.log.Info().Str("address", s.Addr().String()).Msg("remote server listening")
	return nil
}

// Addr returns the bound address, useful with an ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.sock == nil {
		return nil
	}
	return s.sock.Addr()
}

// Endpoint returns the address in ZeroMQ endpoint form.
func (s *Server) Endpoint() string {
	addr := s.Addr()
	if addr == nil {
		return s.address
	}
	return addr.Network() + "://" + addr.String()
}

// Stop closes the socket and waits for the serving loop. Instances created
// through the server stay alive in the bridge.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	if err := s.sock.Close(); err != nil {
		s.log.Debug().Err(err).Msg("socket close")
	}
	s.wg.Wait()
	s.log.Info().Msg("remote server stopped")
}

// Serve runs the server until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Server) loop() {
	defer s.wg.Done()

	var failures int
	for {
		msg, err := s.sock.Recv()
		if err != nil {
			failures++
			s.log.Warn().Err(err).Int("failures", failures).Msg("receive failed")
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(recvBackoff(failures)):
			}
			continue
		}
		failures = 0

		req, err := parseRequest(msg.Frames)
		var (
			rep reply
			env *envelope.Envelope
		)
		if err != nil {
			rep = rejected(req.id, "%v", err)
		} else {
			rep, env = s.safeServe(req)
		}
		s.metrics.RemoteRequests.WithLabelValues(req.verb.String()).Inc()

		if err := s.sock.SendMulti(zmq4.NewMsgFrom(rep.frames()...)); err != nil {
			s.log.Warn().Err(err).Str("request", req.id.String()).Msg("send failed")
		}
		// The reply frames view the envelope; free it only once sent.
		env.Release()
	}
}

// recvBackoff doubles from 10ms up to one second.
func recvBackoff(failures int) time.Duration {
	d := 10 * time.Millisecond
	for i := 1; i < failures && d < time.Second; i++ {
		d *= 2
	}
	return min(d, time.Second)
}

// safeServe turns a panic while serving req into a rejected reply.
func (s *Server) safeServe(req request) (rep reply, env *envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("request", req.id.String()).Str("verb", req.verb.String()).
				Interface("panic", r).Msg("request panicked")
			rep, env = rejected(req.id, "request panicked: %v", r), nil
		}
	}()
	return s.serve(req)
}

// serve runs one request. A non-nil envelope backs the reply payload.
func (s *Server) serve(req request) (reply, *envelope.Envelope) {
	log := s.log.With().Str("request", req.id.String()).Str("verb", req.verb.String()).Logger()

	switch req.verb {
	case VerbDefaultConfiguration:
		e := s.b.DefaultConfiguration()
		return envelopeReply(req.id, e), e

	case VerbInit:
		e := s.b.Init(req.payload)
		if !e.IsError() {
			log.Debug().Uint64("handle", e.Handle()).Msg("handle created")
		}
		return envelopeReply(req.id, e), e

	case VerbCall:
		if s.b.HandleState(req.handle) == handle.StateDestroyed {
			log.Warn().Uint64("handle", req.handle).Msg("call on destroyed handle")
			return rejected(req.id, "use of destroyed handle %d", req.handle), nil
		}
		e := s.b.Call(req.handle, req.method, req.payload)
		return envelopeReply(req.id, e), e

	case VerbDestroy:
		if s.b.HandleState(req.handle) == handle.StateDestroyed {
			return rejected(req.id, "handle %d already destroyed", req.handle), nil
		}
		if err := s.b.DestroyHandle(req.handle); err != nil {
			return rejected(req.id, "%v", err), nil
		}
		return reply{id: req.id, status: statusOK}, nil

	case VerbConstants:
		data, err := wire.Marshal(s.b.Constants())
		if err != nil {
			return rejected(req.id, "%v", err), nil
		}
		return reply{id: req.id, status: statusOK, payload: data}, nil

	default:
		return rejected(req.id, "unknown verb %s", req.verb), nil
	}
}

func envelopeReply(id uuid.UUID, e *envelope.Envelope) reply {
	return reply{
		id:      id,
		status:  statusOK,
		typ:     byte(e.Kind()),
		isError: e.IsError(),
		handle:  e.Handle(),
		payload: e.Bytes(),
	}
}
