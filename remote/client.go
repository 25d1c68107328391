package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/host"
	"github.com/VanDung-dev/flm-bridge/logging"
	"github.com/VanDung-dev/flm-bridge/wire"
)

// DefaultTimeout bounds the wait for one reply.
const DefaultTimeout = 30 * time.Second

// Client is a host.Boundary talking to a Server over a REQ socket. A Client
// serializes its requests; use one client per goroutine for parallelism.
type Client struct {
	address string
	timeout time.Duration
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	sock   zmq4.Socket
	closed bool
}

var _ host.Boundary = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds the wait for each reply. A client whose reply timed out
// is closed, since its REQ socket can no longer be used.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithClientLogger sets the client logger.
func WithClientLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// Dial connects to a server at address.
func Dial(ctx context.Context, address string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		address: address,
		timeout: DefaultTimeout,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.sock = zmq4.NewReq(c.ctx)
	if err := c.sock.Dial(address); err != nil {
		c.cancel()
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return c, nil
}

// Close closes the socket. Handles created through the client are not
// destroyed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()
	return c.sock.Close()
}

type received struct {
	msg zmq4.Msg
	err error
}

// roundTrip sends req and waits for the matching reply.
func (c *Client) roundTrip(req request) (reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return reply{}, ErrClosed
	}

	req.id = uuid.New()
	if err := c.sock.SendMulti(zmq4.NewMsgFrom(req.frames()...)); err != nil {
		return reply{}, fmt.Errorf("remote: send %s: %w", req.verb, err)
	}

	ch := make(chan received, 1)
	go func() {
		msg, err := c.sock.Recv()
		ch <- received{msg, err}
	}()

	var r received
	select {
	case r = <-ch:
	case <-time.After(c.timeout):
		c.log.Warn().Str("request", req.id.String()).Str("verb", req.verb.String()).Msg("reply timed out")
		c.closeLocked()
		return reply{}, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	if r.err != nil {
		return reply{}, fmt.Errorf("remote: receive %s: %w", req.verb, r.err)
	}

	rep, err := parseReply(r.msg.Frames)
	if err != nil {
		return reply{}, &host.AdapterError{Op: req.verb.String(), Err: err}
	}
	if rep.id != req.id {
		return reply{}, &host.AdapterError{Op: req.verb.String(),
			Err: fmt.Errorf("reply %s does not match request %s", rep.id, req.id)}
	}
	if rep.status == statusRejected {
		return reply{}, fmt.Errorf("%w: %s", ErrRejected, rep.payload)
	}
	if rep.status != statusOK {
		return reply{}, &host.AdapterError{Op: req.verb.String(), Err: fmt.Errorf("unknown status %d", rep.status)}
	}
	return rep, nil
}

func (c *Client) response(req request) (host.Response, error) {
	rep, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	return host.NewBufferedResponse(host.ResponseType(rep.typ), rep.isError, rep.payload, rep.handle), nil
}

func (c *Client) DefaultConfiguration() (host.Response, error) {
	return c.response(request{verb: VerbDefaultConfiguration})
}

func (c *Client) Init(config []byte) (host.Response, error) {
	return c.response(request{verb: VerbInit, payload: config})
}

func (c *Client) Call(handle uint64, method host.Method, args []byte) (host.Response, error) {
	return c.response(request{verb: VerbCall, handle: handle, method: int32(method), payload: args})
}

func (c *Client) DestroyHandle(handle uint64) error {
	_, err := c.roundTrip(request{verb: VerbDestroy, handle: handle})
	return err
}

func (c *Client) Constants() (flm.Constants, error) {
	rep, err := c.roundTrip(request{verb: VerbConstants})
	if err != nil {
		return flm.Constants{}, err
	}
	var out flm.Constants
	if err := wire.Unmarshal(rep.payload, &out); err != nil {
		return flm.Constants{}, &host.AdapterError{Op: "constants", Err: err}
	}
	return out, nil
}
