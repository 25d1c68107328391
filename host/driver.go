package host

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/logging"
	"github.com/VanDung-dev/flm-bridge/wire"
)

// Driver owns one library handle on a Boundary.
type Driver struct {
	b      Boundary
	handle uint64
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithDriverLogger sets the driver logger.
func WithDriverLogger(log zerolog.Logger) DriverOption {
	return func(d *Driver) { d.log = log }
}

// DefaultConfiguration asks the boundary for the default library
// configuration.
func DefaultConfiguration(b Boundary) (flm.Configuration, error) {
	resp, err := b.DefaultConfiguration()
	if err != nil {
		return flm.Configuration{}, err
	}
	defer resp.Release()

	if err := expect(resp, "default_configuration", TypeBuffer); err != nil {
		return flm.Configuration{}, err
	}
	cfg, err := wire.UnmarshalConfiguration(resp.Bytes())
	if err != nil {
		return flm.Configuration{}, &AdapterError{Op: "default_configuration", Err: err}
	}
	return cfg, nil
}

// Open creates a library instance from cfg.
func Open(b Boundary, cfg flm.Configuration, opts ...DriverOption) (*Driver, error) {
	data, err := wire.MarshalConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return OpenRaw(b, data, opts...)
}

// OpenRaw creates a library instance from a serialized configuration.
func OpenRaw(b Boundary, config []byte, opts ...DriverOption) (*Driver, error) {
	resp, err := b.Init(config)
	if err != nil {
		return nil, err
	}
	defer resp.Release()

	if err := expect(resp, "init", TypeHandlePointer); err != nil {
		return nil, err
	}
	if resp.Handle() == 0 {
		return nil, adapterErrorf("init", "null handle in handle response")
	}

	d := &Driver{b: b, handle: resp.Handle(), log: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.log.Debug().Uint64("handle", d.handle).Msg("library opened")
	return d, nil
}

// expect checks the error flag and the discriminant of resp.
func expect(resp Response, op string, want ResponseType) error {
	switch resp.Type() {
	case TypeBuffer, TypeHandlePointer:
	default:
		return adapterErrorf(op, "unknown response type %d", int32(resp.Type()))
	}
	if resp.IsError() {
		if resp.Type() != TypeBuffer {
			return adapterErrorf(op, "error flag on %s response", resp.Type())
		}
		oe, err := wire.UnmarshalOuterError(resp.Bytes())
		if err != nil {
			return &AdapterError{Op: op, Err: err}
		}
		return &BridgeError{Op: op, Cause: oe}
	}
	if resp.Type() != want {
		return adapterErrorf(op, "expected %s response, got %s", want, resp.Type())
	}
	return nil
}

// Handle returns the boundary handle.
func (d *Driver) Handle() uint64 { return d.handle }

// Call encodes req, invokes method and decodes the reply into resp. A nil
// req sends no arguments. Domain errors stay inside resp.
func (d *Driver) Call(ctx context.Context, method Method, req, resp any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var args []byte
	if req != nil {
		var err error
		if args, err = wire.Marshal(req); err != nil {
			return err
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	r, err := d.b.Call(d.handle, method, args)
	if err != nil {
		return err
	}
	defer r.Release()

	op := method.String()
	if err := expect(r, op, TypeBuffer); err != nil {
		if _, ok := err.(*BridgeError); ok {
			d.log.Warn().Err(err).Str("method", op).Msg("bridge error")
		}
		return err
	}
	if resp == nil {
		return nil
	}
	if err := wire.Unmarshal(r.Bytes(), resp); err != nil {
		return &AdapterError{Op: op, Err: err}
	}
	return nil
}

// Constants returns the reserved identifiers of the library behind the
// boundary.
func (d *Driver) Constants() (flm.Constants, error) {
	return d.b.Constants()
}

// Close destroys the handle. Later calls return ErrClosed; closing twice is
// a no-op.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.log.Debug().Uint64("handle", d.handle).Msg("library closed")
	return d.b.DestroyHandle(d.handle)
}
