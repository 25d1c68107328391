// Package dispatch routes a method ordinal and serialized arguments to a
// library instance and packages the result as an envelope.
//
// Domain errors reported by the library travel inside a normal response.
// Only failures of the call itself (undecodable arguments, a missing
// required field, a panic inside the library, an unknown method or handle)
// produce an error envelope.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/envelope"
	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/handle"
	"github.com/VanDung-dev/flm-bridge/logging"
	"github.com/VanDung-dev/flm-bridge/metrics"
	"github.com/VanDung-dev/flm-bridge/opcode"
)

// ErrMissingField is wrapped by route errors for absent required fields.
var ErrMissingField = errors.New("dispatch: missing required field")

// Dispatcher executes calls against instances held in a registry.
type Dispatcher struct {
	alloc   *envelope.Allocator
	handles *handle.Registry[flm.Manager]
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records per-call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger logs bridge-level failures.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// New creates a Dispatcher over handles, allocating results from alloc.
func New(alloc *envelope.Allocator, handles *handle.Registry[flm.Manager], opts ...Option) *Dispatcher {
	d := &Dispatcher{
		alloc:   alloc,
		handles: handles,
		metrics: metrics.Nop(),
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Call runs one method. See CallContext.
func (d *Dispatcher) Call(id handle.ID, method int32, args []byte) *envelope.Envelope {
	return d.CallContext(context.Background(), id, method, args)
}

// CallContext runs one method against the instance behind id. Empty args
// decode to the zero request. A destroyed id panics.
func (d *Dispatcher) CallContext(ctx context.Context, id handle.ID, method int32, args []byte) *envelope.Envelope {
	start := time.Now()
	m := opcode.Method(method)

	mgr, err := d.handles.Get(id)
	if err != nil {
		return d.fail(m, start, fmt.Sprintf("cannot call method '%s': %v", m, err))
	}
	if !m.Valid() {
		return d.fail(m, start, fmt.Sprintf("cannot call method: %v", fmt.Errorf("%w: %d", opcode.ErrUnknownMethod, method)))
	}

	env := d.invoke(ctx, m, mgr, args)
	d.metrics.RecordCall(m.String(), env.IsError(), time.Since(start))
	return env
}

func (d *Dispatcher) invoke(ctx context.Context, m opcode.Method, mgr flm.Manager, args []byte) (env *envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("method", m.String()).Interface("panic", r).Msg("library panicked")
			env = d.alloc.MarkErrorf("method '%s' panicked: %v", m, r)
		}
	}()

	out, err := routes[m](ctx, mgr, args)
	if err != nil {
		d.log.Warn().Err(err).Str("method", m.String()).Msg("bridge-level failure")
		return d.alloc.MarkError(err.Error())
	}
	return d.alloc.NewBuffer(out)
}

func (d *Dispatcher) fail(m opcode.Method, start time.Time, msg string) *envelope.Envelope {
	d.log.Warn().Str("method", label(m)).Msg(msg)
	d.metrics.RecordCall(label(m), true, time.Since(start))
	return d.alloc.MarkError(msg)
}

func label(m opcode.Method) string {
	if !m.Valid() {
		return "unknown"
	}
	return m.String()
}
