package bridge

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/flm-bridge/dispatch"
	"github.com/VanDung-dev/flm-bridge/envelope"
	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/handle"
	"github.com/VanDung-dev/flm-bridge/logging"
	"github.com/VanDung-dev/flm-bridge/metrics"
	"github.com/VanDung-dev/flm-bridge/wire"
)

// Bridge owns the instances created through it.
type Bridge struct {
	alloc      *envelope.Allocator
	handles    *handle.Registry[flm.Manager]
	dispatcher *dispatch.Dispatcher
	factory    flm.Factory
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

type options struct {
	mem      memory.Allocator
	log      zerolog.Logger
	reg      prometheus.Registerer
	registry bool
}

// Option configures a Bridge.
type Option func(*options)

// WithMemory allocates envelope buffers from mem.
func WithMemory(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithRegisterer registers bridge metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.reg = reg
		o.registry = true
	}
}

// New creates a Bridge that builds instances with factory.
func New(factory flm.Factory, opts ...Option) *Bridge {
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Bridge{
		alloc:   envelope.NewAllocator(o.mem),
		handles: handle.NewRegistry[flm.Manager](),
		factory: factory,
		log:     o.log,
	}
	b.metrics = metrics.New("flm", o.reg)
	if o.registry {
		metrics.RegisterGauges("flm", o.reg,
			func() float64 { return float64(b.handles.Len()) },
			func() float64 { return float64(b.alloc.Stats().Live) },
			func() float64 { return float64(b.alloc.Stats().Bytes) },
		)
	}
	b.dispatcher = dispatch.New(b.alloc, b.handles,
		dispatch.WithMetrics(b.metrics),
		dispatch.WithLogger(o.log),
	)
	return b
}

// DefaultConfiguration returns the serialized default configuration.
func (b *Bridge) DefaultConfiguration() *envelope.Envelope {
	data, err := wire.MarshalConfiguration(flm.DefaultConfiguration())
	if err != nil {
		// Unreachable for a fixed struct; keep the contract anyway.
		return b.alloc.MarkErrorf("cannot encode default configuration: %v", err)
	}
	return b.alloc.NewBuffer(data)
}

// Init builds an instance from a serialized configuration. Every failure is
// an error envelope; the payload keeps the library's error kind.
func (b *Bridge) Init(config []byte) (env *envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("library constructor panicked")
			env = b.alloc.MarkErrorf("library constructor panicked: %v", r)
		}
		b.metrics.RecordInit(env.IsError())
	}()

	if len(config) == 0 {
		return b.alloc.MarkError("cannot init: configuration buffer is empty")
	}

	cfg, err := wire.UnmarshalConfiguration(config)
	if err != nil {
		return b.alloc.MarkErrorf("cannot decode configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return b.alloc.FailWith(err)
	}

	mgr, err := b.factory(cfg.Normalized())
	if err != nil {
		b.log.Warn().Err(err).Msg("library construction failed")
		return b.alloc.FailWith(err)
	}

	id := b.handles.Insert(mgr)
	b.log.Debug().Uint64("handle", uint64(id)).Msg("handle created")
	return b.alloc.NewHandle(uint64(id))
}

// Call dispatches one method against the instance behind h.
func (b *Bridge) Call(h uint64, method int32, args []byte) *envelope.Envelope {
	return b.dispatcher.Call(handle.ID(h), method, args)
}

// ReleaseEnvelope releases e. A nil envelope is ignored.
func (b *Bridge) ReleaseEnvelope(e *envelope.Envelope) {
	e.Release()
}

// DestroyHandle closes the instance behind h. The null handle is ignored.
func (b *Bridge) DestroyHandle(h uint64) error {
	if err := b.handles.Destroy(handle.ID(h)); err != nil {
		return fmt.Errorf("destroy handle %d: %w", h, err)
	}
	if h != 0 {
		b.metrics.DestroysTotal.Inc()
		b.log.Debug().Uint64("handle", h).Msg("handle destroyed")
	}
	return nil
}

// Constants returns the reserved identifiers.
func (b *Bridge) Constants() flm.Constants {
	return flm.GetConstants()
}

// HandleState classifies h.
func (b *Bridge) HandleState(h uint64) handle.State {
	return b.handles.State(handle.ID(h))
}

// LiveHandles returns the number of instances not yet destroyed.
func (b *Bridge) LiveHandles() int {
	return b.handles.Len()
}

// EnvelopeStats reports envelopes not yet released.
func (b *Bridge) EnvelopeStats() envelope.Stats {
	return b.alloc.Stats()
}

// Metrics returns the metrics the bridge records into.
func (b *Bridge) Metrics() *metrics.Metrics {
	return b.metrics
}

// Close destroys every live instance.
func (b *Bridge) Close() error {
	return b.handles.CloseAll()
}
