// Package metrics provides Prometheus metrics for the bridge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dispatcher and lifecycle metrics.
type Metrics struct {
	CallsTotal        *prometheus.CounterVec
	BridgeErrorsTotal *prometheus.CounterVec
	CallDuration      *prometheus.HistogramVec

	InitsTotal     prometheus.Counter
	InitFailures   prometheus.Counter
	DestroysTotal  prometheus.Counter
	RemoteRequests *prometheus.CounterVec
}

// New registers metrics under namespace with reg. A nil reg uses a private
// registry so several bridges can live in one process.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		CallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total dispatched calls by method",
		}, []string{"method"}),
		BridgeErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_errors_total",
			Help:      "Calls that returned an error envelope, by method",
		}, []string{"method"}),
		CallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Dispatched call duration by method",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"method"}),

		InitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inits_total",
			Help:      "Total handle creations",
		}),
		InitFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "init_failures_total",
			Help:      "Handle creations that returned an error envelope",
		}),
		DestroysTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destroys_total",
			Help:      "Total handle destructions",
		}),
		RemoteRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Remote adapter requests by verb",
		}, []string{"verb"}),
	}
}

// Nop returns metrics bound to a throwaway registry.
func Nop() *Metrics {
	return New("flm", nil)
}

// RecordCall records one dispatched call.
func (m *Metrics) RecordCall(method string, bridgeError bool, duration time.Duration) {
	m.CallsTotal.WithLabelValues(method).Inc()
	m.CallDuration.WithLabelValues(method).Observe(duration.Seconds())
	if bridgeError {
		m.BridgeErrorsTotal.WithLabelValues(method).Inc()
	}
}

// RecordInit records one handle creation attempt.
func (m *Metrics) RecordInit(failed bool) {
	m.InitsTotal.Inc()
	if failed {
		m.InitFailures.Inc()
	}
}

// RegisterGauges exposes live counts read on every scrape.
func RegisterGauges(namespace string, reg prometheus.Registerer, liveHandles, liveEnvelopes, envelopeBytes func() float64) {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_handles",
		Help:      "Library instances created and not yet destroyed",
	}, liveHandles)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_envelopes",
		Help:      "Envelopes handed out and not yet released",
	}, liveEnvelopes)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_envelope_bytes",
		Help:      "Bytes held by unreleased envelopes",
	}, envelopeBytes)
}

// Server runs an HTTP server exposing /metrics and /health.
type Server struct {
	server *http.Server
}

// Handler serves the metrics in gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewServer creates a metrics server on addr serving gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes the server.
func (s *Server) Stop() error {
	return s.server.Close()
}
