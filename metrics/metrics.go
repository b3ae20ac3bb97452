// Package metrics instruments RPC evaluation with Prometheus.
//
// The decorator records one observation per call, labelled by outcome: "ok"
// for success, otherwise the dispatch error kind ("method", "argument",
// "evaluation", "application", "protocol") or "unknown" for errors outside
// the taxonomy. Method names are client-controlled and are not used as
// labels.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnehpets/onerpc/dispatch"
	"github.com/mnehpets/onerpc/jsonrpc"
)

// OutcomeOK labels successful calls.
const OutcomeOK = "ok"

// Evaluator wraps a jsonrpc.Evaluator and records call counts, durations
// and calls in flight.
type Evaluator struct {
	next     jsonrpc.Evaluator
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewEvaluator registers the collectors with reg and returns a decorator of
// next. A nil reg selects prometheus.DefaultRegisterer. Registering twice
// with the same registry panics.
func NewEvaluator(next jsonrpc.Evaluator, reg prometheus.Registerer) *Evaluator {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Evaluator{
		next: next,
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "onerpc_calls_total",
			Help: "Total RPC calls by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onerpc_call_duration_seconds",
			Help:    "RPC call duration by outcome",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"outcome"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "onerpc_calls_in_flight",
			Help: "RPC calls currently being evaluated",
		}),
	}
}

// Evaluate implements jsonrpc.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, method string, args dispatch.Arguments) (any, error) {
	e.inFlight.Inc()
	defer e.inFlight.Dec()

	start := time.Now()
	result, err := e.next.Evaluate(ctx, method, args)
	outcome := Outcome(err)
	e.calls.WithLabelValues(outcome).Inc()
	e.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return result, err
}

// Outcome returns the label recorded for a call that returned err.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if rpcErr, ok := dispatch.AsError(err); ok {
		return rpcErr.Kind.String()
	}
	return "unknown"
}

// Handler serves the metrics gathered by g in the Prometheus text format.
// A nil g selects prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ jsonrpc.Evaluator = (*Evaluator)(nil)
