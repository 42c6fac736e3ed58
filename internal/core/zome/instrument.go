package zome

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes used as the "outcome" label.
const (
	OutcomeOK        = "ok"
	OutcomeRemote    = "remote_error"
	OutcomeTransport = "transport_error"
	OutcomeCanceled  = "canceled"
	OutcomeOther     = "error"
)

type instrumented struct {
	next     Caller
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// Instrument wraps next so that every call is counted by zome, fn and outcome
// and its latency observed. Collectors are registered with reg.
func Instrument(next Caller, reg prometheus.Registerer) Caller {
	factory := promauto.With(reg)

	return &instrumented{
		next: next,
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lobby_zome_calls_total",
				Help: "Total number of zome calls",
			},
			[]string{"zome", "fn", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lobby_zome_call_duration_seconds",
				Help:    "Duration of zome calls in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"zome", "fn"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lobby_zome_calls_in_flight",
				Help: "Number of zome calls awaiting a response",
			},
		),
	}
}

func (c *instrumented) Call(ctx context.Context, req Request, out any) error {
	c.inFlight.Inc()
	defer c.inFlight.Dec()

	start := time.Now()
	err := c.next.Call(ctx, req, out)

	c.duration.WithLabelValues(req.Zome, req.Fn).Observe(time.Since(start).Seconds())
	c.calls.WithLabelValues(req.Zome, req.Fn, outcome(err)).Inc()
	return err
}

func outcome(err error) string {
	var re *RemoteError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &re):
		return OutcomeRemote
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case errors.Is(err, ErrTransport):
		return OutcomeTransport
	default:
		return OutcomeOther
	}
}
