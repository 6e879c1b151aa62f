// Package metrics provides a wirekv.ConnTrace implementation backed by
// Prometheus counters and gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wirekv/wirekv"
)

// Collector holds the Prometheus instruments fed by a ConnTrace. Share one
// Collector across every Conn a process dials against the same logical
// backend; the resulting metrics are aggregate, not per-connection.
type Collector struct {
	submitted     prometheus.Counter
	completed     prometheus.Counter
	completedErrs prometheus.Counter
	protocolErrs  prometheus.Counter
	closed        prometheus.Counter
	modeChanges   prometheus.Counter
	inFlight      prometheus.Gauge
	invariantErrs prometheus.Counter
}

// NewCollector builds a Collector and registers its instruments with
// registry. Call Trace to obtain the *wirekv.ConnTrace to pass to Dial or
// NewConn.
func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirekv",
			Subsystem: "conn",
			Name:      "submitted_total",
			Help:      "Total commands submitted to the connection.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirekv",
			Subsystem: "conn",
			Name:      "completed_total",
			Help:      "Total command completions, successful or not.",
		}),
		completedErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirekv",
			Subsystem: "conn",
			Name:      "completed_errors_total",
			Help:      "Total command completions that carried a non-nil error.",
		}),
		protocolErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirekv",
			Subsystem: "conn",
			Name:      "protocol_errors_total",
			Help:      "Total malformed-reply errors surfaced by the decoder.",
		}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirekv",
			Subsystem: "conn",
			Name:      "closed_total",
			Help:      "Total connection teardowns.",
		}),
		modeChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirekv",
			Subsystem: "conn",
			Name:      "mode_changes_total",
			Help:      "Total transitions between normal and channel mode.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wirekv",
			Subsystem: "conn",
			Name:      "in_flight",
			Help:      "Commands submitted but not yet completed, summed across connections sharing this collector.",
		}),
		invariantErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wirekv",
			Subsystem: "conn",
			Name:      "invariant_violations_total",
			Help:      "Total conditions detected that the protocol guarantees cannot happen.",
		}),
	}

	registry.MustRegister(
		c.submitted,
		c.completed,
		c.completedErrs,
		c.protocolErrs,
		c.closed,
		c.modeChanges,
		c.inFlight,
		c.invariantErrs,
	)
	return c
}

// Trace returns a ConnTrace that feeds c's instruments. The returned value
// can be passed to multiple Dial/NewConn calls; its callbacks are safe for
// concurrent use by the multiple connections' loop goroutines.
func (c *Collector) Trace() *wirekv.ConnTrace {
	return &wirekv.ConnTrace{
		Submitted: func(wirekv.ConnTraceSubmitted) {
			c.submitted.Inc()
			c.inFlight.Inc()
		},
		Completed: func(e wirekv.ConnTraceCompleted) {
			c.completed.Inc()
			c.inFlight.Dec()
			if e.Err != nil {
				c.completedErrs.Inc()
			}
		},
		ModeChanged: func(wirekv.ConnTraceModeChanged) {
			c.modeChanges.Inc()
		},
		ProtocolError: func(wirekv.ConnTraceProtocolError) {
			c.protocolErrs.Inc()
		},
		Closed: func(wirekv.ConnTraceClosed) {
			c.closed.Inc()
		},
		InvariantViolation: func(wirekv.ConnTraceInvariantViolation) {
			c.invariantErrs.Inc()
		},
	}
}
