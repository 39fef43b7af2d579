// Package metrics exposes prometheus collectors for the sync engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync counts sync engine activity. A nil *Sync is valid and records nothing.
type Sync struct {
	registry *prometheus.Registry

	polls           *prometheus.CounterVec
	pollErrors      prometheus.Counter
	skippedTicks    prometheus.Counter
	merged          prometheus.Counter
	optimistic      *prometheus.CounterVec
	sendFailures    prometheus.Counter
	droppedEvents   prometheus.Counter
	activePollLoops prometheus.Gauge
}

// New creates the collectors on a private registry together with the
// standard Go and process collectors.
func New() *Sync {
	reg := prometheus.NewRegistry()
	s := &Sync{
		registry: reg,
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portalchat",
			Name:      "polls_total",
			Help:      "Completed room fetches by kind (initial, delta, peek, older).",
		}, []string{"kind"}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portalchat",
			Name:      "poll_errors_total",
			Help:      "Room fetches that failed.",
		}),
		skippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portalchat",
			Name:      "poll_skipped_ticks_total",
			Help:      "Poll ticks skipped because a fetch for the room was still in flight.",
		}),
		merged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portalchat",
			Name:      "messages_merged_total",
			Help:      "Confirmed messages inserted into room stores.",
		}),
		optimistic: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portalchat",
			Name:      "optimistic_total",
			Help:      "Optimistic entries by outcome such as \"matched\".",
		}, []string{"outcome"}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portalchat",
			Name:      "send_failures_total",
			Help:      "Sends rejected by the backend.",
		}),
		droppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portalchat",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber was not keeping up.",
		}),
		activePollLoops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portalchat",
			Name:      "poll_loops",
			Help:      "Room poll loops currently running.",
		}),
	}
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		s.polls, s.pollErrors, s.skippedTicks, s.merged,
		s.optimistic, s.sendFailures, s.droppedEvents, s.activePollLoops,
	)
	return s
}

// Handler serves the registry in the prometheus text format.
func (s *Sync) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Poll counts a completed fetch of the given kind.
func (s *Sync) Poll(kind string) {
	if s != nil {
		s.polls.WithLabelValues(kind).Inc()
	}
}

// PollError counts a fetch that failed.
func (s *Sync) PollError() {
	if s != nil {
		s.pollErrors.Inc()
	}
}

// SkippedTick counts a tick dropped because a poll was still in flight.
func (s *Sync) SkippedTick() {
	if s != nil {
		s.skippedTicks.Inc()
	}
}

// Merged counts n messages added to a room.
func (s *Sync) Merged(n int) {
	if s != nil && n > 0 {
		s.merged.Add(float64(n))
	}
}

// Optimistic counts n optimistic entries reaching outcome such as "matched".
func (s *Sync) Optimistic(outcome string, n int) {
	if s != nil && n > 0 {
		s.optimistic.WithLabelValues(outcome).Add(float64(n))
	}
}

// SendFailure counts a send the backend rejected.
func (s *Sync) SendFailure() {
	if s != nil {
		s.sendFailures.Inc()
	}
}

// DroppedEvent counts an event a slow subscriber missed.
func (s *Sync) DroppedEvent() {
	if s != nil {
		s.droppedEvents.Inc()
	}
}

// PollLoops adjusts the running poll loop gauge by delta.
func (s *Sync) PollLoops(delta int) {
	if s != nil {
		s.activePollLoops.Add(float64(delta))
	}
}
