package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	pollAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devnetup",
			Subsystem: "readiness",
			Name:      "poll_attempts_total",
			Help:      "Readiness poll attempts per target.",
		}, []string{"target"},
	)
	pollOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devnetup",
			Subsystem: "readiness",
			Name:      "poll_outcomes_total",
			Help:      "Terminal readiness poll outcomes (ready, timeout) per target.",
		}, []string{"target", "outcome"},
	)
	startAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devnetup",
			Subsystem: "bridge",
			Name:      "start_attempts_total",
			Help:      "Bridge start attempts by outcome (ready, process_exited, service_unready).",
		}, []string{"outcome"},
	)
	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devnetup",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process launches.",
		}, []string{"name"},
	)
	processStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devnetup",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of observed process exits.",
		}, []string{"name"},
	)
	orchestrationPhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "devnetup",
			Subsystem: "orchestrator",
			Name:      "phase",
			Help:      "Current orchestration phase (1 = active) per phase label.",
		}, []string{"phase"},
	)
)

// Register registers all collectors with reg (default registry when nil).
// Safe to call once; a second call returns an AlreadyRegisteredError from
// the underlying registry.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		pollAttempts, pollOutcomes, startAttempts, processStarts, processStops, orchestrationPhase,
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

func IncPollAttempt(target string) {
	if regOK.Load() {
		pollAttempts.WithLabelValues(target).Inc()
	}
}

func IncPollOutcome(target, outcome string) {
	if regOK.Load() {
		pollOutcomes.WithLabelValues(target, outcome).Inc()
	}
}

func IncStartAttempt(outcome string) {
	if regOK.Load() {
		startAttempts.WithLabelValues(outcome).Inc()
	}
}

func IncProcessStart(name string) {
	if regOK.Load() {
		processStarts.WithLabelValues(name).Inc()
	}
}

func IncProcessStop(name string) {
	if regOK.Load() {
		processStops.WithLabelValues(name).Inc()
	}
}

// SetPhase marks phase as the single active phase.
func SetPhase(phase string) {
	if !regOK.Load() {
		return
	}
	orchestrationPhase.Reset()
	orchestrationPhase.WithLabelValues(phase).Set(1)
}

// Serve exposes /metrics on addr. It blocks.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	return server.ListenAndServe()
}
