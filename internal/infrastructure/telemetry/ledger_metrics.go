package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "ledger"

// LedgerMetrics exposes ledger business metrics to Prometheus. It subscribes
// to the event bus for entry lifecycle counters and observes recurrence ticks.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type LedgerMetrics struct {
	registry *prometheus.Registry

	eventsTotal          *prometheus.CounterVec
	entriesCreated       *prometheus.CounterVec
	entriesValidated     *prometheus.CounterVec
	validatedAmount      *prometheus.CounterVec
	entriesCanceled      *prometheus.CounterVec
	installmentsPaid     prometheus.Counter
	installmentsPaidSum  prometheus.Counter
	ticksTotal           *prometheus.CounterVec
	tickDuration         prometheus.Histogram
	materializedTotal    prometheus.Counter
	lastTickCompletedSec prometheus.Gauge
}

// NewLedgerMetrics creates the metrics on a private registry that also
// carries the Go runtime and process collectors
func NewLedgerMetrics() *LedgerMetrics {
	m := &LedgerMetrics{registry: prometheus.NewRegistry()}

	m.eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "events_total",
		Help:      "Domain events delivered to the metrics handler, by type.",
	}, []string{"event_type"})

	m.entriesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "entries_created_total",
		Help:      "Pre-entries created, by kind and origin.",
	}, []string{"kind", "origin"})

	m.entriesValidated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "entries_validated_total",
		Help:      "Entries approved, by kind and origin.",
	}, []string{"kind", "origin"})

	m.validatedAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "entries_validated_amount_total",
		Help:      "Sum of approved entry totals in BRL, by kind.",
	}, []string{"kind"})

	m.entriesCanceled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "entries_canceled_total",
		Help:      "Entries canceled, by kind.",
	}, []string{"kind"})

	m.installmentsPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "installments_paid_total",
		Help:      "Installments marked paid.",
	})

	m.installmentsPaidSum = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "installments_paid_amount_total",
		Help:      "Sum of paid installment amounts in BRL.",
	})

	m.ticksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "recurrence",
		Name:      "ticks_total",
		Help:      "Recurrence tick attempts, by outcome.",
	}, []string{"outcome"})

	m.tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "recurrence",
		Name:      "tick_duration_seconds",
		Help:      "Duration of recurrence tick attempts.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	m.materializedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "recurrence",
		Name:      "materialized_entries_total",
		Help:      "Pre-entries materialized from recurring definitions.",
	})

	m.lastTickCompletedSec = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "recurrence",
		Name:      "last_completed_tick_timestamp_seconds",
		Help:      "Unix time of the last completed recurrence tick.",
	})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.eventsTotal,
		m.entriesCreated,
		m.entriesValidated,
		m.validatedAmount,
		m.entriesCanceled,
		m.installmentsPaid,
		m.installmentsPaidSum,
		m.ticksTotal,
		m.tickDuration,
		m.materializedTotal,
		m.lastTickCompletedSec,
	)

	return m
}

// Registry returns the registry backing the metrics
func (m *LedgerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EventTypes subscribes to every event
func (m *LedgerMetrics) EventTypes() []string {
	return nil
}

// Handle updates counters for a delivered domain event. It never fails.
func (m *LedgerMetrics) Handle(_ context.Context, event shared.DomainEvent) error {
	m.eventsTotal.WithLabelValues(event.EventType()).Inc()

	switch e := event.(type) {
	case *ledger.EntryCreatedEvent:
		m.entriesCreated.WithLabelValues(string(e.Kind), string(e.Origin)).Inc()
	case *ledger.EntryValidatedEvent:
		m.entriesValidated.WithLabelValues(string(e.Kind), string(e.Origin)).Inc()
		m.validatedAmount.WithLabelValues(string(e.Kind)).Add(e.AmountTotal.Amount().InexactFloat64())
	case *ledger.EntryCanceledEvent:
		m.entriesCanceled.WithLabelValues(string(e.Kind)).Inc()
	case *ledger.InstallmentPaidEvent:
		m.installmentsPaid.Inc()
		m.installmentsPaidSum.Add(e.PaidAmount.Amount().InexactFloat64())
	}
	return nil
}

// ObserveTick records one recurrence tick attempt
func (m *LedgerMetrics) ObserveTick(outcome string, duration time.Duration, materialized int) {
	m.ticksTotal.WithLabelValues(outcome).Inc()
	m.tickDuration.Observe(duration.Seconds())
	if materialized > 0 {
		m.materializedTotal.Add(float64(materialized))
	}
	if outcome == "completed" {
		m.lastTickCompletedSec.SetToCurrentTime()
	}
}

var _ shared.EventHandler = (*LedgerMetrics)(nil)
