package observability

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/flowchain/pkg/domain"
)

const namespace = "flowchain"

// Metrics records execution and signing activity.
type Metrics struct {
	transitions       *prometheus.CounterVec
	failures          *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	signatureRequests prometheus.Counter
	signatureOutcomes *prometheus.CounterVec
	signatureDuration prometheus.Histogram
	inflight          prometheus.Gauge

	mu      sync.Mutex
	started map[string]time.Time
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_transitions_total",
			Help:      "Execution state transitions by target state.",
		}, []string{"state"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_failures_total",
			Help:      "Failed executions by failure kind.",
		}, []string{"kind"}),
		executionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Time from assembling to a final state.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"state"}),
		signatureRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signature_requests_total",
			Help:      "Remote signature requests sent.",
		}),
		signatureOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signature_responses_total",
			Help:      "Remote signature responses by outcome.",
		}, []string{"outcome"}),
		signatureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "signature_duration_seconds",
			Help:      "Time a remote signer took to answer.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executions_inflight",
			Help:      "Executions not yet in a final state.",
		}),
		started: make(map[string]time.Time),
	}
	if reg != nil {
		reg.MustRegister(
			m.transitions, m.failures, m.executionDuration,
			m.signatureRequests, m.signatureOutcomes, m.signatureDuration,
			m.inflight,
		)
	}
	return m
}

// Hooks returns the callbacks feeding m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange:       m.stateChange,
		OnSignatureRequest:  m.signatureRequest,
		OnSignatureResponse: m.signatureResponse,
	}
}

func (m *Metrics) stateChange(_ context.Context, ev *domain.ExecutionEvent) {
	m.transitions.WithLabelValues(string(ev.To)).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.From == "" {
		m.started[ev.ExecutionID] = ev.Timestamp
		m.inflight.Inc()
	}
	if !ev.To.IsFinal() {
		return
	}
	if ev.To == domain.StateFailed {
		m.failures.WithLabelValues(domain.FailureKind(ev.Err)).Inc()
	}
	if start, ok := m.started[ev.ExecutionID]; ok {
		m.executionDuration.WithLabelValues(string(ev.To)).Observe(ev.Timestamp.Sub(start).Seconds())
		delete(m.started, ev.ExecutionID)
		m.inflight.Dec()
	}
}

func (m *Metrics) signatureRequest(context.Context, *domain.SignatureEvent) {
	m.signatureRequests.Inc()
}

func (m *Metrics) signatureResponse(_ context.Context, ev *domain.SignatureEvent) {
	outcome := "signed"
	if ev.Err != nil {
		outcome = "failed"
	}
	m.signatureOutcomes.WithLabelValues(outcome).Inc()
	m.signatureDuration.Observe(ev.Duration.Seconds())
}

// Chain returns hooks that call each of hooks in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, ev *domain.ExecutionEvent) {
			for _, h := range hooks {
				h.StateChange(ctx, ev)
			}
		},
		OnSignatureRequest: func(ctx context.Context, ev *domain.SignatureEvent) {
			for _, h := range hooks {
				h.SignatureRequest(ctx, ev)
			}
		},
		OnSignatureResponse: func(ctx context.Context, ev *domain.SignatureEvent) {
			for _, h := range hooks {
				h.SignatureResponse(ctx, ev)
			}
		},
	}
}
