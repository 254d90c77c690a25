package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "heartline"

// Metrics exposes Prometheus collectors for engine and API activity. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	interactions       prometheus.Counter
	triggers           *prometheus.CounterVec
	emotionTransitions *prometheus.CounterVec
	stageChanges       *prometheus.CounterVec
	events             *prometheus.CounterVec
	generation         *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry. The
// collectors are created once so repeated engine construction does not panic.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew builds and registers the collectors on reg. Collectors already
// registered under the same name are reused; any other registration error
// panics.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		interactions: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Interactions processed by the engine.",
		})),
		triggers: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "affection_triggers_total",
			Help:      "Affection triggers applied, by trigger.",
		}, []string{"trigger"})),
		emotionTransitions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emotion_transitions_total",
			Help:      "Emotion updates, by previous and next label.",
		}, []string{"from", "to"})),
		stageChanges: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_changes_total",
			Help:      "Relationship stage changes, by new stage.",
		}, []string{"stage"})),
		events: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Milestone and special events delivered, by kind.",
		}, []string{"kind"})),
		generation: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generator call latency, by purpose and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"purpose", "status"})),
		httpRequests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests, by route pattern and status code.",
		}, []string{"method", "route", "code"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Interaction counts one processed interaction.
func (m *Metrics) Interaction() {
	if m == nil {
		return
	}
	m.interactions.Inc()
}

// Trigger counts an applied affection trigger.
func (m *Metrics) Trigger(trigger string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(trigger).Inc()
}

// EmotionTransition counts an emotion update.
func (m *Metrics) EmotionTransition(from, to string) {
	if m == nil {
		return
	}
	m.emotionTransitions.WithLabelValues(from, to).Inc()
}

// StageChange counts reaching a new relationship stage.
func (m *Metrics) StageChange(stage string) {
	if m == nil {
		return
	}
	m.stageChanges.WithLabelValues(stage).Inc()
}

// Event counts a delivered event.
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// ObserveGeneration records a generator call.
func (m *Metrics) ObserveGeneration(purpose string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.generation.WithLabelValues(purpose, status).Observe(d.Seconds())
}

// HTTPRequest counts an API request.
func (m *Metrics) HTTPRequest(method, route, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, code).Inc()
}
