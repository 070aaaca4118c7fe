package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - счётчики жизненного цикла трамитов, уведомлений и пакетных задач.
// Все методы безопасны для nil-получателя, поэтому в тестах метрики можно не создавать.
type Metrics struct {
	TramitesCreated     *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	RejectedTransitions *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	JobFailures         *prometheus.CounterVec
}

// New регистрирует метрики в глобальном реестре. Вызывается один раз при старте.
func New() *Metrics {
	return &Metrics{
		TramitesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tramites_created_total",
			Help: "Total tramites created by type",
		}, []string{"tipo"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tramites_transitions_total",
			Help: "Total committed state transitions",
		}, []string{"from", "to"}),

		RejectedTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tramites_transitions_rejected_total",
			Help: "Total transitions rejected by the state table or a concurrent update",
		}, []string{"reason"}),

		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tramites_notifications_total",
			Help: "Notifications by channel and outcome",
		}, []string{"canal", "outcome"}), // outcome: "sent", "pending", "failed"

		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tramites_job_duration_seconds",
			Help:    "Duration of periodic jobs",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),

		JobFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tramites_job_item_failures_total",
			Help: "Per-item failures inside periodic jobs",
		}, []string{"job"}),
	}
}

func (m *Metrics) IncCreated(tipo string) {
	if m != nil {
		m.TramitesCreated.WithLabelValues(tipo).Inc()
	}
}

func (m *Metrics) IncTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncRejectedTransition(reason string) {
	if m != nil {
		m.RejectedTransitions.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncNotification(canal, outcome string) {
	if m != nil {
		m.Notifications.WithLabelValues(canal, outcome).Inc()
	}
}

// ObserveJob фиксирует длительность задачи и число элементов, упавших внутри неё.
func (m *Metrics) ObserveJob(job string, d time.Duration, failures int) {
	if m != nil {
		m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
		if failures > 0 {
			m.JobFailures.WithLabelValues(job).Add(float64(failures))
		}
	}
}
