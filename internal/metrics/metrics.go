// metrics содержит Prometheus-метрики жизненного цикла сессий.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "session_auth"

// Metrics — счётчики операций сервиса сессий.
type Metrics struct {
	operations *prometheus.CounterVec
	revoked    *prometheus.CounterVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Session operations by name and outcome code.",
		}, []string{"operation", "outcome"}),
		revoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_revoked_total",
			Help:      "Sessions revoked, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.operations, m.revoked)

	return m
}

// ObserveOperation учитывает завершение операции с кодом исхода ("ok", "token_expired", ...).
func (m *Metrics) ObserveOperation(operation, outcome string) {
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveRevoked учитывает n отозванных сессий по причине reason.
func (m *Metrics) ObserveRevoked(reason string, n int64) {
	if n <= 0 {
		return
	}

	m.revoked.WithLabelValues(reason).Add(float64(n))
}
