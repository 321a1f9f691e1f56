package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "standbot"

// Metrics — счётчики визарда. Регистрируются в переданном реестре,
// чтобы тесты могли использовать свой prometheus.NewRegistry().
type Metrics struct {
	Transitions *prometheus.CounterVec
	Submissions *prometheus.CounterVec
	Payments    *prometheus.CounterVec
	OrderAmount prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "transitions_total",
			Help:      "Wizard transitions by name and result.",
		}, []string{"transition", "result"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Configuration submissions by result.",
		}, []string{"result"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment intents and outcomes by result.",
		}, []string{"result"}),
		OrderAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_amount",
			Help:      "Grand total of submitted configurations, rubles.",
			Buckets:   []float64{0, 1000, 5000, 10000, 50000, 100000, 500000},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.Submissions, m.Payments, m.OrderAmount)
	}
	return m
}

// Transition учитывает переход визарда. kind — класс ошибки (wizard.Kind), пустой — "ok".
func (m *Metrics) Transition(name string, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.Transitions.WithLabelValues(name, kind).Inc()
}

func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) Payment(result string) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(result).Inc()
}

// Order — итог заказа в копейках.
func (m *Metrics) Order(kopecks int64) {
	if m == nil {
		return
	}
	m.OrderAmount.Observe(float64(kopecks) / 100)
}
