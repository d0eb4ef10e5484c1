package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for the HTTP surface and the engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
	Qualifications    *prometheus.CounterVec
	TicketsCreated    *prometheus.CounterVec
	TicketTransitions *prometheus.CounterVec
	Escalations       prometheus.Counter
	SweepDuration     prometheus.Histogram
}

// NewMetrics registers and returns the service metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crm_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"route", "method"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_http_errors_total",
			Help: "HTTP error responses by route and domain error code.",
		}, []string{"route", "method", "code"}),
		Qualifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_qualifications_total",
			Help: "Qualification attempts by rule and outcome.",
		}, []string{"rule", "outcome"}),
		TicketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_tickets_created_total",
			Help: "Tickets created by source and priority.",
		}, []string{"source", "priority"}),
		TicketTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_ticket_transitions_total",
			Help: "Successful ticket status transitions.",
		}, []string{"from", "to"}),
		Escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crm_escalations_total",
			Help: "Tickets escalated by the SLA sweep.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crm_sla_sweep_duration_seconds",
			Help:    "Duration of SLA sweep cycles in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs .. ~1.6s
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ErrorsTotal,
		m.Qualifications,
		m.TicketsCreated,
		m.TicketTransitions,
		m.Escalations,
		m.SweepDuration,
	)
	return m
}

// RecordRequest observes one completed HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response by domain code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(route, method, code).Inc()
}

// RecordQualification counts a qualification attempt.
func (m *Metrics) RecordQualification(ruleID, outcome string) {
	if m == nil {
		return
	}
	m.Qualifications.WithLabelValues(ruleID, outcome).Inc()
}

// RecordTicketCreated counts a new ticket.
func (m *Metrics) RecordTicketCreated(source, priority string) {
	if m == nil {
		return
	}
	m.TicketsCreated.WithLabelValues(source, priority).Inc()
}

// RecordTransition counts a successful status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.TicketTransitions.WithLabelValues(from, to).Inc()
}

// RecordSweep observes one SLA sweep cycle.
func (m *Metrics) RecordSweep(escalated int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Escalations.Add(float64(escalated))
	m.SweepDuration.Observe(duration.Seconds())
}
