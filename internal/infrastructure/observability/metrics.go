// Package observability exports payment metrics to Prometheus. Metrics is
// registered as a service extension and as the services' gateway timer.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeRedirect  = "redirect"
	OutcomePending   = "pending"
	OutcomeCancelled = "cancelled"
)

type Metrics struct {
	services.NopExtension

	gatherer prometheus.Gatherer

	operationsTotal        *prometheus.CounterVec
	gatewayRequestDuration *prometheus.HistogramVec
	notificationsTotal     *prometheus.CounterVec
	statusTransitionsTotal *prometheus.CounterVec
}

// NewMetrics registers the payment metrics with reg. A nil reg uses a fresh
// registry, which keeps tests independent of each other.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_operations_total",
				Help: "Total number of payment service operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		gatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_gateway_request_duration_seconds",
				Help:    "Duration of gateway round trips in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"gateway", "operation"},
		),
		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_notifications_total",
				Help: "Total number of gateway notifications accepted",
			},
			[]string{"gateway", "status"},
		),
		statusTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_status_transitions_total",
				Help: "Total number of payment events by resulting status",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveGatewayRequest(gatewayName string, op gateway.Operation, d time.Duration, _ error) {
	m.gatewayRequestDuration.WithLabelValues(gatewayName, string(op)).Observe(d.Seconds())
}

func (m *Metrics) UpdateServiceResponse(_ context.Context, op gateway.Operation, resp *services.ServiceResponse) error {
	m.operationsTotal.WithLabelValues(string(op), Outcome(resp)).Inc()
	return nil
}

func (m *Metrics) AfterSend(_ context.Context, op gateway.Operation, payment *domain.Payment, _ gateway.Request, msg gateway.Message) error {
	if op != gateway.OpAcceptNotification {
		return nil
	}
	n, ok := msg.(gateway.Notification)
	if !ok {
		return nil
	}
	m.notificationsTotal.WithLabelValues(payment.Gateway(), string(n.TransactionStatus())).Inc()
	return nil
}

func (m *Metrics) OnEvent(_ context.Context, _ services.Event, resp *services.ServiceResponse) error {
	if p := resp.Payment(); p != nil {
		m.statusTransitionsTotal.WithLabelValues(string(p.Status())).Inc()
	}
	return nil
}

// Outcome is the label for a service response, most severe flag first.
func Outcome(resp *services.ServiceResponse) string {
	switch {
	case resp.IsCancelled():
		return OutcomeCancelled
	case resp.IsError():
		return OutcomeError
	case resp.IsAwaitingNotification():
		return OutcomePending
	case resp.IsRedirect():
		return OutcomeRedirect
	default:
		return OutcomeSuccess
	}
}
