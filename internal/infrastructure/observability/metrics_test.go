package observability_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway/gatewaytest"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/observability"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeps(t *testing.T, gw *gatewaytest.Gateway, m *observability.Metrics) services.Deps {
	t.Helper()
	gateways := gatewaytest.NewFactory(gw)
	info, err := gatewayinfo.NewRegistry(gateways, nil, []string{gw.Name()})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return services.Deps{
		Store:           memory.NewStore(),
		Gateways:        gateways,
		Info:            info,
		Extensions:      services.NewExtensions(logger, true, m),
		Logger:          logger,
		Timer:           m,
		EndpointBaseURL: "https://pay.test",
	}
}

func newPayment(t *testing.T, gatewayName string) *domain.Payment {
	t.Helper()
	p, err := domain.NewPayment(domain.Draft{
		Gateway:    gatewayName,
		Money:      domain.Money{Amount: "12.00", Currency: "USD"},
		SuccessURL: "https://shop.test/success",
		FailureURL: "https://shop.test/failure",
	})
	require.NoError(t, err)
	return p
}

func card() gateway.Data {
	return gateway.Data{"name": "Ada", "number": "4242424242424242", "expiryMonth": "12", "expiryYear": "2030", "cvv": "123"}
}

func TestMetrics_RecordsServiceOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	gw := gatewaytest.New("Dummy", gateway.OpPurchase)
	deps := newDeps(t, gw, m)
	ctx := context.Background()

	_, err := services.NewPurchaseService(newPayment(t, "Dummy"), deps).Initiate(ctx, card())
	require.NoError(t, err)

	gw.SendFn = func(gateway.Operation, gateway.Data) (gateway.Response, error) {
		return gatewaytest.Failure("declined"), nil
	}
	_, err = services.NewPurchaseService(newPayment(t, "Dummy"), deps).Initiate(ctx, card())
	require.NoError(t, err)

	body := scrape(t, m)
	assert.Contains(t, body, `payment_operations_total{operation="purchase",outcome="success"} 1`)
	assert.Contains(t, body, `payment_operations_total{operation="purchase",outcome="error"} 1`)
	assert.Contains(t, body, `payment_status_transitions_total{status="Captured"} 1`)
	assert.Contains(t, body, `payment_gateway_request_duration_seconds_count{gateway="Dummy",operation="purchase"} 2`)

	count, err := testutil.GatherAndCount(reg, "payment_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_CountsNotifications(t *testing.T) {
	m := observability.NewMetrics(nil)
	p := newPayment(t, "Bank")
	ctx := context.Background()

	n := gatewaytest.Notify(gateway.NotificationCompleted, "auth-1")
	require.NoError(t, m.AfterSend(ctx, gateway.OpAcceptNotification, p, nil, n))
	require.NoError(t, m.AfterSend(ctx, gateway.OpCapture, p, nil, gatewaytest.Success("auth-1")))

	assert.Contains(t, scrape(t, m), `payment_notifications_total{gateway="Bank",status="completed"} 1`)
}

func TestMetrics_ObserveGatewayRequest(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.ObserveGatewayRequest("Bank", gateway.OpCapture, 150*time.Millisecond, nil)

	assert.Contains(t, scrape(t, m), `payment_gateway_request_duration_seconds_count{gateway="Bank",operation="capture"} 1`)
}

func TestOutcome(t *testing.T) {
	p, err := domain.NewPayment(domain.Draft{Gateway: "Bank", Money: domain.Money{Amount: "1.00", Currency: "USD"}})
	require.NoError(t, err)

	tests := []struct {
		name string
		resp *services.ServiceResponse
		want string
	}{
		{"success", services.NewServiceResponse(p), observability.OutcomeSuccess},
		{"error", services.NewServiceResponse(p, services.FlagError), observability.OutcomeError},
		{"pending", services.NewServiceResponse(p, services.FlagPending), observability.OutcomePending},
		{"cancelled wins", services.NewServiceResponse(p, services.FlagCancelled|services.FlagError), observability.OutcomeCancelled},
		{"redirect", services.NewServiceResponse(p).SetGatewayResponse(gatewaytest.Redirect("https://hosted.test", "r")), observability.OutcomeRedirect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, observability.Outcome(tt.resp))
		})
	}
}

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
