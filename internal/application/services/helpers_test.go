package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway/gatewaytest"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testGateway = "Dummy"
	successURL  = "https://shop.test/success"
	failureURL  = "https://shop.test/failure"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// harness wires the services to an in-memory store and a fake gateway.
type harness struct {
	store   *memory.Store
	gw      *gatewaytest.Gateway
	info    *gatewayinfo.Registry
	factory *services.Factory
	deps    services.Deps
}

func newHarness(t *testing.T, cfg gatewayinfo.Config, ops []gateway.Operation, exts ...services.Extension) *harness {
	t.Helper()
	return newStrictHarness(t, cfg, ops, false, exts...)
}

func newStrictHarness(t *testing.T, cfg gatewayinfo.Config, ops []gateway.Operation, strict bool, exts ...services.Extension) *harness {
	t.Helper()

	gw := gatewaytest.New(testGateway, ops...)
	gateways := gatewaytest.NewFactory(gw)
	info, err := gatewayinfo.NewRegistry(gateways, map[string]gatewayinfo.Config{testGateway: cfg}, []string{testGateway})
	require.NoError(t, err)

	store := memory.NewStore()
	deps := services.Deps{
		Store:           store,
		Gateways:        gateways,
		Info:            info,
		Extensions:      services.NewExtensions(discard, strict, exts...),
		Logger:          discard,
		EndpointBaseURL: "https://pay.test",
	}
	return &harness{
		store:   store,
		gw:      gw,
		info:    info,
		factory: services.NewFactory(deps),
		deps:    deps,
	}
}

func newPayment(t *testing.T, amount string) *domain.Payment {
	t.Helper()
	p, err := domain.NewPayment(domain.Draft{
		Gateway:    testGateway,
		Money:      domain.Money{Amount: amount, Currency: "USD"},
		SuccessURL: successURL,
		FailureURL: failureURL,
	})
	require.NoError(t, err)
	return p
}

// seed stores a payment that already reached status with reference ref.
func (h *harness) seed(t *testing.T, amount string, status domain.PaymentStatus, ref string) *domain.Payment {
	t.Helper()
	p := newPayment(t, amount)
	switch status {
	case domain.StatusRefunded, domain.StatusPendingRefund:
		require.NoError(t, p.TransitionTo(domain.StatusCaptured))
	case domain.StatusPendingVoid:
		require.NoError(t, p.TransitionTo(domain.StatusAuthorized))
	}
	require.NoError(t, p.TransitionTo(status))
	p.SetTransactionReference(ref)
	require.NoError(t, h.store.Payments().Create(context.Background(), p))
	return p
}

func (h *harness) reload(t *testing.T, p *domain.Payment) *domain.Payment {
	t.Helper()
	fresh, err := h.store.Payments().FindByID(context.Background(), p.ID())
	require.NoError(t, err)
	return fresh
}

func (h *harness) messageTypes(t *testing.T, p *domain.Payment) []domain.MessageType {
	t.Helper()
	msgs, err := h.store.Messages().FindByPaymentID(context.Background(), p.ID())
	require.NoError(t, err)
	types := make([]domain.MessageType, 0, len(msgs))
	for _, m := range msgs {
		types = append(types, m.Type)
	}
	return types
}

func (h *harness) partials(t *testing.T, p *domain.Payment) []*domain.Payment {
	t.Helper()
	children, err := h.store.Payments().FindPartials(context.Background(), p.ID(), "")
	require.NoError(t, err)
	return children
}

func (h *harness) service(t *testing.T, p *domain.Payment, intent services.Intent) services.PaymentService {
	t.Helper()
	svc, err := h.factory.Service(p, intent)
	require.NoError(t, err)
	return svc
}

func card() gateway.Data {
	return gateway.Data{
		"name":        "Ada Lovelace",
		"number":      "4242424242424242",
		"expiryMonth": "12",
		"expiryYear":  "2030",
		"cvv":         "123",
	}
}

func boolPtr(b bool) *bool { return &b }

// mockExtension records hook calls. Unset expectations are allowed so a test
// only states the hooks it cares about.
type mockExtension struct {
	mock.Mock
}

func (m *mockExtension) BeforeRequest(ctx context.Context, op gateway.Operation, p *domain.Payment, data gateway.Data) error {
	return m.called("BeforeRequest", ctx, op, p, data)
}

func (m *mockExtension) AfterRequest(ctx context.Context, op gateway.Operation, p *domain.Payment, req gateway.Request) error {
	return m.called("AfterRequest", ctx, op, p, req)
}

func (m *mockExtension) AfterSend(ctx context.Context, op gateway.Operation, p *domain.Payment, req gateway.Request, resp gateway.Message) error {
	return m.called("AfterSend", ctx, op, p, req, resp)
}

func (m *mockExtension) UpdateServiceResponse(ctx context.Context, op gateway.Operation, resp *services.ServiceResponse) error {
	return m.called("UpdateServiceResponse", ctx, op, resp)
}

func (m *mockExtension) UpdatePartialPayment(ctx context.Context, partial, parent *domain.Payment) error {
	return m.called("UpdatePartialPayment", ctx, partial, parent)
}

func (m *mockExtension) OnEvent(ctx context.Context, event services.Event, resp *services.ServiceResponse) error {
	return m.called("OnEvent", ctx, event, resp)
}

func (m *mockExtension) called(method string, args ...any) error {
	for _, c := range m.ExpectedCalls {
		if c.Method == method {
			return m.MethodCalled(method, args...).Error(0)
		}
	}
	return nil
}
