package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestClient wraps HTTP calls to a running orchestrator. Redirects are not
// followed so callback responses can be inspected.
type TestClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// APIError is a non-2xx answer from the payment API.
type APIError struct {
	Status int
	Code   string
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Msg)
}

func (c *TestClient) do(t *testing.T, method, path string, body, out any) error {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		var errResp rest.ErrorResponse
		_ = json.Unmarshal(bodyBytes, &errResp)
		return &APIError{Status: resp.StatusCode, Code: errResp.Error.Code, Msg: errResp.Error.Message}
	}

	envelope := rest.SuccessResponse{Data: out}
	require.NoError(t, json.Unmarshal(bodyBytes, &envelope), string(bodyBytes))
	return nil
}

func (c *TestClient) CreatePayment(t *testing.T, gatewayName, amount string) (*rest.Payment, error) {
	var p rest.Payment
	err := c.do(t, http.MethodPost, "/api/v1/payments", map[string]string{
		"gateway":  gatewayName,
		"amount":   amount,
		"currency": "USD",
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Initiate runs intent on the payment. data may be nil.
func (c *TestClient) Initiate(t *testing.T, id uuid.UUID, intent string, data map[string]any) (*rest.ServiceResult, error) {
	var result rest.ServiceResult
	err := c.do(t, http.MethodPost, "/api/v1/payments/"+id.String()+"/"+intent, map[string]any{"data": data}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *TestClient) GetPayment(t *testing.T, id uuid.UUID) (*rest.Payment, error) {
	var p rest.Payment
	if err := c.do(t, http.MethodGet, "/api/v1/payments/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *TestClient) Messages(t *testing.T, id uuid.UUID) ([]rest.Message, error) {
	var msgs []rest.Message
	if err := c.do(t, http.MethodGet, "/api/v1/payments/"+id.String()+"/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Callback calls the gateway endpoint the way a payer's browser would.
func (c *TestClient) Callback(t *testing.T, identifier, action string) *http.Response {
	t.Helper()
	resp, err := c.httpClient.Get(c.baseURL + "/paymentendpoint/" + identifier + "/" + action)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func (c *TestClient) Healthy() bool {
	resp, err := c.httpClient.Get(c.baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
