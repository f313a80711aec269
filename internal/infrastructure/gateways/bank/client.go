package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client is the HTTP client for the bank API. Mutating calls carry an
// Idempotency-Key and go through the retry policy.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      RetryPolicy
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, retry RetryPolicy) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		retry:      retry,
	}
}

func (c *Client) Authorize(ctx context.Context, req AuthorizationRequest, idempotencyKey string) (*AuthorizationResponse, error) {
	return post[AuthorizationRequest, AuthorizationResponse](ctx, c, "/api/v1/authorizations", &req, idempotencyKey)
}

func (c *Client) Charge(ctx context.Context, req AuthorizationRequest, idempotencyKey string) (*ChargeResponse, error) {
	return post[AuthorizationRequest, ChargeResponse](ctx, c, "/api/v1/charges", &req, idempotencyKey)
}

func (c *Client) Capture(ctx context.Context, req CaptureRequest, idempotencyKey string) (*CaptureResponse, error) {
	return post[CaptureRequest, CaptureResponse](ctx, c, "/api/v1/captures", &req, idempotencyKey)
}

func (c *Client) Void(ctx context.Context, req VoidRequest, idempotencyKey string) (*VoidResponse, error) {
	return post[VoidRequest, VoidResponse](ctx, c, "/api/v1/voids", &req, idempotencyKey)
}

func (c *Client) Refund(ctx context.Context, req RefundRequest, idempotencyKey string) (*RefundResponse, error) {
	return post[RefundRequest, RefundResponse](ctx, c, "/api/v1/refunds", &req, idempotencyKey)
}

func (c *Client) CreateCard(ctx context.Context, req CardRequest, idempotencyKey string) (*CardResponse, error) {
	return post[CardRequest, CardResponse](ctx, c, "/api/v1/cards", &req, idempotencyKey)
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest, idempotencyKey string) (*CheckoutSession, error) {
	return post[CheckoutSessionRequest, CheckoutSession](ctx, c, "/api/v1/checkout-sessions", &req, idempotencyKey)
}

func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	path := "/api/v1/checkout-sessions/" + url.PathEscape(sessionID)
	return retry(ctx, c.retry, func(ctx context.Context) (*CheckoutSession, error) {
		return sendRequest[any, CheckoutSession](ctx, c, http.MethodGet, path, nil, "")
	})
}

func post[Req any, Resp any](ctx context.Context, c *Client, path string, body *Req, idempotencyKey string) (*Resp, error) {
	return retry(ctx, c.retry, func(ctx context.Context) (*Resp, error) {
		return sendRequest[Req, Resp](ctx, c, http.MethodPost, path, body, idempotencyKey)
	})
}

func sendRequest[Req any, Resp any](ctx context.Context, c *Client, method, path string, reqBody *Req, idempotencyKey string) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		var bankErrResp BankErrorResponse
		if err := json.Unmarshal(body, &bankErrResp); err != nil || bankErrResp.Err == "" {
			return nil, &BankError{
				Code:       "unexpected_response",
				Message:    string(body),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &BankError{
			Code:       bankErrResp.Err,
			Message:    bankErrResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var bankResp Resp
	if err := json.NewDecoder(resp.Body).Decode(&bankResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &bankResp, nil
}
