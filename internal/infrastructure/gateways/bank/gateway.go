// Package bank is a card acquirer gateway speaking the bank's JSON API.
//
// In onsite mode card data is posted directly. In hosted mode the payer is
// redirected to the bank's checkout page and the payment is completed when
// they return. Both modes accept webhooks on the notify URL.
package bank

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/DanielPopoola/payment-orchestrator/internal/money"
	"github.com/google/uuid"
)

const Driver = "bank"

const (
	ModeOnsite = "onsite"
	ModeHosted = "hosted"
)

// Gateway parameters.
const (
	ParamBaseURL       = "base_url"
	ParamAPIKey        = "api_key"
	ParamMode          = "mode"
	ParamTimeout       = "timeout"
	ParamMaxRetries    = "max_retries"
	ParamBaseDelay     = "base_delay"
	ParamWebhookSecret = "webhook_secret"
	ParamTokenKey      = "token_key"
)

type Gateway struct {
	name          string
	mode          string
	tokenKey      string
	webhookSecret string
	client        *Client
	inbound       *http.Request
}

// New is the gateway.Constructor for the bank driver.
func New(name string, params map[string]string, opts gateway.Options) (gateway.Gateway, error) {
	baseURL := strings.TrimRight(params[ParamBaseURL], "/")
	if baseURL == "" {
		return nil, fmt.Errorf("bank gateway %q: %s is required", name, ParamBaseURL)
	}

	mode := params[ParamMode]
	switch mode {
	case "":
		mode = ModeOnsite
	case ModeOnsite, ModeHosted:
	default:
		return nil, fmt.Errorf("bank gateway %q: unknown mode %q", name, mode)
	}

	policy := RetryPolicy{BaseDelay: 200 * time.Millisecond, MaxRetries: 3}
	if v := params[ParamMaxRetries]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("bank gateway %q: %s: %w", name, ParamMaxRetries, err)
		}
		policy.MaxRetries = n
	}
	if v := params[ParamBaseDelay]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("bank gateway %q: %s: %w", name, ParamBaseDelay, err)
		}
		policy.BaseDelay = d
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if v := params[ParamTimeout]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("bank gateway %q: %s: %w", name, ParamTimeout, err)
		}
		c := *httpClient
		c.Timeout = d
		httpClient = &c
	}

	tokenKey := params[ParamTokenKey]
	if tokenKey == "" {
		tokenKey = "token"
	}

	return &Gateway{
		name:          name,
		mode:          mode,
		tokenKey:      tokenKey,
		webhookSecret: params[ParamWebhookSecret],
		client:        NewClient(baseURL, params[ParamAPIKey], httpClient, policy),
		inbound:       opts.HTTPRequest,
	}, nil
}

func (g *Gateway) Name() string { return g.name }

func (g *Gateway) Supports(op gateway.Operation) bool {
	switch op {
	case gateway.OpPurchase, gateway.OpAuthorize, gateway.OpCreateCard,
		gateway.OpCapture, gateway.OpRefund, gateway.OpVoid, gateway.OpAcceptNotification:
		return true
	case gateway.OpCompletePurchase, gateway.OpCompleteAuthorize, gateway.OpCompleteCreateCard:
		return g.mode == ModeHosted
	}
	return false
}

// exchange performs one bank call. A decline is reported as an unsuccessful
// response, anything else that fails is a gateway error.
type exchange func(ctx context.Context, d gateway.Data, idempotencyKey string) (gateway.Response, error)

func (g *Gateway) request(data gateway.Data, fn exchange) gateway.Request {
	key := uuid.NewString()
	return gateway.NewFuncRequest(data, func(ctx context.Context, d gateway.Data) (gateway.Response, error) {
		resp, err := fn(ctx, d, key)
		if err != nil {
			if bankErr, ok := IsBankError(err); ok && bankErr.IsDecline() {
				return &gateway.BasicResponse{Text: bankErr.Message, ResultCode: bankErr.Code, Raw: bankErr}, nil
			}
			if inv, ok := err.(*invalidRequestError); ok {
				return &gateway.BasicResponse{Text: inv.Error(), ResultCode: "invalid_request"}, nil
			}
			return nil, err
		}
		return resp, nil
	})
}

func (g *Gateway) Purchase(data gateway.Data) gateway.Request {
	if g.mode == ModeHosted {
		return g.checkout(data, IntentPurchase)
	}
	return g.request(data, func(ctx context.Context, d gateway.Data, key string) (gateway.Response, error) {
		req, err := g.authorizationRequest(d)
		if err != nil {
			return nil, err
		}
		resp, err := g.client.Charge(ctx, req, key)
		if err != nil {
			return nil, err
		}
		return result(resp.Status == StatusCaptured, resp.AuthorizationID, resp.Status, resp), nil
	})
}

func (g *Gateway) Authorize(data gateway.Data) gateway.Request {
	if g.mode == ModeHosted {
		return g.checkout(data, IntentAuthorize)
	}
	return g.request(data, func(ctx context.Context, d gateway.Data, key string) (gateway.Response, error) {
		req, err := g.authorizationRequest(d)
		if err != nil {
			return nil, err
		}
		resp, err := g.client.Authorize(ctx, req, key)
		if err != nil {
			return nil, err
		}
		return result(resp.Status == StatusAuthorized, resp.AuthorizationID, resp.Status, resp), nil
	})
}

func (g *Gateway) CreateCard(data gateway.Data) gateway.Request {
	if g.mode == ModeHosted {
		return g.checkout(data, IntentTokenize)
	}
	return g.request(data, func(ctx context.Context, d gateway.Data, key string) (gateway.Response, error) {
		card, err := cardRequest(d)
		if err != nil {
			return nil, err
		}
		resp, err := g.client.CreateCard(ctx, card, key)
		if err != nil {
			return nil, err
		}
		return result(resp.Status == StatusActive, resp.CardToken, resp.Status, resp), nil
	})
}

func (g *Gateway) Capture(data gateway.Data) gateway.Request {
	return g.request(data, func(ctx context.Context, d gateway.Data, key string) (gateway.Response, error) {
		amount, err := minorUnits(d.String("amount"))
		if err != nil {
			return nil, err
		}
		resp, err := g.client.Capture(ctx, CaptureRequest{
			Amount:          amount,
			AuthorizationID: d.String("transactionReference"),
		}, key)
		if err != nil {
			return nil, err
		}
		return result(resp.Status == StatusCaptured, resp.AuthorizationID, resp.Status, resp), nil
	})
}

func (g *Gateway) Refund(data gateway.Data) gateway.Request {
	return g.request(data, func(ctx context.Context, d gateway.Data, key string) (gateway.Response, error) {
		amount, err := minorUnits(d.String("amount"))
		if err != nil {
			return nil, err
		}
		resp, err := g.client.Refund(ctx, RefundRequest{
			Amount:          amount,
			AuthorizationID: d.String("transactionReference"),
		}, key)
		if err != nil {
			return nil, err
		}
		return result(resp.Status == StatusRefunded, resp.AuthorizationID, resp.Status, resp), nil
	})
}

func (g *Gateway) Void(data gateway.Data) gateway.Request {
	return g.request(data, func(ctx context.Context, d gateway.Data, key string) (gateway.Response, error) {
		resp, err := g.client.Void(ctx, VoidRequest{AuthorizationID: d.String("transactionReference")}, key)
		if err != nil {
			return nil, err
		}
		return result(resp.Status == StatusVoided, resp.AuthorizationID, resp.Status, resp), nil
	})
}

func (g *Gateway) CompletePurchase(data gateway.Data) gateway.Request  { return g.completeCheckout(data) }
func (g *Gateway) CompleteAuthorize(data gateway.Data) gateway.Request { return g.completeCheckout(data) }
func (g *Gateway) CompleteCreateCard(data gateway.Data) gateway.Request {
	return g.completeCheckout(data)
}

// checkout opens a hosted checkout session and redirects the payer to it.
// The session id is the reference until the payer comes back.
func (g *Gateway) checkout(data gateway.Data, intent string) gateway.Request {
	return g.request(data, func(ctx context.Context, d gateway.Data, key string) (gateway.Response, error) {
		var amount int64
		if intent != IntentTokenize {
			var err error
			if amount, err = minorUnits(d.String("amount")); err != nil {
				return nil, err
			}
		}
		session, err := g.client.CreateCheckoutSession(ctx, CheckoutSessionRequest{
			Intent:    intent,
			Amount:    amount,
			Currency:  d.String("currency"),
			Reference: d.String("transactionId"),
			ReturnURL: d.String("returnUrl"),
			CancelURL: d.String("cancelUrl"),
			NotifyURL: d.String("notifyUrl"),
		}, key)
		if err != nil {
			return nil, err
		}
		return &gateway.BasicResponse{
			Redirect:   true,
			URL:        session.CheckoutURL,
			Reference:  session.SessionID,
			Text:       session.Status,
			ResultCode: session.Status,
			Raw:        session,
		}, nil
	})
}

// completeCheckout looks the session up after the payer returned or the
// bank notified us.
func (g *Gateway) completeCheckout(data gateway.Data) gateway.Request {
	return g.request(data, func(ctx context.Context, d gateway.Data, _ string) (gateway.Response, error) {
		sessionID := g.sessionID(d)
		if sessionID == "" {
			return nil, &invalidRequestError{"checkout session id is missing"}
		}
		session, err := g.client.GetCheckoutSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		ref := session.AuthorizationID
		if session.Intent == IntentTokenize {
			ref = session.CardToken
		}
		resp := result(session.Status == StatusCompleted, ref, session.Status, session)
		if session.FailureMessage != "" {
			resp.Text = session.FailureMessage
			resp.ResultCode = session.FailureCode
		}
		return resp, nil
	})
}

// sessionID prefers the bank's return parameter over the stored reference.
func (g *Gateway) sessionID(d gateway.Data) string {
	if g.inbound != nil {
		if id := g.inbound.URL.Query().Get("session_id"); id != "" {
			return id
		}
	}
	if id := d.String("session_id"); id != "" {
		return id
	}
	return d.String("transactionReference")
}

func result(ok bool, ref, status string, raw any) *gateway.BasicResponse {
	return &gateway.BasicResponse{
		Successful: ok,
		Reference:  ref,
		Text:       status,
		ResultCode: status,
		Raw:        raw,
	}
}

type invalidRequestError struct{ msg string }

func (e *invalidRequestError) Error() string { return e.msg }

func (g *Gateway) authorizationRequest(d gateway.Data) (AuthorizationRequest, error) {
	amount, err := minorUnits(d.String("amount"))
	if err != nil {
		return AuthorizationRequest{}, err
	}
	req := AuthorizationRequest{
		Amount:    amount,
		Currency:  d.String("currency"),
		Reference: d.String("transactionId"),
	}
	if token := d.String(g.tokenKey); token != "" {
		req.CardToken = token
		return req, nil
	}

	card, err := cardRequest(d)
	if err != nil {
		return AuthorizationRequest{}, err
	}
	req.CardNumber = card.CardNumber
	req.Cvv = card.Cvv
	req.ExpiryMonth = card.ExpiryMonth
	req.ExpiryYear = card.ExpiryYear
	return req, nil
}

func cardRequest(d gateway.Data) (CardRequest, error) {
	var card gateway.CreditCard
	switch c := d["card"].(type) {
	case gateway.CreditCard:
		card = c
	case *gateway.CreditCard:
		card = *c
	default:
		card = gateway.CardFromData(d)
	}
	if card.Number == "" {
		return CardRequest{}, &invalidRequestError{"card number is required"}
	}

	month, err := strconv.Atoi(card.ExpiryMonth)
	if err != nil || month < 1 || month > 12 {
		return CardRequest{}, &invalidRequestError{fmt.Sprintf("invalid expiry month %q", card.ExpiryMonth)}
	}
	year, err := strconv.Atoi(card.ExpiryYear)
	if err != nil {
		return CardRequest{}, &invalidRequestError{fmt.Sprintf("invalid expiry year %q", card.ExpiryYear)}
	}
	if year < 100 {
		year += 2000
	}

	return CardRequest{
		CardNumber:  strings.ReplaceAll(card.Number, " ", ""),
		Cvv:         card.CVV,
		ExpiryMonth: month,
		ExpiryYear:  year,
		HolderName:  card.Name(),
	}, nil
}

// minorUnits converts a decimal amount to cents.
func minorUnits(amount string) (int64, error) {
	d, err := money.Parse(amount)
	if err != nil {
		return 0, &invalidRequestError{fmt.Sprintf("invalid amount %q", amount)}
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
