package bank

import "time"

// Amounts on the wire are integer minor units.

type AuthorizationRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	CardNumber  string `json:"card_number,omitempty"`
	Cvv         string `json:"cvv,omitempty"`
	ExpiryMonth int    `json:"expiry_month,omitempty"`
	ExpiryYear  int    `json:"expiry_year,omitempty"`
	CardToken   string `json:"card_token,omitempty"`
	Reference   string `json:"reference"`
}

type AuthorizationResponse struct {
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	AuthorizationID string    `json:"authorization_id"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// ChargeResponse answers a combined authorize-and-capture. The
// authorization id stays the handle for later refunds.
type ChargeResponse struct {
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	AuthorizationID string    `json:"authorization_id"`
	CaptureID       string    `json:"capture_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type CaptureRequest struct {
	Amount          int64  `json:"amount"`
	AuthorizationID string `json:"authorization_id"`
}

type CaptureResponse struct {
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	AuthorizationID string    `json:"authorization_id"`
	CaptureID       string    `json:"capture_id"`
	Status          string    `json:"status"`
	CapturedAt      time.Time `json:"captured_at"`
}

type VoidRequest struct {
	AuthorizationID string `json:"authorization_id"`
}

type VoidResponse struct {
	AuthorizationID string    `json:"authorization_id"`
	Status          string    `json:"status"`
	VoidID          string    `json:"void_id"`
	VoidedAt        time.Time `json:"voided_at"`
}

type RefundRequest struct {
	Amount          int64  `json:"amount"`
	AuthorizationID string `json:"authorization_id"`
}

type RefundResponse struct {
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	AuthorizationID string    `json:"authorization_id"`
	RefundID        string    `json:"refund_id"`
	RefundedAt      time.Time `json:"refunded_at"`
}

type CardRequest struct {
	CardNumber  string `json:"card_number"`
	Cvv         string `json:"cvv"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	HolderName  string `json:"holder_name,omitempty"`
}

type CardResponse struct {
	CardToken string `json:"card_token"`
	Last4     string `json:"last4"`
	Status    string `json:"status"`
}

// Checkout session intents.
const (
	IntentAuthorize = "authorize"
	IntentPurchase  = "purchase"
	IntentTokenize  = "tokenize"
)

type CheckoutSessionRequest struct {
	Intent    string `json:"intent"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
	NotifyURL string `json:"notify_url"`
}

// CheckoutSession is both the create answer and the lookup result. A
// completed session carries an authorization id, or a card token for the
// tokenize intent.
type CheckoutSession struct {
	SessionID       string `json:"session_id"`
	CheckoutURL     string `json:"checkout_url"`
	Intent          string `json:"intent"`
	Status          string `json:"status"`
	AuthorizationID string `json:"authorization_id,omitempty"`
	CardToken       string `json:"card_token,omitempty"`
	FailureCode     string `json:"failure_code,omitempty"`
	FailureMessage  string `json:"failure_message,omitempty"`
}

// WebhookEvent is posted by the bank to the notify URL.
type WebhookEvent struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	// Reference is the authorization id the event is about.
	Reference string `json:"reference"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Bank statuses.
const (
	StatusAuthorized = "AUTHORIZED"
	StatusCaptured   = "CAPTURED"
	StatusVoided     = "VOIDED"
	StatusRefunded   = "REFUNDED"
	StatusActive     = "ACTIVE"
	StatusCompleted  = "COMPLETED"
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusFailed     = "FAILED"
	StatusDeclined   = "DECLINED"
	StatusExpired    = "EXPIRED"
)
