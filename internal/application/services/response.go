package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/domain"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
)

// Flag is a bit in the outcome of a service call. Redirects are not a flag:
// they are read off the attached gateway response.
type Flag uint8

const (
	FlagError Flag = 1 << iota
	FlagNotification
	FlagPending
	FlagCancelled
)

const validFlags = FlagError | FlagNotification | FlagPending | FlagCancelled

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagError, "error"},
	{FlagNotification, "notification"},
	{FlagPending, "pending"},
	{FlagCancelled, "cancelled"},
}

func (f Flag) String() string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// HTTPResponse is a fully formed answer for the payer's browser or the
// gateway's webhook call.
type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *HTTPResponse) Write(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(r.StatusCode)
	_, _ = w.Write(r.Body)
}

func redirectTo(url string) *HTTPResponse {
	h := http.Header{}
	h.Set("Location", url)
	return &HTTPResponse{StatusCode: http.StatusFound, Header: h}
}

// ServiceResponse is the outcome of Initiate, Complete and Cancel.
type ServiceResponse struct {
	payment      *domain.Payment
	flags        Flag
	gatewayMsg   gateway.Message
	targetURL    string
	httpResponse *HTTPResponse
}

func NewServiceResponse(payment *domain.Payment, flags ...Flag) *ServiceResponse {
	r := &ServiceResponse{payment: payment}
	for _, f := range flags {
		r.AddFlag(f)
	}
	return r
}

func (r *ServiceResponse) Payment() *domain.Payment { return r.payment }

// AddFlag panics on bits outside the defined flags: passing one is a
// programming error, not a runtime condition.
func (r *ServiceResponse) AddFlag(f Flag) *ServiceResponse {
	mustBeValid(f)
	r.flags |= f
	return r
}

func (r *ServiceResponse) RemoveFlag(f Flag) *ServiceResponse {
	mustBeValid(f)
	r.flags &^= f
	return r
}

func (r *ServiceResponse) HasFlag(f Flag) bool {
	mustBeValid(f)
	return r.flags&f == f
}

func mustBeValid(f Flag) {
	if f&^validFlags != 0 {
		panic(fmt.Sprintf("services: invalid response flag %#x", uint8(f)))
	}
}

func (r *ServiceResponse) Flags() Flag { return r.flags }
func (r *ServiceResponse) IsError() bool { return r.flags&FlagError != 0 }
func (r *ServiceResponse) IsNotification() bool { return r.flags&FlagNotification != 0 }
func (r *ServiceResponse) IsAwaitingNotification() bool { return r.flags&FlagPending != 0 }
func (r *ServiceResponse) IsCancelled() bool { return r.flags&FlagCancelled != 0 }
func (r *ServiceResponse) GatewayResponse() gateway.Message { return r.gatewayMsg }

// IsRedirect reports whether the attached gateway response sends the payer
// elsewhere.
func (r *ServiceResponse) IsRedirect() bool {
	resp, ok := r.gatewayMsg.(gateway.Response)
	return ok && resp.IsRedirect()
}

func (r *ServiceResponse) SetGatewayResponse(m gateway.Message) *ServiceResponse {
	r.gatewayMsg = m
	return r
}

// TargetURL is where the payer goes when the gateway does not redirect. It
// defaults to the payment's failure URL for errors and cancellations and to
// its success URL otherwise.
func (r *ServiceResponse) TargetURL() string {
	if r.targetURL != "" {
		return r.targetURL
	}
	if r.payment == nil {
		return ""
	}
	if r.IsError() || r.IsCancelled() {
		return r.payment.FailureURL()
	}
	return r.payment.SuccessURL()
}

// SetTargetURL fails once a gateway redirect decided the destination.
func (r *ServiceResponse) SetTargetURL(url string) error {
	if r.IsRedirect() {
		return application.NewServiceError("cannot set target url after a gateway redirect")
	}
	r.targetURL = url
	return nil
}

func (r *ServiceResponse) HTTPResponse() *HTTPResponse { return r.httpResponse }

// SetHTTPResponse overrides the default resolution, e.g. to answer a
// gateway webhook with the body it expects.
func (r *ServiceResponse) SetHTTPResponse(resp *HTTPResponse) *ServiceResponse {
	r.httpResponse = resp
	return r
}

// RedirectOrRespond resolves the response for the HTTP caller.
func (r *ServiceResponse) RedirectOrRespond() *HTTPResponse {
	if r.httpResponse != nil && !r.IsRedirect() {
		return r.httpResponse
	}

	if r.IsRedirect() {
		resp := r.gatewayMsg.(gateway.Response)
		if rr, ok := resp.(gateway.RedirectResponse); ok && strings.EqualFold(rr.RedirectMethod(), http.MethodPost) {
			return postRedirect(rr.RedirectURL(), rr.RedirectData())
		}
		r.targetURL = resp.RedirectURL()
		return redirectTo(r.targetURL)
	}

	if r.IsNotification() {
		h := http.Header{}
		h.Set("Content-Type", "text/plain; charset=utf-8")
		return &HTTPResponse{StatusCode: http.StatusOK, Header: h, Body: []byte("OK")}
	}

	return redirectTo(r.TargetURL())
}

var redirectForm = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><title>Redirecting...</title></head>
<body onload="document.forms[0].submit();">
<form action="{{.URL}}" method="post">
<p>Redirecting to payment page...</p>
{{range $k, $v := .Fields}}<input type="hidden" name="{{$k}}" value="{{$v}}" />
{{end}}<input type="submit" value="Continue" />
</form>
</body>
</html>
`))

func postRedirect(url string, fields map[string]string) *HTTPResponse {
	var buf bytes.Buffer
	if err := redirectForm.Execute(&buf, struct {
		URL    string
		Fields map[string]string
	}{url, fields}); err != nil {
		return &HTTPResponse{StatusCode: http.StatusInternalServerError, Body: []byte(err.Error())}
	}
	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	return &HTTPResponse{StatusCode: http.StatusOK, Header: h, Body: buf.Bytes()}
}
