package gateway

import "context"

// BasicResponse is a plain Response value, handy for gateways whose wire
// format maps directly onto the accessor set.
type BasicResponse struct {
	Successful bool
	Redirect   bool
	URL        string
	Method     string
	FormData   map[string]string
	Reference  string
	Text       string
	ResultCode string
	Raw        any
}

func (r *BasicResponse) IsSuccessful() bool { return r.Successful }
func (r *BasicResponse) IsRedirect() bool { return r.Redirect }
func (r *BasicResponse) RedirectURL() string { return r.URL }
func (r *BasicResponse) TransactionReference() string { return r.Reference }
func (r *BasicResponse) Message() string { return r.Text }
func (r *BasicResponse) Code() string { return r.ResultCode }
func (r *BasicResponse) Data() any { return r.Raw }
func (r *BasicResponse) RedirectData() map[string]string { return r.FormData }

// RedirectMethod defaults to GET.
func (r *BasicResponse) RedirectMethod() string {
	if r.Method == "" {
		return "GET"
	}
	return r.Method
}

type BasicNotification struct {
	Status     NotificationStatus
	Reference  string
	Text       string
	ResultCode string
	Raw        any
}

func (n *BasicNotification) TransactionStatus() NotificationStatus { return n.Status }
func (n *BasicNotification) TransactionReference() string { return n.Reference }
func (n *BasicNotification) Message() string { return n.Text }
func (n *BasicNotification) Code() string { return n.ResultCode }
func (n *BasicNotification) Data() any { return n.Raw }

// SendFunc performs the network side of a FuncRequest.
type SendFunc func(ctx context.Context, data Data) (Response, error)

// FuncRequest adapts a function into a Request.
type FuncRequest struct {
	data Data
	send SendFunc
}

func NewFuncRequest(data Data, send SendFunc) *FuncRequest {
	return &FuncRequest{data: data, send: send}
}

func (r *FuncRequest) Data() Data {
	return r.data
}

func (r *FuncRequest) Send(ctx context.Context) (Response, error) {
	return r.send(ctx, r.data)
}
