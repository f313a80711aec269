package gateway

import (
	"fmt"
	"maps"
	"strconv"
)

// Data is the loosely typed parameter bag handed to gateway verbs.
type Data map[string]any

func (d Data) Clone() Data {
	out := make(Data, len(d))
	maps.Copy(out, d)
	return out
}

// String returns the value under key rendered as a string, or "" when absent.
func (d Data) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func (d Data) Has(key string) bool {
	return d.String(key) != ""
}

// CreditCard holds the card and billing details passed to onsite gateways.
type CreditCard struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Number          string `json:"number,omitempty"`
	ExpiryMonth     string `json:"expiryMonth,omitempty"`
	ExpiryYear      string `json:"expiryYear,omitempty"`
	CVV             string `json:"cvv,omitempty"`
	Email           string `json:"email,omitempty"`
	BillingAddress1 string `json:"billingAddress1,omitempty"`
	BillingAddress2 string `json:"billingAddress2,omitempty"`
	BillingCity     string `json:"billingCity,omitempty"`
	BillingPostcode string `json:"billingPostcode,omitempty"`
	BillingState    string `json:"billingState,omitempty"`
	BillingCountry  string `json:"billingCountry,omitempty"`
}

// CardFromData picks the card fields out of caller data. A combined "name"
// is used as the first name when no explicit first/last name is given.
func CardFromData(d Data) CreditCard {
	card := CreditCard{
		FirstName:       d.String("firstName"),
		LastName:        d.String("lastName"),
		Number:          d.String("number"),
		ExpiryMonth:     d.String("expiryMonth"),
		ExpiryYear:      d.String("expiryYear"),
		CVV:             d.String("cvv"),
		Email:           d.String("email"),
		BillingAddress1: d.String("billingAddress1"),
		BillingAddress2: d.String("billingAddress2"),
		BillingCity:     d.String("billingCity"),
		BillingPostcode: d.String("billingPostcode"),
		BillingState:    d.String("billingState"),
		BillingCountry:  d.String("billingCountry"),
	}
	if card.FirstName == "" && card.LastName == "" {
		card.FirstName = d.String("name")
	}
	return card
}

func (c CreditCard) Name() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
