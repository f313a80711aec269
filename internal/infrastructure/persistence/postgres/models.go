package postgres

import (
	"time"

	"github.com/google/uuid"
)

// PaymentModel is the row shape of the payments table. Optional text columns
// are NULL rather than empty.
type PaymentModel struct {
	ID                   uuid.UUID
	Identifier           string
	Gateway              string
	Amount               string
	Currency             string
	Status               string
	TransactionReference *string
	SuccessURL           *string
	FailureURL           *string
	InitialPaymentID     *uuid.UUID
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type MessageModel struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	Type      string
	Message   *string
	Code      *string
	Reference *string
	Data      []byte
	UserID    *string
	ClientIP  *string
	CreatedAt time.Time
}
