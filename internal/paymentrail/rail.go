// Package paymentrail moves money to payees and lists gateway captures.
package paymentrail

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidResponse marks a rail response that failed validation
var ErrInvalidResponse = errors.New("invalid rail response")

// ContactRequest registers a payee with the rail
type ContactRequest struct {
	Name        string
	Email       string
	Phone       string
	ReferenceID string
}

// FundAccountRequest attaches a bank account to a contact
type FundAccountRequest struct {
	ContactID     string
	AccountName   string
	AccountNumber string
	IFSC          string
}

// PayoutRequest is a single transfer. Amount is in rupees; adapters convert to minor units.
type PayoutRequest struct {
	FundAccountID  string
	Amount         decimal.Decimal
	Mode           string
	Purpose        string
	Reference      string
	IdempotencyKey string
	Narration      string
}

// PayoutResult is the validated rail answer to a payout submission
type PayoutResult struct {
	ID     string
	Status string
	UTR    string
}

// Capture is a captured gateway payment
type Capture struct {
	ID         string
	OrderID    string
	Amount     decimal.Decimal
	Currency   string
	Status     string
	Email      string
	Contact    string
	CapturedAt time.Time
}

// Rail is the outbound money-movement capability
type Rail interface {
	CreateContact(ctx context.Context, req ContactRequest) (string, error)
	CreateFundAccount(ctx context.Context, req FundAccountRequest) (string, error)
	CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error)
	ListCaptures(ctx context.Context, from, to time.Time) ([]Capture, error)
}
