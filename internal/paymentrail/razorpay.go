package paymentrail

import (
	"context"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

const (
	contactsPath     = "/v1/contacts"
	fundAccountsPath = "/v1/fund_accounts"
	payoutsPath      = "/v1/payouts"
	capturePageSize  = 100
	maxCapturePages  = 50
)

var paise = decimal.NewFromInt(100)

// failedPayoutStatuses are terminal non-success payout states
var failedPayoutStatuses = map[string]bool{
	"failed":    true,
	"rejected":  true,
	"reversed":  true,
	"cancelled": true,
}

// RazorpayRail drives RazorpayX payouts and reads Razorpay payment captures.
type RazorpayRail struct {
	client        *razorpay.Client
	accountNumber string
}

// NewRazorpayRail builds a rail using API key credentials and the RazorpayX source account
func NewRazorpayRail(keyID, keySecret, accountNumber string) *RazorpayRail {
	return &RazorpayRail{
		client:        razorpay.NewClient(keyID, keySecret),
		accountNumber: accountNumber,
	}
}

// post sends a RazorpayX call through the signed requester the SDK resources share;
// contacts and payouts are not modelled as SDK resources.
func (r *RazorpayRail) post(path string, payload map[string]interface{}, headers map[string]string) (map[string]interface{}, error) {
	return r.client.Payment.Request.Post(path, payload, headers)
}

func (r *RazorpayRail) CreateContact(ctx context.Context, req ContactRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload := map[string]interface{}{
		"name":         req.Name,
		"type":         "vendor",
		"reference_id": req.ReferenceID,
	}
	if req.Email != "" {
		payload["email"] = req.Email
	}
	if req.Phone != "" {
		payload["contact"] = req.Phone
	}
	resp, err := r.post(contactsPath, payload, nil)
	if err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	return entityID(resp, "contact")
}

func (r *RazorpayRail) CreateFundAccount(ctx context.Context, req FundAccountRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload := map[string]interface{}{
		"contact_id":   req.ContactID,
		"account_type": "bank_account",
		"bank_account": map[string]interface{}{
			"name":           req.AccountName,
			"ifsc":           strings.ToUpper(req.IFSC),
			"account_number": req.AccountNumber,
		},
	}
	resp, err := r.post(fundAccountsPath, payload, nil)
	if err != nil {
		return "", fmt.Errorf("create fund account: %w", err)
	}
	return entityID(resp, "fund_account")
}

func (r *RazorpayRail) CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"account_number":       r.accountNumber,
		"fund_account_id":      req.FundAccountID,
		"amount":               ToMinorUnits(req.Amount),
		"currency":             "INR",
		"mode":                 req.Mode,
		"purpose":              req.Purpose,
		"queue_if_low_balance": true,
		"reference_id":         req.Reference,
		"narration":            req.Narration,
	}
	headers := map[string]string{"X-Payout-Idempotency": req.IdempotencyKey}

	resp, err := r.post(payoutsPath, payload, headers)
	if err != nil {
		return nil, fmt.Errorf("create payout: %w", err)
	}
	return parsePayout(resp)
}

// ListCaptures pages through payments created in [from, to] and keeps captured ones
func (r *RazorpayRail) ListCaptures(ctx context.Context, from, to time.Time) ([]Capture, error) {
	var captures []Capture
	for page := 0; page < maxCapturePages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := r.client.Payment.All(map[string]interface{}{
			"from":  from.Unix(),
			"to":    to.Unix(),
			"count": capturePageSize,
			"skip":  page * capturePageSize,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("list payments: %w", err)
		}

		items, ok := resp["items"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: payments list without items", ErrInvalidResponse)
		}
		for _, item := range items {
			raw, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			c, err := parseCapture(raw)
			if err != nil {
				logger.Warn("[Rail] Skipping malformed payment", "error", err)
				continue
			}
			if c.Status == "captured" {
				captures = append(captures, *c)
			}
		}
		if len(items) < capturePageSize {
			return captures, nil
		}
	}
	logger.Warn("[Rail] Capture listing truncated", "pages", maxCapturePages)
	return captures, nil
}

// ToMinorUnits converts rupees to paise
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(paise).Round(0).IntPart()
}

func fromMinorUnits(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Div(paise)
}

// entityID validates the response carries a non-empty id for the expected entity
func entityID(resp map[string]interface{}, entity string) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: empty %s response", ErrInvalidResponse, entity)
	}
	if got, ok := resp["entity"].(string); ok && got != entity {
		return "", fmt.Errorf("%w: expected %s entity, got %q", ErrInvalidResponse, entity, got)
	}
	id, _ := resp["id"].(string)
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: %s response without id", ErrInvalidResponse, entity)
	}
	return id, nil
}

func parsePayout(resp map[string]interface{}) (*PayoutResult, error) {
	id, err := entityID(resp, "payout")
	if err != nil {
		return nil, err
	}
	status, _ := resp["status"].(string)
	if failedPayoutStatuses[status] {
		reason := status
		if details, ok := resp["status_details"].(map[string]interface{}); ok {
			if desc, ok := details["description"].(string); ok && desc != "" {
				reason = status + ": " + desc
			}
		}
		return nil, fmt.Errorf("payout %s %s", id, reason)
	}
	utr, _ := resp["utr"].(string)
	return &PayoutResult{ID: id, Status: status, UTR: utr}, nil
}

func parseCapture(raw map[string]interface{}) (*Capture, error) {
	id, err := entityID(raw, "payment")
	if err != nil {
		return nil, err
	}
	amt, ok := raw["amount"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: payment %s without amount", ErrInvalidResponse, id)
	}
	c := &Capture{ID: id, Amount: fromMinorUnits(amt)}
	c.Status, _ = raw["status"].(string)
	c.Currency, _ = raw["currency"].(string)
	c.OrderID, _ = raw["order_id"].(string)
	c.Email, _ = raw["email"].(string)
	c.Contact, _ = raw["contact"].(string)
	if created, ok := raw["created_at"].(float64); ok {
		c.CapturedAt = time.Unix(int64(created), 0).UTC()
	}
	return c, nil
}
