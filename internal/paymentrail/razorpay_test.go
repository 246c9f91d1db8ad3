package paymentrail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityIDValidation(t *testing.T) {
	id, err := entityID(map[string]interface{}{"id": "cont_1", "entity": "contact"}, "contact")
	require.NoError(t, err)
	assert.Equal(t, "cont_1", id)

	_, err = entityID(map[string]interface{}{"entity": "contact"}, "contact")
	assert.True(t, errors.Is(err, ErrInvalidResponse))

	_, err = entityID(map[string]interface{}{"id": "  "}, "contact")
	assert.True(t, errors.Is(err, ErrInvalidResponse))

	_, err = entityID(map[string]interface{}{"id": "fa_1", "entity": "fund_account"}, "contact")
	assert.True(t, errors.Is(err, ErrInvalidResponse))

	_, err = entityID(nil, "payout")
	assert.True(t, errors.Is(err, ErrInvalidResponse))

	// non-string ids are rejected
	_, err = entityID(map[string]interface{}{"id": 12345}, "payout")
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestParsePayout(t *testing.T) {
	res, err := parsePayout(map[string]interface{}{
		"id": "pout_1", "entity": "payout", "status": "processing", "utr": "",
	})
	require.NoError(t, err)
	assert.Equal(t, "pout_1", res.ID)
	assert.Equal(t, "processing", res.Status)

	_, err = parsePayout(map[string]interface{}{
		"id": "pout_2", "entity": "payout", "status": "rejected",
		"status_details": map[string]interface{}{"description": "invalid IFSC"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid IFSC")
}

func TestParseCapture(t *testing.T) {
	c, err := parseCapture(map[string]interface{}{
		"id": "pay_X", "entity": "payment", "amount": float64(599000), "currency": "INR",
		"status": "captured", "email": "p@example.com", "created_at": float64(1717200000),
	})
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(5990)))
	assert.Equal(t, "captured", c.Status)
	assert.Equal(t, int64(1717200000), c.CapturedAt.Unix())

	_, err = parseCapture(map[string]interface{}{"id": "pay_Y", "entity": "payment"})
	assert.Error(t, err)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(999800), ToMinorUnits(decimal.NewFromInt(9998)))
	assert.Equal(t, int64(1050), ToMinorUnits(decimal.RequireFromString("10.50")))
}

// fakeRazorpay answers RazorpayX calls and records what it received
type fakeRazorpay struct {
	mu       sync.Mutex
	requests []recordedRequest
	payout   map[string]interface{}
	status   int
}

type recordedRequest struct {
	Method      string
	Path        string
	User        string
	Idempotency string
	Body        map[string]interface{}
	Query       map[string]string
}

func (f *fakeRazorpay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, _, _ := r.BasicAuth()
	rec := recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		User:        user,
		Idempotency: r.Header.Get("X-Payout-Idempotency"),
		Query:       map[string]string{},
	}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	var resp interface{}
	switch r.URL.Path {
	case contactsPath:
		resp = map[string]interface{}{"id": "cont_9", "entity": "contact"}
	case fundAccountsPath:
		resp = map[string]interface{}{"id": "fa_9", "entity": "fund_account"}
	case payoutsPath:
		if f.status != 0 {
			w.WriteHeader(f.status)
			resp = map[string]interface{}{"error": map[string]interface{}{
				"code": "BAD_REQUEST_ERROR", "description": "Insufficient balance",
			}}
			break
		}
		resp = f.payout
	case "/v1/payments":
		resp = map[string]interface{}{"entity": "collection", "count": 2, "items": []interface{}{
			map[string]interface{}{"id": "pay_1", "entity": "payment", "amount": 599000, "currency": "INR", "status": "captured", "created_at": 1757140000},
			map[string]interface{}{"id": "pay_2", "entity": "payment", "amount": 100, "currency": "INR", "status": "failed", "created_at": 1757140100},
		}}
	default:
		w.WriteHeader(http.StatusNotFound)
		resp = map[string]interface{}{"error": map[string]interface{}{"code": "BAD_REQUEST_ERROR", "description": "not found"}}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestRail(t *testing.T, fake *fakeRazorpay) *RazorpayRail {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	rail := NewRazorpayRail("rzp_test_key", "rzp_test_secret", "2323230041626905")
	rail.client.Payment.Request.BaseURL = srv.URL
	return rail
}

func TestRazorpayRail_PayoutFlow(t *testing.T) {
	fake := &fakeRazorpay{payout: map[string]interface{}{"id": "pout_9", "entity": "payout", "status": "processing"}}
	rail := newTestRail(t, fake)
	ctx := context.Background()

	contactID, err := rail.CreateContact(ctx, ContactRequest{Name: "Asha Rao", Email: "asha@example.com", ReferenceID: "payee_7"})
	require.NoError(t, err)
	assert.Equal(t, "cont_9", contactID)

	fundAccountID, err := rail.CreateFundAccount(ctx, FundAccountRequest{
		ContactID: contactID, AccountName: "Asha Rao", AccountNumber: "123456789012", IFSC: "hdfc0000001",
	})
	require.NoError(t, err)
	assert.Equal(t, "fa_9", fundAccountID)

	res, err := rail.CreatePayout(ctx, PayoutRequest{
		FundAccountID:  fundAccountID,
		Amount:         decimal.RequireFromString("19996.50"),
		Mode:           "IMPS",
		Purpose:        "payout",
		Reference:      "po_7_1757140000",
		IdempotencyKey: "po_7_1757140000",
	})
	require.NoError(t, err)
	assert.Equal(t, "pout_9", res.ID)
	assert.Equal(t, "processing", res.Status)

	require.Len(t, fake.requests, 3)
	contact, account, payout := fake.requests[0], fake.requests[1], fake.requests[2]

	assert.Equal(t, http.MethodPost, contact.Method)
	assert.Equal(t, contactsPath, contact.Path)
	assert.Equal(t, "rzp_test_key", contact.User)
	assert.Equal(t, "vendor", contact.Body["type"])
	assert.Equal(t, "payee_7", contact.Body["reference_id"])
	assert.Empty(t, contact.Idempotency)

	assert.Equal(t, fundAccountsPath, account.Path)
	assert.Equal(t, "cont_9", account.Body["contact_id"])
	bank := account.Body["bank_account"].(map[string]interface{})
	assert.Equal(t, "HDFC0000001", bank["ifsc"])
	assert.Equal(t, "123456789012", bank["account_number"])

	assert.Equal(t, payoutsPath, payout.Path)
	assert.Equal(t, "po_7_1757140000", payout.Idempotency)
	assert.Equal(t, float64(1999650), payout.Body["amount"])
	assert.Equal(t, "2323230041626905", payout.Body["account_number"])
	assert.Equal(t, "fa_9", payout.Body["fund_account_id"])
	assert.Equal(t, "INR", payout.Body["currency"])
	assert.Equal(t, "IMPS", payout.Body["mode"])
	assert.Equal(t, "po_7_1757140000", payout.Body["reference_id"])
}

func TestRazorpayRail_PayoutErrors(t *testing.T) {
	ctx := context.Background()
	req := PayoutRequest{FundAccountID: "fa_9", Amount: decimal.NewFromInt(100), Mode: "IMPS", Reference: "po_1_1", IdempotencyKey: "po_1_1"}

	t.Run("rejected by the api", func(t *testing.T) {
		rail := newTestRail(t, &fakeRazorpay{status: http.StatusBadRequest})
		_, err := rail.CreatePayout(ctx, req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create payout")
	})

	t.Run("response without id", func(t *testing.T) {
		rail := newTestRail(t, &fakeRazorpay{payout: map[string]interface{}{"entity": "payout", "status": "processing"}})
		_, err := rail.CreatePayout(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("terminal status", func(t *testing.T) {
		rail := newTestRail(t, &fakeRazorpay{payout: map[string]interface{}{"id": "pout_3", "entity": "payout", "status": "reversed"}})
		_, err := rail.CreatePayout(ctx, req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reversed")
	})

	t.Run("cancelled context never calls the api", func(t *testing.T) {
		fake := &fakeRazorpay{}
		rail := newTestRail(t, fake)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := rail.CreatePayout(cctx, req)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, fake.requests)
	})
}

func TestRazorpayRail_ListCaptures(t *testing.T) {
	fake := &fakeRazorpay{}
	rail := newTestRail(t, fake)

	from := time.Unix(1757100000, 0)
	to := time.Unix(1757200000, 0)
	captures, err := rail.ListCaptures(context.Background(), from, to)
	require.NoError(t, err)

	require.Len(t, captures, 1)
	assert.Equal(t, "pay_1", captures[0].ID)
	assert.True(t, captures[0].Amount.Equal(decimal.NewFromInt(5990)))

	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodGet, fake.requests[0].Method)
	assert.Equal(t, "1757100000", fake.requests[0].Query["from"])
	assert.Equal(t, "1757200000", fake.requests[0].Query["to"])
}
