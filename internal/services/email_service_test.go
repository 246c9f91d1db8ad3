package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailService_checkEmailPreconditions(t *testing.T) {
	logger.Setup("test", "error")

	// not configured: silently skipped
	service := NewEmailService(&config.Config{})
	ok, err := service.checkEmailPreconditions("coach@example.com", "test operation")
	assert.False(t, ok)
	assert.Nil(t, err)

	service = NewEmailService(&config.Config{ResendAPIKey: "test_key", FromEmail: "from@example.com"})
	ok, err = service.checkEmailPreconditions("coach@example.com", "test operation")
	assert.True(t, ok)
	assert.Nil(t, err)

	ok, err = service.checkEmailPreconditions("", "test operation")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestEmailService_renderPayoutConfirmation(t *testing.T) {
	service := NewEmailService(&config.Config{})

	body, err := service.renderTemplate("payout_confirmation.html", map[string]interface{}{
		"Name":         "Asha",
		"Amount":       formatRupees(decimal.NewFromInt(19996)),
		"TDSAmount":    formatRupees(decimal.Zero),
		"Installments": 2,
		"Reference":    "po_7_1",
		"SettlementID": "pout_1",
		"PaidAt":       time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC).Format("02 Jan 2006"),
		"AccountLast4": "4321",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "₹19996.00")
	assert.Contains(t, body, "ending in 4321")
	assert.Contains(t, body, "po_7_1")
}

func TestEmailService_SendOpsAlertWithoutMailbox(t *testing.T) {
	service := NewEmailService(&config.Config{ResendAPIKey: "test_key"})
	assert.NoError(t, service.SendOpsAlert(context.Background(), "Orphaned captures", []string{"pay_1"}))
}
