package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

// ReferralCredits is a party's balance with its recent transactions
type ReferralCredits struct {
	Party        *models.ReferringParty             `json:"party"`
	Transactions []models.ReferralCreditTransaction `json:"transactions"`
	Total        int64                              `json:"total"`
}

// ReferralService awards credit to referring parties whose coupon was used
type ReferralService struct {
	repo         repository.ReferralRepository
	tx           repository.Transactor
	defaultPct   decimal.Decimal
	expiryWindow time.Duration
	now          func() time.Time
}

func NewReferralService(repo repository.ReferralRepository, tx repository.Transactor, policy *config.Policy) *ReferralService {
	return &ReferralService{
		repo:         repo,
		tx:           tx,
		defaultPct:   decimal.NewFromFloat(policy.ReferralCreditPercent),
		expiryWindow: time.Duration(policy.ReferralCreditExpiryDays) * 24 * time.Hour,
		now:          time.Now,
	}
}

// AwardReferralCredit credits the referring party behind code. Codes that are empty,
// unknown, inactive or not referring-party coupons are a no-op (nil, nil).
// Each award resets the party's expiry to now + window.
func (s *ReferralService) AwardReferralCredit(ctx context.Context, enrollmentID uint, code string, originalAmount decimal.Decimal) (*models.ReferralCreditTransaction, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	coupon, err := s.repo.FindCouponByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !coupon.Active || coupon.CouponType != models.CouponTypeReferringParty || coupon.ReferringPartyID == nil {
		return nil, nil
	}

	pct := coupon.CreditPercent
	if !pct.IsPositive() {
		pct = s.defaultPct
	}
	credit := percentOf(originalAmount, pct)
	if !credit.IsPositive() {
		return nil, nil
	}

	now := s.now()
	expires := now.Add(s.expiryWindow)
	var txn *models.ReferralCreditTransaction

	err = s.tx.Transaction(ctx, func(tx *repository.Repositories) error {
		party, err := tx.Referral.FindPartyForUpdate(ctx, *coupon.ReferringPartyID)
		if err != nil {
			return fmt.Errorf("referring party %d: %w", *coupon.ReferringPartyID, err)
		}

		party.CreditBalance = party.CreditBalance.Add(credit)
		party.CreditExpiresAt = &expires

		txn = &models.ReferralCreditTransaction{
			ReferringPartyID: party.ID,
			EnrollmentID:     enrollmentID,
			CouponCode:       coupon.Code,
			TransactionType:  models.ReferralTransactionEarn,
			OriginalAmount:   originalAmount,
			CreditPercent:    pct,
			Amount:           credit,
			BalanceAfter:     party.CreditBalance,
			ExpiresAt:        expires,
		}
		if err := tx.Referral.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		return tx.Referral.UpdatePartyCredit(ctx, party)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("[Referrals] Credit awarded",
		"party_id", txn.ReferringPartyID, "enrollment_id", enrollmentID, "amount", credit.String())
	return txn, nil
}

// GetCredits returns a referring party with its credit history
func (s *ReferralService) GetCredits(ctx context.Context, partyID uint, query *repository.ListQuery) (*ReferralCredits, error) {
	party, err := s.repo.FindParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	txns, total, err := s.repo.ListTransactions(ctx, partyID, query)
	if err != nil {
		return nil, err
	}
	return &ReferralCredits{Party: party, Transactions: txns, Total: total}, nil
}
