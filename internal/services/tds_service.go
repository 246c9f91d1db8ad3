package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

const (
	tdsSummaryCachePrefix = "tds:summary:"
	tdsSummaryCacheTTL    = 5 * time.Minute
)

// Quarter status values
const (
	QuarterStatusNotApplicable = "n/a"
	QuarterStatusPending       = "pending"
	QuarterStatusComplete      = "complete"
)

// SummaryCache is the optional cache behind compliance summaries
type SummaryCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration)
	InvalidatePrefix(ctx context.Context, prefix string)
}

// QuarterSummary aggregates one fiscal quarter
type QuarterSummary struct {
	Quarter    string          `json:"quarter"`
	Deducted   decimal.Decimal `json:"deducted"`
	Deposited  decimal.Decimal `json:"deposited"`
	Pending    decimal.Decimal `json:"pending"`
	DueDate    string          `json:"due_date"`
	Status     string          `json:"status"`
	EntryCount int             `json:"entry_count"`
}

// PayeeTDSSummary aggregates one payee's deductions in a fiscal year
type PayeeTDSSummary struct {
	PayeeID    uint            `json:"payee_id"`
	Name       string          `json:"name"`
	MaskedPAN  string          `json:"masked_pan"`
	Gross      decimal.Decimal `json:"gross"`
	Deducted   decimal.Decimal `json:"deducted"`
	Deposited  decimal.Decimal `json:"deposited"`
	Pending    decimal.Decimal `json:"pending"`
	EntryCount int             `json:"entry_count"`
}

// TDSTotals are the fiscal-year totals
type TDSTotals struct {
	Gross     decimal.Decimal `json:"gross"`
	Deducted  decimal.Decimal `json:"deducted"`
	Deposited decimal.Decimal `json:"deposited"`
	Pending   decimal.Decimal `json:"pending"`
}

// TDSSummary is the compliance view of a fiscal year
type TDSSummary struct {
	FiscalYear string            `json:"fiscal_year"`
	Quarters   []QuarterSummary  `json:"quarters"`
	Payees     []PayeeTDSSummary `json:"payees"`
	Totals     TDSTotals         `json:"totals"`
}

// MarkDepositedInput describes a challan deposit for a quarter
type MarkDepositedInput struct {
	Quarter       string `json:"quarter"`
	FiscalYear    string `json:"fiscal_year"`
	ChallanNumber string `json:"challan_number"`
	DepositDate   string `json:"deposit_date"`
	EntryIDs      []uint `json:"entry_ids"`
}

// MarkDepositedResult reports how many entries changed
type MarkDepositedResult struct {
	EntriesUpdated  int64           `json:"entries_updated"`
	AmountDeposited decimal.Decimal `json:"amount_deposited"`
}

// TDSService maintains the tax-deducted-at-source ledger
type TDSService struct {
	repo     repository.TDSLedgerRepository
	tx       repository.Transactor
	auditSvc *AuditService
	cache    SummaryCache
	now      func() time.Time
}

func NewTDSService(repo repository.TDSLedgerRepository, tx repository.Transactor, auditSvc *AuditService, cache SummaryCache) *TDSService {
	return &TDSService{
		repo:     repo,
		tx:       tx,
		auditSvc: auditSvc,
		cache:    cache,
		now:      time.Now,
	}
}

// RecordDeduction writes the ledger entry for a paid installment with TDS withheld.
// Installments without TDS are skipped. A repeated call for the same installment is a no-op.
func (s *TDSService) RecordDeduction(ctx context.Context, inst *models.PayoutInstallment, settlementID string, paidAt time.Time) error {
	if !inst.TDSAmount.IsPositive() {
		return nil
	}
	entry := &models.TDSLedgerEntry{
		InstallmentID:  inst.ID,
		PayeeID:        inst.PayeeID,
		FinancialYear:  models.FiscalYearOf(paidAt),
		Quarter:        models.QuarterOf(paidAt),
		GrossAmount:    inst.GrossAmount,
		TDSRatePercent: inst.TDSRatePercent,
		TDSAmount:      inst.TDSAmount,
		SettlementID:   settlementID,
		DeductedAt:     paidAt,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

// GetSummary aggregates a fiscal year's entries per quarter and per payee
func (s *TDSService) GetSummary(ctx context.Context, fiscalYear string, payeeID *uint) (*TDSSummary, error) {
	if fiscalYear == "" {
		fiscalYear = models.FiscalYearOf(s.now())
	}
	if _, err := models.ParseFiscalYear(fiscalYear); err != nil {
		return nil, validationError("%v", err)
	}

	key := tdsSummaryCachePrefix + fiscalYear
	if payeeID != nil {
		key = fmt.Sprintf("%s:payee:%d", key, *payeeID)
	}
	var cached TDSSummary
	if s.cache != nil && s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	entries, err := s.repo.ListByFiscalYear(ctx, fiscalYear, payeeID)
	if err != nil {
		return nil, err
	}
	summary, err := BuildTDSSummary(fiscalYear, entries)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetJSON(ctx, key, summary, tdsSummaryCacheTTL)
	}
	return summary, nil
}

// BuildTDSSummary aggregates entries of one fiscal year
func BuildTDSSummary(fiscalYear string, entries []models.TDSLedgerEntry) (*TDSSummary, error) {
	summary := &TDSSummary{FiscalYear: fiscalYear}
	quarters := make(map[string]*QuarterSummary, len(models.Quarters))
	for _, q := range models.Quarters {
		due, err := models.QuarterDueDate(fiscalYear, q)
		if err != nil {
			return nil, validationError("%v", err)
		}
		quarters[q] = &QuarterSummary{Quarter: q, DueDate: due.Format("2006-01-02")}
	}

	payees := map[uint]*PayeeTDSSummary{}
	for i := range entries {
		e := &entries[i]
		q, ok := quarters[e.Quarter]
		if !ok {
			continue
		}
		p, ok := payees[e.PayeeID]
		if !ok {
			p = &PayeeTDSSummary{PayeeID: e.PayeeID}
			if e.Payee != nil {
				p.Name = e.Payee.Name
				p.MaskedPAN = e.Payee.MaskedPAN()
			}
			payees[e.PayeeID] = p
		}

		q.EntryCount++
		q.Deducted = q.Deducted.Add(e.TDSAmount)
		p.EntryCount++
		p.Gross = p.Gross.Add(e.GrossAmount)
		p.Deducted = p.Deducted.Add(e.TDSAmount)
		summary.Totals.Gross = summary.Totals.Gross.Add(e.GrossAmount)
		summary.Totals.Deducted = summary.Totals.Deducted.Add(e.TDSAmount)
		if e.Deposited {
			q.Deposited = q.Deposited.Add(e.TDSAmount)
			p.Deposited = p.Deposited.Add(e.TDSAmount)
			summary.Totals.Deposited = summary.Totals.Deposited.Add(e.TDSAmount)
		}
	}

	for _, q := range models.Quarters {
		qs := quarters[q]
		qs.Pending = qs.Deducted.Sub(qs.Deposited)
		switch {
		case qs.EntryCount == 0:
			qs.Status = QuarterStatusNotApplicable
		case qs.Pending.IsPositive():
			qs.Status = QuarterStatusPending
		default:
			qs.Status = QuarterStatusComplete
		}
		summary.Quarters = append(summary.Quarters, *qs)
	}

	for _, p := range payees {
		p.Pending = p.Deducted.Sub(p.Deposited)
		summary.Payees = append(summary.Payees, *p)
	}
	sort.Slice(summary.Payees, func(i, j int) bool { return summary.Payees[i].PayeeID < summary.Payees[j].PayeeID })
	summary.Totals.Pending = summary.Totals.Deducted.Sub(summary.Totals.Deposited)
	return summary, nil
}

// MarkDeposited flags the quarter's undeposited entries as deposited. Already deposited rows
// are never touched, so repeating a call reports zero updates. Every call is audited.
func (s *TDSService) MarkDeposited(ctx context.Context, actor Actor, input MarkDepositedInput) (*MarkDepositedResult, error) {
	result, err := s.markDeposited(ctx, actor, input)
	details := map[string]interface{}{
		"quarter":        input.Quarter,
		"fiscal_year":    input.FiscalYear,
		"challan_number": input.ChallanNumber,
		"entry_ids":      input.EntryIDs,
	}
	if err != nil {
		s.auditSvc.LogFailure(ctx, actor, models.AuditActionMarkDeposited, "TDSLedgerEntry", 0, err, details)
		return nil, err
	}

	details["entries_updated"] = result.EntriesUpdated
	details["amount_deposited"] = result.AmountDeposited.String()
	s.auditSvc.Log(ctx, actor, models.AuditActionMarkDeposited, "TDSLedgerEntry", 0, details)

	if result.EntriesUpdated > 0 {
		s.invalidate(ctx)
	}
	logger.Info("[TDS] Marked deposited",
		"quarter", input.Quarter, "fiscal_year", input.FiscalYear,
		"entries", result.EntriesUpdated, "amount", result.AmountDeposited.String(), "user_id", actor.UserID)
	return result, nil
}

func (s *TDSService) markDeposited(ctx context.Context, actor Actor, input MarkDepositedInput) (*MarkDepositedResult, error) {
	if !models.IsValidQuarter(input.Quarter) {
		return nil, validationError("quarter must be one of Q1, Q2, Q3, Q4")
	}
	if _, err := models.ParseFiscalYear(input.FiscalYear); err != nil {
		return nil, validationError("%v", err)
	}
	depositDate := businessDate(s.now())
	if input.DepositDate != "" {
		d, err := time.Parse("2006-01-02", input.DepositDate)
		if err != nil {
			return nil, validationError("deposit_date must be YYYY-MM-DD")
		}
		depositDate = d
	}
	var challan *string
	if input.ChallanNumber != "" {
		challan = &input.ChallanNumber
	}

	result := &MarkDepositedResult{AmountDeposited: decimal.Zero}
	err := s.tx.Transaction(ctx, func(tx *repository.Repositories) error {
		rows, err := tx.TDS.LockUndeposited(ctx, input.FiscalYear, input.Quarter, input.EntryIDs)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
			result.AmountDeposited = result.AmountDeposited.Add(r.TDSAmount)
		}
		n, err := tx.TDS.MarkDeposited(ctx, ids, challan, depositDate, actor.UserID)
		if err != nil {
			return err
		}
		result.EntriesUpdated = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CertificateEntries returns a payee's entries for a certificate period
func (s *TDSService) CertificateEntries(ctx context.Context, payeeID uint, fiscalYear, quarter string) ([]models.TDSLedgerEntry, error) {
	if _, err := models.ParseFiscalYear(fiscalYear); err != nil {
		return nil, validationError("%v", err)
	}
	if quarter != "" && !models.IsValidQuarter(quarter) {
		return nil, validationError("quarter must be one of Q1, Q2, Q3, Q4")
	}
	return s.repo.ListForCertificate(ctx, payeeID, fiscalYear, quarter)
}

// ListByFiscalYear returns all entries of a fiscal year for exports
func (s *TDSService) ListByFiscalYear(ctx context.Context, fiscalYear string) ([]models.TDSLedgerEntry, error) {
	if _, err := models.ParseFiscalYear(fiscalYear); err != nil {
		return nil, validationError("%v", err)
	}
	return s.repo.ListByFiscalYear(ctx, fiscalYear, nil)
}

func (s *TDSService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidatePrefix(ctx, tdsSummaryCachePrefix)
	}
}
