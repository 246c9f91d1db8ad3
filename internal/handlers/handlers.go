package handlers

import (
	"github.com/sjperalta/coachpay-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health         *HealthHandler
	CoachGroup     *CoachGroupHandler
	Revenue        *RevenueHandler
	Payout         *PayoutHandler
	TDS            *TDSHandler
	Referral       *ReferralHandler
	Reconciliation *ReconciliationHandler
	Audit          *AuditHandler
	Job            *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(),
		CoachGroup:     NewCoachGroupHandler(svcs.CoachGroup),
		Revenue:        NewRevenueHandler(svcs.RevenueSplit),
		Payout:         NewPayoutHandler(svcs.Disbursement),
		TDS:            NewTDSHandler(svcs.TDS, svcs.Export),
		Referral:       NewReferralHandler(svcs.Referral),
		Reconciliation: NewReconciliationHandler(svcs.Reconciliation),
		Audit:          NewAuditHandler(svcs.Audit),
		Job:            NewJobHandler(svcs.Job),
	}
}
