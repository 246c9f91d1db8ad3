package services

import (
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/jobs"
	"github.com/sjperalta/coachpay-api/internal/paymentrail"
	"github.com/sjperalta/coachpay-api/internal/repository"
	"github.com/sjperalta/coachpay-api/internal/storage"
)

// Services holds all service instances
type Services struct {
	Auth           *AuthService
	Audit          *AuditService
	CoachGroup     *CoachGroupService
	RevenueSplit   *RevenueSplitService
	Referral       *ReferralService
	TDS            *TDSService
	Disbursement   *DisbursementService
	Reconciliation *ReconciliationService
	Export         *ExportService
	Email          *EmailService
	Job            *JobService
}

// Deps are the infrastructure pieces services are built on. Rail and Cache may be nil.
type Deps struct {
	Repos   *repository.Repositories
	Worker  *jobs.Worker
	Storage *storage.LocalStorage
	Rail    paymentrail.Rail
	Cipher  BankDataDecrypter
	Cache   SummaryCache
	Config  *config.Config
	Policy  *config.Policy
}

// NewServices creates all service instances
func NewServices(d Deps) *Services {
	repos := d.Repos
	auditSvc := NewAuditService(repos.Audit)
	emailSvc := NewEmailService(d.Config)

	groupSvc := NewCoachGroupService(repos.CoachGroup, auditSvc, d.Policy)
	referralSvc := NewReferralService(repos.Referral, repos, d.Policy)
	scheduler := NewPayoutScheduler(d.Policy.InstallmentCount, d.Policy.PayoutDayOfMonth)
	tdsSvc := NewTDSService(repos.TDS, repos, auditSvc, d.Cache)

	var archive Archiver
	if d.Storage != nil {
		archive = d.Storage
	}

	disbursementSvc := NewDisbursementService(repos, repos, d.Rail, d.Cipher, tdsSvc, auditSvc, emailSvc, d.Worker, d.Policy, d.Config.PayoutPayeeDelay)
	reconcileSvc := NewReconciliationService(repos, d.Rail, auditSvc, emailSvc, d.Worker, d.Policy)

	return &Services{
		Auth:           NewAuthService(d.Config),
		Audit:          auditSvc,
		CoachGroup:     groupSvc,
		RevenueSplit:   NewRevenueSplitService(repos, repos, groupSvc, scheduler, referralSvc, auditSvc, d.Policy),
		Referral:       referralSvc,
		TDS:            tdsSvc,
		Disbursement:   disbursementSvc,
		Reconciliation: reconcileSvc,
		Export:         NewExportService(tdsSvc, repos.Payee, archive, d.Config.DeductorName),
		Email:          emailSvc,
		Job:            NewJobService(d.Worker, disbursementSvc, reconcileSvc),
	}
}
