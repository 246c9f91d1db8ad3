package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/coachpay-api/internal/middleware"
)

// RegisterRoutes mounts the API under v1. Reads are open to admin and finance tokens,
// compliance writes need admin, and /internal is guarded by the cron secret.
func RegisterRoutes(v1 *gin.RouterGroup, h *Handlers, jwtSecret, cronSecret string) {
	// Health check (public)
	v1.GET("/health", h.Health.Index)

	// Internal triggers (scheduler, payment verification)
	internal := v1.Group("/internal")
	internal.Use(middleware.CronAuth(cronSecret))
	{
		internal.POST("/jobs/payouts", h.Job.RunPayouts)
		internal.POST("/jobs/reconciliation", h.Job.RunReconciliation)
		internal.POST("/enrollments/paid", h.Revenue.EnrollmentPaid)
	}

	protected := v1.Group("")
	protected.Use(middleware.Auth(jwtSecret))
	{
		// Admin-only compliance writes
		admin := protected.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/coach-groups", h.CoachGroup.Create)
			admin.PUT("/coach-groups/:id", h.CoachGroup.Update)
			admin.POST("/revenue/enrollments/:id/split", h.Revenue.Resplit)
			admin.POST("/payouts/installments/:id/retry", h.Payout.Retry)
			admin.POST("/tds/mark-deposited", h.TDS.MarkDeposited)
			admin.POST("/orphaned-payments/:id/resolve", h.Reconciliation.Resolve)
		}

		// Ledger reads (admin or finance)
		protected.GET("/coach-groups", h.CoachGroup.Index)
		protected.GET("/revenue/splits", h.Revenue.Index)
		protected.GET("/revenue/splits/:id", h.Revenue.Show)
		protected.GET("/payouts/installments", h.Payout.Installments)
		protected.GET("/payouts/runs", h.Payout.Runs)
		protected.GET("/tds-summary", h.TDS.Summary)
		protected.GET("/tds/export", h.TDS.Export)
		protected.GET("/tds/certificates/:payee_id", h.TDS.Certificate)
		protected.GET("/tds/archive", h.TDS.Archived)
		protected.GET("/referrals/parties/:id/credits", h.Referral.Credits)
		protected.GET("/orphaned-payments", h.Reconciliation.Index)
		protected.GET("/audits", h.Audit.Index)
		protected.GET("/jobs/status", h.Job.Status)
	}
}
