package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/coachpay-api/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Worker statistics plus the last run of each batch job
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	status := h.jobService.GetStatus()
	c.JSON(http.StatusOK, status)
}

// RunPayouts runs the disbursement batch synchronously
// @Summary Run Payouts
// @Description Disburse every due installment now and return the run summary
// @Tags Internal
// @Produce json
// @Param X-Cron-Secret header string true "Shared secret"
// @Success 200 {object} services.PayoutRunSummary
// @Failure 409 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /internal/jobs/payouts [post]
func (h *JobHandler) RunPayouts(c *gin.Context) {
	summary, err := h.jobService.RunPayouts(c.Request.Context(), services.TriggerInternal)
	if err != nil {
		if summary != nil {
			// aborted runs still report what was paid before the abort
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "summary": summary})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// RunReconciliation runs the capture sweep synchronously
// @Summary Run Reconciliation
// @Description Compare gateway captures of the last N days with internal payments
// @Tags Internal
// @Produce json
// @Param X-Cron-Secret header string true "Shared secret"
// @Param days query int false "Lookback in days (policy default when omitted)"
// @Success 200 {object} models.ReconciliationRun
// @Failure 409 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /internal/jobs/reconciliation [post]
func (h *JobHandler) RunReconciliation(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive number"})
		return
	}

	run, err := h.jobService.RunReconciliation(c.Request.Context(), days)
	if err != nil {
		if run != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "run": run})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}
