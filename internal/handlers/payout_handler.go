package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/coachpay-api/internal/services"
)

type PayoutHandler struct {
	disbursementService *services.DisbursementService
}

func NewPayoutHandler(disbursementService *services.DisbursementService) *PayoutHandler {
	return &PayoutHandler{disbursementService: disbursementService}
}

// @Summary List Payout Installments
// @Description Get a paginated list of payout installments. Superseded attempts are hidden unless requested.
// @Tags Payouts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param payee_id query int false "Payee ID"
// @Param status query string false "scheduled, paid or failed"
// @Param type query string false "coach_cost or lead_bonus"
// @Param revenue_split_id query int false "Revenue split ID"
// @Param due_before query string false "Scheduled on or before (YYYY-MM-DD)"
// @Param include_superseded query bool false "Include superseded attempts"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payouts/installments [get]
func (h *PayoutHandler) Installments(c *gin.Context) {
	query := newListQuery(c, 50)
	for _, key := range []string{"payee_id", "status", "type", "revenue_split_id", "include_superseded"} {
		if val := c.Query(key); val != "" {
			query.Filters[key] = val
		}
	}
	if val := c.Query("due_before"); val != "" {
		day, err := time.Parse("2006-01-02", val)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "due_before must be YYYY-MM-DD"})
			return
		}
		// scheduled dates are stored as UTC midnight
		query.Filters["due_before"] = day.Format("2006-01-02") + " 23:59:59"
	}

	installments, total, err := h.disbursementService.ListInstallments(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"installments": installments,
		"pagination":   gin.H{"total": total, "page": query.Page, "per_page": query.PerPage},
	})
}

// @Summary List Payout Runs
// @Description Get the latest disbursement run summaries
// @Tags Payouts
// @Produce json
// @Param limit query int false "Number of runs" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payouts/runs [get]
func (h *PayoutHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.disbursementService.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// @Summary Retry Payout Installment
// @Description Supersede a failed installment with a fresh attempt scheduled for today
// @Tags Payouts
// @Produce json
// @Param id path int true "Installment ID"
// @Success 201 {object} models.PayoutInstallment
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /payouts/installments/{id}/retry [post]
func (h *PayoutHandler) Retry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	installment, err := h.disbursementService.RetryInstallment(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"installment": installment})
}
