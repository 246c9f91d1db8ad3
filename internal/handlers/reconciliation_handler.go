package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/coachpay-api/internal/services"
)

type ReconciliationHandler struct {
	reconcileService *services.ReconciliationService
}

func NewReconciliationHandler(reconcileService *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconcileService: reconcileService}
}

// @Summary Orphaned Payments
// @Description Open reconciliation findings detected within the last N days plus the latest run
// @Tags Reconciliation
// @Produce json
// @Param days query int false "Lookback in days (max 90)"
// @Success 200 {object} services.OrphanReport
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /orphaned-payments [get]
func (h *ReconciliationHandler) Index(c *gin.Context) {
	days := 0
	if val := c.Query("days"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive number"})
			return
		}
		days = n
	}

	report, err := h.reconcileService.ListOrphans(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type ResolveFindingRequest struct {
	Resolution string `json:"resolution" binding:"required"`
	Note       string `json:"note"`
}

// @Summary Resolve Orphaned Payment
// @Description Record the operator decision on a finding: enrollment_created, refunded or ignored
// @Tags Reconciliation
// @Accept json
// @Produce json
// @Param id path int true "Finding ID"
// @Param request body ResolveFindingRequest true "Resolution"
// @Success 200 {object} models.ReconciliationFinding
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /orphaned-payments/{id}/resolve [post]
func (h *ReconciliationHandler) Resolve(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req ResolveFindingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	finding, err := h.reconcileService.Resolve(c.Request.Context(), actorFrom(c), id, req.Resolution, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"finding": finding})
}
