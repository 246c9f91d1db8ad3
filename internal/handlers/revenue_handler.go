package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/coachpay-api/internal/services"
)

type RevenueHandler struct {
	splitService *services.RevenueSplitService
}

func NewRevenueHandler(splitService *services.RevenueSplitService) *RevenueHandler {
	return &RevenueHandler{splitService: splitService}
}

// @Summary List Revenue Splits
// @Description Get a paginated list of revenue split records
// @Tags Revenue
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param payee_id query int false "Coach or referring payee"
// @Param status query string false "pending, scheduled or completed"
// @Param enrollment_id query int false "Enrollment ID"
// @Param fiscal_year query string false "Fiscal year, e.g. 2025-26"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /revenue/splits [get]
func (h *RevenueHandler) Index(c *gin.Context) {
	query := newListQuery(c, 20)
	for _, key := range []string{"payee_id", "status", "enrollment_id", "fiscal_year"} {
		if val := c.Query(key); val != "" {
			query.Filters[key] = val
		}
	}

	splits, total, err := h.splitService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"splits":     splits,
		"pagination": gin.H{"total": total, "page": query.Page, "per_page": query.PerPage},
	})
}

// @Summary Get Revenue Split
// @Description Get a revenue split record with its installments
// @Tags Revenue
// @Produce json
// @Param id path int true "Revenue split ID"
// @Success 200 {object} models.RevenueSplit
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /revenue/splits/{id} [get]
func (h *RevenueHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	split, err := h.splitService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"split": split})
}

// @Summary Re-run Revenue Split
// @Description Rebuild the paid event from the stored enrollment and split it. Idempotent.
// @Tags Revenue
// @Produce json
// @Param id path int true "Enrollment ID"
// @Success 201 {object} models.RevenueSplit
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /revenue/enrollments/{id}/split [post]
func (h *RevenueHandler) Resplit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	split, err := h.splitService.Resplit(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		if errors.Is(err, services.ErrAlreadySplit) && split != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "split": split})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"split": split})
}

// EnrollmentPaid is the split trigger of the payment verification service. A repeated
// delivery answers 200 with the stored split.
// @Summary Enrollment Paid
// @Description Split a paid enrollment and schedule its payouts
// @Tags Internal
// @Accept json
// @Produce json
// @Param X-Cron-Secret header string true "Shared secret"
// @Param request body services.EnrollmentPaidEvent true "Paid enrollment"
// @Success 201 {object} models.RevenueSplit
// @Success 200 {object} models.RevenueSplit
// @Failure 422 {object} map[string]string
// @Router /internal/enrollments/paid [post]
func (h *RevenueHandler) EnrollmentPaid(c *gin.Context) {
	var ev services.EnrollmentPaidEvent
	if err := BindNestedOrFlat(c, "enrollment", &ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	split, err := h.splitService.OnEnrollmentPaid(c.Request.Context(), ev)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"split": split})
	case errors.Is(err, services.ErrAlreadySplit) && split != nil:
		c.JSON(http.StatusOK, gin.H{"split": split, "already_split": true})
	default:
		respondError(c, err)
	}
}

func parseOptionalUint(val string) (*uint, bool) {
	if val == "" {
		return nil, true
	}
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil || n == 0 {
		return nil, false
	}
	id := uint(n)
	return &id, true
}
