package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/coachpay-api/internal/services"
)

type ReferralHandler struct {
	referralService *services.ReferralService
}

func NewReferralHandler(referralService *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// @Summary Referral Credits
// @Description Get a referring party's credit balance and its credit transactions
// @Tags Referrals
// @Produce json
// @Param id path int true "Referring party ID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} services.ReferralCredits
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /referrals/parties/{id}/credits [get]
func (h *ReferralHandler) Credits(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	credits, err := h.referralService.GetCredits(c.Request.Context(), id, newListQuery(c, 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credits)
}
