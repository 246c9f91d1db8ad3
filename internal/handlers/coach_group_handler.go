package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/coachpay-api/internal/services"
)

type CoachGroupHandler struct {
	groupService *services.CoachGroupService
}

func NewCoachGroupHandler(groupService *services.CoachGroupService) *CoachGroupHandler {
	return &CoachGroupHandler{groupService: groupService}
}

// @Summary List Coach Groups
// @Description Get every coach group with its revenue split percentages
// @Tags Coach Groups
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /coach-groups [get]
func (h *CoachGroupHandler) Index(c *gin.Context) {
	groups, err := h.groupService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coach_groups": groups})
}

// @Summary Create Coach Group
// @Description Create a coach group. The three percentages must sum to 100.
// @Tags Coach Groups
// @Accept json
// @Produce json
// @Param request body services.CoachGroupInput true "Coach group"
// @Success 201 {object} models.CoachGroup
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /coach-groups [post]
func (h *CoachGroupHandler) Create(c *gin.Context) {
	var input services.CoachGroupInput
	if err := BindNestedOrFlat(c, "coach_group", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupService.Create(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"coach_group": group})
}

// @Summary Update Coach Group
// @Description Update a coach group. Existing revenue splits keep their snapshot.
// @Tags Coach Groups
// @Accept json
// @Produce json
// @Param id path int true "Coach group ID"
// @Param request body services.CoachGroupInput true "Coach group"
// @Success 200 {object} models.CoachGroup
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /coach-groups/{id} [put]
func (h *CoachGroupHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.CoachGroupInput
	if err := BindNestedOrFlat(c, "coach_group", &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupService.Update(c.Request.Context(), actorFrom(c), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coach_group": group})
}
