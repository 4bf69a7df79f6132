package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripplanner-backend/utils"
)

// GET /api/activity
func (h *Handler) GetActivity(c *gin.Context) {
	page, ok := pagination(c)
	if !ok {
		return
	}
	feed, err := h.Activity.ListForUser(c.Request.Context(), utils.GetCurrentUserID(c), page.Offset(), page.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", feed)
}

// GET /api/trips/:id/activity
func (h *Handler) GetTripActivity(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	page, ok := pagination(c)
	if !ok {
		return
	}
	feed, err := h.Activity.ListForTrip(c.Request.Context(), tripID, utils.GetCurrentUserID(c), page.Offset(), page.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", feed)
}
