package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripplanner-backend/utils"
)

// GET /api/trips/:id/balances
func (h *Handler) GetTripBalances(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	balances, err := h.Expenses.GetTripBalances(c.Request.Context(), tripID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", balances)
}
