package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripplanner-backend/models"
	"tripplanner-backend/utils"
)

// GET /api/expenses/:id/settlements
func (h *Handler) ListExpenseSettlements(c *gin.Context) {
	expenseID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.Expenses.GetExpense(c.Request.Context(), expenseID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", settlementResponses(detail.Settlements, detail.Users))
}

// POST /api/settlements/:id/paid
func (h *Handler) MarkSettlementPaid(c *gin.Context) {
	settlementID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	st, err := h.Expenses.MarkSettlementPaid(c.Request.Context(), settlementID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Settlement marked as paid", st.ToResponse())
}

// PUT /api/settlements/:id
func (h *Handler) RecordSettlementPayment(c *gin.Context) {
	settlementID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	st, err := h.Expenses.RecordSettlementPayment(c.Request.Context(), settlementID, utils.GetCurrentUserID(c), req.AmountPaid, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Payment recorded", st.ToResponse())
}

// GET /api/settlements/:id/can-update
func (h *Handler) CanUpdateSettlement(c *gin.Context) {
	settlementID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	allowed, err := h.Expenses.CanUpdateSettlement(c.Request.Context(), settlementID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"can_update": allowed})
}
