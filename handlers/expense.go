package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripplanner-backend/models"
	"tripplanner-backend/services"
	"tripplanner-backend/utils"
)

// POST /api/trips/:id/expenses
func (h *Handler) CreateExpense(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	shares, err := parseShares(req.Shares)
	if err != nil {
		utils.BadRequest(c, "Invalid share user_id")
		return
	}
	params := services.CreateExpenseParams{
		Category:    models.ExpenseCategory(req.Category),
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		ReceiptURL:  req.ReceiptURL,
		IsShared:    req.IsShared,
		SplitMethod: models.SplitMethod(req.SplitMethod),
		Shares:      shares,
	}
	if req.ExpenseDate != "" {
		if params.ExpenseDate, err = parseDate(req.ExpenseDate); err != nil {
			utils.BadRequest(c, "Invalid expense_date")
			return
		}
	}

	expense, settlements, err := h.Expenses.CreateExpense(c.Request.Context(), tripID, utils.GetCurrentUserID(c), params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Expense added", expenseWithSettlements(expense, settlements, nil))
}

// GET /api/trips/:id/expenses
func (h *Handler) ListTripExpenses(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	expenses, users, err := h.Expenses.ListTripExpenses(c.Request.Context(), tripID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", expenseList(expenses, users))
}

// GET /api/users/me/expenses
func (h *Handler) ListMyExpenses(c *gin.Context) {
	expenses, users, err := h.Expenses.ListUserExpenses(c.Request.Context(), utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", expenseList(expenses, users))
}

func expenseList(expenses []models.Expense, users map[uuid.UUID]*models.User) []models.ExpenseResponse {
	out := make([]models.ExpenseResponse, len(expenses))
	for i := range expenses {
		out[i] = expenses[i].ToResponse()
		if u := users[expenses[i].PaidByUserID]; u != nil {
			out[i].PayerName = u.Name
		}
	}
	return out
}

// GET /api/trips/:id/expenses/summary
func (h *Handler) GetExpenseSummary(c *gin.Context) {
	tripID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	sum, err := h.Expenses.GetTripExpenseSummary(c.Request.Context(), tripID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := models.ExpenseSummaryResponse{
		CurrencySummaryResponse: currencySummary(sum.CurrencySummary),
		ByCurrency:              make([]models.CurrencySummaryResponse, len(sum.ByCurrency)),
	}
	for i, cs := range sum.ByCurrency {
		out.ByCurrency[i] = currencySummary(cs)
	}
	utils.SuccessResponse(c, http.StatusOK, "", out)
}

func currencySummary(cs services.CurrencySummary) models.CurrencySummaryResponse {
	return models.CurrencySummaryResponse{
		Currency:         cs.Currency,
		TotalExpenses:    cs.TotalExpenses,
		TotalPaid:        cs.TotalPaid,
		TotalConfirmed:   cs.TotalConfirmed,
		RemainingBalance: cs.RemainingBalance,
		ExpenseCount:     cs.ExpenseCount,
	}
}

// GET /api/expenses/:id
func (h *Handler) GetExpense(c *gin.Context) {
	expenseID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.Expenses.GetExpense(c.Request.Context(), expenseID, utils.GetCurrentUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", expenseWithSettlements(&detail.Expense, detail.Settlements, detail.Users))
}

// PUT /api/expenses/:id
func (h *Handler) UpdateExpense(c *gin.Context) {
	expenseID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	shares, err := parseShares(req.Shares)
	if err != nil {
		utils.BadRequest(c, "Invalid share user_id")
		return
	}
	date, err := parseOptionalDate(req.ExpenseDate)
	if err != nil {
		utils.BadRequest(c, "Invalid expense_date")
		return
	}
	params := services.UpdateExpenseParams{
		Description: req.Description,
		Amount:      req.Amount,
		ExpenseDate: date,
		ReceiptURL:  req.ReceiptURL,
		IsShared:    req.IsShared,
		Shares:      shares,
	}
	if req.Category != nil {
		category := models.ExpenseCategory(*req.Category)
		params.Category = &category
	}
	if req.SplitMethod != nil {
		method := models.SplitMethod(*req.SplitMethod)
		params.SplitMethod = &method
	}

	expense, settlements, err := h.Expenses.UpdateExpense(c.Request.Context(), expenseID, utils.GetCurrentUserID(c), params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Expense updated", expenseWithSettlements(expense, settlements, nil))
}

// DELETE /api/expenses/:id
func (h *Handler) DeleteExpense(c *gin.Context) {
	expenseID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Expenses.DeleteExpense(c.Request.Context(), expenseID, utils.GetCurrentUserID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Expense deleted", nil)
}

func expenseWithSettlements(e *models.Expense, settlements []models.ExpenseSettlement, users map[uuid.UUID]*models.User) models.ExpenseResponse {
	out := e.ToResponse()
	if u := users[e.PaidByUserID]; u != nil {
		out.PayerName = u.Name
	}
	out.Settlements = settlementResponses(settlements, users)
	return out
}

func settlementResponses(settlements []models.ExpenseSettlement, users map[uuid.UUID]*models.User) []models.SettlementResponse {
	out := make([]models.SettlementResponse, len(settlements))
	for i := range settlements {
		out[i] = settlements[i].ToResponse()
		if u := users[settlements[i].UserID]; u != nil {
			out[i].UserName = u.Name
		}
	}
	return out
}
