package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SplitMethod string

const (
	SplitEqual      SplitMethod = "EQUAL"
	SplitPercentage SplitMethod = "PERCENTAGE"
	SplitAmount     SplitMethod = "AMOUNT"
	SplitCustom     SplitMethod = "CUSTOM"
)

func (m SplitMethod) Valid() bool {
	switch m {
	case SplitEqual, SplitPercentage, SplitAmount, SplitCustom:
		return true
	}
	return false
}

type ExpenseCategory string

const (
	CategoryAccommodation ExpenseCategory = "ACCOMMODATION"
	CategoryTransport     ExpenseCategory = "TRANSPORT"
	CategoryFood          ExpenseCategory = "FOOD"
	CategoryActivity      ExpenseCategory = "ACTIVITY"
	CategoryShopping      ExpenseCategory = "SHOPPING"
	CategoryOther         ExpenseCategory = "OTHER"
)

func (c ExpenseCategory) Valid() bool {
	switch c {
	case CategoryAccommodation, CategoryTransport, CategoryFood, CategoryActivity, CategoryShopping, CategoryOther:
		return true
	}
	return false
}

type Expense struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TripID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaidByUserID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Category     ExpenseCategory `gorm:"size:20;not null"`
	Description  string          `gorm:"not null;size:255"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Currency     string          `gorm:"size:3;not null"`
	ExpenseDate  time.Time       `gorm:"type:date;not null"`
	ReceiptURL   string
	IsShared     bool
	SplitMethod  SplitMethod `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ExpenseSettlement is one debtor's share of one expense.
type ExpenseSettlement struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ExpenseID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_settlement_expense_user"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_settlement_expense_user"`
	AmountOwed decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	AmountPaid decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	IsChecked  bool
	Notes      string `gorm:"size:500"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s *ExpenseSettlement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *ExpenseSettlement) Outstanding() decimal.Decimal {
	return s.AmountOwed.Sub(s.AmountPaid)
}

// Request structs
type CreateExpenseRequest struct {
	Description string          `json:"description" binding:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"omitempty,currency"`
	Category    string          `json:"category" binding:"omitempty,oneof=ACCOMMODATION TRANSPORT FOOD ACTIVITY SHOPPING OTHER"`
	SplitMethod string          `json:"split_method" binding:"omitempty,splitmethod"`
	IsShared    bool            `json:"is_shared"`
	ReceiptURL  string          `json:"receipt_url" binding:"omitempty,url"`
	ExpenseDate string          `json:"expense_date" binding:"omitempty,datetime=2006-01-02"` // YYYY-MM-DD
	Shares      []ShareInput    `json:"shares" binding:"dive"`                                  // required for PERCENTAGE, AMOUNT, CUSTOM
}

type ShareInput struct {
	UserID string          `json:"user_id" binding:"required,uuid"`
	Value  decimal.Decimal `json:"value"` // percentage, exact amount or weight
}

type UpdateExpenseRequest struct {
	Description *string          `json:"description" binding:"omitempty,min=1,max=255"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category" binding:"omitempty,oneof=ACCOMMODATION TRANSPORT FOOD ACTIVITY SHOPPING OTHER"`
	SplitMethod *string          `json:"split_method" binding:"omitempty,splitmethod"`
	IsShared    *bool            `json:"is_shared"`
	ReceiptURL  *string          `json:"receipt_url" binding:"omitempty,url"`
	ExpenseDate *string          `json:"expense_date" binding:"omitempty,datetime=2006-01-02"`
	Shares      []ShareInput     `json:"shares" binding:"dive"`
}

type UpdateSettlementRequest struct {
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Notes      string          `json:"notes" binding:"max=500"`
}

// Response structs
type ExpenseResponse struct {
	ID           uuid.UUID            `json:"id"`
	TripID       uuid.UUID            `json:"trip_id"`
	PaidByUserID uuid.UUID            `json:"paid_by_user_id"`
	PayerName    string               `json:"payer_name,omitempty"`
	Category     ExpenseCategory      `json:"category"`
	Description  string               `json:"description"`
	Amount       decimal.Decimal      `json:"amount"`
	Currency     string               `json:"currency"`
	ExpenseDate  string               `json:"expense_date"`
	ReceiptURL   string               `json:"receipt_url,omitempty"`
	IsShared     bool                 `json:"is_shared"`
	SplitMethod  SplitMethod          `json:"split_method"`
	Settlements  []SettlementResponse `json:"settlements,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

func (e *Expense) ToResponse() ExpenseResponse {
	return ExpenseResponse{
		ID:           e.ID,
		TripID:       e.TripID,
		PaidByUserID: e.PaidByUserID,
		Category:     e.Category,
		Description:  e.Description,
		Amount:       e.Amount,
		Currency:     e.Currency,
		ExpenseDate:  e.ExpenseDate.Format(DateLayout),
		ReceiptURL:   e.ReceiptURL,
		IsShared:     e.IsShared,
		SplitMethod:  e.SplitMethod,
		CreatedAt:    e.CreatedAt,
	}
}

type SettlementResponse struct {
	ID         uuid.UUID       `json:"id"`
	ExpenseID  uuid.UUID       `json:"expense_id"`
	UserID     uuid.UUID       `json:"user_id"`
	UserName   string          `json:"user_name,omitempty"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	IsChecked  bool            `json:"is_checked"`
	Notes      string          `json:"notes,omitempty"`
}

func (s *ExpenseSettlement) ToResponse() SettlementResponse {
	return SettlementResponse{
		ID:         s.ID,
		ExpenseID:  s.ExpenseID,
		UserID:     s.UserID,
		AmountOwed: s.AmountOwed,
		AmountPaid: s.AmountPaid,
		IsChecked:  s.IsChecked,
		Notes:      s.Notes,
	}
}

type CurrencySummaryResponse struct {
	Currency         string          `json:"currency"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalConfirmed   decimal.Decimal `json:"total_confirmed"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	ExpenseCount     int             `json:"expense_count"`
}

// ExpenseSummaryResponse reports the trip currency at the top level and every
// currency used by the ledger under by_currency.
type ExpenseSummaryResponse struct {
	CurrencySummaryResponse
	ByCurrency []CurrencySummaryResponse `json:"by_currency"`
}
