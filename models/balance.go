package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemberBalance: positive Net means the member is owed money, negative means they owe.
type MemberBalance struct {
	UserID   uuid.UUID       `json:"user_id"`
	UserName string          `json:"user_name,omitempty"`
	Net      decimal.Decimal `json:"net"`
}

type Transfer struct {
	FromUserID uuid.UUID       `json:"from_user_id"`
	FromName   string          `json:"from_name,omitempty"`
	ToUserID   uuid.UUID       `json:"to_user_id"`
	ToName     string          `json:"to_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

// CurrencyBalances settles one currency of a trip's ledger.
type CurrencyBalances struct {
	Currency  string          `json:"currency"`
	Balances  []MemberBalance `json:"balances"`
	Transfers []Transfer      `json:"transfers"`
}

type TripBalancesResponse struct {
	TripID     uuid.UUID          `json:"trip_id"`
	Currencies []CurrencyBalances `json:"currencies"`
}
