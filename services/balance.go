package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tripplanner-backend/models"
)

// GetTripBalances nets every member's outstanding settlements, per currency,
// and reduces them to a short list of transfers.
func (s *ExpenseService) GetTripBalances(ctx context.Context, tripID, requesterID uuid.UUID) (*models.TripBalancesResponse, error) {
	db := s.db.WithContext(ctx)
	if err := exists(db, &models.Trip{}, "id = ?", tripID); err != nil {
		return nil, err
	}
	if err := requireMember(db, tripID, requesterID); err != nil {
		return nil, err
	}
	expenses, settlements, err := tripLedger(db, tripID)
	if err != nil {
		return nil, err
	}

	nets := netBalances(expenses, settlements)

	var userIDs []uuid.UUID
	for _, net := range nets {
		for id := range net {
			userIDs = append(userIDs, id)
		}
	}
	users, err := usersByID(db, userIDs)
	if err != nil {
		return nil, err
	}
	name := func(id uuid.UUID) string {
		if u := users[id]; u != nil {
			return u.Name
		}
		return ""
	}

	currencies := make([]string, 0, len(nets))
	for c := range nets {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	out := &models.TripBalancesResponse{TripID: tripID, Currencies: []models.CurrencyBalances{}}
	for _, c := range currencies {
		cb := models.CurrencyBalances{Currency: c, Balances: []models.MemberBalance{}, Transfers: []models.Transfer{}}
		for _, b := range sortedBalances(nets[c]) {
			b.UserName = name(b.UserID)
			cb.Balances = append(cb.Balances, b)
		}
		for _, t := range simplifyDebts(nets[c]) {
			t.FromName = name(t.FromUserID)
			t.ToName = name(t.ToUserID)
			cb.Transfers = append(cb.Transfers, t)
		}
		out.Currencies = append(out.Currencies, cb)
	}
	return out, nil
}

// netBalances: positive means the user is owed money. Only unpaid portions of
// settlements count; the payer's own share never creates a debt.
func netBalances(expenses []models.Expense, settlements []models.ExpenseSettlement) map[string]map[uuid.UUID]decimal.Decimal {
	byID := make(map[uuid.UUID]models.Expense, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
	}
	nets := make(map[string]map[uuid.UUID]decimal.Decimal)
	for _, st := range settlements {
		e, ok := byID[st.ExpenseID]
		if !ok || st.UserID == e.PaidByUserID {
			continue
		}
		outstanding := st.Outstanding()
		if !outstanding.IsPositive() {
			continue
		}
		net := nets[e.Currency]
		if net == nil {
			net = make(map[uuid.UUID]decimal.Decimal)
			nets[e.Currency] = net
		}
		net[e.PaidByUserID] = net[e.PaidByUserID].Add(outstanding)
		net[st.UserID] = net[st.UserID].Sub(outstanding)
	}
	return nets
}

func sortedBalances(net map[uuid.UUID]decimal.Decimal) []models.MemberBalance {
	out := make([]models.MemberBalance, 0, len(net))
	for id, amount := range net {
		out = append(out, models.MemberBalance{UserID: id, Net: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Net.Cmp(out[j].Net); c != 0 {
			return c > 0
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out
}

// simplifyDebts greedily matches the largest debtors with the largest creditors.
func simplifyDebts(net map[uuid.UUID]decimal.Decimal) []models.Transfer {
	type userBalance struct {
		UserID uuid.UUID
		Amount decimal.Decimal
	}

	var creditors []userBalance // people who are owed money (positive balance)
	var debtors []userBalance   // people who owe money (negative balance)
	for _, b := range sortedBalances(net) {
		switch {
		case b.Net.IsPositive():
			creditors = append(creditors, userBalance{b.UserID, b.Net})
		case b.Net.IsNegative():
			debtors = append(debtors, userBalance{b.UserID, b.Net.Neg()})
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].Amount.GreaterThan(debtors[j].Amount) })

	var results []models.Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].Amount, creditors[j].Amount)
		results = append(results, models.Transfer{
			FromUserID: debtors[i].UserID,
			ToUserID:   creditors[j].UserID,
			Amount:     amount,
		})

		debtors[i].Amount = debtors[i].Amount.Sub(amount)
		creditors[j].Amount = creditors[j].Amount.Sub(amount)
		if debtors[i].Amount.IsZero() {
			i++
		}
		if creditors[j].Amount.IsZero() {
			j++
		}
	}
	return results
}
