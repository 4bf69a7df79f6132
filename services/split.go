package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tripplanner-backend/models"
	"tripplanner-backend/utils"
)

var hundred = decimal.NewFromInt(100)

// ShareInput is one participant's value for a non-equal split: a percentage,
// an exact amount or a relative weight depending on the split method.
type ShareInput struct {
	UserID uuid.UUID
	Value  decimal.Decimal
}

// Allocation is one participant's owed amount.
type Allocation struct {
	UserID uuid.UUID
	Amount decimal.Decimal
}

// computeSplit divides amount among participants. members are the trip's
// accepted members; every share must name one of them. For EQUAL splits an
// empty shares list means every member participates.
func computeSplit(method models.SplitMethod, amount decimal.Decimal, currency string, members []uuid.UUID, shares []ShareInput) ([]Allocation, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}
	scale := utils.CurrencyScale(currency)
	if !utils.FitsScale(amount, currency) {
		return nil, invalid("amount has more than %d decimal places for %s", scale, currency)
	}

	allowed := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		allowed[m] = true
	}
	seen := make(map[uuid.UUID]bool, len(shares))
	for _, s := range shares {
		if !allowed[s.UserID] {
			return nil, invalid("user %s is not an accepted member of this trip", s.UserID)
		}
		if seen[s.UserID] {
			return nil, invalid("user %s appears more than once in the split", s.UserID)
		}
		seen[s.UserID] = true
		if s.Value.IsNegative() {
			return nil, invalid("split values cannot be negative")
		}
	}

	switch method {
	case models.SplitEqual:
		ids := members
		if len(shares) > 0 {
			ids = make([]uuid.UUID, len(shares))
			for i, s := range shares {
				ids[i] = s.UserID
			}
		}
		if len(ids) == 0 {
			return nil, invalid("an equal split needs at least one participant")
		}
		weights := make([]decimal.Decimal, len(ids))
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
		return allocate(amount, scale, ids, weights)

	case models.SplitPercentage:
		if len(shares) == 0 {
			return nil, invalid("percentage split requires shares")
		}
		ids, weights := unzip(shares)
		if total := sum(weights); !total.Equal(hundred) {
			return nil, invalid("percentages must add up to 100, got %s", total.String())
		}
		return allocate(amount, scale, ids, weights)

	case models.SplitAmount:
		if len(shares) == 0 {
			return nil, invalid("amount split requires shares")
		}
		ids, values := unzip(shares)
		for _, v := range values {
			if !utils.FitsScale(v, currency) {
				return nil, invalid("share %s has more than %d decimal places", v.String(), scale)
			}
		}
		if total := sum(values); !total.Equal(amount) {
			return nil, invalid("split amounts must add up to %s, got %s", amount.String(), total.String())
		}
		out := make([]Allocation, len(ids))
		for i := range ids {
			out[i] = Allocation{UserID: ids[i], Amount: values[i]}
		}
		return out, nil

	case models.SplitCustom:
		if len(shares) == 0 {
			return nil, invalid("custom split requires shares")
		}
		ids, weights := unzip(shares)
		if !sum(weights).IsPositive() {
			return nil, invalid("custom split weights must add up to more than zero")
		}
		return allocate(amount, scale, ids, weights)
	}
	return nil, invalid("unknown split method %q", method)
}

// allocate splits amount in proportion to weights using the largest remainder
// method on minor currency units, so the parts always add up to amount. Ties
// between equal remainders go to the earlier participant.
func allocate(amount decimal.Decimal, scale int32, ids []uuid.UUID, weights []decimal.Decimal) ([]Allocation, error) {
	total := sum(weights)
	if !total.IsPositive() {
		return nil, invalid("split weights must add up to more than zero")
	}
	units := amount.Shift(scale)

	type part struct {
		idx   int
		units decimal.Decimal
		rem   decimal.Decimal
	}
	parts := make([]part, len(ids))
	assigned := decimal.Zero
	for i, w := range weights {
		q, r := units.Mul(w).QuoRem(total, 0)
		parts[i] = part{idx: i, units: q, rem: r}
		assigned = assigned.Add(q)
	}

	leftover := units.Sub(assigned).IntPart()
	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return parts[order[a]].rem.GreaterThan(parts[order[b]].rem)
	})
	one := decimal.NewFromInt(1)
	for i := int64(0); i < leftover; i++ {
		p := &parts[order[i]]
		p.units = p.units.Add(one)
	}

	out := make([]Allocation, len(parts))
	for i, p := range parts {
		out[i] = Allocation{UserID: ids[p.idx], Amount: p.units.Shift(-scale)}
	}
	return out, nil
}

func unzip(shares []ShareInput) ([]uuid.UUID, []decimal.Decimal) {
	ids := make([]uuid.UUID, len(shares))
	values := make([]decimal.Decimal, len(shares))
	for i, s := range shares {
		ids[i] = s.UserID
		values[i] = s.Value
	}
	return ids, values
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
