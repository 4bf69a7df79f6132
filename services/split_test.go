package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripplanner-backend/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func total(allocs []Allocation) decimal.Decimal {
	t := decimal.Zero
	for _, a := range allocs {
		t = t.Add(a.Amount)
	}
	return t
}

func TestEqualSplitExactSum(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		members  int
	}{
		{"100.00", "USD", 3},
		{"100.00", "USD", 2},
		{"0.01", "USD", 3},
		{"10.00", "USD", 7},
		{"1000", "JPY", 3},
		{"10.000", "KWD", 3},
		{"99999.99", "EUR", 11},
	}
	for _, tc := range cases {
		members := ids(tc.members)
		allocs, err := computeSplit(models.SplitEqual, d(tc.amount), tc.currency, members, nil)
		require.NoError(t, err, tc)
		require.Len(t, allocs, tc.members)
		assert.True(t, total(allocs).Equal(d(tc.amount)), "%s split %d ways sums to %s", tc.amount, tc.members, total(allocs))
	}
}

func TestEqualSplitGivesRemainderToEarliest(t *testing.T) {
	members := ids(3)
	allocs, err := computeSplit(models.SplitEqual, d("100.00"), "USD", members, nil)
	require.NoError(t, err)

	assert.True(t, allocs[0].Amount.Equal(d("33.34")))
	assert.True(t, allocs[1].Amount.Equal(d("33.33")))
	assert.True(t, allocs[2].Amount.Equal(d("33.33")))
	assert.Equal(t, members[0], allocs[0].UserID)
}

func TestEqualSplitOverSubset(t *testing.T) {
	members := ids(4)
	shares := []ShareInput{{UserID: members[1]}, {UserID: members[3]}}
	allocs, err := computeSplit(models.SplitEqual, d("50.00"), "USD", members, shares)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, members[1], allocs[0].UserID)
	assert.True(t, allocs[0].Amount.Equal(d("25")))
}

func TestPercentageSplit(t *testing.T) {
	members := ids(3)
	shares := []ShareInput{
		{UserID: members[0], Value: d("33.33")},
		{UserID: members[1], Value: d("33.33")},
		{UserID: members[2], Value: d("33.34")},
	}
	allocs, err := computeSplit(models.SplitPercentage, d("10.00"), "USD", members, shares)
	require.NoError(t, err)
	assert.True(t, total(allocs).Equal(d("10.00")))

	shares[2].Value = d("30")
	_, err = computeSplit(models.SplitPercentage, d("10.00"), "USD", members, shares)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAmountSplit(t *testing.T) {
	members := ids(2)
	shares := []ShareInput{
		{UserID: members[0], Value: d("70.25")},
		{UserID: members[1], Value: d("29.75")},
	}
	allocs, err := computeSplit(models.SplitAmount, d("100.00"), "USD", members, shares)
	require.NoError(t, err)
	assert.True(t, allocs[0].Amount.Equal(d("70.25")))

	shares[1].Value = d("29.74")
	_, err = computeSplit(models.SplitAmount, d("100.00"), "USD", members, shares)
	assert.ErrorIs(t, err, ErrValidation)

	shares[1].Value = d("29.745")
	_, err = computeSplit(models.SplitAmount, d("100.005"), "USD", members, shares)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCustomSplitWeights(t *testing.T) {
	members := ids(3)
	shares := []ShareInput{
		{UserID: members[0], Value: d("2")},
		{UserID: members[1], Value: d("1")},
		{UserID: members[2], Value: d("0")},
	}
	allocs, err := computeSplit(models.SplitCustom, d("100.00"), "USD", members, shares)
	require.NoError(t, err)
	assert.True(t, allocs[0].Amount.Equal(d("66.67")))
	assert.True(t, allocs[1].Amount.Equal(d("33.33")))
	assert.True(t, allocs[2].Amount.IsZero())
	assert.True(t, total(allocs).Equal(d("100.00")))
}

func TestSplitRejectsBadInput(t *testing.T) {
	members := ids(2)
	outsider := uuid.New()

	_, err := computeSplit(models.SplitEqual, d("0"), "USD", members, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = computeSplit(models.SplitEqual, d("10.001"), "USD", members, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = computeSplit(models.SplitEqual, d("10"), "USD", members, []ShareInput{{UserID: outsider}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = computeSplit(models.SplitCustom, d("10"), "USD", members, []ShareInput{{UserID: members[0], Value: d("1")}, {UserID: members[0], Value: d("1")}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = computeSplit(models.SplitCustom, d("10"), "USD", members, []ShareInput{{UserID: members[0], Value: d("-1")}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = computeSplit(models.SplitPercentage, d("10"), "USD", members, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = computeSplit(models.SplitEqual, d("10"), "USD", nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
