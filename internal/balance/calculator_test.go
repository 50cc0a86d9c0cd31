package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Empty(t *testing.T) {
	summary := Compute(nil, nil)

	assert.Empty(t, summary.Balances)
	assert.Empty(t, summary.Debts)
}

func TestCompute_SingleDebt(t *testing.T) {
	entries := []*Entry{
		{OwerID: 2, PayerID: 1, Amount: 50},
	}

	summary := Compute(entries, map[int64]string{1: "alice", 2: "bob"})

	require.Len(t, summary.Balances, 2)
	assert.Equal(t, &UserBalance{UserID: 1, Username: "alice", Net: 50, Owed: 50, Owes: 0}, summary.Balances[0])
	assert.Equal(t, &UserBalance{UserID: 2, Username: "bob", Net: -50, Owed: 0, Owes: 50}, summary.Balances[1])

	require.Len(t, summary.Debts, 1)
	assert.Equal(t, &Debt{FromUserID: 2, ToUserID: 1, Amount: 50}, summary.Debts[0])
}

func TestCompute_MutualDebtsNet(t *testing.T) {
	entries := []*Entry{
		{OwerID: 2, PayerID: 1, Amount: 50},
		{OwerID: 1, PayerID: 2, Amount: 20},
	}

	summary := Compute(entries, nil)

	require.Len(t, summary.Debts, 1)
	assert.Equal(t, &Debt{FromUserID: 2, ToUserID: 1, Amount: 30}, summary.Debts[0])

	require.Len(t, summary.Balances, 2)
	assert.InDelta(t, 30, summary.Balances[0].Net, 0.001)
	assert.InDelta(t, -30, summary.Balances[1].Net, 0.001)
}

func TestCompute_MutualDebtsCancelExactly(t *testing.T) {
	entries := []*Entry{
		{OwerID: 2, PayerID: 1, Amount: 25},
		{OwerID: 1, PayerID: 2, Amount: 25},
	}

	summary := Compute(entries, nil)

	assert.Empty(t, summary.Debts)
	for _, b := range summary.Balances {
		assert.Zero(t, b.Net)
	}
}

func TestCompute_ThreeWay(t *testing.T) {
	// Alice paid 90 split equally with Bob and Carol; Bob paid 30 split
	// equally with Carol.
	entries := []*Entry{
		{OwerID: 2, PayerID: 1, Amount: 30},
		{OwerID: 3, PayerID: 1, Amount: 30},
		{OwerID: 3, PayerID: 2, Amount: 15},
	}

	summary := Compute(entries, nil)

	require.Len(t, summary.Balances, 3)
	assert.InDelta(t, 60, summary.Balances[0].Net, 0.001)
	assert.InDelta(t, -15, summary.Balances[1].Net, 0.001)
	assert.InDelta(t, -45, summary.Balances[2].Net, 0.001)

	require.Len(t, summary.Debts, 3)
	assert.Equal(t, &Debt{FromUserID: 2, ToUserID: 1, Amount: 30}, summary.Debts[0])
	assert.Equal(t, &Debt{FromUserID: 3, ToUserID: 1, Amount: 30}, summary.Debts[1])
	assert.Equal(t, &Debt{FromUserID: 3, ToUserID: 2, Amount: 15}, summary.Debts[2])
}

func TestCompute_NetSumIsZero(t *testing.T) {
	entries := []*Entry{
		{OwerID: 2, PayerID: 1, Amount: 33.33},
		{OwerID: 3, PayerID: 1, Amount: 33.33},
		{OwerID: 1, PayerID: 3, Amount: 12.5},
		{OwerID: 4, PayerID: 2, Amount: 7.25},
	}

	summary := Compute(entries, nil)

	var sum float64
	for _, b := range summary.Balances {
		sum += b.Net
	}
	assert.InDelta(t, 0, sum, 0.001)
}

func TestCompute_RoundsToCents(t *testing.T) {
	entries := []*Entry{
		{OwerID: 2, PayerID: 1, Amount: 10.111},
		{OwerID: 2, PayerID: 1, Amount: 10.111},
	}

	summary := Compute(entries, nil)

	require.Len(t, summary.Debts, 1)
	assert.Equal(t, 20.22, summary.Debts[0].Amount)
}
