package balance

import (
	"math"
	"sort"
)

// Compute derives per-user net balances and netted pairwise debts from
// unsettled split entries. names maps user IDs to display names and may
// be nil. Opposite obligations between the same pair cancel; results are
// ordered by user ID for stable output.
func Compute(entries []*Entry, names map[int64]string) *Summary {
	type pair struct{ from, to int64 }

	owed := make(map[int64]float64)
	owes := make(map[int64]float64)
	pairwise := make(map[pair]float64)
	users := make(map[int64]bool)

	for _, e := range entries {
		owes[e.OwerID] += e.Amount
		owed[e.PayerID] += e.Amount
		users[e.OwerID] = true
		users[e.PayerID] = true

		// Fold each obligation into a single canonical direction so
		// mutual debts cancel.
		if e.OwerID < e.PayerID {
			pairwise[pair{e.OwerID, e.PayerID}] += e.Amount
		} else {
			pairwise[pair{e.PayerID, e.OwerID}] -= e.Amount
		}
	}

	summary := &Summary{
		Balances: make([]*UserBalance, 0, len(users)),
		Debts:    make([]*Debt, 0, len(pairwise)),
	}

	ids := make([]int64, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		summary.Balances = append(summary.Balances, &UserBalance{
			UserID:   id,
			Username: names[id],
			Net:      round2(owed[id] - owes[id]),
			Owed:     round2(owed[id]),
			Owes:     round2(owes[id]),
		})
	}

	pairs := make([]pair, 0, len(pairwise))
	for p := range pairwise {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].from != pairs[j].from {
			return pairs[i].from < pairs[j].from
		}
		return pairs[i].to < pairs[j].to
	})

	for _, p := range pairs {
		amount := round2(pairwise[p])
		switch {
		case amount > 0:
			summary.Debts = append(summary.Debts, &Debt{FromUserID: p.from, ToUserID: p.to, Amount: amount})
		case amount < 0:
			summary.Debts = append(summary.Debts, &Debt{FromUserID: p.to, ToUserID: p.from, Amount: -amount})
		}
	}

	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
