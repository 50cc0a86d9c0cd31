package balance

// UserBalance is one user's net position: positive means others owe them,
// negative means they owe others.
type UserBalance struct {
	UserID   int64   `json:"user_id"`
	Username string  `json:"username,omitempty"`
	Net      float64 `json:"net"`
	Owed     float64 `json:"owed"`
	Owes     float64 `json:"owes"`
}

// Debt is a directed pairwise obligation derived from unsettled splits.
type Debt struct {
	FromUserID int64   `json:"from_user_id"`
	ToUserID   int64   `json:"to_user_id"`
	Amount     float64 `json:"amount"`
}

// Summary aggregates a scope's balances with the pairwise debts behind
// them.
type Summary struct {
	Balances []*UserBalance `json:"balances"`
	Debts    []*Debt        `json:"debts"`
}

// Entry is one unsettled split flattened for balance computation: the
// ower owes the payer the amount. Splits where the ower is the payer are
// excluded upstream.
type Entry struct {
	OwerID  int64
	PayerID int64
	Amount  float64
}
