package expense

import (
	"time"
)

// MaxAmount is the largest total a single expense may carry.
const MaxAmount = 999999.99

// Category is an enumerated expense tag.
type Category string

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryAccommodation  Category = "accommodation"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryUtilities      Category = "utilities"
	CategoryHealthcare     Category = "healthcare"
	CategoryEducation      Category = "education"
	CategoryOther          Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransportation, CategoryAccommodation,
		CategoryEntertainment, CategoryShopping, CategoryUtilities,
		CategoryHealthcare, CategoryEducation, CategoryOther:
		return true
	}
	return false
}

// Expense is one monetary event fronted by a single payer. GroupID is nil
// for personal/peer expenses. The sum of its splits reconciles with Amount
// within a cent at creation and after any split-affecting update.
type Expense struct {
	ID          int64     `json:"id"`
	GroupID     *int64    `json:"group_id,omitempty"`
	PaidBy      int64     `json:"paid_by"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    Category  `json:"category"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Populated via JOIN
	PayerUsername string `json:"payer_username,omitempty"`
}

// Split is one participant's share of an expense. Percentage and Shares
// record the policy that produced the amount. Settled is the only field
// mutable independent of the parent expense, and it is fully reversible.
type Split struct {
	ID         int64     `json:"id"`
	ExpenseID  int64     `json:"expense_id"`
	UserID     int64     `json:"user_id"`
	Amount     float64   `json:"amount"`
	Percentage *float64  `json:"percentage,omitempty"`
	Shares     *int      `json:"shares,omitempty"`
	Settled    bool      `json:"settled"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Populated via JOIN
	Username string `json:"username,omitempty"`
}

// ExpenseWithSplits combines an expense with its splits.
type ExpenseWithSplits struct {
	Expense *Expense
	Splits  []*Split
}
