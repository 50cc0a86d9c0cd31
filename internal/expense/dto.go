package expense

import (
	"time"

	"github.com/hazemk/divvy/internal/expense/split"
)

// CreateExpenseRequest is the request to create an expense with its splits.
type CreateExpenseRequest struct {
	Description  string               `json:"description" validate:"required,min=1,max=255"`
	Amount       float64              `json:"amount" validate:"required,gt=0,lte=999999.99"`
	Currency     string               `json:"currency" validate:"required,len=3,uppercase"`
	Date         time.Time            `json:"date" validate:"required"`
	GroupID      *int64               `json:"group_id,omitempty"`
	Category     string               `json:"category,omitempty" validate:"omitempty,oneof=food transportation accommodation entertainment shopping utilities healthcare education other"`
	SplitType    string               `json:"split_type" validate:"required"`
	Participants []*split.Participant `json:"participants"`
}

// UpdateExpenseRequest is the request to update an expense. Amount,
// SplitType and Participants are split-affecting: when any of them is set
// the whole split set is recomputed and replaced.
type UpdateExpenseRequest struct {
	Description  *string              `json:"description,omitempty" validate:"omitempty,min=1,max=255"`
	Amount       *float64             `json:"amount,omitempty" validate:"omitempty,gt=0,lte=999999.99"`
	Date         *time.Time           `json:"date,omitempty"`
	Category     *string              `json:"category,omitempty" validate:"omitempty,oneof=food transportation accommodation entertainment shopping utilities healthcare education other"`
	SplitType    *string              `json:"split_type,omitempty"`
	Participants []*split.Participant `json:"participants,omitempty"`
}

// SplitAffecting reports whether the update changes the split configuration.
func (req *UpdateExpenseRequest) SplitAffecting() bool {
	return req.Amount != nil || req.SplitType != nil || len(req.Participants) > 0
}

// ExpenseResponse is the API shape of an expense.
type ExpenseResponse struct {
	ID            int64            `json:"id"`
	GroupID       *int64           `json:"group_id,omitempty"`
	PaidBy        int64            `json:"paid_by"`
	PayerUsername string           `json:"payer_username,omitempty"`
	Description   string           `json:"description"`
	Amount        float64          `json:"amount"`
	Currency      string           `json:"currency"`
	Category      Category         `json:"category"`
	Date          string           `json:"date"`
	CreatedAt     string           `json:"created_at"`
	Splits        []*SplitResponse `json:"splits,omitempty"`
}

// SplitResponse is the API shape of a split.
type SplitResponse struct {
	ID         int64    `json:"id"`
	ExpenseID  int64    `json:"expense_id"`
	UserID     int64    `json:"user_id"`
	Username   string   `json:"username,omitempty"`
	Amount     float64  `json:"amount"`
	Percentage *float64 `json:"percentage,omitempty"`
	Shares     *int     `json:"shares,omitempty"`
	Settled    bool     `json:"settled"`
	UpdatedAt  string   `json:"updated_at"`
}

// ToResponse converts an Expense model to its API shape.
func (e *Expense) ToResponse() *ExpenseResponse {
	return &ExpenseResponse{
		ID:            e.ID,
		GroupID:       e.GroupID,
		PaidBy:        e.PaidBy,
		PayerUsername: e.PayerUsername,
		Description:   e.Description,
		Amount:        e.Amount,
		Currency:      e.Currency,
		Category:      e.Category,
		Date:          e.Date.Format("2006-01-02"),
		CreatedAt:     e.CreatedAt.Format(time.RFC3339),
	}
}

// ToResponse converts a Split model to its API shape.
func (s *Split) ToResponse() *SplitResponse {
	return &SplitResponse{
		ID:         s.ID,
		ExpenseID:  s.ExpenseID,
		UserID:     s.UserID,
		Username:   s.Username,
		Amount:     s.Amount,
		Percentage: s.Percentage,
		Shares:     s.Shares,
		Settled:    s.Settled,
		UpdatedAt:  s.UpdatedAt.Format(time.RFC3339),
	}
}

// ToResponse converts an ExpenseWithSplits to its API shape.
func (ews *ExpenseWithSplits) ToResponse() *ExpenseResponse {
	resp := ews.Expense.ToResponse()
	resp.Splits = make([]*SplitResponse, len(ews.Splits))
	for i, s := range ews.Splits {
		resp.Splits[i] = s.ToResponse()
	}
	return resp
}
