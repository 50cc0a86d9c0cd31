package split

import (
	"fmt"
	"math"
	"strconv"
)

// Policy identifies how an expense total is divided among its participants.
type Policy string

const (
	PolicyEqual      Policy = "EQUAL"
	PolicyExact      Policy = "EXACT"
	PolicyPercentage Policy = "PERCENTAGE"
	PolicyShares     Policy = "SHARES"
)

// Participant is one participant's entry in a split request. Which optional
// field must be set depends on the policy.
type Participant struct {
	UserID     int64    `json:"user_id"`
	Amount     *float64 `json:"amount,omitempty"`     // EXACT
	Percentage *float64 `json:"percentage,omitempty"` // PERCENTAGE
	Shares     *int     `json:"shares,omitempty"`     // SHARES
}

// Result is the computed share for a single participant. Percentage and
// Shares echo the input that produced the amount, so the persisted split
// records which policy was used.
type Result struct {
	UserID     int64
	Amount     float64
	Percentage *float64
	Shares     *int
}

// ValidationError reports malformed or numerically inconsistent split input.
// The message is surfaced to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Strategy is implemented once per policy. Calculate is pure and
// deterministic: same input, same output, order-preserving relative to the
// input participant list. Every participant receives a result, the payer
// included.
type Strategy interface {
	// Policy returns the policy this strategy implements.
	Policy() Policy

	// Validate checks the inputs before any arithmetic is done.
	Validate(total float64, participants []Participant) error

	// Calculate computes the concrete share for every participant.
	Calculate(total float64, participants []Participant) ([]Result, error)
}

// Factory resolves a policy to its strategy implementation.
type Factory struct{}

// NewFactory creates a new strategy factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy for the given policy.
func (f *Factory) Create(policy Policy) (Strategy, error) {
	switch policy {
	case PolicyEqual:
		return &EqualStrategy{}, nil
	case PolicyExact:
		return &ExactStrategy{}, nil
	case PolicyPercentage:
		return &PercentageStrategy{}, nil
	case PolicyShares:
		return &SharesStrategy{}, nil
	default:
		return nil, validationf("Unsupported split type: %s", policy)
	}
}

// CreateFromString resolves a policy given as a raw string, as it arrives in
// API requests.
func (f *Factory) CreateFromString(policy string) (Strategy, error) {
	return f.Create(Policy(policy))
}

// sumTolerance is the absolute tolerance used when reconciling sums of
// amounts or percentages against their expected value.
const sumTolerance = 0.01

// round2 rounds to the nearest cent.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// fmtNum renders a number for validation messages without an exponent or
// trailing zeros (105 -> "105", 99.9 -> "99.9").
func fmtNum(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}
