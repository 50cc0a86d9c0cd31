package split

import "math"

// ExactStrategy takes each participant's amount verbatim. The amounts must
// reconcile with the expense total within the cent tolerance.
type ExactStrategy struct{}

// Policy returns the policy identifier.
func (s *ExactStrategy) Policy() Policy {
	return PolicyExact
}

// Validate checks that every participant carries an amount and that the
// amounts sum to the total.
func (s *ExactStrategy) Validate(total float64, participants []Participant) error {
	var sum float64
	for _, p := range participants {
		if p.Amount == nil {
			return validationf("All participants must have exact amounts specified")
		}
		if *p.Amount < 0 {
			return validationf("Amounts cannot be negative")
		}
		sum += *p.Amount
	}

	if math.Abs(sum-total) > sumTolerance {
		return validationf("Split amounts (%s) do not equal total amount (%s)", fmtNum(sum), fmtNum(total))
	}

	return nil
}

// Calculate returns the specified amounts unchanged, rounded to the cent.
func (s *ExactStrategy) Calculate(total float64, participants []Participant) ([]Result, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	results := make([]Result, len(participants))
	for i, p := range participants {
		results[i] = Result{
			UserID: p.UserID,
			Amount: round2(*p.Amount),
		}
	}

	return results, nil
}
