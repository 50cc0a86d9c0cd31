package split

import "math"

// PercentageStrategy divides the total according to each participant's
// percentage. The percentages must sum to 100 within the tolerance.
type PercentageStrategy struct{}

// Policy returns the policy identifier.
func (s *PercentageStrategy) Policy() Policy {
	return PolicyPercentage
}

// Validate checks that every participant carries a percentage and that the
// percentages sum to 100.
func (s *PercentageStrategy) Validate(total float64, participants []Participant) error {
	var sum float64
	for _, p := range participants {
		if p.Percentage == nil {
			return validationf("All participants must have percentages specified")
		}
		if *p.Percentage < 0 || *p.Percentage > 100 {
			return validationf("Percentage must be between 0 and 100")
		}
		sum += *p.Percentage
	}

	if math.Abs(sum-100) > sumTolerance {
		return validationf("Split percentages (%s%%) do not equal 100%%", fmtNum(sum))
	}

	return nil
}

// Calculate computes each participant's amount from their percentage and
// echoes the percentage back on the result.
func (s *PercentageStrategy) Calculate(total float64, participants []Participant) ([]Result, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	results := make([]Result, len(participants))
	for i, p := range participants {
		results[i] = Result{
			UserID:     p.UserID,
			Amount:     round2(total * (*p.Percentage) / 100),
			Percentage: p.Percentage,
		}
	}

	return results, nil
}
