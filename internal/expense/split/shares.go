package split

// SharesStrategy divides the total proportionally to each participant's
// share count. An individual participant may hold zero shares, but the total
// share count must be positive.
type SharesStrategy struct{}

// Policy returns the policy identifier.
func (s *SharesStrategy) Policy() Policy {
	return PolicyShares
}

// Validate checks that every participant carries a share count and that the
// counts sum to a positive total.
func (s *SharesStrategy) Validate(total float64, participants []Participant) error {
	totalShares := 0
	for _, p := range participants {
		if p.Shares == nil {
			return validationf("All participants must have shares specified")
		}
		if *p.Shares < 0 {
			return validationf("Shares cannot be negative")
		}
		totalShares += *p.Shares
	}

	if totalShares == 0 {
		return validationf("Total shares cannot be zero")
	}

	return nil
}

// Calculate computes each participant's amount from their fraction of the
// total shares and echoes the share count back on the result.
func (s *SharesStrategy) Calculate(total float64, participants []Participant) ([]Result, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	totalShares := 0
	for _, p := range participants {
		totalShares += *p.Shares
	}

	results := make([]Result, len(participants))
	for i, p := range participants {
		results[i] = Result{
			UserID: p.UserID,
			Amount: round2(total * float64(*p.Shares) / float64(totalShares)),
			Shares: p.Shares,
		}
	}

	return results, nil
}
