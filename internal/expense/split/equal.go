package split

// EqualStrategy divides the total evenly across all participants.
//
// Each share is rounded to the cent independently, so the sum of the rounded
// shares can drift from the total by up to n-1 cents. The remainder is
// intentionally not redistributed to any participant; see DESIGN.md.
type EqualStrategy struct{}

// Policy returns the policy identifier.
func (s *EqualStrategy) Policy() Policy {
	return PolicyEqual
}

// Validate checks the inputs for an equal split.
func (s *EqualStrategy) Validate(total float64, participants []Participant) error {
	if len(participants) == 0 {
		return validationf("At least one participant is required")
	}
	if total < 0 {
		return validationf("Amount cannot be negative")
	}
	return nil
}

// Calculate gives every participant the identical rounded share.
func (s *EqualStrategy) Calculate(total float64, participants []Participant) ([]Result, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	share := round2(total / float64(len(participants)))

	results := make([]Result, len(participants))
	for i, p := range participants {
		results[i] = Result{
			UserID: p.UserID,
			Amount: share,
		}
	}

	return results, nil
}
