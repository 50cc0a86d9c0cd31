package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestFactory_Create(t *testing.T) {
	f := NewFactory()

	for _, policy := range []Policy{PolicyEqual, PolicyExact, PolicyPercentage, PolicyShares} {
		s, err := f.Create(policy)
		require.NoError(t, err)
		assert.Equal(t, policy, s.Policy())
	}

	_, err := f.CreateFromString("RANDOM")
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
	assert.Contains(t, err.Error(), "Unsupported split type: RANDOM")
}

func TestEqualStrategy(t *testing.T) {
	s := &EqualStrategy{}

	tests := []struct {
		name         string
		total        float64
		participants []Participant
		want         []float64
		wantErr      string
	}{
		{
			name:         "two participants",
			total:        100,
			participants: []Participant{{UserID: 1}, {UserID: 2}},
			want:         []float64{50, 50},
		},
		{
			name:         "single participant gets the full amount",
			total:        42.50,
			participants: []Participant{{UserID: 7}},
			want:         []float64{42.50},
		},
		{
			name:         "rounded share is not redistributed",
			total:        100,
			participants: []Participant{{UserID: 1}, {UserID: 2}, {UserID: 3}},
			// 100/3 rounds to 33.33 for everyone; the missing cent stays missing.
			want: []float64{33.33, 33.33, 33.33},
		},
		{
			name:    "no participants",
			total:   10,
			wantErr: "At least one participant is required",
		},
		{
			name:         "negative total",
			total:        -5,
			participants: []Participant{{UserID: 1}},
			wantErr:      "Amount cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Calculate(tt.total, tt.participants)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, results, len(tt.participants))
			for i, r := range results {
				assert.Equal(t, tt.participants[i].UserID, r.UserID)
				assert.Equal(t, tt.want[i], r.Amount)
				assert.Nil(t, r.Percentage)
				assert.Nil(t, r.Shares)
			}
		})
	}
}

func TestExactStrategy(t *testing.T) {
	s := &ExactStrategy{}

	t.Run("amounts taken verbatim", func(t *testing.T) {
		results, err := s.Calculate(100, []Participant{
			{UserID: 1, Amount: fptr(30)},
			{UserID: 2, Amount: fptr(45)},
			{UserID: 3, Amount: fptr(25)},
		})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 30.0, results[0].Amount)
		assert.Equal(t, 45.0, results[1].Amount)
		assert.Equal(t, 25.0, results[2].Amount)
	})

	t.Run("sum mismatch embeds both numbers", func(t *testing.T) {
		_, err := s.Calculate(100, []Participant{
			{UserID: 1, Amount: fptr(30)},
			{UserID: 2, Amount: fptr(45)},
			{UserID: 3, Amount: fptr(30)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Split amounts (105)")
		assert.Contains(t, err.Error(), "do not equal total amount (100)")
	})

	t.Run("missing amount fails before arithmetic", func(t *testing.T) {
		_, err := s.Calculate(100, []Participant{
			{UserID: 1, Amount: fptr(50)},
			{UserID: 2},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "All participants must have exact amounts specified")
	})

	t.Run("tolerates sub-cent drift", func(t *testing.T) {
		_, err := s.Calculate(100, []Participant{
			{UserID: 1, Amount: fptr(33.33)},
			{UserID: 2, Amount: fptr(33.33)},
			{UserID: 3, Amount: fptr(33.34)},
		})
		assert.NoError(t, err)
	})
}

func TestPercentageStrategy(t *testing.T) {
	s := &PercentageStrategy{}

	t.Run("amounts follow percentages and echo them", func(t *testing.T) {
		results, err := s.Calculate(200, []Participant{
			{UserID: 1, Percentage: fptr(50)},
			{UserID: 2, Percentage: fptr(30)},
			{UserID: 3, Percentage: fptr(20)},
		})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 100.0, results[0].Amount)
		assert.Equal(t, 60.0, results[1].Amount)
		assert.Equal(t, 40.0, results[2].Amount)
		for i, pct := range []float64{50, 30, 20} {
			require.NotNil(t, results[i].Percentage)
			assert.Equal(t, pct, *results[i].Percentage)
		}
	})

	t.Run("percentage sum mismatch embeds the actual sum", func(t *testing.T) {
		_, err := s.Calculate(100, []Participant{
			{UserID: 1, Percentage: fptr(50)},
			{UserID: 2, Percentage: fptr(30)},
			{UserID: 3, Percentage: fptr(30)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Split percentages (110%) do not equal 100%")
	})

	t.Run("missing percentage", func(t *testing.T) {
		_, err := s.Calculate(100, []Participant{
			{UserID: 1, Percentage: fptr(100)},
			{UserID: 2},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "All participants must have percentages specified")
	})

	t.Run("percentage out of range", func(t *testing.T) {
		_, err := s.Calculate(100, []Participant{
			{UserID: 1, Percentage: fptr(150)},
			{UserID: 2, Percentage: fptr(-50)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Percentage must be between 0 and 100")
	})
}

func TestSharesStrategy(t *testing.T) {
	s := &SharesStrategy{}

	t.Run("amounts proportional to shares", func(t *testing.T) {
		results, err := s.Calculate(600, []Participant{
			{UserID: 1, Shares: iptr(3)},
			{UserID: 2, Shares: iptr(2)},
			{UserID: 3, Shares: iptr(1)},
		})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 300.0, results[0].Amount)
		assert.Equal(t, 200.0, results[1].Amount)
		assert.Equal(t, 100.0, results[2].Amount)
		for i, shares := range []int{3, 2, 1} {
			require.NotNil(t, results[i].Shares)
			assert.Equal(t, shares, *results[i].Shares)
		}
	})

	t.Run("zero total shares", func(t *testing.T) {
		_, err := s.Calculate(100, []Participant{
			{UserID: 1, Shares: iptr(0)},
			{UserID: 2, Shares: iptr(0)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Total shares cannot be zero")
	})

	t.Run("missing shares", func(t *testing.T) {
		_, err := s.Calculate(100, []Participant{
			{UserID: 1, Shares: iptr(1)},
			{UserID: 2},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "All participants must have shares specified")
	})

	t.Run("individual zero shares allowed", func(t *testing.T) {
		results, err := s.Calculate(90, []Participant{
			{UserID: 1, Shares: iptr(0)},
			{UserID: 2, Shares: iptr(3)},
		})
		require.NoError(t, err)
		assert.Equal(t, 0.0, results[0].Amount)
		assert.Equal(t, 90.0, results[1].Amount)
	})
}

func TestCalculateIsDeterministic(t *testing.T) {
	f := NewFactory()
	participants := []Participant{
		{UserID: 3, Percentage: fptr(20)},
		{UserID: 1, Percentage: fptr(50)},
		{UserID: 2, Percentage: fptr(30)},
	}

	s, err := f.Create(PolicyPercentage)
	require.NoError(t, err)

	first, err := s.Calculate(200, participants)
	require.NoError(t, err)
	second, err := s.Calculate(200, participants)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Output order follows input order.
	assert.Equal(t, int64(3), first[0].UserID)
	assert.Equal(t, int64(1), first[1].UserID)
	assert.Equal(t, int64(2), first[2].UserID)
}
