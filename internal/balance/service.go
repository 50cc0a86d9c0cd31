package balance

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/hazemk/divvy/internal/expense"
)

// ErrNotGroupMember is returned when a user requests balances for a group
// they do not belong to.
var ErrNotGroupMember = errors.New("access denied: not a group member")

// Service computes balance summaries, serving from cache when possible.
type Service struct {
	repo        *Repository
	expenseRepo *expense.Repository
	cache       *Cache
	log         *logrus.Logger
}

// NewService creates a new balance service.
func NewService(repo *Repository, expenseRepo *expense.Repository, cache *Cache, log *logrus.Logger) *Service {
	return &Service{
		repo:        repo,
		expenseRepo: expenseRepo,
		cache:       cache,
		log:         log,
	}
}

// ForUser returns the user's balance summary across all their expenses.
func (s *Service) ForUser(ctx context.Context, userID int64) (*Summary, error) {
	key := userKey(userID)
	if cached := s.cache.Get(ctx, key); cached != nil {
		return cached, nil
	}

	entries, err := s.repo.EntriesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, entries)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, summary)
	return summary, nil
}

// ForGroup returns the group's balance summary. The caller must be a
// member, admin, or creator of the group.
func (s *Service) ForGroup(ctx context.Context, userID, groupID int64) (*Summary, error) {
	m, err := s.expenseRepo.GetGroupMembership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !m.IsMember && !m.IsCreator {
		return nil, ErrNotGroupMember
	}

	key := groupKey(groupID)
	if cached := s.cache.Get(ctx, key); cached != nil {
		return cached, nil
	}

	entries, err := s.repo.EntriesForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, entries)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, summary)
	return summary, nil
}

func (s *Service) summarize(ctx context.Context, entries []*Entry) (*Summary, error) {
	ids := make([]int64, 0, len(entries)*2)
	seen := make(map[int64]bool)
	for _, e := range entries {
		for _, id := range []int64{e.OwerID, e.PayerID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	names, err := s.repo.Usernames(ctx, ids)
	if err != nil {
		// Balances still compute without display names.
		s.log.WithError(err).Warn("failed to resolve usernames for balances")
		names = nil
	}

	return Compute(entries, names), nil
}
