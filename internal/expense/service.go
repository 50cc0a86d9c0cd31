package expense

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hazemk/divvy/internal/expense/split"
	"github.com/hazemk/divvy/internal/metrics"
)

// Notifier is informed after successful split-affecting mutations. Calls are
// fire-and-forget: implementations log their own failures and must never
// abort the expense mutation.
type Notifier interface {
	ExpenseCreated(ctx context.Context, e *Expense, splits []*Split)
	SplitSettled(ctx context.Context, e *Expense, s *Split, actorID int64, settled bool)
}

// BalanceInvalidator drops cached balance summaries made stale by an expense
// mutation.
type BalanceInvalidator interface {
	InvalidateExpense(ctx context.Context, groupID *int64, userIDs []int64)
}

// Service orchestrates expense mutations: guard first, then split
// calculation, then atomic persistence.
type Service struct {
	repo        *Repository
	factory     *split.Factory
	guard       *Guard
	notifier    Notifier
	invalidator BalanceInvalidator
	log         *logrus.Logger
}

// NewService creates a new expense service. notifier and invalidator may be
// nil.
func NewService(repo *Repository, factory *split.Factory, guard *Guard, notifier Notifier, invalidator BalanceInvalidator, log *logrus.Logger) *Service {
	return &Service{
		repo:        repo,
		factory:     factory,
		guard:       guard,
		notifier:    notifier,
		invalidator: invalidator,
		log:         log,
	}
}

// CreateExpense validates the request, checks access, computes the splits
// and persists expense plus splits in one transaction.
func (s *Service) CreateExpense(ctx context.Context, actorID int64, req *CreateExpenseRequest) (*ExpenseWithSplits, error) {
	if err := validateParticipants(req.Participants); err != nil {
		return nil, err
	}
	if req.Date.After(time.Now()) {
		return nil, invalidf("Expense date cannot be in the future")
	}

	category := Category(req.Category)
	if category == "" {
		category = CategoryOther
	}

	if req.GroupID != nil {
		membership, err := s.repo.GetGroupMembership(ctx, *req.GroupID, actorID)
		if err != nil {
			return nil, err
		}
		ac := AccessContext{
			UserID:         actorID,
			InGroup:        true,
			IsGroupMember:  membership.IsMember,
			IsGroupAdmin:   membership.IsAdmin,
			IsGroupCreator: membership.IsCreator,
		}
		if err := s.guard.CanCreate(ac); err != nil {
			return nil, err
		}
	}

	if err := s.checkParticipantUsers(ctx, req.GroupID, req.Participants); err != nil {
		return nil, err
	}

	results, err := s.calculate(req.SplitType, req.Amount, req.Participants)
	if err != nil {
		return nil, err
	}

	e := &Expense{
		GroupID:     req.GroupID,
		PaidBy:      actorID,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    category,
		Date:        req.Date,
	}

	created, err := s.repo.CreateExpenseWithSplits(ctx, e, resultsToSplits(results))
	if err != nil {
		return nil, err
	}

	metrics.ExpensesCreated.Inc()
	s.log.WithFields(logrus.Fields{
		"expense_id": created.Expense.ID,
		"payer_id":   actorID,
		"splits":     len(created.Splits),
	}).Info("expense created")

	s.afterMutation(created.Expense, created.Splits, func(bg context.Context) {
		s.notifier.ExpenseCreated(bg, created.Expense, created.Splits)
	})

	return created, nil
}

// GetExpense retrieves an expense with its splits, subject to view access.
func (s *Service) GetExpense(ctx context.Context, actorID, id int64) (*ExpenseWithSplits, error) {
	e, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}

	ac, err := s.accessContext(ctx, actorID, e)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanView(ac); err != nil {
		return nil, err
	}

	splits, err := s.repo.GetSplitsByExpenseID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ExpenseWithSplits{Expense: e, Splits: splits}, nil
}

// ListForUser retrieves a page of the caller's own expenses.
func (s *Service) ListForUser(ctx context.Context, actorID int64, page, perPage int) ([]*Expense, int, error) {
	page, perPage = normalizePage(page, perPage)
	return s.repo.ListForUser(ctx, actorID, perPage, (page-1)*perPage)
}

// ListByGroup retrieves a page of a group's expenses. The caller must belong
// to the group.
func (s *Service) ListByGroup(ctx context.Context, actorID, groupID int64, page, perPage int) ([]*Expense, int, error) {
	membership, err := s.repo.GetGroupMembership(ctx, groupID, actorID)
	if err != nil {
		return nil, 0, err
	}
	if !membership.IsMember && !membership.IsCreator {
		return nil, 0, deniedf("Access denied: You do not have permission to view this expense")
	}

	page, perPage = normalizePage(page, perPage)
	return s.repo.ListByGroupID(ctx, groupID, perPage, (page-1)*perPage)
}

// UpdateExpense applies an update, recomputing and atomically replacing the
// split set when the update is split-affecting.
func (s *Service) UpdateExpense(ctx context.Context, actorID, id int64, req *UpdateExpenseRequest) (*ExpenseWithSplits, error) {
	e, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}

	ac, err := s.accessContext(ctx, actorID, e)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanUpdate(ac); err != nil {
		return nil, err
	}

	if req.Date != nil && req.Date.After(time.Now()) {
		return nil, invalidf("Expense date cannot be in the future")
	}

	if !req.SplitAffecting() {
		var category *Category
		if req.Category != nil {
			c := Category(*req.Category)
			category = &c
		}
		updated, err := s.repo.UpdateExpenseFields(ctx, id, req.Description, category, req.Date)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, ErrExpenseNotFound
		}
		splits, err := s.repo.GetSplitsByExpenseID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &ExpenseWithSplits{Expense: updated, Splits: splits}, nil
	}

	// The split policy is not stored on the expense, so a split-affecting
	// update must restate it along with the participants.
	if req.SplitType == nil || len(req.Participants) == 0 {
		return nil, invalidf("Split type and participants are required when changing splits")
	}
	if err := validateParticipants(req.Participants); err != nil {
		return nil, err
	}
	if err := s.checkParticipantUsers(ctx, e.GroupID, req.Participants); err != nil {
		return nil, err
	}

	merged := *e
	if req.Description != nil {
		merged.Description = *req.Description
	}
	if req.Amount != nil {
		merged.Amount = *req.Amount
	}
	if req.Category != nil {
		merged.Category = Category(*req.Category)
	}
	if req.Date != nil {
		merged.Date = *req.Date
	}

	results, err := s.calculate(*req.SplitType, merged.Amount, req.Participants)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.ReplaceExpenseAndSplits(ctx, &merged, resultsToSplits(results))
	if err != nil {
		return nil, err
	}

	metrics.ExpensesUpdated.Inc()
	s.log.WithField("expense_id", id).Info("expense splits replaced")

	s.afterMutation(updated.Expense, updated.Splits, nil)

	return updated, nil
}

// DeleteExpense removes an expense and all of its splits.
func (s *Service) DeleteExpense(ctx context.Context, actorID, id int64) error {
	e, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrExpenseNotFound
	}

	ac, err := s.accessContext(ctx, actorID, e)
	if err != nil {
		return err
	}
	if err := s.guard.CanDelete(ac); err != nil {
		return err
	}

	splits, err := s.repo.GetSplitsByExpenseID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}

	metrics.ExpensesDeleted.Inc()
	s.log.WithField("expense_id", id).Info("expense deleted")

	s.afterMutation(e, splits, nil)

	return nil
}

// SettleSplit flips a split's settlement state. Only the split's ower or the
// expense's payer may do this; both directions are allowed, so a mistaken
// settlement can be undone.
func (s *Service) SettleSplit(ctx context.Context, actorID, splitID int64, settled bool) (*Split, error) {
	sp, err := s.repo.GetSplitByID(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, ErrSplitNotFound
	}

	e, err := s.repo.GetExpenseByID(ctx, sp.ExpenseID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}

	if settled {
		err = s.guard.CanSettle(actorID, sp.UserID, e.PaidBy)
	} else {
		err = s.guard.CanUnsettle(actorID, sp.UserID, e.PaidBy)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetSplitSettled(ctx, splitID, settled)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrSplitNotFound
	}

	metrics.SplitsSettled.WithLabelValues(settledLabel(settled)).Inc()

	s.afterMutation(e, []*Split{updated}, func(bg context.Context) {
		s.notifier.SplitSettled(bg, e, updated, actorID, settled)
	})

	return updated, nil
}

func settledLabel(settled bool) string {
	if settled {
		return "settle"
	}
	return "unsettle"
}

// accessContext gathers the relationship facts for a guard decision.
func (s *Service) accessContext(ctx context.Context, actorID int64, e *Expense) (AccessContext, error) {
	ac := AccessContext{
		UserID:  actorID,
		IsPayer: e.PaidBy == actorID,
	}

	participant, err := s.repo.HasSplit(ctx, e.ID, actorID)
	if err != nil {
		return ac, err
	}
	ac.IsParticipant = participant

	if e.GroupID != nil {
		ac.InGroup = true
		membership, err := s.repo.GetGroupMembership(ctx, *e.GroupID, actorID)
		if err != nil {
			return ac, err
		}
		ac.IsGroupMember = membership.IsMember
		ac.IsGroupAdmin = membership.IsAdmin
		ac.IsGroupCreator = membership.IsCreator
	}

	return ac, nil
}

// checkParticipantUsers verifies that every participant exists and, for
// group expenses, belongs to the group.
func (s *Service) checkParticipantUsers(ctx context.Context, groupID *int64, participants []*split.Participant) error {
	ids := make([]int64, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}

	count, err := s.repo.CountExistingUsers(ctx, ids)
	if err != nil {
		return err
	}
	if count != len(ids) {
		return invalidf("One or more participants are invalid users")
	}

	if groupID == nil {
		return nil
	}

	members, err := s.repo.GetGroupMemberIDs(ctx, *groupID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !members[id] {
			return deniedf("User %d is not a member of the group", id)
		}
	}

	return nil
}

func (s *Service) calculate(splitType string, amount float64, participants []*split.Participant) ([]split.Result, error) {
	strategy, err := s.factory.CreateFromString(splitType)
	if err != nil {
		return nil, err
	}

	inputs := make([]split.Participant, len(participants))
	for i, p := range participants {
		inputs[i] = *p
	}

	return strategy.Calculate(amount, inputs)
}

func resultsToSplits(results []split.Result) []*Split {
	splits := make([]*Split, len(results))
	for i, r := range results {
		splits[i] = &Split{
			UserID:     r.UserID,
			Amount:     r.Amount,
			Percentage: r.Percentage,
			Shares:     r.Shares,
		}
	}
	return splits
}

// validateParticipants enforces the orchestrator-level participant rules:
// at least one participant, one split per participant.
func validateParticipants(participants []*split.Participant) error {
	if len(participants) == 0 {
		return invalidf("At least one participant is required")
	}

	seen := make(map[int64]bool, len(participants))
	for _, p := range participants {
		if seen[p.UserID] {
			return invalidf("User %d is listed more than once", p.UserID)
		}
		seen[p.UserID] = true
	}

	return nil
}

// afterMutation invalidates cached balances and, when notify is non-nil,
// runs the notification callback in the background. Neither may fail the
// mutation.
func (s *Service) afterMutation(e *Expense, splits []*Split, notify func(context.Context)) {
	userIDs := make([]int64, 0, len(splits)+1)
	userIDs = append(userIDs, e.PaidBy)
	for _, sp := range splits {
		userIDs = append(userIDs, sp.UserID)
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateExpense(context.Background(), e.GroupID, userIDs)
	}

	if notify != nil && s.notifier != nil {
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			notify(bg)
		}()
	}
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
