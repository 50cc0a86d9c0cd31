package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hazemk/divvy/internal/expense"
)

// ErrNotificationNotFound is returned when a notification does not exist.
var ErrNotificationNotFound = errors.New("notification not found")

// ErrNotRecipient is returned when a user touches a notification that is
// not theirs.
var ErrNotRecipient = errors.New("access denied: not the notification recipient")

// Service manages notifications and delivers expense events to the users
// they concern. It implements expense.Notifier; delivery failures are
// logged and never surfaced to the caller.
type Service struct {
	repo   *Repository
	mailer *Mailer
	log    *logrus.Logger
}

// NewService creates a new notification service. mailer may be nil when
// email delivery is not configured.
func NewService(repo *Repository, mailer *Mailer, log *logrus.Logger) *Service {
	return &Service{repo: repo, mailer: mailer, log: log}
}

// List returns a page of the user's notifications.
func (s *Service) List(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	return s.repo.ListByRecipientID(ctx, userID, limit, offset, unreadOnly)
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	if n.RecipientID != userID {
		return nil, ErrNotRecipient
	}

	return s.repo.MarkRead(ctx, notificationID)
}

// MarkAllRead marks all of the user's notifications as read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// ExpenseCreated records a notification for every participant other than
// the payer.
func (s *Service) ExpenseCreated(ctx context.Context, e *expense.Expense, splits []*expense.Split) {
	entityType := EntityExpense
	for _, sp := range splits {
		if sp.UserID == e.PaidBy {
			continue
		}
		msg := fmt.Sprintf("You owe %.2f %s for %q", sp.Amount, e.Currency, e.Description)
		if _, err := s.repo.Create(ctx, sp.UserID, msg, &entityType, &e.ID); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"expense_id": e.ID,
				"user_id":    sp.UserID,
			}).Warn("failed to create expense notification")
		}
	}
}

// SplitSettled notifies the payer when a participant settles, and the
// participant when the payer settles (or reopens) on their behalf.
func (s *Service) SplitSettled(ctx context.Context, e *expense.Expense, sp *expense.Split, actorID int64, settled bool) {
	recipient := e.PaidBy
	if actorID == e.PaidBy {
		recipient = sp.UserID
	}
	if recipient == actorID {
		return
	}

	verb := "settled"
	if !settled {
		verb = "reopened"
	}
	msg := fmt.Sprintf("A %.2f %s split on %q was %s", sp.Amount, e.Currency, e.Description, verb)

	entityType := EntitySplit
	if _, err := s.repo.Create(ctx, recipient, msg, &entityType, &sp.ID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"split_id": sp.ID,
			"user_id":  recipient,
		}).Warn("failed to create settlement notification")
	}
}
