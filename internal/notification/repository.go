package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository handles notification persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new notification.
func (r *Repository) Create(ctx context.Context, recipientID int64, message string, entityType *string, entityID *int64) (*Notification, error) {
	query := `
		INSERT INTO notifications (recipient_id, message, related_entity_type, related_entity_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, recipient_id, message, is_read, related_entity_type, related_entity_id, created_at
	`

	n := &Notification{}
	err := r.db.QueryRowContext(ctx, query, recipientID, message, entityType, entityID).Scan(
		&n.ID, &n.RecipientID, &n.Message, &n.IsRead,
		&n.RelatedEntityType, &n.RelatedEntityID, &n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// GetByID retrieves a notification by its ID, nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Notification, error) {
	query := `
		SELECT id, recipient_id, message, is_read, related_entity_type, related_entity_id, created_at
		FROM notifications
		WHERE id = $1
	`

	n := &Notification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.RecipientID, &n.Message, &n.IsRead,
		&n.RelatedEntityType, &n.RelatedEntityID, &n.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// ListByRecipientID retrieves a page of a user's notifications, newest
// first.
func (r *Repository) ListByRecipientID(ctx context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		countQuery += ` AND is_read = false`
	}
	if err := r.db.QueryRowContext(ctx, countQuery, recipientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, recipient_id, message, is_read, related_entity_type, related_entity_id, created_at
		FROM notifications
		WHERE recipient_id = $1
	`
	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.Message, &n.IsRead,
			&n.RelatedEntityType, &n.RelatedEntityID, &n.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, total, rows.Err()
}

// MarkRead flips a notification's read flag.
func (r *Repository) MarkRead(ctx context.Context, id int64) (*Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE id = $1
		RETURNING id, recipient_id, message, is_read, related_entity_type, related_entity_id, created_at
	`

	n := &Notification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.RecipientID, &n.Message, &n.IsRead,
		&n.RelatedEntityType, &n.RelatedEntityID, &n.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	return n, nil
}

// MarkAllRead marks every unread notification for a recipient as read.
func (r *Repository) MarkAllRead(ctx context.Context, recipientID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND is_read = false`,
		recipientID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// StaleSplit is one unsettled split old enough to warrant a reminder.
type StaleSplit struct {
	SplitID     int64
	ExpenseID   int64
	OwerID      int64
	OwerEmail   string
	OwerName    string
	PayerName   string
	Description string
	Amount      float64
	Currency    string
}

// ListStaleUnsettledSplits returns unsettled splits whose expense is older
// than the cutoff, excluding the payer's own split.
func (r *Repository) ListStaleUnsettledSplits(ctx context.Context, cutoff time.Time) ([]*StaleSplit, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, u.email, u.username, p.username, e.description, s.amount, e.currency
		FROM expense_splits s
		JOIN expenses e ON s.expense_id = e.id
		JOIN users u ON s.user_id = u.id
		JOIN users p ON e.paid_by = p.id
		WHERE s.settled = false
		  AND s.user_id <> e.paid_by
		  AND e.date < $1
		ORDER BY s.id
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale splits: %w", err)
	}
	defer rows.Close()

	var stale []*StaleSplit
	for rows.Next() {
		s := &StaleSplit{}
		if err := rows.Scan(
			&s.SplitID, &s.ExpenseID, &s.OwerID, &s.OwerEmail, &s.OwerName,
			&s.PayerName, &s.Description, &s.Amount, &s.Currency,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stale split: %w", err)
		}
		stale = append(stale, s)
	}

	return stale, rows.Err()
}
