package balance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Repository reads the unsettled splits that balance computation runs on.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new balance repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EntriesForUser returns every unsettled obligation the user is on either
// side of, across all their expenses.
func (r *Repository) EntriesForUser(ctx context.Context, userID int64) ([]*Entry, error) {
	query := `
		SELECT s.user_id, e.paid_by, s.amount
		FROM expense_splits s
		JOIN expenses e ON s.expense_id = e.id
		WHERE s.settled = false
		  AND s.user_id <> e.paid_by
		  AND (s.user_id = $1 OR e.paid_by = $1)
		ORDER BY s.id
	`
	return r.queryEntries(ctx, query, userID)
}

// EntriesForGroup returns every unsettled obligation within a group.
func (r *Repository) EntriesForGroup(ctx context.Context, groupID int64) ([]*Entry, error) {
	query := `
		SELECT s.user_id, e.paid_by, s.amount
		FROM expense_splits s
		JOIN expenses e ON s.expense_id = e.id
		WHERE s.settled = false
		  AND s.user_id <> e.paid_by
		  AND e.group_id = $1
		ORDER BY s.id
	`
	return r.queryEntries(ctx, query, groupID)
}

func (r *Repository) queryEntries(ctx context.Context, query string, arg interface{}) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.OwerID, &e.PayerID, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Usernames resolves display names for the given user IDs.
func (r *Repository) Usernames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	query := `SELECT id, username FROM users WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query usernames: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		names[id] = name
	}

	return names, rows.Err()
}
