package expense

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Repository handles expense and split persistence. Mutations that touch an
// expense together with its splits run in a single transaction so a partial
// failure never leaves an expense with stale or missing splits.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new expense repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const expenseColumns = `e.id, e.group_id, e.paid_by, e.description, e.amount, e.currency, e.category, e.date, e.created_at, e.updated_at`

func scanExpense(row interface{ Scan(...interface{}) error }, e *Expense) error {
	return row.Scan(
		&e.ID,
		&e.GroupID,
		&e.PaidBy,
		&e.Description,
		&e.Amount,
		&e.Currency,
		&e.Category,
		&e.Date,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}

// CreateExpenseWithSplits inserts the expense and all of its splits
// atomically.
func (r *Repository) CreateExpenseWithSplits(ctx context.Context, e *Expense, splits []*Split) (*ExpenseWithSplits, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO expenses (group_id, paid_by, description, amount, currency, category, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, group_id, paid_by, description, amount, currency, category, date, created_at, updated_at
	`

	created := &Expense{}
	err = scanExpense(tx.QueryRowContext(ctx, query,
		e.GroupID, e.PaidBy, e.Description, e.Amount, e.Currency, e.Category, e.Date,
	), created)
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	createdSplits, err := insertSplits(ctx, tx, created.ID, splits)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense: %w", err)
	}

	return &ExpenseWithSplits{Expense: created, Splits: createdSplits}, nil
}

// ReplaceExpenseAndSplits updates the expense row, drops every existing
// split and inserts the recomputed set, all in one transaction.
func (r *Repository) ReplaceExpenseAndSplits(ctx context.Context, e *Expense, splits []*Split) (*ExpenseWithSplits, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE expenses
		SET description = $2, amount = $3, currency = $4, category = $5, date = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING id, group_id, paid_by, description, amount, currency, category, date, created_at, updated_at
	`

	updated := &Expense{}
	err = scanExpense(tx.QueryRowContext(ctx, query,
		e.ID, e.Description, e.Amount, e.Currency, e.Category, e.Date,
	), updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_splits WHERE expense_id = $1`, e.ID); err != nil {
		return nil, fmt.Errorf("failed to delete old splits: %w", err)
	}

	newSplits, err := insertSplits(ctx, tx, e.ID, splits)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense update: %w", err)
	}

	return &ExpenseWithSplits{Expense: updated, Splits: newSplits}, nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, expenseID int64, splits []*Split) ([]*Split, error) {
	query := `
		INSERT INTO expense_splits (expense_id, user_id, amount, percentage, shares)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, expense_id, user_id, amount, percentage, shares, settled, updated_at
	`

	inserted := make([]*Split, len(splits))
	for i, s := range splits {
		created := &Split{}
		err := tx.QueryRowContext(ctx, query, expenseID, s.UserID, s.Amount, s.Percentage, s.Shares).Scan(
			&created.ID,
			&created.ExpenseID,
			&created.UserID,
			&created.Amount,
			&created.Percentage,
			&created.Shares,
			&created.Settled,
			&created.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create split for user %d: %w", s.UserID, err)
		}
		inserted[i] = created
	}

	return inserted, nil
}

// UpdateExpenseFields changes fields that do not affect the split set.
func (r *Repository) UpdateExpenseFields(ctx context.Context, id int64, description *string, category *Category, date *time.Time) (*Expense, error) {
	query := `
		UPDATE expenses
		SET description = COALESCE($2, description),
		    category = COALESCE($3, category),
		    date = COALESCE($4, date),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, group_id, paid_by, description, amount, currency, category, date, created_at, updated_at
	`

	e := &Expense{}
	err := scanExpense(r.db.QueryRowContext(ctx, query, id, description, category, date), e)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	return e, nil
}

// GetExpenseByID retrieves an expense by its ID.
func (r *Repository) GetExpenseByID(ctx context.Context, id int64) (*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `, u.username
		FROM expenses e
		JOIN users u ON e.paid_by = u.id
		WHERE e.id = $1
	`

	e := &Expense{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.GroupID, &e.PaidBy, &e.Description, &e.Amount, &e.Currency,
		&e.Category, &e.Date, &e.CreatedAt, &e.UpdatedAt, &e.PayerUsername,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return e, nil
}

// GetSplitsByExpenseID retrieves all splits for an expense.
func (r *Repository) GetSplitsByExpenseID(ctx context.Context, expenseID int64) ([]*Split, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, s.amount, s.percentage, s.shares, s.settled, s.updated_at, u.username
		FROM expense_splits s
		JOIN users u ON s.user_id = u.id
		WHERE s.expense_id = $1
		ORDER BY s.id
	`

	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []*Split
	for rows.Next() {
		s := &Split{}
		if err := rows.Scan(
			&s.ID, &s.ExpenseID, &s.UserID, &s.Amount, &s.Percentage,
			&s.Shares, &s.Settled, &s.UpdatedAt, &s.Username,
		); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, s)
	}

	return splits, rows.Err()
}

// GetSplitByID retrieves a split by its ID.
func (r *Repository) GetSplitByID(ctx context.Context, id int64) (*Split, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, s.amount, s.percentage, s.shares, s.settled, s.updated_at
		FROM expense_splits s
		WHERE s.id = $1
	`

	s := &Split{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.ExpenseID, &s.UserID, &s.Amount, &s.Percentage,
		&s.Shares, &s.Settled, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get split: %w", err)
	}

	return s, nil
}

// SetSplitSettled flips a split's settlement flag.
func (r *Repository) SetSplitSettled(ctx context.Context, id int64, settled bool) (*Split, error) {
	query := `
		UPDATE expense_splits
		SET settled = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, expense_id, user_id, amount, percentage, shares, settled, updated_at
	`

	s := &Split{}
	err := r.db.QueryRowContext(ctx, query, id, settled).Scan(
		&s.ID, &s.ExpenseID, &s.UserID, &s.Amount, &s.Percentage,
		&s.Shares, &s.Settled, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update split: %w", err)
	}

	return s, nil
}

// DeleteExpense removes an expense and its splits atomically.
func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_splits WHERE expense_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrExpenseNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expense delete: %w", err)
	}

	return nil
}

// ListByGroupID retrieves a page of a group's expenses, newest first.
func (r *Repository) ListByGroupID(ctx context.Context, groupID int64, limit, offset int) ([]*Expense, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM expenses WHERE group_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, groupID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := `
		SELECT ` + expenseColumns + `, u.username
		FROM expenses e
		JOIN users u ON e.paid_by = u.id
		WHERE e.group_id = $1
		ORDER BY e.date DESC, e.id DESC
		LIMIT $2 OFFSET $3
	`

	return r.listExpenses(ctx, query, total, groupID, limit, offset)
}

// ListForUser retrieves a page of expenses the user paid for or participates
// in, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Expense, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(DISTINCT e.id)
		FROM expenses e
		LEFT JOIN expense_splits s ON s.expense_id = e.id
		WHERE e.paid_by = $1 OR s.user_id = $1
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := `
		SELECT DISTINCT ` + expenseColumns + `, u.username
		FROM expenses e
		JOIN users u ON e.paid_by = u.id
		LEFT JOIN expense_splits s ON s.expense_id = e.id
		WHERE e.paid_by = $1 OR s.user_id = $1
		ORDER BY e.date DESC, e.id DESC
		LIMIT $2 OFFSET $3
	`

	return r.listExpenses(ctx, query, total, userID, limit, offset)
}

func (r *Repository) listExpenses(ctx context.Context, query string, total int, args ...interface{}) ([]*Expense, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e := &Expense{}
		if err := rows.Scan(
			&e.ID, &e.GroupID, &e.PaidBy, &e.Description, &e.Amount, &e.Currency,
			&e.Category, &e.Date, &e.CreatedAt, &e.UpdatedAt, &e.PayerUsername,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}

	return expenses, total, rows.Err()
}

// HasSplit reports whether the user holds a split on the expense.
func (r *Repository) HasSplit(ctx context.Context, expenseID, userID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM expense_splits WHERE expense_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, expenseID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check split participation: %w", err)
	}
	return exists, nil
}

// GroupMembership is the relationship between one user and one group, as
// needed to build an AccessContext.
type GroupMembership struct {
	IsMember  bool
	IsAdmin   bool
	IsCreator bool
}

// GetGroupMembership gathers the caller's relationship facts for a group.
// Returns ErrGroupNotFound when the group does not exist.
func (r *Repository) GetGroupMembership(ctx context.Context, groupID, userID int64) (*GroupMembership, error) {
	var createdBy int64
	err := r.db.QueryRowContext(ctx, `SELECT created_by FROM groups WHERE id = $1`, groupID).Scan(&createdBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	m := &GroupMembership{IsCreator: createdBy == userID}

	var role string
	err = r.db.QueryRowContext(ctx,
		`SELECT role FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return m, nil
		}
		return nil, fmt.Errorf("failed to get group membership: %w", err)
	}

	m.IsMember = true
	m.IsAdmin = role == "ADMIN"
	return m, nil
}

// GetGroupMemberIDs returns the ids of all members of a group plus the
// group's creator.
func (r *Repository) GetGroupMemberIDs(ctx context.Context, groupID int64) (map[int64]bool, error) {
	members := make(map[int64]bool)

	var createdBy int64
	err := r.db.QueryRowContext(ctx, `SELECT created_by FROM groups WHERE id = $1`, groupID).Scan(&createdBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	members[createdBy] = true

	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members[id] = true
	}

	return members, rows.Err()
}

// CountExistingUsers reports how many of the given user ids exist.
func (r *Repository) CountExistingUsers(ctx context.Context, ids []int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE id = ANY($1)`
	if err := r.db.QueryRowContext(ctx, query, pq.Array(ids)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
