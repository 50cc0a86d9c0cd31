package expense

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazemk/divvy/internal/expense/split"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewService(NewRepository(db), split.NewFactory(), NewGuard(), nil, nil, log), mock
}

const expenseCols = "id, group_id, paid_by, description, amount, currency, category, date, created_at, updated_at"
const splitCols = "id, expense_id, user_id, amount, percentage, shares, settled, updated_at"

func expenseRow(id int64, groupID *int64, paidBy int64, amount float64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(append(splitStrings(expenseCols), "username")).
		AddRow(id, groupID, paidBy, "Dinner", amount, "USD", "food", now, now, now, "alice")
}

func splitStrings(cols string) []string {
	return strings.Split(cols, ", ")
}

func TestCreateExpense_EqualSplit(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO expenses`).
		WithArgs(nil, int64(1), "Dinner", 100.0, "USD", "food", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(splitStrings(expenseCols)).
			AddRow(10, nil, 1, "Dinner", 100.0, "USD", "food", now, now, now))
	mock.ExpectQuery(`INSERT INTO expense_splits`).
		WithArgs(int64(10), int64(1), 50.0, nil, nil).
		WillReturnRows(sqlmock.NewRows(splitStrings(splitCols)).
			AddRow(100, 10, 1, 50.0, nil, nil, false, now))
	mock.ExpectQuery(`INSERT INTO expense_splits`).
		WithArgs(int64(10), int64(2), 50.0, nil, nil).
		WillReturnRows(sqlmock.NewRows(splitStrings(splitCols)).
			AddRow(101, 10, 2, 50.0, nil, nil, false, now))
	mock.ExpectCommit()

	created, err := svc.CreateExpense(context.Background(), 1, &CreateExpenseRequest{
		Description: "Dinner",
		Amount:      100,
		Currency:    "USD",
		Category:    "food",
		Date:        now.Add(-time.Hour),
		SplitType:   "EQUAL",
		Participants: []*split.Participant{
			{UserID: 1},
			{UserID: 2},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), created.Expense.ID)
	require.Len(t, created.Splits, 2)
	assert.Equal(t, 50.0, created.Splits[0].Amount)
	assert.Equal(t, 50.0, created.Splits[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateExpense_DuplicateParticipant(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateExpense(context.Background(), 1, &CreateExpenseRequest{
		Description: "Dinner",
		Amount:      100,
		Currency:    "USD",
		Date:        time.Now().Add(-time.Hour),
		SplitType:   "EQUAL",
		Participants: []*split.Participant{
			{UserID: 2},
			{UserID: 2},
		},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "User 2 is listed more than once", verr.Message)
}

func TestCreateExpense_NoParticipants(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateExpense(context.Background(), 1, &CreateExpenseRequest{
		Description: "Dinner",
		Amount:      100,
		Currency:    "USD",
		Date:        time.Now().Add(-time.Hour),
		SplitType:   "EQUAL",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "At least one participant is required", verr.Message)
}

func TestCreateExpense_FutureDate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateExpense(context.Background(), 1, &CreateExpenseRequest{
		Description:  "Dinner",
		Amount:       100,
		Currency:     "USD",
		Date:         time.Now().Add(24 * time.Hour),
		SplitType:    "EQUAL",
		Participants: []*split.Participant{{UserID: 1}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Expense date cannot be in the future", verr.Message)
}

func TestCreateExpense_UnknownParticipant(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := svc.CreateExpense(context.Background(), 1, &CreateExpenseRequest{
		Description: "Dinner",
		Amount:      100,
		Currency:    "USD",
		Date:        time.Now().Add(-time.Hour),
		SplitType:   "EQUAL",
		Participants: []*split.Participant{
			{UserID: 1},
			{UserID: 999},
		},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "One or more participants are invalid users", verr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateExpense_NotGroupMember(t *testing.T) {
	svc, mock := newTestService(t)
	groupID := int64(7)

	mock.ExpectQuery(`SELECT created_by FROM groups WHERE id = \$1`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows([]string{"created_by"}).AddRow(99))
	mock.ExpectQuery(`SELECT role FROM group_members`).
		WithArgs(groupID, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	_, err := svc.CreateExpense(context.Background(), 1, &CreateExpenseRequest{
		Description:  "Dinner",
		Amount:       100,
		Currency:     "USD",
		Date:         time.Now().Add(-time.Hour),
		GroupID:      &groupID,
		SplitType:    "EQUAL",
		Participants: []*split.Participant{{UserID: 1}},
	})

	var aerr *AccessError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Access denied: You are not a member of this group", aerr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateExpense_ParticipantOutsideGroup(t *testing.T) {
	svc, mock := newTestService(t)
	groupID := int64(7)

	mock.ExpectQuery(`SELECT created_by FROM groups WHERE id = \$1`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows([]string{"created_by"}).AddRow(1))
	mock.ExpectQuery(`SELECT role FROM group_members`).
		WithArgs(groupID, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("ADMIN"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT created_by FROM groups WHERE id = \$1`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows([]string{"created_by"}).AddRow(1))
	mock.ExpectQuery(`SELECT user_id FROM group_members WHERE group_id = \$1`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(1))

	_, err := svc.CreateExpense(context.Background(), 1, &CreateExpenseRequest{
		Description: "Dinner",
		Amount:      100,
		Currency:    "USD",
		Date:        time.Now().Add(-time.Hour),
		GroupID:     &groupID,
		SplitType:   "EQUAL",
		Participants: []*split.Participant{
			{UserID: 1},
			{UserID: 5},
		},
	})

	var aerr *AccessError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "User 5 is not a member of the group", aerr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleSplit_ByOwer(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT s\.id, s\.expense_id, s\.user_id.*WHERE s\.id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows(splitStrings(splitCols)).
			AddRow(100, 10, 2, 50.0, nil, nil, false, now))
	mock.ExpectQuery(`SELECT e\.id, e\.group_id.*FROM expenses e`).
		WithArgs(int64(10)).
		WillReturnRows(expenseRow(10, nil, 1, 100))
	mock.ExpectQuery(`UPDATE expense_splits`).
		WithArgs(int64(100), true).
		WillReturnRows(sqlmock.NewRows(splitStrings(splitCols)).
			AddRow(100, 10, 2, 50.0, nil, nil, true, now))

	updated, err := svc.SettleSplit(context.Background(), 2, 100, true)

	require.NoError(t, err)
	assert.True(t, updated.Settled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleSplit_ByStranger(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT s\.id, s\.expense_id, s\.user_id.*WHERE s\.id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows(splitStrings(splitCols)).
			AddRow(100, 10, 2, 50.0, nil, nil, false, now))
	mock.ExpectQuery(`SELECT e\.id, e\.group_id.*FROM expenses e`).
		WithArgs(int64(10)).
		WillReturnRows(expenseRow(10, nil, 1, 100))

	_, err := svc.SettleSplit(context.Background(), 3, 100, true)

	var aerr *AccessError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Access denied: You can only settle your own splits or splits owed to you", aerr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleSplit_UnsettleReversible(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT s\.id, s\.expense_id, s\.user_id.*WHERE s\.id = \$1`).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows(splitStrings(splitCols)).
			AddRow(100, 10, 2, 50.0, nil, nil, true, now))
	mock.ExpectQuery(`SELECT e\.id, e\.group_id.*FROM expenses e`).
		WithArgs(int64(10)).
		WillReturnRows(expenseRow(10, nil, 1, 100))
	mock.ExpectQuery(`UPDATE expense_splits`).
		WithArgs(int64(100), false).
		WillReturnRows(sqlmock.NewRows(splitStrings(splitCols)).
			AddRow(100, 10, 2, 50.0, nil, nil, false, now))

	updated, err := svc.SettleSplit(context.Background(), 1, 100, false)

	require.NoError(t, err)
	assert.False(t, updated.Settled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleSplit_NotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT s\.id, s\.expense_id, s\.user_id.*WHERE s\.id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(splitStrings(splitCols)))

	_, err := svc.SettleSplit(context.Background(), 1, 404, true)

	assert.ErrorIs(t, err, ErrSplitNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpense_ByPayer(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT e\.id, e\.group_id.*FROM expenses e`).
		WithArgs(int64(10)).
		WillReturnRows(expenseRow(10, nil, 1, 100))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(10), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT s\.id, s\.expense_id, s\.user_id.*WHERE s\.expense_id = \$1`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(append(splitStrings(splitCols), "username")).
			AddRow(100, 10, 1, 50.0, nil, nil, false, now, "alice").
			AddRow(101, 10, 2, 50.0, nil, nil, false, now, "bob"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM expense_splits WHERE expense_id = \$1`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM expenses WHERE id = \$1`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.DeleteExpense(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpense_ByParticipant(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT e\.id, e\.group_id.*FROM expenses e`).
		WithArgs(int64(10)).
		WillReturnRows(expenseRow(10, nil, 1, 100))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(10), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := svc.DeleteExpense(context.Background(), 2, 10)

	var aerr *AccessError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Access denied: Only the payer or group admin can delete this expense", aerr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExpense_SplitAffectingNeedsPolicy(t *testing.T) {
	svc, mock := newTestService(t)
	amount := 120.0

	mock.ExpectQuery(`SELECT e\.id, e\.group_id.*FROM expenses e`).
		WithArgs(int64(10)).
		WillReturnRows(expenseRow(10, nil, 1, 100))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(10), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := svc.UpdateExpense(context.Background(), 1, 10, &UpdateExpenseRequest{
		Amount: &amount,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Split type and participants are required when changing splits", verr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExpense_NotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT e\.id, e\.group_id.*FROM expenses e`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(append(splitStrings(expenseCols), "username")))

	_, err := svc.GetExpense(context.Background(), 1, 404)

	assert.ErrorIs(t, err, ErrExpenseNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetExpense_StrangerDenied(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT e\.id, e\.group_id.*FROM expenses e`).
		WithArgs(int64(10)).
		WillReturnRows(expenseRow(10, nil, 1, 100))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(10), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.GetExpense(context.Background(), 9, 10)

	var aerr *AccessError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Access denied: You do not have permission to view this expense", aerr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}
