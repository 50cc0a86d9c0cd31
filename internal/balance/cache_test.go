package balance

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestCache_GetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, testLogger())

	mock.ExpectGet("balance:user:1").RedisNil()

	assert.Nil(t, cache.Get(context.Background(), userKey(1)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, testLogger())

	stored := &Summary{
		Balances: []*UserBalance{{UserID: 1, Net: 12.5, Owed: 12.5}},
		Debts:    []*Debt{{FromUserID: 2, ToUserID: 1, Amount: 12.5}},
	}
	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectGet("balance:user:1").SetVal(string(raw))

	got := cache.Get(context.Background(), userKey(1))
	require.NotNil(t, got)
	assert.Equal(t, stored, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetCorruptEntry(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, testLogger())

	mock.ExpectGet("balance:group:7").SetVal("{not json")

	assert.Nil(t, cache.Get(context.Background(), groupKey(7)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_Set(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, testLogger())

	summary := &Summary{Balances: []*UserBalance{{UserID: 3, Net: -9.99, Owes: 9.99}}}
	raw, err := json.Marshal(summary)
	require.NoError(t, err)

	mock.ExpectSet("balance:user:3", raw, 5*time.Minute).SetVal("OK")

	cache.Set(context.Background(), userKey(3), summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InvalidateExpense(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, testLogger())

	groupID := int64(7)
	mock.ExpectDel("balance:group:7", "balance:user:1", "balance:user:2").SetVal(3)

	cache.InvalidateExpense(context.Background(), &groupID, []int64{1, 2})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InvalidateExpense_NoGroup(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, testLogger())

	mock.ExpectDel("balance:user:4").SetVal(1)

	cache.InvalidateExpense(context.Background(), nil, []int64{4})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_NilClient(t *testing.T) {
	cache := NewCache(nil, testLogger())

	assert.Nil(t, cache.Get(context.Background(), userKey(1)))
	cache.Set(context.Background(), userKey(1), &Summary{})
	cache.InvalidateExpense(context.Background(), nil, []int64{1})
}
