package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = time.Hour

func TestReserveFreshKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, ttl)

	mock.ExpectSetNX("idem:payment:7:k1", pendingMarker, ttl).SetVal(true)

	rec, err := store.Reserve(context.Background(), 7, "k1")

	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveInFlight(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, ttl)

	mock.ExpectSetNX("idem:payment:7:k1", pendingMarker, ttl).SetVal(false)
	mock.ExpectGet("idem:payment:7:k1").SetVal(pendingMarker)

	_, err := store.Reserve(context.Background(), 7, "k1")

	assert.ErrorIs(t, err, ErrInFlight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveReplaysCompletedRecord(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, ttl)

	raw, _ := json.Marshal(Record{Status: 201, Body: json.RawMessage(`{"success":true}`)})
	mock.ExpectSetNX("idem:payment:7:k1", pendingMarker, ttl).SetVal(false)
	mock.ExpectGet("idem:payment:7:k1").SetVal(string(raw))

	rec, err := store.Reserve(context.Background(), 7, "k1")

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 201, rec.Status)
	assert.JSONEq(t, `{"success":true}`, string(rec.Body))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAndRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, ttl)

	body := []byte(`{"success":true}`)
	raw, _ := json.Marshal(Record{Status: 201, Body: body})
	mock.ExpectSet("idem:payment:7:k1", string(raw), ttl).SetVal("OK")
	mock.ExpectDel("idem:payment:7:k2").SetVal(1)

	require.NoError(t, store.Complete(context.Background(), 7, "k1", 201, body))
	require.NoError(t, store.Release(context.Background(), 7, "k2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStore(db, ttl)

	mock.ExpectSetNX("idem:payment:7:k1", pendingMarker, ttl).SetErr(errors.New("connection refused"))

	_, err := store.Reserve(context.Background(), 7, "k1")

	assert.ErrorContains(t, err, "connection refused")
}
