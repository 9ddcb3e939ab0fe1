package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/testutil"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func seedEvent(t *testing.T, conn *gorm.DB, repo *Repository, createdAt time.Time, attempts int) models.OutboxEvent {
	t.Helper()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"order_ref":"ORD-1"}`),
		CreatedAt:     createdAt,
		AttemptCount:  attempts,
	}
	require.NoError(t, repo.Insert(conn, event))
	return event
}

func TestFetchPendingTxOrdersAndFilters(t *testing.T) {
	conn := testutil.OpenSQLite(t)
	repo := NewRepository(conn)
	base := time.Now().UTC().Add(-time.Hour)

	second := seedEvent(t, conn, repo, base.Add(2*time.Minute), 0)
	first := seedEvent(t, conn, repo, base.Add(time.Minute), 1)
	seedEvent(t, conn, repo, base, 5)
	published := seedEvent(t, conn, repo, base, 0)
	require.NoError(t, repo.MarkPublishedTx(conn, published.ID))

	var rows []models.OutboxEvent
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		rows, err = repo.FetchPendingTx(tx, 10, 5)
		return err
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID)
	assert.Equal(t, second.ID, rows[1].ID)

	limited, err := repo.FetchPendingTx(conn, 1, 5)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestMarkFailedTxRecordsAttempt(t *testing.T) {
	conn := testutil.OpenSQLite(t)
	repo := NewRepository(conn)
	event := seedEvent(t, conn, repo, time.Now().UTC(), 0)

	require.NoError(t, repo.MarkFailedTx(conn, event.ID, errors.New(strings.Repeat("x", 5000))))

	var stored models.OutboxEvent
	require.NoError(t, conn.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, 1, stored.AttemptCount)
	assert.Nil(t, stored.PublishedAt)
	require.NotNil(t, stored.LastError)
	assert.Less(t, len(*stored.LastError), 5000)

	require.NoError(t, repo.MarkPublishedTx(conn, event.ID))
	require.NoError(t, conn.First(&stored, "id = ?", event.ID).Error)
	assert.NotNil(t, stored.PublishedAt)
	assert.Nil(t, stored.LastError)
}

func TestDeletePublishedBeforeKeepsRecentAndDeadLettered(t *testing.T) {
	conn := testutil.OpenSQLite(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()

	old := seedEvent(t, conn, repo, now.Add(-48*time.Hour), 0)
	require.NoError(t, repo.MarkPublishedTx(conn, old.ID))
	dead := seedEvent(t, conn, repo, now.Add(-48*time.Hour), 0)
	require.NoError(t, repo.MarkDeadLettered(conn, dead.ID, errors.New("unknown event type")))
	pending := seedEvent(t, conn, repo, now.Add(-48*time.Hour), 0)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, now.Add(time.Minute), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	assert.Zero(t, testutil.Count(t, conn, "outbox_events", "id = ?", old.ID))
	assert.Equal(t, int64(1), testutil.Count(t, conn, "outbox_events", "id = ?", dead.ID))
	assert.Equal(t, int64(1), testutil.Count(t, conn, "outbox_events", "id = ?", pending.ID))

	deleted, err = repo.DeletePublishedBefore(context.Background(), conn, now.Add(time.Minute), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Zero(t, testutil.Count(t, conn, "outbox_events", "id = ?", dead.ID))
}

func TestRepositoryRequiresTransaction(t *testing.T) {
	repo := NewRepository(nil)
	_, err := repo.FetchPendingTx(nil, 1, 1)
	assert.ErrorIs(t, err, errTxRequired)
	assert.ErrorIs(t, repo.MarkPublishedTx(nil, uuid.New()), errTxRequired)
	assert.ErrorIs(t, repo.MarkFailedTx(nil, uuid.New(), errors.New("boom")), errTxRequired)
	assert.ErrorIs(t, repo.MarkDeadLettered(nil, uuid.New(), errors.New("boom")), errTxRequired)
	assert.ErrorIs(t, NewDLQRepository(nil).InsertTx(nil, models.OutboxDLQ{}), errTxRequired)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))

	long := strings.Repeat("a", maxErrorLen-1) + "é" + "tail"
	got := truncate(long)
	assert.Len(t, got, maxErrorLen-1)
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, "unknown error", errorText(nil))
}
