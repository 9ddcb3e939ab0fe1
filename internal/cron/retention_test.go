package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/paymentsessions"
	testdb "github.com/angelmondragon/storefront-backend/internal/testutil"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type fakeOutboxRetentionRepo struct {
	lastCutoff  time.Time
	minAttempts int
	called      int
	err         error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, days int) *retentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        testLogger(),
		DB:            passthroughTx{},
		Repository:    repo,
		RetentionDays: days,
	})
	require.NoError(t, err)
	return job.(*retentionJob)
}

func TestOutboxRetentionJobUsesCutoffAndDefaults(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "outbox-retention", job.Name())
	assert.True(t, repo.lastCutoff.Equal(now.Add(-outboxRetentionDays*24*time.Hour)))
	assert.Equal(t, outboxMinAttempts, repo.minAttempts)
	assert.Equal(t, 1, repo.called)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxRetentionRepo{err: errors.New("boom")}, 7)
	assert.ErrorContains(t, job.Run(context.Background()), "boom")
}

func TestOutboxRetentionJobValidation(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), DB: passthroughTx{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), Repository: &fakeOutboxRetentionRepo{}})
	assert.Error(t, err)
}

func TestPaymentSessionRetentionJobDeletesStaleSessions(t *testing.T) {
	conn := testdb.OpenSQLite(t)
	sessions := paymentsessions.NewRepository(conn)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for ref, touched := range map[string]time.Time{
		"ORD-OLD":    now.Add(-31 * 24 * time.Hour),
		"ORD-RECENT": now.Add(-2 * 24 * time.Hour),
	} {
		session := models.PaymentSession{
			OrderRef:  ref,
			Payload:   models.SessionPayload{Amount: decimal.RequireFromString("10"), Currency: "LKR"},
			CreatedAt: touched,
			UpdatedAt: touched,
		}
		require.NoError(t, conn.Create(&session).Error)
	}

	job, err := NewPaymentSessionRetentionJob(PaymentSessionRetentionJobParams{Logger: testLogger(), Sessions: sessions})
	require.NoError(t, err)
	impl := job.(*retentionJob)
	impl.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int64(0), testdb.Count(t, conn, "payment_sessions", "order_ref = ?", "ORD-OLD"))
	assert.Equal(t, int64(1), testdb.Count(t, conn, "payment_sessions", "order_ref = ?", "ORD-RECENT"))
}

func TestNewPaymentSessionRetentionJobRequiresDependencies(t *testing.T) {
	_, err := NewPaymentSessionRetentionJob(PaymentSessionRetentionJobParams{})
	assert.Error(t, err)
	_, err = NewPaymentSessionRetentionJob(PaymentSessionRetentionJobParams{Logger: testLogger()})
	assert.Error(t, err)
}
