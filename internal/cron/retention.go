package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	paymentSessionRetentionDays = 30
	outboxRetentionDays         = 30
	outboxMinAttempts           = 5
)

// purgeFunc deletes rows older than cutoff and returns how many went.
type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// retentionJob prunes one table by age. Nothing it touches is an order.
type retentionJob struct {
	name   string
	logg   *logger.Logger
	days   int
	purge  purgeFunc
	fields map[string]any
	now    func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}

	fields := map[string]any{"cutoff": cutoff, "retention_days": j.days, "rows_deleted": deleted}
	for k, v := range j.fields {
		fields[k] = v
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "retention cleanup complete")
	return nil
}

type sessionPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type PaymentSessionRetentionJobParams struct {
	Logger        *logger.Logger
	Sessions      sessionPurger
	RetentionDays int
}

// NewPaymentSessionRetentionJob drops payment sessions not updated within the
// retention window.
func NewPaymentSessionRetentionJob(params PaymentSessionRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Sessions == nil:
		return nil, errors.New("payment session repository required")
	}
	return &retentionJob{
		name:  "payment-session-retention",
		logg:  params.Logger,
		days:  positiveOr(params.RetentionDays, paymentSessionRetentionDays),
		purge: params.Sessions.DeleteOlderThan,
		now:   time.Now,
	}, nil
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxPurger
	RetentionDays int
	// MinAttempts is the attempt count at which an unpublished row counts as
	// dead-lettered and becomes eligible for deletion.
	MinAttempts int
}

// NewOutboxRetentionJob drops published and dead-lettered outbox rows past
// the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	minAttempts := positiveOr(params.MinAttempts, outboxMinAttempts)
	return &retentionJob{
		name: "outbox-retention",
		logg: params.Logger,
		days: positiveOr(params.RetentionDays, outboxRetentionDays),
		purge: func(ctx context.Context, cutoff time.Time) (deleted int64, err error) {
			err = params.DB.WithTx(ctx, func(tx *gorm.DB) error {
				deleted, err = params.Repository.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
				return err
			})
			return deleted, err
		},
		fields: map[string]any{"min_attempts": minAttempts},
		now:    time.Now,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
