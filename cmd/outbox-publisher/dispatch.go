package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

type disposition int

const (
	published disposition = iota
	retryLater
	deadLetter
)

// outcome is what happened to one row during a batch.
type outcome struct {
	disposition disposition
	reason      enums.OutboxDLQErrorReason
	topic       string
	err         error
}

// processBatch claims one batch and settles every row inside the claiming
// transaction. It reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	claimed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchPendingTx(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(events) > 0
		for _, event := range events {
			if err := s.settle(ctx, tx, event, s.dispatch(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) outcome {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcome{disposition: deadLetter, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}

	topic := resolved.Descriptor.Topic
	err = s.publish(ctx, topic, buildMessage(event, resolved.Envelope.EventID))
	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		return outcome{disposition: published, topic: topic}
	case errors.As(err, &nonRetryable):
		return outcome{disposition: deadLetter, reason: enums.OutboxDLQReasonNonRetryable, topic: topic, err: err}
	case event.AttemptCount+1 >= s.maxAttempts:
		return outcome{
			disposition: deadLetter,
			reason:      enums.OutboxDLQReasonMaxAttempts,
			topic:       topic,
			err:         fmt.Errorf("max publish attempts reached: %w", err),
		}
	default:
		return outcome{disposition: retryLater, topic: topic, err: err}
	}
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, out outcome) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"topic":          out.topic,
		"outbox_outcome": out.disposition.String(),
	})

	switch out.disposition {
	case published:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox event published")
	case retryLater:
		s.logg.Warn(s.logg.WithField(logCtx, "error", out.err.Error()), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, out.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
	case deadLetter:
		logCtx = s.logg.WithFields(logCtx, map[string]any{"error_reason": out.reason, "error": out.err.Error()})
		s.logg.Warn(logCtx, "outbox event will not be retried")
		entry := event.DeadLetter(out.reason, out.err, time.Now())
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.MarkDeadLettered(tx, event.ID, out.err); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
	}
	return nil
}

func (d disposition) String() string {
	switch d {
	case published:
		return "published"
	case retryLater:
		return "retry"
	default:
		return "dead_letter"
	}
}
