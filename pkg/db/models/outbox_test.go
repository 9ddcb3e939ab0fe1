package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestOutboxEventDeadLetter(t *testing.T) {
	event := OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		AttemptCount:  4,
	}
	assert.True(t, event.Pending())

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("LKT", 5*3600+1800))
	entry := event.DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New("broker down"), at)

	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, event.AggregateID, entry.AggregateID)
	assert.Equal(t, 4, entry.AttemptCount)
	assert.Equal(t, time.UTC, entry.FailedAt.Location())
	require.NotNil(t, entry.ErrorMessage)
	assert.Equal(t, "broker down", *entry.ErrorMessage)

	assert.Nil(t, event.DeadLetter(enums.OutboxDLQReasonNonRetryable, nil, at).ErrorMessage)
}
