package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the current layout of PayloadEnvelope.
const EnvelopeVersion = 1

// ErrBadEnvelope marks a message that will never decode, however often it is
// redelivered.
var ErrBadEnvelope = errors.New("malformed outbox envelope")

// ActorRef identifies who produced the event. A nil CustomerID marks a guest
// or the gateway itself.
type ActorRef struct {
	CustomerID *uuid.UUID `json:"customerId,omitempty"`
	Role       string     `json:"role,omitempty"`
}

// PayloadEnvelope is what outbox_events.payload holds and what subscribers
// receive as the message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a message body and returns its event id. Any failure
// wraps ErrBadEnvelope.
func DecodeEnvelope(body []byte) (PayloadEnvelope, uuid.UUID, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, uuid.Nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if env.Version > EnvelopeVersion {
		return env, uuid.Nil, fmt.Errorf("%w: unsupported version %d", ErrBadEnvelope, env.Version)
	}
	id, err := uuid.Parse(env.EventID)
	if err != nil {
		return env, uuid.Nil, fmt.Errorf("%w: event id: %v", ErrBadEnvelope, err)
	}
	return env, id, nil
}

// DecodeData unmarshals the event body into v.
func (e PayloadEnvelope) DecodeData(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: data: %v", ErrBadEnvelope, err)
	}
	return nil
}
