package queue

import (
	"encoding/json"
	"time"

	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/models"
)

// Action is one queued mutation awaiting replay.
type Action struct {
	ID        string
	Type      models.ActionType
	Entity    models.EntityType
	Payload   Payload
	Timestamp int64

	Attempts      int
	LastError     string
	LastAttemptAt int64
}

// QueuedAt returns when the action was enqueued.
func (a Action) QueuedAt() time.Time {
	return time.UnixMilli(a.Timestamp)
}

// actionJSON is the persisted shape of an Action.
type actionJSON struct {
	ID            string            `json:"id"`
	Type          models.ActionType `json:"type"`
	Entity        models.EntityType `json:"entity"`
	Data          json.RawMessage   `json:"data"`
	Timestamp     int64             `json:"timestamp"`
	Attempts      int               `json:"attempts,omitempty"`
	LastError     string            `json:"lastError,omitempty"`
	LastAttemptAt int64             `json:"lastAttemptAt,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionJSON{
		ID:            a.ID,
		Type:          a.Type,
		Entity:        a.Entity,
		Data:          data,
		Timestamp:     a.Timestamp,
		Attempts:      a.Attempts,
		LastError:     a.LastError,
		LastAttemptAt: a.LastAttemptAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown (type, entity) pairs
// are rejected with INVALID_ACTION.
func (a *Action) UnmarshalJSON(b []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	newPayload, ok := decoders[payloadKey{raw.Type, raw.Entity}]
	if !ok {
		return apperrors.Newf(apperrors.ErrInvalidAction, "unknown action %s %s", raw.Type, raw.Entity)
	}
	p := newPayload()
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, p); err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidAction, "invalid action data", err)
		}
	}

	*a = Action{
		ID:            raw.ID,
		Type:          raw.Type,
		Entity:        raw.Entity,
		Payload:       deref(p),
		Timestamp:     raw.Timestamp,
		Attempts:      raw.Attempts,
		LastError:     raw.LastError,
		LastAttemptAt: raw.LastAttemptAt,
	}
	return nil
}
