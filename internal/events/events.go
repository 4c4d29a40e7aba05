package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobRequestEvent asks the media pipeline to run one background job. The
// payload carries job-specific data serialized as JSON, so emitters need
// no dependency on the pipeline's types.
type JobRequestEvent struct {
	// ID uniquely identifies this event.
	ID uuid.UUID `json:"id"`

	// Kind names the pipeline queue that should run the job.
	Kind string `json:"kind"`

	// Payload is the job data, decoded by the dispatcher.
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is when the event was emitted.
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *JobRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewJobRequestEvent creates a JobRequestEvent for the given pipeline kind.
func NewJobRequestEvent(kind string, payload any) (*JobRequestEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &JobRequestEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Handler processes job request events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *JobRequestEvent) error
}

// Emitter publishes job request events to registered handlers. Services
// emit through this interface without knowing which queues consume.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *JobRequestEvent) error
}
