// Package events owns the wire form of domain facts: the JSON envelope
// that crosses the broker and the registry that turns envelopes back
// into typed facts.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/domain"
)

// DeadLetterSuffix is appended to a fact's type name to form its
// dead-letter routing key.
const DeadLetterSuffix = ".failed"

// FailureMaxRetries is stamped into metadata.failureReason when a fact
// exhausted its delivery attempts.
const FailureMaxRetries = "max_retries_exceeded"

// FailureUnprocessable marks messages that could not be reconstructed.
const FailureUnprocessable = "unprocessable_message"

var ErrMalformedEnvelope = errors.New("malformed event envelope")

type Metadata struct {
	PublishedAt   time.Time `json:"publishedAt"`
	Publisher     string    `json:"publisher"`
	Attempt       int       `json:"attempt"`
	FailureReason string    `json:"failureReason,omitempty"`
}

type ErrorInfo struct {
	Message   string    `json:"message"`
	Stack     string    `json:"stack"`
	Timestamp time.Time `json:"timestamp"`
}

// Body is the delivery payload. Attributes holds the fact's own fields
// plus the declared eventVersion.
type Body struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregateId"`
	OccurredOn  time.Time      `json:"occurredOn"`
	Attributes  map[string]any `json:"attributes"`
	Metadata    Metadata       `json:"metadata"`
	Error       *ErrorInfo     `json:"error,omitempty"`
}

// Envelope is the outer wire shape: the body nested under "data".
type Envelope struct {
	Data Body `json:"data"`
}

// NewEnvelope serializes a fact for one delivery attempt.
func NewEnvelope(e domain.Event, publisher string, attempt int) Envelope {
	attrs := make(map[string]any, len(e.Attributes())+1)
	for k, v := range e.Attributes() {
		attrs[k] = v
	}
	attrs["eventVersion"] = e.EventVersion()

	return Envelope{Data: Body{
		ID:          e.EventID().String(),
		Type:        e.EventName(),
		AggregateID: e.AggregateID().String(),
		OccurredOn:  e.OccurredOn(),
		Attributes:  attrs,
		Metadata: Metadata{
			PublishedAt: time.Now().UTC(),
			Publisher:   publisher,
			Attempt:     attempt,
		},
	}}
}

// ParseEnvelope accepts both the nested {"data": {...}} shape and a flat
// body; some producers publish the body directly.
func ParseEnvelope(raw []byte) (Body, error) {
	var wrapped struct {
		Data *Body `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil && wrapped.Data.Type != "" {
		return *wrapped.Data, nil
	}

	var flat Body
	if err := json.Unmarshal(raw, &flat); err != nil {
		return Body{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if flat.Type == "" {
		return Body{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return flat, nil
}

// DeadLetterKey derives the dead-letter routing key for a type name.
func DeadLetterKey(typeName string) string {
	return typeName + DeadLetterSuffix
}
