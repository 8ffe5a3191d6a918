package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Envelope is one raw tool event waiting for import. Payload is the tool's
// payload verbatim; the worker hands it to the source normalizer and stores
// it as the activity's RawData.
type Envelope struct {
	UserID      uuid.UUID       `json:"user_id"`
	TenantID    uuid.UUID       `json:"tenant_id,omitempty"`
	WorkspaceID uuid.UUID       `json:"workspace_id,omitempty"`
	Source      string          `json:"source"`
	ReceivedAt  time.Time       `json:"received_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Validate rejects envelopes the worker could never import.
func (e Envelope) Validate() error {
	if e.UserID == uuid.Nil {
		return types.ErrUserIDRequired
	}
	if _, err := types.ParseActivitySource(e.Source); err != nil {
		return err
	}
	if len(e.Payload) == 0 || strings.TrimSpace(string(e.Payload)) == "" {
		return ErrPayloadInvalid
	}
	return nil
}

// Producer enqueues raw tool events for asynchronous import.
type Producer interface {
	Enqueue(ctx context.Context, env Envelope) error
	Close() error
}

// NoopProducer drops every envelope. It stands in for the redis producer in
// tests and in hosts that import synchronously.
type NoopProducer struct{}

// NewNoopProducer constructs a producer that accepts and discards envelopes.
func NewNoopProducer() *NoopProducer {
	return &NoopProducer{}
}

// Enqueue implements Producer.
func (p *NoopProducer) Enqueue(_ context.Context, _ Envelope) error {
	return nil
}

// Close implements Producer.
func (p *NoopProducer) Close() error {
	return nil
}

var _ Producer = (*NoopProducer)(nil)
