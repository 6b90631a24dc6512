// Package direct provides an event publisher that writes to storage.
package direct

import (
	"context"
	"fmt"

	"github.com/reclamo/reclamo/internal/events"
	"github.com/reclamo/reclamo/internal/storage"
)

// Publisher implements events.Publisher by writing directly to the event
// store. This is the default for single-instance deployments without a broker.
type Publisher struct {
	store storage.EventStore
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher creates a new direct event publisher.
func NewPublisher(store storage.EventStore) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("event store required")
	}
	return &Publisher{store: store}, nil
}

// Publish writes a lifecycle event directly to storage.
func (p *Publisher) Publish(ctx context.Context, event *events.TicketEvent) error {
	return p.store.AppendTicketEvent(ctx, &storage.TicketEvent{
		ID:             event.ID,
		Type:           string(event.Type),
		ConversationID: event.ConversationID,
		TicketID:       event.TicketID,
		Category:       string(event.Category),
		Priority:       string(event.Priority),
		Assignee:       event.Assignee,
		CreatedAt:      event.OccurredAt,
	})
}

// Close is a no-op for direct publisher.
func (p *Publisher) Close() error {
	return nil
}
