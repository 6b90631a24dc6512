// Package events defines the ticket lifecycle event port. Publishers fan
// ticket milestones out to storage or a broker so downstream dashboards and
// reward pipelines can react without coupling to the conversation engine.
package events

import (
	"context"
	"time"

	"github.com/reclamo/reclamo/internal/domain"
)

// Type identifies a ticket lifecycle milestone.
type Type string

const (
	TypeTicketCreated  Type = "ticket.created"
	TypeTicketResolved Type = "ticket.resolved"
	TypeIssueSolved    Type = "issue.solved"
)

// TicketEvent is a single lifecycle event.
type TicketEvent struct {
	ID             string          `json:"id"`
	Type           Type            `json:"type"`
	ConversationID string          `json:"conversationId"`
	TicketID       string          `json:"ticketId,omitempty"`
	Category       domain.Category `json:"category,omitempty"`
	Priority       domain.Priority `json:"priority,omitempty"`
	Assignee       string          `json:"assignee,omitempty"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// Publisher delivers ticket lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event *TicketEvent) error
	Close() error
}
