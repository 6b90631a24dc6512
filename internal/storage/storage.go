// Package storage defines the persistence ports for conversation transcripts
// and ticket lifecycle events, with SQLite and in-memory implementations in
// subpackages.
package storage

import (
	"context"
	"time"
)

// Conversation is a persisted transcript. Messages are append-only and
// ordered by insertion.
type Conversation struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Messages  []StoredMessage `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StoredMessage is one transcript turn as persisted. Options and detected
// objects are flattened to JSON in the payload column.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketEvent is a persisted ticket lifecycle event.
type TicketEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	TicketID       string    `json:"ticket_id"`
	Category       string    `json:"category"`
	Priority       string    `json:"priority"`
	Assignee       string    `json:"assignee"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListOptions defines options for listing conversations.
type ListOptions struct {
	UserID string
	Limit  int
	Offset int
}

// ConversationStore is the transcript persistence port.
type ConversationStore interface {
	// CreateConversation creates a new conversation record.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// GetConversation retrieves a conversation with its messages.
	GetConversation(ctx context.Context, id string) (*Conversation, error)

	// AddMessage appends a message to a conversation.
	AddMessage(ctx context.Context, convID string, msg *StoredMessage) error

	// ListConversations lists conversations with pagination.
	ListConversations(ctx context.Context, opts ListOptions) ([]*Conversation, error)

	// DeleteConversation deletes a conversation and its messages.
	DeleteConversation(ctx context.Context, id string) error

	// Close closes the storage connection.
	Close() error
}

// EventStore persists ticket lifecycle events for audit.
type EventStore interface {
	AppendTicketEvent(ctx context.Context, event *TicketEvent) error
	ListTicketEvents(ctx context.Context, conversationID string) ([]*TicketEvent, error)
}
