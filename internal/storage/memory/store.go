// Package memory provides an in-memory transcript store for tests and
// storage-less deployments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reclamo/reclamo/internal/storage"
)

// Store is an in-memory implementation of ConversationStore and EventStore.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*storage.Conversation
	events        map[string][]*storage.TicketEvent
}

var _ storage.ConversationStore = (*Store)(nil)
var _ storage.EventStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		conversations: make(map[string]*storage.Conversation),
		events:        make(map[string][]*storage.TicketEvent),
	}
}

func (s *Store) CreateConversation(ctx context.Context, conv *storage.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; exists {
		return fmt.Errorf("conversation %s already exists", conv.ID)
	}

	conv.CreatedAt = time.Now()
	conv.UpdatedAt = time.Now()
	conv.Messages = []storage.StoredMessage{}

	// Keep an owned copy; the caller's struct stays theirs.
	s.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*storage.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil, fmt.Errorf("conversation %s not found", id)
	}

	return cloneConversation(conv), nil
}

func (s *Store) AddMessage(ctx context.Context, convID string, msg *storage.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[convID]
	if !exists {
		return fmt.Errorf("conversation %s not found", convID)
	}

	// The append-time timestamp is part of the transcript; keep it.
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	conv.Messages = append(conv.Messages, *msg)
	conv.UpdatedAt = time.Now()

	return nil
}

func (s *Store) ListConversations(ctx context.Context, opts storage.ListOptions) ([]*storage.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.Conversation
	for _, conv := range s.conversations {
		if opts.UserID != "" && conv.UserID != opts.UserID {
			continue
		}
		result = append(result, cloneConversation(conv))
	}

	// Simple pagination
	start := opts.Offset
	if start >= len(result) {
		return []*storage.Conversation{}, nil
	}

	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[id]; !exists {
		return fmt.Errorf("conversation %s not found", id)
	}

	delete(s.conversations, id)
	delete(s.events, id)
	return nil
}

func (s *Store) AppendTicketEvent(ctx context.Context, event *storage.TicketEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.CreatedAt = time.Now()
	s.events[event.ConversationID] = append(s.events[event.ConversationID], event)
	return nil
}

func (s *Store) ListTicketEvents(ctx context.Context, conversationID string) ([]*storage.TicketEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.events[conversationID], nil
}

func (s *Store) Close() error {
	return nil
}

// cloneConversation copies a conversation and its message slice. Reads hand
// out copies so callers never share the slice that AddMessage appends to
// under the store lock.
func cloneConversation(conv *storage.Conversation) *storage.Conversation {
	out := *conv
	out.Messages = make([]storage.StoredMessage, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return &out
}
