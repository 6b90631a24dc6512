package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/reclamo/reclamo/internal/storage"
)

func TestMemoryStore_ConversationLifecycle(t *testing.T) {
	store := New()
	defer store.Close()

	conv := &storage.Conversation{ID: "conv-1", UserID: "user-1"}
	if err := store.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	if err := store.CreateConversation(context.Background(), &storage.Conversation{ID: "conv-1"}); err == nil {
		t.Error("duplicate CreateConversation() should fail")
	}

	msg := &storage.StoredMessage{ID: "msg-1", Role: "bot", Kind: "welcome", Content: "Hello!"}
	if err := store.AddMessage(context.Background(), "conv-1", msg); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	retrieved, err := store.GetConversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if len(retrieved.Messages) != 1 {
		t.Fatalf("Messages count = %d, want 1", len(retrieved.Messages))
	}

	if err := store.DeleteConversation(context.Background(), "conv-1"); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if _, err := store.GetConversation(context.Background(), "conv-1"); err == nil {
		t.Error("GetConversation() should fail after delete")
	}
}

func TestMemoryStore_AddMessage_UnknownConversation(t *testing.T) {
	store := New()
	defer store.Close()

	err := store.AddMessage(context.Background(), "missing", &storage.StoredMessage{ID: "msg-1"})
	if err == nil {
		t.Error("AddMessage() to unknown conversation should fail")
	}
}

func TestMemoryStore_ListConversations(t *testing.T) {
	store := New()
	defer store.Close()

	for _, conv := range []*storage.Conversation{
		{ID: "conv-a", UserID: "user-1"},
		{ID: "conv-b", UserID: "user-2"},
	} {
		if err := store.CreateConversation(context.Background(), conv); err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
	}

	convs, err := store.ListConversations(context.Background(), storage.ListOptions{UserID: "user-2"})
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 1 || convs[0].ID != "conv-b" {
		t.Errorf("ListConversations(user-2) = %+v", convs)
	}
}

func TestMemoryStore_ReadsReturnCopies(t *testing.T) {
	store := New()
	defer store.Close()

	if err := store.CreateConversation(context.Background(), &storage.Conversation{ID: "conv-1", UserID: "user-1"}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if err := store.AddMessage(context.Background(), "conv-1", &storage.StoredMessage{ID: "msg-1", Role: "bot", Kind: "welcome", Content: "Hello!"}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	got, err := store.GetConversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	got.UserID = "tampered"
	got.Messages[0].Content = "tampered"

	again, err := store.GetConversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if again.UserID != "user-1" || again.Messages[0].Content != "Hello!" {
		t.Errorf("stored record mutated through a read result: %+v", again)
	}

	listed, err := store.ListConversations(context.Background(), storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	listed[0].Messages[0].Content = "tampered again"
	again, _ = store.GetConversation(context.Background(), "conv-1")
	if again.Messages[0].Content != "Hello!" {
		t.Errorf("stored record mutated through a list result: %+v", again)
	}
}

// Run with -race: readers marshal list/get results while a writer appends to
// the same conversation.
func TestMemoryStore_ConcurrentReadsDuringAppend(t *testing.T) {
	store := New()
	defer store.Close()

	if err := store.CreateConversation(context.Background(), &storage.Conversation{ID: "conv-1", UserID: "user-1"}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	const turns = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < turns; i++ {
			msg := &storage.StoredMessage{
				ID:      fmt.Sprintf("msg-%d", i),
				Role:    "bot",
				Kind:    "notification",
				Content: "status changed",
			}
			if err := store.AddMessage(context.Background(), "conv-1", msg); err != nil {
				t.Errorf("AddMessage() error = %v", err)
				return
			}
		}
	}()

	for i := 0; i < turns; i++ {
		convs, err := store.ListConversations(context.Background(), storage.ListOptions{UserID: "user-1"})
		if err != nil {
			t.Fatalf("ListConversations() error = %v", err)
		}
		if _, err := json.Marshal(convs); err != nil {
			t.Fatalf("marshal list: %v", err)
		}

		conv, err := store.GetConversation(context.Background(), "conv-1")
		if err != nil {
			t.Fatalf("GetConversation() error = %v", err)
		}
		if _, err := json.Marshal(conv); err != nil {
			t.Fatalf("marshal conversation: %v", err)
		}
	}
	<-done
}

func TestMemoryStore_AddMessageKeepsTimestamp(t *testing.T) {
	store := New()
	defer store.Close()

	if err := store.CreateConversation(context.Background(), &storage.Conversation{ID: "conv-1", UserID: "user-1"}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	appended := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	msg := &storage.StoredMessage{ID: "msg-1", Role: "bot", Kind: "text", Content: "Hello!", CreatedAt: appended}
	if err := store.AddMessage(context.Background(), "conv-1", msg); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	got, err := store.GetConversation(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if !got.Messages[0].CreatedAt.Equal(appended) {
		t.Errorf("CreatedAt = %v, want %v", got.Messages[0].CreatedAt, appended)
	}
}

func TestMemoryStore_TicketEvents(t *testing.T) {
	store := New()
	defer store.Close()

	ev := &storage.TicketEvent{ID: "ev-1", Type: "ticket.created", ConversationID: "conv-1", TicketID: "t-1"}
	if err := store.AppendTicketEvent(context.Background(), ev); err != nil {
		t.Fatalf("AppendTicketEvent() error = %v", err)
	}

	events, err := store.ListTicketEvents(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ListTicketEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].TicketID != "t-1" {
		t.Errorf("events = %+v", events)
	}
}
