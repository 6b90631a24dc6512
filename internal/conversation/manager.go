package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reclamo/reclamo/internal/auth"
	"github.com/reclamo/reclamo/internal/domain"
	"github.com/reclamo/reclamo/internal/events"
	"github.com/reclamo/reclamo/internal/storage"
	"github.com/reclamo/reclamo/internal/taxonomy"
	"github.com/reclamo/reclamo/internal/upstream"
)

// DefaultPollInterval matches the upstream dashboard's notification cadence.
const DefaultPollInterval = 30 * time.Second

// Manager owns the live sessions and their notification pollers.
type Manager struct {
	upstream     *upstream.Client
	store        storage.ConversationStore
	publisher    events.Publisher
	logger       *slog.Logger
	pollInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithPollInterval overrides the notification polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) { m.pollInterval = d }
}

// WithPublisher wires a ticket lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// NewManager builds a Manager. store may be nil for transcript-less
// operation; upstream and logger are required.
func NewManager(client *upstream.Client, store storage.ConversationStore, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		upstream:     client,
		store:        store,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		sessions:     make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a new session for the caller identified by the token in ctx.
// The welcome turn offers the live category taxonomy; if the upstream cannot
// provide one the built-in taxonomy stands in so the conversation still works.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	tok, ok := auth.TokenFromContext(ctx)
	if !ok {
		return nil, domain.NewAPIError(domain.ErrorTypeAuthentication, "no token in context")
	}

	tax, err := m.upstream.Categories(ctx)
	if err != nil || len(tax) == 0 {
		if err != nil {
			m.logger.Warn("category fetch failed, using built-in taxonomy",
				slog.String("error", err.Error()))
		}
		tax = taxonomy.Default()
	}

	s := &Session{
		ID:          uuid.NewString(),
		upstream:    m.upstream,
		recorder:    &recorder{store: m.store, logger: m.logger},
		publisher:   m.publisher,
		logger:      m.logger,
		UserID:      tok.Subject,
		tax:         tax,
		seenUpdates: make(map[string]bool),
	}

	if m.store != nil {
		conv := &storage.Conversation{ID: s.ID, UserID: tok.Subject, CreatedAt: time.Now()}
		if err := m.store.CreateConversation(ctx, conv); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.append(domain.Message{
		Role:    domain.RoleBot,
		Kind:    domain.KindWelcome,
		Content: welcomeText,
		Options: tax.Options(),
	})
	s.mu.Unlock()

	pollCtx, cancel := context.WithCancel(auth.ContextWithToken(context.Background(), tok))
	s.cancelPoll = cancel
	go m.poll(pollCtx, s)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("conversation started",
		slog.String("conversation_id", s.ID),
		slog.String("user", tok.Subject))
	return s, nil
}

// Get returns the live session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close ends a session: its poller stops and its transcript is deleted.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.NewAPIError(domain.ErrorTypeNotFound, "conversation not found")
	}
	s.Close()

	if m.store != nil {
		if err := m.store.DeleteConversation(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// List returns the caller's stored conversations, newest first per the
// store's ordering. Requires a configured store.
func (m *Manager) List(ctx context.Context, userID string, limit, offset int) ([]*storage.Conversation, error) {
	if m.store == nil {
		return nil, domain.NewAPIError(domain.ErrorTypeServer, "transcript storage is not configured")
	}
	return m.store.ListConversations(ctx, storage.ListOptions{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
}

// StoredTranscript fetches a persisted transcript, including ones whose
// session is no longer live.
func (m *Manager) StoredTranscript(ctx context.Context, id string) (*storage.Conversation, error) {
	if m.store == nil {
		return nil, domain.NewAPIError(domain.ErrorTypeNotFound, "conversation not found")
	}
	return m.store.GetConversation(ctx, id)
}

// DeleteStored drops a persisted transcript that has no live session, for
// example one left behind by a restart. Callers check ownership first.
func (m *Manager) DeleteStored(ctx context.Context, id string) error {
	if m.store == nil {
		return domain.NewAPIError(domain.ErrorTypeNotFound, "conversation not found")
	}
	return m.store.DeleteConversation(ctx, id)
}

// Shutdown stops all pollers. Transcripts are kept.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// recorder persists transcript turns. Store failures are logged, never
// surfaced: the in-memory transcript is the source of truth for a live
// session.
type recorder struct {
	store  storage.ConversationStore
	logger *slog.Logger
}

func (r *recorder) record(conversationID string, msg domain.Message) {
	if r.store == nil {
		return
	}
	stored := &storage.StoredMessage{
		ID:        msg.ID,
		Role:      msg.Role,
		Kind:      string(msg.Kind),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if len(msg.Options) > 0 || msg.TicketID != "" || len(msg.DetectedObjects) > 0 {
		stored.Payload = messagePayload(msg)
	}
	if err := r.store.AddMessage(context.Background(), conversationID, stored); err != nil {
		r.logger.Warn("persist transcript message",
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()))
	}
}
