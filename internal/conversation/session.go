// Package conversation drives the turn-based chatbot flow: welcome, guided
// category/subcategory selection, canned problem/solution cards, ticket
// creation, and ticket-status notifications.
//
// Each session owns its transcript exclusively. Every entry point takes the
// session lock, applies one transition, and appends the resulting turns; an
// append is the only mutation, so a transition either completes or leaves the
// previous state untouched.
package conversation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reclamo/reclamo/internal/assign"
	"github.com/reclamo/reclamo/internal/classify"
	"github.com/reclamo/reclamo/internal/domain"
	"github.com/reclamo/reclamo/internal/events"
	"github.com/reclamo/reclamo/internal/taxonomy"
	"github.com/reclamo/reclamo/internal/upstream"
)

// Fixed option ids understood by Select. Ticket-scoped options carry the
// ticket id after a colon.
const (
	OptionOpenTicket    = "open_ticket"
	OptionIssueSolved   = "solved"
	OptionSubmitTicket  = "submit_ticket"
	OptionOpenNewTicket = "open_new_ticket"

	optionViewStatusPrefix   = "view_status:"
	optionMarkResolvedPrefix = "mark_resolved:"
)

const (
	welcomeText = "Hello! I'm your AI assistant. How can I help you today? " +
		"You can type your complaint, use voice input, or upload an image of the issue."
	ticketFormText = "Please provide additional details about your issue:"
	thankYouText   = "Great! I'm glad the solution helped. Is there anything else I can assist you with?"

	selectionErrorText = "Sorry, I encountered an error processing your selection. Please try again or type your issue directly."
	requestErrorText   = "Sorry, I encountered an error processing your request. Please try again later."
	emptyTicketText    = "Your ticket description is empty. Please describe the issue so I can open a ticket."

	assistantFeaturesText = "I can help you with your complaint using these AI features: " +
		"automatic ticket creation, intelligent categorization, a prioritization system, " +
		"and dynamic assignment to the right team."
)

// Subcategories severe enough to open a ticket the moment they are selected.
var autoTicketSubcategories = map[string]bool{
	"technical.app_crash":         true,
	"billing.duplicate_charges":   true,
	"service.unavailable_service": true,
}

// maxNotificationsPerPoll bounds how many notifications one poll may append.
const maxNotificationsPerPoll = 10

type state int

const (
	stateCategoryWait state = iota
	stateProblemShown
	stateAwaitDescription
)

// Session is a single conversation. All exported methods are safe for
// concurrent use; internally each transition runs under the session lock.
type Session struct {
	ID string
	// UserID is the session owner, from the token's sub claim.
	UserID string

	upstream  *upstream.Client
	recorder  *recorder
	publisher events.Publisher
	logger    *slog.Logger

	tax taxonomy.Taxonomy

	mu                sync.Mutex
	closed            bool
	state             state
	activeCategory    string
	activeSubcategory string
	draft             *domain.ComplaintDraft
	messages          []domain.Message
	seenUpdates       map[string]bool

	cancelPoll context.CancelFunc
}

// Messages returns a copy of the transcript so far.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Close stops the notification poller and freezes the session. Poll results
// or upstream responses arriving afterwards are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancelPoll != nil {
		s.cancelPoll()
	}
}

// Result is the outcome of one conversation turn: the turns appended by the
// transition and whether a ticket was created during it.
type Result struct {
	Messages      []domain.Message
	TicketCreated bool
	TicketID      string
}

// Select applies an option selection. text carries the in-progress ticket
// description and is only consulted by the submit-ticket transition; it is
// passed explicitly rather than read from ambient state.
func (s *Session) Select(ctx context.Context, optionID, label, text string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, domain.NewAPIError(domain.ErrorTypeNotFound, "conversation is closed")
	}

	mark := len(s.messages)
	s.append(domain.Message{
		Role:    domain.RoleUser,
		Kind:    domain.KindText,
		Content: "I need help with: " + label,
	})

	result := Result{}

	switch {
	case s.tax.IsCategory(optionID):
		opts, _ := s.tax.SubcategoryOptions(optionID)
		s.append(domain.Message{
			Role:    domain.RoleBot,
			Kind:    domain.KindSubcategoryPrompt,
			Content: fmt.Sprintf("Please select a specific issue related to %s:", s.tax[optionID].Name),
			Options: opts,
		})
		s.activeCategory = optionID
		s.state = stateCategoryWait

	case s.isSubcategory(optionID):
		sub, category, _ := s.tax.Lookup(optionID)
		s.append(domain.Message{
			Role:    domain.RoleBot,
			Kind:    domain.KindProblemSolution,
			Content: problemSolutionText(sub),
			Options: []domain.Option{
				{ID: OptionOpenTicket, Label: "Open Ticket"},
				{ID: OptionIssueSolved, Label: "Issue Solved"},
			},
		})
		s.activeCategory = category
		s.activeSubcategory = optionID
		s.draft = &domain.ComplaintDraft{
			Category:    domain.Category(category),
			Subcategory: optionID,
			Priority:    guidedPriority(category),
		}
		s.state = stateProblemShown

		if autoTicketSubcategories[optionID] {
			// Severe issue: open a ticket right away on top of the card.
			result = s.createTicket(ctx, sub.Name, sub.Name)
		}

	case optionID == OptionOpenTicket, optionID == OptionOpenNewTicket:
		if s.draft == nil {
			s.draft = &domain.ComplaintDraft{Priority: domain.PriorityMedium}
		}
		s.append(domain.Message{
			Role:    domain.RoleBot,
			Kind:    domain.KindTicketForm,
			Content: ticketFormText,
			Options: []domain.Option{{ID: OptionSubmitTicket, Label: "Submit Ticket"}},
		})
		s.state = stateAwaitDescription

	case optionID == OptionIssueSolved:
		category, subcategory := s.activeCategory, s.activeSubcategory
		if err := s.upstream.MarkIssueSolved(ctx, category, subcategory); err != nil {
			s.appendTransitionError(err, selectionErrorText)
			break
		}
		s.publish(&events.TicketEvent{
			Type:     events.TypeIssueSolved,
			Category: domain.Category(category),
		})
		s.append(domain.Message{
			Role:    domain.RoleBot,
			Kind:    domain.KindText,
			Content: thankYouText,
			Options: s.tax.Options(),
		})
		s.resetFlow()

	case optionID == OptionSubmitTicket:
		result = s.submitDescription(ctx, text)

	case strings.HasPrefix(optionID, optionViewStatusPrefix):
		s.viewStatus(ctx, strings.TrimPrefix(optionID, optionViewStatusPrefix))

	case strings.HasPrefix(optionID, optionMarkResolvedPrefix):
		s.markResolved(ctx, strings.TrimPrefix(optionID, optionMarkResolvedPrefix))

	default:
		s.append(domain.Message{
			Role:    domain.RoleBot,
			Kind:    domain.KindError,
			Content: selectionErrorText,
		})
	}

	result.Messages = s.messages[mark:]
	return result, nil
}

// HandleText applies a free-text user message. messageType is "text" or
// "voice"; voice input has already been transcribed and re-enters here.
func (s *Session) HandleText(ctx context.Context, text, messageType string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, domain.NewAPIError(domain.ErrorTypeNotFound, "conversation is closed")
	}

	mark := len(s.messages)

	// A free-text turn while the ticket form is open is the description.
	if s.state == stateAwaitDescription {
		s.append(domain.Message{Role: domain.RoleUser, Kind: domain.KindText, Content: text})
		result := s.submitDescription(ctx, text)
		result.Messages = s.messages[mark:]
		return result, nil
	}

	if strings.TrimSpace(text) == "" {
		return Result{}, domain.NewAPIError(domain.ErrorTypeInvalidRequest, "message is empty")
	}

	s.append(domain.Message{Role: domain.RoleUser, Kind: domain.KindText, Content: text})

	reply, err := s.upstream.RelayMessage(ctx, text, messageType)
	if err != nil {
		s.appendTransitionError(err, requestErrorText)
		return Result{Messages: s.messages[mark:]}, nil
	}

	s.append(domain.Message{Role: domain.RoleBot, Kind: domain.KindText, Content: reply.Message})

	result := Result{}
	switch {
	case reply.TicketCreated:
		// The upstream chatbot already opened the ticket (voice path).
		s.append(domain.Message{
			Role:     domain.RoleBot,
			Kind:     domain.KindTicketConfirmation,
			Content:  fmt.Sprintf("Ticket #%s has been created for your complaint.", reply.TicketID),
			TicketID: reply.TicketID,
		})
		result = Result{TicketCreated: true, TicketID: reply.TicketID}

	case reply.SuggestTicket || mentionsComplaint(text):
		s.append(domain.Message{
			Role:    domain.RoleBot,
			Kind:    domain.KindAssistantFeatures,
			Content: assistantFeaturesText,
		})
		result = s.createTicket(ctx, text, text)
	}

	result.Messages = s.messages[mark:]
	return result, nil
}

// HandleImage relays an uploaded image for object detection.
func (s *Session) HandleImage(ctx context.Context, filename string, image io.Reader) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, domain.NewAPIError(domain.ErrorTypeNotFound, "conversation is closed")
	}

	mark := len(s.messages)
	s.append(domain.Message{Role: domain.RoleUser, Kind: domain.KindText, Content: "Image uploaded"})

	reply, err := s.upstream.RelayImage(ctx, filename, image)
	if err != nil {
		s.appendTransitionError(err, requestErrorText)
		return Result{Messages: s.messages[mark:]}, nil
	}

	s.append(domain.Message{
		Role:            domain.RoleBot,
		Kind:            domain.KindText,
		Content:         reply.Message,
		DetectedObjects: reply.DetectedObjects,
	})

	if s.draft != nil {
		s.draft.ImageRef = filename
		s.draft.DetectedObjects = reply.DetectedObjects
	}

	result := Result{}
	if reply.TicketCreated {
		s.append(domain.Message{
			Role:     domain.RoleBot,
			Kind:     domain.KindTicketConfirmation,
			Content:  fmt.Sprintf("Ticket #%s has been created for your complaint.", reply.TicketID),
			TicketID: reply.TicketID,
		})
		result = Result{TicketCreated: true, TicketID: reply.TicketID}
	}

	result.Messages = s.messages[mark:]
	return result, nil
}

// submitDescription runs the submit-ticket transition. The description is an
// explicit argument; an empty one is a local validation failure that
// re-prompts without touching the upstream.
func (s *Session) submitDescription(ctx context.Context, description string) Result {
	description = strings.TrimSpace(description)
	if description == "" {
		s.append(domain.Message{
			Role:    domain.RoleBot,
			Kind:    domain.KindError,
			Content: emptyTicketText,
			Options: []domain.Option{{ID: OptionSubmitTicket, Label: "Submit Ticket"}},
		})
		return Result{}
	}

	result := s.createTicket(ctx, subjectFrom(description), description)
	if result.TicketCreated {
		s.resetFlow()
	}
	return result
}

// createTicket classifies, scores, picks an assignee, and calls the gateway.
// On failure it appends an error turn and leaves the flow state untouched.
func (s *Session) createTicket(ctx context.Context, subject, description string) Result {
	category := classify.Classify(description)
	priority := classify.ScorePriority(description)
	if s.draft != nil {
		if s.draft.Category != "" {
			category = s.draft.Category
		}
		if s.draft.Priority != "" {
			priority = s.draft.Priority
		}
	}

	assignee := assign.FallbackAssignee
	if agents, err := s.upstream.Agents(ctx); err == nil {
		assignee = assign.Rank(category, priority, agents)
	} else {
		// Recoverable: the ticket still goes to the shared queue.
		s.logger.Warn("agent roster fetch failed",
			slog.String("conversation_id", s.ID),
			slog.String("error", err.Error()))
	}

	req := upstream.TicketRequest{
		Subject:     subject,
		Description: description,
		Category:    string(category),
		Priority:    priority,
		AssignedTo:  assignee,
	}
	if s.draft != nil {
		req.Subcategory = s.draft.Subcategory
		req.ImageURL = s.draft.ImageRef
		req.DetectedObjects = s.draft.DetectedObjects
	}

	ticket, err := s.upstream.CreateTicket(ctx, req)
	if err != nil {
		s.appendTransitionError(err, requestErrorText)
		return Result{}
	}

	s.append(domain.Message{
		Role: domain.RoleBot,
		Kind: domain.KindTicketConfirmation,
		Content: fmt.Sprintf("I've analyzed your complaint and created a ticket for you. Category: %s, Priority: %s",
			category, priority),
		TicketID: ticket.ID,
	})

	s.publish(&events.TicketEvent{
		Type:     events.TypeTicketCreated,
		TicketID: ticket.ID,
		Category: category,
		Priority: priority,
		Assignee: assignee,
	})

	return Result{TicketCreated: true, TicketID: ticket.ID}
}

func (s *Session) viewStatus(ctx context.Context, ticketID string) {
	status, err := s.upstream.TicketStatus(ctx, ticketID)
	if err != nil {
		s.appendTransitionError(err, requestErrorText)
		return
	}

	content := fmt.Sprintf("Ticket #%s is %s. Category: %s, Priority: %s.",
		status.ID, status.Status, status.Category, status.Priority)
	if status.Assignee != "" {
		content += fmt.Sprintf(" Assigned to %s.", status.Assignee)
	}

	s.append(domain.Message{
		Role:     domain.RoleBot,
		Kind:     domain.KindStatusReport,
		Content:  content,
		TicketID: status.ID,
		Options: []domain.Option{
			{ID: optionMarkResolvedPrefix + status.ID, Label: "Mark as Resolved"},
			{ID: OptionOpenNewTicket, Label: "Open New Ticket"},
		},
	})
}

func (s *Session) markResolved(ctx context.Context, ticketID string) {
	if err := s.upstream.MarkResolved(ctx, ticketID); err != nil {
		s.appendTransitionError(err, requestErrorText)
		return
	}

	s.publish(&events.TicketEvent{
		Type:     events.TypeTicketResolved,
		TicketID: ticketID,
	})
	s.append(domain.Message{
		Role:     domain.RoleBot,
		Kind:     domain.KindText,
		Content:  fmt.Sprintf("Ticket #%s has been marked as resolved. Thank you! Is there anything else I can help with?", ticketID),
		TicketID: ticketID,
		Options:  s.tax.Options(),
	})
	s.resetFlow()
}

// deliverUpdates appends notification turns for unseen ticket updates. Called
// from the poller; a closed session drops the batch.
func (s *Session) deliverUpdates(updates []upstream.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	delivered := 0
	for _, update := range updates {
		if update.ComplaintID == "" || s.seenUpdates[update.ComplaintID] {
			continue
		}
		if delivered >= maxNotificationsPerPoll {
			break
		}
		s.seenUpdates[update.ComplaintID] = true
		delivered++

		number := update.TicketNumber
		if number == "" {
			number = update.ComplaintID
		}
		detail := update.Message
		if detail == "" {
			detail = fmt.Sprintf("status changed to %s", update.Status)
		}
		s.append(domain.Message{
			Role:     domain.RoleBot,
			Kind:     domain.KindNotification,
			Content:  fmt.Sprintf("Complaint #%s: %s", number, detail),
			TicketID: update.ComplaintID,
			Options: []domain.Option{
				{ID: optionViewStatusPrefix + update.ComplaintID, Label: "View Status"},
				{ID: optionMarkResolvedPrefix + update.ComplaintID, Label: "Mark Resolved"},
			},
		})
	}
}

// append finalizes msg and records it. Callers hold the session lock.
func (s *Session) append(msg domain.Message) {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	s.messages = append(s.messages, msg)
	s.recorder.record(s.ID, msg)
}

// appendTransitionError reports a failed transition. The flow state is left
// exactly as it was before the transition started.
func (s *Session) appendTransitionError(err error, fallbackText string) {
	s.logger.Warn("conversation transition failed",
		slog.String("conversation_id", s.ID),
		slog.String("error", err.Error()))
	s.append(domain.Message{
		Role:    domain.RoleBot,
		Kind:    domain.KindError,
		Content: fallbackText,
	})
}

func (s *Session) resetFlow() {
	s.state = stateCategoryWait
	s.activeCategory = ""
	s.activeSubcategory = ""
	s.draft = nil
}

func (s *Session) publish(event *events.TicketEvent) {
	if s.publisher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.ConversationID = s.ID
	event.OccurredAt = time.Now()

	// Best-effort: a broker hiccup must not fail the user's turn.
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		s.logger.Warn("publish ticket event",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}

func (s *Session) isSubcategory(optionID string) bool {
	_, _, ok := s.tax.Lookup(optionID)
	return ok
}

func problemSolutionText(sub taxonomy.Subcategory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Problem:** %s\n\n**Solution:**\n", sub.Problem)
	for _, step := range sub.Solution {
		fmt.Fprintf(&b, "• %s\n", step)
	}
	b.WriteString("\nIf the provided solution does not work, you can click \"Open Ticket\" to get help from our support team.")
	return b.String()
}

// guidedPriority is the fixed priority for tickets opened from the guided
// flow: technical and service issues run hot, everything else is default.
func guidedPriority(category string) domain.Priority {
	if category == "technical" || category == "service" {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}

// subjectFrom derives a ticket subject from the description: the first 50
// characters, with an ellipsis when truncated.
func subjectFrom(description string) string {
	const maxSubject = 50
	if len(description) <= maxSubject {
		return description
	}
	return description[:maxSubject] + "..."
}

// mentionsComplaint reports whether free text sounds like a complaint even
// when the upstream did not suggest a ticket.
func mentionsComplaint(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "complaint") ||
		strings.Contains(lower, "issue") ||
		strings.Contains(lower, "problem")
}
