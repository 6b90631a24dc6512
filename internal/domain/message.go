package domain

import "time"

// MessageKind tags the variant of a conversation message.
type MessageKind string

const (
	KindWelcome            MessageKind = "welcome"
	KindSubcategoryPrompt  MessageKind = "subcategory_prompt"
	KindProblemSolution    MessageKind = "problem_solution"
	KindTicketForm         MessageKind = "ticket_form"
	KindTicketConfirmation MessageKind = "ticket_confirmation"
	KindAssistantFeatures  MessageKind = "assistant_features"
	KindStatusReport       MessageKind = "status_report"
	KindNotification       MessageKind = "notification"
	KindError              MessageKind = "error"
	KindText               MessageKind = "text"
)

// Message roles. The transcript alternates between the two.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Option is a selectable choice attached to a bot message.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Message is one turn in a conversation transcript. Transcripts are
// append-only; a Message is never mutated after it has been appended.
type Message struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Kind            MessageKind      `json:"kind"`
	Content         string           `json:"content"`
	Options         []Option         `json:"options,omitempty"`
	TicketID        string           `json:"ticketId,omitempty"`
	DetectedObjects []DetectedObject `json:"detectedObjects,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}
