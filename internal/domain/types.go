// Package domain provides the core types shared across the complaint assistant.
package domain

import "time"

// Category is a complaint classification label produced by the keyword classifier.
type Category string

const (
	CategoryHardware Category = "hardware"
	CategorySoftware Category = "software"
	CategoryNetwork  Category = "network"
	CategoryService  Category = "service"
	CategoryBilling  Category = "billing"

	// CategoryOther is the zero-evidence fallback.
	CategoryOther Category = "other"
)

// Priority is a triage tier assigned to a complaint.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Agent is a support-staff record as returned by the upstream roster endpoint.
// The roster is fetched fresh for every assignment decision and never cached.
type Agent struct {
	ID              string   `json:"id"`
	Expertise       []string `json:"expertise"`
	ExpertiseLevel  int      `json:"expertiseLevel"`
	Available       bool     `json:"available"`
	CurrentWorkload int      `json:"currentWorkload"`
}

// HasExpertise reports whether the agent covers the given category,
// either directly or through the "all" wildcard.
func (a Agent) HasExpertise(category Category) bool {
	for _, e := range a.Expertise {
		if e == string(category) || e == "all" {
			return true
		}
	}
	return false
}

// DetectedObject is a single label from the upstream object-detection relay.
type DetectedObject struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ComplaintDraft is the in-progress complaint a conversation is composing.
// It is mutated as classification runs and discarded once the ticket is created.
type ComplaintDraft struct {
	Category        Category
	Subcategory     string
	Priority        Priority
	ImageRef        string
	DetectedObjects []DetectedObject
}

// TicketStatus is the status snapshot returned by the upstream status endpoint.
type TicketStatus struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Category  string    `json:"category"`
	Priority  Priority  `json:"priority"`
	Assignee  string    `json:"assignee,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
