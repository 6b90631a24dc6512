package conversation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/reclamo/reclamo/internal/domain"
)

// poll fetches ticket-status updates for a session on a fixed cadence, using
// the token captured when the session started. The loop exits when the
// session's poll context is canceled; a closed session silently drops any
// in-flight batch.
func (m *Manager) poll(ctx context.Context, s *Session) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		updates, err := m.upstream.Updates(ctx)
		if err != nil {
			// Transient by assumption; the next tick retries.
			m.logger.Warn("poll ticket updates",
				slog.String("conversation_id", s.ID),
				slog.String("error", err.Error()))
			continue
		}
		if len(updates) == 0 {
			continue
		}
		s.deliverUpdates(updates)
	}
}

// messagePayload serializes the structured parts of a turn for persistence.
func messagePayload(msg domain.Message) string {
	payload := struct {
		Options         []domain.Option         `json:"options,omitempty"`
		TicketID        string                  `json:"ticketId,omitempty"`
		DetectedObjects []domain.DetectedObject `json:"detectedObjects,omitempty"`
	}{msg.Options, msg.TicketID, msg.DetectedObjects}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(raw)
}
