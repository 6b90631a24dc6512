// Package assign ranks support agents for ticket assignment.
package assign

import (
	"sort"

	"github.com/reclamo/reclamo/internal/domain"
)

// FallbackAssignee is returned whenever no qualified agent can be determined,
// including when the roster fetch itself failed.
const FallbackAssignee = "support-team"

// Rank picks an assignee id for a classified complaint from a freshly fetched
// roster. Agents qualify by expertise (category match or the "all" wildcard);
// qualified agents are ordered available-first, then by ascending workload.
// Urgent complaints prefer agents with expertise level 4 or above, falling
// back to the full ordering when no such expert qualifies.
func Rank(category domain.Category, priority domain.Priority, agents []domain.Agent) string {
	var qualified []domain.Agent
	for _, a := range agents {
		if a.HasExpertise(category) {
			qualified = append(qualified, a)
		}
	}
	if len(qualified) == 0 {
		return FallbackAssignee
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		if qualified[i].Available != qualified[j].Available {
			return qualified[i].Available
		}
		return qualified[i].CurrentWorkload < qualified[j].CurrentWorkload
	})

	if priority == domain.PriorityUrgent {
		for _, a := range qualified {
			if a.ExpertiseLevel >= 4 {
				return a.ID
			}
		}
	}

	return qualified[0].ID
}
