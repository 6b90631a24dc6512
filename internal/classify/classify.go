// Package classify maps free-text complaints onto categories and priority
// tiers using weighted keyword tables. Both functions are pure and total:
// any string, including empty and non-ASCII text, yields a usable label.
package classify

import (
	"strings"

	"github.com/reclamo/reclamo/internal/domain"
)

// Classify returns the category whose keyword table has the strictly highest
// number of distinct matches in text. Ties keep the earlier table entry.
// Zero matches yield domain.CategoryOther.
func Classify(text string) domain.Category {
	lower := strings.ToLower(text)

	best := domain.CategoryOther
	bestCount := 0
	for _, entry := range categoryTable {
		count := countMatches(lower, entry.keywords)
		if count > bestCount {
			bestCount = count
			best = entry.category
		}
	}
	return best
}

// ScorePriority returns the tier with the highest weighted keyword score.
// The scan order (urgent, high, medium, low) combined with the
// strictly-greater comparison breaks ties toward the more severe tier.
// Zero evidence yields domain.PriorityMedium.
func ScorePriority(text string) domain.Priority {
	lower := strings.ToLower(text)

	best := domain.PriorityMedium
	bestScore := 0.0
	for _, entry := range priorityTable {
		score := float64(countMatches(lower, entry.keywords)) * entry.weight
		if score > bestScore {
			bestScore = score
			best = entry.priority
		}
	}
	return best
}

// countMatches counts how many keywords occur in lower as substrings.
// Repeated occurrences of the same keyword count once.
func countMatches(lower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}
