package receipt

import (
	"strings"

	"github.com/attestor-io/attestor/internal/classifier"
)

// mutationKeywords mark action types that modify data. Matching is by
// substring, not exact match — "update_lead" counts — so callers must keep
// their action-type vocabulary consistent.
var mutationKeywords = []string{"create", "update", "delete"}

// ComputeImpact derives the business-impact estimate from a descriptor.
// revenueImpact is a deterministic, non-negative function of the
// business-value score (score x scaleFactor).
func ComputeImpact(d classifier.ToolActionDescriptor, scaleFactor float64) BusinessImpact {
	return BusinessImpact{
		CustomerAffected: d.BusinessContext.CustomerImpact != "low",
		RevenueImpact:    d.BusinessContext.BusinessValue * scaleFactor,
		DataModified:     IsMutation(d.ActionType),
		SystemsAffected:  []string{d.ToolName},
	}
}

// IsMutation reports whether an action type contains a data-modifying
// keyword.
func IsMutation(actionType string) bool {
	lower := strings.ToLower(actionType)
	for _, kw := range mutationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
