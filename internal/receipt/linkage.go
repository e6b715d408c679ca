package receipt

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/attestor-io/attestor/internal/classifier"
	"github.com/attestor-io/attestor/internal/resource"
)

// LinkageStrategy decides which prior receipts a new receipt relates to.
// Strategies must be best-effort: a linkage failure never blocks receipt
// creation, the builder records an empty relation list instead.
type LinkageStrategy interface {
	Related(ctx context.Context, agentID string, d classifier.ToolActionDescriptor) ([]string, error)
}

// NoLinkage records no relations. This is the default: relation discovery
// costs a namespace scan per receipt, which high-volume deployments opt
// out of.
type NoLinkage struct{}

func (NoLinkage) Related(context.Context, string, classifier.ToolActionDescriptor) ([]string, error) {
	return nil, nil
}

// ContextLinkage relates receipts sharing the same agent and business
// context (department plus use case). It scans the receipts namespace, so
// it is only suitable where receipt volume is bounded by retention.
type ContextLinkage struct {
	Mediator *resource.Mediator
	Limit    int // max relations per receipt; 0 means defaultLinkageLimit
}

const defaultLinkageLimit = 16

func (c *ContextLinkage) Related(ctx context.Context, agentID string, d classifier.ToolActionDescriptor) ([]string, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = defaultLinkageLimit
	}

	keys, err := c.Mediator.Keys(ctx, Namespace)
	if err != nil {
		return nil, err
	}

	var related []string
	for _, key := range keys {
		if len(related) >= limit {
			break
		}
		data, ok, err := c.Mediator.Get(ctx, Namespace, key)
		if err != nil || !ok {
			continue
		}
		var prior Receipt
		if err := json.Unmarshal(data, &prior); err != nil {
			log.Debug().Str("receipt_id", key).Msg("linkage_skip_unreadable")
			continue
		}
		if prior.AgentID != agentID {
			continue
		}
		if prior.BusinessContext.Department == d.BusinessContext.Department &&
			prior.BusinessContext.UseCase == d.BusinessContext.UseCase {
			related = append(related, prior.ID)
		}
	}
	return related, nil
}
