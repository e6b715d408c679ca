package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/attestor-io/attestor/internal/resource"
)

// Store is the read side of the receipt namespace, used by the audit CLI
// and the retention sweeper. Writes go only through the Builder.
type Store struct {
	mediator *resource.Mediator
}

// NewStore wraps a mediator for receipt reads.
func NewStore(mediator *resource.Mediator) *Store {
	return &Store{mediator: mediator}
}

// Get loads one receipt by ID.
func (s *Store) Get(ctx context.Context, id string) (*Receipt, error) {
	data, ok, err := s.mediator.Get(ctx, Namespace, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("receipt %s not found", id)
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding receipt %s: %w", id, err)
	}
	return &r, nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	AgentID  string
	ToolName string
	Limit    int
}

// List loads receipts matching the filter, newest first. Unreadable
// entries are skipped rather than failing the whole listing.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Receipt, error) {
	keys, err := s.mediator.Keys(ctx, Namespace)
	if err != nil {
		return nil, err
	}

	var receipts []*Receipt
	for _, key := range keys {
		data, ok, err := s.mediator.Get(ctx, Namespace, key)
		if err != nil || !ok {
			continue
		}
		var r Receipt
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if filter.AgentID != "" && r.AgentID != filter.AgentID {
			continue
		}
		if filter.ToolName != "" && r.ToolName != filter.ToolName {
			continue
		}
		receipts = append(receipts, &r)
	}

	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].Timestamp.After(receipts[j].Timestamp)
	})
	if filter.Limit > 0 && len(receipts) > filter.Limit {
		receipts = receipts[:filter.Limit]
	}
	return receipts, nil
}

// Verify loads a receipt and checks its signature.
func (s *Store) Verify(ctx context.Context, signer *Signer, id string) (bool, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return VerifyReceipt(signer, r)
}
