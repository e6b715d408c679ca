package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/attestor-io/attestor/internal/classifier"
	attotel "github.com/attestor-io/attestor/internal/otel"
	"github.com/attestor-io/attestor/internal/resource"
)

var tracer = attotel.Tracer("github.com/attestor-io/attestor/internal/receipt")

// Builder assembles, signs, and persists receipts. One builder serves all
// agents; it is safe for concurrent use because it holds no per-receipt
// state.
type Builder struct {
	mediator        *resource.Mediator
	signer          *Signer
	linkage         LinkageStrategy
	mapper          *classifier.Mapper
	scaleFactor     float64
	defaultDuration time.Duration

	now func() time.Time
}

// BuilderOptions configure receipt assembly. Zero values fall back to the
// package defaults (scale factor 1000, duration 1s, no linkage).
type BuilderOptions struct {
	Linkage           LinkageStrategy
	Mapper            *classifier.Mapper
	RevenueScale      float64
	DefaultDurationMS int64
}

const (
	defaultRevenueScale    = 1000.0
	defaultDurationDefault = 1000 * time.Millisecond
)

// NewBuilder creates a receipt builder writing through the given mediator.
func NewBuilder(mediator *resource.Mediator, signer *Signer, opts BuilderOptions) *Builder {
	b := &Builder{
		mediator:        mediator,
		signer:          signer,
		linkage:         opts.Linkage,
		mapper:          opts.Mapper,
		scaleFactor:     opts.RevenueScale,
		defaultDuration: time.Duration(opts.DefaultDurationMS) * time.Millisecond,
		now:             time.Now,
	}
	if b.linkage == nil {
		b.linkage = NoLinkage{}
	}
	if b.scaleFactor == 0 {
		b.scaleFactor = defaultRevenueScale
	}
	if b.defaultDuration == 0 {
		b.defaultDuration = defaultDurationDefault
	}
	return b
}

// Build assembles a signed receipt for one tool invocation and persists it.
// meta may be nil, in which case execution metadata is synthesized from the
// execution result. A storage failure returns (nil, *PersistenceError)
// carrying the fully built receipt so the caller can retry or log it.
func (b *Builder) Build(ctx context.Context, agentID string, d classifier.ToolActionDescriptor, execResult interface{}, meta *ExecutionMetadata) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "receipt.build",
		trace.WithAttributes(
			attribute.String("agent_id", agentID),
			attribute.String("tool_name", d.ToolName),
			attribute.String("action_type", d.ActionType),
		))
	defer span.End()

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	if b.mapper != nil {
		d.ComplianceRequirements = b.mapper.Normalize(d.ComplianceRequirements)
	}

	now := b.now().UTC()
	execution := b.resolveExecution(d, execResult, meta, now)

	related, err := b.linkage.Related(ctx, agentID, d)
	if err != nil {
		// Linkage is advisory; a broken scan never blocks the receipt.
		log.Warn().Err(err).Str("agent_id", agentID).Msg("receipt_linkage_failed")
		related = nil
	}
	if related == nil {
		related = []string{}
	}

	r := &Receipt{
		ID:                     "rcp_" + uuid.New().String()[:12],
		AgentID:                agentID,
		Timestamp:              now,
		ToolName:               d.ToolName,
		ActionType:             d.ActionType,
		ToolCategory:           d.ToolCategory,
		RiskLevel:              d.RiskLevel,
		DataClassification:     d.DataClassification,
		ComplianceRequirements: d.ComplianceRequirements,
		ComplianceStatus:       classifier.Classify(d),
		UserIntent:             d.UserIntent,
		ExpectedOutcome:        DescribeOutcome(d),
		Parameters:             classifier.RedactParameters(d.Parameters),
		BusinessContext:        d.BusinessContext,
		Execution:              execution,
		BusinessImpact:         ComputeImpact(d, b.scaleFactor),
		RelatedReceipts:        related,
	}

	if err := b.sign(r); err != nil {
		return nil, fmt.Errorf("signing receipt %s: %w", r.ID, err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding receipt %s: %w", r.ID, err)
	}
	if err := b.mediator.Set(ctx, Namespace, r.ID, data, resource.SetOptions{}); err != nil {
		persistFailures.Add(ctx, 1)
		return nil, &PersistenceError{Receipt: r, Err: err}
	}

	receiptsTotal.Add(ctx, 1)
	span.SetAttributes(attribute.String("receipt_id", r.ID))
	log.Info().
		Str("receipt_id", r.ID).
		Str("agent_id", agentID).
		Str("tool_name", d.ToolName).
		Int("risk_level", d.RiskLevel).
		Msg("receipt_built")
	return r, nil
}

// resolveExecution returns caller-supplied metadata as-is, or synthesizes
// a record from the execution result when the caller has none.
func (b *Builder) resolveExecution(d classifier.ToolActionDescriptor, execResult interface{}, meta *ExecutionMetadata, now time.Time) ExecutionMetadata {
	if meta != nil {
		return *meta
	}

	processed := 0
	if execResult != nil {
		if data, err := json.Marshal(execResult); err == nil {
			processed = len(data)
		}
	}
	return ExecutionMetadata{
		ExecutionID:   "exec_" + uuid.New().String()[:12],
		StartTime:     now.Add(-b.defaultDuration),
		EndTime:       now,
		ResourcesUsed: []string{d.ToolName, "classification-engine"},
		Performance: PerformanceCounters{
			DurationMS:         b.defaultDuration.Milliseconds(),
			APICalls:           1,
			DataProcessedBytes: processed,
		},
	}
}

// sign computes the signature over the receipt's canonical encoding with
// the signature field empty, then stores it on the receipt.
func (b *Builder) sign(r *Receipt) error {
	data, err := signingPayload(r)
	if err != nil {
		return err
	}
	sig, err := b.signer.Sign(data)
	if err != nil {
		return err
	}
	r.Signature = sig
	return nil
}

// signingPayload is the canonical byte form a receipt is signed over: its
// JSON encoding with Signature blank.
func signingPayload(r *Receipt) ([]byte, error) {
	clone := *r
	clone.Signature = ""
	return json.Marshal(&clone)
}

// VerifyReceipt checks a receipt's signature against the given signer.
func VerifyReceipt(signer *Signer, r *Receipt) (bool, error) {
	data, err := signingPayload(r)
	if err != nil {
		return false, err
	}
	return signer.Verify(data, r.Signature), nil
}
