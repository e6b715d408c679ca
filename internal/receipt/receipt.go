// Package receipt assembles and persists signed audit receipts for
// governed tool invocations. A receipt is created exactly once per
// invocation and is append-only thereafter: nothing in this package (or
// anywhere else in the core) mutates a persisted receipt. Lifecycle ends
// only through the retention sweeper.
package receipt

import (
	"fmt"
	"time"

	"github.com/attestor-io/attestor/internal/classifier"
)

// Namespace is where receipts live in the mediated store, keyed by
// receipt ID. Field names below are stable — downstream export consumers
// depend on them.
const Namespace = "receipts"

// PerformanceCounters capture the measurable cost of one execution.
type PerformanceCounters struct {
	DurationMS         int64 `json:"duration_ms"`
	APICalls           int   `json:"api_calls"`
	DataProcessedBytes int   `json:"data_processed_bytes"`
}

// ErrorDetail describes an execution failure in actionable terms.
type ErrorDetail struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

// ExecutionMetadata records how one tool invocation actually ran. Supplied
// by the caller, or synthesized by the builder when absent.
type ExecutionMetadata struct {
	ExecutionID   string              `json:"execution_id"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       time.Time           `json:"end_time"`
	ResourcesUsed []string            `json:"resources_used"`
	Performance   PerformanceCounters `json:"performance"`
	Error         *ErrorDetail        `json:"error,omitempty"`
}

// BusinessImpact estimates the blast radius of an action.
type BusinessImpact struct {
	CustomerAffected bool     `json:"customer_affected"`
	RevenueImpact    float64  `json:"revenue_impact"`
	DataModified     bool     `json:"data_modified"`
	SystemsAffected  []string `json:"systems_affected"`
}

// Receipt is the immutable audit record of one governed tool invocation.
// Every receipt traces to exactly one descriptor and one execution.
type Receipt struct {
	ID                     string                      `json:"id"`
	AgentID                string                      `json:"agent_id"`
	Timestamp              time.Time                   `json:"timestamp"`
	ToolName               string                      `json:"tool_name"`
	ActionType             string                      `json:"action_type"`
	ToolCategory           string                      `json:"tool_category"`
	RiskLevel              int                         `json:"risk_level"`
	DataClassification     string                      `json:"data_classification"`
	ComplianceRequirements []string                    `json:"compliance_requirements,omitempty"`
	ComplianceStatus       classifier.ComplianceStatus `json:"compliance_status"`
	UserIntent             string                      `json:"user_intent,omitempty"`
	ExpectedOutcome        string                      `json:"expected_outcome,omitempty"`
	Parameters             map[string]interface{}      `json:"parameters,omitempty"` // redacted before assembly
	BusinessContext        classifier.BusinessContext  `json:"business_context"`
	Execution              ExecutionMetadata           `json:"execution"`
	BusinessImpact         BusinessImpact              `json:"business_impact"`
	RelatedReceipts        []string                    `json:"related_receipts"`
	Signature              string                      `json:"signature"`
}

// PersistenceError reports a receipt that was built and signed but could
// not be durably stored. It carries the constructed Receipt so the caller
// can retry or log it without reclassifying.
type PersistenceError struct {
	Receipt *Receipt
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting receipt %s: %v", e.Receipt.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
