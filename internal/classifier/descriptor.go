// Package classifier maps tool-action descriptors to compliance status.
//
// Classification is a pure function: deterministic, side-effect free, and
// total over its declared input domain, so every path through it is
// trivially unit-testable. Regime identifiers are matched case-sensitively
// against a fixed set of well-known regimes; anything unrecognized is
// preserved verbatim rather than dropped, so downstream consumers never
// lose information.
package classifier

import "fmt"

// Risk level bounds for a tool action.
const (
	MinRiskLevel = 1
	MaxRiskLevel = 10
)

// BusinessContext situates a tool action within the organization.
type BusinessContext struct {
	Department         string  `json:"department"`
	UseCase            string  `json:"use_case"`
	CustomerImpact     string  `json:"customer_impact"` // "low", "medium", "high"
	DataClassification string  `json:"data_classification"`
	RegulatoryScope    string  `json:"regulatory_scope"`
	BusinessValue      float64 `json:"business_value"` // normalized 0–1 score
}

// ToolActionDescriptor describes one governed tool invocation. It is
// constructed by the caller and treated as immutable once passed to the
// classifier or the receipt builder.
type ToolActionDescriptor struct {
	ToolName               string                 `json:"tool_name"`
	ActionType             string                 `json:"action_type"`
	Parameters             map[string]interface{} `json:"parameters,omitempty"`
	UserIntent             string                 `json:"user_intent"`
	ExpectedOutcome        string                 `json:"expected_outcome"`
	BusinessContext        BusinessContext        `json:"business_context"`
	ToolCategory           string                 `json:"tool_category"`
	RiskLevel              int                    `json:"risk_level"` // 1–10
	ComplianceRequirements []string               `json:"compliance_requirements,omitempty"`
	DataClassification     string                 `json:"data_classification"`
}

// Validate checks the descriptor's structural invariants. Classification
// itself never fails; validation is for callers constructing descriptors
// from untrusted input.
func (d *ToolActionDescriptor) Validate() error {
	if d.ToolName == "" {
		return fmt.Errorf("tool_name is required")
	}
	if d.ActionType == "" {
		return fmt.Errorf("action_type is required")
	}
	if d.RiskLevel < MinRiskLevel || d.RiskLevel > MaxRiskLevel {
		return fmt.Errorf("risk_level must be in [%d,%d] (got %d)", MinRiskLevel, MaxRiskLevel, d.RiskLevel)
	}
	if d.BusinessContext.BusinessValue < 0 || d.BusinessContext.BusinessValue > 1 {
		return fmt.Errorf("business_value must be in [0,1] (got %v)", d.BusinessContext.BusinessValue)
	}
	return nil
}
