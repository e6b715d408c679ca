package classifier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseDescriptor() ToolActionDescriptor {
	return ToolActionDescriptor{
		ToolName:        "stripe",
		ActionType:      "create_charge",
		UserIntent:      "charge customer for invoice",
		ExpectedOutcome: "charge created",
		BusinessContext: BusinessContext{
			Department:     "finance",
			UseCase:        "billing",
			CustomerImpact: "high",
			BusinessValue:  0.8,
		},
		ToolCategory:           "payment",
		RiskLevel:              7,
		ComplianceRequirements: []string{"GDPR", "SOX"},
		DataClassification:     "confidential",
	}
}

func TestClassifyKnownRegimes(t *testing.T) {
	d := baseDescriptor()
	status := Classify(d)

	assert.True(t, status.GDPRCompliant)
	assert.True(t, status.SOX404Compliant)
	assert.False(t, status.PCIDSSCompliant)
	assert.False(t, status.HIPAACompliant)
	assert.Empty(t, status.Additional)
}

func TestClassifyPreservesUnknownRegimes(t *testing.T) {
	d := baseDescriptor()
	d.ComplianceRequirements = []string{"GDPR", "ISO-27001", "NIS2"}

	status := Classify(d)
	assert.True(t, status.GDPRCompliant)
	assert.Equal(t, map[string]bool{"ISO-27001": true, "NIS2": true}, status.Additional)
}

func TestClassifyIsCaseSensitive(t *testing.T) {
	d := baseDescriptor()
	d.ComplianceRequirements = []string{"gdpr"}

	status := Classify(d)
	assert.False(t, status.GDPRCompliant)
	assert.True(t, status.Additional["gdpr"])
}

func TestClassifyEmptyRequirements(t *testing.T) {
	d := baseDescriptor()
	d.ComplianceRequirements = nil

	status := Classify(d)
	assert.Equal(t, ComplianceStatus{}, status)
}

func TestClassifyDeterministic(t *testing.T) {
	d := baseDescriptor()
	d.ComplianceRequirements = []string{"GDPR", "SOX", "ISO-27001", "HIPAA", "PCI-DSS", "NIS2"}

	first := Classify(d)
	second := Classify(d)
	assert.Equal(t, first, second)

	// Byte-identical after serialization (map keys are sorted by
	// encoding/json).
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestClassifyDoesNotMutateDescriptor(t *testing.T) {
	d := baseDescriptor()
	before := make([]string, len(d.ComplianceRequirements))
	copy(before, d.ComplianceRequirements)

	_ = Classify(d)
	assert.Equal(t, before, d.ComplianceRequirements)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ToolActionDescriptor)
		wantErr string
	}{
		{"valid", func(*ToolActionDescriptor) {}, ""},
		{"missing tool name", func(d *ToolActionDescriptor) { d.ToolName = "" }, "tool_name"},
		{"missing action type", func(d *ToolActionDescriptor) { d.ActionType = "" }, "action_type"},
		{"risk too low", func(d *ToolActionDescriptor) { d.RiskLevel = 0 }, "risk_level"},
		{"risk too high", func(d *ToolActionDescriptor) { d.RiskLevel = 11 }, "risk_level"},
		{"business value negative", func(d *ToolActionDescriptor) { d.BusinessContext.BusinessValue = -0.1 }, "business_value"},
		{"business value above one", func(d *ToolActionDescriptor) { d.BusinessContext.BusinessValue = 1.5 }, "business_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := baseDescriptor()
			tt.mutate(&d)
			err := d.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
