package classifier

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// descriptorSchema validates descriptor documents loaded from disk by the
// CLI. The in-process Classify path never validates — it is total over its
// declared input domain — but files written by hand deserve real errors.
const descriptorSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tool_name", "action_type", "risk_level", "business_context"],
  "properties": {
    "tool_name": {"type": "string", "minLength": 1},
    "action_type": {"type": "string", "minLength": 1},
    "parameters": {"type": "object"},
    "user_intent": {"type": "string"},
    "expected_outcome": {"type": "string"},
    "tool_category": {"type": "string"},
    "risk_level": {"type": "integer", "minimum": 1, "maximum": 10},
    "compliance_requirements": {
      "type": "array",
      "items": {"type": "string"}
    },
    "data_classification": {"type": "string"},
    "business_context": {
      "type": "object",
      "required": ["business_value"],
      "properties": {
        "department": {"type": "string"},
        "use_case": {"type": "string"},
        "customer_impact": {"type": "string"},
        "data_classification": {"type": "string"},
        "regulatory_scope": {"type": "string"},
        "business_value": {"type": "number", "minimum": 0, "maximum": 1}
      }
    }
  }
}`

// ValidateDescriptorJSON checks a raw descriptor document against the
// schema, returning a single error aggregating every violation.
func ValidateDescriptorJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(descriptorSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validating descriptor: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msg := "invalid descriptor:"
	for _, desc := range result.Errors() {
		msg += fmt.Sprintf("\n  - %s", desc)
	}
	return fmt.Errorf("%s", msg)
}
