package classifier

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces secret values in parameter maps.
const RedactedPlaceholder = "[REDACTED]"

// secretKeyPattern matches parameter names that conventionally carry
// credentials. Credentials must never appear in receipts or error
// payloads, so matching errs on the side of redaction.
var secretKeyPattern = regexp.MustCompile(
	`(?i)(password|passwd|secret|token|api[_-]?key|authorization|credential|private[_-]?key|session[_-]?id)`)

// bearerValuePattern catches credential-shaped values under innocuous keys.
var bearerValuePattern = regexp.MustCompile(`^(?i)(bearer|basic)\s+\S+`)

// RedactParameters returns a deep copy of params with secret-looking
// entries replaced by RedactedPlaceholder. Nested maps are handled
// recursively; the input is never mutated.
func RedactParameters(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if secretKeyPattern.MatchString(k) {
			out[k] = RedactedPlaceholder
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if bearerValuePattern.MatchString(strings.TrimSpace(val)) {
			return RedactedPlaceholder
		}
		return val
	case map[string]interface{}:
		return RedactParameters(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
