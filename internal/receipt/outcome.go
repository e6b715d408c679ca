package receipt

import (
	"fmt"
	"strings"

	"github.com/attestor-io/attestor/internal/classifier"
)

// ActionTag is the enumerated classification of an action type, used to
// key the outcome-description table. Keying on a closed tag set (rather
// than dispatching on free-form strings) keeps the mapping
// exhaustive-checkable.
type ActionTag int

const (
	TagOther ActionTag = iota
	TagCreate
	TagUpdate
	TagDelete
	TagRead
	TagSearch
	TagSend
)

// String returns the tag name for logs and tests.
func (t ActionTag) String() string {
	switch t {
	case TagCreate:
		return "create"
	case TagUpdate:
		return "update"
	case TagDelete:
		return "delete"
	case TagRead:
		return "read"
	case TagSearch:
		return "search"
	case TagSend:
		return "send"
	default:
		return "other"
	}
}

// TagForAction classifies an action type by keyword. First match wins, in
// mutation-first order so "create_or_update" tags as create.
func TagForAction(actionType string) ActionTag {
	lower := strings.ToLower(actionType)
	switch {
	case strings.Contains(lower, "create"):
		return TagCreate
	case strings.Contains(lower, "update"):
		return TagUpdate
	case strings.Contains(lower, "delete"):
		return TagDelete
	case strings.Contains(lower, "send"):
		return TagSend
	case strings.Contains(lower, "search"), strings.Contains(lower, "query"):
		return TagSearch
	case strings.Contains(lower, "get"), strings.Contains(lower, "read"), strings.Contains(lower, "list"):
		return TagRead
	default:
		return TagOther
	}
}

// outcomeTable maps each tag to a pure description producer.
var outcomeTable = map[ActionTag]func(d classifier.ToolActionDescriptor) string{
	TagCreate: func(d classifier.ToolActionDescriptor) string {
		return fmt.Sprintf("new record created in %s", d.ToolName)
	},
	TagUpdate: func(d classifier.ToolActionDescriptor) string {
		return fmt.Sprintf("existing record modified in %s", d.ToolName)
	},
	TagDelete: func(d classifier.ToolActionDescriptor) string {
		return fmt.Sprintf("record removed from %s", d.ToolName)
	},
	TagRead: func(d classifier.ToolActionDescriptor) string {
		return fmt.Sprintf("data read from %s", d.ToolName)
	},
	TagSearch: func(d classifier.ToolActionDescriptor) string {
		return fmt.Sprintf("records matched in %s", d.ToolName)
	},
	TagSend: func(d classifier.ToolActionDescriptor) string {
		return fmt.Sprintf("message dispatched via %s", d.ToolName)
	},
	TagOther: func(d classifier.ToolActionDescriptor) string {
		return fmt.Sprintf("%s performed by %s", d.ActionType, d.ToolName)
	},
}

// DescribeOutcome returns the expected-outcome text for a descriptor. The
// caller's own ExpectedOutcome wins when set; the table provides the
// fallback.
func DescribeOutcome(d classifier.ToolActionDescriptor) string {
	if d.ExpectedOutcome != "" {
		return d.ExpectedOutcome
	}
	return outcomeTable[TagForAction(d.ActionType)](d)
}
