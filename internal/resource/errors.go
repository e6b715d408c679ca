package resource

import "fmt"

// StorageOperationError wraps a capability failure with enough context
// (namespace, key, operation) to be actionable. The mediator fires the
// on-error slot and then propagates this to the caller — storage errors
// are never swallowed at this layer.
type StorageOperationError struct {
	Namespace string
	Key       string
	Operation string
	Err       error
}

func (e *StorageOperationError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Operation, e.Namespace, e.Key, e.Err)
}

func (e *StorageOperationError) Unwrap() error {
	return e.Err
}
