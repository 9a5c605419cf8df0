package comfy

import "errors"

var (
	// ErrEmptyResult is returned when execution finished but no node
	// declared outputs under the requested media kind. Distinct from
	// transport failures: the backend answered, with nothing.
	ErrEmptyResult = errors.New("execution produced no outputs of the requested kind")

	// ErrExecutionTimeout is returned when no matching completion event
	// arrived within the configured execution timeout.
	ErrExecutionTimeout = errors.New("execution timed out waiting for completion event")
)
