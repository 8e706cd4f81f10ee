package models

import "fmt"

// InvalidInputError marks a bad submission. Not retryable; surfaced to the
// caller.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NotFoundError marks an unknown document, field, or source reference.
type NotFoundError struct {
	Kind string // "document", "field", "source object", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// InvalidStateError marks an operation that is not valid for the document's
// current status.
type InvalidStateError struct {
	Op     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operation %q not valid in status %q", e.Op, e.Status)
}

// StageExecutionError wraps a transient external-service failure during a
// pipeline stage. Retryable with bounded backoff; after exhaustion the
// orchestrator routes the document to review instead of failing the caller.
type StageExecutionError struct {
	Stage string
	Err   error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %q execution failed: %v", e.Stage, e.Err)
}

func (e *StageExecutionError) Unwrap() error { return e.Err }
