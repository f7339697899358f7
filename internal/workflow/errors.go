package workflow

import "fmt"

// MalformedPayloadError records a workflow whose draft could not be parsed.
// It is attached to the Result, never returned.
type MalformedPayloadError struct {
	WorkflowID string
	Cause      error
}

// Error implements the error interface.
func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("工作流 %s 的步骤数据无法解析: %v", e.WorkflowID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *MalformedPayloadError) Unwrap() error {
	return e.Cause
}

// NewMalformedPayloadError creates a new MalformedPayloadError.
func NewMalformedPayloadError(workflowID string, cause error) *MalformedPayloadError {
	return &MalformedPayloadError{WorkflowID: workflowID, Cause: cause}
}
