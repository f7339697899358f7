package document

import "fmt"

// SyntaxError represents malformed JSON input.
type SyntaxError struct {
	Offset  int    // Byte offset of the failing value (best effort)
	Message string // Error message
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("json syntax error at offset %d: %s: %v", e.Offset, e.Message, e.Cause)
	}
	return fmt.Sprintf("json syntax error at offset %d: %s", e.Offset, e.Message)
}

// Unwrap returns the underlying error.
func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// NewSyntaxError creates a new SyntaxError.
func NewSyntaxError(offset int, message string, cause error) *SyntaxError {
	return &SyntaxError{
		Offset:  offset,
		Message: message,
		Cause:   cause,
	}
}
