package loader

import "fmt"

// Decode stages reported by DecodeError.
const (
	StageFraming = "framing"
	StageBase64  = "base64"
	StageGzip    = "gzip"
	StageJSON    = "json"
)

// DecodeError represents a failure to unpack one section of a .base export.
type DecodeError struct {
	Section string // Top-level key, e.g. gzipSnapshot
	Stage   string // One of the Stage* constants
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s failed at %s stage: %v", e.Section, e.Stage, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// NewDecodeError creates a new DecodeError.
func NewDecodeError(section, stage string, cause error) *DecodeError {
	return &DecodeError{
		Section: section,
		Stage:   stage,
		Cause:   cause,
	}
}

// SectionMissingError is returned when a required section is absent or empty.
type SectionMissingError struct {
	Section string
}

// Error implements the error interface.
func (e *SectionMissingError) Error() string {
	return fmt.Sprintf("section %s is missing", e.Section)
}

// NewSectionMissingError creates a new SectionMissingError.
func NewSectionMissingError(section string) *SectionMissingError {
	return &SectionMissingError{Section: section}
}
