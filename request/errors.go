package request

import (
	"fmt"

	"github.com/zero-day-ai/ogm/types"
)

// ErrCodeExecutionFailed marks a statement that failed for a reason the
// backend did not report as a cypher error: a malformed reply, a dropped
// cursor, a driver-level execution fault.
const ErrCodeExecutionFailed types.ErrorCode = "REQUEST_EXECUTION_FAILED"

// CypherError reports a statement the backend rejected. It carries the
// backend's status code and message; by the time it surfaces, the
// responsible transaction has already been rolled back.
type CypherError struct {
	StatusCode string
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *CypherError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cypher statement rejected (%s): %s: %v", e.StatusCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("cypher statement rejected (%s): %s", e.StatusCode, e.Message)
}

// Unwrap returns the backend error, if any.
func (e *CypherError) Unwrap() error { return e.Cause }

// NewCypherError creates a CypherError with the backend status and message.
func NewCypherError(statusCode, message string, cause error) *CypherError {
	return &CypherError{StatusCode: statusCode, Message: message, Cause: cause}
}
