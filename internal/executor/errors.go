package executor

import (
	"errors"
	"fmt"

	"nexus/internal/runtime"
)

// Sentinel errors for typed error checking.
var (
	ErrUnsupportedType = runtime.ErrUnsupported
	ErrExecutionFailed = errors.New("execution failed")
	ErrTimeout         = errors.New("execution timed out")
	ErrInvalidName     = runtime.ErrInvalidName
)

// ExecutionError wraps errors with execution context.
type ExecutionError struct {
	ExecID string
	Op     string // The operation that failed
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.ExecID != "" {
		return fmt.Sprintf("execution %s: %s: %s", e.ExecID, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the error is a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsUnsupported returns true if no language handles the file's extension.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedType)
}
