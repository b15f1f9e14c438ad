package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a history record does not exist.
var ErrNotFound = errors.New("execution not found")

// Execution status values.
const (
	StatusCompleted = "completed" // exit code 0
	StatusFailed    = "failed"    // non-zero exit code
	StatusTimeout   = "timeout"
	StatusError     = "error" // the command could not be built or started
)

// Execution represents a stored execution record.
type Execution struct {
	ID          string     `json:"id" db:"id"`
	Filename    string     `json:"filename" db:"filename"`
	Extension   string     `json:"extension" db:"extension"`
	Action      string     `json:"action" db:"action"`
	Location    string     `json:"location" db:"location"`
	Command     string     `json:"command" db:"command"`
	ExitCode    int        `json:"exitCode" db:"exit_code"`
	Output      string     `json:"output,omitempty" db:"output"`
	Truncated   bool       `json:"truncated" db:"truncated"`
	Status      string     `json:"status" db:"status"`
	DurationMS  int64      `json:"durationMs" db:"duration_ms"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

// ExecutionFilter provides criteria for querying executions.
type ExecutionFilter struct {
	Extension string
	Status    string
	Limit     int
	Offset    int
}
