package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status of one task execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Priority tier of a task. Informational: due tasks launch concurrently, the
// tier is carried for inspection and logging.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Job is the unit of work a task executes. It must observe ctx for
// cancellation; returned payloads land in the execution history.
type Job func(ctx context.Context) (any, error)

// task is the runner-owned task record. All mutable fields are guarded by
// the runner's mutex.
type task struct {
	id          string
	name        string
	job         Job
	trigger     Trigger
	priority    Priority
	maxFailures int

	enabled  bool
	running  bool
	failures int
	runCount int
	lastRun  time.Time
	nextRun  time.Time
	hasNext  bool
}

// Result is the ephemeral record of a single execution. Retained in a
// bounded history for inspection; not part of any durability guarantee.
type Result struct {
	ID          uuid.UUID `json:"id"`
	TaskID      string    `json:"task_id"`
	Status      Status    `json:"status"`
	Payload     any       `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
	Duration    float64   `json:"duration_seconds"`
}

// TaskStatus is a point-in-time snapshot of a registered task for the
// inspection API.
type TaskStatus struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Priority    Priority  `json:"priority"`
	Enabled     bool      `json:"enabled"`
	Running     bool      `json:"running"`
	Failures    int       `json:"failure_count"`
	MaxFailures int       `json:"max_failures"`
	RunCount    int       `json:"run_count"`
	LastRun     time.Time `json:"last_run,omitzero"`
	NextRun     time.Time `json:"next_run,omitzero"`
}
