package domain

import "errors"

var (
	// ErrConnectionNotFound is returned when a connection ID is not registered.
	// Callers usually treat this as stale information and log rather than fail:
	// a broadcast can race with a disconnect by design.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrUserNotConnected is returned when a user has no live connection.
	ErrUserNotConnected = errors.New("user not connected")

	// ErrTaskNotFound is returned when a task ID is not registered.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskRunning is returned when a manual trigger races with an
	// in-flight execution of the same task.
	ErrTaskRunning = errors.New("task already running")

	// ErrRateLimited is returned when an outbound message exceeds the
	// per-connection send budget. The message is dropped, not queued.
	ErrRateLimited = errors.New("rate limited")

	// ErrShowNotFound is returned when a show ID does not exist.
	ErrShowNotFound = errors.New("show not found")
)
