// Package scheduler implements the periodic task runner.
//
// Tasks are registered once at startup with an interval, daily, or one-shot
// trigger. A poll loop launches due tasks concurrently (never two executions
// of the same task at once), records bounded execution history, applies
// exponential backoff on failure, and permanently disables a task once its
// failure threshold is exceeded. Job panics and errors stop at the execution
// wrapper; they never take down the runner or sibling tasks.
package scheduler
