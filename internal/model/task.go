package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus represents the state of a background task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid returns true if the status is a known one.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusPaused, TaskStatusFailed, TaskStatusCompleted:
		return true
	}
	return false
}

// Finished returns true for the terminal statuses.
func (s TaskStatus) Finished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo returns true if moving from s to next respects
// pending -> running -> (paused -> running)* -> (completed|failed).
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusPaused:
		return next == TaskStatusRunning
	case TaskStatusRunning:
		return next == TaskStatusPaused || next == TaskStatusCompleted || next == TaskStatusFailed
	}
	return false
}

// ExecutionOptions are the per task execution options.
type ExecutionOptions struct {
	// AutoDelete removes the task row once it completes successfully.
	AutoDelete bool
	// StoreLogs enables the dedicated per task log file.
	StoreLogs bool
}

// Task is a persisted background task.
type Task struct {
	ID         string
	Type       string
	Args       TaskArgs
	Status     TaskStatus
	CreatedAt  time.Time
	FinishedAt *time.Time
	Result     json.RawMessage
	Message    string
	CreatedBy  string
	Options    ExecutionOptions
}

// Validate validates the task model.
func (t Task) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("task type is required: %w", ErrNotValid)
	}

	if t.Args == nil {
		return fmt.Errorf("task arguments are required: %w", ErrNotValid)
	}

	if t.Args.TaskType() != t.Type {
		return fmt.Errorf("task arguments for %q used on task type %q: %w", t.Args.TaskType(), t.Type, ErrNotValid)
	}

	if !t.Status.Valid() {
		return fmt.Errorf("task status %q is invalid: %w", t.Status, ErrNotValid)
	}

	if t.Status == TaskStatusRunning {
		return fmt.Errorf("running status can't be persisted: %w", ErrNotValid)
	}

	if t.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required: %w", ErrNotValid)
	}

	return nil
}

// ContinuationState is the resume point of a paused task.
type ContinuationState struct {
	TaskID string
	// NextStep is the index of the step that will be executed on resume.
	NextStep int
	// Data is the serialized run state, opaque to everything except the task type.
	Data json.RawMessage
}

// TaskFilter filters task listings.
type TaskFilter struct {
	Status *TaskStatus
	Type   string
}
