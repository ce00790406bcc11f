package scheduler

import (
	"context"
	"errors"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskRunning  = errors.New("task already running")
	ErrNotStarted   = errors.New("scheduler not started")
)

// TaskStore persists tasks and their run history. Implementations return
// copies: mutating a returned task has no effect until Update.
type TaskStore interface {
	Create(task *Task) error
	Get(id string) (*Task, error)
	GetAll() ([]*Task, error)
	// GetDue returns the active tasks whose next run has passed.
	GetDue() ([]*Task, error)
	Update(task *Task) error
	// Delete removes the task together with its runs.
	Delete(id string) error
	LogRun(run *TaskRun) error
	// GetRuns returns at most limit runs, newest first.
	GetRuns(taskID string, limit int) ([]*TaskRun, error)
	Close() error
}

// Executor answers a prompt, usually through the supervisor.
type Executor interface {
	Ask(ctx context.Context, prompt string) (string, error)
}
