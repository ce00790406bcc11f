package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type TaskStatus string

const (
	TaskStatusActive TaskStatus = "active"
	TaskStatusPaused TaskStatus = "paused"
)

// ScheduleType selects how ScheduleValue is read: a cron expression with
// seconds, an interval in milliseconds, or an RFC3339 timestamp.
type ScheduleType string

const (
	ScheduleTypeCron     ScheduleType = "cron"
	ScheduleTypeInterval ScheduleType = "interval"
	ScheduleTypeOnce     ScheduleType = "once"
)

type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
	RunStatusTimeout RunStatus = "timeout"
)

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Task is a prompt sent to the team on a schedule, e.g. "check the CPU of
// every device and notify me on Telegram".
type Task struct {
	ID            string       `json:"id"`
	Name          string       `json:"name,omitempty"`
	Prompt        string       `json:"prompt"`
	ScheduleType  ScheduleType `json:"schedule_type"`
	ScheduleValue string       `json:"schedule_value"`
	Status        TaskStatus   `json:"status"`
	NextRun       time.Time    `json:"next_run"`
	LastRun       *time.Time   `json:"last_run,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TaskRun is one execution of a task and the supervisor's answer.
type TaskRun struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	RunAt      time.Time `json:"run_at"`
	DurationMs int64     `json:"duration_ms"`
	Status     RunStatus `json:"status"`
	Result     string    `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// NewTask validates the schedule and returns an active task with its first
// run computed.
func NewTask(name, prompt string, scheduleType ScheduleType, scheduleValue string) (*Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	now := time.Now()
	task := &Task{
		ID:            uuid.New().String(),
		Name:          name,
		Prompt:        prompt,
		ScheduleType:  scheduleType,
		ScheduleValue: strings.TrimSpace(scheduleValue),
		Status:        TaskStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := task.CalculateNextRun(); err != nil {
		return nil, err
	}
	return task, nil
}

// CalculateNextRun sets NextRun from the schedule. Intervals count from the
// last run when there is one.
func (t *Task) CalculateNextRun() error {
	from := time.Now()
	if t.ScheduleType == ScheduleTypeInterval && t.LastRun != nil {
		from = *t.LastRun
	}
	next, err := nextRun(t.ScheduleType, t.ScheduleValue, from)
	if err != nil {
		return err
	}
	t.NextRun = next
	return nil
}

func nextRun(kind ScheduleType, value string, from time.Time) (time.Time, error) {
	switch kind {
	case ScheduleTypeCron:
		schedule, err := cronParser.Parse(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
		}
		return schedule.Next(from), nil
	case ScheduleTypeInterval:
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid interval: %w", err)
		}
		if ms <= 0 {
			return time.Time{}, fmt.Errorf("invalid interval: %d must be positive", ms)
		}
		return from.Add(time.Duration(ms) * time.Millisecond), nil
	case ScheduleTypeOnce:
		at, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		return at, nil
	}
	return time.Time{}, fmt.Errorf("unknown schedule type: %q", kind)
}

// IsDue reports whether an active task has reached its next run.
func (t *Task) IsDue() bool {
	return t.Status == TaskStatusActive && !time.Now().Before(t.NextRun)
}

func (t *Task) clone() *Task {
	c := *t
	if t.LastRun != nil {
		last := *t.LastRun
		c.LastRun = &last
	}
	return &c
}

func NewTaskRun(taskID string) *TaskRun {
	return &TaskRun{
		ID:     uuid.New().String(),
		TaskID: taskID,
		RunAt:  time.Now(),
	}
}
