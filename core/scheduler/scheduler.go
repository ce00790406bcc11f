package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mudler/xlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const DefaultTaskTimeout = 10 * time.Minute

var taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "netagent_scheduled_runs_total",
	Help: "Scheduled task executions by status.",
}, []string{"status"})

// Scheduler manages scheduled tasks
type Scheduler struct {
	store        TaskStore
	executor     Executor
	pollInterval time.Duration
	taskTimeout  time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	runningTasks map[string]context.CancelFunc
}

// NewScheduler creates a new scheduler with the given store and executor
func NewScheduler(store TaskStore, executor Executor, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		store:        store,
		executor:     executor,
		pollInterval: pollInterval,
		taskTimeout:  DefaultTaskTimeout,
		runningTasks: make(map[string]context.CancelFunc),
	}
}

// SetTaskTimeout bounds the duration of a single execution.
func (s *Scheduler) SetTaskTimeout(d time.Duration) {
	if d > 0 {
		s.taskTimeout = d
	}
}

// Start begins the scheduler's polling loop. It stops with ctx or Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.ctx != nil {
		s.mu.Unlock()
		xlog.Warn("Scheduler already started")
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(s.ctx)
	xlog.Info("Task scheduler started", "poll_interval", s.pollInterval)
}

// Stop cancels running tasks and waits for them
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	if err := s.store.Close(); err != nil {
		xlog.Error("Failed to close task store", "error", err.Error())
	}
	xlog.Info("Task scheduler stopped")

	s.mu.Lock()
	s.cancel = nil
	s.ctx = nil
	s.mu.Unlock()
}

// run is the main polling loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processDueTasks(ctx)
		}
	}
}

// processDueTasks checks for and executes due tasks
func (s *Scheduler) processDueTasks(ctx context.Context) {
	tasks, err := s.store.GetDue()
	if err != nil {
		xlog.Error("Failed to get due tasks", "error", err.Error())
		return
	}

	if len(tasks) > 0 {
		xlog.Debug("Processing due tasks", "count", len(tasks))
	}

	for _, task := range tasks {
		if err := s.launch(ctx, task); err != nil {
			xlog.Debug("Task already running, skipping", "task_id", task.ID)
		}
	}
}

// launch starts task in the background unless it is already running.
func (s *Scheduler) launch(ctx context.Context, task *Task) error {
	taskCtx, cancel := context.WithTimeout(ctx, s.taskTimeout)

	s.mu.Lock()
	if _, running := s.runningTasks[task.ID]; running {
		s.mu.Unlock()
		cancel()
		return ErrTaskRunning
	}
	s.runningTasks[task.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.executeTask(taskCtx, cancel, task)
	return nil
}

// TriggerTask runs a task now, whatever its schedule or status. The next
// scheduled run is computed from this one. It fails with ErrNotStarted
// before Start.
func (s *Scheduler) TriggerTask(id string) error {
	task, err := s.store.Get(id)
	if err != nil {
		return err
	}

	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx == nil {
		return ErrNotStarted
	}

	xlog.Info("Task triggered", "task_id", id)
	return s.launch(ctx, task)
}

// IsRunning reports whether an execution of the task is in flight.
func (s *Scheduler) IsRunning(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.runningTasks[id]
	return ok
}

// executeTask runs a single task
func (s *Scheduler) executeTask(ctx context.Context, cancel context.CancelFunc, task *Task) {
	defer s.wg.Done()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.runningTasks, task.ID)
		s.mu.Unlock()
	}()

	xlog.Info("Executing task", "task_id", task.ID, "name", task.Name, "prompt", task.Prompt)

	startTime := time.Now()
	run := NewTaskRun(task.ID)

	result, err := s.executor.Ask(ctx, task.Prompt)

	run.DurationMs = time.Since(startTime).Milliseconds()

	switch {
	case errors.Is(err, context.DeadlineExceeded) || (err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)):
		run.Status = RunStatusTimeout
		run.Error = err.Error()
		xlog.Error("Task timed out", "task_id", task.ID, "timeout", s.taskTimeout)
	case err != nil:
		run.Status = RunStatusError
		run.Error = err.Error()
		xlog.Error("Task execution failed", "task_id", task.ID, "error", err.Error())
	default:
		run.Status = RunStatusSuccess
		run.Result = result
		xlog.Info("Task executed successfully", "task_id", task.ID, "duration_ms", run.DurationMs)
	}
	taskRuns.WithLabelValues(string(run.Status)).Inc()

	if err := s.store.LogRun(run); err != nil {
		xlog.Error("Failed to log task run", "task_id", task.ID, "error", err.Error())
	}

	s.reschedule(task.ID)
}

// reschedule records the run on the stored task, which may have been paused
// or deleted while it was running. One-shot tasks keep their history until
// deleted, but never run again.
func (s *Scheduler) reschedule(id string) {
	task, err := s.store.Get(id)
	if errors.Is(err, ErrTaskNotFound) {
		return
	}
	if err != nil {
		xlog.Error("Failed to reload task", "task_id", id, "error", err.Error())
		return
	}

	now := time.Now()
	task.LastRun = &now
	switch {
	case task.ScheduleType == ScheduleTypeOnce:
		task.Status = TaskStatusPaused
	case task.Status != TaskStatusActive:
	default:
		if err := task.CalculateNextRun(); err != nil {
			xlog.Error("Failed to calculate next run", "task_id", id, "error", err.Error())
			task.Status = TaskStatusPaused
		}
	}

	if err := s.store.Update(task); err != nil && !errors.Is(err, ErrTaskNotFound) {
		xlog.Error("Failed to update task", "task_id", id, "error", err.Error())
	}
}

// CreateTask adds a new task
func (s *Scheduler) CreateTask(task *Task) error {
	return s.store.Create(task)
}

// GetTask retrieves a task by ID
func (s *Scheduler) GetTask(id string) (*Task, error) {
	return s.store.Get(id)
}

// GetAllTasks retrieves all tasks
func (s *Scheduler) GetAllTasks() ([]*Task, error) {
	return s.store.GetAll()
}

// DeleteTask cancels the task if it is running and removes it
func (s *Scheduler) DeleteTask(id string) error {
	_ = s.CancelRunningTask(id)
	return s.store.Delete(id)
}

// GetTaskRuns retrieves execution history for a task
func (s *Scheduler) GetTaskRuns(taskID string, limit int) ([]*TaskRun, error) {
	if _, err := s.store.Get(taskID); err != nil {
		return nil, err
	}
	return s.store.GetRuns(taskID, limit)
}

// PauseTask pauses a task
func (s *Scheduler) PauseTask(id string) error {
	task, err := s.store.Get(id)
	if err != nil {
		return err
	}

	task.Status = TaskStatusPaused
	return s.store.Update(task)
}

// ResumeTask resumes a paused task
func (s *Scheduler) ResumeTask(id string) error {
	task, err := s.store.Get(id)
	if err != nil {
		return err
	}

	task.Status = TaskStatusActive
	if err := task.CalculateNextRun(); err != nil {
		return err
	}

	return s.store.Update(task)
}

// CancelRunningTask cancels a currently running task
func (s *Scheduler) CancelRunningTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, exists := s.runningTasks[id]
	if !exists {
		return fmt.Errorf("task not running: %s", id)
	}

	cancel()
	return nil
}
