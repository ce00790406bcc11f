package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// MaxRunsPerTask is the number of runs kept in the history of each task.
const MaxRunsPerTask = 100

// JSONStore keeps tasks and their run history in a single JSON file that is
// rewritten on every change. It suits the handful of health checks a
// network team schedules, not thousands of tasks.
type JSONStore struct {
	path string

	mu    sync.RWMutex
	tasks map[string]*Task
	runs  map[string][]*TaskRun
}

type storeFile struct {
	Tasks []*Task               `json:"tasks"`
	Runs  map[string][]*TaskRun `json:"runs"`
}

// NewJSONStore opens the store at path, creating the file and its
// directory when missing.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path:  path,
		tasks: map[string]*Task{},
		runs:  map[string][]*TaskRun{},
	}

	err := s.load()
	switch {
	case os.IsNotExist(err):
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("creating task store %s: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("loading task store %s: %w", path, err)
	}
	return s, nil
}

func (s *JSONStore) Create(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}
	s.tasks[task.ID] = task.clone()
	return s.save()
}

func (s *JSONStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task.clone(), nil
}

// GetAll returns every task, oldest first.
func (s *JSONStore) GetAll() ([]*Task, error) {
	return s.filter(func(*Task) bool { return true }), nil
}

func (s *JSONStore) GetDue() ([]*Task, error) {
	return s.filter((*Task).IsDue), nil
}

func (s *JSONStore) filter(keep func(*Task) bool) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if keep(task) {
			out = append(out, task.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Update replaces a stored task and stamps UpdatedAt on both copies.
func (s *JSONStore) Update(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, task.ID)
	}
	task.UpdatedAt = time.Now()
	s.tasks[task.ID] = task.clone()
	return s.save()
}

func (s *JSONStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	delete(s.runs, id)
	return s.save()
}

// LogRun appends a run to the history of its task, dropping the oldest
// beyond MaxRunsPerTask. Runs of a task deleted meanwhile are discarded.
func (s *JSONStore) LogRun(run *TaskRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[run.TaskID]; !ok {
		return nil
	}
	runs := append(s.runs[run.TaskID], run)
	if len(runs) > MaxRunsPerTask {
		runs = append([]*TaskRun(nil), runs[len(runs)-MaxRunsPerTask:]...)
	}
	s.runs[run.TaskID] = runs
	return s.save()
}

// GetRuns returns up to limit runs of the task, newest first.
func (s *JSONStore) GetRuns(taskID string, limit int) ([]*TaskRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.runs[taskID]
	if limit <= 0 {
		return []*TaskRun{}, nil
	}
	out := make([]*TaskRun, 0, min(limit, len(history)))
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		r := *history[i]
		out = append(out, &r)
	}
	return out, nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	var f storeFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	for _, task := range f.Tasks {
		s.tasks[task.ID] = task
	}
	for id, runs := range f.Runs {
		if _, ok := s.tasks[id]; ok {
			s.runs[id] = runs
		}
	}
	return nil
}

// save writes a temporary file and renames it over the store, so a crash
// never leaves a truncated file behind. Callers hold the write lock.
func (s *JSONStore) save() error {
	f := storeFile{
		Tasks: make([]*Task, 0, len(s.tasks)),
		Runs:  s.runs,
	}
	for _, task := range s.tasks {
		f.Tasks = append(f.Tasks, task)
	}
	sort.Slice(f.Tasks, func(i, j int) bool { return f.Tasks[i].CreatedAt.Before(f.Tasks[j].CreatedAt) })

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding task store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
