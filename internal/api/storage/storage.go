package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/ubernicholi/bravo-bot/internal/api/domain"
	"github.com/ubernicholi/bravo-bot/internal/api/model"
)

// Storage tracks generation tasks in memory. Persisting task history is a
// deliberate non-feature; everything lives and dies with the process.
type Storage struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
}

// NewStorage creates an empty task store.
func NewStorage() *Storage {
	return &Storage{
		tasks: make(map[string]*model.Task),
	}
}

// CreateTask registers a new pending task.
func (s *Storage) CreateTask(task *model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.Status = domain.TaskStatusPending
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	s.tasks[task.TaskID] = task
}

// GetTask returns a snapshot of one task.
func (s *Storage) GetTask(taskID string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	copied := *task
	return &copied, nil
}

// MarkRunning transitions a task to RUNNING.
func (s *Storage) MarkRunning(taskID string) error {
	return s.update(taskID, func(task *model.Task) {
		task.Status = domain.TaskStatusRunning
	})
}

// MarkCompleted stores the produced artifacts and transitions to COMPLETED.
func (s *Storage) MarkCompleted(taskID, contentType string, artifacts [][]byte) error {
	return s.update(taskID, func(task *model.Task) {
		task.Status = domain.TaskStatusCompleted
		task.ContentType = contentType
		task.Artifacts = artifacts
	})
}

// MarkFailed records the failure message and transitions to FAILED.
func (s *Storage) MarkFailed(taskID, errMsg string) error {
	return s.update(taskID, func(task *model.Task) {
		task.Status = domain.TaskStatusFailed
		task.Error = errMsg
	})
}

// ListTasks returns snapshots of the most recent tasks, newest first.
func (s *Storage) ListTasks(limit int) []*model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		copied := *task
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Storage) update(taskID string, apply func(task *model.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return domain.ErrTaskNotFound
	}

	apply(task)
	task.UpdatedAt = time.Now()
	return nil
}
