package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of all the storage repositories.
type Repository struct {
	tasks        map[string]model.Task
	pausedStates map[string]model.ContinuationState
	packages     map[string]model.Package
	releases     map[string]model.PackageRelease
	promotions   map[string]model.StablePromotionRequest
	osReleases   map[string]model.OSRelease
	moves        []model.MoveRecord
	mu           sync.RWMutex
	logger       log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		tasks:        make(map[string]model.Task),
		pausedStates: make(map[string]model.ContinuationState),
		packages:     make(map[string]model.Package),
		releases:     make(map[string]model.PackageRelease),
		promotions:   make(map[string]model.StablePromotionRequest),
		osReleases:   make(map[string]model.OSRelease),
		logger:       cfg.Logger,
	}, nil
}

// CreateTask stores a new task.
func (r *Repository) CreateTask(ctx context.Context, t model.Task) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == "" {
		t.ID = ulid.Make().String()
	}
	if err := t.Validate(); err != nil {
		return "", err
	}

	if _, ok := r.tasks[t.ID]; ok {
		return "", fmt.Errorf("task %s: %w", t.ID, model.ErrAlreadyExists)
	}

	// Same precision as the persistent store.
	t.CreatedAt = t.CreatedAt.UTC().Truncate(time.Millisecond)
	r.tasks[t.ID] = t
	r.logger.Debugf("Created task %s (%s)", t.ID, t.Type)

	return t.ID, nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	return &t, nil
}

// UpdateTask updates the mutable fields of a task.
func (r *Repository) UpdateTask(ctx context.Context, t model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !t.Status.Valid() || t.Status == model.TaskStatusRunning {
		return fmt.Errorf("task status %q can't be stored: %w", t.Status, model.ErrNotValid)
	}

	stored, ok := r.tasks[t.ID]
	if !ok {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
	}
	if stored.Status.Finished() {
		return fmt.Errorf("task %s is %s and can't be modified: %w", t.ID, stored.Status, model.ErrNotValid)
	}

	stored.Status = t.Status
	stored.FinishedAt = t.FinishedAt
	stored.Result = t.Result
	stored.Message = t.Message
	r.tasks[t.ID] = stored

	if t.Status != model.TaskStatusPaused {
		delete(r.pausedStates, t.ID)
	}

	r.logger.Debugf("Updated task %s to %s", t.ID, t.Status)
	return nil
}

// DeleteTask deletes a task and its paused state.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	delete(r.tasks, id)
	delete(r.pausedStates, id)
	r.logger.Debugf("Deleted task %s", id)

	return nil
}

// ListTasks returns the tasks matching the filter, newest first.
func (r *Repository) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	tasks := r.filterTasks(func(t model.Task) bool {
		if filter.Status != nil && t.Status != *filter.Status {
			return false
		}
		return filter.Type == "" || t.Type == filter.Type
	})
	slices.Reverse(tasks)

	return tasks, nil
}

// ListPendingOrPausedTasks returns the recoverable tasks, oldest first.
func (r *Repository) ListPendingOrPausedTasks(ctx context.Context) ([]model.Task, error) {
	return r.filterTasks(func(t model.Task) bool {
		return t.Status == model.TaskStatusPending || t.Status == model.TaskStatusPaused
	}), nil
}

// ListCompletedAutoDeleteTasks returns completed tasks marked for auto deletion, oldest finished first.
func (r *Repository) ListCompletedAutoDeleteTasks(ctx context.Context) ([]model.Task, error) {
	tasks := r.filterTasks(func(t model.Task) bool {
		return t.Status == model.TaskStatusCompleted && t.Options.AutoDelete
	})

	slices.SortStableFunc(tasks, func(a, b model.Task) int {
		switch {
		case a.FinishedAt == nil || b.FinishedAt == nil:
			return 0
		case a.FinishedAt.Before(*b.FinishedAt):
			return -1
		case b.FinishedAt.Before(*a.FinishedAt):
			return 1
		}
		return 0
	})

	return tasks, nil
}

// filterTasks returns the matching tasks sorted by creation time and ID.
func (r *Repository) filterTasks(match func(model.Task) bool) []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := []model.Task{}
	for _, t := range r.tasks {
		if match(t) {
			tasks = append(tasks, t)
		}
	}

	slices.SortFunc(tasks, func(a, b model.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return tasks
}

// GetPausedState retrieves the continuation state of a task.
func (r *Repository) GetPausedState(ctx context.Context, taskID string) (*model.ContinuationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.pausedStates[taskID]
	if !ok {
		return nil, fmt.Errorf("paused state of task %s: %w", taskID, model.ErrNotFound)
	}

	return &s, nil
}

// SavePausedState upserts the continuation state of a task.
func (r *Repository) SavePausedState(ctx context.Context, s model.ContinuationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.savePausedState(s)
}

// DeletePausedState deletes the continuation state of a task.
func (r *Repository) DeletePausedState(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pausedStates, taskID)
	return nil
}

// PauseTask stores the continuation state and sets the task as paused.
func (r *Repository) PauseTask(ctx context.Context, s model.ContinuationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[s.TaskID]
	if !ok {
		return fmt.Errorf("task %s: %w", s.TaskID, model.ErrNotFound)
	}
	if t.Status.Finished() {
		return fmt.Errorf("task %s is %s and can't be modified: %w", s.TaskID, t.Status, model.ErrNotValid)
	}

	if err := r.savePausedState(s); err != nil {
		return err
	}
	t.Status = model.TaskStatusPaused
	r.tasks[s.TaskID] = t

	r.logger.Debugf("Paused task %s at step %d", s.TaskID, s.NextStep)
	return nil
}

func (r *Repository) savePausedState(s model.ContinuationState) error {
	if s.TaskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	if s.NextStep < 0 {
		return fmt.Errorf("next step can't be negative: %w", model.ErrNotValid)
	}
	if _, ok := r.tasks[s.TaskID]; !ok {
		return fmt.Errorf("task %s: %w", s.TaskID, model.ErrNotFound)
	}

	s.Data = slices.Clone(s.Data)
	r.pausedStates[s.TaskID] = s

	return nil
}
