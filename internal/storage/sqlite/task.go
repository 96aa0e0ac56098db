package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
)

// TaskRepositoryConfig is the configuration for the SQLite task repository.
type TaskRepositoryConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *TaskRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.TaskRepository"})
	return nil
}

// TaskRepository is a SQLite implementation of storage.TaskRepository.
type TaskRepository struct {
	db     *sql.DB
	logger log.Logger
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(cfg TaskRepositoryConfig) (*TaskRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &TaskRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

const taskColumns = `id, type, args, status, created_at, finished_at, result, message, created_by, auto_delete, store_logs`

// CreateTask stores a new task.
func (r *TaskRepository) CreateTask(ctx context.Context, t model.Task) (string, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if err := t.Validate(); err != nil {
		return "", err
	}

	args, err := model.EncodeTaskArgs(t.Args)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		t.ID,
		t.Type,
		string(args),
		t.Status,
		t.CreatedAt.UnixMilli(),
		nullUnix(t.FinishedAt),
		nullString(t.Result),
		t.Message,
		t.CreatedBy,
		t.Options.AutoDelete,
		t.Options.StoreLogs,
	)
	if err != nil {
		if isUniqueErr(err, "tasks") {
			return "", fmt.Errorf("task %s: %w", t.ID, model.ErrAlreadyExists)
		}
		return "", fmt.Errorf("could not insert task: %w", err)
	}

	r.logger.Debugf("Created task %s (%s)", t.ID, t.Type)
	return t.ID, nil
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return &t, nil
}

// UpdateTask updates the mutable fields of a task.
func (r *TaskRepository) UpdateTask(ctx context.Context, t model.Task) error {
	if !t.Status.Valid() || t.Status == model.TaskStatusRunning {
		return fmt.Errorf("task status %q can't be stored: %w", t.Status, model.ErrNotValid)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE tasks
		SET status = ?, finished_at = ?, result = ?, message = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`
	result, err := tx.ExecContext(ctx, query, t.Status, nullUnix(t.FinishedAt), nullString(t.Result), t.Message, t.ID,
		model.TaskStatusCompleted, model.TaskStatusFailed)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}
	ok, err := checkAffected(result)
	if err != nil {
		return err
	}
	if !ok {
		return r.notUpdatedError(ctx, tx, t.ID)
	}

	if t.Status != model.TaskStatusPaused {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_paused_states WHERE task_id = ?`, t.ID); err != nil {
			return fmt.Errorf("could not delete paused state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Updated task %s to %s", t.ID, t.Status)
	return nil
}

// notUpdatedError explains why a guarded task update matched no row: the task
// is missing or it already finished.
func (r *TaskRepository) notUpdatedError(ctx context.Context, tx *sql.Tx, id string) error {
	var status model.TaskStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return fmt.Errorf("could not query task: %w", err)
	}

	return fmt.Errorf("task %s is %s and can't be modified: %w", id, status, model.ErrNotValid)
}

// DeleteTask deletes a task, its paused state goes with it.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete task: %w", err)
	}

	ok, err := checkAffected(result)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted task %s", id)
	return nil
}

// ListTasks returns the tasks matching the filter, newest first.
func (r *TaskRepository) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	return r.list(ctx, query, args...)
}

// ListPendingOrPausedTasks returns the recoverable tasks, oldest first.
func (r *TaskRepository) ListPendingOrPausedTasks(ctx context.Context) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status IN (?, ?)
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query, model.TaskStatusPending, model.TaskStatusPaused)
}

// ListCompletedAutoDeleteTasks returns completed tasks marked for auto deletion, oldest finished first.
func (r *TaskRepository) ListCompletedAutoDeleteTasks(ctx context.Context) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = ? AND auto_delete = 1
		ORDER BY finished_at ASC, id ASC
	`
	return r.list(ctx, query, model.TaskStatusCompleted)
}

// GetPausedState retrieves the continuation state of a paused task.
func (r *TaskRepository) GetPausedState(ctx context.Context, taskID string) (*model.ContinuationState, error) {
	query := `SELECT task_id, next_step, state FROM task_paused_states WHERE task_id = ?`

	var (
		s    model.ContinuationState
		data string
	)
	err := r.db.QueryRowContext(ctx, query, taskID).Scan(&s.TaskID, &s.NextStep, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("paused state of task %s: %w", taskID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query paused state: %w", err)
	}
	s.Data = []byte(data)

	return &s, nil
}

// SavePausedState upserts the continuation state of a task.
func (r *TaskRepository) SavePausedState(ctx context.Context, s model.ContinuationState) error {
	if err := r.savePausedState(ctx, r.db, s); err != nil {
		return err
	}

	r.logger.Debugf("Saved paused state of task %s at step %d", s.TaskID, s.NextStep)
	return nil
}

// DeletePausedState deletes the continuation state of a task, missing states are ignored.
func (r *TaskRepository) DeletePausedState(ctx context.Context, taskID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM task_paused_states WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("could not delete paused state: %w", err)
	}
	return nil
}

// PauseTask stores the continuation state and sets the task as paused in a single transaction.
func (r *TaskRepository) PauseTask(ctx context.Context, s model.ContinuationState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `UPDATE tasks SET status = ? WHERE id = ? AND status NOT IN (?, ?)`
	result, err := tx.ExecContext(ctx, query, model.TaskStatusPaused, s.TaskID, model.TaskStatusCompleted, model.TaskStatusFailed)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}
	ok, err := checkAffected(result)
	if err != nil {
		return err
	}
	if !ok {
		return r.notUpdatedError(ctx, tx, s.TaskID)
	}

	if err := r.savePausedState(ctx, tx, s); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Paused task %s at step %d", s.TaskID, s.NextStep)
	return nil
}

func (r *TaskRepository) savePausedState(ctx context.Context, e execer, s model.ContinuationState) error {
	if s.TaskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	if s.NextStep < 0 {
		return fmt.Errorf("next step can't be negative: %w", model.ErrNotValid)
	}

	data := string(s.Data)
	if data == "" {
		data = "null"
	}

	query := `
		INSERT INTO task_paused_states (task_id, next_step, state)
		VALUES (?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET next_step = excluded.next_step, state = excluded.state
	`
	if _, err := e.ExecContext(ctx, query, s.TaskID, s.NextStep, data); err != nil {
		if isForeignKeyErr(err) {
			return fmt.Errorf("task %s: %w", s.TaskID, model.ErrNotFound)
		}
		return fmt.Errorf("could not save paused state: %w", err)
	}

	return nil
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

func scanTask(s scanner) (model.Task, error) {
	var (
		t          model.Task
		args       string
		createdAt  int64
		finishedAt sql.NullInt64
		result     sql.NullString
	)

	err := s.Scan(
		&t.ID,
		&t.Type,
		&args,
		&t.Status,
		&createdAt,
		&finishedAt,
		&result,
		&t.Message,
		&t.CreatedBy,
		&t.Options.AutoDelete,
		&t.Options.StoreLogs,
	)
	if err != nil {
		return model.Task{}, err
	}

	// A single undecodable row must not break listings nor recovery.
	t.Args, err = model.DecodeTaskArgs(t.Type, []byte(args))
	if err != nil {
		t.Args = model.UndecodedTaskArgs{Type: t.Type, Data: []byte(args), Reason: err.Error()}
	}

	t.CreatedAt = timeFromUnixMilli(createdAt)
	t.FinishedAt = timePtrFromNull(finishedAt)
	if result.Valid {
		t.Result = []byte(result.String)
	}

	return t, nil
}

func nullString(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}
