package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/storage"
	"github.com/slok/tierd/internal/task"
)

//go:generate mockery --case underscore --output schedulermock --outpkg schedulermock --name Enqueuer --structname MockEnqueuer

// Enqueuer enqueues new tasks.
type Enqueuer interface {
	EnqueueTask(ctx context.Context, args model.TaskArgs, meta EnqueueMeta) (string, error)
}

var _ Enqueuer = &Scheduler{}

// ErrTaskVanished is reported when the row of an in-flight task is gone by the
// time its outcome is stored. Only a bug removes tasks that are running.
var ErrTaskVanished = errors.New("task vanished while in flight")

// TaskLogger is the logger of a single task execution.
type TaskLogger interface {
	task.Logger
	Close() error
}

// SchedulerConfig is the configuration for the scheduler.
type SchedulerConfig struct {
	Repository storage.TaskRepository
	Registry   *task.Registry
	Runner     *task.Runner
	// NewTaskLogger returns the logger of a task execution. By default tasks log only on the scheduler logger.
	NewTaskLogger func(t model.Task) TaskLogger
	// Workers is the number of tasks executed concurrently.
	Workers int
	// StopTimeout is how long Run waits for the in-flight tasks to pause on shutdown.
	StopTimeout time.Duration
	Logger      log.Logger
}

func (c *SchedulerConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "scheduler.Scheduler"})

	if c.Runner == nil {
		r, err := task.NewRunner(task.RunnerConfig{Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create runner: %w", err)
		}
		c.Runner = r
	}
	if c.NewTaskLogger == nil {
		logger := c.Logger
		c.NewTaskLogger = func(t model.Task) TaskLogger {
			return processTaskLogger{Logger: logger.WithValues(log.Kv{"task_id": t.ID, "task_type": t.Type})}
		}
	}

	return nil
}

type processTaskLogger struct{ log.Logger }

func (processTaskLogger) Close() error { return nil }

// EnqueueMeta is the metadata of an enqueued task.
type EnqueueMeta struct {
	CreatedBy string
	Options   model.ExecutionOptions
}

// Scheduler persists, queues and executes tasks. Tasks are dispatched in FIFO order
// and a task is never executed twice at the same time in the process.
type Scheduler struct {
	repo          storage.TaskRepository
	registry      *task.Registry
	runner        *task.Runner
	newTaskLogger func(t model.Task) TaskLogger
	workers       int
	stopTimeout   time.Duration
	logger        log.Logger

	mu        sync.Mutex
	running   bool
	stopping  bool
	queue     []string
	scheduled map[string]struct{}
	inflight  map[string]*task.PauseSignal
	wake      chan struct{}
	cancel    context.CancelFunc
	runCtx    context.Context
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	done      chan struct{}
}

// NewScheduler returns a new scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Scheduler{
		repo:          cfg.Repository,
		registry:      cfg.Registry,
		runner:        cfg.Runner,
		newTaskLogger: cfg.NewTaskLogger,
		workers:       cfg.Workers,
		stopTimeout:   cfg.StopTimeout,
		logger:        cfg.Logger,
		scheduled:     map[string]struct{}{},
		inflight:      map[string]*task.PauseSignal{},
	}, nil
}

// Start removes the finished auto delete tasks, schedules the pending and paused
// tasks (oldest first) and starts dispatching.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.registry.Freeze()

	dispatchCtx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.stopping = false
	s.cancel = cancel
	// Tasks are stopped by pausing them, not by cancelling their context.
	s.runCtx = context.WithoutCancel(ctx)
	s.wake = make(chan struct{}, 1)
	s.sem = semaphore.NewWeighted(int64(s.workers))
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.deleteAutoDeleteTasks(ctx); err != nil {
		s.logger.Errorf("Could not clean auto delete tasks: %s", err)
	}

	tasks, err := s.repo.ListPendingOrPausedTasks(ctx)
	if err != nil {
		s.abortStart()
		return fmt.Errorf("could not list recoverable tasks: %w", err)
	}
	for _, t := range tasks {
		s.schedule(t.ID)
	}
	if len(tasks) > 0 {
		s.logger.Infof("Recovered %d tasks", len(tasks))
	}

	go s.dispatch(dispatchCtx)
	s.logger.Infof("Scheduler started with %d workers (task types: %v)", s.workers, s.registry.Names())

	return nil
}

func (s *Scheduler) abortStart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	s.running = false
	s.queue = nil
	s.scheduled = map[string]struct{}{}
	close(s.done)
}

func (s *Scheduler) deleteAutoDeleteTasks(ctx context.Context) error {
	tasks, err := s.repo.ListCompletedAutoDeleteTasks(ctx)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		if err := s.repo.DeleteTask(ctx, t.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("could not delete task %s: %w", t.ID, err)
		}
	}
	if len(tasks) > 0 {
		s.logger.Debugf("Deleted %d completed auto delete tasks", len(tasks))
	}

	return nil
}

// EnqueueTask stores a new pending task and schedules it if the scheduler is running.
func (s *Scheduler) EnqueueTask(ctx context.Context, args model.TaskArgs, meta EnqueueMeta) (string, error) {
	if args == nil {
		return "", fmt.Errorf("task arguments are required: %w", model.ErrNotValid)
	}
	if err := args.Validate(); err != nil {
		return "", fmt.Errorf("invalid task arguments: %w", err)
	}

	typ, err := s.registry.Lookup(args.TaskType())
	if err != nil {
		return "", err
	}

	id, err := s.repo.CreateTask(ctx, model.Task{
		Type:      typ.TaskType(),
		Args:      args,
		Status:    model.TaskStatusPending,
		CreatedAt: time.Now().UTC(),
		CreatedBy: meta.CreatedBy,
		Options:   meta.Options,
	})
	if err != nil {
		return "", fmt.Errorf("could not create task: %w", err)
	}

	s.logger.Infof("Task %s (%s) enqueued", id, typ.TaskType())
	s.schedule(id)

	return id, nil
}

// ResumeTask schedules a paused task again.
func (s *Scheduler) ResumeTask(ctx context.Context, id string) error {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != model.TaskStatusPaused {
		return fmt.Errorf("task %s is %s, only paused tasks can be resumed: %w", id, t.Status, model.ErrNotValid)
	}

	s.schedule(id)
	return nil
}

// PauseTask requests the pause of an in-flight task.
func (s *Scheduler) PauseTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.inflight[id]
	if !ok {
		return fmt.Errorf("task %s is not running: %w", id, model.ErrNotFound)
	}
	sig.Request()
	s.logger.Infof("Pause requested for task %s", id)

	return nil
}

// Running returns the IDs of the in-flight tasks.
func (s *Scheduler) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		ids = append(ids, id)
	}

	return ids
}

// Stop stops dispatching, requests the pause of the in-flight tasks and waits
// until none is executing or the context ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	if !s.stopping {
		s.stopping = true
		s.cancel()
		for _, id := range s.queue {
			delete(s.scheduled, id)
		}
		s.queue = nil
		for _, sig := range s.inflight {
			sig.Request()
		}
		s.logger.Infof("Stopping scheduler, pausing %d in-flight tasks", len(s.inflight))
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("could not wait for in-flight tasks: %w", ctx.Err())
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Infof("Scheduler stopped")

	return nil
}

// Run starts the scheduler and stops it when the context ends.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	return s.Stop(stopCtx)
}

func (s *Scheduler) schedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.stopping {
		return
	}
	if _, ok := s.scheduled[id]; ok {
		s.logger.Debugf("Task %s already scheduled, ignoring", id)
		return
	}

	s.scheduled[id] = struct{}{}
	s.queue = append(s.queue, id)

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) next(ctx context.Context) (string, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			id := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return id, true
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-s.wake:
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context) {
	defer func() {
		s.wg.Wait()
		close(s.done)
	}()

	for {
		id, ok := s.next(ctx)
		if !ok {
			return
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.unschedule(id)
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.execute(id)
		}()
	}
}

func (s *Scheduler) unschedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.scheduled, id)
	delete(s.inflight, id)
}

func (s *Scheduler) execute(id string) {
	s.mu.Lock()
	if s.stopping {
		delete(s.scheduled, id)
		s.mu.Unlock()
		return
	}
	pause := task.NewPauseSignal()
	s.inflight[id] = pause
	ctx := s.runCtx
	s.mu.Unlock()
	defer s.unschedule(id)

	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Debugf("Task %s doesn't exist anymore, ignoring", id)
			return
		}
		s.logger.Errorf("Could not get task %s: %s", id, err)
		return
	}
	if t.Status.Finished() {
		s.logger.Debugf("Task %s already %s, ignoring", id, t.Status)
		return
	}

	typ, err := s.registry.Lookup(t.Type)
	if err != nil {
		s.finish(ctx, *t, task.Outcome{Status: model.TaskStatusFailed, Message: fmt.Sprintf("unknown task type %q", t.Type)})
		return
	}
	if args, ok := t.Args.(model.UndecodedTaskArgs); ok {
		s.finish(ctx, *t, task.Outcome{Status: model.TaskStatusFailed, Message: fmt.Sprintf("could not decode task arguments: %s", args.Reason)})
		return
	}

	var cont *model.ContinuationState
	if t.Status == model.TaskStatusPaused {
		cont, err = s.repo.GetPausedState(ctx, id)
		if err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				s.logger.Errorf("Could not get paused state of task %s: %s", id, err)
				return
			}
			s.finish(ctx, *t, task.Outcome{Status: model.TaskStatusFailed, Message: "paused task has no continuation state to resume from"})
			return
		}
	}

	tlog := s.newTaskLogger(*t)
	defer func() {
		if err := tlog.Close(); err != nil {
			s.logger.Warningf("Could not close task %s logger: %s", id, err)
		}
	}()

	s.logger.Debugf("Executing task %s (%s)", id, t.Type)
	out := s.runner.Run(ctx, task.Execution{
		Task:         *t,
		Type:         typ,
		Continuation: cont,
		Logger:       tlog,
		Pause:        pause,
	})

	s.finish(ctx, *t, out)
}

// finish persists the outcome of a task execution.
func (s *Scheduler) finish(ctx context.Context, t model.Task, out task.Outcome) {
	var err error
	switch out.Status {
	case model.TaskStatusPaused:
		err = s.repo.PauseTask(ctx, model.ContinuationState{TaskID: t.ID, NextStep: out.NextStep, Data: out.State})
		if err == nil {
			s.logger.Infof("Task %s paused at step %d", t.ID, out.NextStep)
		}

	case model.TaskStatusCompleted:
		now := time.Now().UTC()
		t.Status = model.TaskStatusCompleted
		t.FinishedAt = &now
		t.Result = out.Result
		t.Message = ""
		err = s.repo.UpdateTask(ctx, t)
		if err == nil {
			s.logger.Infof("Task %s completed", t.ID)
			if t.Options.AutoDelete {
				if err := s.repo.DeleteTask(ctx, t.ID); err != nil {
					s.logger.Errorf("Could not auto delete task %s: %s", t.ID, err)
				}
			}
		}

	default:
		now := time.Now().UTC()
		t.Status = model.TaskStatusFailed
		t.FinishedAt = &now
		t.Message = out.Message
		err = s.repo.UpdateTask(ctx, t)
		if err == nil {
			s.logger.Warningf("Task %s failed: %s", t.ID, out.Message)
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		err = fmt.Errorf("task %s outcome %s dropped: %w", t.ID, out.Status, ErrTaskVanished)
		s.logger.WithValues(log.Kv{"task_id": t.ID, "programming_error": true}).Errorf("%s", err)
	case errors.Is(err, model.ErrNotValid):
		s.logger.Errorf("Task %s already finished, outcome %s dropped: %s", t.ID, out.Status, err)
	default:
		s.logger.Errorf("Could not store task %s outcome %s: %s", t.ID, out.Status, err)
	}
}
