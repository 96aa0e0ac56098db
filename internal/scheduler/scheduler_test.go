package scheduler_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tierd/internal/log"
	loglogrus "github.com/slok/tierd/internal/log/logrus"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/scheduler"
	"github.com/slok/tierd/internal/storage"
	"github.com/slok/tierd/internal/storage/memory"
	"github.com/slok/tierd/internal/storage/sqlite"
	"github.com/slok/tierd/internal/task"
)

const waitTimeout = 5 * time.Second

type testArgs = model.TestingRepoUpdateArgs

type testState struct {
	Steps []string `json:"steps"`
}

// recorder records the executed steps of every task.
type recorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.runs...)
}

func step(rec *recorder, name string, f func(ctx context.Context, run task.Run[testArgs]) task.StepResult) task.Step[testArgs, testState] {
	return task.Step[testArgs, testState]{
		Name: name,
		Run: func(ctx context.Context, run task.Run[testArgs], s *testState) task.StepResult {
			rec.add(run.TaskID + ":" + name)
			s.Steps = append(s.Steps, name)
			if f == nil {
				return task.Done()
			}
			return f(ctx, run)
		},
	}
}

func definition(steps ...task.Step[testArgs, testState]) task.Definition[testArgs, testState] {
	return task.Definition[testArgs, testState]{
		Name: model.TaskTypeTestingRepoUpdate,
		Init: func(ctx context.Context, run task.Run[testArgs]) (*testState, error) {
			return &testState{}, nil
		},
		Steps:  steps,
		Result: func(s *testState) any { return s.Steps },
	}
}

func newScheduler(t *testing.T, repo storage.TaskRepository, def task.Type, workers int) *scheduler.Scheduler {
	t.Helper()

	reg := task.NewRegistry()
	require.NoError(t, reg.Register(def))

	return newSchedulerWith(t, repo, reg, workers, log.Noop)
}

func newSchedulerWith(t *testing.T, repo storage.TaskRepository, reg *task.Registry, workers int, logger log.Logger) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Repository: repo,
		Registry:   reg,
		Workers:    workers,
		Logger:     logger,
	})
	require.NoError(t, err)

	return s
}

func newRepo(t *testing.T) *memory.Repository {
	t.Helper()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	return repo
}

func waitStatus(t *testing.T, repo storage.TaskRepository, id string, status model.TaskStatus) *model.Task {
	t.Helper()

	var got *model.Task
	require.Eventually(t, func() bool {
		tk, err := repo.GetTask(context.Background(), id)
		if err != nil {
			return false
		}
		got = tk
		return tk.Status == status
	}, waitTimeout, 10*time.Millisecond)

	return got
}

func stop(t *testing.T, s *scheduler.Scheduler) {
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestSchedulerEnqueueTask(t *testing.T) {
	tests := map[string]struct {
		steps      func(rec *recorder) []task.Step[testArgs, testState]
		options    model.ExecutionOptions
		expStatus  model.TaskStatus
		expResult  string
		expMessage string
		expDeleted bool
	}{
		"A task with all its steps succeeding should complete with its result.": {
			steps: func(rec *recorder) []task.Step[testArgs, testState] {
				return []task.Step[testArgs, testState]{step(rec, "a", nil), step(rec, "b", nil)}
			},
			expStatus: model.TaskStatusCompleted,
			expResult: `["a","b"]`,
		},

		"A task with a failing step should fail with the step message.": {
			steps: func(rec *recorder) []task.Step[testArgs, testState] {
				return []task.Step[testArgs, testState]{
					step(rec, "a", func(ctx context.Context, run task.Run[testArgs]) task.StepResult { return task.Fail("publish failed") }),
					step(rec, "b", nil),
				}
			},
			expStatus:  model.TaskStatusFailed,
			expMessage: "publish failed",
		},

		"A completed auto delete task should be removed.": {
			steps: func(rec *recorder) []task.Step[testArgs, testState] {
				return []task.Step[testArgs, testState]{step(rec, "a", nil)}
			},
			options:    model.ExecutionOptions{AutoDelete: true},
			expDeleted: true,
		},

		"A failed auto delete task should be kept.": {
			steps: func(rec *recorder) []task.Step[testArgs, testState] {
				return []task.Step[testArgs, testState]{
					step(rec, "a", func(ctx context.Context, run task.Run[testArgs]) task.StepResult { return task.Fail("boom") }),
				}
			},
			options:    model.ExecutionOptions{AutoDelete: true},
			expStatus:  model.TaskStatusFailed,
			expMessage: "boom",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			rec := &recorder{}
			repo := newRepo(t)
			s := newScheduler(t, repo, definition(test.steps(rec)...), 1)
			require.NoError(s.Start(context.Background()))
			defer stop(t, s)

			id, err := s.EnqueueTask(context.Background(), testArgs{}, scheduler.EnqueueMeta{CreatedBy: "tester", Options: test.options})
			require.NoError(err)

			if test.expDeleted {
				require.Eventually(func() bool {
					_, err := repo.GetTask(context.Background(), id)
					return err != nil
				}, waitTimeout, 10*time.Millisecond)
				return
			}

			got := waitStatus(t, repo, id, test.expStatus)
			assert.Equal("tester", got.CreatedBy)
			assert.Equal(test.expMessage, got.Message)
			assert.NotNil(got.FinishedAt)
			if test.expResult != "" {
				assert.JSONEq(test.expResult, string(got.Result))
			}
		})
	}
}

func TestSchedulerEnqueueTaskErrors(t *testing.T) {
	assert := assert.New(t)

	repo := newRepo(t)
	s := newScheduler(t, repo, definition(step(&recorder{}, "a", nil)), 1)

	_, err := s.EnqueueTask(context.Background(), nil, scheduler.EnqueueMeta{})
	assert.ErrorIs(err, model.ErrNotValid)

	_, err = s.EnqueueTask(context.Background(), model.OSReleaseArgs{Version: "bad"}, scheduler.EnqueueMeta{})
	assert.ErrorIs(err, model.ErrNotValid)

	_, err = s.EnqueueTask(context.Background(), model.OSReleaseArgs{Version: "2024.01.1"}, scheduler.EnqueueMeta{})
	assert.ErrorIs(err, model.ErrNotFound)

	tasks, err := repo.ListTasks(context.Background(), model.TaskFilter{})
	assert.NoError(err)
	assert.Empty(tasks)
}

func TestSchedulerEnqueueBeforeStartShouldRunOnStart(t *testing.T) {
	require := require.New(t)

	rec := &recorder{}
	repo := newRepo(t)
	s := newScheduler(t, repo, definition(step(rec, "a", nil)), 1)

	id, err := s.EnqueueTask(context.Background(), testArgs{}, scheduler.EnqueueMeta{})
	require.NoError(err)

	tk, err := repo.GetTask(context.Background(), id)
	require.NoError(err)
	require.Equal(model.TaskStatusPending, tk.Status)

	require.NoError(s.Start(context.Background()))
	defer stop(t, s)

	waitStatus(t, repo, id, model.TaskStatusCompleted)
	assert.Equal(t, []string{id + ":a"}, rec.get())
}

func TestSchedulerStartRecoversInCreationOrder(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	rec := &recorder{}
	repo := newRepo(t)

	// Stored out of order on purpose.
	t0 := time.Now().UTC().Add(-time.Hour)
	for _, c := range []struct {
		id  string
		age time.Duration
	}{{"t3", 2 * time.Second}, {"t1", 0}, {"t2", time.Second}} {
		_, err := repo.CreateTask(ctx, model.Task{
			ID:        c.id,
			Type:      model.TaskTypeTestingRepoUpdate,
			Args:      testArgs{},
			Status:    model.TaskStatusPending,
			CreatedAt: t0.Add(c.age),
		})
		require.NoError(err)
	}

	s := newScheduler(t, repo, definition(step(rec, "a", nil)), 1)
	require.NoError(s.Start(ctx))
	defer stop(t, s)

	for _, id := range []string{"t1", "t2", "t3"} {
		waitStatus(t, repo, id, model.TaskStatusCompleted)
	}
	assert.Equal(t, []string{"t1:a", "t2:a", "t3:a"}, rec.get())
}

func TestSchedulerStartResumesPausedTasks(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	rec := &recorder{}
	repo := newRepo(t)

	for _, id := range []string{"resumable", "stateless"} {
		_, err := repo.CreateTask(ctx, model.Task{
			ID:        id,
			Type:      model.TaskTypeTestingRepoUpdate,
			Args:      testArgs{},
			Status:    model.TaskStatusPending,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(err)
	}
	require.NoError(repo.PauseTask(ctx, model.ContinuationState{TaskID: "resumable", NextStep: 1, Data: json.RawMessage(`{"steps":["a"]}`)}))
	tk, err := repo.GetTask(ctx, "stateless")
	require.NoError(err)
	tk.Status = model.TaskStatusPaused
	require.NoError(repo.UpdateTask(ctx, *tk))

	s := newScheduler(t, repo, definition(step(rec, "a", nil), step(rec, "b", nil)), 2)
	require.NoError(s.Start(ctx))
	defer stop(t, s)

	got := waitStatus(t, repo, "resumable", model.TaskStatusCompleted)
	assert.JSONEq(`["a","b"]`, string(got.Result))
	_, err = repo.GetPausedState(ctx, "resumable")
	assert.ErrorIs(err, model.ErrNotFound)

	got = waitStatus(t, repo, "stateless", model.TaskStatusFailed)
	assert.Equal("paused task has no continuation state to resume from", got.Message)

	assert.Equal([]string{"resumable:b"}, rec.get())
}

func TestSchedulerStartDeletesCompletedAutoDeleteTasks(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newRepo(t)
	now := time.Now().UTC()
	for id, autoDelete := range map[string]bool{"auto": true, "keep": false} {
		_, err := repo.CreateTask(ctx, model.Task{
			ID:        id,
			Type:      model.TaskTypeTestingRepoUpdate,
			Args:      testArgs{},
			Status:    model.TaskStatusPending,
			CreatedAt: now,
			Options:   model.ExecutionOptions{AutoDelete: autoDelete},
		})
		require.NoError(err)
		tk, err := repo.GetTask(ctx, id)
		require.NoError(err)
		tk.Status = model.TaskStatusCompleted
		tk.FinishedAt = &now
		require.NoError(repo.UpdateTask(ctx, *tk))
	}

	s := newScheduler(t, repo, definition(step(&recorder{}, "a", nil)), 1)
	require.NoError(s.Start(ctx))
	defer stop(t, s)

	_, err := repo.GetTask(ctx, "auto")
	assert.ErrorIs(err, model.ErrNotFound)
	_, err = repo.GetTask(ctx, "keep")
	assert.NoError(err)
}

func TestSchedulerStopPausesAndRestartResumes(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	rec := &recorder{}
	repo := newRepo(t)
	started := make(chan struct{})

	// The first step blocks until the pause is requested.
	def := definition(
		step(rec, "a", func(ctx context.Context, run task.Run[testArgs]) task.StepResult {
			close(started)
			select {
			case <-run.Pause.Done():
			case <-time.After(waitTimeout):
			}
			return task.Done()
		}),
		step(rec, "b", nil),
	)

	s1 := newScheduler(t, repo, def, 1)
	require.NoError(s1.Start(ctx))
	id, err := s1.EnqueueTask(ctx, testArgs{}, scheduler.EnqueueMeta{})
	require.NoError(err)

	<-started
	assert.Equal([]string{id}, s1.Running())
	stop(t, s1)
	assert.Empty(s1.Running())

	got := waitStatus(t, repo, id, model.TaskStatusPaused)
	assert.Nil(got.FinishedAt)
	cont, err := repo.GetPausedState(ctx, id)
	require.NoError(err)
	assert.Equal(1, cont.NextStep)
	assert.JSONEq(`{"steps":["a"]}`, string(cont.Data))

	// A new process resumes at the next step.
	s2 := newScheduler(t, repo, def, 1)
	require.NoError(s2.Start(ctx))
	defer stop(t, s2)

	got = waitStatus(t, repo, id, model.TaskStatusCompleted)
	assert.JSONEq(`["a","b"]`, string(got.Result))
	assert.Equal([]string{id + ":a", id + ":b"}, rec.get())
}

func TestSchedulerPauseAndResumeTask(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	rec := &recorder{}
	repo := newRepo(t)
	started := make(chan struct{}, 1)

	def := definition(
		step(rec, "a", func(ctx context.Context, run task.Run[testArgs]) task.StepResult {
			select {
			case started <- struct{}{}:
			default:
			}
			select {
			case <-run.Pause.Done():
			case <-time.After(waitTimeout):
			}
			return task.Done()
		}),
		step(rec, "b", nil),
	)

	s := newScheduler(t, repo, def, 1)
	require.NoError(s.Start(ctx))
	defer stop(t, s)

	assert.ErrorIs(s.PauseTask("missing"), model.ErrNotFound)

	id, err := s.EnqueueTask(ctx, testArgs{}, scheduler.EnqueueMeta{})
	require.NoError(err)
	<-started
	require.NoError(s.PauseTask(id))
	waitStatus(t, repo, id, model.TaskStatusPaused)
	require.Eventually(func() bool { return len(s.Running()) == 0 }, waitTimeout, 10*time.Millisecond)

	require.NoError(s.ResumeTask(ctx, id))
	got := waitStatus(t, repo, id, model.TaskStatusCompleted)
	assert.JSONEq(`["a","b"]`, string(got.Result))

	assert.ErrorIs(s.ResumeTask(ctx, id), model.ErrNotValid)
}

func TestSchedulerStartWithUndecodableTasks(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	db, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: filepath.Join(t.TempDir(), "tierd.db")})
	require.NoError(err)
	defer db.Close()
	repo, err := sqlite.NewTaskRepository(sqlite.TaskRepositoryConfig{DB: db.DB()})
	require.NoError(err)

	rec := &recorder{}
	reg := task.NewRegistry()
	require.NoError(reg.Register(definition(step(rec, "a", nil))))
	require.NoError(reg.Register(task.Definition[model.OSReleaseArgs, testState]{
		Name: model.TaskTypeOSRelease,
		Init: func(ctx context.Context, run task.Run[model.OSReleaseArgs]) (*testState, error) {
			rec.add(run.TaskID + ":init")
			return &testState{}, nil
		},
		Steps: []task.Step[model.OSReleaseArgs, testState]{{
			Name: "a",
			Run: func(ctx context.Context, run task.Run[model.OSReleaseArgs], s *testState) task.StepResult {
				return task.Done()
			},
		}},
	}))

	now := time.Now()
	_, err = db.DB().ExecContext(ctx, `INSERT INTO tasks (id, type, args, status, created_at) VALUES
		('legacy', 'legacy:removed', '{}', 'pending', ?),
		('corrupt', 'os-release:create', '{not json', 'pending', ?)`,
		now.Add(-2*time.Minute).UnixMilli(), now.Add(-time.Minute).UnixMilli())
	require.NoError(err)
	_, err = repo.CreateTask(ctx, model.Task{
		ID:        "good",
		Type:      model.TaskTypeTestingRepoUpdate,
		Args:      testArgs{},
		Status:    model.TaskStatusPending,
		CreatedAt: now,
	})
	require.NoError(err)

	s := newSchedulerWith(t, repo, reg, 2, log.Noop)
	require.NoError(s.Start(ctx))
	defer stop(t, s)

	got := waitStatus(t, repo, "good", model.TaskStatusCompleted)
	assert.JSONEq(`["a"]`, string(got.Result))

	got = waitStatus(t, repo, "legacy", model.TaskStatusFailed)
	assert.Equal(`unknown task type "legacy:removed"`, got.Message)
	assert.NotNil(got.FinishedAt)

	got = waitStatus(t, repo, "corrupt", model.TaskStatusFailed)
	assert.True(strings.HasPrefix(got.Message, "could not decode task arguments: "), got.Message)

	assert.Equal([]string{"good:a"}, rec.get())
}

func TestSchedulerRunsATaskOnceAtATime(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	rec := &recorder{}
	repo := newRepo(t)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var current, peak int32

	def := definition(step(rec, "a", func(ctx context.Context, run task.Run[testArgs]) task.StepResult {
		n := atomic.AddInt32(&current, 1)
		defer atomic.AddInt32(&current, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}

		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-time.After(waitTimeout):
		}
		return task.Done()
	}))

	_, err := repo.CreateTask(ctx, model.Task{
		ID:        "t1",
		Type:      model.TaskTypeTestingRepoUpdate,
		Args:      testArgs{},
		Status:    model.TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(err)
	require.NoError(repo.PauseTask(ctx, model.ContinuationState{TaskID: "t1", NextStep: 0, Data: json.RawMessage(`{"steps":[]}`)}))

	s := newScheduler(t, repo, def, 4)
	require.NoError(s.Start(ctx))
	defer stop(t, s)

	select {
	case <-started:
	case <-time.After(waitTimeout):
		t.Fatal("task didn't start")
	}

	// The stored status stays paused while in flight, every resume is a duplicate.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(s.ResumeTask(ctx, "t1"))
		}()
	}
	wg.Wait()
	assert.Equal([]string{"t1"}, s.Running())
	close(release)

	waitStatus(t, repo, "t1", model.TaskStatusCompleted)
	require.Eventually(func() bool { return len(s.Running()) == 0 }, waitTimeout, 10*time.Millisecond)

	assert.Equal(int32(1), atomic.LoadInt32(&peak))
	assert.Equal([]string{"t1:a"}, rec.get())
}

func TestSchedulerReportsVanishedTasks(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	logger, hook := logrustest.NewNullLogger()
	repo := newRepo(t)
	reg := task.NewRegistry()
	require.NoError(reg.Register(definition(step(&recorder{}, "a", func(ctx context.Context, run task.Run[testArgs]) task.StepResult {
		_ = repo.DeleteTask(ctx, run.TaskID)
		return task.Done()
	}))))

	s := newSchedulerWith(t, repo, reg, 1, loglogrus.NewLogrus(logrus.NewEntry(logger)))
	require.NoError(s.Start(ctx))
	defer stop(t, s)

	id, err := s.EnqueueTask(ctx, testArgs{}, scheduler.EnqueueMeta{})
	require.NoError(err)

	require.Eventually(func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.ErrorLevel && strings.Contains(e.Message, scheduler.ErrTaskVanished.Error()) && e.Data["task_id"] == id {
				return e.Data["programming_error"] == true
			}
		}
		return false
	}, waitTimeout, 10*time.Millisecond)
}
