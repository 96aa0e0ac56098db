package memory_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/storage/memory"
)

func newTask(id string, createdAt time.Time) model.Task {
	return model.Task{
		ID:        id,
		Type:      model.TaskTypeTestingRepoUpdate,
		Args:      model.TestingRepoUpdateArgs{},
		Status:    model.TaskStatusPending,
		CreatedAt: createdAt,
	}
}

func TestRepositoryTasks(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository)
	}{
		"Creating a duplicated task should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				_, err := repo.CreateTask(ctx, newTask("t1", time.Now()))
				require.NoError(t, err)

				_, err = repo.CreateTask(ctx, newTask("t1", time.Now()))
				assert.ErrorIs(t, err, model.ErrAlreadyExists)
			},
		},

		"Recoverable tasks should be returned oldest first.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				now := time.Now()
				for _, tk := range []model.Task{newTask("b", now.Add(time.Second)), newTask("a", now), newTask("c", now.Add(2*time.Second))} {
					_, err := repo.CreateTask(ctx, tk)
					require.NoError(t, err)
				}
				require.NoError(t, repo.UpdateTask(ctx, model.Task{ID: "c", Status: model.TaskStatusFailed}))

				got, err := repo.ListPendingOrPausedTasks(ctx)
				require.NoError(t, err)
				require.Len(t, got, 2)
				assert.Equal(t, "a", got[0].ID)
				assert.Equal(t, "b", got[1].ID)
			},
		},

		"Pausing and finishing a task should manage its continuation.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				_, err := repo.CreateTask(ctx, newTask("t1", time.Now()))
				require.NoError(t, err)

				err = repo.PauseTask(ctx, model.ContinuationState{TaskID: "t1", NextStep: 2, Data: json.RawMessage(`{}`)})
				require.NoError(t, err)

				got, err := repo.GetTask(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, model.TaskStatusPaused, got.Status)

				state, err := repo.GetPausedState(ctx, "t1")
				require.NoError(t, err)
				assert.Equal(t, 2, state.NextStep)

				now := time.Now()
				err = repo.UpdateTask(ctx, model.Task{ID: "t1", Status: model.TaskStatusCompleted, FinishedAt: &now})
				require.NoError(t, err)

				_, err = repo.GetPausedState(ctx, "t1")
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},

		"Pausing a missing task should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				err := repo.PauseTask(ctx, model.ContinuationState{TaskID: "missing"})
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},

		"Finished tasks should be immutable.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				for _, id := range []string{"completed", "failed"} {
					_, err := repo.CreateTask(ctx, newTask(id, time.Now()))
					require.NoError(t, err)
				}
				now := time.Now()
				require.NoError(t, repo.UpdateTask(ctx, model.Task{ID: "completed", Status: model.TaskStatusCompleted, FinishedAt: &now, Message: "done"}))
				require.NoError(t, repo.UpdateTask(ctx, model.Task{ID: "failed", Status: model.TaskStatusFailed, FinishedAt: &now, Message: "boom"}))

				err := repo.UpdateTask(ctx, model.Task{ID: "completed", Status: model.TaskStatusPending, Message: "rewritten"})
				assert.ErrorIs(t, err, model.ErrNotValid)
				err = repo.PauseTask(ctx, model.ContinuationState{TaskID: "failed", NextStep: 1})
				assert.ErrorIs(t, err, model.ErrNotValid)

				got, err := repo.GetTask(ctx, "completed")
				require.NoError(t, err)
				assert.Equal(t, model.TaskStatusCompleted, got.Status)
				assert.Equal(t, "done", got.Message)

				got, err = repo.GetTask(ctx, "failed")
				require.NoError(t, err)
				assert.Equal(t, model.TaskStatusFailed, got.Status)
				_, err = repo.GetPausedState(ctx, "failed")
				assert.ErrorIs(t, err, model.ErrNotFound)
			},
		},

		"Running status can't be stored.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				_, err := repo.CreateTask(ctx, newTask("t1", time.Now()))
				require.NoError(t, err)

				err = repo.UpdateTask(ctx, model.Task{ID: "t1", Status: model.TaskStatusRunning})
				assert.ErrorIs(t, err, model.ErrNotValid)
			},
		},

		"Auto delete tasks should be listed by finish time.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				now := time.Now()
				for i, id := range []string{"a", "b"} {
					tk := newTask(id, now)
					tk.Options.AutoDelete = true
					_, err := repo.CreateTask(ctx, tk)
					require.NoError(t, err)

					finished := now.Add(time.Duration(-i) * time.Minute)
					require.NoError(t, repo.UpdateTask(ctx, model.Task{ID: id, Status: model.TaskStatusCompleted, FinishedAt: &finished}))
				}

				got, err := repo.ListCompletedAutoDeleteTasks(ctx)
				require.NoError(t, err)
				require.Len(t, got, 2)
				assert.Equal(t, "b", got[0].ID)
				assert.Equal(t, "a", got[1].ID)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: log.Noop})
			require.NoError(t, err)

			test.actions(context.Background(), t, repo)
		})
	}
}

func TestRepositoryPromotions(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)

	now := time.Now()
	require.NoError(repo.CreatePackage(ctx, model.Package{ID: "p1", Name: "htop", CreatedAt: now}))
	require.NoError(repo.CreatePackageRelease(ctx, model.PackageRelease{ID: "r1", PackageID: "p1", Version: "3.3.0", Architectures: []model.Arch{model.ArchAMD64}, CreatedAt: now}))

	req := model.StablePromotionRequest{
		ID:           "sr1",
		PackageID:    "p1",
		ReleaseID:    "r1",
		Architecture: model.ArchAMD64,
		Status:       model.PromotionStatusPending,
		RequestedBy:  "dev",
		CreatedAt:    now,
	}
	require.NoError(repo.CreatePromotionRequest(ctx, req))

	req.ID = "sr2"
	assert.ErrorIs(repo.CreatePromotionRequest(ctx, req), model.ErrAlreadyExists)

	require.NoError(repo.ResolvePromotionRequest(ctx, "sr1", model.PromotionStatusDenied, "admin", "broken", now))
	assert.ErrorIs(repo.ResolvePromotionRequest(ctx, "sr1", model.PromotionStatusApproved, "admin", "", now), model.ErrNotValid)

	got, err := repo.GetPromotionRequest(ctx, "sr1")
	require.NoError(err)
	assert.Equal(model.PromotionStatusDenied, got.Status)
	assert.Equal("broken", got.DecisionReason)

	require.NoError(repo.SetLatestStable(ctx, "p1", model.ArchAMD64, "3.3.0"))
	pkg, err := repo.GetPackage(ctx, "p1")
	require.NoError(err)
	assert.Equal("3.3.0", pkg.LatestStable[model.ArchAMD64])
}
