package osrelease_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
	"github.com/slok/tierd/internal/pkgrepo/fake"
	"github.com/slok/tierd/internal/storage/memory"
	"github.com/slok/tierd/internal/task"
	"github.com/slok/tierd/internal/tasks/osrelease"
)

const version = "2024.01.1"

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type env struct {
	repo *memory.Repository
	mgr  *fake.Manager
}

// newEnv seeds `htop` (release r1, amd64 and arm64) and `vim` (release r2, amd64).
func newEnv(t *testing.T) env {
	t.Helper()
	require := require.New(t)
	ctx := context.Background()

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)
	mgr, err := fake.NewManager(fake.ManagerConfig{})
	require.NoError(err)

	seed := []struct {
		pkgID, name, relID, version, patch string
		archs                              []model.Arch
	}{
		{"p1", "htop", "r1", "3.3.0", "1", []model.Arch{model.ArchAMD64, model.ArchARM64}},
		{"p2", "vim", "r2", "9.1", "", []model.Arch{model.ArchAMD64}},
	}
	for _, s := range seed {
		require.NoError(repo.CreatePackage(ctx, model.Package{ID: s.pkgID, Name: s.name, CreatedAt: t0}))
		rel := model.PackageRelease{ID: s.relID, PackageID: s.pkgID, Version: s.version, PatchSuffix: s.patch, Architectures: s.archs, CreatedAt: t0}
		require.NoError(repo.CreatePackageRelease(ctx, rel))
		for _, a := range s.archs {
			require.NoError(mgr.AddToArchive(pkgrepo.ReleaseQuery(s.name, rel, a)))
		}
	}

	return env{repo: repo, mgr: mgr}
}

func (e env) definition(t *testing.T, mgr pkgrepo.Manager) task.Type {
	t.Helper()

	def, err := osrelease.NewDefinition(osrelease.DefinitionConfig{
		Packages:   e.repo,
		OSReleases: e.repo,
		Journal:    e.repo,
		Repo:       mgr,
		TimeNow:    func() time.Time { return t0 },
	})
	require.NoError(t, err)
	return def
}

func run(t *testing.T, def task.Type, taskID string, args model.OSReleaseArgs, pause *task.PauseSignal, cont *model.ContinuationState) task.Outcome {
	t.Helper()

	runner, err := task.NewRunner(task.RunnerConfig{Logger: log.Noop})
	require.NoError(t, err)
	if pause == nil {
		pause = task.NewPauseSignal()
	}

	return runner.Run(context.Background(), task.Execution{
		Task:         model.Task{ID: taskID, Type: model.TaskTypeOSRelease, Args: args},
		Type:         def,
		Continuation: cont,
		Logger:       log.Noop,
		Pause:        pause,
	})
}

func TestOSRelease(t *testing.T) {
	tests := map[string]struct {
		prepare     func(t *testing.T, e env)
		releaseIDs  []string
		expStatus   model.TaskStatus
		expMessage  string
		expResult   string
		expStable   []string
		expSnapshot bool
		expRecorded bool
	}{
		"Moving releases should put every built arch on stable, snapshot and publish.": {
			releaseIDs:  []string{"r1", "r2"},
			expStatus:   model.TaskStatusCompleted,
			expResult:   `{"version":"2024.01.1","snapshot":"leios-stable-2024.01.1","distribution":"stable","releases":["r1","r2"],"skipped":[]}`,
			expStable:   []string{"htop_3.3.0leios1_amd64", "htop_3.3.0leios1_arm64", "vim_9.1_amd64"},
			expSnapshot: true,
			expRecorded: true,
		},

		"A missing release should be skipped.": {
			releaseIDs:  []string{"r404", "r2"},
			expStatus:   model.TaskStatusCompleted,
			expResult:   `{"version":"2024.01.1","snapshot":"leios-stable-2024.01.1","distribution":"stable","releases":["r2"],"skipped":["r404"]}`,
			expStable:   []string{"vim_9.1_amd64"},
			expSnapshot: true,
			expRecorded: true,
		},

		"A release failing to copy should be skipped.": {
			prepare: func(t *testing.T, e env) {
				// r3 has no archived artifact.
				require.NoError(t, e.repo.CreatePackageRelease(context.Background(), model.PackageRelease{
					ID: "r3", PackageID: "p2", Version: "9.2", Architectures: []model.Arch{model.ArchAMD64}, CreatedAt: t0,
				}))
			},
			releaseIDs:  []string{"r3", "r1"},
			expStatus:   model.TaskStatusCompleted,
			expResult:   `{"version":"2024.01.1","snapshot":"leios-stable-2024.01.1","distribution":"stable","releases":["r1"],"skipped":["r3"]}`,
			expStable:   []string{"htop_3.3.0leios1_amd64", "htop_3.3.0leios1_arm64"},
			expSnapshot: true,
			expRecorded: true,
		},

		"A previous stable version should be replaced.": {
			prepare: func(t *testing.T, e env) {
				old := pkgrepo.Query{Name: "htop", Version: "3.2.0", Arch: model.ArchAMD64}
				require.NoError(t, e.mgr.AddToArchive(old))
				require.NoError(t, e.mgr.Copy(context.Background(), model.TierStable, old))
				require.NoError(t, e.repo.SetLatestStable(context.Background(), "p1", model.ArchAMD64, "3.2.0"))
			},
			releaseIDs:  []string{"r1"},
			expStatus:   model.TaskStatusCompleted,
			expResult:   `{"version":"2024.01.1","snapshot":"leios-stable-2024.01.1","distribution":"stable","releases":["r1"],"skipped":[]}`,
			expStable:   []string{"htop_3.3.0leios1_amd64", "htop_3.3.0leios1_arm64"},
			expSnapshot: true,
			expRecorded: true,
		},

		"A snapshot failure should fail the task after recording the release.": {
			prepare: func(t *testing.T, e env) {
				e.mgr.SetFailure(fake.OpCreateSnapshot, errors.New("disk full"))
			},
			releaseIDs:  []string{"r2"},
			expStatus:   model.TaskStatusFailed,
			expMessage:  "could not create snapshot: disk full",
			expStable:   []string{"vim_9.1_amd64"},
			expRecorded: true,
		},

		"A publish failure should fail the task.": {
			prepare: func(t *testing.T, e env) {
				e.mgr.SetFailure(fake.OpPublishSnapshot, errors.New("s3 down"))
			},
			releaseIDs:  []string{"r2"},
			expStatus:   model.TaskStatusFailed,
			expMessage:  "could not publish snapshot: s3 down",
			expStable:   []string{"vim_9.1_amd64"},
			expSnapshot: true,
			expRecorded: true,
		},

		"An OS release recorded by another task should fail the task.": {
			prepare: func(t *testing.T, e env) {
				require.NoError(t, e.repo.CreateOSRelease(context.Background(), model.OSRelease{Version: version, TaskID: "other", CreatedAt: t0}))
			},
			releaseIDs:  []string{"r2"},
			expStatus:   model.TaskStatusFailed,
			expMessage:  "os release 2024.01.1 already exists (created by task other)",
			expStable:   []string{"vim_9.1_amd64"},
			expRecorded: true,
		},

		"An OS release recorded by the same task should continue.": {
			prepare: func(t *testing.T, e env) {
				require.NoError(t, e.repo.CreateOSRelease(context.Background(), model.OSRelease{Version: version, TaskID: "task1", CreatedAt: t0}))
			},
			releaseIDs:  []string{"r2"},
			expStatus:   model.TaskStatusCompleted,
			expResult:   `{"version":"2024.01.1","snapshot":"leios-stable-2024.01.1","distribution":"stable","releases":["r2"],"skipped":[]}`,
			expStable:   []string{"vim_9.1_amd64"},
			expSnapshot: true,
			expRecorded: true,
		},

		"An existing snapshot should be reused.": {
			prepare: func(t *testing.T, e env) {
				require.NoError(t, e.mgr.CreateSnapshot(context.Background(), model.TierStable, "leios-stable-2024.01.1", ""))
			},
			releaseIDs:  []string{"r2"},
			expStatus:   model.TaskStatusCompleted,
			expResult:   `{"version":"2024.01.1","snapshot":"leios-stable-2024.01.1","distribution":"stable","releases":["r2"],"skipped":[]}`,
			expStable:   []string{"vim_9.1_amd64"},
			expSnapshot: true,
			expRecorded: true,
		},

		"No releases should publish the current stable tier.": {
			expStatus:   model.TaskStatusCompleted,
			expResult:   `{"version":"2024.01.1","snapshot":"leios-stable-2024.01.1","distribution":"stable","releases":[],"skipped":[]}`,
			expStable:   []string{},
			expSnapshot: true,
			expRecorded: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			e := newEnv(t)
			if test.prepare != nil {
				test.prepare(t, e)
			}

			out := run(t, e.definition(t, e.mgr), "task1", model.OSReleaseArgs{Version: version, ReleaseIDs: test.releaseIDs}, nil, nil)

			assert.Equal(test.expStatus, out.Status)
			assert.Equal(test.expMessage, out.Message)
			if test.expResult != "" {
				assert.JSONEq(test.expResult, string(out.Result))
			}
			assert.Equal(test.expStable, e.mgr.Packages(model.TierStable))

			_, ok := e.mgr.Snapshot("leios-stable-2024.01.1")
			assert.Equal(test.expSnapshot, ok)
			if test.expStatus == model.TaskStatusCompleted {
				assert.Equal("leios-stable-2024.01.1", e.mgr.Published("stable"))
			}

			_, err := e.repo.GetOSReleaseByVersion(ctx, version)
			if test.expRecorded {
				require.NoError(err)
			} else {
				assert.ErrorIs(err, model.ErrNotFound)
			}
		})
	}
}

func TestOSReleaseUpdatesPointersAndJournal(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	e := newEnv(t)
	out := run(t, e.definition(t, e.mgr), "task1", model.OSReleaseArgs{Version: version, ReleaseIDs: []string{"r1", "r2"}}, nil, nil)
	require.Equal(model.TaskStatusCompleted, out.Status)

	htop, err := e.repo.GetPackage(ctx, "p1")
	require.NoError(err)
	assert.Equal(map[model.Arch]string{model.ArchAMD64: "3.3.0leios1", model.ArchARM64: "3.3.0leios1"}, htop.LatestStable)

	vim, err := e.repo.GetPackage(ctx, "p2")
	require.NoError(err)
	assert.Equal(map[model.Arch]string{model.ArchAMD64: "9.1"}, vim.LatestStable)

	moves, err := e.repo.ListMoves(ctx, "task1")
	require.NoError(err)
	got := []string{}
	for _, m := range moves {
		got = append(got, fmt.Sprintf("%s %s %s %s", m.Action, m.PackageName, m.Arch, m.FullVersion))
	}
	assert.Equal([]string{
		"copy htop amd64 3.3.0leios1",
		"copy htop arm64 3.3.0leios1",
		"copy vim amd64 9.1",
	}, got)
}

func TestOSReleaseJournalsReplacedStableVersions(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	e := newEnv(t)
	old := pkgrepo.Query{Name: "htop", Version: "3.2.0", Arch: model.ArchAMD64}
	require.NoError(e.mgr.AddToArchive(old))
	require.NoError(e.mgr.Copy(ctx, model.TierStable, old))
	require.NoError(e.repo.SetLatestStable(ctx, "p1", model.ArchAMD64, "3.2.0"))

	out := run(t, e.definition(t, e.mgr), "task1", model.OSReleaseArgs{Version: version, ReleaseIDs: []string{"r1"}}, nil, nil)
	require.Equal(model.TaskStatusCompleted, out.Status)

	moves, err := e.repo.ListMoves(ctx, "task1")
	require.NoError(err)
	got := []string{}
	for _, m := range moves {
		got = append(got, fmt.Sprintf("%s %s %s %s", m.Action, m.PackageName, m.Arch, m.FullVersion))
	}
	assert.Equal([]string{
		"delete htop amd64 3.2.0",
		"copy htop amd64 3.3.0leios1",
		"copy htop arm64 3.3.0leios1",
	}, got)
}

func TestOSReleaseRerunIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	e := newEnv(t)
	def := e.definition(t, e.mgr)
	args := model.OSReleaseArgs{Version: version, ReleaseIDs: []string{"r1", "r2"}}

	// A pending task recovered after a crash runs again from the start.
	out1 := run(t, def, "task1", args, nil, nil)
	out2 := run(t, def, "task1", args, nil, nil)

	assert.Equal(model.TaskStatusCompleted, out1.Status)
	assert.Equal(model.TaskStatusCompleted, out2.Status)
	assert.JSONEq(string(out1.Result), string(out2.Result))
	assert.Equal([]string{"htop_3.3.0leios1_amd64", "htop_3.3.0leios1_arm64", "vim_9.1_amd64"}, e.mgr.Packages(model.TierStable))
}

// pausingManager requests the pause after a number of copies.
type pausingManager struct {
	*fake.Manager
	pauseAfter int
	copies     int
	pause      *task.PauseSignal
}

func (m *pausingManager) Copy(ctx context.Context, target model.Tier, q pkgrepo.Query) error {
	if err := m.Manager.Copy(ctx, target, q); err != nil {
		return err
	}
	m.copies++
	if m.copies == m.pauseAfter {
		m.pause.Request()
	}
	return nil
}

func TestOSReleasePauseAndResumeAtCursor(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	e := newEnv(t)
	ids := []string{}
	for i := range 10 {
		id := fmt.Sprintf("rel%02d", i)
		pkgID := fmt.Sprintf("pkg%02d", i)
		name := fmt.Sprintf("tool%02d", i)
		require.NoError(e.repo.CreatePackage(ctx, model.Package{ID: pkgID, Name: name, CreatedAt: t0}))
		rel := model.PackageRelease{ID: id, PackageID: pkgID, Version: "1.0", Architectures: []model.Arch{model.ArchAMD64}, CreatedAt: t0}
		require.NoError(e.repo.CreatePackageRelease(ctx, rel))
		require.NoError(e.mgr.AddToArchive(pkgrepo.ReleaseQuery(name, rel, model.ArchAMD64)))
		ids = append(ids, id)
	}
	args := model.OSReleaseArgs{Version: version, ReleaseIDs: ids}

	pause := task.NewPauseSignal()
	mgr := &pausingManager{Manager: e.mgr, pauseAfter: 5, pause: pause}
	def := e.definition(t, mgr)

	out := run(t, def, "task1", args, pause, nil)
	require.Equal(model.TaskStatusPaused, out.Status)
	assert.Equal(0, out.NextStep)

	var state osrelease.State
	require.NoError(json.Unmarshal(out.State, &state))
	assert.Equal(5, state.NextReleaseIndex)
	assert.Equal(ids[:5], state.Moved)
	assert.Len(e.mgr.Packages(model.TierStable), 5)

	// Persist and reload the continuation like a process restart.
	_, err := e.repo.CreateTask(ctx, model.Task{ID: "task1", Type: model.TaskTypeOSRelease, Args: args, Status: model.TaskStatusPending, CreatedAt: t0})
	require.NoError(err)
	require.NoError(e.repo.PauseTask(ctx, model.ContinuationState{TaskID: "task1", NextStep: out.NextStep, Data: out.State}))
	cont, err := e.repo.GetPausedState(ctx, "task1")
	require.NoError(err)

	out = run(t, def, "task1", args, nil, cont)
	require.Equal(model.TaskStatusCompleted, out.Status)

	var res osrelease.Result
	require.NoError(json.Unmarshal(out.Result, &res))
	assert.Equal(ids, res.Releases)
	assert.Len(e.mgr.Packages(model.TierStable), 10)
	assert.Equal(10, mgr.copies)

	moves, err := e.repo.ListMoves(ctx, "task1")
	require.NoError(err)
	assert.Len(moves, 20)
}

func TestNewDefinitionRequiresDependencies(t *testing.T) {
	_, err := osrelease.NewDefinition(osrelease.DefinitionConfig{})
	assert.Error(t, err)
}
