package fake_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
	"github.com/slok/tierd/internal/pkgrepo/fake"
)

var (
	htop1AMD = pkgrepo.Query{Name: "htop", Version: "3.3.0", PatchSuffix: "1", Arch: model.ArchAMD64}
	htop1ARM = pkgrepo.Query{Name: "htop", Version: "3.3.0", PatchSuffix: "1", Arch: model.ArchARM64}
	htop2AMD = pkgrepo.Query{Name: "htop", Version: "3.4.0", Arch: model.ArchAMD64}
)

func TestManager(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, m *fake.Manager)
	}{
		"Copying an archived artifact should make it exist on the target tier.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				require.NoError(t, m.Copy(ctx, model.TierStable, htop1AMD))

				ok, err := m.Exists(ctx, model.TierStable, pkgrepo.Query{Name: "htop", Arch: model.ArchAMD64})
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = m.Exists(ctx, model.TierStable, pkgrepo.Query{Name: "htop", Arch: model.ArchARM64})
				require.NoError(t, err)
				assert.False(t, ok)
			},
		},

		"Copying a missing artifact should fail as a remote error.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				err := m.Copy(ctx, model.TierStable, pkgrepo.Query{Name: "missing", Version: "1", Arch: model.ArchAMD64})
				assert.ErrorIs(t, err, model.ErrRemote)
			},
		},

		"Copying with an incomplete query should fail.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				err := m.Copy(ctx, model.TierStable, pkgrepo.Query{Name: "htop"})
				assert.ErrorIs(t, err, model.ErrNotValid)
			},
		},

		"Deleting by name and arch should remove every version of that arch.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				for _, q := range []pkgrepo.Query{htop1AMD, htop1ARM, htop2AMD} {
					require.NoError(t, m.Copy(ctx, model.TierStable, q))
				}

				require.NoError(t, m.Delete(ctx, model.TierStable, pkgrepo.Query{Name: "htop", Arch: model.ArchAMD64}))
				assert.Equal(t, []string{"htop_3.3.0leios1_arm64"}, m.Packages(model.TierStable))
			},
		},

		"Deleting nothing should not fail.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				assert.NoError(t, m.Delete(ctx, model.TierStable, pkgrepo.Query{Name: "nothing"}))
			},
		},

		"Snapshots should be immutable and unique.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				require.NoError(t, m.Copy(ctx, model.TierStable, htop1AMD))
				require.NoError(t, m.CreateSnapshot(ctx, model.TierStable, "leios-stable-2024.01.1", "LeiOS Release"))
				require.NoError(t, m.Copy(ctx, model.TierStable, htop1ARM))

				err := m.CreateSnapshot(ctx, model.TierStable, "leios-stable-2024.01.1", "LeiOS Release")
				assert.ErrorIs(t, err, model.ErrAlreadyExists)

				got, ok := m.Snapshot("leios-stable-2024.01.1")
				assert.True(t, ok)
				assert.Equal(t, []string{"htop_3.3.0leios1_amd64"}, got)
			},
		},

		"Publishing a snapshot should switch the distribution.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				assert.ErrorIs(t, m.PublishSnapshot(ctx, "missing", "stable"), model.ErrRemote)

				require.NoError(t, m.CreateSnapshot(ctx, model.TierStable, "snap", ""))
				require.NoError(t, m.PublishSnapshot(ctx, "snap", "stable"))
				assert.Equal(t, "snap", m.Published("stable"))
			},
		},

		"Updating a published distribution should be counted.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				require.NoError(t, m.UpdatePublished(ctx, "testing"))
				assert.Equal(t, 1, m.Updates("testing"))
				assert.ErrorIs(t, m.UpdatePublished(ctx, "unknown"), model.ErrRemote)
			},
		},

		"Injected failures should be returned.": {
			actions: func(ctx context.Context, t *testing.T, m *fake.Manager) {
				errTest := errors.New("test error")
				m.SetFailure(fake.OpCreateSnapshot, errTest)
				assert.ErrorIs(t, m.CreateSnapshot(ctx, model.TierStable, "snap", ""), errTest)

				m.SetFailure(fake.OpCreateSnapshot, nil)
				assert.NoError(t, m.CreateSnapshot(ctx, model.TierStable, "snap", ""))
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := fake.NewManager(fake.ManagerConfig{Logger: log.Noop})
			require.NoError(t, err)
			for _, q := range []pkgrepo.Query{htop1AMD, htop1ARM, htop2AMD} {
				require.NoError(t, m.AddToArchive(q))
			}

			test.actions(context.Background(), t, m)
		})
	}
}
