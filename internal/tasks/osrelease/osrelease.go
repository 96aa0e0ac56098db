package osrelease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/tierd/internal/conventions"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
	"github.com/slok/tierd/internal/storage"
	"github.com/slok/tierd/internal/task"
)

// SnapshotDescription is the description of the OS release snapshots.
const SnapshotDescription = "LeiOS Release"

// State is the persisted state of an OS release run.
type State struct {
	Version  string `json:"version"`
	Snapshot string `json:"snapshot"`
	// NextReleaseIndex is the cursor of the move step over the release IDs.
	NextReleaseIndex int      `json:"next_release_index"`
	Moved            []string `json:"moved"`
	Skipped          []string `json:"skipped"`
}

// Result is the result of a completed OS release.
type Result struct {
	Version      string   `json:"version"`
	Snapshot     string   `json:"snapshot"`
	Distribution string   `json:"distribution"`
	Releases     []string `json:"releases"`
	Skipped      []string `json:"skipped"`
}

// DefinitionConfig is the configuration of the OS release task type.
type DefinitionConfig struct {
	Packages   storage.PackageRepository
	OSReleases storage.OSReleaseRepository
	Journal    storage.MoveJournalRepository
	Repo       pkgrepo.Manager
	TimeNow    func() time.Time
}

func (c *DefinitionConfig) defaults() error {
	if c.Packages == nil {
		return fmt.Errorf("package repository is required")
	}
	if c.OSReleases == nil {
		return fmt.Errorf("os release repository is required")
	}
	if c.Journal == nil {
		return fmt.Errorf("move journal repository is required")
	}
	if c.Repo == nil {
		return fmt.Errorf("package repository manager is required")
	}
	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}
	return nil
}

type osRelease struct {
	packages   storage.PackageRepository
	osReleases storage.OSReleaseRepository
	journal    storage.MoveJournalRepository
	repo       pkgrepo.Manager
	timeNow    func() time.Time
}

type run = task.Run[model.OSReleaseArgs]

// NewDefinition returns the OS release task type. It moves the releases from the
// archive to the stable tier, records the OS release, snapshots stable and
// publishes the snapshot as the stable distribution.
func NewDefinition(cfg DefinitionConfig) (task.Definition[model.OSReleaseArgs, State], error) {
	if err := cfg.defaults(); err != nil {
		return task.Definition[model.OSReleaseArgs, State]{}, fmt.Errorf("invalid config: %w", err)
	}

	o := osRelease{
		packages:   cfg.Packages,
		osReleases: cfg.OSReleases,
		journal:    cfg.Journal,
		repo:       cfg.Repo,
		timeNow:    cfg.TimeNow,
	}

	return task.Definition[model.OSReleaseArgs, State]{
		Name: model.TaskTypeOSRelease,
		Init: o.init,
		Steps: []task.Step[model.OSReleaseArgs, State]{
			{Name: "Move packages from archive to stable", Run: o.movePackages},
			{Name: "Record OS release", Run: o.recordRelease},
			{Name: "Create OS release snapshot", Run: o.createSnapshot},
			{Name: "Publish OS release snapshot", Run: o.publishSnapshot},
		},
		Result: func(s *State) any {
			return Result{
				Version:      s.Version,
				Snapshot:     s.Snapshot,
				Distribution: conventions.StableDistribution,
				Releases:     nonNil(s.Moved),
				Skipped:      nonNil(s.Skipped),
			}
		},
	}, nil
}

func (o osRelease) init(ctx context.Context, r run) (*State, error) {
	return &State{
		Version:  r.Args.Version,
		Snapshot: conventions.StableSnapshotName(r.Args.Version),
	}, nil
}

func (o osRelease) movePackages(ctx context.Context, r run, s *State) task.StepResult {
	ids := r.Args.ReleaseIDs
	for ; s.NextReleaseIndex < len(ids); s.NextReleaseIndex++ {
		if r.Pause.PauseRequested() {
			r.Logger.Infof("Pausing package move at index %d", s.NextReleaseIndex)
			return task.Pause()
		}

		id := ids[s.NextReleaseIndex]
		if err := o.moveRelease(ctx, r, id); err != nil {
			r.Logger.Errorf("Skipping release %s: %s", id, err)
			s.Skipped = append(s.Skipped, id)
			continue
		}
		s.Moved = append(s.Moved, id)
	}

	r.Logger.Infof("Moved %d releases to stable (%d skipped)", len(s.Moved), len(s.Skipped))
	return task.Done()
}

func (o osRelease) moveRelease(ctx context.Context, r run, releaseID string) error {
	rel, err := o.packages.GetPackageRelease(ctx, releaseID)
	if err != nil {
		return fmt.Errorf("could not get release: %w", err)
	}

	pkg, err := o.packages.GetPackage(ctx, rel.PackageID)
	if err != nil {
		return fmt.Errorf("could not get package %s: %w", rel.PackageID, err)
	}

	for _, arch := range model.Archs {
		if !rel.HasArch(arch) {
			continue
		}

		// Stable keeps a single version per package architecture. Only real
		// removals are journaled.
		previous := pkgrepo.Query{Name: pkg.Name, Arch: arch}
		inStable, err := o.repo.Exists(ctx, model.TierStable, previous)
		if err != nil {
			return fmt.Errorf("could not check %s (%s) on stable: %w", pkg.Name, arch, err)
		}
		if inStable {
			if err := o.repo.Delete(ctx, model.TierStable, previous); err != nil {
				return fmt.Errorf("could not delete %s (%s) from stable: %w", pkg.Name, arch, err)
			}
			if err := o.record(ctx, r.TaskID, rel, pkg, arch, model.MoveActionDelete, pkg.LatestStable[arch]); err != nil {
				return err
			}
		}

		q := pkgrepo.ReleaseQuery(pkg.Name, *rel, arch)
		if err := o.repo.Copy(ctx, model.TierStable, q); err != nil {
			return fmt.Errorf("could not copy %s into stable: %w", q.Identifier(), err)
		}
		if err := o.record(ctx, r.TaskID, rel, pkg, arch, model.MoveActionCopy, rel.FullVersion()); err != nil {
			return err
		}

		if err := o.packages.SetLatestStable(ctx, pkg.ID, arch, rel.FullVersion()); err != nil {
			return fmt.Errorf("could not set latest stable of %s (%s): %w", pkg.Name, arch, err)
		}
		r.Logger.Debugf("Moved %s to stable", q.Identifier())
	}

	return nil
}

func (o osRelease) record(ctx context.Context, taskID string, rel *model.PackageRelease, pkg *model.Package, arch model.Arch, action model.MoveAction, fullVersion string) error {
	err := o.journal.RecordMove(ctx, model.MoveRecord{
		TaskID:      taskID,
		ReleaseID:   rel.ID,
		PackageName: pkg.Name,
		FullVersion: fullVersion,
		Arch:        arch,
		Tier:        model.TierStable,
		Action:      action,
		CreatedAt:   o.timeNow(),
	})
	if err != nil {
		return fmt.Errorf("could not record %s of %s (%s): %w", action, pkg.Name, arch, err)
	}

	return nil
}

func (o osRelease) recordRelease(ctx context.Context, r run, s *State) task.StepResult {
	err := o.osReleases.CreateOSRelease(ctx, model.OSRelease{
		Version:   s.Version,
		TaskID:    r.TaskID,
		CreatedAt: o.timeNow(),
	})
	if err == nil {
		r.Logger.Infof("OS release %s recorded", s.Version)
		return task.Done()
	}

	if !errors.Is(err, model.ErrAlreadyExists) {
		return task.Failf("could not record os release: %s", err)
	}

	existing, err := o.osReleases.GetOSReleaseByVersion(ctx, s.Version)
	if err != nil {
		return task.Failf("could not get existing os release: %s", err)
	}
	if existing.TaskID != r.TaskID {
		return task.Failf("os release %s already exists (created by task %s)", s.Version, existing.TaskID)
	}
	r.Logger.Infof("OS release %s already recorded by this task", s.Version)

	return task.Done()
}

func (o osRelease) createSnapshot(ctx context.Context, r run, s *State) task.StepResult {
	err := o.repo.CreateSnapshot(ctx, model.TierStable, s.Snapshot, SnapshotDescription)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			r.Logger.Warningf("Snapshot %s already exists, reusing it", s.Snapshot)
			return task.Done()
		}
		return task.Failf("could not create snapshot: %s", err)
	}
	r.Logger.Infof("OS release snapshot %s created", s.Snapshot)

	return task.Done()
}

func (o osRelease) publishSnapshot(ctx context.Context, r run, s *State) task.StepResult {
	if err := o.repo.PublishSnapshot(ctx, s.Snapshot, conventions.StableDistribution); err != nil {
		return task.Failf("could not publish snapshot: %s", err)
	}
	r.Logger.Infof("OS release published to %s from snapshot %s", conventions.StableDistribution, s.Snapshot)

	return task.Done()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
