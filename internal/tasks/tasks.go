package tasks

import (
	"fmt"

	"github.com/slok/tierd/internal/pkgrepo"
	"github.com/slok/tierd/internal/storage"
	"github.com/slok/tierd/internal/task"
	"github.com/slok/tierd/internal/tasks/osrelease"
	"github.com/slok/tierd/internal/tasks/testingupdate"
)

// Dependencies are the dependencies of the task types.
type Dependencies struct {
	Packages   storage.PackageRepository
	OSReleases storage.OSReleaseRepository
	Journal    storage.MoveJournalRepository
	Repo       pkgrepo.Manager
}

// Register registers every task type on the registry.
func Register(reg *task.Registry, deps Dependencies) error {
	osRelease, err := osrelease.NewDefinition(osrelease.DefinitionConfig{
		Packages:   deps.Packages,
		OSReleases: deps.OSReleases,
		Journal:    deps.Journal,
		Repo:       deps.Repo,
	})
	if err != nil {
		return fmt.Errorf("could not create os release task type: %w", err)
	}

	testingUpdate, err := testingupdate.NewDefinition(deps.Repo)
	if err != nil {
		return fmt.Errorf("could not create testing update task type: %w", err)
	}

	for _, t := range []task.Type{osRelease, testingUpdate} {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("could not register %s: %w", t.TaskType(), err)
		}
	}

	return nil
}
