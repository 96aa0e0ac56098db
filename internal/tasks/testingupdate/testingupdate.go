package testingupdate

import (
	"context"
	"fmt"

	"github.com/slok/tierd/internal/conventions"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
	"github.com/slok/tierd/internal/task"
)

// State is the state of a testing update run, there is nothing to keep.
type State struct{}

// Result is the result of a testing update.
type Result struct {
	Distribution string `json:"distribution"`
}

// NewDefinition returns the testing repository update task type, it refreshes
// the published testing distribution from the testing tier.
func NewDefinition(repo pkgrepo.Manager) (task.Definition[model.TestingRepoUpdateArgs, State], error) {
	if repo == nil {
		return task.Definition[model.TestingRepoUpdateArgs, State]{}, fmt.Errorf("package repository manager is required")
	}

	return task.Definition[model.TestingRepoUpdateArgs, State]{
		Name: model.TaskTypeTestingRepoUpdate,
		Init: func(ctx context.Context, r task.Run[model.TestingRepoUpdateArgs]) (*State, error) {
			return &State{}, nil
		},
		Steps: []task.Step[model.TestingRepoUpdateArgs, State]{
			{
				Name: "Update published testing repository",
				Run: func(ctx context.Context, r task.Run[model.TestingRepoUpdateArgs], s *State) task.StepResult {
					if err := repo.UpdatePublished(ctx, conventions.TestingDistribution); err != nil {
						return task.Failf("could not update testing repository: %s", err)
					}
					r.Logger.Infof("Published testing repository updated")
					return task.Done()
				},
			},
		},
		Result: func(*State) any { return Result{Distribution: conventions.TestingDistribution} },
	}, nil
}
