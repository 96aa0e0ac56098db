package testingupdate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo/pkgrepomock"
	"github.com/slok/tierd/internal/task"
	"github.com/slok/tierd/internal/tasks/testingupdate"
)

func TestTestingUpdate(t *testing.T) {
	tests := map[string]struct {
		mock       func(m *pkgrepomock.MockManager)
		expStatus  model.TaskStatus
		expMessage string
		expResult  string
	}{
		"Updating the testing distribution should complete.": {
			mock: func(m *pkgrepomock.MockManager) {
				m.On("UpdatePublished", mock.Anything, "testing").Once().Return(nil)
			},
			expStatus: model.TaskStatusCompleted,
			expResult: `{"distribution":"testing"}`,
		},

		"An update error should fail the task.": {
			mock: func(m *pkgrepomock.MockManager) {
				m.On("UpdatePublished", mock.Anything, "testing").Once().Return(errors.New("aptly down"))
			},
			expStatus:  model.TaskStatusFailed,
			expMessage: "could not update testing repository: aptly down",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			m := pkgrepomock.NewMockManager(t)
			test.mock(m)

			def, err := testingupdate.NewDefinition(m)
			require.NoError(err)
			runner, err := task.NewRunner(task.RunnerConfig{Logger: log.Noop})
			require.NoError(err)

			out := runner.Run(context.Background(), task.Execution{
				Task: model.Task{ID: "t1", Type: model.TaskTypeTestingRepoUpdate, Args: model.TestingRepoUpdateArgs{}},
				Type: def,
			})

			assert.Equal(test.expStatus, out.Status)
			assert.Equal(test.expMessage, out.Message)
			if test.expResult != "" {
				assert.JSONEq(test.expResult, string(out.Result))
			}
		})
	}
}

func TestNewDefinitionRequiresManager(t *testing.T) {
	_, err := testingupdate.NewDefinition(nil)
	assert.Error(t, err)
}
