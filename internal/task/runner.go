package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
)

// Execution is a single run of a task.
type Execution struct {
	Task model.Task
	Type Type
	// Continuation is the paused state to resume from, nil for a fresh run.
	Continuation *model.ContinuationState
	Logger       Logger
	Pause        PauseToken
}

// Outcome is the final status of an execution.
type Outcome struct {
	// Status is completed, failed or paused.
	Status model.TaskStatus
	// NextStep and State are set when paused.
	NextStep int
	State    []byte
	// Message is the failure message.
	Message string
	// Result is the JSON result of a completed task.
	Result []byte
}

// RunnerConfig is the configuration for the task runner.
type RunnerConfig struct {
	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Runner"})
	return nil
}

// Runner executes the steps of a task from its cursor until it completes,
// fails or pauses. It doesn't know about persistence.
type Runner struct {
	logger log.Logger
}

// NewRunner returns a new task runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{logger: cfg.Logger}, nil
}

// Run executes the task.
func (r *Runner) Run(ctx context.Context, ex Execution) Outcome {
	if ex.Logger == nil {
		ex.Logger = log.Noop
	}
	if ex.Pause == nil {
		ex.Pause = NewPauseSignal()
	}
	logger := ex.Logger

	if ex.Type == nil {
		return failed(fmt.Sprintf("task type %q is not registered", ex.Task.Type))
	}

	inst, err := ex.Type.Bind(ex.Task.Args, Env{TaskID: ex.Task.ID, Logger: logger, Pause: ex.Pause})
	if err != nil {
		return failed(err.Error())
	}

	steps := ex.Type.StepNames()
	cursor := 0
	if ex.Continuation == nil {
		if err := safeInit(ctx, inst); err != nil {
			logger.Errorf("Task initialization failed: %s", err)
			return failed(fmt.Sprintf("initialization failed: %s", err))
		}
	} else {
		cursor = ex.Continuation.NextStep
		if cursor < 0 || cursor > len(steps) {
			return failed(fmt.Sprintf("invalid continuation step %d", cursor))
		}
		if err := inst.Restore(ex.Continuation.Data); err != nil {
			return failed(err.Error())
		}
		logger.Infof("Resuming task at step %d/%d", cursor+1, len(steps))
	}

	for i := cursor; i < len(steps); i++ {
		logger.Infof("Running step %d/%d: %s", i+1, len(steps), steps[i])

		res := safeRunStep(ctx, inst, i)
		switch {
		case res.Paused:
			logger.Infof("Step %q paused", steps[i])
			return paused(inst, i)

		case !res.Success:
			logger.Errorf("Step %q failed: %s", steps[i], res.Message)
			return failed(res.Message)
		}

		logger.Debugf("Step %q done", steps[i])

		if ex.Pause.PauseRequested() && i+1 < len(steps) {
			logger.Infof("Pause requested, task will resume at step %d/%d", i+2, len(steps))
			return paused(inst, i+1)
		}
	}

	result, err := json.Marshal(inst.Result())
	if err != nil {
		return failed(fmt.Sprintf("could not marshal task result: %s", err))
	}
	logger.Infof("Task completed")

	return Outcome{Status: model.TaskStatusCompleted, Result: result}
}

func paused(inst Instance, next int) Outcome {
	state, err := inst.State()
	if err != nil {
		return failed(err.Error())
	}
	return Outcome{Status: model.TaskStatusPaused, NextStep: next, State: state}
}

func failed(msg string) Outcome {
	return Outcome{Status: model.TaskStatusFailed, Message: msg}
}

func safeInit(ctx context.Context, inst Instance) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return inst.Init(ctx)
}

func safeRunStep(ctx context.Context, inst Instance, i int) (res StepResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Failf("panic: %v", rec)
		}
	}()
	return inst.RunStep(ctx, i)
}
