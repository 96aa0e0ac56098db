package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/slok/tierd/internal/model"
)

// PauseToken is the cooperative pause request of a running task. Steps and the
// runner check it, nothing is ever interrupted.
type PauseToken interface {
	PauseRequested() bool
	// Done is closed when the pause is requested.
	Done() <-chan struct{}
}

// PauseSignal is a settable PauseToken.
type PauseSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewPauseSignal returns a new unset pause signal.
func NewPauseSignal() *PauseSignal {
	return &PauseSignal{ch: make(chan struct{})}
}

// Request requests the pause, it can be called multiple times.
func (p *PauseSignal) Request() { p.once.Do(func() { close(p.ch) }) }

func (p *PauseSignal) Done() <-chan struct{} { return p.ch }

func (p *PauseSignal) PauseRequested() bool {
	select {
	case <-p.ch:
		return true
	default:
		return false
	}
}

// Logger is the logger a task execution writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StepResult is the result of a step execution.
type StepResult struct {
	Success bool
	// Paused makes the runner persist the state and stop, the same step will be
	// executed again on resume.
	Paused  bool
	Message string
}

// Done is a successful step result.
func Done() StepResult { return StepResult{Success: true} }

// Pause is the result of a step that stopped because of a pause request.
func Pause() StepResult { return StepResult{Success: true, Paused: true} }

// Fail is a failed step result.
func Fail(msg string) StepResult { return StepResult{Message: msg} }

// Failf is like Fail with formatting.
func Failf(format string, args ...any) StepResult {
	return StepResult{Message: fmt.Sprintf(format, args...)}
}

// Run is what a step sees of the task execution.
type Run[A model.TaskArgs] struct {
	TaskID string
	Args   A
	Logger Logger
	Pause  PauseToken
}

// Step is a named unit of work of a task type. S is the task state that is
// persisted between steps when the task is paused.
type Step[A model.TaskArgs, S any] struct {
	Name string
	Run  func(ctx context.Context, run Run[A], state *S) StepResult
}

// Definition is a step based task type.
//
// Steps are executed in order. A task that is recovered after a crash while
// pending starts again from Init, so steps need to be idempotent.
type Definition[A model.TaskArgs, S any] struct {
	// Name is the task type name, it must match the arguments type name.
	Name string
	// Init creates the initial state of a new execution.
	Init  func(ctx context.Context, run Run[A]) (*S, error)
	Steps []Step[A, S]
	// Result returns the task result from the final state. Optional.
	Result func(state *S) any
}

// Env is the environment of a task execution.
type Env struct {
	TaskID string
	Logger Logger
	Pause  PauseToken
}

// Type is a task type the registry and the runner use without knowing its arguments and state types.
type Type interface {
	TaskType() string
	StepNames() []string
	// Bind prepares an execution of the task type.
	Bind(args model.TaskArgs, env Env) (Instance, error)
}

// Instance is a single execution of a task type, it holds the execution state.
type Instance interface {
	Init(ctx context.Context) error
	// Restore loads a previously saved state.
	Restore(data []byte) error
	RunStep(ctx context.Context, i int) StepResult
	State() ([]byte, error)
	Result() any
}

func (d Definition[A, S]) TaskType() string { return d.Name }

func (d Definition[A, S]) StepNames() []string {
	names := make([]string, 0, len(d.Steps))
	for _, s := range d.Steps {
		names = append(names, s.Name)
	}
	return names
}

// Bind satisfies Type.
func (d Definition[A, S]) Bind(args model.TaskArgs, env Env) (Instance, error) {
	a, ok := args.(A)
	if !ok {
		return nil, fmt.Errorf("arguments %T are not valid for task type %q: %w", args, d.Name, model.ErrNotValid)
	}

	return &instance[A, S]{
		def: d,
		run: Run[A]{TaskID: env.TaskID, Args: a, Logger: env.Logger, Pause: env.Pause},
	}, nil
}

type instance[A model.TaskArgs, S any] struct {
	def   Definition[A, S]
	run   Run[A]
	state *S
}

func (i *instance[A, S]) Init(ctx context.Context) error {
	if i.def.Init == nil {
		i.state = new(S)
		return nil
	}

	s, err := i.def.Init(ctx, i.run)
	if err != nil {
		return err
	}
	if s == nil {
		s = new(S)
	}
	i.state = s

	return nil
}

func (i *instance[A, S]) Restore(data []byte) error {
	s := new(S)
	if len(data) > 0 {
		if err := json.Unmarshal(data, s); err != nil {
			return fmt.Errorf("could not unmarshal task state: %w", err)
		}
	}
	i.state = s

	return nil
}

func (i *instance[A, S]) RunStep(ctx context.Context, idx int) StepResult {
	return i.def.Steps[idx].Run(ctx, i.run, i.state)
}

func (i *instance[A, S]) State() ([]byte, error) {
	data, err := json.Marshal(i.state)
	if err != nil {
		return nil, fmt.Errorf("could not marshal task state: %w", err)
	}
	return data, nil
}

func (i *instance[A, S]) Result() any {
	if i.def.Result == nil {
		return nil
	}
	return i.def.Result(i.state)
}
