package model

import (
	"encoding/json"
	"fmt"
	"regexp"
)

const (
	// TaskTypeOSRelease moves approved releases to stable, snapshots and publishes stable.
	TaskTypeOSRelease = "os-release:create"
	// TaskTypeTestingRepoUpdate refreshes the published testing distribution.
	TaskTypeTestingRepoUpdate = "testing-repo:update"
)

// TaskArgs are the enqueue time arguments of a task. Every registered task
// type has its own implementation, the persisted task type name selects it.
type TaskArgs interface {
	TaskType() string
	Validate() error
}

// OSReleaseArgs are the arguments of the OS release task.
type OSReleaseArgs struct {
	Version    string   `json:"version"`
	ReleaseIDs []string `json:"release_ids"`
	Timestamp  int64    `json:"timestamp"`
}

var osReleaseVersionRegexp = regexp.MustCompile(`^\d{4}\.\d{2}\.\d+$`)

func (OSReleaseArgs) TaskType() string { return TaskTypeOSRelease }

// Validate validates the OS release arguments.
func (a OSReleaseArgs) Validate() error {
	if err := ValidateOSReleaseVersion(a.Version); err != nil {
		return err
	}

	for i, id := range a.ReleaseIDs {
		if id == "" {
			return fmt.Errorf("release id at index %d is empty: %w", i, ErrNotValid)
		}
	}

	return nil
}

// ValidateOSReleaseVersion validates an OS release version (YYYY.MM.N).
func ValidateOSReleaseVersion(version string) error {
	if version == "" {
		return fmt.Errorf("os release version is required: %w", ErrNotValid)
	}

	if !osReleaseVersionRegexp.MatchString(version) {
		return fmt.Errorf("os release version %q is invalid (expected YYYY.MM.N): %w", version, ErrNotValid)
	}

	return nil
}

// TestingRepoUpdateArgs are the arguments of the testing repository update task.
type TestingRepoUpdateArgs struct{}

func (TestingRepoUpdateArgs) TaskType() string { return TaskTypeTestingRepoUpdate }
func (TestingRepoUpdateArgs) Validate() error  { return nil }

// EncodeTaskArgs serializes task arguments for persistence.
func EncodeTaskArgs(args TaskArgs) ([]byte, error) {
	if args == nil {
		return nil, fmt.Errorf("task arguments are required: %w", ErrNotValid)
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("could not marshal %q task arguments: %w", args.TaskType(), err)
	}

	return data, nil
}

// UndecodedTaskArgs are the stored arguments of a task that could not be
// decoded, either because its type is not known anymore or because the data
// is corrupt. They keep the task listable, the scheduler fails it.
type UndecodedTaskArgs struct {
	Type   string
	Data   json.RawMessage
	Reason string
}

func (a UndecodedTaskArgs) TaskType() string { return a.Type }

// Validate always fails, undecoded arguments can't be executed.
func (a UndecodedTaskArgs) Validate() error {
	return fmt.Errorf("%q task arguments could not be decoded: %s: %w", a.Type, a.Reason, ErrNotValid)
}

// MarshalJSON returns the stored data as is.
func (a UndecodedTaskArgs) MarshalJSON() ([]byte, error) {
	if json.Valid(a.Data) {
		return a.Data, nil
	}
	return json.Marshal(string(a.Data))
}

// DecodeTaskArgs resolves the arguments variant of a task type from its
// persisted representation.
func DecodeTaskArgs(taskType string, data []byte) (TaskArgs, error) {
	switch taskType {
	case TaskTypeOSRelease:
		var args OSReleaseArgs
		if err := json.Unmarshal(data, &args); err != nil {
			return nil, fmt.Errorf("could not unmarshal %q task arguments: %w", taskType, err)
		}
		return args, nil
	case TaskTypeTestingRepoUpdate:
		return TestingRepoUpdateArgs{}, nil
	}

	return nil, fmt.Errorf("unknown task type %q: %w", taskType, ErrNotValid)
}
