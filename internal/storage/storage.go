package storage

import (
	"context"
	"time"

	"github.com/slok/tierd/internal/model"
)

//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name TaskRepository --structname MockTaskRepository
//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name PackageRepository --structname MockPackageRepository
//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name PromotionRepository --structname MockPromotionRepository
//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name OSReleaseRepository --structname MockOSReleaseRepository
//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name MoveJournalRepository --structname MockMoveJournalRepository

// TaskRepository is the interface for background task persistence.
type TaskRepository interface {
	// CreateTask stores a new task and returns its ID. If the task has no ID one will be generated.
	CreateTask(ctx context.Context, t model.Task) (string, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// UpdateTask updates the status, result, message and finish time of a task. Any status
	// other than paused removes the task continuation state in the same transaction.
	UpdateTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	// ListPendingOrPausedTasks returns the recoverable tasks, oldest first.
	ListPendingOrPausedTasks(ctx context.Context) ([]model.Task, error)
	// ListCompletedAutoDeleteTasks returns the completed tasks that should be removed, oldest finished first.
	ListCompletedAutoDeleteTasks(ctx context.Context) ([]model.Task, error)

	GetPausedState(ctx context.Context, taskID string) (*model.ContinuationState, error)
	SavePausedState(ctx context.Context, s model.ContinuationState) error
	DeletePausedState(ctx context.Context, taskID string) error
	// PauseTask stores the continuation state and sets the task as paused atomically.
	PauseTask(ctx context.Context, s model.ContinuationState) error
}

// PackageRepository is the interface for package and package release persistence.
type PackageRepository interface {
	CreatePackage(ctx context.Context, p model.Package) error
	GetPackage(ctx context.Context, id string) (*model.Package, error)
	GetPackageByName(ctx context.Context, name string) (*model.Package, error)
	ListPackages(ctx context.Context) ([]model.Package, error)
	// SetLatestStable sets the stable tier version pointer of a package architecture.
	SetLatestStable(ctx context.Context, packageID string, arch model.Arch, fullVersion string) error
	// SetLatestTesting sets the testing tier version pointer of a package architecture.
	SetLatestTesting(ctx context.Context, packageID string, arch model.Arch, fullVersion string) error

	CreatePackageRelease(ctx context.Context, r model.PackageRelease) error
	GetPackageRelease(ctx context.Context, id string) (*model.PackageRelease, error)
	ListPackageReleases(ctx context.Context, packageID string) ([]model.PackageRelease, error)
}

// PromotionRepository is the interface for stable promotion request persistence.
type PromotionRepository interface {
	CreatePromotionRequest(ctx context.Context, r model.StablePromotionRequest) error
	GetPromotionRequest(ctx context.Context, id string) (*model.StablePromotionRequest, error)
	// GetPromotionRequestByReleaseArch returns the request of a release architecture.
	GetPromotionRequestByReleaseArch(ctx context.Context, releaseID string, arch model.Arch) (*model.StablePromotionRequest, error)
	ListPromotionRequests(ctx context.Context, filter model.PromotionFilter) ([]model.StablePromotionRequest, error)
	// ResolvePromotionRequest resolves a pending request. Requests that are not pending
	// anymore return model.ErrNotValid.
	ResolvePromotionRequest(ctx context.Context, id string, status model.PromotionStatus, reviewer, reason string, at time.Time) error
}

// OSReleaseRepository is the interface for OS release persistence.
type OSReleaseRepository interface {
	CreateOSRelease(ctx context.Context, r model.OSRelease) error
	GetOSReleaseByVersion(ctx context.Context, version string) (*model.OSRelease, error)
	// ListOSReleases returns the OS releases, newest first.
	ListOSReleases(ctx context.Context) ([]model.OSRelease, error)
}

// MoveJournalRepository is the interface for the repository mutation journal.
type MoveJournalRepository interface {
	RecordMove(ctx context.Context, m model.MoveRecord) error
	// ListMoves returns the moves of a task in the order they happened.
	ListMoves(ctx context.Context, taskID string) ([]model.MoveRecord, error)
}
