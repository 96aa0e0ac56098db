package httpapi

import (
	"encoding/json"
	"time"

	"github.com/slok/tierd/internal/model"
)

// ErrorResponse is the body of every non-success response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TaskResponse is a background task.
type TaskResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	Args       json.RawMessage `json:"args,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Message    string          `json:"message,omitempty"`
	CreatedBy  string          `json:"created_by,omitempty"`
	AutoDelete bool            `json:"auto_delete"`
	StoreLogs  bool            `json:"store_logs"`
}

// MoveResponse is a repository mutation done by a task.
type MoveResponse struct {
	ReleaseID   string    `json:"release_id"`
	PackageName string    `json:"package_name"`
	FullVersion string    `json:"full_version"`
	Arch        string    `json:"arch"`
	Tier        string    `json:"tier"`
	Action      string    `json:"action"`
	CreatedAt   time.Time `json:"created_at"`
}

// EnqueueResponse is the response of the operations that enqueue a task.
type EnqueueResponse struct {
	TaskID string `json:"task_id"`
}

// CreateOSReleaseRequest enqueues an OS release.
type CreateOSReleaseRequest struct {
	Version string `json:"version" validate:"required"`
	// ReleaseIDs defaults to the releases approved since the latest OS release.
	ReleaseIDs []string `json:"release_ids,omitempty" validate:"dive,required"`
	CreatedBy  string   `json:"created_by" validate:"required"`
	StoreLogs  bool     `json:"store_logs"`
}

// CreateOSReleaseResponse is the enqueued OS release.
type CreateOSReleaseResponse struct {
	TaskID     string   `json:"task_id"`
	ReleaseIDs []string `json:"release_ids"`
}

// OSReleaseResponse is a published OS release.
type OSReleaseResponse struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	TaskID    string    `json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateTestingRequest enqueues a testing distribution refresh.
type UpdateTestingRequest struct {
	CreatedBy  string `json:"created_by" validate:"required"`
	StoreLogs  bool   `json:"store_logs"`
	AutoDelete bool   `json:"auto_delete"`
}

// CreatePromotionRequest asks for a release architecture promotion to stable.
type CreatePromotionRequest struct {
	PackageID   string `json:"package_id" validate:"required"`
	ReleaseID   string `json:"release_id" validate:"required"`
	Arch        string `json:"arch" validate:"required,oneof=amd64 arm64"`
	RequestedBy string `json:"requested_by" validate:"required"`
}

// ResolvePromotionRequest approves or denies a promotion request.
type ResolvePromotionRequest struct {
	Reviewer string `json:"reviewer" validate:"required"`
	Reason   string `json:"reason" validate:"max=1024"`
}

// PromotionResponse is a stable promotion request.
type PromotionResponse struct {
	ID             string     `json:"id"`
	PackageID      string     `json:"package_id"`
	ReleaseID      string     `json:"release_id"`
	Arch           string     `json:"arch"`
	Status         string     `json:"status"`
	RequestedBy    string     `json:"requested_by"`
	ReviewedBy     string     `json:"reviewed_by,omitempty"`
	DecisionReason string     `json:"decision_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func mapTask(t model.Task, running bool) (TaskResponse, error) {
	resp := TaskResponse{
		ID:         t.ID,
		Type:       t.Type,
		Status:     string(t.Status),
		CreatedAt:  t.CreatedAt,
		FinishedAt: t.FinishedAt,
		Result:     t.Result,
		Message:    t.Message,
		CreatedBy:  t.CreatedBy,
		AutoDelete: t.Options.AutoDelete,
		StoreLogs:  t.Options.StoreLogs,
	}
	if running {
		resp.Status = string(model.TaskStatusRunning)
	}

	if t.Args != nil {
		args, err := model.EncodeTaskArgs(t.Args)
		if err != nil {
			return TaskResponse{}, err
		}
		resp.Args = args
	}

	return resp, nil
}

func mapMove(m model.MoveRecord) MoveResponse {
	return MoveResponse{
		ReleaseID:   m.ReleaseID,
		PackageName: m.PackageName,
		FullVersion: m.FullVersion,
		Arch:        string(m.Arch),
		Tier:        string(m.Tier),
		Action:      string(m.Action),
		CreatedAt:   m.CreatedAt,
	}
}

func mapOSRelease(r model.OSRelease) OSReleaseResponse {
	return OSReleaseResponse{ID: r.ID, Version: r.Version, TaskID: r.TaskID, CreatedAt: r.CreatedAt}
}

func mapPromotion(r model.StablePromotionRequest) PromotionResponse {
	return PromotionResponse{
		ID:             r.ID,
		PackageID:      r.PackageID,
		ReleaseID:      r.ReleaseID,
		Arch:           string(r.Architecture),
		Status:         string(r.Status),
		RequestedBy:    r.RequestedBy,
		ReviewedBy:     r.ReviewedBy,
		DecisionReason: r.DecisionReason,
		CreatedAt:      r.CreatedAt,
		ResolvedAt:     r.ResolvedAt,
	}
}
