package osrelease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/scheduler"
	"github.com/slok/tierd/internal/storage"
)

// ServiceConfig is the configuration for the OS release service.
type ServiceConfig struct {
	OSReleases storage.OSReleaseRepository
	Promotions storage.PromotionRepository
	Enqueuer   scheduler.Enqueuer
	TimeNow    func() time.Time
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.OSReleases == nil {
		return fmt.Errorf("os release repository is required")
	}
	if c.Promotions == nil {
		return fmt.Errorf("promotion repository is required")
	}
	if c.Enqueuer == nil {
		return fmt.Errorf("enqueuer is required")
	}
	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.OSRelease"})
	return nil
}

// Service handles the OS release business logic.
type Service struct {
	osReleases storage.OSReleaseRepository
	promotions storage.PromotionRepository
	enqueuer   scheduler.Enqueuer
	timeNow    func() time.Time
	logger     log.Logger
}

// NewService creates a new OS release service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		osReleases: cfg.OSReleases,
		promotions: cfg.Promotions,
		enqueuer:   cfg.Enqueuer,
		timeNow:    cfg.TimeNow,
		logger:     cfg.Logger,
	}, nil
}

// CreateRequest is the request to create an OS release.
type CreateRequest struct {
	Version string
	// ReleaseIDs are the package releases moved to stable. When empty, the releases
	// approved for stable since the previous OS release are used.
	ReleaseIDs []string
	CreatedBy  string
	StoreLogs  bool
}

// CreateResponse is the response of an OS release creation.
type CreateResponse struct {
	TaskID     string
	ReleaseIDs []string
}

// Create enqueues the OS release task.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	if err := model.ValidateOSReleaseVersion(req.Version); err != nil {
		return nil, err
	}

	_, err := s.osReleases.GetOSReleaseByVersion(ctx, req.Version)
	if err == nil {
		return nil, fmt.Errorf("os release %s: %w", req.Version, model.ErrAlreadyExists)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("could not check os release version: %w", err)
	}

	ids := req.ReleaseIDs
	if len(ids) == 0 {
		ids, err = s.approvedReleases(ctx)
		if err != nil {
			return nil, err
		}
	}

	args := model.OSReleaseArgs{Version: req.Version, ReleaseIDs: ids, Timestamp: s.timeNow().UnixMilli()}
	taskID, err := s.enqueuer.EnqueueTask(ctx, args, scheduler.EnqueueMeta{
		CreatedBy: req.CreatedBy,
		Options:   model.ExecutionOptions{StoreLogs: req.StoreLogs},
	})
	if err != nil {
		return nil, fmt.Errorf("could not enqueue os release: %w", err)
	}

	s.logger.Infof("OS release %s enqueued as task %s with %d releases", req.Version, taskID, len(ids))

	return &CreateResponse{TaskID: taskID, ReleaseIDs: ids}, nil
}

// approvedReleases returns the releases with a stable promotion approved after the latest OS release.
func (s *Service) approvedReleases(ctx context.Context) ([]string, error) {
	var since time.Time
	rels, err := s.osReleases.ListOSReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list os releases: %w", err)
	}
	if len(rels) > 0 {
		since = rels[0].CreatedAt
	}

	approved := model.PromotionStatusApproved
	reqs, err := s.promotions.ListPromotionRequests(ctx, model.PromotionFilter{Status: &approved})
	if err != nil {
		return nil, fmt.Errorf("could not list approved promotion requests: %w", err)
	}

	ids := []string{}
	seen := map[string]bool{}
	for _, r := range reqs {
		if r.ResolvedAt == nil || !r.ResolvedAt.After(since) || seen[r.ReleaseID] {
			continue
		}
		seen[r.ReleaseID] = true
		ids = append(ids, r.ReleaseID)
	}

	return ids, nil
}

// List returns the OS releases, newest first.
func (s *Service) List(ctx context.Context) ([]model.OSRelease, error) {
	rels, err := s.osReleases.ListOSReleases(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list os releases: %w", err)
	}

	return rels, nil
}
