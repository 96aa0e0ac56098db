package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/pkgrepo"
	"github.com/slok/tierd/internal/storage"
)

// ServiceConfig is the configuration for the stable promotion service.
type ServiceConfig struct {
	Packages   storage.PackageRepository
	Promotions storage.PromotionRepository
	Repo       pkgrepo.Manager
	TimeNow    func() time.Time
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Packages == nil {
		return fmt.Errorf("package repository is required")
	}
	if c.Promotions == nil {
		return fmt.Errorf("promotion repository is required")
	}
	if c.Repo == nil {
		return fmt.Errorf("package repository manager is required")
	}
	if c.TimeNow == nil {
		c.TimeNow = func() time.Time { return time.Now().UTC() }
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Promotion"})
	return nil
}

// Service handles the stable promotion requests.
type Service struct {
	packages   storage.PackageRepository
	promotions storage.PromotionRepository
	repo       pkgrepo.Manager
	timeNow    func() time.Time
	logger     log.Logger
}

// NewService creates a new stable promotion service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		packages:   cfg.Packages,
		promotions: cfg.Promotions,
		repo:       cfg.Repo,
		timeNow:    cfg.TimeNow,
		logger:     cfg.Logger,
	}, nil
}

// CreateRequest is the request to ask for a release architecture promotion.
type CreateRequest struct {
	PackageID   string
	ReleaseID   string
	Arch        model.Arch
	RequestedBy string
}

// Create creates a pending promotion request.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.StablePromotionRequest, error) {
	if !req.Arch.Valid() {
		return nil, fmt.Errorf("architecture %q is not supported: %w", req.Arch, model.ErrNotValid)
	}
	if req.RequestedBy == "" {
		return nil, fmt.Errorf("requester is required: %w", model.ErrNotValid)
	}

	rel, pkg, err := s.release(ctx, req.ReleaseID)
	if err != nil {
		return nil, err
	}
	if rel.PackageID != req.PackageID {
		return nil, fmt.Errorf("release %s doesn't belong to package %s: %w", rel.ID, req.PackageID, model.ErrNotValid)
	}
	if !rel.HasArch(req.Arch) {
		return nil, fmt.Errorf("release %s has no %s build: %w", rel.ID, req.Arch, model.ErrNotValid)
	}

	_, err = s.promotions.GetPromotionRequestByReleaseArch(ctx, rel.ID, req.Arch)
	if err == nil {
		return nil, fmt.Errorf("promotion request for release %s (%s): %w", rel.ID, req.Arch, model.ErrAlreadyExists)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("could not check existing promotion requests: %w", err)
	}

	inStable, err := s.repo.Exists(ctx, model.TierStable, pkgrepo.ReleaseQuery(pkg.Name, *rel, req.Arch))
	if err != nil {
		return nil, fmt.Errorf("could not check stable tier: %w", err)
	}
	if inStable {
		return nil, fmt.Errorf("release %s (%s) is already in stable: %w", rel.ID, req.Arch, model.ErrAlreadyExists)
	}

	pr := model.StablePromotionRequest{
		ID:           ulid.Make().String(),
		PackageID:    pkg.ID,
		ReleaseID:    rel.ID,
		Architecture: req.Arch,
		Status:       model.PromotionStatusPending,
		RequestedBy:  req.RequestedBy,
		CreatedAt:    s.timeNow(),
	}
	if err := s.promotions.CreatePromotionRequest(ctx, pr); err != nil {
		return nil, fmt.Errorf("could not create promotion request: %w", err)
	}
	s.logger.Infof("Promotion request %s created for %s %s (%s)", pr.ID, pkg.Name, rel.FullVersion(), req.Arch)

	return &pr, nil
}

// Approve copies the release architecture into stable and approves the request.
func (s *Service) Approve(ctx context.Context, id, reviewer, reason string) (*model.StablePromotionRequest, error) {
	pr, err := s.pending(ctx, id, reviewer)
	if err != nil {
		return nil, err
	}

	rel, pkg, err := s.release(ctx, pr.ReleaseID)
	if err != nil {
		return nil, err
	}

	q := pkgrepo.ReleaseQuery(pkg.Name, *rel, pr.Architecture)
	inStable, err := s.repo.Exists(ctx, model.TierStable, q)
	if err != nil {
		return nil, fmt.Errorf("could not check stable tier: %w", err)
	}
	if !inStable {
		if err := s.repo.Delete(ctx, model.TierStable, pkgrepo.Query{Name: pkg.Name, Arch: pr.Architecture}); err != nil {
			return nil, fmt.Errorf("could not delete previous stable version: %w", err)
		}
		if err := s.repo.Copy(ctx, model.TierStable, q); err != nil {
			return nil, fmt.Errorf("could not copy %s into stable: %w", q.Identifier(), err)
		}
		if err := s.packages.SetLatestStable(ctx, pkg.ID, pr.Architecture, rel.FullVersion()); err != nil {
			return nil, fmt.Errorf("could not set latest stable version: %w", err)
		}
		s.logger.Infof("Copied %s into stable", q.Identifier())
	}

	return s.resolve(ctx, id, model.PromotionStatusApproved, reviewer, reason)
}

// Deny denies a pending request.
func (s *Service) Deny(ctx context.Context, id, reviewer, reason string) (*model.StablePromotionRequest, error) {
	if _, err := s.pending(ctx, id, reviewer); err != nil {
		return nil, err
	}

	return s.resolve(ctx, id, model.PromotionStatusDenied, reviewer, reason)
}

// Get returns a promotion request.
func (s *Service) Get(ctx context.Context, id string) (*model.StablePromotionRequest, error) {
	return s.promotions.GetPromotionRequest(ctx, id)
}

// List returns the promotion requests matching the filter, oldest first.
func (s *Service) List(ctx context.Context, filter model.PromotionFilter) ([]model.StablePromotionRequest, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("promotion status %q is invalid: %w", *filter.Status, model.ErrNotValid)
	}

	reqs, err := s.promotions.ListPromotionRequests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("could not list promotion requests: %w", err)
	}

	return reqs, nil
}

func (s *Service) pending(ctx context.Context, id, reviewer string) (*model.StablePromotionRequest, error) {
	if reviewer == "" {
		return nil, fmt.Errorf("reviewer is required: %w", model.ErrNotValid)
	}

	pr, err := s.promotions.GetPromotionRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.Status != model.PromotionStatusPending {
		return nil, fmt.Errorf("promotion request %s is already %s: %w", id, pr.Status, model.ErrNotValid)
	}

	return pr, nil
}

// resolve resolves the request, the storage only resolves pending requests so concurrent resolutions happen once.
func (s *Service) resolve(ctx context.Context, id string, status model.PromotionStatus, reviewer, reason string) (*model.StablePromotionRequest, error) {
	if err := s.promotions.ResolvePromotionRequest(ctx, id, status, reviewer, reason, s.timeNow()); err != nil {
		return nil, fmt.Errorf("could not resolve promotion request: %w", err)
	}
	s.logger.Infof("Promotion request %s %s by %s", id, status, reviewer)

	return s.promotions.GetPromotionRequest(ctx, id)
}

func (s *Service) release(ctx context.Context, releaseID string) (*model.PackageRelease, *model.Package, error) {
	rel, err := s.packages.GetPackageRelease(ctx, releaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get release: %w", err)
	}

	pkg, err := s.packages.GetPackage(ctx, rel.PackageID)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get package: %w", err)
	}

	return rel, pkg, nil
}
