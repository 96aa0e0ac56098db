package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/tierd/internal/model"
)

// CreatePackage creates a new package.
func (r *Repository) CreatePackage(ctx context.Context, p model.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := p.Validate(); err != nil {
		return err
	}

	for _, existing := range r.packages {
		if existing.ID == p.ID || existing.Name == p.Name {
			return fmt.Errorf("package %s: %w", p.Name, model.ErrAlreadyExists)
		}
	}

	p.LatestStable = cloneVersions(p.LatestStable)
	p.LatestTesting = cloneVersions(p.LatestTesting)
	r.packages[p.ID] = p

	return nil
}

// GetPackage retrieves a package by ID.
func (r *Repository) GetPackage(ctx context.Context, id string) (*model.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.packages[id]
	if !ok {
		return nil, fmt.Errorf("package %s: %w", id, model.ErrNotFound)
	}

	return copyPackage(p), nil
}

// GetPackageByName retrieves a package by name.
func (r *Repository) GetPackageByName(ctx context.Context, name string) (*model.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.packages {
		if p.Name == name {
			return copyPackage(p), nil
		}
	}

	return nil, fmt.Errorf("package %s: %w", name, model.ErrNotFound)
}

// ListPackages returns all the packages sorted by name.
func (r *Repository) ListPackages(ctx context.Context) ([]model.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pkgs := make([]model.Package, 0, len(r.packages))
	for _, p := range r.packages {
		pkgs = append(pkgs, *copyPackage(p))
	}
	slices.SortFunc(pkgs, func(a, b model.Package) int { return strings.Compare(a.Name, b.Name) })

	return pkgs, nil
}

// SetLatestStable sets the stable version pointer of a package architecture.
func (r *Repository) SetLatestStable(ctx context.Context, packageID string, arch model.Arch, fullVersion string) error {
	return r.setLatest(packageID, arch, fullVersion, true)
}

// SetLatestTesting sets the testing version pointer of a package architecture.
func (r *Repository) SetLatestTesting(ctx context.Context, packageID string, arch model.Arch, fullVersion string) error {
	return r.setLatest(packageID, arch, fullVersion, false)
}

func (r *Repository) setLatest(packageID string, arch model.Arch, fullVersion string, stable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !arch.Valid() {
		return fmt.Errorf("architecture %q is not supported: %w", arch, model.ErrNotValid)
	}

	p, ok := r.packages[packageID]
	if !ok {
		return fmt.Errorf("package %s: %w", packageID, model.ErrNotFound)
	}

	versions := &p.LatestTesting
	if stable {
		versions = &p.LatestStable
	}
	if *versions == nil {
		*versions = map[model.Arch]string{}
	}
	if fullVersion == "" {
		delete(*versions, arch)
	} else {
		(*versions)[arch] = fullVersion
	}
	r.packages[packageID] = p

	return nil
}

// CreatePackageRelease creates a new package release.
func (r *Repository) CreatePackageRelease(ctx context.Context, rel model.PackageRelease) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := rel.Validate(); err != nil {
		return err
	}

	if _, ok := r.packages[rel.PackageID]; !ok {
		return fmt.Errorf("package %s: %w", rel.PackageID, model.ErrNotFound)
	}

	for _, existing := range r.releases {
		if existing.ID == rel.ID ||
			(existing.PackageID == rel.PackageID && existing.Version == rel.Version && existing.PatchSuffix == rel.PatchSuffix) {
			return fmt.Errorf("release %s of package %s: %w", rel.FullVersion(), rel.PackageID, model.ErrAlreadyExists)
		}
	}

	rel.Architectures = slices.Clone(rel.Architectures)
	r.releases[rel.ID] = rel

	return nil
}

// GetPackageRelease retrieves a package release by ID.
func (r *Repository) GetPackageRelease(ctx context.Context, id string) (*model.PackageRelease, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, ok := r.releases[id]
	if !ok {
		return nil, fmt.Errorf("package release %s: %w", id, model.ErrNotFound)
	}
	rel.Architectures = slices.Clone(rel.Architectures)

	return &rel, nil
}

// ListPackageReleases returns the releases of a package, newest first.
func (r *Repository) ListPackageReleases(ctx context.Context, packageID string) ([]model.PackageRelease, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rels := []model.PackageRelease{}
	for _, rel := range r.releases {
		if rel.PackageID == packageID {
			rel.Architectures = slices.Clone(rel.Architectures)
			rels = append(rels, rel)
		}
	}
	slices.SortFunc(rels, func(a, b model.PackageRelease) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	return rels, nil
}

// CreatePromotionRequest creates a new stable promotion request.
func (r *Repository) CreatePromotionRequest(ctx context.Context, req model.StablePromotionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := req.Validate(); err != nil {
		return err
	}

	if _, ok := r.releases[req.ReleaseID]; !ok {
		return fmt.Errorf("release %s of package %s: %w", req.ReleaseID, req.PackageID, model.ErrNotFound)
	}

	for _, existing := range r.promotions {
		if existing.ID == req.ID || (existing.ReleaseID == req.ReleaseID && existing.Architecture == req.Architecture) {
			return fmt.Errorf("promotion request for release %s %s: %w", req.ReleaseID, req.Architecture, model.ErrAlreadyExists)
		}
	}

	r.promotions[req.ID] = req

	return nil
}

// GetPromotionRequest retrieves a promotion request by ID.
func (r *Repository) GetPromotionRequest(ctx context.Context, id string) (*model.StablePromotionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.promotions[id]
	if !ok {
		return nil, fmt.Errorf("promotion request %s: %w", id, model.ErrNotFound)
	}

	return &req, nil
}

// GetPromotionRequestByReleaseArch retrieves the promotion request of a release architecture.
func (r *Repository) GetPromotionRequestByReleaseArch(ctx context.Context, releaseID string, arch model.Arch) (*model.StablePromotionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.promotions {
		if req.ReleaseID == releaseID && req.Architecture == arch {
			return &req, nil
		}
	}

	return nil, fmt.Errorf("promotion request: %w", model.ErrNotFound)
}

// ListPromotionRequests returns the promotion requests matching the filter, oldest first.
func (r *Repository) ListPromotionRequests(ctx context.Context, filter model.PromotionFilter) ([]model.StablePromotionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reqs := []model.StablePromotionRequest{}
	for _, req := range r.promotions {
		if filter.PackageID != "" && req.PackageID != filter.PackageID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		reqs = append(reqs, req)
	}
	slices.SortFunc(reqs, func(a, b model.StablePromotionRequest) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return reqs, nil
}

// ResolvePromotionRequest resolves a pending promotion request.
func (r *Repository) ResolvePromotionRequest(ctx context.Context, id string, status model.PromotionStatus, reviewer, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if status != model.PromotionStatusApproved && status != model.PromotionStatusDenied {
		return fmt.Errorf("promotion request can't be resolved as %q: %w", status, model.ErrNotValid)
	}

	req, ok := r.promotions[id]
	if !ok {
		return fmt.Errorf("promotion request %s: %w", id, model.ErrNotFound)
	}
	if req.Status != model.PromotionStatusPending {
		return fmt.Errorf("promotion request %s is not pending: %w", id, model.ErrNotValid)
	}

	req.Status = status
	req.ReviewedBy = reviewer
	req.DecisionReason = reason
	req.ResolvedAt = &at
	r.promotions[id] = req

	return nil
}

// CreateOSRelease records a new OS release.
func (r *Repository) CreateOSRelease(ctx context.Context, rel model.OSRelease) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := model.ValidateOSReleaseVersion(rel.Version); err != nil {
		return err
	}

	if _, ok := r.osReleases[rel.Version]; ok {
		return fmt.Errorf("os release %s: %w", rel.Version, model.ErrAlreadyExists)
	}

	if rel.ID == "" {
		rel.ID = ulid.Make().String()
	}
	r.osReleases[rel.Version] = rel

	return nil
}

// GetOSReleaseByVersion retrieves an OS release by version.
func (r *Repository) GetOSReleaseByVersion(ctx context.Context, version string) (*model.OSRelease, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, ok := r.osReleases[version]
	if !ok {
		return nil, fmt.Errorf("os release %s: %w", version, model.ErrNotFound)
	}

	return &rel, nil
}

// ListOSReleases returns the OS releases, newest first.
func (r *Repository) ListOSReleases(ctx context.Context) ([]model.OSRelease, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rels := slices.Collect(maps.Values(r.osReleases))
	slices.SortFunc(rels, func(a, b model.OSRelease) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if rels == nil {
		rels = []model.OSRelease{}
	}

	return rels, nil
}

// RecordMove appends a repository mutation to the move journal.
func (r *Repository) RecordMove(ctx context.Context, m model.MoveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.TaskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}
	r.moves = append(r.moves, m)

	return nil
}

// ListMoves returns the journal of a task in the order the moves happened.
func (r *Repository) ListMoves(ctx context.Context, taskID string) ([]model.MoveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	moves := []model.MoveRecord{}
	for _, m := range r.moves {
		if m.TaskID == taskID {
			moves = append(moves, m)
		}
	}

	return moves, nil
}

func copyPackage(p model.Package) *model.Package {
	p.LatestStable = cloneVersions(p.LatestStable)
	p.LatestTesting = cloneVersions(p.LatestTesting)
	return &p
}

func cloneVersions(m map[model.Arch]string) map[model.Arch]string {
	c := make(map[model.Arch]string, len(m))
	maps.Copy(c, m)
	return c
}
