package pkgrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/tierd/internal/model"
)

//go:generate mockery --case underscore --output pkgrepomock --outpkg pkgrepomock --name Manager --structname MockManager

// Manager is the package repository manager that holds the tiers.
type Manager interface {
	// Exists returns true if any package on the tier matches the query.
	Exists(ctx context.Context, tier model.Tier, q Query) (bool, error)
	// Copy copies the archive artifact of the query into the target tier. The query must be complete.
	Copy(ctx context.Context, target model.Tier, q Query) error
	// Delete deletes every package on the tier matching the query, nothing matching is not an error.
	Delete(ctx context.Context, tier model.Tier, q Query) error
	// CreateSnapshot snapshots a tier, ErrAlreadyExists is returned if the snapshot already exists.
	CreateSnapshot(ctx context.Context, tier model.Tier, name, description string) error
	// PublishSnapshot switches the published distribution to the snapshot.
	PublishSnapshot(ctx context.Context, name, distribution string) error
	// UpdatePublished refreshes a distribution published from a tier.
	UpdatePublished(ctx context.Context, distribution string) error
}

// Query selects packages on a tier. Only the name is required.
type Query struct {
	Name        string
	Version     string
	PatchSuffix string
	Arch        model.Arch
}

// FullVersion returns the version with the patch suffix.
func (q Query) FullVersion() string {
	if q.Version == "" {
		return ""
	}
	return model.BuildVersionWithPatch(q.Version, q.PatchSuffix)
}

// Validate validates the query.
func (q Query) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("package name is required: %w", model.ErrNotValid)
	}

	if q.Arch != "" && !q.Arch.Valid() {
		return fmt.Errorf("architecture %q is not supported: %w", q.Arch, model.ErrNotValid)
	}

	return nil
}

// Complete returns true if the query selects a single artifact.
func (q Query) Complete() bool {
	return q.Name != "" && q.Version != "" && q.Arch != ""
}

// Identifier returns the artifact identifier of a complete query.
func (q Query) Identifier() string {
	return model.PackageIdentifier(q.Name, q.FullVersion(), q.Arch)
}

// String returns the query in the package query syntax, e.g. `Name (htop), Version (3.3.0leios1), Architecture (amd64)`.
func (q Query) String() string {
	parts := []string{fmt.Sprintf("Name (%s)", q.Name)}
	if v := q.FullVersion(); v != "" {
		parts = append(parts, fmt.Sprintf("Version (%s)", v))
	}
	if q.Arch != "" {
		parts = append(parts, fmt.Sprintf("Architecture (%s)", q.Arch))
	}

	return strings.Join(parts, ", ")
}

// ReleaseQuery returns the query of a release artifact.
func ReleaseQuery(name string, rel model.PackageRelease, arch model.Arch) Query {
	return Query{Name: name, Version: rel.Version, PatchSuffix: rel.PatchSuffix, Arch: arch}
}
