package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Tier is a repository tier.
type Tier string

const (
	// TierArchive holds every uploaded package version, append only.
	TierArchive Tier = "archive"
	// TierTesting holds the newest upload per architecture and package.
	TierTesting Tier = "testing"
	// TierStable holds the promoted releases, snapshotted for publication.
	TierStable Tier = "stable"
)

// Tiers are all the known tiers.
var Tiers = []Tier{TierArchive, TierTesting, TierStable}

// Valid returns true if the tier is a known one.
func (t Tier) Valid() bool { return slices.Contains(Tiers, t) }

// Arch is a package architecture.
type Arch string

const (
	ArchAMD64 Arch = "amd64"
	ArchARM64 Arch = "arm64"
)

// Archs are all the supported architectures.
var Archs = []Arch{ArchAMD64, ArchARM64}

// Valid returns true if the architecture is a supported one.
func (a Arch) Valid() bool { return slices.Contains(Archs, a) }

// PatchSuffixMarker is the version marker that precedes a patch suffix, e.g. `1.2.3leios1`.
const PatchSuffixMarker = "leios"

var patchSuffixRegexp = regexp.MustCompile(`^(.*)` + PatchSuffixMarker + `(\d+(?:\.\d+){0,2})$`)

// BuildVersionWithPatch returns the full version of a package version with
// its optional patch suffix. It's idempotent.
func BuildVersionWithPatch(version, patch string) string {
	if patch == "" {
		return version
	}

	suffix := PatchSuffixMarker + patch
	if strings.HasSuffix(version, suffix) {
		return version
	}

	return version + suffix
}

// SplitPatchSuffix splits a full version into the upstream version and the patch suffix.
func SplitPatchSuffix(fullVersion string) (version, patch string) {
	m := patchSuffixRegexp.FindStringSubmatch(fullVersion)
	if m == nil {
		return fullVersion, ""
	}
	return m[1], m[2]
}

// PackageIdentifier returns the repository identifier of a package artifact.
func PackageIdentifier(name, fullVersion string, arch Arch) string {
	return fmt.Sprintf("%s_%s_%s", name, fullVersion, arch)
}

// Package is a package tracked by the repository.
type Package struct {
	ID   string
	Name string
	// LatestStable is the full version per architecture present on the stable tier.
	LatestStable map[Arch]string
	// LatestTesting is the full version per architecture present on the testing tier.
	LatestTesting map[Arch]string
	CreatedAt     time.Time
}

// Validate validates the package model.
func (p Package) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("package id is required: %w", ErrNotValid)
	}

	if p.Name == "" {
		return fmt.Errorf("package name is required: %w", ErrNotValid)
	}

	if p.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required: %w", ErrNotValid)
	}

	return nil
}

// PackageRelease is an uploaded release of a package. Its identity is the
// package, version and patch suffix; architectures only grow.
type PackageRelease struct {
	ID            string
	PackageID     string
	Version       string
	PatchSuffix   string
	Architectures []Arch
	CreatedAt     time.Time
}

// FullVersion returns the version including the patch suffix.
func (r PackageRelease) FullVersion() string {
	return BuildVersionWithPatch(r.Version, r.PatchSuffix)
}

// HasArch returns true if the release was built for the architecture.
func (r PackageRelease) HasArch(arch Arch) bool {
	return slices.Contains(r.Architectures, arch)
}

// Validate validates the package release model.
func (r PackageRelease) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("release id is required: %w", ErrNotValid)
	}

	if r.PackageID == "" {
		return fmt.Errorf("release package id is required: %w", ErrNotValid)
	}

	if r.Version == "" {
		return fmt.Errorf("release version is required: %w", ErrNotValid)
	}

	if len(r.Architectures) == 0 {
		return fmt.Errorf("release needs at least one architecture: %w", ErrNotValid)
	}

	for _, a := range r.Architectures {
		if !a.Valid() {
			return fmt.Errorf("architecture %q is not supported: %w", a, ErrNotValid)
		}
	}

	if r.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required: %w", ErrNotValid)
	}

	return nil
}
