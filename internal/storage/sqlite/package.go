package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/slok/tierd/internal/model"
)

const packageColumns = `id, name, latest_stable_amd64, latest_stable_arm64, latest_testing_amd64, latest_testing_arm64, created_at`

// CreatePackage creates a new package.
func (r *Repository) CreatePackage(ctx context.Context, p model.Package) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO packages (` + packageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.LatestStable[model.ArchAMD64],
		p.LatestStable[model.ArchARM64],
		p.LatestTesting[model.ArchAMD64],
		p.LatestTesting[model.ArchARM64],
		p.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueErr(err, "packages") {
			return fmt.Errorf("package %s: %w", p.Name, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert package: %w", err)
	}

	r.logger.Debugf("Created package %s (%s)", p.Name, p.ID)
	return nil
}

// GetPackage retrieves a package by ID.
func (r *Repository) GetPackage(ctx context.Context, id string) (*model.Package, error) {
	return r.getPackage(ctx, "id", id)
}

// GetPackageByName retrieves a package by name.
func (r *Repository) GetPackageByName(ctx context.Context, name string) (*model.Package, error) {
	return r.getPackage(ctx, "name", name)
}

func (r *Repository) getPackage(ctx context.Context, field, value string) (*model.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE ` + field + ` = ?`

	p, err := scanPackage(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("package %s: %w", value, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query package: %w", err)
	}

	return &p, nil
}

// ListPackages returns all the packages sorted by name.
func (r *Repository) ListPackages(ctx context.Context) ([]model.Package, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("could not query packages: %w", err)
	}
	defer rows.Close()

	pkgs := []model.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		pkgs = append(pkgs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return pkgs, nil
}

// SetLatestStable sets the stable version pointer of a package architecture.
func (r *Repository) SetLatestStable(ctx context.Context, packageID string, arch model.Arch, fullVersion string) error {
	return r.setLatest(ctx, "latest_stable", packageID, arch, fullVersion)
}

// SetLatestTesting sets the testing version pointer of a package architecture.
func (r *Repository) SetLatestTesting(ctx context.Context, packageID string, arch model.Arch, fullVersion string) error {
	return r.setLatest(ctx, "latest_testing", packageID, arch, fullVersion)
}

func (r *Repository) setLatest(ctx context.Context, prefix, packageID string, arch model.Arch, fullVersion string) error {
	if !arch.Valid() {
		return fmt.Errorf("architecture %q is not supported: %w", arch, model.ErrNotValid)
	}

	query := fmt.Sprintf(`UPDATE packages SET %s_%s = ? WHERE id = ?`, prefix, arch)
	result, err := r.db.ExecContext(ctx, query, fullVersion, packageID)
	if err != nil {
		return fmt.Errorf("could not update package: %w", err)
	}

	ok, err := checkAffected(result)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("package %s: %w", packageID, model.ErrNotFound)
	}

	r.logger.Debugf("Package %s %s %s pointer set to %s", packageID, prefix, arch, fullVersion)
	return nil
}

func scanPackage(s scanner) (model.Package, error) {
	var (
		p                          model.Package
		stableAMD64, stableARM64   string
		testingAMD64, testingARM64 string
		createdAt                  int64
	)

	err := s.Scan(&p.ID, &p.Name, &stableAMD64, &stableARM64, &testingAMD64, &testingARM64, &createdAt)
	if err != nil {
		return model.Package{}, err
	}

	p.LatestStable = archVersions(stableAMD64, stableARM64)
	p.LatestTesting = archVersions(testingAMD64, testingARM64)
	p.CreatedAt = timeFromUnix(createdAt)

	return p, nil
}

func archVersions(amd64, arm64 string) map[model.Arch]string {
	m := map[model.Arch]string{}
	if amd64 != "" {
		m[model.ArchAMD64] = amd64
	}
	if arm64 != "" {
		m[model.ArchARM64] = arm64
	}
	return m
}

const releaseColumns = `id, package_id, version, patch_suffix, architectures, created_at`

// CreatePackageRelease creates a new package release.
func (r *Repository) CreatePackageRelease(ctx context.Context, rel model.PackageRelease) error {
	if err := rel.Validate(); err != nil {
		return err
	}

	archs := make([]string, 0, len(rel.Architectures))
	for _, a := range rel.Architectures {
		archs = append(archs, string(a))
	}

	query := `INSERT INTO package_releases (` + releaseColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rel.ID,
		rel.PackageID,
		rel.Version,
		rel.PatchSuffix,
		strings.Join(archs, ","),
		rel.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueErr(err, "package_releases") {
			return fmt.Errorf("release %s of package %s: %w", rel.FullVersion(), rel.PackageID, model.ErrAlreadyExists)
		}
		if isForeignKeyErr(err) {
			return fmt.Errorf("package %s: %w", rel.PackageID, model.ErrNotFound)
		}
		return fmt.Errorf("could not insert package release: %w", err)
	}

	r.logger.Debugf("Created package release %s (%s)", rel.ID, rel.FullVersion())
	return nil
}

// GetPackageRelease retrieves a package release by ID.
func (r *Repository) GetPackageRelease(ctx context.Context, id string) (*model.PackageRelease, error) {
	query := `SELECT ` + releaseColumns + ` FROM package_releases WHERE id = ?`

	rel, err := scanRelease(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("package release %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query package release: %w", err)
	}

	return &rel, nil
}

// ListPackageReleases returns the releases of a package, newest first.
func (r *Repository) ListPackageReleases(ctx context.Context, packageID string) ([]model.PackageRelease, error) {
	query := `SELECT ` + releaseColumns + ` FROM package_releases WHERE package_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, packageID)
	if err != nil {
		return nil, fmt.Errorf("could not query package releases: %w", err)
	}
	defer rows.Close()

	rels := []model.PackageRelease{}
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		rels = append(rels, rel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return rels, nil
}

func scanRelease(s scanner) (model.PackageRelease, error) {
	var (
		rel       model.PackageRelease
		archs     string
		createdAt int64
	)

	err := s.Scan(&rel.ID, &rel.PackageID, &rel.Version, &rel.PatchSuffix, &archs, &createdAt)
	if err != nil {
		return model.PackageRelease{}, err
	}

	for _, a := range strings.Split(archs, ",") {
		if a != "" {
			rel.Architectures = append(rel.Architectures, model.Arch(a))
		}
	}
	rel.CreatedAt = timeFromUnix(createdAt)

	return rel, nil
}
