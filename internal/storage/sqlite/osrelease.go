package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/slok/tierd/internal/model"
)

// CreateOSRelease records a new OS release.
func (r *Repository) CreateOSRelease(ctx context.Context, rel model.OSRelease) error {
	if err := model.ValidateOSReleaseVersion(rel.Version); err != nil {
		return err
	}
	if rel.ID == "" {
		rel.ID = newID()
	}

	query := `INSERT INTO os_releases (id, version, task_id, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, rel.ID, rel.Version, rel.TaskID, rel.CreatedAt.Unix())
	if err != nil {
		if isUniqueErr(err, "os_releases") {
			return fmt.Errorf("os release %s: %w", rel.Version, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert os release: %w", err)
	}

	r.logger.Debugf("Created OS release %s", rel.Version)
	return nil
}

// GetOSReleaseByVersion retrieves an OS release by version.
func (r *Repository) GetOSReleaseByVersion(ctx context.Context, version string) (*model.OSRelease, error) {
	query := `SELECT id, version, task_id, created_at FROM os_releases WHERE version = ?`

	rel, err := scanOSRelease(r.db.QueryRowContext(ctx, query, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("os release %s: %w", version, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query os release: %w", err)
	}

	return &rel, nil
}

// ListOSReleases returns the OS releases, newest first.
func (r *Repository) ListOSReleases(ctx context.Context) ([]model.OSRelease, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, version, task_id, created_at FROM os_releases ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("could not query os releases: %w", err)
	}
	defer rows.Close()

	rels := []model.OSRelease{}
	for rows.Next() {
		rel, err := scanOSRelease(rows)
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

func scanOSRelease(s scanner) (model.OSRelease, error) {
	var (
		rel       model.OSRelease
		createdAt int64
	)
	if err := s.Scan(&rel.ID, &rel.Version, &rel.TaskID, &createdAt); err != nil {
		return model.OSRelease{}, err
	}
	rel.CreatedAt = timeFromUnix(createdAt)

	return rel, nil
}

// RecordMove appends a repository mutation to the move journal.
func (r *Repository) RecordMove(ctx context.Context, m model.MoveRecord) error {
	if m.TaskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	if m.ID == "" {
		m.ID = newID()
	}

	query := `
		INSERT INTO move_journal (id, task_id, release_id, package_name, full_version, arch, tier, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.TaskID,
		m.ReleaseID,
		m.PackageName,
		m.FullVersion,
		m.Arch,
		m.Tier,
		m.Action,
		m.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("could not insert move record: %w", err)
	}

	return nil
}

// ListMoves returns the journal of a task in the order the moves happened.
func (r *Repository) ListMoves(ctx context.Context, taskID string) ([]model.MoveRecord, error) {
	query := `
		SELECT id, task_id, release_id, package_name, full_version, arch, tier, action, created_at
		FROM move_journal
		WHERE task_id = ?
		ORDER BY rowid ASC
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not query move journal: %w", err)
	}
	defer rows.Close()

	moves := []model.MoveRecord{}
	for rows.Next() {
		var (
			m         model.MoveRecord
			createdAt int64
		)
		err := rows.Scan(&m.ID, &m.TaskID, &m.ReleaseID, &m.PackageName, &m.FullVersion, &m.Arch, &m.Tier, &m.Action, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		m.CreatedAt = timeFromUnix(createdAt)
		moves = append(moves, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return moves, nil
}
