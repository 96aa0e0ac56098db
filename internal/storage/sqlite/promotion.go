package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slok/tierd/internal/model"
)

const promotionColumns = `id, package_id, release_id, architecture, status, requested_by, reviewed_by, decision_reason, created_at, resolved_at`

// CreatePromotionRequest creates a new stable promotion request.
func (r *Repository) CreatePromotionRequest(ctx context.Context, req model.StablePromotionRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO stable_promotion_requests (` + promotionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.PackageID,
		req.ReleaseID,
		req.Architecture,
		req.Status,
		req.RequestedBy,
		req.ReviewedBy,
		req.DecisionReason,
		req.CreatedAt.Unix(),
		nullUnix(req.ResolvedAt),
	)
	if err != nil {
		if isUniqueErr(err, "stable_promotion_requests") {
			return fmt.Errorf("promotion request for release %s %s: %w", req.ReleaseID, req.Architecture, model.ErrAlreadyExists)
		}
		if isForeignKeyErr(err) {
			return fmt.Errorf("release %s of package %s: %w", req.ReleaseID, req.PackageID, model.ErrNotFound)
		}
		return fmt.Errorf("could not insert promotion request: %w", err)
	}

	r.logger.Debugf("Created promotion request %s", req.ID)
	return nil
}

// GetPromotionRequest retrieves a promotion request by ID.
func (r *Repository) GetPromotionRequest(ctx context.Context, id string) (*model.StablePromotionRequest, error) {
	query := `SELECT ` + promotionColumns + ` FROM stable_promotion_requests WHERE id = ?`
	return r.getPromotion(ctx, query, id)
}

// GetPromotionRequestByReleaseArch retrieves the promotion request of a release architecture.
func (r *Repository) GetPromotionRequestByReleaseArch(ctx context.Context, releaseID string, arch model.Arch) (*model.StablePromotionRequest, error) {
	query := `SELECT ` + promotionColumns + ` FROM stable_promotion_requests WHERE release_id = ? AND architecture = ?`
	return r.getPromotion(ctx, query, releaseID, arch)
}

func (r *Repository) getPromotion(ctx context.Context, query string, args ...any) (*model.StablePromotionRequest, error) {
	req, err := scanPromotion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("promotion request: %w", model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query promotion request: %w", err)
	}

	return &req, nil
}

// ListPromotionRequests returns the promotion requests matching the filter, oldest first.
func (r *Repository) ListPromotionRequests(ctx context.Context, filter model.PromotionFilter) ([]model.StablePromotionRequest, error) {
	var (
		where []string
		args  []any
	)
	if filter.PackageID != "" {
		where = append(where, "package_id = ?")
		args = append(args, filter.PackageID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}

	query := `SELECT ` + promotionColumns + ` FROM stable_promotion_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query promotion requests: %w", err)
	}
	defer rows.Close()

	reqs := []model.StablePromotionRequest{}
	for rows.Next() {
		req, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return reqs, nil
}

// ResolvePromotionRequest resolves a pending promotion request.
func (r *Repository) ResolvePromotionRequest(ctx context.Context, id string, status model.PromotionStatus, reviewer, reason string, at time.Time) error {
	if status != model.PromotionStatusApproved && status != model.PromotionStatusDenied {
		return fmt.Errorf("promotion request can't be resolved as %q: %w", status, model.ErrNotValid)
	}

	query := `
		UPDATE stable_promotion_requests
		SET status = ?, reviewed_by = ?, decision_reason = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, query, status, reviewer, reason, at.Unix(), id, model.PromotionStatusPending)
	if err != nil {
		return fmt.Errorf("could not update promotion request: %w", err)
	}

	ok, err := checkAffected(result)
	if err != nil {
		return err
	}
	if !ok {
		// Missing or already resolved.
		if _, err := r.GetPromotionRequest(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("promotion request %s is not pending: %w", id, model.ErrNotValid)
	}

	r.logger.Debugf("Promotion request %s resolved as %s", id, status)
	return nil
}

func scanPromotion(s scanner) (model.StablePromotionRequest, error) {
	var (
		req        model.StablePromotionRequest
		createdAt  int64
		resolvedAt sql.NullInt64
	)

	err := s.Scan(
		&req.ID,
		&req.PackageID,
		&req.ReleaseID,
		&req.Architecture,
		&req.Status,
		&req.RequestedBy,
		&req.ReviewedBy,
		&req.DecisionReason,
		&createdAt,
		&resolvedAt,
	)
	if err != nil {
		return model.StablePromotionRequest{}, err
	}

	req.CreatedAt = timeFromUnix(createdAt)
	req.ResolvedAt = timePtrFromNull(resolvedAt)

	return req, nil
}
