package model

import (
	"fmt"
	"time"
)

// PromotionStatus is the status of a stable promotion request.
type PromotionStatus string

const (
	PromotionStatusPending  PromotionStatus = "pending"
	PromotionStatusApproved PromotionStatus = "approved"
	PromotionStatusDenied   PromotionStatus = "denied"
)

// Valid returns true if the status is a known one.
func (s PromotionStatus) Valid() bool {
	switch s {
	case PromotionStatusPending, PromotionStatusApproved, PromotionStatusDenied:
		return true
	}
	return false
}

// StablePromotionRequest asks for a release architecture to be promoted to the
// stable tier. It's resolved (approved or denied) exactly once.
type StablePromotionRequest struct {
	ID             string
	PackageID      string
	ReleaseID      string
	Architecture   Arch
	Status         PromotionStatus
	RequestedBy    string
	ReviewedBy     string
	DecisionReason string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}

// Validate validates the promotion request model.
func (r StablePromotionRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("promotion request id is required: %w", ErrNotValid)
	}

	if r.PackageID == "" || r.ReleaseID == "" {
		return fmt.Errorf("promotion request package and release are required: %w", ErrNotValid)
	}

	if !r.Architecture.Valid() {
		return fmt.Errorf("architecture %q is not supported: %w", r.Architecture, ErrNotValid)
	}

	if !r.Status.Valid() {
		return fmt.Errorf("promotion status %q is invalid: %w", r.Status, ErrNotValid)
	}

	if r.RequestedBy == "" {
		return fmt.Errorf("promotion requester is required: %w", ErrNotValid)
	}

	if r.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required: %w", ErrNotValid)
	}

	return nil
}

// PromotionFilter filters promotion request listings.
type PromotionFilter struct {
	PackageID string
	Status    *PromotionStatus
}
