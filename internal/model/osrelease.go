package model

import "time"

// OSRelease is a published OS release, created by the OS release task.
type OSRelease struct {
	ID        string
	Version   string
	TaskID    string
	CreatedAt time.Time
}

// MoveAction is a repository mutation recorded in the move journal.
type MoveAction string

const (
	MoveActionDelete MoveAction = "delete"
	MoveActionCopy   MoveAction = "copy"
)

// MoveRecord is a completed repository mutation done by a task run. Tiers
// can't be mutated transactionally, the journal is what an operator uses to
// compensate after a late failure.
type MoveRecord struct {
	ID          string
	TaskID      string
	ReleaseID   string
	PackageName string
	FullVersion string
	Arch        Arch
	Tier        Tier
	Action      MoveAction
	CreatedAt   time.Time
}
