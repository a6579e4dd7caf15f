package services

import (
	"github.com/aristath/quantscale/internal/modules/universe"
)

// SnapshotProvider yields the current universe snapshot. Satisfied by
// universe.SnapshotService; tests substitute fixed snapshots.
type SnapshotProvider interface {
	Current() (*universe.Snapshot, error)
}
