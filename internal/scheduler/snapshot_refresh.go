package scheduler

import (
	"github.com/aristath/quantscale/internal/modules/universe"
	"github.com/rs/zerolog"
)

// SnapshotRefreshJob reloads the investable universe snapshot from the
// securities database so intraday edits become visible without a restart
type SnapshotRefreshJob struct {
	snapshots *universe.SnapshotService
	log       zerolog.Logger
}

// NewSnapshotRefreshJob creates a new snapshot refresh job
func NewSnapshotRefreshJob(snapshots *universe.SnapshotService, log zerolog.Logger) *SnapshotRefreshJob {
	return &SnapshotRefreshJob{
		snapshots: snapshots,
		log:       log.With().Str("job", "snapshot_refresh").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotRefreshJob) Name() string {
	return "snapshot_refresh"
}

// Run reloads the universe snapshot
func (j *SnapshotRefreshJob) Run() error {
	snap, err := j.snapshots.Refresh()
	if err != nil {
		j.log.Error().Err(err).Msg("Universe snapshot refresh failed")
		return err
	}

	j.log.Info().
		Int("symbols", len(snap.Tickers())).
		Time("loaded_at", snap.LoadedAt()).
		Msg("Universe snapshot refreshed")

	return nil
}
