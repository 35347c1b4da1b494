package snapshots

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultHistoryRetention is how long recommendation batches are kept.
const DefaultHistoryRetention = 90 * 24 * time.Hour

// HistoryPruneJob trims old recommendation batches.
type HistoryPruneJob struct {
	repo      *HistoryRepository
	retention time.Duration
	log       zerolog.Logger
}

// NewHistoryPruneJob creates the history retention job.
func NewHistoryPruneJob(repo *HistoryRepository, log zerolog.Logger) *HistoryPruneJob {
	return &HistoryPruneJob{
		repo:      repo,
		retention: DefaultHistoryRetention,
		log:       log.With().Str("job", "history_prune").Logger(),
	}
}

// Run deletes batches past the retention window.
func (j *HistoryPruneJob) Run() error {
	deleted, err := j.repo.Prune(j.retention)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to prune recommendation history")
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Pruned old recommendation history")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *HistoryPruneJob) Name() string {
	return "history_prune"
}
