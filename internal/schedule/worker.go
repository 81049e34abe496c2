package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

type RankingRecomputeArgs struct{}

func (RankingRecomputeArgs) Kind() string { return "ranking_recompute" }

// Recomputer is the contract the worker needs from the ranking engine.
type Recomputer interface {
	Recompute(ctx context.Context) (int, error)
}

type RankingRecomputeWorker struct {
	river.WorkerDefaults[RankingRecomputeArgs]
	rankings Recomputer
	logger   *slog.Logger
}

func NewRankingRecomputeWorker(rankings Recomputer, logger *slog.Logger) *RankingRecomputeWorker {
	return &RankingRecomputeWorker{rankings: rankings, logger: logger}
}

func (w *RankingRecomputeWorker) Work(ctx context.Context, _ *river.Job[RankingRecomputeArgs]) error {
	started := time.Now()
	n, err := w.rankings.Recompute(ctx)
	if err != nil {
		return fmt.Errorf("scheduled ranking recompute: %w", err)
	}
	w.logger.Info("ranking recompute finished", "ranked_users", n, "took", time.Since(started))
	return nil
}

// PeriodicJobs returns the recurring job definitions for the river client.
// RunOnStart schedules one recompute immediately at boot.
func PeriodicJobs(interval time.Duration) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return RankingRecomputeArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
