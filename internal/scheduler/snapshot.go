package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trogers1052/trade-journal/internal/logger"
	"github.com/trogers1052/trade-journal/internal/report"
)

// ReportSource computes strategy reports
type ReportSource interface {
	StrategyIDs(ctx context.Context) ([]string, error)
	StrategyReport(ctx context.Context, strategyID string) (*report.Report, error)
}

// Publisher ships a computed report downstream
type Publisher interface {
	PublishReportSnapshot(ctx context.Context, strategyID string, report any) error
}

// SnapshotJob recomputes every strategy report and publishes it
type SnapshotJob struct {
	Reports   ReportSource
	Publisher Publisher
	Logger    *zap.Logger
	// Timeout bounds one whole run; zero means no bound
	Timeout time.Duration
}

// RunOnce publishes a snapshot for each strategy. A failing strategy does
// not stop the others; all failures are returned joined.
func (j *SnapshotJob) RunOnce(ctx context.Context) error {
	log := logger.OrNop(j.Logger)
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	started := time.Now()
	ids, err := j.Reports.StrategyIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list strategies: %w", err)
	}

	var errs []error
	published := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		r, err := j.Reports.StrategyReport(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to compute report for %s: %w", id, err))
			continue
		}
		if err := j.Publisher.PublishReportSnapshot(ctx, id, r); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish report for %s: %w", id, err))
			continue
		}
		published++
	}

	log.Info("report snapshots published",
		zap.Int("strategies", len(ids)),
		zap.Int("published", published),
		zap.Duration("elapsed", time.Since(started)))
	return errors.Join(errs...)
}

// Run is RunOnce shaped for Runner.Add; failures are logged
func (j *SnapshotJob) Run(ctx context.Context) {
	if err := j.RunOnce(ctx); err != nil {
		logger.OrNop(j.Logger).Error("snapshot run failed", zap.Error(err))
	}
}
