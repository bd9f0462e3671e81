package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type AccessExpirer interface {
	ExpireDue(ctx context.Context) (int64, error)
}

type SubmissionSweeper interface {
	SweepMissed(ctx context.Context) (int64, error)
}

type LinkCodeCleaner interface {
	CleanupLinkCodes(ctx context.Context) (int64, error)
}

type ActivityPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// Job runs the periodic housekeeping pass: expires timed course
// access, marks past-due assignments missed, and drops stale link
// codes and old activity rows. Each step runs even when an earlier
// one fails.
type Job struct {
	access            AccessExpirer
	submissions       SubmissionSweeper
	linkCodes         LinkCodeCleaner
	activity          ActivityPruner
	activityRetention time.Duration
	logger            *zap.Logger
}

func New(access AccessExpirer, submissions SubmissionSweeper, linkCodes LinkCodeCleaner, activity ActivityPruner, activityRetention time.Duration, logger *zap.Logger) *Job {
	if activityRetention <= 0 {
		activityRetention = 180 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		access:            access,
		submissions:       submissions,
		linkCodes:         linkCodes,
		activity:          activity,
		activityRetention: activityRetention,
		logger:            logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	var errs []error

	if j.access != nil {
		if expired, err := j.access.ExpireDue(ctx); err != nil {
			errs = append(errs, fmt.Errorf("expire course access: %w", err))
		} else if expired > 0 {
			j.logger.Info("course access expired", zap.Int64("rows", expired))
		}
	}

	if j.submissions != nil {
		if missed, err := j.submissions.SweepMissed(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sweep missed submissions: %w", err))
		} else if missed > 0 {
			j.logger.Info("submissions marked missed", zap.Int64("rows", missed))
		}
	}

	if j.linkCodes != nil {
		if removed, err := j.linkCodes.CleanupLinkCodes(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cleanup link codes: %w", err))
		} else if removed > 0 {
			j.logger.Info("expired link codes removed", zap.Int64("rows", removed))
		}
	}

	if j.activity != nil {
		if pruned, err := j.activity.Prune(ctx, j.activityRetention); err != nil {
			errs = append(errs, fmt.Errorf("prune activity log: %w", err))
		} else if pruned > 0 {
			j.logger.Info("activity log pruned", zap.Int64("rows", pruned))
		}
	}

	return errors.Join(errs...)
}
