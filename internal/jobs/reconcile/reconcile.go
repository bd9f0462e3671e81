package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Payments is the settlement surface the job drives.
type Payments interface {
	ReconcileStale(ctx context.Context, minAge time.Duration, batch int) (int, error)
}

// Job polls the payment providers for pending payments whose webhook
// never arrived and converges them to the remote state.
type Job struct {
	payments Payments
	minAge   time.Duration
	batch    int
	logger   *zap.Logger
}

func New(payments Payments, minAge time.Duration, batch int, logger *zap.Logger) *Job {
	if minAge <= 0 {
		minAge = 15 * time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		payments: payments,
		minAge:   minAge,
		batch:    batch,
		logger:   logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.payments == nil {
		return nil
	}

	settled, err := j.payments.ReconcileStale(ctx, j.minAge, j.batch)
	if err != nil {
		return fmt.Errorf("reconcile stale payments: %w", err)
	}
	if settled > 0 {
		j.logger.Info("payment reconcile completed", zap.Int("settled", settled))
	}
	return nil
}
