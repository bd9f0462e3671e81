package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Pavlentius2007/school-photobusiness/internal/jobs/reconcile"
)

type fakePayments struct {
	minAge  time.Duration
	batch   int
	settled int
	err     error
}

func (f *fakePayments) ReconcileStale(ctx context.Context, minAge time.Duration, batch int) (int, error) {
	f.minAge = minAge
	f.batch = batch
	return f.settled, f.err
}

func TestRunPassesConfiguredWindow(t *testing.T) {
	payments := &fakePayments{settled: 2}

	job := reconcile.New(payments, 30*time.Minute, 25, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if payments.minAge != 30*time.Minute || payments.batch != 25 {
		t.Fatalf("unexpected window: %v %d", payments.minAge, payments.batch)
	}
}

func TestRunAppliesDefaults(t *testing.T) {
	payments := &fakePayments{}

	job := reconcile.New(payments, 0, 0, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if payments.minAge != 15*time.Minute || payments.batch != 50 {
		t.Fatalf("defaults not applied: %v %d", payments.minAge, payments.batch)
	}
}

func TestRunWrapsServiceError(t *testing.T) {
	payments := &fakePayments{err: errors.New("provider timeout")}

	job := reconcile.New(payments, time.Minute, 10, nil)
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
