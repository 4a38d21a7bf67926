// Package worker holds the periodic sweep jobs and the cron scheduler that
// runs them.
package worker

import (
	"context"
	"fmt"
	"time"
)

// Job is a single sweep. Run receives the tick instant so that cutoffs are
// computed against one clock reading.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) (Report, error)
}

// Report summarises one run.
type Report struct {
	Job       string
	Processed int64
	Failed    int64
	Batches   int
}

func (r Report) String() string {
	return fmt.Sprintf("%s: processed=%d failed=%d batches=%d", r.Job, r.Processed, r.Failed, r.Batches)
}

// BatchConfig caps the work a retention job does per run.
type BatchConfig struct {
	BatchSize  int
	MaxBatches int
}

func (c BatchConfig) normalized() BatchConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.MaxBatches <= 0 {
		c.MaxBatches = 1
	}
	return c
}

// deleteInBatches calls del until it removes fewer rows than the batch size
// or the batch cap is reached.
func deleteInBatches(ctx context.Context, cfg BatchConfig, report *Report, del func(ctx context.Context, limit int) (int64, error)) error {
	for report.Batches < cfg.MaxBatches {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := del(ctx, cfg.BatchSize)
		if err != nil {
			return err
		}
		report.Batches++
		report.Processed += n
		if n < int64(cfg.BatchSize) {
			return nil
		}
	}
	return nil
}
