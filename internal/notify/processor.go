package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrPermanent marks failures a retry cannot fix.
var ErrPermanent = errors.New("permanent job failure")

type OrderRestorer interface {
	Restore(ctx context.Context, rec *order.Record) (bool, error)
}

// Processor runs one job for the worker.
type Processor struct {
	jobs   *JobRepo
	mailer *Mailer
	orders OrderRestorer
	log    *zap.Logger
}

func NewProcessor(jobs *JobRepo, mailer *Mailer, orders OrderRestorer, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{jobs: jobs, mailer: mailer, orders: orders, log: log}
}

func (p *Processor) Process(ctx context.Context, jobID string) error {
	jobStart := time.Now()

	if err := p.jobs.MarkRunning(ctx, jobID); err != nil {
		return err
	}
	j, err := p.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: job %s not found", ErrPermanent, jobID)
		}
		return err
	}
	if j.Status == JobSucceeded {
		return nil
	}

	runErr := p.run(ctx, j)
	cost := time.Since(jobStart)
	if runErr != nil {
		_ = p.jobs.MarkFailed(ctx, jobID, runErr.Error())
		p.log.Warn("job failed",
			zap.String("job_id", jobID),
			zap.String("kind", string(j.Kind)),
			zap.String("order_id", j.OrderID),
			zap.Int("attempts", j.Attempts),
			zap.Duration("cost", cost),
			zap.Error(runErr),
		)
		return runErr
	}

	if err := p.jobs.MarkSucceeded(ctx, jobID); err != nil {
		return err
	}
	if cost > 2*time.Second {
		p.log.Info("job_timing", zap.String("job_id", jobID), zap.Duration("total", cost))
	}
	return nil
}

func (p *Processor) run(ctx context.Context, j *Job) error {
	switch j.Kind {
	case KindConfirmation:
		rec, err := decodePayload(j)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return p.mailer.SendConfirmation(ctx, rec)

	case KindReceipt:
		err := p.mailer.SendReceipt(ctx, j.OrderID)
		if errors.Is(err, order.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return err

	case KindReconcile:
		rec, err := decodePayload(j)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		inserted, err := p.orders.Restore(ctx, rec)
		if err != nil {
			return err
		}
		p.log.Info("fallback order reconciled",
			zap.String("order_id", rec.ID),
			zap.Bool("inserted", inserted),
		)
		return nil
	}
	return fmt.Errorf("%w: unknown job kind %q", ErrPermanent, j.Kind)
}
