package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suPer8Hu/order-assistant/internal/common"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"github.com/suPer8Hu/order-assistant/internal/store/rabbitmq"
	"go.uber.org/zap"
)

type JobPublisher interface {
	PublishJob(ctx context.Context, msg rabbitmq.JobMessage) error
}

// QueueNotifier records a job row and hands its id to the worker. It also
// accepts degraded orders for reconciliation.
type QueueNotifier struct {
	jobs *JobRepo
	pub  JobPublisher
	log  *zap.Logger
}

func NewQueueNotifier(jobs *JobRepo, pub JobPublisher, log *zap.Logger) *QueueNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &QueueNotifier{jobs: jobs, pub: pub, log: log}
}

func (q *QueueNotifier) SendConfirmation(ctx context.Context, rec *order.Record) error {
	return q.enqueue(ctx, KindConfirmation, rec.ID, rec)
}

func (q *QueueNotifier) SendReceipt(ctx context.Context, orderID string) error {
	return q.enqueue(ctx, KindReceipt, orderID, nil)
}

// Reconcile schedules a later insert of a record synthesized after a
// persistence failure.
func (q *QueueNotifier) Reconcile(ctx context.Context, rec *order.Record) error {
	return q.enqueue(ctx, KindReconcile, rec.ID, rec)
}

func (q *QueueNotifier) enqueue(ctx context.Context, kind JobKind, orderID string, rec *order.Record) error {
	id, err := common.NewULID()
	if err != nil {
		return err
	}
	job := &Job{ID: id, Kind: kind, OrderID: orderID, Status: JobQueued}
	if rec != nil {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		job.Payload = string(b)
	}

	if err := q.jobs.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("create %s job: %w", kind, err)
	}
	if err := q.pub.PublishJob(ctx, rabbitmq.JobMessage{JobID: job.ID}); err != nil {
		_ = q.jobs.MarkFailed(ctx, job.ID, "publish: "+err.Error())
		return fmt.Errorf("publish %s job: %w", kind, err)
	}
	q.log.Debug("notification queued",
		zap.String("job_id", job.ID),
		zap.String("kind", string(kind)),
		zap.String("order_id", orderID),
	)
	return nil
}

func decodePayload(job *Job) (*order.Record, error) {
	if job.Payload == "" {
		return nil, fmt.Errorf("%s job %s without payload", job.Kind, job.ID)
	}
	var rec order.Record
	if err := json.Unmarshal([]byte(job.Payload), &rec); err != nil {
		return nil, fmt.Errorf("%s job %s payload: %w", job.Kind, job.ID, err)
	}
	return &rec, nil
}
