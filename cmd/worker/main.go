package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/order-assistant/internal/config"
	"github.com/suPer8Hu/order-assistant/internal/db"
	"github.com/suPer8Hu/order-assistant/internal/email"
	"github.com/suPer8Hu/order-assistant/internal/logging"
	"github.com/suPer8Hu/order-assistant/internal/notify"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"github.com/suPer8Hu/order-assistant/internal/store/rabbitmq"
	"go.uber.org/zap"
)

type jobProcessor interface {
	Process(ctx context.Context, jobID string) error
}

type retryPublisher interface {
	PublishRetry(ctx context.Context, msg rabbitmq.JobMessage, delay time.Duration) error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

func (o outcome) String() string {
	switch o {
	case outcomeAck:
		return "ack"
	case outcomeRetry:
		return "retry"
	}
	return "dead_letter"
}

// handleDelivery runs one job and decides what happens to its delivery. A
// retry is published before the original is acked, so a crash in between
// duplicates the job rather than losing it.
func handleDelivery(ctx context.Context, body []byte, proc jobProcessor, pub retryPublisher, maxAttempts int, log *zap.Logger) outcome {
	m, err := rabbitmq.DecodeJob(body)
	if err != nil {
		log.Warn("bad message", zap.Error(err))
		return outcomeDeadLetter
	}

	start := time.Now()
	err = proc.Process(ctx, m.JobID)
	if err == nil {
		return outcomeAck
	}

	fields := []zap.Field{
		zap.String("job_id", m.JobID),
		zap.Int("attempt", m.Attempt+1),
		zap.Duration("cost", time.Since(start)),
		zap.Error(err),
	}
	if errors.Is(err, notify.ErrPermanent) {
		log.Error("job failed permanently", fields...)
		return outcomeDeadLetter
	}
	if m.Attempt+1 >= maxAttempts {
		log.Error("job out of attempts", fields...)
		return outcomeDeadLetter
	}

	next := rabbitmq.JobMessage{JobID: m.JobID, Attempt: m.Attempt + 1}
	delay := rabbitmq.Backoff(next.Attempt)
	if err := pub.PublishRetry(ctx, next, delay); err != nil {
		log.Error("publish retry failed", append(fields, zap.NamedError("publish_error", err))...)
		return outcomeDeadLetter
	}
	log.Warn("job failed, retry scheduled", append(fields, zap.Duration("delay", delay))...)
	return outcomeRetry
}

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	log = log.Named("worker")

	gdb := db.Connect(cfg.DBDSN, log)

	orders := order.NewRepo(gdb)
	sender := notify.SMTPSender{Cfg: email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}}
	mailer := notify.NewMailer(sender, orders, cfg.StoreName, log.Named("mailer"))
	proc := notify.NewProcessor(notify.NewJobRepo(gdb), mailer, orders, log)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit dial", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit channel", zap.Error(err))
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatal("queue declare", zap.Error(err))
	}

	// retries go out on their own channel so publishing never interleaves
	// with acks on the consuming one
	pubCh, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit publish channel", zap.Error(err))
	}
	pub := rabbitmq.NewChannelPublisher(pubCh, cfg.RabbitQueue, nil)
	defer pub.Close()

	//  strict concurrency control
	concurrency := cfg.WorkerConcurrency

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal("qos", zap.Error(err))
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("consume", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker started",
		zap.String("queue", cfg.RabbitQueue),
		zap.Int("concurrency", concurrency),
		zap.Int("max_attempts", cfg.WorkerMaxAttempts),
	)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			wlog := log.With(zap.Int("worker", workerID))
			for d := range jobs {
				out := handleDelivery(ctx, d.Body, proc, pub, cfg.WorkerMaxAttempts, wlog)
				var err error
				switch out {
				case outcomeAck, outcomeRetry:
					err = d.Ack(false)
				default:
					// dead-letters to the dlq
					err = d.Nack(false, false)
				}
				if err != nil {
					wlog.Warn("settle delivery failed", zap.String("outcome", out.String()), zap.Error(err))
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Error("delivery channel closed")
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- d
		}
	}
}
