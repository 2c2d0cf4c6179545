package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// JobMessage points the worker at a notification job row. Attempt counts
// deliveries that already failed.
type JobMessage struct {
	JobID   string `json:"job_id"`
	Attempt int    `json:"attempt"`
}

func (m JobMessage) Validate() error {
	if m.JobID == "" {
		return errors.New("job message without job_id")
	}
	return nil
}

func RetryQueue(queue string) string { return queue + ".retry" }
func DLQ(queue string) string        { return queue + ".dlq" }

// DeclareTopology declares main, retry and dead letter queues. Both the
// server and the worker call it so their queue arguments always agree.
//
//	main  --nack--> dlq
//	retry --ttl---> main
func DeclareTopology(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(
		DLQ(queue),
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		return err
	}

	// per-message Expiration on the retry queue dead-letters back to main
	if _, err := ch.QueueDeclare(
		RetryQueue(queue),
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": queue,
		},
	); err != nil {
		return err
	}

	_, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": DLQ(queue),
		},
	)
	return err
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := DeclareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return NewChannelPublisher(ch, queue, conn), nil
}

// NewChannelPublisher wraps an already open channel. conn may be nil when
// the caller owns the connection.
func NewChannelPublisher(ch *amqp.Channel, queue string, conn *amqp.Connection) *Publisher {
	return &Publisher{conn: conn, ch: ch, queue: queue}
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) PublishJob(ctx context.Context, msg JobMessage) error {
	return p.publish(ctx, p.queue, msg, "")
}

// PublishRetry parks msg on the retry queue for delay before it returns to
// the main queue.
func (p *Publisher) PublishRetry(ctx context.Context, msg JobMessage, delay time.Duration) error {
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	return p.publish(ctx, RetryQueue(p.queue), msg, strconv.FormatInt(delay.Milliseconds(), 10))
}

func (p *Publisher) publish(ctx context.Context, routingKey string, msg JobMessage, expiration string) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",         // default exchange
		routingKey, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Expiration:   expiration,
			Timestamp:    time.Now(),
		},
	)
}

// Backoff is the retry delay after attempt failures: 2s, 4s, 8s ... capped
// at five minutes.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	const max = 5 * time.Minute
	d := time.Second
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

// DecodeJob parses a delivery body.
func DecodeJob(body []byte) (JobMessage, error) {
	var m JobMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return JobMessage{}, err
	}
	return m, m.Validate()
}
