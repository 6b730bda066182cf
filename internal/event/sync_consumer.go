package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/shopee"
)

// Retry caps per job kind. Backfills cover a larger window, so they get more
// attempts before landing in the dead-letter queue.
const (
	syncMaxRetries     = 3
	backfillMaxRetries = 5
)

// SyncConsumer processes queued sync/backfill jobs at-least-once. Transient
// failures are requeued with a growing delay up to the retry cap; permanent
// failures (invalid credentials, inactive integration) are dropped after the
// sync service has recorded the error on the integration.
type SyncConsumer struct {
	conn    *RabbitMQConnection
	syncSvc *shopee.SyncService
}

func NewSyncConsumer(conn *RabbitMQConnection, syncSvc *shopee.SyncService) *SyncConsumer {
	return &SyncConsumer{conn: conn, syncSvc: syncSvc}
}

func (c *SyncConsumer) StartConsuming(ctx context.Context) error {
	msgs, err := c.conn.Channel.Consume(
		SyncJobQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("sync job consumer started", "queue", SyncJobQueue)

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("sync job channel closed")
			}
			c.handleDelivery(ctx, msg)
		case <-ctx.Done():
			slog.Info("sync job consumer stopped")
			return ctx.Err()
		}
	}
}

func (c *SyncConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	err := c.processMessage(ctx, msg)
	if err == nil {
		msg.Ack(false)
		return
	}

	if isPermanent(err) {
		// Already surfaced on the integration's last_error; retrying
		// cannot succeed.
		slog.Error("sync job failed permanently", "error", err)
		msg.Ack(false)
		return
	}

	retryCount := 0
	if val, ok := msg.Headers["x-retry-count"].(int32); ok {
		retryCount = int(val)
	}

	var job SyncJobMessage
	maxRetries := syncMaxRetries
	if json.Unmarshal(msg.Body, &job) == nil && job.Kind == JobKindBackfill {
		maxRetries = backfillMaxRetries
	}

	if retryCount < maxRetries {
		slog.Warn("sync job failed, requeueing", "retry", retryCount+1, "error", err)
		if requeueErr := c.requeueMessage(ctx, msg, retryCount+1); requeueErr != nil {
			slog.Error("failed to requeue sync job", "error", requeueErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	// Retries exhausted: terminal, reported failure.
	slog.Error("sync job sent to DLQ", "retries", retryCount, "error", err)
	c.deadLetter(ctx, msg)
}

func (c *SyncConsumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	var job SyncJobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		return fmt.Errorf("failed to unmarshal sync job: %w", err)
	}

	switch job.Kind {
	case JobKindSync:
		days := job.Days
		if days <= 0 {
			days = 7
		}
		result, err := c.syncSvc.SyncRecent(ctx, job.IntegrationID, days)
		if err != nil {
			return err
		}
		slog.Info("sync job completed", "integration_id", job.IntegrationID, "summary", result.Summary())
		return nil
	case JobKindBackfill:
		days := job.Days
		if days <= 0 {
			days = 30
		}
		result, err := c.syncSvc.Backfill(ctx, job.IntegrationID, days)
		if err != nil {
			return err
		}
		slog.Info("backfill job completed", "integration_id", job.IntegrationID, "summary", result.Summary())
		return nil
	default:
		return fmt.Errorf("unsupported sync job kind: %s", job.Kind)
	}
}

// isPermanent reports failures that no amount of retrying will fix.
func isPermanent(err error) bool {
	return errors.Is(err, shopee.ErrInvalidCredentials) ||
		errors.Is(err, shopee.ErrIntegrationInactive)
}

func (c *SyncConsumer) requeueMessage(ctx context.Context, msg amqp.Delivery, retryCount int) error {
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retry-count"] = int32(retryCount)

	delay := time.Duration(retryCount*retryCount) * time.Second

	return c.conn.Channel.PublishWithContext(ctx,
		"",           // exchange
		SyncJobQueue, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
			Headers:      headers,
			Expiration:   fmt.Sprintf("%d", delay.Milliseconds()),
		})
}

func (c *SyncConsumer) deadLetter(ctx context.Context, msg amqp.Delivery) {
	err := c.conn.Channel.PublishWithContext(ctx,
		"",         // exchange
		SyncJobDLQ, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
			Headers:      msg.Headers,
		})
	if err != nil {
		slog.Error("failed to publish to DLQ", "error", err)
		msg.Nack(false, false)
		return
	}
	msg.Ack(false)
}
