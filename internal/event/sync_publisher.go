package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/repository"
)

const (
	SyncJobQueue    = "shopee_sync_jobs"
	SyncJobDLQ      = "shopee_sync_jobs_dlq"
	JobKindSync     = "sync"
	JobKindBackfill = "backfill"
)

// SyncJobMessage is one queued sync or backfill request for an integration.
type SyncJobMessage struct {
	IntegrationID uuid.UUID `json:"integration_id"`
	Kind          string    `json:"kind"`
	Days          int       `json:"days"`
}

// SyncPublisher enqueues sync/backfill jobs for the background consumer.
type SyncPublisher struct {
	conn         *RabbitMQConnection
	integrations *repository.IntegrationRepository
}

func NewSyncPublisher(conn *RabbitMQConnection, integrations *repository.IntegrationRepository) (*SyncPublisher, error) {
	for _, queue := range []string{SyncJobQueue, SyncJobDLQ} {
		if _, err := conn.Channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}
	return &SyncPublisher{conn: conn, integrations: integrations}, nil
}

// Publish enqueues one job.
func (p *SyncPublisher) Publish(ctx context.Context, message SyncJobMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal sync job: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(ctx,
		"",           // exchange
		SyncJobQueue, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish sync job: %w", err)
	}

	slog.Info("sync job enqueued",
		"integration_id", message.IntegrationID, "kind", message.Kind, "days", message.Days)
	return nil
}

// PublishSyncAll enqueues an incremental sync for every active integration.
func (p *SyncPublisher) PublishSyncAll(ctx context.Context, daysBack int) (int, error) {
	integrations, err := p.integrations.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, integration := range integrations {
		err := p.Publish(ctx, SyncJobMessage{
			IntegrationID: integration.ID,
			Kind:          JobKindSync,
			Days:          daysBack,
		})
		if err != nil {
			slog.Error("failed to enqueue sync job", "integration_id", integration.ID, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
