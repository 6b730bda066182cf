package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

type IntegrationRepository struct {
	db *sqlx.DB
}

func NewIntegrationRepository(db *sqlx.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

func (r *IntegrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ShopeeIntegration, error) {
	var integration models.ShopeeIntegration
	err := r.db.GetContext(ctx, &integration,
		`SELECT * FROM shopee_integrations WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get integration by id: %w", err)
	}
	return &integration, nil
}

func (r *IntegrationRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ShopeeIntegration, error) {
	var integration models.ShopeeIntegration
	err := r.db.GetContext(ctx, &integration,
		`SELECT * FROM shopee_integrations WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get integration by user id: %w", err)
	}
	return &integration, nil
}

// Upsert saves a tenant's integration credentials, one row per tenant.
func (r *IntegrationRepository) Upsert(ctx context.Context, integration *models.ShopeeIntegration) error {
	if integration.ID == uuid.Nil {
		integration.ID = uuid.New()
	}
	now := time.Now().UTC()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = now
	}
	integration.UpdatedAt = now

	query := `
		INSERT INTO shopee_integrations (
			id, user_id, app_id, secret, endpoint, active,
			last_sync_at, sync_count, last_error,
			rate_limit_per_minute, rate_limit_per_hour, created_at, updated_at
		) VALUES (
			:id, :user_id, :app_id, :secret, :endpoint, :active,
			:last_sync_at, :sync_count, :last_error,
			:rate_limit_per_minute, :rate_limit_per_hour, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			app_id = EXCLUDED.app_id,
			secret = EXCLUDED.secret,
			endpoint = EXCLUDED.endpoint,
			active = EXCLUDED.active,
			rate_limit_per_minute = EXCLUDED.rate_limit_per_minute,
			rate_limit_per_hour = EXCLUDED.rate_limit_per_hour,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.NamedExecContext(ctx, query, integration); err != nil {
		return fmt.Errorf("failed to upsert integration: %w", err)
	}
	return nil
}

// MarkSynced records a successful sync: timestamp, counter, error cleared.
func (r *IntegrationRepository) MarkSynced(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE shopee_integrations
		SET last_sync_at = NOW(), sync_count = sync_count + 1, last_error = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark integration synced: %w", err)
	}
	return nil
}

// MarkError records a terminal sync failure for user-facing status.
func (r *IntegrationRepository) MarkError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE shopee_integrations
		SET last_error = $2, updated_at = NOW()
		WHERE id = $1`, id, message)
	if err != nil {
		return fmt.Errorf("failed to mark integration error: %w", err)
	}
	return nil
}

// ListActive returns every active integration, for scheduled sync fan-out.
func (r *IntegrationRepository) ListActive(ctx context.Context) ([]models.ShopeeIntegration, error) {
	var integrations []models.ShopeeIntegration
	err := r.db.SelectContext(ctx, &integrations,
		`SELECT * FROM shopee_integrations WHERE active = TRUE ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active integrations: %w", err)
	}
	return integrations, nil
}
