package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

type AffiliateConversionRepository struct {
	db *sqlx.DB
}

func NewAffiliateConversionRepository(db *sqlx.DB) *AffiliateConversionRepository {
	return &AffiliateConversionRepository{db: db}
}

// ExistsByExternalID reports whether the tenant already has a conversion with
// this external id. Sync batches check this before inserting so duplicate
// pages never abort a batch on the unique constraint.
func (r *AffiliateConversionRepository) ExistsByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM affiliate_conversions WHERE user_id = $1 AND external_id = $2)`,
		userID, externalID)
	if err != nil {
		return false, fmt.Errorf("failed to check conversion by external id: %w", err)
	}
	return exists, nil
}

// Create inserts one raw conversion event.
func (r *AffiliateConversionRepository) Create(ctx context.Context, conversion *models.AffiliateConversion) error {
	if conversion.ID == uuid.Nil {
		conversion.ID = uuid.New()
	}
	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO affiliate_conversions (
			id, user_id, integration_id, external_id, order_id, item_id,
			item_name, category, channel, sub_id, commission_cents, currency, quantity,
			purchase_value, commission_rate, click_time, conversion_time,
			status, source, raw_data, created_at
		) VALUES (
			:id, :user_id, :integration_id, :external_id, :order_id, :item_id,
			:item_name, :category, :channel, :sub_id, :commission_cents, :currency, :quantity,
			:purchase_value, :commission_rate, :click_time, :conversion_time,
			:status, :source, :raw_data, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, conversion); err != nil {
		return fmt.Errorf("failed to create affiliate conversion: %w", err)
	}
	return nil
}

// ListByPeriod returns a tenant's conversions ordered by conversion time.
func (r *AffiliateConversionRepository) ListByPeriod(ctx context.Context, userID uuid.UUID, period models.Period) ([]models.AffiliateConversion, error) {
	query := `SELECT * FROM affiliate_conversions WHERE user_id = $1`
	args := []any{userID}

	if !period.Start.IsZero() {
		args = append(args, period.Start)
		query += fmt.Sprintf(" AND conversion_time >= $%d", len(args))
	}
	if !period.End.IsZero() {
		args = append(args, period.End)
		query += fmt.Sprintf(" AND conversion_time <= $%d", len(args))
	}
	query += " ORDER BY conversion_time DESC"

	var conversions []models.AffiliateConversion
	if err := r.db.SelectContext(ctx, &conversions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	return conversions, nil
}
