package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

type CommissionRepository struct {
	db *sqlx.DB
}

func NewCommissionRepository(db *sqlx.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

const commissionInsertQuery = `
	INSERT INTO commissions (
		id, user_id, order_id, external_id, source, payment_id, order_status,
		order_date, completion_time, click_time,
		store_id, store_name, store_type, item_id, item_name, product_type,
		category_l1, category_l2, category_l3,
		price, quantity, purchase_value, refund_value,
		shopee_commission_rate, shopee_commission, seller_commission_rate, seller_commission,
		total_item_commission, total_order_commission, affiliate_commission,
		affiliate_status, attribution_type, buyer_status,
		sub_id1, sub_id2, sub_id3, sub_id4, sub_id5,
		channel, currency, created_at, updated_at
	) VALUES (
		:id, :user_id, :order_id, :external_id, :source, :payment_id, :order_status,
		:order_date, :completion_time, :click_time,
		:store_id, :store_name, :store_type, :item_id, :item_name, :product_type,
		:category_l1, :category_l2, :category_l3,
		:price, :quantity, :purchase_value, :refund_value,
		:shopee_commission_rate, :shopee_commission, :seller_commission_rate, :seller_commission,
		:total_item_commission, :total_order_commission, :affiliate_commission,
		:affiliate_status, :attribution_type, :buyer_status,
		:sub_id1, :sub_id2, :sub_id3, :sub_id4, :sub_id5,
		:channel, :currency, :created_at, :updated_at
	)`

const commissionUpdateQuery = `
	UPDATE commissions SET
		external_id = COALESCE(:external_id, external_id),
		source = :source,
		payment_id = :payment_id,
		order_status = :order_status,
		order_date = :order_date,
		completion_time = :completion_time,
		click_time = :click_time,
		store_id = :store_id,
		store_name = :store_name,
		store_type = :store_type,
		item_id = :item_id,
		item_name = :item_name,
		product_type = :product_type,
		category_l1 = :category_l1,
		category_l2 = :category_l2,
		category_l3 = :category_l3,
		price = :price,
		quantity = :quantity,
		purchase_value = :purchase_value,
		refund_value = :refund_value,
		shopee_commission_rate = :shopee_commission_rate,
		shopee_commission = :shopee_commission,
		seller_commission_rate = :seller_commission_rate,
		seller_commission = :seller_commission,
		total_item_commission = :total_item_commission,
		total_order_commission = :total_order_commission,
		affiliate_commission = :affiliate_commission,
		affiliate_status = :affiliate_status,
		attribution_type = :attribution_type,
		buyer_status = :buyer_status,
		sub_id1 = :sub_id1,
		sub_id2 = :sub_id2,
		sub_id3 = :sub_id3,
		sub_id4 = :sub_id4,
		sub_id5 = :sub_id5,
		channel = :channel,
		currency = :currency,
		updated_at = :updated_at
	WHERE id = :id`

// lockTenant serializes reconciliation writes per tenant for the lifetime of
// the transaction. Cross-process CSV imports and API syncs touching the same
// order ids go through here.
func lockTenant(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID.String()); err != nil {
		return fmt.Errorf("failed to take tenant lock: %w", err)
	}
	return nil
}

// UpsertByOrderID applies one normalized record without creating duplicates:
// insert when (user_id, order_id) is unseen, full-field update (last writer
// wins) when it exists. Returns true when a row was created.
func (r *CommissionRepository) UpsertByOrderID(ctx context.Context, commission *models.Commission) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := r.upsertByOrderIDTx(ctx, tx, commission)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return created, nil
}

func (r *CommissionRepository) upsertByOrderIDTx(ctx context.Context, tx *sqlx.Tx, commission *models.Commission) (bool, error) {
	if err := lockTenant(ctx, tx, commission.UserID); err != nil {
		return false, err
	}

	var existingID uuid.UUID
	err := tx.GetContext(ctx, &existingID,
		`SELECT id FROM commissions WHERE user_id = $1 AND order_id = $2`,
		commission.UserID, commission.OrderID)

	now := time.Now().UTC()
	commission.UpdatedAt = now

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if commission.ID == uuid.Nil {
			commission.ID = uuid.New()
		}
		commission.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, commissionInsertQuery, commission); err != nil {
			return false, fmt.Errorf("failed to insert commission: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up commission: %w", err)
	default:
		commission.ID = existingID
		if _, err := tx.NamedExecContext(ctx, commissionUpdateQuery, commission); err != nil {
			return false, fmt.Errorf("failed to update commission: %w", err)
		}
		return false, nil
	}
}

// ExistsByExternalID reports whether a commission with the given external API
// id already exists for the tenant. The promotion path checks this before
// inserting so a duplicate never has to rely on a constraint failure.
func (r *CommissionRepository) ExistsByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM commissions WHERE user_id = $1 AND external_id = $2)`,
		userID, externalID)
	if err != nil {
		return false, fmt.Errorf("failed to check commission by external id: %w", err)
	}
	return exists, nil
}

// PromoteConversion creates a Commission from a completed API conversion,
// unless one with the same external id already exists for the tenant. The
// existence check and the order-id upsert run under the same tenant lock so
// concurrent promotions of the same conversion cannot both pass the gate.
// Returns true when a commission row was created or merged.
func (r *CommissionRepository) PromoteConversion(ctx context.Context, conversion *models.AffiliateConversion) (bool, error) {
	if !conversion.FromAPI() || !conversion.Completed() {
		return false, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockTenant(ctx, tx, conversion.UserID); err != nil {
		return false, err
	}

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM commissions WHERE user_id = $1 AND external_id = $2)`,
		conversion.UserID, conversion.ExternalID)
	if err != nil {
		return false, fmt.Errorf("failed to check commission by external id: %w", err)
	}
	if exists {
		return false, tx.Commit()
	}

	commission := conversion.ToCommission()
	if _, err := r.upsertPromotedTx(ctx, tx, commission); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit promotion: %w", err)
	}
	return true, nil
}

// upsertPromotedTx mirrors upsertByOrderIDTx without retaking the tenant lock.
func (r *CommissionRepository) upsertPromotedTx(ctx context.Context, tx *sqlx.Tx, commission *models.Commission) (bool, error) {
	var existingID uuid.UUID
	err := tx.GetContext(ctx, &existingID,
		`SELECT id FROM commissions WHERE user_id = $1 AND order_id = $2`,
		commission.UserID, commission.OrderID)

	now := time.Now().UTC()
	commission.UpdatedAt = now

	switch {
	case errors.Is(err, sql.ErrNoRows):
		commission.ID = uuid.New()
		commission.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, commissionInsertQuery, commission); err != nil {
			return false, fmt.Errorf("failed to insert promoted commission: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up commission: %w", err)
	default:
		commission.ID = existingID
		if _, err := tx.NamedExecContext(ctx, commissionUpdateQuery, commission); err != nil {
			return false, fmt.Errorf("failed to update promoted commission: %w", err)
		}
		return false, nil
	}
}

// GetByOrderID fetches one commission by its tenant-scoped order id.
func (r *CommissionRepository) GetByOrderID(ctx context.Context, userID uuid.UUID, orderID string) (*models.Commission, error) {
	var commission models.Commission
	err := r.db.GetContext(ctx, &commission,
		`SELECT * FROM commissions WHERE user_id = $1 AND order_id = $2`,
		userID, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get commission by order id: %w", err)
	}
	return &commission, nil
}

// DeleteByPeriod removes a tenant's commissions whose order date falls inside
// the period. Zero bounds widen the delete on that side.
func (r *CommissionRepository) DeleteByPeriod(ctx context.Context, userID uuid.UUID, period models.Period) (int64, error) {
	query := `DELETE FROM commissions WHERE user_id = $1`
	args := []any{userID}

	if !period.Start.IsZero() {
		args = append(args, period.Start)
		query += fmt.Sprintf(" AND order_date >= $%d", len(args))
	}
	if !period.End.IsZero() {
		args = append(args, period.End)
		query += fmt.Sprintf(" AND order_date <= $%d", len(args))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete commissions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted commissions: %w", err)
	}
	return deleted, nil
}
