package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

// Dimension names accepted by RollupByDimension, mapped to the column each
// one groups on. Grouping keys go through COALESCE(NULLIF(TRIM(...), ''), '')
// so null and blank values collapse into one empty-key bucket instead of
// being dropped from the rollup.
var rollupDimensions = map[string]string{
	"channel":  "channel",
	"category": "category_l1",
	"subid":    "sub_id1",
}

type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// periodFilter appends the optional date bounds to a query that already has
// user_id as $1 and the cancelled-status filter in place.
func periodFilter(query string, args []any, period models.Period) (string, []any) {
	if !period.Start.IsZero() {
		args = append(args, period.Start)
		query += fmt.Sprintf(" AND order_date >= $%d", len(args))
	}
	if !period.End.IsZero() {
		args = append(args, period.End)
		query += fmt.Sprintf(" AND order_date <= $%d", len(args))
	}
	return query, args
}

// RollupByDimension sums commission and sales per bucket of one dimension
// over the tenant's non-cancelled commissions, descending by commission.
// limit <= 0 means unbounded.
func (r *AnalyticsRepository) RollupByDimension(ctx context.Context, userID uuid.UUID, dimension string, period models.Period, limit int) ([]models.DimensionRollup, error) {
	column, ok := rollupDimensions[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown rollup dimension: %s", dimension)
	}

	query := fmt.Sprintf(`
		SELECT
			COALESCE(NULLIF(TRIM(%s), ''), '') AS bucket_key,
			'' AS bucket_subkey,
			COALESCE(SUM(affiliate_commission), 0) AS total_commission,
			COALESCE(SUM(purchase_value), 0) AS total_sales,
			COUNT(*) AS order_count
		FROM commissions
		WHERE user_id = $1 AND order_status <> 'cancelled'`, column)
	args := []any{userID}
	query, args = periodFilter(query, args, period)

	query += fmt.Sprintf(`
		GROUP BY COALESCE(NULLIF(TRIM(%s), ''), '')
		ORDER BY total_commission DESC`, column)
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rollups []models.DimensionRollup
	if err := r.db.SelectContext(ctx, &rollups, query, args...); err != nil {
		return nil, fmt.Errorf("failed to roll up by %s: %w", dimension, err)
	}
	return rollups, nil
}

// RollupByProduct groups on (item_name, item_id) so distinct items sharing a
// name stay separate buckets.
func (r *AnalyticsRepository) RollupByProduct(ctx context.Context, userID uuid.UUID, period models.Period, limit int) ([]models.DimensionRollup, error) {
	query := `
		SELECT
			COALESCE(NULLIF(TRIM(item_name), ''), '') AS bucket_key,
			COALESCE(NULLIF(TRIM(item_id), ''), '') AS bucket_subkey,
			COALESCE(SUM(affiliate_commission), 0) AS total_commission,
			COALESCE(SUM(purchase_value), 0) AS total_sales,
			COUNT(*) AS order_count
		FROM commissions
		WHERE user_id = $1 AND order_status <> 'cancelled'`
	args := []any{userID}
	query, args = periodFilter(query, args, period)

	query += `
		GROUP BY COALESCE(NULLIF(TRIM(item_name), ''), ''), COALESCE(NULLIF(TRIM(item_id), ''), '')
		ORDER BY total_commission DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rollups []models.DimensionRollup
	if err := r.db.SelectContext(ctx, &rollups, query, args...); err != nil {
		return nil, fmt.Errorf("failed to roll up by product: %w", err)
	}
	return rollups, nil
}

// RollupByDay returns the daily commission series, oldest first.
func (r *AnalyticsRepository) RollupByDay(ctx context.Context, userID uuid.UUID, period models.Period) ([]models.DailyRollup, error) {
	query := `
		SELECT
			DATE_TRUNC('day', order_date) AS day,
			COALESCE(SUM(affiliate_commission), 0) AS total_commission,
			COALESCE(SUM(purchase_value), 0) AS total_sales,
			COUNT(*) AS order_count
		FROM commissions
		WHERE user_id = $1 AND order_status <> 'cancelled' AND order_date IS NOT NULL`
	args := []any{userID}
	query, args = periodFilter(query, args, period)

	query += `
		GROUP BY DATE_TRUNC('day', order_date)
		ORDER BY day`

	var rollups []models.DailyRollup
	if err := r.db.SelectContext(ctx, &rollups, query, args...); err != nil {
		return nil, fmt.Errorf("failed to roll up by day: %w", err)
	}
	return rollups, nil
}

// Totals returns the ungrouped sums over the tenant's non-cancelled
// commissions, plus the completed-order count for conversion rate.
func (r *AnalyticsRepository) Totals(ctx context.Context, userID uuid.UUID, period models.Period) (*models.CommissionTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(affiliate_commission), 0) AS total_commission,
			COALESCE(SUM(purchase_value), 0) AS total_sales,
			COUNT(*) AS order_count,
			COUNT(*) FILTER (WHERE order_status = 'completed') AS completed_count
		FROM commissions
		WHERE user_id = $1 AND order_status <> 'cancelled'`
	args := []any{userID}
	query, args = periodFilter(query, args, period)

	var totals models.CommissionTotals
	if err := r.db.GetContext(ctx, &totals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get commission totals: %w", err)
	}
	return &totals, nil
}

// TotalsBySource splits the commission totals between the CSV and API paths.
func (r *AnalyticsRepository) TotalsBySource(ctx context.Context, userID uuid.UUID, period models.Period) ([]models.SourceTotals, error) {
	query := `
		SELECT
			source,
			COALESCE(SUM(affiliate_commission), 0) AS total_commission,
			COUNT(*) AS order_count
		FROM commissions
		WHERE user_id = $1 AND order_status <> 'cancelled'`
	args := []any{userID}
	query, args = periodFilter(query, args, period)
	query += " GROUP BY source"

	var totals []models.SourceTotals
	if err := r.db.SelectContext(ctx, &totals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get totals by source: %w", err)
	}
	return totals, nil
}

// DataPeriod returns the min and max order dates of the tenant's commissions,
// used to default the ad-spend entry period.
func (r *AnalyticsRepository) DataPeriod(ctx context.Context, userID uuid.UUID) (*models.Period, error) {
	var start, end sql.NullTime
	err := r.db.QueryRowxContext(ctx, `
		SELECT MIN(order_date), MAX(order_date)
		FROM commissions
		WHERE user_id = $1 AND order_status <> 'cancelled' AND order_date IS NOT NULL`,
		userID).Scan(&start, &end)
	if err != nil {
		return nil, fmt.Errorf("failed to get data period: %w", err)
	}

	period := &models.Period{}
	if start.Valid {
		period.Start = start.Time
	}
	if end.Valid {
		period.End = end.Time
	}
	return period, nil
}
