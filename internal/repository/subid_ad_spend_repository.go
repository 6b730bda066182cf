package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

type SubIDAdSpendRepository struct {
	db *sqlx.DB
}

func NewSubIDAdSpendRepository(db *sqlx.DB) *SubIDAdSpendRepository {
	return &SubIDAdSpendRepository{db: db}
}

// SpendForSubID sums the tenant's ad spend for one sub-id across entries
// whose period overlaps the given period.
func (r *SubIDAdSpendRepository) SpendForSubID(ctx context.Context, userID uuid.UUID, subID string, period models.Period) (decimal.Decimal, error) {
	var spend decimal.Decimal
	err := r.db.GetContext(ctx, &spend, `
		SELECT COALESCE(SUM(ad_spend), 0)
		FROM subid_ad_spends
		WHERE user_id = $1 AND subid = $2
		  AND period_start <= $3 AND period_end >= $4`,
		userID, subID, period.End, period.Start)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ad spend for subid: %w", err)
	}
	return spend, nil
}

// SpendBySubID returns the tenant's per-subid ad spend totals for entries
// overlapping the period, keyed by sub-id.
func (r *SubIDAdSpendRepository) SpendBySubID(ctx context.Context, userID uuid.UUID, period models.Period) (map[string]decimal.Decimal, error) {
	rows := []struct {
		SubID string          `db:"subid"`
		Spend decimal.Decimal `db:"spend"`
	}{}

	err := r.db.SelectContext(ctx, &rows, `
		SELECT subid, COALESCE(SUM(ad_spend), 0) AS spend
		FROM subid_ad_spends
		WHERE user_id = $1
		  AND period_start <= $2 AND period_end >= $3
		GROUP BY subid`,
		userID, period.End, period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ad spend by subid: %w", err)
	}

	spend := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		spend[row.SubID] = row.Spend
	}
	return spend, nil
}

// ReplaceForPeriod clears the tenant's entries for the exact period and
// inserts the new set, so re-submitting the ad spend form updates in place.
func (r *SubIDAdSpendRepository) ReplaceForPeriod(ctx context.Context, userID uuid.UUID, periodStart, periodEnd time.Time, spends []models.SubIDAdSpend) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM subid_ad_spends WHERE user_id = $1 AND period_start = $2 AND period_end = $3`,
		userID, periodStart, periodEnd)
	if err != nil {
		return fmt.Errorf("failed to clear ad spend for period: %w", err)
	}

	query := `
		INSERT INTO subid_ad_spends (
			id, user_id, subid, ad_spend, total_investment,
			period_start, period_end, created_at, updated_at
		) VALUES (
			:id, :user_id, :subid, :ad_spend, :total_investment,
			:period_start, :period_end, :created_at, :updated_at
		)`

	now := time.Now().UTC()
	for i := range spends {
		spends[i].ID = uuid.New()
		spends[i].UserID = userID
		spends[i].PeriodStart = periodStart
		spends[i].PeriodEnd = periodEnd
		spends[i].CreatedAt = now
		spends[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, spends[i]); err != nil {
			return fmt.Errorf("failed to insert ad spend for subid %s: %w", spends[i].SubID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ad spend: %w", err)
	}
	return nil
}
