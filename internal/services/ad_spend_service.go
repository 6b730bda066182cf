package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/repository"
)

var ErrNoCommissionData = errors.New("no commission data to derive an ad spend period from")

// AdSpendEntry is one submitted (sub-id, spend) pair.
type AdSpendEntry struct {
	SubID   string          `json:"subid"`
	AdSpend decimal.Decimal `json:"ad_spend"`
}

// AdSpendService saves user-entered advertising spend per sub-id. The period
// defaults to the tenant's commission date range when none is given, matching
// the dashboard's "apply to my current data" flow.
type AdSpendService struct {
	adSpends  *repository.SubIDAdSpendRepository
	analytics *repository.AnalyticsRepository
}

func NewAdSpendService(adSpends *repository.SubIDAdSpendRepository, analytics *repository.AnalyticsRepository) *AdSpendService {
	return &AdSpendService{
		adSpends:  adSpends,
		analytics: analytics,
	}
}

// Save replaces the tenant's ad spend entries for the period. Entries with a
// blank sub-id or non-positive spend are dropped silently, like blank form rows.
func (s *AdSpendService) Save(ctx context.Context, userID uuid.UUID, periodStart, periodEnd time.Time, entries []AdSpendEntry, totalInvestment *decimal.Decimal) error {
	if periodStart.IsZero() || periodEnd.IsZero() {
		period, err := s.analytics.DataPeriod(ctx, userID)
		if err != nil {
			return err
		}
		if period.Start.IsZero() || period.End.IsZero() {
			return ErrNoCommissionData
		}
		periodStart, periodEnd = period.Start, period.End
	}

	spends := make([]models.SubIDAdSpend, 0, len(entries))
	for _, entry := range entries {
		if entry.SubID == "" || !entry.AdSpend.IsPositive() {
			continue
		}
		spends = append(spends, models.SubIDAdSpend{
			SubID:           entry.SubID,
			AdSpend:         entry.AdSpend,
			TotalInvestment: totalInvestment,
		})
	}

	if err := s.adSpends.ReplaceForPeriod(ctx, userID, periodStart, periodEnd, spends); err != nil {
		slog.Error("failed to save ad spend", "user_id", userID, "error", err)
		return err
	}

	slog.Info("ad spend saved", "user_id", userID, "entries", len(spends),
		"period_start", periodStart.Format("2006-01-02"), "period_end", periodEnd.Format("2006-01-02"))
	return nil
}
