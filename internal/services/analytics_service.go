package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
	"github.com/thiagodapenhafernandes/appdoafiliado/internal/repository"
)

// Default top-N cutoffs where the dashboard needs bounded lists.
const (
	TopProductsLimit = 10
	TopSubIDsLimit   = 50
)

var oneHundred = decimal.NewFromInt(100)

// AnalyticsService turns repository rollups into the shapes the dashboard
// renders: named buckets with percentage-of-total, and per-subid ROI/CPA
// derived from the separate ad-spend records.
type AnalyticsService struct {
	analytics *repository.AnalyticsRepository
	adSpends  *repository.SubIDAdSpendRepository
}

func NewAnalyticsService(analytics *repository.AnalyticsRepository, adSpends *repository.SubIDAdSpendRepository) *AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		adSpends:  adSpends,
	}
}

// Overview returns the headline totals with the CSV/API source split and the
// conversion rate against the supplied click count.
func (s *AnalyticsService) Overview(ctx context.Context, userID uuid.UUID, period models.Period, totalClicks int64) (*models.AnalyticsOverview, error) {
	totals, err := s.analytics.Totals(ctx, userID, period)
	if err != nil {
		slog.Error("failed to get commission totals", "user_id", userID, "error", err)
		return nil, err
	}

	bySource, err := s.analytics.TotalsBySource(ctx, userID, period)
	if err != nil {
		slog.Error("failed to get totals by source", "user_id", userID, "error", err)
		return nil, err
	}

	overview := &models.AnalyticsOverview{
		TotalCommission: totals.Commission,
		TotalSales:      totals.Sales,
		TotalOrders:     totals.Orders,
		CompletedOrders: totals.Completed,
		ConversionRate:  ConversionRate(totals.Completed, totalClicks),
	}
	for _, source := range bySource {
		switch source.Source {
		case models.SourceCSV:
			overview.CSVCommission = source.Commission
		case models.SourceShopeeAPI:
			overview.APICommission = source.Commission
		}
	}
	return overview, nil
}

// ChannelPerformance returns per-channel buckets, unbounded.
func (s *AnalyticsService) ChannelPerformance(ctx context.Context, userID uuid.UUID, period models.Period) ([]models.Bucket, error) {
	return s.dimensionPerformance(ctx, userID, "channel", period, 0)
}

// CategoryPerformance returns per-L1-category buckets, unbounded.
func (s *AnalyticsService) CategoryPerformance(ctx context.Context, userID uuid.UUID, period models.Period) ([]models.Bucket, error) {
	return s.dimensionPerformance(ctx, userID, "category", period, 0)
}

// TopProducts returns the best items by commission, bounded to limit
// (TopProductsLimit when limit <= 0).
func (s *AnalyticsService) TopProducts(ctx context.Context, userID uuid.UUID, period models.Period, limit int) ([]models.Bucket, error) {
	if limit <= 0 {
		limit = TopProductsLimit
	}

	totals, err := s.analytics.Totals(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	rollups, err := s.analytics.RollupByProduct(ctx, userID, period, limit)
	if err != nil {
		return nil, err
	}
	return BuildBuckets(rollups, totals.Commission), nil
}

// SubIDPerformance returns per-subid buckets enriched with ad spend, ROI and
// CPA, bounded to limit (TopSubIDsLimit when limit <= 0). Records without a
// sub-id are aggregated into the "Não informado" bucket, whose ad spend is
// looked up under the empty sub-id key.
func (s *AnalyticsService) SubIDPerformance(ctx context.Context, userID uuid.UUID, period models.Period, limit int) ([]models.Bucket, error) {
	if limit <= 0 {
		limit = TopSubIDsLimit
	}

	totals, err := s.analytics.Totals(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	rollups, err := s.analytics.RollupByDimension(ctx, userID, "subid", period, limit)
	if err != nil {
		return nil, err
	}
	spendBySubID, err := s.adSpends.SpendBySubID(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	buckets := BuildBuckets(rollups, totals.Commission)
	for i := range buckets {
		spend := spendBySubID[rollups[i].Key]
		buckets[i].AdSpend = spend
		buckets[i].ROI = ComputeROI(buckets[i].Commission, spend)
		buckets[i].CPA = ComputeCPA(spend, buckets[i].Orders)
	}
	return buckets, nil
}

// DailySeries returns the per-day commission series for charts.
func (s *AnalyticsService) DailySeries(ctx context.Context, userID uuid.UUID, period models.Period) ([]models.DailyRollup, error) {
	return s.analytics.RollupByDay(ctx, userID, period)
}

// DataPeriod exposes the tenant's commission date range.
func (s *AnalyticsService) DataPeriod(ctx context.Context, userID uuid.UUID) (*models.Period, error) {
	return s.analytics.DataPeriod(ctx, userID)
}

func (s *AnalyticsService) dimensionPerformance(ctx context.Context, userID uuid.UUID, dimension string, period models.Period, limit int) ([]models.Bucket, error) {
	totals, err := s.analytics.Totals(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	rollups, err := s.analytics.RollupByDimension(ctx, userID, dimension, period, limit)
	if err != nil {
		return nil, err
	}
	return BuildBuckets(rollups, totals.Commission), nil
}

// BuildBuckets names rollup rows and computes each bucket's share of the
// total commission. Rows whose key is empty (null/blank dimension) become
// the explicit "Não informado" bucket rather than being dropped, so the
// bucket sums always add up to the ungrouped total.
func BuildBuckets(rollups []models.DimensionRollup, totalCommission decimal.Decimal) []models.Bucket {
	buckets := make([]models.Bucket, 0, len(rollups))
	for _, rollup := range rollups {
		name := rollup.Key
		if name == "" {
			name = models.NotInformedBucket
		}
		buckets = append(buckets, models.Bucket{
			Name:       name,
			SubKey:     rollup.SubKey,
			Commission: rollup.Commission,
			Sales:      rollup.Sales,
			Orders:     rollup.Orders,
			Percentage: PercentageOf(rollup.Commission, totalCommission),
		})
	}
	return buckets
}

// PercentageOf returns part/total × 100 rounded to 2 places, and 0 when the
// total is zero.
func PercentageOf(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(oneHundred).Round(2)
}

// ComputeROI returns (commission − spend)/spend × 100 when spend > 0, else 0.
func ComputeROI(commission, adSpend decimal.Decimal) decimal.Decimal {
	if !adSpend.IsPositive() {
		return decimal.Zero
	}
	return commission.Sub(adSpend).Div(adSpend).Mul(oneHundred).Round(2)
}

// ComputeCPA returns spend/orders when both are positive, else 0.
func ComputeCPA(adSpend decimal.Decimal, orders int64) decimal.Decimal {
	if orders <= 0 || !adSpend.IsPositive() {
		return decimal.Zero
	}
	return adSpend.Div(decimal.NewFromInt(orders)).Round(2)
}

// ConversionRate returns completed/clicks × 100 with a zero-clicks guard.
func ConversionRate(completedOrders, totalClicks int64) decimal.Decimal {
	if totalClicks <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(completedOrders).
		Div(decimal.NewFromInt(totalClicks)).
		Mul(oneHundred).Round(2)
}
