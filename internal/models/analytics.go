package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotInformedBucket labels rollup rows whose grouping dimension is null or
// blank. Those rows are aggregated, not dropped: the sum over all buckets
// including this one must equal the ungrouped total.
const NotInformedBucket = "Não informado"

// DimensionRollup is one raw GROUP BY row from the analytics repository.
// Key is empty when the dimension was null/blank on every record in the bucket.
type DimensionRollup struct {
	Key        string          `db:"bucket_key" json:"key"`
	SubKey     string          `db:"bucket_subkey" json:"sub_key,omitempty"`
	Commission decimal.Decimal `db:"total_commission" json:"commission"`
	Sales      decimal.Decimal `db:"total_sales" json:"sales"`
	Orders     int64           `db:"order_count" json:"orders"`
}

// DailyRollup is one day bucket of the daily commission series.
type DailyRollup struct {
	Day        time.Time       `db:"day" json:"day"`
	Commission decimal.Decimal `db:"total_commission" json:"commission"`
	Sales      decimal.Decimal `db:"total_sales" json:"sales"`
	Orders     int64           `db:"order_count" json:"orders"`
}

// CommissionTotals is the ungrouped aggregate over a filtered commission set.
type CommissionTotals struct {
	Commission decimal.Decimal `db:"total_commission" json:"commission"`
	Sales      decimal.Decimal `db:"total_sales" json:"sales"`
	Orders     int64           `db:"order_count" json:"orders"`
	Completed  int64           `db:"completed_count" json:"completed"`
}

// SourceTotals splits commission totals by record source.
type SourceTotals struct {
	Source     string          `db:"source" json:"source"`
	Commission decimal.Decimal `db:"total_commission" json:"commission"`
	Orders     int64           `db:"order_count" json:"orders"`
}

// Bucket is one aggregated entry as served to the dashboard: repository
// rollup enriched with percentage-of-total and, for sub-ids, ROI/CPA.
type Bucket struct {
	Name       string          `json:"name"`
	SubKey     string          `json:"sub_key,omitempty"`
	Commission decimal.Decimal `json:"commission"`
	Sales      decimal.Decimal `json:"sales"`
	Orders     int64           `json:"orders"`
	Percentage decimal.Decimal `json:"percentage"`
	AdSpend    decimal.Decimal `json:"ad_spend,omitempty"`
	ROI        decimal.Decimal `json:"roi,omitempty"`
	CPA        decimal.Decimal `json:"cpa,omitempty"`
}

// AnalyticsOverview is the dashboard headline block.
type AnalyticsOverview struct {
	TotalCommission decimal.Decimal `json:"total_commission"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalOrders     int64           `json:"total_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	CSVCommission   decimal.Decimal `json:"csv_commission"`
	APICommission   decimal.Decimal `json:"api_commission"`
	ConversionRate  decimal.Decimal `json:"conversion_rate"`
}

// Period bounds a rollup query. Zero values mean unbounded on that side.
type Period struct {
	Start time.Time
	End   time.Time
}
