package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubIDAdSpend is user-entered advertising spend attributed to one sub-id
// over a date period. It feeds ROI/CPA derivation only; it is never reconciled
// against commissions.
type SubIDAdSpend struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	UserID          uuid.UUID        `db:"user_id" json:"user_id"`
	SubID           string           `db:"subid" json:"subid"`
	AdSpend         decimal.Decimal  `db:"ad_spend" json:"ad_spend"`
	TotalInvestment *decimal.Decimal `db:"total_investment" json:"total_investment,omitempty"`
	PeriodStart     time.Time        `db:"period_start" json:"period_start"`
	PeriodEnd       time.Time        `db:"period_end" json:"period_end"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}
