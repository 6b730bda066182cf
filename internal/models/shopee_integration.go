package models

import (
	"time"

	"github.com/google/uuid"
)

// ShopeeIntegration holds one tenant's affiliate API credentials and sync state.
type ShopeeIntegration struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	UserID             uuid.UUID  `db:"user_id" json:"user_id"`
	AppID              string     `db:"app_id" json:"app_id"`
	Secret             string     `db:"secret" json:"-"`
	Endpoint           string     `db:"endpoint" json:"endpoint"`
	Active             bool       `db:"active" json:"active"`
	LastSyncAt         *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	SyncCount          int        `db:"sync_count" json:"sync_count"`
	LastError          *string    `db:"last_error" json:"last_error,omitempty"`
	RateLimitPerMinute int        `db:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	RateLimitPerHour   int        `db:"rate_limit_per_hour" json:"rate_limit_per_hour"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}
