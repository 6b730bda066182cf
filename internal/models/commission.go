package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission source values
const (
	SourceCSV       = "csv"
	SourceShopeeAPI = "shopee_api"
)

// Normalized order status values. Unrecognized statuses are stored as a
// lowercase pass-through.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// Commission is one reconciled sale record for a tenant. (user_id, order_id)
// is unique: a record first created from the API and later supplied via CSV
// for the same order merges into the same row.
type Commission struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	UserID               uuid.UUID       `db:"user_id" json:"user_id"`
	OrderID              string          `db:"order_id" json:"order_id"`
	ExternalID           *string         `db:"external_id" json:"external_id,omitempty"`
	Source               string          `db:"source" json:"source"`
	PaymentID            *string         `db:"payment_id" json:"payment_id,omitempty"`
	OrderStatus          string          `db:"order_status" json:"order_status"`
	OrderDate            *time.Time      `db:"order_date" json:"order_date,omitempty"`
	CompletionTime       *time.Time      `db:"completion_time" json:"completion_time,omitempty"`
	ClickTime            *time.Time      `db:"click_time" json:"click_time,omitempty"`
	StoreID              *string         `db:"store_id" json:"store_id,omitempty"`
	StoreName            *string         `db:"store_name" json:"store_name,omitempty"`
	StoreType            *string         `db:"store_type" json:"store_type,omitempty"`
	ItemID               *string         `db:"item_id" json:"item_id,omitempty"`
	ItemName             *string         `db:"item_name" json:"item_name,omitempty"`
	ProductType          *string         `db:"product_type" json:"product_type,omitempty"`
	CategoryL1           *string         `db:"category_l1" json:"category_l1,omitempty"`
	CategoryL2           *string         `db:"category_l2" json:"category_l2,omitempty"`
	CategoryL3           *string         `db:"category_l3" json:"category_l3,omitempty"`
	Price                decimal.Decimal `db:"price" json:"price"`
	Quantity             int             `db:"quantity" json:"quantity"`
	PurchaseValue        decimal.Decimal `db:"purchase_value" json:"purchase_value"`
	RefundValue          decimal.Decimal `db:"refund_value" json:"refund_value"`
	ShopeeCommissionRate decimal.Decimal `db:"shopee_commission_rate" json:"shopee_commission_rate"`
	ShopeeCommission     decimal.Decimal `db:"shopee_commission" json:"shopee_commission"`
	SellerCommissionRate decimal.Decimal `db:"seller_commission_rate" json:"seller_commission_rate"`
	SellerCommission     decimal.Decimal `db:"seller_commission" json:"seller_commission"`
	TotalItemCommission  decimal.Decimal `db:"total_item_commission" json:"total_item_commission"`
	TotalOrderCommission decimal.Decimal `db:"total_order_commission" json:"total_order_commission"`
	AffiliateCommission  decimal.Decimal `db:"affiliate_commission" json:"affiliate_commission"`
	AffiliateStatus      *string         `db:"affiliate_status" json:"affiliate_status,omitempty"`
	AttributionType      *string         `db:"attribution_type" json:"attribution_type,omitempty"`
	BuyerStatus          *string         `db:"buyer_status" json:"buyer_status,omitempty"`
	SubID1               *string         `db:"sub_id1" json:"sub_id1,omitempty"`
	SubID2               *string         `db:"sub_id2" json:"sub_id2,omitempty"`
	SubID3               *string         `db:"sub_id3" json:"sub_id3,omitempty"`
	SubID4               *string         `db:"sub_id4" json:"sub_id4,omitempty"`
	SubID5               *string         `db:"sub_id5" json:"sub_id5,omitempty"`
	Channel              *string         `db:"channel" json:"channel,omitempty"`
	Currency             string          `db:"currency" json:"currency"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

func (c *Commission) Completed() bool {
	return c.OrderStatus == StatusCompleted
}

func (c *Commission) Cancelled() bool {
	return c.OrderStatus == StatusCancelled
}
