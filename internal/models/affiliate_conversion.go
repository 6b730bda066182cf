package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AffiliateConversion is a raw API-sourced conversion event, one per external
// id and tenant. It is kept independently from Commission: promotion into the
// commissions table happens only for completed API conversions that have no
// Commission with the same external id yet.
type AffiliateConversion struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	UserID          uuid.UUID       `db:"user_id" json:"user_id"`
	IntegrationID   *uuid.UUID      `db:"integration_id" json:"integration_id,omitempty"`
	ExternalID      string          `db:"external_id" json:"external_id"`
	OrderID         *string         `db:"order_id" json:"order_id,omitempty"`
	ItemID          *string         `db:"item_id" json:"item_id,omitempty"`
	ItemName        *string         `db:"item_name" json:"item_name,omitempty"`
	Category        *string         `db:"category" json:"category,omitempty"`
	Channel         *string         `db:"channel" json:"channel,omitempty"`
	SubID           *string         `db:"sub_id" json:"sub_id,omitempty"`
	CommissionCents int64           `db:"commission_cents" json:"commission_cents"`
	Currency        string          `db:"currency" json:"currency"`
	Quantity        int             `db:"quantity" json:"quantity"`
	PurchaseValue   decimal.Decimal `db:"purchase_value" json:"purchase_value"`
	CommissionRate  decimal.Decimal `db:"commission_rate" json:"commission_rate"`
	ClickTime       *time.Time      `db:"click_time" json:"click_time,omitempty"`
	ConversionTime  *time.Time      `db:"conversion_time" json:"conversion_time,omitempty"`
	Status          string          `db:"status" json:"status"`
	Source          string          `db:"source" json:"source"`
	RawData         json.RawMessage `db:"raw_data" json:"raw_data,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

func (c *AffiliateConversion) Completed() bool {
	return c.Status == StatusCompleted
}

func (c *AffiliateConversion) FromAPI() bool {
	return c.Source == SourceShopeeAPI
}

// CommissionAmount converts the cent-denominated commission to a decimal value.
func (c *AffiliateConversion) CommissionAmount() decimal.Decimal {
	return decimal.New(c.CommissionCents, -2)
}

// ToCommission maps the conversion into the unified Commission shape used by
// the dashboard rollups.
func (c *AffiliateConversion) ToCommission() *Commission {
	channel := "Shopee"
	if c.Channel != nil && *c.Channel != "" {
		channel = *c.Channel
	}

	status := StatusPending
	if c.Completed() {
		status = StatusCompleted
	}

	orderID := c.ExternalID
	if c.OrderID != nil && *c.OrderID != "" {
		orderID = *c.OrderID
	}

	attribution := "Pedido via API Shopee"
	externalID := c.ExternalID

	var orderDate *time.Time
	if c.ConversionTime != nil {
		t := *c.ConversionTime
		orderDate = &t
	}

	return &Commission{
		UserID:              c.UserID,
		OrderID:             orderID,
		ExternalID:          &externalID,
		Source:              SourceShopeeAPI,
		OrderStatus:         status,
		OrderDate:           orderDate,
		ClickTime:           c.ClickTime,
		ItemID:              c.ItemID,
		ItemName:            c.ItemName,
		CategoryL1:          c.Category,
		Quantity:            c.Quantity,
		PurchaseValue:       c.PurchaseValue,
		AffiliateCommission: c.CommissionAmount(),
		AttributionType:     &attribution,
		SubID1:              c.SubID,
		Channel:             &channel,
		Currency:            c.Currency,
	}
}
