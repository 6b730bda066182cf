package shopee

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

var conversionTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
}

// ParseConversion maps one raw API conversion object onto the canonical
// AffiliateConversion shape. An item without an id or conversion time is
// invalid and returns an error; malformed optional fields degrade to
// defaults instead.
func ParseConversion(userID uuid.UUID, integrationID uuid.UUID, raw map[string]any) (*models.AffiliateConversion, error) {
	externalID := stringField(raw, "id")
	if externalID == "" {
		return nil, fmt.Errorf("conversion missing id")
	}

	conversionTime := parseAPITime(stringField(raw, "conversionTime"))
	if conversionTime == nil {
		return nil, fmt.Errorf("conversion %s missing conversionTime", externalID)
	}

	quantity := intField(raw, "quantity")
	if quantity <= 0 {
		quantity = 1
	}

	currency := stringField(raw, "currency")
	if currency == "" {
		currency = "BRL"
	}

	rawData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to keep raw conversion payload: %w", err)
	}

	intID := integrationID
	return &models.AffiliateConversion{
		UserID:          userID,
		IntegrationID:   &intID,
		ExternalID:      externalID,
		OrderID:         optionalField(raw, "orderId"),
		ItemID:          optionalField(raw, "itemId"),
		ItemName:        optionalField(raw, "productName"),
		Category:        optionalField(raw, "category"),
		Channel:         optionalField(raw, "channel"),
		SubID:           extractSubID(raw),
		CommissionCents: decimalField(raw, "commissionAmount").Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:        currency,
		Quantity:        quantity,
		PurchaseValue:   decimalField(raw, "purchaseValue"),
		CommissionRate:  decimalField(raw, "commissionRate"),
		ClickTime:       parseAPITime(stringField(raw, "clickTime")),
		ConversionTime:  conversionTime,
		Status:          normalizeConversionStatus(stringField(raw, "status")),
		Source:          models.SourceShopeeAPI,
		RawData:         rawData,
	}, nil
}

// BatchResult accumulates one page's parse outcome.
type BatchResult struct {
	Parsed     []*models.AffiliateConversion
	Duplicates []string
	Errors     []string
}

// BatchParse parses a page of raw conversions, splitting duplicates (already
// stored for this tenant, per the exists check) from new records. A bad item
// lands in Errors and never aborts the batch.
func BatchParse(userID uuid.UUID, integrationID uuid.UUID, page []map[string]any, exists func(externalID string) (bool, error)) *BatchResult {
	result := &BatchResult{}

	for _, raw := range page {
		conversion, err := ParseConversion(userID, integrationID, raw)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		known, err := exists(conversion.ExternalID)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("failed to check conversion %s: %v", conversion.ExternalID, err))
			continue
		}
		if known {
			result.Duplicates = append(result.Duplicates, conversion.ExternalID)
			continue
		}

		result.Parsed = append(result.Parsed, conversion)
	}

	return result
}

// extractSubID tries the key spellings the API has used over time.
func extractSubID(raw map[string]any) *string {
	if value := optionalField(raw, "subId"); value != nil {
		return value
	}
	if value := optionalField(raw, "sub_id"); value != nil {
		return value
	}
	if tracking, ok := raw["tracking"].(map[string]any); ok {
		return optionalField(tracking, "subId")
	}
	return nil
}

// normalizeConversionStatus maps API statuses onto the closed set. Unknown
// statuses stay pending until a later sync settles them.
func normalizeConversionStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "confirmed", "paid":
		return models.StatusCompleted
	case "pending", "processing", "waiting":
		return models.StatusPending
	case "cancelled", "canceled", "rejected":
		return models.StatusCancelled
	default:
		return models.StatusPending
	}
}

func parseAPITime(value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	for _, layout := range conversionTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed
		}
	}
	return nil
}

func stringField(raw map[string]any, key string) string {
	switch value := raw[key].(type) {
	case string:
		return value
	case float64:
		return decimal.NewFromFloat(value).String()
	case json.Number:
		return value.String()
	default:
		return ""
	}
}

func optionalField(raw map[string]any, key string) *string {
	value := strings.TrimSpace(stringField(raw, key))
	if value == "" {
		return nil
	}
	return &value
}

func intField(raw map[string]any, key string) int {
	switch value := raw[key].(type) {
	case float64:
		return int(value)
	case json.Number:
		if parsed, err := value.Int64(); err == nil {
			return int(parsed)
		}
	case string:
		if parsed, err := decimal.NewFromString(value); err == nil {
			return int(parsed.IntPart())
		}
	}
	return 0
}

func decimalField(raw map[string]any, key string) decimal.Decimal {
	switch value := raw[key].(type) {
	case float64:
		return decimal.NewFromFloat(value)
	case json.Number:
		if parsed, err := decimal.NewFromString(value.String()); err == nil {
			return parsed
		}
	case string:
		if parsed, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return decimal.Zero
}
