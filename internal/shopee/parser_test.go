package shopee

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func sampleConversion() map[string]any {
	return map[string]any{
		"id":               "CONV-100",
		"orderId":          "ORD-100",
		"conversionTime":   "2025-03-10 14:30:00",
		"clickTime":        "2025-03-10 13:00:00",
		"status":           "completed",
		"commissionAmount": 12.5,
		"purchaseValue":    179.8,
		"quantity":         float64(2),
		"subId":            "campanha-a",
		"channel":          "Instagram",
	}
}

// ============================================================================
// TEST SUITE 1: SINGLE CONVERSION PARSING
// ============================================================================

func TestParseConversion_FullPayload(t *testing.T) {
	userID := uuid.New()
	integrationID := uuid.New()

	conversion, err := ParseConversion(userID, integrationID, sampleConversion())

	assert.NoError(t, err)
	assert.Equal(t, userID, conversion.UserID)
	assert.Equal(t, integrationID, *conversion.IntegrationID)
	assert.Equal(t, "CONV-100", conversion.ExternalID)
	assert.Equal(t, "ORD-100", *conversion.OrderID)
	assert.Equal(t, models.StatusCompleted, conversion.Status)
	assert.Equal(t, int64(1250), conversion.CommissionCents, "12.50 should store as 1250 cents")
	assert.Equal(t, 2, conversion.Quantity)
	assert.Equal(t, "campanha-a", *conversion.SubID)
	assert.Equal(t, "BRL", conversion.Currency)
	assert.Equal(t, models.SourceShopeeAPI, conversion.Source)
	assert.NotEmpty(t, conversion.RawData, "the raw payload must be kept")
}

func TestParseConversion_MissingIDFails(t *testing.T) {
	raw := sampleConversion()
	delete(raw, "id")

	_, err := ParseConversion(uuid.New(), uuid.New(), raw)

	assert.Error(t, err)
}

func TestParseConversion_MissingConversionTimeFails(t *testing.T) {
	raw := sampleConversion()
	delete(raw, "conversionTime")

	_, err := ParseConversion(uuid.New(), uuid.New(), raw)

	assert.Error(t, err)
}

func TestParseConversion_Defaults(t *testing.T) {
	raw := map[string]any{
		"id":             "CONV-1",
		"conversionTime": "2025-01-01T00:00:00Z",
	}

	conversion, err := ParseConversion(uuid.New(), uuid.New(), raw)

	assert.NoError(t, err)
	assert.Equal(t, 1, conversion.Quantity, "quantity defaults to 1")
	assert.Equal(t, "BRL", conversion.Currency, "currency defaults to BRL")
	assert.Equal(t, models.StatusPending, conversion.Status, "missing status defaults to pending")
	assert.Equal(t, int64(0), conversion.CommissionCents)
	assert.Nil(t, conversion.SubID)
}

func TestParseConversion_NumericID(t *testing.T) {
	raw := sampleConversion()
	raw["id"] = float64(123456)

	conversion, err := ParseConversion(uuid.New(), uuid.New(), raw)

	assert.NoError(t, err)
	assert.Equal(t, "123456", conversion.ExternalID, "numeric ids coerce to strings")
}

// ============================================================================
// TEST SUITE 2: STATUS AND SUB-ID EXTRACTION
// ============================================================================

func TestNormalizeConversionStatus(t *testing.T) {
	assert.Equal(t, models.StatusCompleted, normalizeConversionStatus("CONFIRMED"))
	assert.Equal(t, models.StatusCompleted, normalizeConversionStatus("paid"))
	assert.Equal(t, models.StatusPending, normalizeConversionStatus("processing"))
	assert.Equal(t, models.StatusCancelled, normalizeConversionStatus("rejected"))
	assert.Equal(t, models.StatusPending, normalizeConversionStatus("something-new"), "unknown statuses stay pending")
}

func TestExtractSubID_KeyFallbacks(t *testing.T) {
	value := extractSubID(map[string]any{"sub_id": "legacy-key"})
	assert.Equal(t, "legacy-key", *value)

	value = extractSubID(map[string]any{"tracking": map[string]any{"subId": "nested"}})
	assert.Equal(t, "nested", *value)

	assert.Nil(t, extractSubID(map[string]any{}))
}

// ============================================================================
// TEST SUITE 3: BATCH PARSING
// ============================================================================

func TestBatchParse_SplitsNewDuplicateAndBad(t *testing.T) {
	duplicate := sampleConversion()
	duplicate["id"] = "CONV-DUP"
	bad := map[string]any{"orderId": "no-id"}
	page := []map[string]any{sampleConversion(), duplicate, bad}

	result := BatchParse(uuid.New(), uuid.New(), page, func(externalID string) (bool, error) {
		return externalID == "CONV-DUP", nil
	})

	assert.Len(t, result.Parsed, 1)
	assert.Equal(t, "CONV-100", result.Parsed[0].ExternalID)
	assert.Equal(t, []string{"CONV-DUP"}, result.Duplicates)
	assert.Len(t, result.Errors, 1)
}

func TestBatchParse_ExistsCheckFailureIsRowError(t *testing.T) {
	page := []map[string]any{sampleConversion()}

	result := BatchParse(uuid.New(), uuid.New(), page, func(string) (bool, error) {
		return false, assert.AnError
	})

	assert.Empty(t, result.Parsed)
	assert.Len(t, result.Errors, 1, "a failed lookup must not drop the record silently")
}
