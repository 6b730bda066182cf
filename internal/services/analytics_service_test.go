package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func dec(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// ============================================================================
// TEST SUITE 1: BUCKET BUILDING
// ============================================================================

func TestBuildBuckets_NamesAndPercentages(t *testing.T) {
	rollups := []models.DimensionRollup{
		{Key: "Instagram", Commission: dec(60), Sales: dec(600), Orders: 6},
		{Key: "TikTok", Commission: dec(40), Sales: dec(400), Orders: 4},
	}

	buckets := BuildBuckets(rollups, dec(100))

	assert.Len(t, buckets, 2)
	assert.Equal(t, "Instagram", buckets[0].Name)
	assert.True(t, dec(60).Equal(buckets[0].Percentage), "60/100 should be 60%%")
	assert.True(t, dec(40).Equal(buckets[1].Percentage))
}

func TestBuildBuckets_EmptyKeyBecomesNotInformed(t *testing.T) {
	rollups := []models.DimensionRollup{
		{Key: "Instagram", Commission: dec(70), Orders: 7},
		{Key: "", Commission: dec(30), Orders: 3},
	}

	buckets := BuildBuckets(rollups, dec(100))

	assert.Equal(t, models.NotInformedBucket, buckets[1].Name, "blank dimensions get an explicit bucket")
}

func TestBuildBuckets_SumsCoverTotal(t *testing.T) {
	rollups := []models.DimensionRollup{
		{Key: "A", Commission: dec(12.5)},
		{Key: "B", Commission: dec(7.5)},
		{Key: "", Commission: dec(5)},
	}
	total := dec(25)

	buckets := BuildBuckets(rollups, total)

	sum := decimal.Zero
	percentSum := decimal.Zero
	for _, bucket := range buckets {
		sum = sum.Add(bucket.Commission)
		percentSum = percentSum.Add(bucket.Percentage)
	}
	assert.True(t, total.Equal(sum), "bucket commissions must add up to the ungrouped total")
	assert.True(t, dec(100).Equal(percentSum))
}

func TestPercentageOf_ZeroTotalGuard(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(PercentageOf(dec(10), decimal.Zero)))
}

func TestPercentageOf_Rounding(t *testing.T) {
	result := PercentageOf(dec(1), dec(3))

	assert.Equal(t, "33.33", result.String())
}

// ============================================================================
// TEST SUITE 2: ROI, CPA AND CONVERSION RATE
// ============================================================================

func TestComputeROI(t *testing.T) {
	result := ComputeROI(dec(150), dec(100))

	assert.True(t, dec(50).Equal(result), "(150-100)/100 should be 50%%")
}

func TestComputeROI_NegativeReturn(t *testing.T) {
	result := ComputeROI(dec(50), dec(100))

	assert.True(t, dec(-50).Equal(result))
}

func TestComputeROI_ZeroSpendGuard(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(ComputeROI(dec(100), decimal.Zero)))
	assert.True(t, decimal.Zero.Equal(ComputeROI(dec(100), dec(-5))))
}

func TestComputeCPA(t *testing.T) {
	result := ComputeCPA(dec(100), 8)

	assert.True(t, dec(12.5).Equal(result), "100 spend over 8 orders should be 12.50")
}

func TestComputeCPA_Guards(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(ComputeCPA(dec(100), 0)), "zero orders must not divide")
	assert.True(t, decimal.Zero.Equal(ComputeCPA(decimal.Zero, 5)))
}

func TestConversionRate(t *testing.T) {
	result := ConversionRate(25, 1000)

	assert.True(t, dec(2.5).Equal(result), "25 completed over 1000 clicks should be 2.5%%")
}

func TestConversionRate_ZeroClicksGuard(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(ConversionRate(25, 0)))
}
