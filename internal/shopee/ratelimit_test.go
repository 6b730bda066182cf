package shopee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST SUITE: WINDOW KEY BUCKETING
// ============================================================================

func TestMinuteKey_StableWithinWindow(t *testing.T) {
	base := time.Date(2025, 3, 10, 14, 30, 5, 0, time.UTC)

	assert.Equal(t, minuteKey("int-1", base), minuteKey("int-1", base.Add(50*time.Second)))
	assert.NotEqual(t, minuteKey("int-1", base), minuteKey("int-1", base.Add(time.Minute)))
}

func TestHourKey_StableWithinWindow(t *testing.T) {
	base := time.Date(2025, 3, 10, 14, 5, 0, 0, time.UTC)

	assert.Equal(t, hourKey("int-1", base), hourKey("int-1", base.Add(50*time.Minute)))
	assert.NotEqual(t, hourKey("int-1", base), hourKey("int-1", base.Add(time.Hour)))
}

func TestWindowKeys_ScopedPerIntegration(t *testing.T) {
	now := time.Now().UTC()

	assert.NotEqual(t, minuteKey("int-1", now), minuteKey("int-2", now))
	assert.NotEqual(t, hourKey("int-1", now), hourKey("int-2", now))
}
