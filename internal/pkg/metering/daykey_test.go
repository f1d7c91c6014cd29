package metering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayKeyAtIsTimezoneIndependent(t *testing.T) {
	utc := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	tokyo := utc.In(time.FixedZone("JST", 9*3600))

	assert.Equal(t, DayKeyAt(utc), DayKeyAt(tokyo))
	assert.Equal(t, DayKey("2024-01-01"), DayKeyAt(utc))
}

func TestDayKeySameDayEquality(t *testing.T) {
	morning := time.Date(2024, 3, 15, 0, 0, 1, 0, time.UTC)
	night := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, DayKeyAt(morning), DayKeyAt(night))
}

func TestDayKeyOrderedAcrossMidnight(t *testing.T) {
	before := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	after := before.Add(2 * time.Second)

	assert.True(t, DayKeyAt(before).Before(DayKeyAt(after)))
	assert.Equal(t, DayKey("2025-01-01"), DayKeyAt(after))
}
