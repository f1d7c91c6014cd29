package metering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigRequiresDailyLimit(t *testing.T) {
	_, err := LoadConfig()
	require.Error(t, err, "a missing limit must not silently default")
}

func TestLoadConfigRejectsNonPositiveLimit(t *testing.T) {
	for _, raw := range []string{"0", "-1", "three"} {
		t.Setenv("METER_DAILY_LIMIT", raw)
		_, err := LoadConfig()
		assert.Error(t, err, "limit %q", raw)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("METER_DAILY_LIMIT", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(3), cfg.DailyLimit)
	assert.Equal(t, int64(defaultAnonDailyLimit), cfg.AnonDailyLimit)
	assert.Equal(t, defaultStoreTimeout, cfg.StoreTimeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("METER_DAILY_LIMIT", "10")
	t.Setenv("METER_ANON_DAILY_LIMIT", "50")
	t.Setenv("METER_STORE_TIMEOUT_MS", "100")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(10), cfg.DailyLimit)
	assert.Equal(t, int64(50), cfg.AnonDailyLimit)
	assert.Equal(t, 100*time.Millisecond, cfg.StoreTimeout)
}
