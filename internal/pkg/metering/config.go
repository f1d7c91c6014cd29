package metering

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pressbrief/pressbrief/internal/pkg/env"
)

const (
	defaultAnonDailyLimit = 20
	defaultStoreTimeout   = 250 * time.Millisecond
)

// Config carries the metering policy. DailyLimit has no default on purpose:
// a missing limit must abort startup instead of silently disabling metering.
type Config struct {
	DailyLimit     int64
	AnonDailyLimit int64
	StoreTimeout   time.Duration
}

// LoadConfig reads the metering policy from the environment.
func LoadConfig() (Config, error) {
	raw := env.GetEnv("METER_DAILY_LIMIT", "")
	if raw == "" {
		return Config{}, fmt.Errorf("METER_DAILY_LIMIT is not configured")
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return Config{}, fmt.Errorf("METER_DAILY_LIMIT must be a positive integer, got %q", raw)
	}

	cfg := Config{
		DailyLimit:     limit,
		AnonDailyLimit: defaultAnonDailyLimit,
		StoreTimeout:   defaultStoreTimeout,
	}

	if raw := env.GetEnv("METER_ANON_DAILY_LIMIT", ""); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("METER_ANON_DAILY_LIMIT must be a positive integer, got %q", raw)
		}
		cfg.AnonDailyLimit = v
	}

	if raw := env.GetEnv("METER_STORE_TIMEOUT_MS", ""); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("METER_STORE_TIMEOUT_MS must be a positive integer, got %q", raw)
		}
		cfg.StoreTimeout = time.Duration(v) * time.Millisecond
	}

	return cfg, nil
}
