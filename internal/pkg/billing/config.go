package billing

import (
	"strconv"

	"github.com/pressbrief/pressbrief/internal/pkg/env"
)

// LoadConfig reads the billing policy from the environment.
func LoadConfig() Config {
	cfg := Config{
		PaymentFailureAlwaysDowngrades: true,
	}
	if raw := env.GetEnv("BILLING_PAYMENT_FAILURE_ALWAYS_DOWNGRADES", ""); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.PaymentFailureAlwaysDowngrades = v
		}
	}
	return cfg
}
