package billing

import (
	"strings"
	"time"

	"github.com/pressbrief/pressbrief/app/models"
)

// ProviderEvent is the provider-agnostic shape of a subscription lifecycle
// notification after signature verification and parsing. Either Identity or
// ExternalCustomerID must be set; the cache resolves the other.
type ProviderEvent struct {
	Identity           string
	ExternalCustomerID string
	Status             string
	CancelAtPeriodEnd  bool
	OccurredAt         time.Time
	// PaymentFailed marks a terminal correction: with the conservative
	// downgrade policy enabled it is applied regardless of event ordering.
	PaymentFailed bool
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// NormalizeStatus maps provider status strings onto the local status set.
// Unknown values map to none rather than guessing an entitlement.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusActive:
		return models.SubscriptionStatusActive
	case models.SubscriptionStatusTrialing:
		return models.SubscriptionStatusTrialing
	case models.SubscriptionStatusPastDue:
		return models.SubscriptionStatusPastDue
	case models.SubscriptionStatusCanceled, "unpaid", "incomplete_expired":
		return models.SubscriptionStatusCanceled
	default:
		return models.SubscriptionStatusNone
	}
}

// IsEntitlingStatus reports whether a status grants unlimited access.
func IsEntitlingStatus(status string) bool {
	switch NormalizeStatus(status) {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
