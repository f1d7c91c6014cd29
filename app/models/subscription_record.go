package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

const (
	SubscriptionStatusNone     = "none"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// SubscriptionRecord mirrors provider-owned subscription state per identity.
// It is a cache of the provider's truth, written only by the webhook path,
// customer linking and explicit reconciliation, never by the read path.
type SubscriptionRecord struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Identity           string    `gorm:"uniqueIndex;type:varchar(200);not null" json:"identity"`
	Provider           string    `gorm:"type:varchar(20);not null;default:'stripe'" json:"provider"`
	ExternalCustomerID string    `gorm:"type:varchar(191);index;default:''" json:"external_customer_id"`
	Status             string    `gorm:"type:varchar(32);not null;default:'none';index" json:"status"`
	CancelAtPeriodEnd  bool      `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	// UpdatedAt carries the provider event time of the last applied change,
	// not a write timestamp, so ordering guards compare against it directly.
	UpdatedAt time.Time `gorm:"type:timestamp;not null;autoUpdateTime:false" json:"updated_at"`
}

// TableName specifies the table name for the SubscriptionRecord model
func (SubscriptionRecord) TableName() string {
	return "subscription_records"
}

// IsEntitling reports whether the cached status grants unlimited access.
func (s *SubscriptionRecord) IsEntitling() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
