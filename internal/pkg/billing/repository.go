package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pressbrief/pressbrief/app/models"
)

// Repository provides DB operations used by the subscription cache.
type Repository interface {
	GetByIdentity(ctx context.Context, identity string) (*models.SubscriptionRecord, error)
	GetByExternalCustomerID(ctx context.Context, customerID string) (*models.SubscriptionRecord, error)
	UpsertCustomerLink(ctx context.Context, identity, customerID string) error
	ApplyStatus(ctx context.Context, identity, status string, cancelAtPeriodEnd bool, occurredAt time.Time, force bool) (bool, error)
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a subscription cache repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByIdentity(ctx context.Context, identity string) (*models.SubscriptionRecord, error) {
	var rec models.SubscriptionRecord
	err := r.db.WithContext(ctx).Where("identity = ?", identity).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) GetByExternalCustomerID(ctx context.Context, customerID string) (*models.SubscriptionRecord, error) {
	var rec models.SubscriptionRecord
	err := r.db.WithContext(ctx).Where("external_customer_id = ?", customerID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertCustomerLink establishes the identity <-> provider customer mapping.
// Idempotent; the cached status is left untouched.
func (r *gormRepository) UpsertCustomerLink(ctx context.Context, identity, customerID string) error {
	rec := models.SubscriptionRecord{
		Identity:           identity,
		Provider:           models.BillingProviderStripe,
		ExternalCustomerID: customerID,
		Status:             models.SubscriptionStatusNone,
		UpdatedAt:          time.Unix(1, 0).UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"external_customer_id"}),
	}).Create(&rec).Error
}

// ApplyStatus upserts the cached status, guarded so that events older than
// the stored UpdatedAt are dropped. force bypasses the guard for terminal
// corrections. Returns whether the row was written.
func (r *gormRepository) ApplyStatus(ctx context.Context, identity, status string, cancelAtPeriodEnd bool, occurredAt time.Time, force bool) (bool, error) {
	rec := models.SubscriptionRecord{
		Identity: identity,
		Provider: models.BillingProviderStripe,
		Status:   models.SubscriptionStatusNone,
		// Epoch sentinel so the first real event always passes the guard.
		UpdatedAt: time.Unix(1, 0).UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoNothing: true,
	}).Create(&rec).Error; err != nil {
		return false, err
	}

	q := r.db.WithContext(ctx).Model(&models.SubscriptionRecord{}).Where("identity = ?", identity)
	if !force {
		q = q.Where("updated_at <= ?", occurredAt)
	}
	res := q.Updates(map[string]interface{}{
		"status":               status,
		"cancel_at_period_end": cancelAtPeriodEnd,
		"updated_at":           occurredAt,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
