package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pressbrief/pressbrief/app/models"
)

// ErrUnlinkedCustomer is returned when a provider event references a customer
// no local identity has been linked to. Webhook handlers acknowledge these as
// no-ops; the provider retrying will not help.
var ErrUnlinkedCustomer = errors.New("no linked identity for provider customer")

// Config carries the subscription cache policy knobs.
type Config struct {
	// PaymentFailureAlwaysDowngrades applies payment-failed events regardless
	// of event ordering. Conservative default: a payment problem beats a
	// stale-looking timestamp.
	PaymentFailureAlwaysDowngrades bool
}

// Service maintains the local mirror of provider-owned entitlement. Reads are
// always served from the local table; the provider is only contacted on the
// explicit Reconcile path.
type Service struct {
	repo    Repository
	gateway Gateway
	cfg     Config
}

// NewService creates a subscription cache service from an injected repository
// and provider gateway.
func NewService(repo Repository, gateway Gateway, cfg Config) *Service {
	return &Service{repo: repo, gateway: gateway, cfg: cfg}
}

// NewServiceFromDB creates a subscription cache service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, cfg Config) *Service {
	return NewService(NewRepository(db), gateway, cfg)
}

// Gateway exposes the provider gateway for user-initiated flows.
func (s *Service) Gateway() Gateway {
	return s.gateway
}

// IsEntitled reports whether the cached status grants unlimited access. Pure
// cache read; an absent record simply means not entitled.
func (s *Service) IsEntitled(ctx context.Context, identity string) (bool, error) {
	rec, err := s.repo.GetByIdentity(ctx, identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.IsEntitling(), nil
}

// Status returns the cached subscription record, or a synthetic none-status
// record when the identity has never checked out.
func (s *Service) Status(ctx context.Context, identity string) (*models.SubscriptionRecord, error) {
	rec, err := s.repo.GetByIdentity(ctx, identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.SubscriptionRecord{
			Identity: identity,
			Provider: models.BillingProviderStripe,
			Status:   models.SubscriptionStatusNone,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// LinkExternalCustomer records the identity <-> provider customer association
// established at first checkout. Idempotent.
func (s *Service) LinkExternalCustomer(ctx context.Context, identity, externalCustomerID string) error {
	id := strings.TrimSpace(identity)
	custID := strings.TrimSpace(externalCustomerID)
	if id == "" || custID == "" {
		return errors.New("identity and external customer id are required")
	}
	return s.repo.UpsertCustomerLink(ctx, id, custID)
}

// ApplyProviderEvent applies a normalized subscription event to the cache.
// Events older than the stored state are dropped, except payment failures
// under the conservative downgrade policy. Idempotent: replaying an event
// leaves stored status and UpdatedAt unchanged.
func (s *Service) ApplyProviderEvent(ctx context.Context, ev ProviderEvent) error {
	identity := strings.TrimSpace(ev.Identity)
	if identity == "" {
		custID := strings.TrimSpace(ev.ExternalCustomerID)
		if custID == "" {
			return errors.New("provider event carries neither identity nor customer id")
		}
		rec, err := s.repo.GetByExternalCustomerID(ctx, custID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnlinkedCustomer
		}
		if err != nil {
			return err
		}
		identity = rec.Identity
	}

	status := NormalizeStatus(ev.Status)
	force := ev.PaymentFailed && s.cfg.PaymentFailureAlwaysDowngrades

	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	_, err := s.repo.ApplyStatus(ctx, identity, status, ev.CancelAtPeriodEnd, occurredAt, force)
	return err
}

// Reconcile queries the provider for an identity's current subscription and
// overwrites the cache with the answer. User-initiated flows only; this may
// be slow or rate-limited and never runs on the content-read path.
func (s *Service) Reconcile(ctx context.Context, identity string) (*models.SubscriptionRecord, error) {
	rec, err := s.Status(ctx, identity)
	if err != nil {
		return nil, err
	}
	if rec.ExternalCustomerID == "" {
		// Never checked out; nothing to ask the provider about.
		return rec, nil
	}

	sub, err := s.gateway.LatestSubscriptionForCustomer(ctx, rec.ExternalCustomerID)
	if err != nil {
		return nil, err
	}

	status := models.SubscriptionStatusNone
	cancelAtPeriodEnd := false
	if sub != nil {
		status = NormalizeStatus(string(sub.Status))
		cancelAtPeriodEnd = sub.CancelAtPeriodEnd
	}

	// A fresh provider answer beats whatever the cache holds.
	if _, err := s.repo.ApplyStatus(ctx, identity, status, cancelAtPeriodEnd, time.Now(), true); err != nil {
		return nil, err
	}
	return s.repo.GetByIdentity(ctx, identity)
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}
