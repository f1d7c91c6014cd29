package controllers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	stripe "github.com/stripe/stripe-go/v72"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/internal/pkg/billing"
	"github.com/pressbrief/pressbrief/internal/pkg/env"
	"github.com/pressbrief/pressbrief/internal/pkg/usercontext"
)

func publicBaseURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

// HandleBillingCheckout starts a subscription checkout for the logged-in user.
func HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}

	base := publicBaseURL()
	sess, err := billingSvc.Gateway().CreateCheckoutSession(
		c.UserContext(),
		userCtx.Email,
		base+"/billing?checkout=success",
		base+"/billing?checkout=canceled",
	)
	if err != nil {
		log.Errorf("checkout session create failed for %s: %v", userCtx.Email, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "checkout_unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sess.ID,
	})
}

// HandleBillingPortal opens the provider's self-service portal.
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}

	// Refresh the cached state before handing the user to the provider, so
	// the portal opens on what Stripe actually has. A failed refresh falls
	// back to the cached record rather than blocking the portal.
	rec, err := billingSvc.Reconcile(c.UserContext(), userCtx.Email)
	if err != nil {
		log.Warnf("pre-portal reconcile failed for %s, using cached state: %v", userCtx.Email, err)
		rec, err = billingSvc.Status(c.UserContext(), userCtx.Email)
	}
	if err != nil || rec.ExternalCustomerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "no_billing_account",
			"message": "no subscription on file for this account",
		})
	}

	ps, err := billingSvc.Gateway().CreatePortalSession(c.UserContext(), rec.ExternalCustomerID, publicBaseURL()+"/billing")
	if err != nil {
		log.Errorf("portal session create failed for %s: %v", userCtx.Email, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "portal_unavailable",
		})
	}

	return c.Redirect(ps.URL, fiber.StatusSeeOther)
}

// HandleBillingStatus reports the cached subscription state. With ?refresh=1
// the provider is queried first and the cache overwritten.
func HandleBillingStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}

	var (
		rec *models.SubscriptionRecord
		err error
	)
	if c.QueryBool("refresh", false) {
		rec, err = billingSvc.Reconcile(c.UserContext(), userCtx.Email)
	} else {
		rec, err = billingSvc.Status(c.UserContext(), userCtx.Email)
	}
	if err != nil {
		log.Errorf("billing status failed for %s: %v", userCtx.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error",
		})
	}

	return c.JSON(rec)
}

// HandleStripeWebhook receives subscription lifecycle events. The signature
// check runs before anything is written; a bad signature changes no state.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()

	event, err := billing.VerifyWebhook(payload, c.Get("Stripe-Signature"), env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
	if err != nil {
		log.Warnf("stripe webhook signature rejected: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_signature",
		})
	}

	created, stored, err := billingSvc.RecordWebhookEvent(c.UserContext(), billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		log.Errorf("stripe webhook persist failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error",
		})
	}
	if !created {
		// Replay of an event we already have; acknowledge without reprocessing.
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	procErr := processStripeEvent(c, event)
	if markErr := billingSvc.MarkWebhookProcessed(c.UserContext(), stored.ID, procErr); markErr != nil {
		log.Errorf("stripe webhook mark processed failed: %v", markErr)
	}

	if procErr != nil && !errors.Is(procErr, billing.ErrUnlinkedCustomer) {
		log.Errorf("stripe webhook %s (%s) processing failed: %v", event.ID, event.Type, procErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "processing_failed",
		})
	}

	return c.JSON(fiber.Map{"received": true})
}

func processStripeEvent(c *fiber.Ctx, event stripe.Event) error {
	ctx := c.UserContext()
	occurredAt := time.Unix(event.Created, 0).UTC()

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		if session.ClientReferenceID == "" || session.Customer == nil {
			return errors.New("checkout session without client reference or customer")
		}
		identity := session.ClientReferenceID
		if err := billingSvc.LinkExternalCustomer(ctx, identity, session.Customer.ID); err != nil {
			return err
		}
		// Pull the authoritative subscription state for the fresh customer.
		if _, err := billingSvc.Reconcile(ctx, identity); err != nil {
			log.Warnf("post-checkout reconcile failed for %s, applying checkout state: %v", identity, err)
			return billingSvc.ApplyProviderEvent(ctx, billing.ProviderEvent{
				Identity:   identity,
				Status:     models.SubscriptionStatusActive,
				OccurredAt: occurredAt,
			})
		}
		return nil

	case "customer.subscription.updated", "customer.subscription.created", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		if sub.Customer == nil {
			return errors.New("subscription event without customer")
		}
		status := string(sub.Status)
		if event.Type == "customer.subscription.deleted" {
			status = models.SubscriptionStatusCanceled
		}
		return billingSvc.ApplyProviderEvent(ctx, billing.ProviderEvent{
			ExternalCustomerID: sub.Customer.ID,
			Status:             status,
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
			OccurredAt:         occurredAt,
		})

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return err
		}
		if invoice.Customer == nil {
			return errors.New("invoice event without customer")
		}
		return billingSvc.ApplyProviderEvent(ctx, billing.ProviderEvent{
			ExternalCustomerID: invoice.Customer.ID,
			Status:             models.SubscriptionStatusPastDue,
			OccurredAt:         occurredAt,
			PaymentFailed:      true,
		})

	default:
		// Unhandled event types are acknowledged so the provider stops retrying.
		return nil
	}
}
