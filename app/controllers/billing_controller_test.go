package controllers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v72"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/internal/pkg/billing"
	"github.com/pressbrief/pressbrief/internal/pkg/usercontext"
)

type stubGateway struct {
	sub       *stripe.Subscription
	portalURL string
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, identity, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{ID: "cs_test_1"}, nil
}

func (g *stubGateway) CreatePortalSession(ctx context.Context, externalCustomerID, returnURL string) (*stripe.BillingPortalSession, error) {
	return &stripe.BillingPortalSession{URL: g.portalURL}, nil
}

func (g *stubGateway) LatestSubscriptionForCustomer(ctx context.Context, externalCustomerID string) (*stripe.Subscription, error) {
	return g.sub, nil
}

func newPortalTestApp(svc *billing.Service, email string) *fiber.App {
	Setup(nil, svc, nil)

	app := fiber.New()
	app.Post("/billing/portal", func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			UserID:     1,
			Email:      email,
			IsLoggedIn: email != "",
		})
		return HandleBillingPortal(c)
	})
	return app
}

func TestBillingPortalReconcilesBeforeRedirect(t *testing.T) {
	db := controllerTestDB(t)
	gw := &stubGateway{
		sub:       &stripe.Subscription{Status: stripe.SubscriptionStatusActive},
		portalURL: "https://billing.example.com/p/session_1",
	}
	svc := billing.NewServiceFromDB(db, gw, billing.Config{PaymentFailureAlwaysDowngrades: true})

	const identity = "portal@example.com"
	ctx := context.Background()
	require.NoError(t, svc.LinkExternalCustomer(ctx, identity, "cus_portal"))
	require.NoError(t, svc.ApplyProviderEvent(ctx, billing.ProviderEvent{
		Identity:   identity,
		Status:     models.SubscriptionStatusPastDue,
		OccurredAt: time.Now(),
	}))

	app := newPortalTestApp(svc, identity)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/billing/portal", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, gw.portalURL, resp.Header.Get("Location"))

	// The provider said active; the stale cached past_due must be gone.
	rec, err := svc.Status(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, rec.Status)
}

func TestBillingPortalRequiresLogin(t *testing.T) {
	db := controllerTestDB(t)
	svc := billing.NewServiceFromDB(db, &stubGateway{}, billing.Config{})

	app := newPortalTestApp(svc, "")
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/billing/portal", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestBillingPortalWithoutCustomerLink(t *testing.T) {
	db := controllerTestDB(t)
	svc := billing.NewServiceFromDB(db, &stubGateway{}, billing.Config{})

	app := newPortalTestApp(svc, "never-checked-out@example.com")
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/billing/portal", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
