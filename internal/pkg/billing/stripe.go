package billing

import (
	"context"
	"errors"

	stripe "github.com/stripe/stripe-go/v72"
	portalsession "github.com/stripe/stripe-go/v72/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/sub"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/pressbrief/pressbrief/internal/pkg/env"
)

// Gateway is the outbound interface to the billing provider. Only the
// user-initiated flows talk to it; the read path never does.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, identity, successURL, cancelURL string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, externalCustomerID, returnURL string) (*stripe.BillingPortalSession, error)
	LatestSubscriptionForCustomer(ctx context.Context, externalCustomerID string) (*stripe.Subscription, error)
}

type stripeGateway struct {
	priceID string
}

// SetupStripe configures the global Stripe client key from the environment
// and returns a gateway bound to the configured subscription price.
func SetupStripe() Gateway {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
	return &stripeGateway{
		priceID: env.GetEnv("STRIPE_PRICE_ID", ""),
	}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, identity, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	if stripe.Key == "" {
		return nil, errors.New("stripe is not configured")
	}
	if g.priceID == "" {
		return nil, errors.New("STRIPE_PRICE_ID is not configured")
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		// ClientReferenceID carries our identity so checkout.session.completed
		// can link the Stripe customer back without a lookup.
		ClientReferenceID: stripe.String(identity),
		CustomerEmail:     stripe.String(identity),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	return checkoutsession.New(params)
}

func (g *stripeGateway) CreatePortalSession(ctx context.Context, externalCustomerID, returnURL string) (*stripe.BillingPortalSession, error) {
	if stripe.Key == "" {
		return nil, errors.New("stripe is not configured")
	}
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(externalCustomerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	return portalsession.New(params)
}

// LatestSubscriptionForCustomer returns the customer's most recently created
// subscription in any status, or nil when the customer has none.
func (g *stripeGateway) LatestSubscriptionForCustomer(ctx context.Context, externalCustomerID string) (*stripe.Subscription, error) {
	if stripe.Key == "" {
		return nil, errors.New("stripe is not configured")
	}
	params := &stripe.SubscriptionListParams{
		Customer: externalCustomerID,
		Status:   "all",
	}
	params.Context = ctx
	params.Filters.AddFilter("limit", "", "1")

	iter := sub.List(params)
	for iter.Next() {
		return iter.Subscription(), nil
	}
	return nil, iter.Err()
}

// VerifyWebhook checks the Stripe signature header against the signing secret
// and returns the parsed event. Callers must reject the request before any
// state change when this fails.
func VerifyWebhook(payload []byte, signatureHeader, signingSecret string) (stripe.Event, error) {
	if signingSecret == "" {
		return stripe.Event{}, errors.New("webhook signing secret is not configured")
	}
	return webhook.ConstructEvent(payload, signatureHeader, signingSecret)
}
