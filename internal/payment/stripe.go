package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// ErrNotConfigured is returned when no Stripe secret key is set.
var ErrNotConfigured = errors.New("payment provider not configured")

// Product is the single, fixed-price item sold through checkout.
type Product struct {
	Name       string
	Currency   string
	UnitAmount int64
}

// CheckoutParams describes one hosted checkout session.
type CheckoutParams struct {
	CustomerID    string
	CustomerEmail string
	Description   string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// StripeGateway talks to the Stripe API. Network retries are disabled so a
// call is attempted exactly once.
type StripeGateway struct {
	cl      *client.API
	product Product
}

// NewStripeGateway returns a gateway for the given secret key. apiURL
// overrides the Stripe endpoint and is empty in production.
func NewStripeGateway(secretKey, apiURL string, product Product) *StripeGateway {
	if strings.TrimSpace(secretKey) == "" {
		return &StripeGateway{product: product}
	}

	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
	}
	if apiURL != "" {
		cfg.URL = stripe.String(apiURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	}
	return &StripeGateway{cl: client.New(secretKey, backends), product: product}
}

// FindCustomerID returns the ID of the first customer with the given email,
// or an empty string when there is none.
func (g *StripeGateway) FindCustomerID(ctx context.Context, email string) (string, error) {
	if g.cl == nil {
		return "", ErrNotConfigured
	}
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Limit = stripe.Int64(1)
	params.Context = ctx

	iter := g.cl.Customers.List(params)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("failed to list customers: %w", err)
	}
	return "", nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	if g.cl == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.product.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(g.product.Name),
						Description: stripe.String(p.Description),
					},
					UnitAmount: stripe.Int64(g.product.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := g.cl.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
