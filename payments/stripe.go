// Package payments creates Stripe Checkout sessions and verifies Stripe webhooks.
package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/respiralivre/api/utils"
)

// Client creates Checkout sessions through stripe-go.
type Client struct {
	api *client.API
}

// NewClient returns a client authenticated with the secret key.
func NewClient(secretKey string) *Client {
	return newClientWithBackend(secretKey, stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig()))
}

// newClientWithBackend points the client at a custom API backend.
func newClientWithBackend(secretKey string, backend stripe.Backend) *Client {
	return &Client{api: client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})}
}

func backendConfig() *stripe.BackendConfig {
	return &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(1),
		LeveledLogger:     utils.Sugar,
	}
}

// CheckoutParams describes a one-off purchase.
type CheckoutParams struct {
	UserID      string
	Product     string
	Name        string
	Currency    string
	AmountCents int64
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the subset of the Stripe session the client needs.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession creates a hosted payment page for p.
// The user id travels both as client_reference_id and in metadata.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.Currency),
				UnitAmount: stripe.Int64(p.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.Name),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("user_id", p.UserID)
	params.AddMetadata("product", p.Product)

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout failed: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}
