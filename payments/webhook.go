package payments

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// DefaultTolerance bounds the age of a signed webhook.
const DefaultTolerance = 5 * time.Minute

// EventCheckoutCompleted is the only event that grants benefits.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	ErrInvalidSignature = errors.New("invalid stripe signature")
	ErrExpiredSignature = errors.New("stripe signature timestamp outside tolerance")
)

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
// The account API version is not pinned, only the fields read here matter.
func ConstructEvent(payload []byte, header, secret string) (*stripe.Event, error) {
	if secret == "" || header == "" {
		return nil, ErrInvalidSignature
	}
	e, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	switch {
	case errors.Is(err, webhook.ErrTooOld):
		return nil, fmt.Errorf("%w: %v", ErrExpiredSignature, err)
	case errors.Is(err, webhook.ErrNotSigned), errors.Is(err, webhook.ErrInvalidHeader), errors.Is(err, webhook.ErrNoValidSignature):
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case err != nil:
		return nil, fmt.Errorf("decode stripe event: %w", err)
	}
	if e.ID == "" || e.Type == "" {
		return nil, errors.New("stripe event is missing id or type")
	}
	return &e, nil
}

// CheckoutSessionOf decodes the session carried by a checkout event.
func CheckoutSessionOf(e *stripe.Event) (*stripe.CheckoutSession, error) {
	if e.Data == nil || len(e.Data.Raw) == 0 {
		return nil, errors.New("stripe event has no object")
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(e.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &s, nil
}

// SignatureHeader builds a Stripe-Signature header value for payload signed at t.
func SignatureHeader(payload []byte, secret string, t time.Time) string {
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), hex.EncodeToString(webhook.ComputeSignature(t, payload, secret)))
}
