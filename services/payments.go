package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/payments"
	"github.com/respiralivre/api/utils"
)

// Purchasable products.
const (
	ProductStreakFreeze = "streak_freeze"
	ProductPremium      = "premium"
	ProductRemoveAds    = "remove_ads"
)

const premiumPeriod = 30 * 24 * time.Hour

var productNames = map[string]string{
	ProductStreakFreeze: "Congelar sequência",
	ProductPremium:      "Respira Livre Premium (30 dias)",
	ProductRemoveAds:    "Remover anúncios",
}

// applyBenefit grants product to the profile.
func applyBenefit(p *models.Profile, product string, now time.Time) error {
	switch product {
	case ProductStreakFreeze:
		p.StreakFreezes++
	case ProductPremium:
		start := now
		if p.PremiumUntil != nil && p.PremiumUntil.After(now) {
			start = *p.PremiumUntil
		}
		until := start.Add(premiumPeriod)
		p.PremiumUntil = &until
	case ProductRemoveAds:
		p.AdsRemoved = true
	default:
		return utils.Invalid("unknown product")
	}
	return nil
}

// CheckoutCreator opens hosted payment pages. *payments.Client satisfies it.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error)
}

// BenefitStore applies a benefit at most once per provider event.
type BenefitStore interface {
	// ApplyOnce runs fn on the locked profile unless eventID was already applied.
	ApplyOnce(ctx context.Context, eventID string, userID uuid.UUID, product string, fn func(p *models.Profile) error) (bool, error)
}

// PaymentConfig holds prices in cents and redirect targets.
type PaymentConfig struct {
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
	Prices        map[string]int64
}

// PaymentService sells benefits through Stripe Checkout.
type PaymentService struct {
	checkout CheckoutCreator
	store    BenefitStore
	cfg      PaymentConfig
	events   EventSink
	now      func() time.Time
}

// NewPaymentService creates a PaymentService. checkout may be nil when Stripe is not configured.
func NewPaymentService(checkout CheckoutCreator, store BenefitStore, cfg PaymentConfig, events EventSink) *PaymentService {
	return &PaymentService{checkout: checkout, store: store, cfg: cfg, events: events, now: time.Now}
}

// CreatePaymentInput is the body of a checkout request.
type CreatePaymentInput struct {
	Product string `json:"product" validate:"required,oneof=streak_freeze premium remove_ads"`
}

// CreateCheckout opens a checkout session for the product.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID uuid.UUID, in CreatePaymentInput) (*payments.CheckoutSession, error) {
	if err := validate.Struct(in); err != nil {
		return nil, utils.Invalid("product must be streak_freeze, premium or remove_ads")
	}
	if s.checkout == nil {
		return nil, utils.External("payments are not configured", nil)
	}
	session, err := s.checkout.CreateCheckoutSession(ctx, payments.CheckoutParams{
		UserID:      userID.String(),
		Product:     in.Product,
		Name:        productNames[in.Product],
		Currency:    s.cfg.Currency,
		AmountCents: s.cfg.Prices[in.Product],
		SuccessURL:  s.cfg.SuccessURL,
		CancelURL:   s.cfg.CancelURL,
	})
	if err != nil {
		return nil, utils.External("failed to create checkout session", err)
	}
	track(s.events, userID, "checkout_started", map[string]any{"product": in.Product})
	return session, nil
}

// HandleWebhook verifies and applies a Stripe event. It reports whether a benefit was granted now.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error) {
	event, err := payments.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if errors.Is(err, payments.ErrInvalidSignature) || errors.Is(err, payments.ErrExpiredSignature) {
		return false, utils.Invalid("invalid webhook signature")
	}
	if err != nil {
		return false, utils.Invalid("invalid webhook payload")
	}
	if string(event.Type) != payments.EventCheckoutCompleted {
		return false, nil
	}

	session, err := payments.CheckoutSessionOf(event)
	if err != nil {
		return false, utils.Invalid("invalid webhook payload")
	}
	if session.PaymentStatus != "" && session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		utils.Logger.Info("checkout completed without payment", zap.String("event_id", event.ID), zap.String("status", string(session.PaymentStatus)))
		return false, nil
	}
	rawUser := session.Metadata["user_id"]
	if rawUser == "" {
		rawUser = session.ClientReferenceID
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return false, utils.Invalid("webhook event has no user")
	}
	product := session.Metadata["product"]
	if _, ok := productNames[product]; !ok {
		return false, utils.Invalid("webhook event has an unknown product")
	}

	now := s.now().UTC()
	applied, err := s.store.ApplyOnce(ctx, event.ID, userID, product, func(p *models.Profile) error {
		return applyBenefit(p, product, now)
	})
	if err != nil {
		return false, wrapStoreError(err, "failed to apply payment")
	}
	if applied {
		track(s.events, userID, "payment_completed", map[string]any{"product": product})
	}
	return applied, nil
}

// GormBenefitStore records processed events in payment_events.
type GormBenefitStore struct {
	db *gorm.DB
}

// NewGormBenefitStore returns a BenefitStore backed by db.
func NewGormBenefitStore(db *gorm.DB) *GormBenefitStore {
	return &GormBenefitStore{db: db}
}

// ApplyOnce implements BenefitStore.
func (s *GormBenefitStore) ApplyOnce(ctx context.Context, eventID string, userID uuid.UUID, product string, fn func(p *models.Profile) error) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PaymentEvent{
			EventID:     eventID,
			UserID:      userID,
			Product:     product,
			ProcessedAt: time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var profile models.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.Profile{UserID: userID}
		} else if err != nil {
			return err
		}
		if err := fn(&profile); err != nil {
			return err
		}
		applied = true
		return tx.Save(&profile).Error
	})
	return applied, err
}
