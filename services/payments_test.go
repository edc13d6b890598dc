package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/notify"
	"github.com/respiralivre/api/payments"
	"github.com/respiralivre/api/utils"
)

type memBenefits struct {
	seen     map[string]bool
	profiles map[uuid.UUID]*models.Profile
}

func newMemBenefits() *memBenefits {
	return &memBenefits{seen: map[string]bool{}, profiles: map[uuid.UUID]*models.Profile{}}
}

func (m *memBenefits) ApplyOnce(_ context.Context, eventID string, userID uuid.UUID, _ string, fn func(p *models.Profile) error) (bool, error) {
	if m.seen[eventID] {
		return false, nil
	}
	p, ok := m.profiles[userID]
	if !ok {
		p = &models.Profile{UserID: userID}
	}
	cp := *p
	if err := fn(&cp); err != nil {
		return false, err
	}
	m.seen[eventID] = true
	m.profiles[userID] = &cp
	return true, nil
}

type fakeCheckout struct {
	params payments.CheckoutParams
	err    error
}

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error) {
	f.params = p
	if f.err != nil {
		return nil, f.err
	}
	return &payments.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

const webhookSecret = "whsec_test"

var paymentNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func checkoutEvent(eventID string, userID uuid.UUID, product string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"paid","client_reference_id":%q,"metadata":{"user_id":%q,"product":%q}}}}`,
		eventID, userID.String(), userID.String(), product))
}

func newPaymentFixture() (*PaymentService, *memBenefits, *fakeCheckout) {
	store := newMemBenefits()
	checkout := &fakeCheckout{}
	svc := NewPaymentService(checkout, store, PaymentConfig{
		WebhookSecret: webhookSecret,
		Currency:      "brl",
		Prices:        map[string]int64{ProductPremium: 1990, ProductStreakFreeze: 490, ProductRemoveAds: 990},
	}, nil)
	svc.now = func() time.Time { return paymentNow }
	return svc, store, checkout
}

func TestWebhookAppliesOncePerEvent(t *testing.T) {
	svc, store, _ := newPaymentFixture()
	userID := uuid.New()
	payload := checkoutEvent("evt_1", userID, ProductStreakFreeze)
	sig := payments.SignatureHeader(payload, webhookSecret, time.Now())

	applied, err := svc.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = svc.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 1, store.profiles[userID].StreakFreezes)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, store, _ := newPaymentFixture()
	payload := checkoutEvent("evt_2", uuid.New(), ProductPremium)

	_, err := svc.HandleWebhook(context.Background(), payload, payments.SignatureHeader(payload, "whsec_other", time.Now()))
	assert.True(t, utils.IsKind(err, utils.KindInvalidInput))

	_, err = svc.HandleWebhook(context.Background(), payload, "")
	assert.True(t, utils.IsKind(err, utils.KindInvalidInput))

	stale := payments.SignatureHeader(payload, webhookSecret, time.Now().Add(-time.Hour))
	_, err = svc.HandleWebhook(context.Background(), payload, stale)
	assert.True(t, utils.IsKind(err, utils.KindInvalidInput))
	assert.Empty(t, store.seen)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	svc, store, _ := newPaymentFixture()
	payload := []byte(`{"id":"evt_3","type":"payment_intent.created","data":{"object":{}}}`)

	applied, err := svc.HandleWebhook(context.Background(), payload, payments.SignatureHeader(payload, webhookSecret, time.Now()))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, store.seen)
}

func TestWebhookSkipsUnpaidCheckout(t *testing.T) {
	svc, store, _ := newPaymentFixture()
	userID := uuid.New()
	payload := []byte(fmt.Sprintf(`{"id":"evt_4","type":"checkout.session.completed","data":{"object":{"id":"cs_4","payment_status":"unpaid","metadata":{"user_id":%q,"product":"premium"}}}}`, userID))

	applied, err := svc.HandleWebhook(context.Background(), payload, payments.SignatureHeader(payload, webhookSecret, time.Now()))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, store.seen)
}

func TestApplyBenefitExtendsPremium(t *testing.T) {
	now := paymentNow
	p := &models.Profile{}
	require.NoError(t, applyBenefit(p, ProductPremium, now))
	assert.Equal(t, now.Add(30*24*time.Hour), *p.PremiumUntil)

	require.NoError(t, applyBenefit(p, ProductPremium, now))
	assert.Equal(t, now.Add(60*24*time.Hour), *p.PremiumUntil)

	expired := now.Add(-time.Hour)
	p.PremiumUntil = &expired
	require.NoError(t, applyBenefit(p, ProductPremium, now))
	assert.Equal(t, now.Add(30*24*time.Hour), *p.PremiumUntil)

	require.NoError(t, applyBenefit(p, ProductRemoveAds, now))
	assert.True(t, p.AdsRemoved)
	assert.Error(t, applyBenefit(p, "lifetime", now))
}

func TestCreateCheckout(t *testing.T) {
	svc, _, checkout := newPaymentFixture()
	userID := uuid.New()

	session, err := svc.CreateCheckout(context.Background(), userID, CreatePaymentInput{Product: ProductPremium})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, int64(1990), checkout.params.AmountCents)
	assert.Equal(t, userID.String(), checkout.params.UserID)

	_, err = svc.CreateCheckout(context.Background(), userID, CreatePaymentInput{Product: "gold"})
	assert.True(t, utils.IsKind(err, utils.KindInvalidInput))

	checkout.err = errors.New("stripe down")
	_, err = svc.CreateCheckout(context.Background(), userID, CreatePaymentInput{Product: ProductPremium})
	assert.True(t, utils.IsKind(err, utils.KindExternal))

	unconfigured := NewPaymentService(nil, newMemBenefits(), PaymentConfig{}, nil)
	_, err = unconfigured.CreateCheckout(context.Background(), userID, CreatePaymentInput{Product: ProductPremium})
	assert.True(t, utils.IsKind(err, utils.KindExternal))
}

type memTokens struct {
	tokens map[string]string
}

func (m *memTokens) Register(_ context.Context, _ uuid.UUID, token, platform string) error {
	m.tokens[token] = platform
	return nil
}

func (m *memTokens) Unregister(_ context.Context, _ uuid.UUID, token string) error {
	delete(m.tokens, token)
	return nil
}

type recordingPusher struct {
	users []uuid.UUID
	msgs  []notify.Message
}

func (r *recordingPusher) SendToUser(_ context.Context, userID uuid.UUID, msg notify.Message) (notify.Result, error) {
	r.users = append(r.users, userID)
	r.msgs = append(r.msgs, msg)
	return notify.Result{Sent: 1}, nil
}

func (r *recordingPusher) SendToUsers(ctx context.Context, userIDs []uuid.UUID, msg notify.Message) (notify.Result, error) {
	var res notify.Result
	for _, id := range userIDs {
		one, _ := r.SendToUser(ctx, id, msg)
		res.Sent += one.Sent
	}
	return res, nil
}

func TestNotificationTokensAndTargetedDispatch(t *testing.T) {
	tokens := &memTokens{tokens: map[string]string{}}
	pusher := &recordingPusher{}
	svc := NewNotificationService(nil, pusher, tokens, time.UTC)
	userID := uuid.New()

	require.NoError(t, svc.RegisterToken(context.Background(), userID, PushTokenInput{Token: "  tok-1 "}))
	assert.Equal(t, "web", tokens.tokens["tok-1"])
	err := svc.RegisterToken(context.Background(), userID, PushTokenInput{Token: "tok-2", Platform: "symbian"})
	assert.True(t, utils.IsKind(err, utils.KindInvalidInput))

	res, err := svc.Dispatch(context.Background(), NotificationRequest{Type: NotifyAchievement, UserID: &userID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, pusher.users, 1)
	assert.Equal(t, userID, pusher.users[0])
	assert.Equal(t, notify.LinkProfile, pusher.msgs[0].Link)

	require.NoError(t, svc.UnregisterToken(context.Background(), userID, "tok-1"))
	assert.Empty(t, tokens.tokens)
	assert.True(t, utils.IsKind(svc.UnregisterToken(context.Background(), userID, " "), utils.KindInvalidInput))
}

func TestNotificationsWithoutProvider(t *testing.T) {
	var pusher BulkPusher
	svc := NewNotificationService(nil, pusher, nil, time.UTC)
	userID := uuid.New()

	_, err := svc.Dispatch(context.Background(), NotificationRequest{Type: NotifyAchievement, UserID: &userID})
	assert.True(t, utils.IsKind(err, utils.KindExternal))
	err = svc.RegisterToken(context.Background(), userID, PushTokenInput{Token: "tok-1"})
	assert.True(t, utils.IsKind(err, utils.KindExternal))
	err = svc.UnregisterToken(context.Background(), userID, "tok-1")
	assert.True(t, utils.IsKind(err, utils.KindExternal))
}
