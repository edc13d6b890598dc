package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respiralivre/api/models"
)

type memTokenStore struct {
	mu        sync.Mutex
	tokens    map[uuid.UUID][]string
	deletions [][]string
}

func (m *memTokenStore) TokensForUser(_ context.Context, userID uuid.UUID) ([]models.PushToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PushToken
	for _, t := range m.tokens[userID] {
		out = append(out, models.PushToken{UserID: userID, Token: t})
	}
	return out, nil
}

func (m *memTokenStore) DeleteTokens(_ context.Context, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, tokens)
	return nil
}

type scriptedSender struct {
	mu      sync.Mutex
	results map[string]error
	sent    []string
}

func (s *scriptedSender) Send(_ context.Context, token string, _ Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, token)
	return s.results[token]
}

func TestSendToUserRemovesInvalidTokensInOneBatch(t *testing.T) {
	user := uuid.New()
	store := &memTokenStore{tokens: map[uuid.UUID][]string{user: {"ok-1", "gone-1", "flaky", "gone-2", "ok-2"}}}
	sender := &scriptedSender{results: map[string]error{
		"gone-1": fmt.Errorf("%w: NOT_FOUND", ErrInvalidToken),
		"gone-2": ErrInvalidToken,
		"flaky":  errors.New("503 service unavailable"),
	}}
	d := NewDispatcher(store, sender, 1000)

	res, err := d.SendToUser(context.Background(), user, Message{Title: "Hora do check-in", Link: LinkDashboard})

	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 2, Failed: 3, Removed: 2}, res)
	assert.Len(t, sender.sent, 5, "a failing device does not stop the batch")
	require.Len(t, store.deletions, 1)
	assert.ElementsMatch(t, []string{"gone-1", "gone-2"}, store.deletions[0])
}

func TestSendToUserWithoutTokens(t *testing.T) {
	store := &memTokenStore{tokens: map[uuid.UUID][]string{}}
	d := NewDispatcher(store, &scriptedSender{}, 1000)

	res, err := d.SendToUser(context.Background(), uuid.New(), Message{Title: "x"})

	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, store.deletions)
}

func TestSendToUsersAggregates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	store := &memTokenStore{tokens: map[uuid.UUID][]string{a: {"a1", "a2"}, b: {"b1"}}}
	sender := &scriptedSender{results: map[string]error{"b1": ErrInvalidToken}}
	d := NewDispatcher(store, sender, 1000)

	res, err := d.SendToUsers(context.Background(), []uuid.UUID{a, b, a}, Message{Title: "x"})

	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 2, Failed: 1, Removed: 1}, res)
	assert.Len(t, sender.sent, 3, "duplicate user ids are sent once")
}

func TestSquadLink(t *testing.T) {
	id := uuid.MustParse("6f1c1d3e-0000-4000-8000-000000000001")
	assert.Equal(t, "/squads/6f1c1d3e-0000-4000-8000-000000000001", SquadLink(id))
}

type cancellingSender struct {
	cancel context.CancelFunc
	sent   []string
}

func (s *cancellingSender) Send(_ context.Context, token string, _ Message) error {
	s.sent = append(s.sent, token)
	s.cancel()
	return ErrInvalidToken
}

func TestSendToUserPrunesCollectedTokensWhenCancelled(t *testing.T) {
	user := uuid.New()
	store := &memTokenStore{tokens: map[uuid.UUID][]string{user: {"gone-1", "ok-1", "ok-2"}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := &cancellingSender{cancel: cancel}
	d := NewDispatcher(store, sender, 1000)

	res, err := d.SendToUser(ctx, user, Message{Title: "x"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"gone-1"}, sender.sent)
	assert.Equal(t, Result{Failed: 1, Removed: 1}, res)
	require.Len(t, store.deletions, 1)
	assert.Equal(t, []string{"gone-1"}, store.deletions[0])
}
