package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/respiralivre/api/analytics"
	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/notify"
	"github.com/respiralivre/api/utils"
)

// memState is the in-memory database behind the fake stores.
type memState struct {
	progress     map[uuid.UUID]models.UserProgress
	profiles     map[uuid.UUID]models.Profile
	checkins     []models.Checkin
	achievements []models.Achievement
	missionHits  map[string]int
	items        map[uint]models.ShopItem
	inventory    []models.InventoryItem
}

func newMemState() *memState {
	return &memState{
		progress:    map[uuid.UUID]models.UserProgress{},
		profiles:    map[uuid.UUID]models.Profile{},
		missionHits: map[string]int{},
		items:       map[uint]models.ShopItem{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.progress {
		if v.LastCheckinDate != nil {
			d := *v.LastCheckinDate
			v.LastCheckinDate = &d
		}
		c.progress[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.missionHits {
		c.missionHits[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	c.checkins = append(c.checkins, s.checkins...)
	c.achievements = append(c.achievements, s.achievements...)
	c.inventory = append(c.inventory, s.inventory...)
	return c
}

// memStore commits a transaction only when fn succeeds, like a real rollback.
type memStore struct {
	mu    sync.Mutex
	state *memState
}

func newMemStore() *memStore { return &memStore{state: newMemState()} }

func (m *memStore) run(fn func(st *memState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) InTx(ctx context.Context, fn func(tx SettlementTx) error) error {
	return m.run(func(st *memState) error { return fn(memTx{st}) })
}

func (m *memStore) Progress(_ context.Context, userID uuid.UUID) (*models.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.progress[userID]
	if !ok {
		return nil, errProgressMissing
	}
	return &p, nil
}

func (m *memStore) CheckinOn(_ context.Context, userID uuid.UUID, day time.Time) (*models.Checkin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.state.checkins {
		if c.UserID == userID && utils.SameDay(c.CheckinDate, day) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) History(_ context.Context, userID uuid.UUID, limit int) ([]models.Checkin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Checkin
	for _, c := range m.state.checkins {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckinDate.After(out[j].CheckinDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

type memTx struct{ st *memState }

func (t memTx) LockProgress(userID uuid.UUID) (*models.UserProgress, error) {
	p, ok := t.st.progress[userID]
	if !ok {
		return nil, errProgressMissing
	}
	return &p, nil
}

func (t memTx) HasCheckin(userID uuid.UUID, day time.Time) (bool, error) {
	for _, c := range t.st.checkins {
		if c.UserID == userID && utils.SameDay(c.CheckinDate, day) {
			return true, nil
		}
	}
	return false, nil
}

func (t memTx) InsertCheckin(c *models.Checkin) error {
	if ok, _ := t.HasCheckin(c.UserID, c.CheckinDate); ok {
		return ErrAlreadyCheckedIn
	}
	t.st.checkins = append(t.st.checkins, *c)
	return nil
}

func (t memTx) SaveProgress(p *models.UserProgress) error {
	t.st.progress[p.UserID] = *p
	return nil
}

func (t memTx) InsertAchievement(a *models.Achievement) (bool, error) {
	for _, existing := range t.st.achievements {
		if existing.UserID == a.UserID && existing.AchievementType == a.AchievementType {
			return false, nil
		}
	}
	t.st.achievements = append(t.st.achievements, *a)
	return true, nil
}

func (t memTx) AdvanceMissions(userID uuid.UUID, kind string, amount int, _ time.Time) error {
	t.st.missionHits[kind] += amount
	return nil
}

func (t memTx) ConsumeStreakFreeze(userID uuid.UUID) (bool, error) {
	p := t.st.profiles[userID]
	if p.StreakFreezes <= 0 {
		return false, nil
	}
	p.StreakFreezes--
	t.st.profiles[userID] = p
	return true, nil
}

// memShop implements ShopStore on the same state.
type memShop struct{ *memStore }

func (m memShop) InTx(_ context.Context, fn func(tx PurchaseTx) error) error {
	return m.run(func(st *memState) error { return fn(memPurchaseTx{memTx{st}}) })
}

func (m memShop) Catalog(context.Context) ([]models.ShopItem, error) {
	st := m.snapshot()
	out := make([]models.ShopItem, 0, len(st.items))
	for _, it := range st.items {
		out = append(out, it)
	}
	return out, nil
}

func (m memShop) Inventory(_ context.Context, userID uuid.UUID) ([]models.InventoryItem, error) {
	var out []models.InventoryItem
	for _, it := range m.snapshot().inventory {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

type memPurchaseTx struct{ memTx }

func (t memPurchaseTx) Item(itemID uint) (*models.ShopItem, error) {
	it, ok := t.st.items[itemID]
	if !ok || !it.Active {
		return nil, utils.NotFound("item not found")
	}
	return &it, nil
}

func (t memPurchaseTx) Debit(userID uuid.UUID, coins, gems int) (bool, error) {
	p, ok := t.st.progress[userID]
	if !ok {
		return false, errProgressMissing
	}
	if p.RespiCoins < coins || p.Gems < gems {
		return false, nil
	}
	p.RespiCoins -= coins
	p.Gems -= gems
	t.st.progress[userID] = p
	return true, nil
}

func (t memPurchaseTx) AddInventory(item *models.InventoryItem) error {
	t.st.inventory = append(t.st.inventory, *item)
	return nil
}

func (t memPurchaseTx) AddStreakFreeze(userID uuid.UUID) error {
	p := t.st.profiles[userID]
	p.UserID = userID
	p.StreakFreezes++
	t.st.profiles[userID] = p
	return nil
}

// recordingSink captures tracked analytics events.
type recordingSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (r *recordingSink) Track(e analytics.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) named(name string) []analytics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []analytics.Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// chanPusher reports every push on a channel.
type chanPusher struct {
	sent chan notify.Message
}

func (c *chanPusher) SendToUser(_ context.Context, _ uuid.UUID, msg notify.Message) (notify.Result, error) {
	c.sent <- msg
	return notify.Result{Sent: 1}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }
