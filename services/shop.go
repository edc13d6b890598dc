package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

// PurchaseTx is what a purchase does atomically.
type PurchaseTx interface {
	Item(itemID uint) (*models.ShopItem, error)
	// Debit subtracts both prices only if both balances cover them.
	Debit(userID uuid.UUID, coins, gems int) (bool, error)
	AddInventory(item *models.InventoryItem) error
	AddStreakFreeze(userID uuid.UUID) error
	AdvanceMissions(userID uuid.UUID, kind string, amount int, day time.Time) error
}

// ShopStore runs purchases and serves catalog reads.
type ShopStore interface {
	InTx(ctx context.Context, fn func(tx PurchaseTx) error) error
	Catalog(ctx context.Context) ([]models.ShopItem, error)
	Inventory(ctx context.Context, userID uuid.UUID) ([]models.InventoryItem, error)
}

// ShopService sells catalog items for coins and gems.
type ShopService struct {
	store  ShopStore
	loc    *time.Location
	events EventSink
	now    func() time.Time
}

// NewShopService creates a ShopService.
func NewShopService(store ShopStore, loc *time.Location, events EventSink) *ShopService {
	if loc == nil {
		loc = time.UTC
	}
	return &ShopService{store: store, loc: loc, events: events, now: time.Now}
}

// inventoryEntry builds the inventory row for item bought at now.
func inventoryEntry(userID uuid.UUID, item models.ShopItem, now time.Time) models.InventoryItem {
	entry := models.InventoryItem{UserID: userID, ShopItemID: item.ID, PurchasedAt: now}
	if item.ItemType == models.ItemPowerup && item.DurationHours != nil && *item.DurationHours > 0 {
		expires := now.Add(time.Duration(*item.DurationHours) * time.Hour)
		entry.ExpiresAt = &expires
	}
	return entry
}

// Catalog lists active items.
func (s *ShopService) Catalog(ctx context.Context) ([]models.ShopItem, error) {
	items, err := s.store.Catalog(ctx)
	if err != nil {
		return nil, wrapStoreError(err, "failed to load shop")
	}
	return items, nil
}

// Inventory lists the user's purchases, newest first.
func (s *ShopService) Inventory(ctx context.Context, userID uuid.UUID) ([]models.InventoryItem, error) {
	items, err := s.store.Inventory(ctx, userID)
	if err != nil {
		return nil, wrapStoreError(err, "failed to load inventory")
	}
	return items, nil
}

// Purchase debits the price and records the item. Insufficient balance leaves everything untouched.
func (s *ShopService) Purchase(ctx context.Context, userID uuid.UUID, itemID uint) (*models.InventoryItem, error) {
	now := s.now().UTC()
	var bought models.InventoryItem
	err := s.store.InTx(ctx, func(tx PurchaseTx) error {
		item, err := tx.Item(itemID)
		if err != nil {
			return err
		}
		ok, err := tx.Debit(userID, item.PriceCoins, item.PriceGems)
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewError(utils.KindInsufficientFunds, "insufficient funds")
		}

		bought = inventoryEntry(userID, *item, now)
		if err := tx.AddInventory(&bought); err != nil {
			return err
		}
		if item.ItemType == models.ItemStreakFreeze {
			if err := tx.AddStreakFreeze(userID); err != nil {
				return err
			}
		}
		bought.ShopItem = *item
		return tx.AdvanceMissions(userID, models.MissionKindPurchase, 1, utils.DayOf(now, s.loc))
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to purchase item")
	}
	track(s.events, userID, "item_purchased", map[string]any{"item": bought.ShopItem.Code})
	return &bought, nil
}
