package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

const shopCatalogKey = utils.CatalogCachePrefix + "shop"

// GormShopStore is the MySQL ShopStore.
type GormShopStore struct {
	db *gorm.DB
}

// NewGormShopStore returns a ShopStore backed by db.
func NewGormShopStore(db *gorm.DB) *GormShopStore {
	return &GormShopStore{db: db}
}

// InTx runs fn in one transaction.
func (s *GormShopStore) InTx(ctx context.Context, fn func(tx PurchaseTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormPurchaseTx{tx: tx})
	})
}

// Catalog lists active items, cached in Redis.
func (s *GormShopStore) Catalog(ctx context.Context) ([]models.ShopItem, error) {
	var items []models.ShopItem
	if utils.CacheGetJSON(shopCatalogKey, &items) {
		return items, nil
	}
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("price_gems, price_coins").Find(&items).Error; err != nil {
		return nil, err
	}
	utils.CacheSetJSON(shopCatalogKey, items, 0)
	return items, nil
}

// Inventory lists the user's items.
func (s *GormShopStore) Inventory(ctx context.Context, userID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := s.db.WithContext(ctx).Preload("ShopItem").
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&items).Error
	return items, err
}

type gormPurchaseTx struct {
	tx *gorm.DB
}

func (g gormPurchaseTx) Item(itemID uint) (*models.ShopItem, error) {
	var item models.ShopItem
	err := g.tx.Where("id = ? AND active = ?", itemID, true).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("item not found")
	}
	return &item, err
}

func (g gormPurchaseTx) Debit(userID uuid.UUID, coins, gems int) (bool, error) {
	if coins == 0 && gems == 0 {
		if _, err := lockProgress(g.tx, userID); err != nil {
			return false, err
		}
		return true, nil
	}
	res := g.tx.Model(&models.UserProgress{}).
		Where("user_id = ? AND respi_coins >= ? AND gems >= ?", userID, coins, gems).
		Updates(map[string]interface{}{
			"respi_coins": gorm.Expr("respi_coins - ?", coins),
			"gems":        gorm.Expr("gems - ?", gems),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := lockFreeProgress(g.tx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func (g gormPurchaseTx) AddInventory(item *models.InventoryItem) error {
	return g.tx.Omit("ShopItem").Create(item).Error
}

func (g gormPurchaseTx) AddStreakFreeze(userID uuid.UUID) error {
	return g.tx.Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("streak_freezes", gorm.Expr("streak_freezes + 1")).Error
}

func (g gormPurchaseTx) AdvanceMissions(userID uuid.UUID, kind string, amount int, day time.Time) error {
	return advanceMissions(g.tx, userID, kind, amount, day)
}
