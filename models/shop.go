package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop item types.
const (
	ItemPowerup      = "powerup"
	ItemCosmetic     = "cosmetic"
	ItemStreakFreeze = "streak_freeze"
)

// ShopItem is a catalog entry priced in both currencies.
type ShopItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Code          string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name          string    `gorm:"size:128;not null" json:"name"`
	Description   string    `gorm:"size:255" json:"description"`
	ItemType      string    `gorm:"size:32;not null" json:"item_type"`
	PriceCoins    int       `gorm:"not null;default:0" json:"price_coins"`
	PriceGems     int       `gorm:"not null;default:0" json:"price_gems"`
	DurationHours *int      `json:"duration_hours"`
	Active        bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InventoryItem records one purchase.
type InventoryItem struct {
	ID          uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:char(36);index;not null" json:"user_id"`
	ShopItemID  uint       `gorm:"not null" json:"shop_item_id"`
	PurchasedAt time.Time  `gorm:"not null" json:"purchased_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ShopItem    ShopItem   `gorm:"foreignKey:ShopItemID" json:"shop_item"`
}
