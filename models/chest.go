package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChestType describes the reward ranges rolled when a chest is opened.
type ChestType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Rarity    string    `gorm:"size:16;not null" json:"rarity"`
	MinXP     int       `gorm:"column:min_xp;not null" json:"min_xp"`
	MaxXP     int       `gorm:"column:max_xp;not null" json:"max_xp"`
	MinCoins  int       `gorm:"not null" json:"min_coins"`
	MaxCoins  int       `gorm:"not null" json:"max_coins"`
	MinGems   int       `gorm:"not null;default:0" json:"min_gems"`
	MaxGems   int       `gorm:"not null;default:0" json:"max_gems"`
	GemChance int       `gorm:"not null;default:0" json:"gem_chance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserChest is an earned chest. Rewards are rolled only when it is opened.
type UserChest struct {
	ID          uuid.UUID                  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      uuid.UUID                  `gorm:"type:char(36);index;not null" json:"user_id"`
	ChestTypeID uint                       `gorm:"not null" json:"chest_type_id"`
	Source      string                     `gorm:"size:32" json:"source"`
	Opened      bool                       `gorm:"not null;default:false" json:"opened"`
	OpenedAt    *time.Time                 `json:"opened_at"`
	Rewards     datatypes.JSONType[Reward] `json:"rewards"`
	ChestType   ChestType                  `gorm:"foreignKey:ChestTypeID" json:"chest_type"`
	CreatedAt   time.Time                  `json:"created_at"`
}
