package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BossPhase is entered once remaining health drops to HealthPct percent.
type BossPhase struct {
	Name      string `json:"name"`
	HealthPct int    `json:"health_pct"`
}

// Boss is a template with ordered phases (HealthPct descending).
type Boss struct {
	ID          uint                            `gorm:"primaryKey" json:"id"`
	Code        string                          `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name        string                          `gorm:"size:128;not null" json:"name"`
	MaxHealth   int                             `gorm:"not null" json:"max_health"`
	Phases      datatypes.JSONType[[]BossPhase] `json:"phases"`
	Rewards     datatypes.JSONType[Reward]      `json:"rewards"`
	ChestTypeID *uint                           `json:"chest_type_id"`
	Active      bool                            `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time                       `json:"created_at"`
	UpdatedAt   time.Time                       `json:"updated_at"`
}

// BossEncounter is one user's daily fight against a boss.
type BossEncounter struct {
	ID            uuid.UUID                  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        uuid.UUID                  `gorm:"type:char(36);not null;uniqueIndex:idx_encounter_user_boss_date,priority:1" json:"user_id"`
	BossID        uint                       `gorm:"not null;uniqueIndex:idx_encounter_user_boss_date,priority:2" json:"boss_id"`
	EncounterDate time.Time                  `gorm:"type:date;not null;uniqueIndex:idx_encounter_user_boss_date,priority:3" json:"encounter_date"`
	DamageDealt   int                        `gorm:"not null" json:"damage_dealt"`
	CrystalsSpent int                        `gorm:"not null;default:0" json:"crystals_spent"`
	PhaseReached  int                        `gorm:"not null" json:"phase_reached"`
	Victory       bool                       `gorm:"not null" json:"victory"`
	Rewards       datatypes.JSONType[Reward] `json:"rewards"`
	CreatedAt     time.Time                  `json:"created_at"`
}
