package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile stores onboarding answers and purchased benefits. The user id is the BaaS auth subject.
type Profile struct {
	UserID                uuid.UUID  `gorm:"type:char(36);primaryKey" json:"user_id"`
	DisplayName           string     `gorm:"size:64" json:"display_name"`
	QuitDate              *time.Time `gorm:"type:date" json:"quit_date"`
	CigarettesPerDay      int        `gorm:"default:0" json:"cigarettes_per_day"`
	PackPriceCents        int        `gorm:"default:0" json:"pack_price_cents"`
	OnboardingCompletedAt *time.Time `json:"onboarding_completed_at"`
	StreakFreezes         int        `gorm:"not null;default:0" json:"streak_freezes"`
	PremiumUntil          *time.Time `json:"premium_until"`
	AdsRemoved            bool       `gorm:"not null;default:false" json:"ads_removed"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// IsPremium reports whether premium is active at the given instant.
func (p Profile) IsPremium(now time.Time) bool {
	return p.PremiumUntil != nil && p.PremiumUntil.After(now)
}
