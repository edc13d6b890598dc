package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

// AchievementDef describes an unlockable achievement.
type AchievementDef struct {
	Type    string
	Title   string
	Rarity  string
	Rewards models.Reward
}

// streakMilestones are unlocked on the exact day the streak reaches the key.
var streakMilestones = map[int]AchievementDef{
	7:   {Type: "streak_7", Title: "Uma Semana Livre", Rarity: "rare", Rewards: models.Reward{XP: 50, Coins: 25}},
	30:  {Type: "streak_30", Title: "Um Mês Livre", Rarity: "epic", Rewards: models.Reward{XP: 150, Coins: 100, Gems: 5}},
	100: {Type: "streak_100", Title: "Cem Dias Livre", Rarity: "legendary", Rewards: models.Reward{XP: 500, Coins: 300, Gems: 20}},
}

var firstBossVictory = AchievementDef{Type: "first_boss_victory", Title: "Primeira Vitória", Rarity: "common", Rewards: models.Reward{XP: 20, Coins: 10}}

// MilestoneFor returns the achievement unlocked at streak, if any.
func MilestoneFor(streak int) (AchievementDef, bool) {
	def, ok := streakMilestones[streak]
	return def, ok
}

func (d AchievementDef) record(userID uuid.UUID, at time.Time) *models.Achievement {
	return &models.Achievement{
		UserID:          userID,
		AchievementType: d.Type,
		Title:           d.Title,
		Rarity:          d.Rarity,
		Rewards:         datatypes.NewJSONType(d.Rewards),
		UnlockedAt:      at,
	}
}

// insertAchievement inserts a unlock row unless one exists for (user, type).
// It reports whether this call created the row.
func insertAchievement(tx *gorm.DB, a *models.Achievement) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UnlockAchievement records def for the user and credits its rewards on first unlock only.
func UnlockAchievement(tx *gorm.DB, userID uuid.UUID, def AchievementDef, at time.Time) (bool, error) {
	created, err := insertAchievement(tx, def.record(userID, at))
	if err != nil {
		return false, utils.DatabaseError("failed to unlock achievement", err)
	}
	if !created {
		return false, nil
	}
	if _, err := creditProgress(tx, userID, def.Rewards); err != nil {
		return false, err
	}
	return true, nil
}

// AchievementService lists unlocked achievements.
type AchievementService struct {
	db *gorm.DB
}

// NewAchievementService creates an AchievementService.
func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{db: db}
}

// List returns the user's achievements, newest first.
func (s *AchievementService) List(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error) {
	var out []models.Achievement
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("unlocked_at DESC").Find(&out).Error; err != nil {
		return nil, utils.DatabaseError("failed to load achievements", err)
	}
	return out, nil
}
