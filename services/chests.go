package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

// randInt returns a uniform value in [min, max].
func randInt(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}

// RollChest draws the rewards of a chest of type ct.
func RollChest(ct models.ChestType, rng *rand.Rand) models.Reward {
	r := models.Reward{
		XP:    randInt(rng, ct.MinXP, ct.MaxXP),
		Coins: randInt(rng, ct.MinCoins, ct.MaxCoins),
	}
	if rng.Float64()*100 < float64(ct.GemChance) {
		r.Gems = randInt(rng, ct.MinGems, ct.MaxGems)
	}
	return r
}

// grantChest gives the user an unopened chest of the given type.
func grantChest(tx *gorm.DB, userID uuid.UUID, chestTypeID uint, source string) (*models.UserChest, error) {
	chest := &models.UserChest{UserID: userID, ChestTypeID: chestTypeID, Source: source}
	if err := tx.Omit("ChestType").Create(chest).Error; err != nil {
		return nil, err
	}
	return chest, nil
}

// OpenResult reports a chest opening. Opened is false when the chest was already open.
type OpenResult struct {
	Opened   bool                 `json:"opened"`
	Chest    models.UserChest     `json:"chest"`
	Reward   models.Reward        `json:"reward"`
	Progress *models.UserProgress `json:"progress,omitempty"`
}

// ChestService lists and opens chests.
type ChestService struct {
	db     *gorm.DB
	loc    *time.Location
	events EventSink
	now    func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewChestService creates a ChestService.
func NewChestService(db *gorm.DB, loc *time.Location, events EventSink) *ChestService {
	if loc == nil {
		loc = time.UTC
	}
	return &ChestService{
		db:     db,
		loc:    loc,
		events: events,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *ChestService) roll(ct models.ChestType) models.Reward {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return RollChest(ct, s.rng)
}

// List returns the user's chests, unopened first.
func (s *ChestService) List(ctx context.Context, userID uuid.UUID) ([]models.UserChest, error) {
	var out []models.UserChest
	err := s.db.WithContext(ctx).Preload("ChestType").
		Where("user_id = ?", userID).
		Order("opened ASC, created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, utils.DatabaseError("failed to load chests", err)
	}
	return out, nil
}

// Open rolls and credits a chest. Opening an opened chest changes nothing.
func (s *ChestService) Open(ctx context.Context, userID, chestID uuid.UUID) (*OpenResult, error) {
	now := s.now()
	result := &OpenResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chest models.UserChest
		if err := tx.Preload("ChestType").Where("id = ? AND user_id = ?", chestID, userID).First(&chest).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("chest not found")
			}
			return err
		}
		result.Chest = chest
		if chest.Opened {
			return nil
		}

		reward := s.roll(chest.ChestType)
		openedAt := now.UTC()
		res := tx.Model(&models.UserChest{}).
			Where("id = ? AND opened = ?", chest.ID, false).
			Updates(map[string]interface{}{
				"opened":    true,
				"opened_at": openedAt,
				"rewards":   datatypes.NewJSONType(reward),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		p, err := creditProgress(tx, userID, reward)
		if err != nil {
			return err
		}
		if err := advanceMissions(tx, userID, models.MissionKindChestOpen, 1, utils.DayOf(now, s.loc)); err != nil {
			return err
		}

		chest.Opened = true
		chest.OpenedAt = &openedAt
		chest.Rewards = datatypes.NewJSONType(reward)
		*result = OpenResult{Opened: true, Chest: chest, Reward: reward, Progress: p}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to open chest")
	}
	if result.Opened {
		track(s.events, userID, "chest_opened", map[string]any{"chest_type": result.Chest.ChestType.Code, "gems": result.Reward.Gems})
	}
	return result, nil
}
