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

const bossCatalogKey = utils.CatalogCachePrefix + "bosses"

// DamageConfig weights the inputs of a boss attack.
type DamageConfig struct {
	Base    int
	Streak  int
	Crystal int
}

// BossDamage computes one attack, clamped to [0, maxHealth].
func BossDamage(cfg DamageConfig, streak, crystals, maxHealth int) int {
	d := cfg.Base + streak*cfg.Streak + crystals*cfg.Crystal
	if d < 0 {
		return 0
	}
	if d > maxHealth {
		return maxHealth
	}
	return d
}

// PhaseReached returns the index of the last phase whose threshold is at or above remainingPct.
// Phases are ordered by descending HealthPct; the first phase is the floor.
func PhaseReached(phases []models.BossPhase, remainingPct int) int {
	reached := 0
	for i, ph := range phases {
		if ph.HealthPct >= remainingPct {
			reached = i
		}
	}
	return reached
}

// FightInput is the body of a boss attack.
type FightInput struct {
	Crystals int `json:"crystals" validate:"gte=0,lte=100"`
}

// FightResult is the outcome of one encounter.
type FightResult struct {
	Encounter models.BossEncounter `json:"encounter"`
	Remaining int                  `json:"remaining_health"`
	Phase     *models.BossPhase    `json:"phase,omitempty"`
	Chest     *models.UserChest    `json:"chest,omitempty"`
}

// BossView is a boss with today's encounter, if any.
type BossView struct {
	Boss  models.Boss           `json:"boss"`
	Today *models.BossEncounter `json:"today,omitempty"`
}

// BossService runs daily boss encounters.
type BossService struct {
	db     *gorm.DB
	damage DamageConfig
	loc    *time.Location
	events EventSink
	now    func() time.Time
}

// NewBossService creates a BossService.
func NewBossService(db *gorm.DB, damage DamageConfig, loc *time.Location, events EventSink) *BossService {
	if loc == nil {
		loc = time.UTC
	}
	return &BossService{db: db, damage: damage, loc: loc, events: events, now: time.Now}
}

func (s *BossService) bosses(ctx context.Context) ([]models.Boss, error) {
	var list []models.Boss
	if utils.CacheGetJSON(bossCatalogKey, &list) {
		return list, nil
	}
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("max_health").Find(&list).Error; err != nil {
		return nil, err
	}
	utils.CacheSetJSON(bossCatalogKey, list, 0)
	return list, nil
}

// List returns active bosses with the user's encounter for today.
func (s *BossService) List(ctx context.Context, userID uuid.UUID) ([]BossView, error) {
	list, err := s.bosses(ctx)
	if err != nil {
		return nil, utils.DatabaseError("failed to load bosses", err)
	}
	today := utils.DayOf(s.now(), s.loc)
	var encounters []models.BossEncounter
	if err := s.db.WithContext(ctx).Where("user_id = ? AND encounter_date = ?", userID, today).Find(&encounters).Error; err != nil {
		return nil, utils.DatabaseError("failed to load encounters", err)
	}
	byBoss := make(map[uint]models.BossEncounter, len(encounters))
	for _, e := range encounters {
		byBoss[e.BossID] = e
	}
	views := make([]BossView, 0, len(list))
	for _, b := range list {
		v := BossView{Boss: b}
		if e, ok := byBoss[b.ID]; ok {
			e := e
			v.Today = &e
		}
		views = append(views, v)
	}
	return views, nil
}

// Fight resolves today's encounter against bossID, spending crystals for extra damage.
func (s *BossService) Fight(ctx context.Context, userID uuid.UUID, bossID uint, in FightInput) (*FightResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, utils.Invalid("crystals must be between 0 and 100")
	}
	now := s.now()
	today := utils.DayOf(now, s.loc)
	result := &FightResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var boss models.Boss
		if err := tx.Where("id = ? AND active = ?", bossID, true).First(&boss).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("boss not found")
			}
			return err
		}
		p, err := lockProgress(tx, userID)
		if err != nil {
			return err
		}
		if in.Crystals > p.HealthCrystals {
			return utils.NewError(utils.KindInsufficientFunds, "not enough health crystals")
		}

		damage := BossDamage(s.damage, p.CurrentStreak, in.Crystals, boss.MaxHealth)
		remaining := boss.MaxHealth - damage
		pct := 0
		if boss.MaxHealth > 0 {
			pct = remaining * 100 / boss.MaxHealth
		}
		phases := boss.Phases.Data()
		phase := PhaseReached(phases, pct)
		victory := remaining == 0

		enc := models.BossEncounter{
			UserID:        userID,
			BossID:        boss.ID,
			EncounterDate: today,
			DamageDealt:   damage,
			CrystalsSpent: in.Crystals,
			PhaseReached:  phase,
			Victory:       victory,
		}
		if victory {
			enc.Rewards = boss.Rewards
		}
		if err := tx.Create(&enc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.NewError(utils.KindConflict, "boss already fought today")
			}
			return err
		}

		p.HealthCrystals -= in.Crystals
		if victory {
			applyReward(p, boss.Rewards.Data())
		}
		if err := tx.Save(p).Error; err != nil {
			return err
		}

		result.Encounter = enc
		result.Remaining = remaining
		if phase < len(phases) {
			ph := phases[phase]
			result.Phase = &ph
		}
		if !victory {
			return nil
		}

		if boss.ChestTypeID != nil {
			chest, err := grantChest(tx, userID, *boss.ChestTypeID, "boss:"+boss.Code)
			if err != nil {
				return err
			}
			result.Chest = chest
		}
		if _, err := UnlockAchievement(tx, userID, firstBossVictory, now.UTC()); err != nil {
			return err
		}
		return advanceMissions(tx, userID, models.MissionKindBossVictory, 1, today)
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to resolve boss fight")
	}
	track(s.events, userID, "boss_fought", map[string]any{
		"boss_id": bossID,
		"damage":  result.Encounter.DamageDealt,
		"victory": result.Encounter.Victory,
	})
	return result, nil
}
