package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

const missionCatalogKey = utils.CatalogCachePrefix + "missions"

// PeriodKey names the period a mission row belongs to.
func PeriodKey(missionType string, day time.Time) string {
	if missionType == models.MissionWeekly {
		return utils.ISOWeekKey(day)
	}
	return utils.DayKey(day)
}

// advanceAmount caps progress at target.
func advanceAmount(current, target, amount int) (progress int, completed bool) {
	progress = current + amount
	if progress > target {
		progress = target
	}
	if progress < 0 {
		progress = 0
	}
	return progress, progress >= target
}

// advanceMissions counts amount toward every active mission of kind for the period containing day.
func advanceMissions(tx *gorm.DB, userID uuid.UUID, kind string, amount int, day time.Time) error {
	var templates []models.Mission
	if err := tx.Where("kind = ? AND active = ?", kind, true).Find(&templates).Error; err != nil {
		return err
	}
	for _, m := range templates {
		key := PeriodKey(m.Type, day)
		seed := models.UserMission{UserID: userID, MissionID: m.ID, PeriodKey: key}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var um models.UserMission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND mission_id = ? AND period_key = ?", userID, m.ID, key).
			First(&um).Error; err != nil {
			return err
		}
		if um.Completed {
			continue
		}
		progress, completed := advanceAmount(um.CurrentProgress, m.TargetValue, amount)
		if err := tx.Model(&um).Updates(map[string]interface{}{
			"current_progress": progress,
			"completed":        completed,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// MissionView joins a template with the user's row for the current period.
type MissionView struct {
	Mission         models.Mission `json:"mission"`
	UserMissionID   *uuid.UUID     `json:"user_mission_id"`
	PeriodKey       string         `json:"period_key"`
	CurrentProgress int            `json:"current_progress"`
	Completed       bool           `json:"completed"`
	Claimed         bool           `json:"claimed"`
}

// ClaimResult reports a mission claim. Claimed is false when there was nothing to claim.
type ClaimResult struct {
	Claimed  bool                 `json:"claimed"`
	Reward   models.Reward        `json:"reward"`
	Progress *models.UserProgress `json:"progress,omitempty"`
}

// MissionService lists and claims missions.
type MissionService struct {
	db     *gorm.DB
	loc    *time.Location
	events EventSink
	now    func() time.Time
}

// NewMissionService creates a MissionService.
func NewMissionService(db *gorm.DB, loc *time.Location, events EventSink) *MissionService {
	if loc == nil {
		loc = time.UTC
	}
	return &MissionService{db: db, loc: loc, events: events, now: time.Now}
}

func (s *MissionService) templates(ctx context.Context) ([]models.Mission, error) {
	var list []models.Mission
	if utils.CacheGetJSON(missionCatalogKey, &list) {
		return list, nil
	}
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("type, id").Find(&list).Error; err != nil {
		return nil, err
	}
	utils.CacheSetJSON(missionCatalogKey, list, 0)
	return list, nil
}

// List returns every active mission with the user's progress in the current period.
func (s *MissionService) List(ctx context.Context, userID uuid.UUID) ([]MissionView, error) {
	templates, err := s.templates(ctx)
	if err != nil {
		return nil, utils.DatabaseError("failed to load missions", err)
	}
	today := utils.DayOf(s.now(), s.loc)
	keys := []string{PeriodKey(models.MissionDaily, today), PeriodKey(models.MissionWeekly, today)}

	var rows []models.UserMission
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND period_key IN ?", userID, keys).
		Find(&rows).Error; err != nil {
		return nil, utils.DatabaseError("failed to load mission progress", err)
	}
	type rowKey struct {
		mission uint
		period  string
	}
	byKey := make(map[rowKey]models.UserMission, len(rows))
	for _, r := range rows {
		byKey[rowKey{r.MissionID, r.PeriodKey}] = r
	}

	views := make([]MissionView, 0, len(templates))
	for _, m := range templates {
		v := MissionView{Mission: m, PeriodKey: PeriodKey(m.Type, today)}
		if r, ok := byKey[rowKey{m.ID, v.PeriodKey}]; ok {
			id := r.ID
			v.UserMissionID = &id
			v.CurrentProgress = r.CurrentProgress
			v.Completed = r.Completed
			v.Claimed = r.Claimed
		}
		views = append(views, v)
	}
	return views, nil
}

// Claim pays out a completed mission once.
func (s *MissionService) Claim(ctx context.Context, userID, userMissionID uuid.UUID) (*ClaimResult, error) {
	now := s.now().UTC()
	result := &ClaimResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var um models.UserMission
		if err := tx.Preload("Mission").Where("id = ? AND user_id = ?", userMissionID, userID).First(&um).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("mission not found")
			}
			return err
		}

		res := tx.Model(&models.UserMission{}).
			Where("id = ? AND completed = ? AND claimed = ?", um.ID, true, false).
			Updates(map[string]interface{}{"claimed": true, "claimed_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		reward := um.Mission.Reward()
		p, err := creditProgress(tx, userID, reward)
		if err != nil {
			return err
		}
		result = &ClaimResult{Claimed: true, Reward: reward, Progress: p}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to claim mission")
	}
	if result.Claimed {
		track(s.events, userID, "mission_claimed", map[string]any{"user_mission_id": userMissionID.String()})
	}
	return result, nil
}
