package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

const xpPerLevel = 100

var validate = validator.New()

var errProgressMissing = utils.NotFound("progress not found, complete onboarding first")

// LevelForXP derives the stored level from total xp.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return 1 + xp/xpPerLevel
}

// LeagueForLevel maps a level onto its league.
func LeagueForLevel(level int) string {
	switch {
	case level < 5:
		return "bronze"
	case level < 10:
		return "silver"
	case level < 20:
		return "gold"
	case level < 35:
		return "platinum"
	default:
		return "diamond"
	}
}

// applyReward credits r to p and refreshes the derived fields. Rewards are never negative.
func applyReward(p *models.UserProgress, r models.Reward) {
	p.XP += nonNegative(r.XP)
	p.RespiCoins += nonNegative(r.Coins)
	p.Gems += nonNegative(r.Gems)
	p.HealthCrystals += nonNegative(r.Crystals)
	p.Level = LevelForXP(p.XP)
	p.League = LeagueForLevel(p.Level)
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// lockProgress loads the user's progress row FOR UPDATE inside tx.
func lockProgress(tx *gorm.DB, userID uuid.UUID) (*models.UserProgress, error) {
	var p models.UserProgress
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errProgressMissing
	}
	if err != nil {
		return nil, utils.DatabaseError("failed to load progress", err)
	}
	return &p, nil
}

// creditProgress adds r to the user's balances inside tx.
func creditProgress(tx *gorm.DB, userID uuid.UUID, r models.Reward) (*models.UserProgress, error) {
	p, err := lockProgress(tx, userID)
	if err != nil {
		return nil, err
	}
	if r.IsZero() {
		return p, nil
	}
	applyReward(p, r)
	if err := tx.Save(p).Error; err != nil {
		return nil, utils.DatabaseError("failed to credit reward", err)
	}
	return p, nil
}

// OnboardingInput carries the answers collected by the onboarding flow.
type OnboardingInput struct {
	DisplayName      string     `json:"display_name" validate:"max=64"`
	QuitDate         *time.Time `json:"quit_date"`
	CigarettesPerDay int        `json:"cigarettes_per_day" validate:"gte=0,lte=200"`
	PackPriceCents   int        `json:"pack_price_cents" validate:"gte=0"`
}

// ProgressView is what the client renders on the dashboard.
type ProgressView struct {
	Progress models.UserProgress `json:"progress"`
	Profile  models.Profile      `json:"profile"`
	Premium  bool                `json:"premium"`
}

// ProgressService owns onboarding and progress reads.
type ProgressService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProgressService creates a ProgressService.
func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db, now: time.Now}
}

// CompleteOnboarding creates the profile and progress rows. Calling it again only refreshes the answers.
func (s *ProgressService) CompleteOnboarding(ctx context.Context, userID uuid.UUID, in OnboardingInput) (*ProgressView, error) {
	in.DisplayName = utils.SanitizeText(in.DisplayName)
	if err := validate.Struct(in); err != nil {
		return nil, utils.Invalid("invalid onboarding data")
	}
	now := s.now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile := models.Profile{
			UserID:                userID,
			DisplayName:           in.DisplayName,
			QuitDate:              in.QuitDate,
			CigarettesPerDay:      in.CigarettesPerDay,
			PackPriceCents:        in.PackPriceCents,
			OnboardingCompletedAt: &now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "quit_date", "cigarettes_per_day", "pack_price_cents", "updated_at"}),
		}).Create(&profile).Error; err != nil {
			return err
		}
		progress := models.UserProgress{UserID: userID, Level: 1, League: LeagueForLevel(1)}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress).Error
	})
	if err != nil {
		return nil, utils.DatabaseError("failed to complete onboarding", err)
	}
	return s.Get(ctx, userID)
}

// Get returns progress and profile benefits.
func (s *ProgressService) Get(ctx context.Context, userID uuid.UUID) (*ProgressView, error) {
	var view ProgressView
	db := s.db.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).First(&view.Progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errProgressMissing
		}
		return nil, utils.DatabaseError("failed to load progress", err)
	}
	if err := db.Where("user_id = ?", userID).First(&view.Profile).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.DatabaseError("failed to load profile", err)
	}
	view.Premium = view.Profile.IsPremium(s.now())
	return &view, nil
}
