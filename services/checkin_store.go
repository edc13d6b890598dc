package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/respiralivre/api/models"
)

// GormSettlementStore runs settlements in a MySQL transaction.
type GormSettlementStore struct {
	db *gorm.DB
}

// NewGormSettlementStore returns a SettlementStore backed by db.
func NewGormSettlementStore(db *gorm.DB) *GormSettlementStore {
	return &GormSettlementStore{db: db}
}

// InTx runs fn inside one transaction; any error rolls everything back.
func (s *GormSettlementStore) InTx(ctx context.Context, fn func(tx SettlementTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormSettlementTx{tx: tx})
	})
}

// Progress loads the progress row without locking.
func (s *GormSettlementStore) Progress(ctx context.Context, userID uuid.UUID) (*models.UserProgress, error) {
	return lockFreeProgress(s.db.WithContext(ctx), userID)
}

// CheckinOn returns the record for day, or nil.
func (s *GormSettlementStore) CheckinOn(ctx context.Context, userID uuid.UUID, day time.Time) (*models.Checkin, error) {
	var c models.Checkin
	err := s.db.WithContext(ctx).Where("user_id = ? AND checkin_date = ?", userID, day).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// History returns the latest check-ins.
func (s *GormSettlementStore) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Checkin, error) {
	var out []models.Checkin
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("checkin_date DESC").Limit(limit).Find(&out).Error
	return out, err
}

type gormSettlementTx struct {
	tx *gorm.DB
}

func (g gormSettlementTx) LockProgress(userID uuid.UUID) (*models.UserProgress, error) {
	return lockProgress(g.tx, userID)
}

func (g gormSettlementTx) HasCheckin(userID uuid.UUID, day time.Time) (bool, error) {
	var n int64
	err := g.tx.Model(&models.Checkin{}).Where("user_id = ? AND checkin_date = ?", userID, day).Count(&n).Error
	return n > 0, err
}

func (g gormSettlementTx) InsertCheckin(c *models.Checkin) error {
	err := g.tx.Create(c).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyCheckedIn
	}
	return err
}

func (g gormSettlementTx) SaveProgress(p *models.UserProgress) error {
	return g.tx.Save(p).Error
}

func (g gormSettlementTx) InsertAchievement(a *models.Achievement) (bool, error) {
	return insertAchievement(g.tx, a)
}

func (g gormSettlementTx) AdvanceMissions(userID uuid.UUID, kind string, amount int, day time.Time) error {
	return advanceMissions(g.tx, userID, kind, amount, day)
}

func (g gormSettlementTx) ConsumeStreakFreeze(userID uuid.UUID) (bool, error) {
	res := g.tx.Model(&models.Profile{}).
		Where("user_id = ? AND streak_freezes > 0", userID).
		Update("streak_freezes", gorm.Expr("streak_freezes - 1"))
	return res.RowsAffected == 1, res.Error
}

func lockFreeProgress(db *gorm.DB, userID uuid.UUID) (*models.UserProgress, error) {
	var p models.UserProgress
	err := db.Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errProgressMissing
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
