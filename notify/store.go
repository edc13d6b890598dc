package notify

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/respiralivre/api/models"
)

// GormTokenStore keeps push tokens in MySQL.
type GormTokenStore struct {
	db *gorm.DB
}

// NewGormTokenStore returns a TokenStore backed by db.
func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

// TokensForUser lists the user's registered devices.
func (s *GormTokenStore) TokensForUser(ctx context.Context, userID uuid.UUID) ([]models.PushToken, error) {
	var tokens []models.PushToken
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tokens).Error
	return tokens, err
}

// DeleteTokens removes tokens in one statement.
func (s *GormTokenStore) DeleteTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&models.PushToken{}).Error
}

// Register stores a token for the user. A token moving to another account is reassigned.
func (s *GormTokenStore) Register(ctx context.Context, userID uuid.UUID, token, platform string) error {
	row := models.PushToken{UserID: userID, Token: token, Platform: platform}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(&row).Error
}

// Unregister deletes the user's token; other users' tokens are untouched.
func (s *GormTokenStore) Unregister(ctx context.Context, userID uuid.UUID, token string) error {
	return s.db.WithContext(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&models.PushToken{}).Error
}
