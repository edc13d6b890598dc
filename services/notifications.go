package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/respiralivre/api/notify"
	"github.com/respiralivre/api/utils"
)

// Notification classes accepted by the dispatch endpoint.
const (
	NotifyDailyReminder = "daily_reminder"
	NotifyStreakAtRisk  = "streak_at_risk"
	NotifyAchievement   = "achievement"
	NotifyCustom        = "custom"
)

// BulkPusher sends to one user or many.
type BulkPusher interface {
	Pusher
	SendToUsers(ctx context.Context, userIDs []uuid.UUID, msg notify.Message) (notify.Result, error)
}

// TokenRegistry stores device tokens.
type TokenRegistry interface {
	Register(ctx context.Context, userID uuid.UUID, token, platform string) error
	Unregister(ctx context.Context, userID uuid.UUID, token string) error
}

// NotificationRequest selects a notification class and its audience.
type NotificationRequest struct {
	Type   string     `json:"type" validate:"required,oneof=daily_reminder streak_at_risk achievement custom"`
	UserID *uuid.UUID `json:"user_id"`
	Title  string     `json:"title" validate:"max=120"`
	Body   string     `json:"body" validate:"max=500"`
}

// PushTokenInput registers a device.
type PushTokenInput struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"omitempty,oneof=web android ios"`
}

// NotificationService resolves audiences and hands messages to the dispatcher.
type NotificationService struct {
	db     *gorm.DB
	pusher BulkPusher
	tokens TokenRegistry
	loc    *time.Location
	now    func() time.Time
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(db *gorm.DB, pusher BulkPusher, tokens TokenRegistry, loc *time.Location) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{db: db, pusher: pusher, tokens: tokens, loc: loc, now: time.Now}
}

// messageFor builds the push for a request. Class defaults apply when title or body are empty.
func messageFor(req NotificationRequest) (notify.Message, error) {
	title, body := strings.TrimSpace(req.Title), strings.TrimSpace(req.Body)
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	switch req.Type {
	case NotifyDailyReminder:
		return notify.Message{
			Title: pick(title, "Hora do check-in"),
			Body:  pick(body, "Registre o seu dia e mantenha a sequência viva."),
			Link:  notify.LinkDashboard,
			Data:  map[string]string{"type": req.Type},
		}, nil
	case NotifyStreakAtRisk:
		return notify.Message{
			Title: pick(title, "Sua sequência está em risco"),
			Body:  pick(body, "Faça o check-in de hoje para não perder a sequência."),
			Link:  notify.LinkDashboard,
			Data:  map[string]string{"type": req.Type},
		}, nil
	case NotifyAchievement:
		if req.UserID == nil {
			return notify.Message{}, utils.Invalid("user_id is required for achievement notifications")
		}
		return notify.Message{
			Title: pick(title, "Nova conquista!"),
			Body:  pick(body, "Você desbloqueou uma conquista. Veja no seu perfil."),
			Link:  notify.LinkProfile,
			Data:  map[string]string{"type": req.Type},
		}, nil
	case NotifyCustom:
		if title == "" || body == "" {
			return notify.Message{}, utils.Invalid("title and body are required for custom notifications")
		}
		return notify.Message{Title: title, Body: body, Link: notify.LinkDashboard, Data: map[string]string{"type": req.Type}}, nil
	}
	return notify.Message{}, utils.Invalid("unknown notification type")
}

// Dispatch sends a notification class to its audience.
func (s *NotificationService) Dispatch(ctx context.Context, req NotificationRequest) (notify.Result, error) {
	if err := validate.Struct(req); err != nil {
		return notify.Result{}, utils.Invalid("invalid notification request")
	}
	msg, err := messageFor(req)
	if err != nil {
		return notify.Result{}, err
	}
	if s.pusher == nil {
		return notify.Result{}, utils.External("push is not configured", nil)
	}
	if req.UserID != nil {
		return s.pusher.SendToUser(ctx, *req.UserID, msg)
	}

	audience, err := s.audience(ctx, req.Type)
	if err != nil {
		return notify.Result{}, utils.DatabaseError("failed to resolve audience", err)
	}
	return s.pusher.SendToUsers(ctx, audience, msg)
}

// audience lists user ids with at least one device for a bulk class.
func (s *NotificationService) audience(ctx context.Context, class string) ([]uuid.UUID, error) {
	today := utils.DayOf(s.now(), s.loc)
	q := s.db.WithContext(ctx).Table("push_tokens AS t").
		Distinct("t.user_id").
		Joins("LEFT JOIN user_progress up ON up.user_id = t.user_id")
	switch class {
	case NotifyDailyReminder:
		q = q.Where("up.last_checkin_date IS NULL OR up.last_checkin_date < ?", today)
	case NotifyStreakAtRisk:
		q = q.Where("up.current_streak > 0 AND up.last_checkin_date = ?", utils.AddDays(today, -1))
	}
	var ids []uuid.UUID
	err := q.Pluck("t.user_id", &ids).Error
	return ids, err
}

// RegisterToken stores a device token for the user.
func (s *NotificationService) RegisterToken(ctx context.Context, userID uuid.UUID, in PushTokenInput) error {
	in.Token = strings.TrimSpace(in.Token)
	if err := validate.Struct(in); err != nil {
		return utils.Invalid("token is required and platform must be web, android or ios")
	}
	if in.Platform == "" {
		in.Platform = "web"
	}
	if s.tokens == nil {
		return utils.External("push is not configured", nil)
	}
	if err := s.tokens.Register(ctx, userID, in.Token, in.Platform); err != nil {
		return utils.DatabaseError("failed to register push token", err)
	}
	return nil
}

// UnregisterToken removes one of the user's device tokens.
func (s *NotificationService) UnregisterToken(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return utils.Invalid("token is required")
	}
	if s.tokens == nil {
		return utils.External("push is not configured", nil)
	}
	if err := s.tokens.Unregister(ctx, userID, token); err != nil {
		return utils.DatabaseError("failed to remove push token", err)
	}
	return nil
}
