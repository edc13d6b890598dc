package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/notify"
	"github.com/respiralivre/api/utils"
)

// ErrAlreadyCheckedIn is returned by SettlementTx.InsertCheckin on a duplicate (user, day).
var ErrAlreadyCheckedIn = utils.NewError(utils.KindAlreadyCheckedIn, "already checked in today")

// SettlementTx is the set of reads and writes a settlement performs atomically.
type SettlementTx interface {
	// LockProgress returns the progress row locked for the rest of the transaction.
	LockProgress(userID uuid.UUID) (*models.UserProgress, error)
	HasCheckin(userID uuid.UUID, day time.Time) (bool, error)
	InsertCheckin(c *models.Checkin) error
	SaveProgress(p *models.UserProgress) error
	// InsertAchievement reports false when the user already has the achievement.
	InsertAchievement(a *models.Achievement) (bool, error)
	AdvanceMissions(userID uuid.UUID, kind string, amount int, day time.Time) error
	// ConsumeStreakFreeze decrements the profile's freezes if any remain.
	ConsumeStreakFreeze(userID uuid.UUID) (bool, error)
}

// SettlementStore runs settlements and serves check-in reads.
type SettlementStore interface {
	InTx(ctx context.Context, fn func(tx SettlementTx) error) error
	Progress(ctx context.Context, userID uuid.UUID) (*models.UserProgress, error)
	CheckinOn(ctx context.Context, userID uuid.UUID, day time.Time) (*models.Checkin, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Checkin, error)
}

// CheckinInput is the body of a daily check-in.
type CheckinInput struct {
	Mood  string `json:"mood" validate:"required,oneof=good neutral bad"`
	Notes string `json:"notes" validate:"max=500"`
}

// CheckinResult is returned to the client after settlement.
type CheckinResult struct {
	Success     bool                `json:"success"`
	Streak      int                 `json:"streak"`
	CoinsEarned int                 `json:"coinsEarned"`
	XPEarned    int                 `json:"xpEarned"`
	Achievement *models.Achievement `json:"achievement,omitempty"`
}

// CheckinStatus describes today's state for the check-in screen.
type CheckinStatus struct {
	CheckedInToday  bool            `json:"checked_in_today"`
	Today           *models.Checkin `json:"today,omitempty"`
	CurrentStreak   int             `json:"current_streak"`
	LongestStreak   int             `json:"longest_streak"`
	LastCheckinDate *time.Time      `json:"last_checkin_date"`
}

// CheckinConfig holds the settlement constants.
type CheckinConfig struct {
	Coins    int
	XP       int
	Location *time.Location
}

// CheckinService settles daily check-ins.
type CheckinService struct {
	store  SettlementStore
	cfg    CheckinConfig
	events EventSink
	pusher Pusher
	now    func() time.Time
}

// NewCheckinService wires the settlement. events and pusher may be nil.
func NewCheckinService(store SettlementStore, cfg CheckinConfig, events EventSink, pusher Pusher) *CheckinService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if events == nil {
		events = discardEvents{}
	}
	return &CheckinService{store: store, cfg: cfg, events: events, pusher: pusher, now: time.Now}
}

// nextStreak applies the continuation rule. lost is the broken streak length, 0 when nothing was lost.
func nextStreak(current int, last *time.Time, today time.Time) (next, lost int) {
	if last != nil && utils.SameDay(*last, utils.AddDays(today, -1)) {
		return current + 1, 0
	}
	if current > 0 && last != nil {
		return 1, current
	}
	return 1, 0
}

// Submit validates and settles today's check-in for the user.
func (s *CheckinService) Submit(ctx context.Context, userID uuid.UUID, in CheckinInput) (*CheckinResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, utils.Invalid("mood must be good, neutral or bad and notes at most 500 characters")
	}
	notes := utils.SanitizeText(in.Notes)
	now := s.now()
	today := utils.DayOf(now, s.cfg.Location)

	var (
		result   CheckinResult
		lost     int
		unlocked *models.Achievement
	)
	err := s.store.InTx(ctx, func(tx SettlementTx) error {
		p, err := tx.LockProgress(userID)
		if err != nil {
			return err
		}
		if p.LastCheckinDate != nil && utils.SameDay(*p.LastCheckinDate, today) {
			return ErrAlreadyCheckedIn
		}
		exists, err := tx.HasCheckin(userID, today)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyCheckedIn
		}

		var streak int
		streak, lost = nextStreak(p.CurrentStreak, p.LastCheckinDate, today)

		if err := tx.InsertCheckin(&models.Checkin{
			UserID:      userID,
			CheckinDate: today,
			Mood:        in.Mood,
			Notes:       notes,
			CoinsEarned: s.cfg.Coins,
			XPEarned:    s.cfg.XP,
			StreakAfter: streak,
		}); err != nil {
			return err
		}

		p.CurrentStreak = streak
		if streak > p.LongestStreak {
			p.LongestStreak = streak
		}
		day := today
		p.LastCheckinDate = &day
		applyReward(p, models.Reward{Coins: s.cfg.Coins, XP: s.cfg.XP})

		if def, ok := MilestoneFor(streak); ok {
			a := def.record(userID, now.UTC())
			created, err := tx.InsertAchievement(a)
			if err != nil {
				return err
			}
			if created {
				applyReward(p, def.Rewards)
				unlocked = a
			}
		}

		if err := tx.SaveProgress(p); err != nil {
			return err
		}
		if err := tx.AdvanceMissions(userID, models.MissionKindCheckin, 1, today); err != nil {
			return err
		}

		result = CheckinResult{Success: true, Streak: streak, CoinsEarned: s.cfg.Coins, XPEarned: s.cfg.XP, Achievement: unlocked}
		return nil
	})
	if err != nil {
		if utils.IsKind(err, utils.KindAlreadyCheckedIn) {
			utils.CheckinsTotal.WithLabelValues("duplicate").Inc()
		} else {
			utils.CheckinsTotal.WithLabelValues("error").Inc()
		}
		return nil, wrapStoreError(err, "failed to settle check-in")
	}

	utils.CheckinsTotal.WithLabelValues("settled").Inc()
	track(s.events, userID, "checkin_settled", map[string]any{"streak": result.Streak, "mood": in.Mood})
	if lost > 0 {
		utils.Logger.Info("streak lost", zap.String("user_id", userID.String()), zap.Int("previous_streak", lost))
		track(s.events, userID, "streak_lost", map[string]any{"previous_streak": lost})
	}
	if unlocked != nil {
		track(s.events, userID, "achievement_unlocked", map[string]any{"type": unlocked.AchievementType})
		s.pushAchievement(userID, unlocked)
	}
	return &result, nil
}

// pushAchievement notifies the user's devices without holding up the response.
func (s *CheckinService) pushAchievement(userID uuid.UUID, a *models.Achievement) {
	if s.pusher == nil {
		return
	}
	msg := notify.Message{
		Title: "Nova conquista!",
		Body:  a.Title,
		Link:  notify.LinkProfile,
		Data:  map[string]string{"type": "achievement", "achievement_type": a.AchievementType},
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.pusher.SendToUser(ctx, userID, msg); err != nil {
			utils.Logger.Warn("achievement push failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}()
}

// Status reports whether the user has checked in today.
func (s *CheckinService) Status(ctx context.Context, userID uuid.UUID) (*CheckinStatus, error) {
	p, err := s.store.Progress(ctx, userID)
	if err != nil {
		return nil, wrapStoreError(err, "failed to load progress")
	}
	today := utils.DayOf(s.now(), s.cfg.Location)
	c, err := s.store.CheckinOn(ctx, userID, today)
	if err != nil {
		return nil, wrapStoreError(err, "failed to load check-in")
	}
	return &CheckinStatus{
		CheckedInToday:  c != nil,
		Today:           c,
		CurrentStreak:   p.CurrentStreak,
		LongestStreak:   p.LongestStreak,
		LastCheckinDate: p.LastCheckinDate,
	}, nil
}

// History lists recent check-ins, newest first.
func (s *CheckinService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Checkin, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	out, err := s.store.History(ctx, userID, limit)
	if err != nil {
		return nil, wrapStoreError(err, "failed to load history")
	}
	return out, nil
}

// UseStreakFreeze bridges a single missed day: when the last check-in was the day
// before yesterday, one freeze is spent and the last check-in moves to yesterday.
func (s *CheckinService) UseStreakFreeze(ctx context.Context, userID uuid.UUID) (*models.UserProgress, error) {
	today := utils.DayOf(s.now(), s.cfg.Location)
	var out *models.UserProgress
	err := s.store.InTx(ctx, func(tx SettlementTx) error {
		p, err := tx.LockProgress(userID)
		if err != nil {
			return err
		}
		if p.CurrentStreak == 0 || p.LastCheckinDate == nil || !utils.SameDay(*p.LastCheckinDate, utils.AddDays(today, -2)) {
			return utils.Invalid("streak freeze only applies after exactly one missed day")
		}
		ok, err := tx.ConsumeStreakFreeze(userID)
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewError(utils.KindInsufficientFunds, "no streak freezes left")
		}
		yesterday := utils.AddDays(today, -1)
		p.LastCheckinDate = &yesterday
		if err := tx.SaveProgress(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to use streak freeze")
	}
	track(s.events, userID, "streak_freeze_used", map[string]any{"streak": out.CurrentStreak})
	return out, nil
}

// wrapStoreError keeps taxonomy errors and wraps everything else as a database failure.
func wrapStoreError(err error, message string) error {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return utils.DatabaseError(message, err)
}
