package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/notify"
	"github.com/respiralivre/api/utils"
)

// CreateSquadInput is the body of squad creation.
type CreateSquadInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
}

// MemberView is a squad member with their streak.
type MemberView struct {
	UserID        uuid.UUID `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	JoinedAt      time.Time `json:"joined_at"`
	CurrentStreak int       `json:"current_streak"`
	IsLeader      bool      `json:"is_leader"`
}

// SquadView is a squad with its members and their combined streak.
type SquadView struct {
	Squad       models.Squad `json:"squad"`
	Members     []MemberView `json:"members"`
	TotalStreak int          `json:"total_streak"`
}

// nextLeader picks the member who joined first. Nil when nobody is left.
func nextLeader(remaining []models.SquadMember) *uuid.UUID {
	if len(remaining) == 0 {
		return nil
	}
	sorted := append([]models.SquadMember(nil), remaining...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].JoinedAt.Before(sorted[j].JoinedAt) })
	id := sorted[0].UserID
	return &id
}

// SquadService manages squad membership.
type SquadService struct {
	db         *gorm.DB
	maxMembers int
	events     EventSink
	pusher     Pusher
	now        func() time.Time
}

// NewSquadService creates a SquadService.
func NewSquadService(db *gorm.DB, maxMembers int, events EventSink, pusher Pusher) *SquadService {
	if maxMembers <= 0 {
		maxMembers = 10
	}
	return &SquadService{db: db, maxMembers: maxMembers, events: events, pusher: pusher, now: time.Now}
}

func inAnySquad(tx *gorm.DB, userID uuid.UUID) (bool, error) {
	var n int64
	err := tx.Model(&models.SquadMember{}).Where("user_id = ?", userID).Count(&n).Error
	return n > 0, err
}

func lockSquad(tx *gorm.DB, squadID uuid.UUID) (*models.Squad, error) {
	var sq models.Squad
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", squadID).First(&sq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("squad not found")
	}
	return &sq, err
}

func errAlreadyInSquad() error {
	return utils.NewError(utils.KindAlreadyInSquad, "you are already in a squad")
}

// Create makes a squad led by the caller.
func (s *SquadService) Create(ctx context.Context, userID uuid.UUID, in CreateSquadInput) (*models.Squad, error) {
	in.Name = utils.SanitizeText(in.Name)
	in.Description = utils.SanitizeText(in.Description)
	if err := validate.Struct(in); err != nil {
		return nil, utils.Invalid("name is required (max 50) and description max 200 characters")
	}
	now := s.now().UTC()
	leader := userID
	squad := &models.Squad{Name: in.Name, Description: in.Description, LeaderID: &leader, MaxMembers: s.maxMembers}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := inAnySquad(tx, userID)
		if err != nil {
			return err
		}
		if member {
			return errAlreadyInSquad()
		}
		if err := tx.Omit("Members").Create(squad).Error; err != nil {
			return err
		}
		err = tx.Create(&models.SquadMember{SquadID: squad.ID, UserID: userID, JoinedAt: now}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errAlreadyInSquad()
		}
		return err
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to create squad")
	}
	track(s.events, userID, "squad_created", map[string]any{"squad_id": squad.ID.String()})
	return squad, nil
}

// Join adds the caller to a squad with free capacity.
func (s *SquadService) Join(ctx context.Context, userID, squadID uuid.UUID) (*models.Squad, error) {
	now := s.now().UTC()
	var squad *models.Squad
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		squad, err = lockSquad(tx, squadID)
		if err != nil {
			return err
		}
		member, err := inAnySquad(tx, userID)
		if err != nil {
			return err
		}
		if member {
			return errAlreadyInSquad()
		}
		var count int64
		if err := tx.Model(&models.SquadMember{}).Where("squad_id = ?", squadID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= squad.MaxMembers {
			return utils.NewError(utils.KindSquadFull, "squad is full")
		}
		err = tx.Create(&models.SquadMember{SquadID: squadID, UserID: userID, JoinedAt: now}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errAlreadyInSquad()
		}
		if err != nil {
			return err
		}
		if squad.LeaderID == nil {
			leader := userID
			squad.LeaderID = &leader
			return tx.Model(squad).Update("leader_id", leader).Error
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to join squad")
	}
	track(s.events, userID, "squad_joined", map[string]any{"squad_id": squadID.String()})
	if squad.LeaderID != nil && *squad.LeaderID != userID {
		s.notifyLeader(*squad.LeaderID, squadID)
	}
	return squad, nil
}

func (s *SquadService) notifyLeader(leaderID, squadID uuid.UUID) {
	if s.pusher == nil {
		return
	}
	msg := notify.Message{
		Title: "Novo membro no seu squad",
		Body:  "Alguém entrou para respirar livre com vocês.",
		Link:  notify.SquadLink(squadID),
		Data:  map[string]string{"type": "squad", "squad_id": squadID.String()},
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.pusher.SendToUser(ctx, leaderID, msg); err != nil {
			utils.Logger.Warn("squad push failed", zap.String("squad_id", squadID.String()), zap.Error(err))
		}
	}()
}

// Leave removes the caller. A departing leader is replaced by the earliest remaining member;
// an empty squad keeps no leader.
func (s *SquadService) Leave(ctx context.Context, userID, squadID uuid.UUID) (*models.Squad, error) {
	var squad *models.Squad
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		squad, err = lockSquad(tx, squadID)
		if err != nil {
			return err
		}
		res := tx.Where("squad_id = ? AND user_id = ?", squadID, userID).Delete(&models.SquadMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NotFound("you are not a member of this squad")
		}
		if squad.LeaderID == nil || *squad.LeaderID != userID {
			return nil
		}

		var remaining []models.SquadMember
		if err := tx.Where("squad_id = ?", squadID).Order("joined_at ASC").Find(&remaining).Error; err != nil {
			return err
		}
		squad.LeaderID = nextLeader(remaining)
		return tx.Model(squad).Update("leader_id", squad.LeaderID).Error
	})
	if err != nil {
		return nil, wrapStoreError(err, "failed to leave squad")
	}
	track(s.events, userID, "squad_left", map[string]any{"squad_id": squadID.String()})
	return squad, nil
}

// Get returns the squad with members and aggregate streak.
func (s *SquadService) Get(ctx context.Context, squadID uuid.UUID) (*SquadView, error) {
	db := s.db.WithContext(ctx)
	var squad models.Squad
	if err := db.Where("id = ?", squadID).First(&squad).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("squad not found")
		}
		return nil, utils.DatabaseError("failed to load squad", err)
	}

	var members []MemberView
	err := db.Table("squad_members AS m").
		Select("m.user_id, m.joined_at, COALESCE(p.display_name, '') AS display_name, COALESCE(up.current_streak, 0) AS current_streak").
		Joins("LEFT JOIN profiles p ON p.user_id = m.user_id").
		Joins("LEFT JOIN user_progress up ON up.user_id = m.user_id").
		Where("m.squad_id = ?", squadID).
		Order("m.joined_at ASC").
		Scan(&members).Error
	if err != nil {
		return nil, utils.DatabaseError("failed to load squad members", err)
	}
	return buildSquadView(squad, members), nil
}

func buildSquadView(squad models.Squad, members []MemberView) *SquadView {
	view := &SquadView{Squad: squad, Members: members}
	for i := range view.Members {
		view.Members[i].IsLeader = squad.LeaderID != nil && *squad.LeaderID == view.Members[i].UserID
		view.TotalStreak += view.Members[i].CurrentStreak
	}
	if view.Members == nil {
		view.Members = []MemberView{}
	}
	return view
}
