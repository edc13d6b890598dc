package models

import (
	"time"

	"github.com/google/uuid"
)

// Squad is a bounded social group with a single leader.
type Squad struct {
	ID          uuid.UUID     `gorm:"type:char(36);primaryKey" json:"id"`
	Name        string        `gorm:"size:200;not null" json:"name"`
	Description string        `gorm:"size:800" json:"description"`
	LeaderID    *uuid.UUID    `gorm:"type:char(36)" json:"leader_id"`
	MaxMembers  int           `gorm:"not null" json:"max_members"`
	Members     []SquadMember `gorm:"foreignKey:SquadID" json:"members,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// SquadMember links a user to their only squad.
type SquadMember struct {
	ID       uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	SquadID  uuid.UUID `gorm:"type:char(36);index;not null" json:"squad_id"`
	UserID   uuid.UUID `gorm:"type:char(36);uniqueIndex;not null" json:"user_id"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}
