package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// BeforeCreate hooks assign random ids when callers leave them empty.

func (c *Checkin) BeforeCreate(tx *gorm.DB) error       { ensureID(&c.ID); return nil }
func (a *Achievement) BeforeCreate(tx *gorm.DB) error   { ensureID(&a.ID); return nil }
func (m *UserMission) BeforeCreate(tx *gorm.DB) error   { ensureID(&m.ID); return nil }
func (c *UserChest) BeforeCreate(tx *gorm.DB) error     { ensureID(&c.ID); return nil }
func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error { ensureID(&i.ID); return nil }
func (e *BossEncounter) BeforeCreate(tx *gorm.DB) error { ensureID(&e.ID); return nil }
func (s *Squad) BeforeCreate(tx *gorm.DB) error         { ensureID(&s.ID); return nil }
func (m *SquadMember) BeforeCreate(tx *gorm.DB) error   { ensureID(&m.ID); return nil }
func (p *PushToken) BeforeCreate(tx *gorm.DB) error     { ensureID(&p.ID); return nil }
func (m *CoachMessage) BeforeCreate(tx *gorm.DB) error  { ensureID(&m.ID); return nil }
