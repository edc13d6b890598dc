package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

// Reward is the yaml form of models.Reward.
type Reward struct {
	XP       int `yaml:"xp"`
	Coins    int `yaml:"coins"`
	Gems     int `yaml:"gems"`
	Crystals int `yaml:"crystals"`
}

func (r Reward) model() models.Reward {
	return models.Reward{XP: r.XP, Coins: r.Coins, Gems: r.Gems, Crystals: r.Crystals}
}

type Mission struct {
	Code        string `yaml:"code"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`
	Type        string `yaml:"type"`
	Target      int    `yaml:"target"`
	Reward      Reward `yaml:"reward"`
}

type ChestType struct {
	Code      string `yaml:"code"`
	Name      string `yaml:"name"`
	Rarity    string `yaml:"rarity"`
	XP        [2]int `yaml:"xp"`
	Coins     [2]int `yaml:"coins"`
	Gems      [2]int `yaml:"gems"`
	GemChance int    `yaml:"gem_chance"`
}

type ShopItem struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	Type          string `yaml:"type"`
	PriceCoins    int    `yaml:"price_coins"`
	PriceGems     int    `yaml:"price_gems"`
	DurationHours int    `yaml:"duration_hours"`
}

type Phase struct {
	Name      string `yaml:"name"`
	HealthPct int    `yaml:"health_pct"`
}

type Boss struct {
	Code      string  `yaml:"code"`
	Name      string  `yaml:"name"`
	MaxHealth int     `yaml:"max_health"`
	Phases    []Phase `yaml:"phases"`
	Reward    Reward  `yaml:"reward"`
	ChestType string  `yaml:"chest_type"`
}

// Catalog is the full set of game templates.
type Catalog struct {
	Missions   []Mission   `yaml:"missions"`
	ChestTypes []ChestType `yaml:"chest_types"`
	ShopItems  []ShopItem  `yaml:"shop_items"`
	Bosses     []Boss      `yaml:"bosses"`
}

// Parse decodes and checks a catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads and parses a catalog file.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func (c *Catalog) validate() error {
	chests := map[string]bool{}
	for _, ct := range c.ChestTypes {
		if ct.Code == "" {
			return errors.New("chest type without code")
		}
		if ct.XP[0] > ct.XP[1] || ct.Coins[0] > ct.Coins[1] || ct.Gems[0] > ct.Gems[1] {
			return fmt.Errorf("chest type %s: range min above max", ct.Code)
		}
		if ct.GemChance < 0 || ct.GemChance > 100 {
			return fmt.Errorf("chest type %s: gem_chance must be 0..100", ct.Code)
		}
		chests[ct.Code] = true
	}
	for _, m := range c.Missions {
		if m.Code == "" || m.Target <= 0 {
			return fmt.Errorf("mission %q: code and positive target required", m.Code)
		}
		if m.Type != models.MissionDaily && m.Type != models.MissionWeekly {
			return fmt.Errorf("mission %s: type must be daily or weekly", m.Code)
		}
		switch m.Kind {
		case models.MissionKindCheckin, models.MissionKindChestOpen, models.MissionKindBossVictory, models.MissionKindPurchase:
		default:
			return fmt.Errorf("mission %s: unknown kind %q", m.Code, m.Kind)
		}
	}
	for _, it := range c.ShopItems {
		if it.Code == "" || it.PriceCoins < 0 || it.PriceGems < 0 {
			return fmt.Errorf("shop item %q: code and non-negative prices required", it.Code)
		}
		switch it.Type {
		case models.ItemPowerup, models.ItemCosmetic, models.ItemStreakFreeze:
		default:
			return fmt.Errorf("shop item %s: unknown type %q", it.Code, it.Type)
		}
	}
	for _, b := range c.Bosses {
		if b.Code == "" || b.MaxHealth <= 0 {
			return fmt.Errorf("boss %q: code and positive max_health required", b.Code)
		}
		for i := 1; i < len(b.Phases); i++ {
			if b.Phases[i].HealthPct > b.Phases[i-1].HealthPct {
				return fmt.Errorf("boss %s: phases must be ordered by descending health_pct", b.Code)
			}
		}
		if b.ChestType != "" && !chests[b.ChestType] {
			return fmt.Errorf("boss %s: unknown chest_type %q", b.Code, b.ChestType)
		}
	}
	return nil
}

func upsertByCode(tx *gorm.DB, value interface{}, columns ...string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(value).Error
}

// Apply upserts every template by code and drops cached catalog reads.
func Apply(ctx context.Context, db *gorm.DB, c *Catalog) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chestIDs := map[string]uint{}
		for _, ct := range c.ChestTypes {
			row := models.ChestType{
				Code: ct.Code, Name: ct.Name, Rarity: ct.Rarity,
				MinXP: ct.XP[0], MaxXP: ct.XP[1],
				MinCoins: ct.Coins[0], MaxCoins: ct.Coins[1],
				MinGems: ct.Gems[0], MaxGems: ct.Gems[1],
				GemChance: ct.GemChance,
			}
			if err := upsertByCode(tx, &row, "name", "rarity", "min_xp", "max_xp", "min_coins", "max_coins", "min_gems", "max_gems", "gem_chance", "updated_at"); err != nil {
				return fmt.Errorf("chest type %s: %w", ct.Code, err)
			}
			var ids []uint
			if err := tx.Model(&models.ChestType{}).Where("code = ?", ct.Code).Pluck("id", &ids).Error; err != nil {
				return err
			}
			if len(ids) == 1 {
				chestIDs[ct.Code] = ids[0]
			}
		}

		for _, m := range c.Missions {
			r := m.Reward.model()
			row := models.Mission{
				Code: m.Code, Title: m.Title, Description: m.Description,
				Kind: m.Kind, Type: m.Type, TargetValue: m.Target,
				XPReward: r.XP, CoinsReward: r.Coins, GemsReward: r.Gems, Active: true,
			}
			if err := upsertByCode(tx, &row, "title", "description", "kind", "type", "target_value", "xp_reward", "coins_reward", "gems_reward", "active", "updated_at"); err != nil {
				return fmt.Errorf("mission %s: %w", m.Code, err)
			}
		}

		for _, it := range c.ShopItems {
			row := models.ShopItem{
				Code: it.Code, Name: it.Name, Description: it.Description,
				ItemType: it.Type, PriceCoins: it.PriceCoins, PriceGems: it.PriceGems, Active: true,
			}
			if it.DurationHours > 0 {
				h := it.DurationHours
				row.DurationHours = &h
			}
			if err := upsertByCode(tx, &row, "name", "description", "item_type", "price_coins", "price_gems", "duration_hours", "active", "updated_at"); err != nil {
				return fmt.Errorf("shop item %s: %w", it.Code, err)
			}
		}

		for _, b := range c.Bosses {
			phases := make([]models.BossPhase, 0, len(b.Phases))
			for _, p := range b.Phases {
				phases = append(phases, models.BossPhase{Name: p.Name, HealthPct: p.HealthPct})
			}
			row := models.Boss{
				Code: b.Code, Name: b.Name, MaxHealth: b.MaxHealth,
				Phases:  datatypes.NewJSONType(phases),
				Rewards: datatypes.NewJSONType(b.Reward.model()),
				Active:  true,
			}
			if id, ok := chestIDs[b.ChestType]; ok {
				row.ChestTypeID = &id
			}
			if err := upsertByCode(tx, &row, "name", "max_health", "phases", "rewards", "chest_type_id", "active", "updated_at"); err != nil {
				return fmt.Errorf("boss %s: %w", b.Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	utils.InvalidateByPrefix(ctx, utils.CatalogCachePrefix)
	utils.Sugar.Infof("catalog applied: %d missions, %d chest types, %d shop items, %d bosses",
		len(c.Missions), len(c.ChestTypes), len(c.ShopItems), len(c.Bosses))
	return nil
}
