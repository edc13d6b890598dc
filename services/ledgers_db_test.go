package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

// newTestDB opens a throwaway SQLite database with the ledger tables.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledgers.db")), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.UserProgress{},
		&models.Checkin{},
		&models.Achievement{},
		&models.Mission{},
		&models.UserMission{},
		&models.ChestType{},
		&models.UserChest{},
		&models.ShopItem{},
		&models.InventoryItem{},
		&models.Boss{},
		&models.BossEncounter{},
		&models.Squad{},
		&models.SquadMember{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, p models.UserProgress) uuid.UUID {
	t.Helper()
	if p.UserID == uuid.Nil {
		p.UserID = uuid.New()
	}
	p.Level = LevelForXP(p.XP)
	p.League = LeagueForLevel(p.Level)
	require.NoError(t, db.Create(&models.Profile{UserID: p.UserID}).Error)
	require.NoError(t, db.Create(&p).Error)
	return p.UserID
}

func loadProgress(t *testing.T, db *gorm.DB, userID uuid.UUID) models.UserProgress {
	t.Helper()
	var p models.UserProgress
	require.NoError(t, db.Where("user_id = ?", userID).First(&p).Error)
	return p
}

func userMission(t *testing.T, db *gorm.DB, userID uuid.UUID, missionID uint) models.UserMission {
	t.Helper()
	var um models.UserMission
	require.NoError(t, db.Where("user_id = ? AND mission_id = ?", userID, missionID).First(&um).Error)
	return um
}

func TestOpenChestCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, models.UserProgress{})
	ct := models.ChestType{Code: "wooden", Name: "Baú de Madeira", Rarity: "common", MinXP: 10, MaxXP: 10, MinCoins: 5, MaxCoins: 5}
	require.NoError(t, db.Create(&ct).Error)
	mission := models.Mission{Code: "open_one", Title: "Abra um baú", Kind: models.MissionKindChestOpen, Type: models.MissionDaily, TargetValue: 1}
	require.NoError(t, db.Create(&mission).Error)
	chest, err := grantChest(db, user, ct.ID, "test")
	require.NoError(t, err)
	svc := NewChestService(db, time.UTC, nil)

	first, err := svc.Open(ctx, user, chest.ID)
	require.NoError(t, err)
	assert.True(t, first.Opened)
	assert.Equal(t, models.Reward{XP: 10, Coins: 5}, first.Reward)

	second, err := svc.Open(ctx, user, chest.ID)
	require.NoError(t, err)
	assert.False(t, second.Opened)
	assert.True(t, second.Chest.Opened)

	p := loadProgress(t, db, user)
	assert.Equal(t, 5, p.RespiCoins)
	assert.Equal(t, 10, p.XP)
	um := userMission(t, db, user, mission.ID)
	assert.Equal(t, 1, um.CurrentProgress)
	assert.True(t, um.Completed)

	_, err = svc.Open(ctx, uuid.New(), chest.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound), "another user's chest is invisible")
}

func TestClaimMissionPaysOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, models.UserProgress{RespiCoins: 5})
	daily := models.Mission{Code: "daily_checkin", Title: "Check-in do dia", Kind: models.MissionKindCheckin, Type: models.MissionDaily, TargetValue: 1, XPReward: 5, CoinsReward: 12}
	weekly := models.Mission{Code: "weekly_checkin", Title: "Três check-ins", Kind: models.MissionKindCheckin, Type: models.MissionWeekly, TargetValue: 3, CoinsReward: 50}
	require.NoError(t, db.Create(&daily).Error)
	require.NoError(t, db.Create(&weekly).Error)
	require.NoError(t, advanceMissions(db, user, models.MissionKindCheckin, 1, utils.DayOf(time.Now(), time.UTC)))
	svc := NewMissionService(db, time.UTC, nil)

	done := userMission(t, db, user, daily.ID)
	first, err := svc.Claim(ctx, user, done.ID)
	require.NoError(t, err)
	assert.True(t, first.Claimed)
	assert.Equal(t, models.Reward{XP: 5, Coins: 12}, first.Reward)

	second, err := svc.Claim(ctx, user, done.ID)
	require.NoError(t, err)
	assert.False(t, second.Claimed)

	pending := userMission(t, db, user, weekly.ID)
	assert.Equal(t, 1, pending.CurrentProgress)
	early, err := svc.Claim(ctx, user, pending.ID)
	require.NoError(t, err)
	assert.False(t, early.Claimed, "an incomplete mission pays nothing")

	assert.Equal(t, 17, loadProgress(t, db, user).RespiCoins)
	_, err = svc.Claim(ctx, uuid.New(), done.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestUnlockAchievementCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, models.UserProgress{})
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	unlock := func() bool {
		var created bool
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			var err error
			created, err = UnlockAchievement(tx, user, firstBossVictory, at)
			return err
		}))
		return created
	}

	assert.True(t, unlock())
	assert.False(t, unlock())

	p := loadProgress(t, db, user)
	assert.Equal(t, 20, p.XP)
	assert.Equal(t, 10, p.RespiCoins)
	list, err := NewAchievementService(db).List(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, firstBossVictory.Rewards, list[0].Rewards.Data())
}

func TestLeaderLeavingHandsOverToEarliestMember(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewSquadService(db, 10, nil, nil)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	svc.now = func() time.Time { return base }
	squad, err := svc.Create(ctx, a, CreateSquadInput{Name: "Pulmões de Aço"})
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(time.Minute) }
	_, err = svc.Join(ctx, b, squad.ID)
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = svc.Join(ctx, c, squad.ID)
	require.NoError(t, err)

	left, err := svc.Leave(ctx, a, squad.ID)
	require.NoError(t, err)
	require.NotNil(t, left.LeaderID)
	assert.Equal(t, b, *left.LeaderID)

	var stored models.Squad
	require.NoError(t, db.Where("id = ?", squad.ID).First(&stored).Error)
	require.NotNil(t, stored.LeaderID)
	assert.Equal(t, b, *stored.LeaderID)
	var members int64
	require.NoError(t, db.Model(&models.SquadMember{}).Where("squad_id = ?", squad.ID).Count(&members).Error)
	assert.Equal(t, int64(2), members)

	_, err = svc.Join(ctx, b, squad.ID)
	assert.True(t, utils.IsKind(err, utils.KindAlreadyInSquad))

	_, err = svc.Leave(ctx, c, squad.ID)
	require.NoError(t, err)
	last, err := svc.Leave(ctx, b, squad.ID)
	require.NoError(t, err)
	assert.Nil(t, last.LeaderID, "an empty squad has no leader")

	_, err = svc.Leave(ctx, b, squad.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestJoinFullSquad(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewSquadService(db, 2, nil, nil)

	squad, err := svc.Create(ctx, uuid.New(), CreateSquadInput{Name: "Dupla"})
	require.NoError(t, err)
	_, err = svc.Join(ctx, uuid.New(), squad.ID)
	require.NoError(t, err)

	_, err = svc.Join(ctx, uuid.New(), squad.ID)
	assert.True(t, utils.IsKind(err, utils.KindSquadFull))
	_, err = svc.Join(ctx, uuid.New(), uuid.New())
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestBossVictory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, models.UserProgress{CurrentStreak: 5, HealthCrystals: 3})
	ct := models.ChestType{Code: "boss_chest", Name: "Baú do Chefe", Rarity: "epic", MinXP: 1, MaxXP: 1, MinCoins: 1, MaxCoins: 1}
	require.NoError(t, db.Create(&ct).Error)
	boss := models.Boss{
		Code:      "nicotina",
		Name:      "Nicotina",
		MaxHealth: 100,
		Phases: datatypes.NewJSONType([]models.BossPhase{
			{Name: "Fúria", HealthPct: 100},
			{Name: "Desespero", HealthPct: 50},
			{Name: "Derrota", HealthPct: 0},
		}),
		Rewards:     datatypes.NewJSONType(models.Reward{XP: 40, Coins: 30}),
		ChestTypeID: &ct.ID,
	}
	require.NoError(t, db.Create(&boss).Error)
	mission := models.Mission{Code: "beat_boss", Title: "Derrote um chefe", Kind: models.MissionKindBossVictory, Type: models.MissionWeekly, TargetValue: 1}
	require.NoError(t, db.Create(&mission).Error)
	svc := NewBossService(db, DamageConfig{Base: 50, Streak: 5, Crystal: 10}, time.UTC, nil)

	res, err := svc.Fight(ctx, user, boss.ID, FightInput{Crystals: 3})
	require.NoError(t, err)
	assert.True(t, res.Encounter.Victory)
	assert.Equal(t, 100, res.Encounter.DamageDealt)
	assert.Equal(t, 0, res.Remaining)
	require.NotNil(t, res.Phase)
	assert.Equal(t, "Derrota", res.Phase.Name)
	require.NotNil(t, res.Chest)
	assert.Equal(t, ct.ID, res.Chest.ChestTypeID)

	p := loadProgress(t, db, user)
	assert.Equal(t, 0, p.HealthCrystals)
	assert.Equal(t, 60, p.XP, "boss reward plus first victory achievement")
	assert.Equal(t, 40, p.RespiCoins)
	assert.True(t, userMission(t, db, user, mission.ID).Completed)

	_, err = svc.Fight(ctx, user, boss.ID, FightInput{})
	assert.True(t, utils.IsKind(err, utils.KindConflict), "one encounter per boss per day")
	assert.Equal(t, p.XP, loadProgress(t, db, user).XP)
}

func TestBossFightWithoutEnoughCrystals(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, models.UserProgress{HealthCrystals: 1})
	boss := models.Boss{Code: "fumaca", Name: "Fumaça", MaxHealth: 1000}
	require.NoError(t, db.Create(&boss).Error)
	svc := NewBossService(db, DamageConfig{Base: 10}, time.UTC, nil)

	_, err := svc.Fight(context.Background(), user, boss.ID, FightInput{Crystals: 2})
	assert.True(t, utils.IsKind(err, utils.KindInsufficientFunds))

	res, err := svc.Fight(context.Background(), user, boss.ID, FightInput{})
	require.NoError(t, err)
	assert.False(t, res.Encounter.Victory)
	assert.Equal(t, 990, res.Remaining)
	assert.Nil(t, res.Chest)
}

func TestGormPurchase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, models.UserProgress{RespiCoins: 30, Gems: 2})
	freeze := models.ShopItem{Code: "freeze", Name: "Congelar sequência", ItemType: models.ItemStreakFreeze, PriceCoins: 20, PriceGems: 1}
	pricey := models.ShopItem{Code: "aura", Name: "Aura Dourada", ItemType: models.ItemCosmetic, PriceCoins: 50}
	require.NoError(t, db.Create(&freeze).Error)
	require.NoError(t, db.Create(&pricey).Error)
	svc := NewShopService(NewGormShopStore(db), time.UTC, nil)

	_, err := svc.Purchase(ctx, user, pricey.ID)
	assert.True(t, utils.IsKind(err, utils.KindInsufficientFunds))
	p := loadProgress(t, db, user)
	assert.Equal(t, 30, p.RespiCoins)
	assert.Equal(t, 2, p.Gems)

	bought, err := svc.Purchase(ctx, user, freeze.ID)
	require.NoError(t, err)
	assert.Equal(t, freeze.ID, bought.ShopItemID)
	p = loadProgress(t, db, user)
	assert.Equal(t, 10, p.RespiCoins)
	assert.Equal(t, 1, p.Gems)
	var profile models.Profile
	require.NoError(t, db.Where("user_id = ?", user).First(&profile).Error)
	assert.Equal(t, 1, profile.StreakFreezes)

	inv, err := svc.Inventory(ctx, user)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "freeze", inv[0].ShopItem.Code)
}

func TestGormCheckinSettlesOncePerDay(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := seedUser(t, db, models.UserProgress{})
	svc := NewCheckinService(NewGormSettlementStore(db), CheckinConfig{Coins: 10, XP: 5, Location: time.UTC}, nil, nil)

	res, err := svc.Submit(ctx, user, CheckinInput{Mood: models.MoodGood})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)

	_, err = svc.Submit(ctx, user, CheckinInput{Mood: models.MoodBad})
	assert.True(t, utils.IsKind(err, utils.KindAlreadyCheckedIn))

	var n int64
	require.NoError(t, db.Model(&models.Checkin{}).Where("user_id = ?", user).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	p := loadProgress(t, db, user)
	assert.Equal(t, 10, p.RespiCoins)
	assert.Equal(t, 1, p.CurrentStreak)
}
