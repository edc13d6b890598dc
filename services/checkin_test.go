package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/notify"
	"github.com/respiralivre/api/utils"
)

var checkinNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newCheckinFixture(t *testing.T, p models.UserProgress) (*CheckinService, *memStore, *recordingSink) {
	t.Helper()
	store := newMemStore()
	store.state.progress[p.UserID] = p
	sink := &recordingSink{}
	svc := NewCheckinService(store, CheckinConfig{Coins: 10, XP: 5}, sink, nil)
	svc.now = func() time.Time { return checkinNow }
	return svc, store, sink
}

func TestNextStreak(t *testing.T) {
	today := day(2026, 3, 10)

	next, lost := nextStreak(4, ptrTime(day(2026, 3, 9)), today)
	assert.Equal(t, 5, next)
	assert.Zero(t, lost)

	next, lost = nextStreak(4, ptrTime(day(2026, 3, 7)), today)
	assert.Equal(t, 1, next)
	assert.Equal(t, 4, lost)

	next, lost = nextStreak(0, nil, today)
	assert.Equal(t, 1, next)
	assert.Zero(t, lost)
}

func TestSubmitReachesSevenDayMilestone(t *testing.T) {
	userID := uuid.New()
	svc, store, sink := newCheckinFixture(t, models.UserProgress{
		UserID:          userID,
		CurrentStreak:   6,
		LongestStreak:   6,
		LastCheckinDate: ptrTime(day(2026, 3, 9)),
		Level:           1,
		League:          "bronze",
	})

	res, err := svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodGood, Notes: "sem cigarro hoje"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 7, res.Streak)
	assert.Equal(t, 10, res.CoinsEarned)
	assert.Equal(t, 5, res.XPEarned)
	require.NotNil(t, res.Achievement)
	assert.Equal(t, "Uma Semana Livre", res.Achievement.Title)

	st := store.snapshot()
	p := st.progress[userID]
	assert.Equal(t, 7, p.CurrentStreak)
	assert.Equal(t, 7, p.LongestStreak)
	assert.Equal(t, 10+25, p.RespiCoins)
	assert.Equal(t, 5+50, p.XP)
	require.NotNil(t, p.LastCheckinDate)
	assert.True(t, utils.SameDay(day(2026, 3, 10), *p.LastCheckinDate))
	require.Len(t, st.checkins, 1)
	assert.Equal(t, 7, st.checkins[0].StreakAfter)
	assert.Equal(t, "sem cigarro hoje", st.checkins[0].Notes)
	assert.Len(t, st.achievements, 1)
	assert.Equal(t, 1, st.missionHits[models.MissionKindCheckin])

	assert.Len(t, sink.named("checkin_settled"), 1)
	assert.Len(t, sink.named("achievement_unlocked"), 1)
	assert.Empty(t, sink.named("streak_lost"))
}

func TestSubmitTwiceSameDay(t *testing.T) {
	userID := uuid.New()
	svc, store, _ := newCheckinFixture(t, models.UserProgress{UserID: userID, Level: 1, League: "bronze"})

	_, err := svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodNeutral})
	require.NoError(t, err)
	before := store.snapshot()

	_, err = svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodBad})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAlreadyCheckedIn))

	after := store.snapshot()
	assert.Equal(t, before.progress[userID], after.progress[userID])
	assert.Len(t, after.checkins, 1)
}

func TestSubmitDuplicateRowWithoutLastDate(t *testing.T) {
	userID := uuid.New()
	svc, store, _ := newCheckinFixture(t, models.UserProgress{UserID: userID, Level: 1, League: "bronze"})
	store.state.checkins = append(store.state.checkins, models.Checkin{UserID: userID, CheckinDate: day(2026, 3, 10), Mood: models.MoodGood})

	_, err := svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodGood})
	assert.True(t, utils.IsKind(err, utils.KindAlreadyCheckedIn))
	assert.Zero(t, store.snapshot().progress[userID].RespiCoins)
}

func TestSubmitAfterGapResetsStreak(t *testing.T) {
	userID := uuid.New()
	svc, store, sink := newCheckinFixture(t, models.UserProgress{
		UserID:          userID,
		CurrentStreak:   12,
		LongestStreak:   20,
		LastCheckinDate: ptrTime(day(2026, 3, 7)),
		Level:           1,
		League:          "bronze",
	})

	res, err := svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodBad})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.Nil(t, res.Achievement)

	p := store.snapshot().progress[userID]
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 20, p.LongestStreak)

	lost := sink.named("streak_lost")
	require.Len(t, lost, 1)
	assert.Equal(t, 12, lost[0].Properties["previous_streak"])
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	userID := uuid.New()
	svc, store, _ := newCheckinFixture(t, models.UserProgress{UserID: userID, Level: 1, League: "bronze"})

	cases := []CheckinInput{
		{Mood: "great"},
		{Mood: ""},
		{Mood: models.MoodGood, Notes: string(make([]byte, 501))},
	}
	for _, in := range cases {
		_, err := svc.Submit(context.Background(), userID, in)
		assert.True(t, utils.IsKind(err, utils.KindInvalidInput))
	}
	assert.Empty(t, store.snapshot().checkins)
}

func TestSubmitWithoutProgress(t *testing.T) {
	svc, _, _ := newCheckinFixture(t, models.UserProgress{UserID: uuid.New()})

	_, err := svc.Submit(context.Background(), uuid.New(), CheckinInput{Mood: models.MoodGood})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestSubmitAchievementCreditedOnce(t *testing.T) {
	userID := uuid.New()
	svc, store, _ := newCheckinFixture(t, models.UserProgress{
		UserID:          userID,
		CurrentStreak:   6,
		LastCheckinDate: ptrTime(day(2026, 3, 9)),
		Level:           1,
		League:          "bronze",
	})
	def, _ := MilestoneFor(7)
	store.state.achievements = append(store.state.achievements, *def.record(userID, checkinNow.AddDate(0, -1, 0)))

	res, err := svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodGood})
	require.NoError(t, err)
	assert.Nil(t, res.Achievement)

	st := store.snapshot()
	assert.Equal(t, 10, st.progress[userID].RespiCoins)
	assert.Len(t, st.achievements, 1)
}

func TestSubmitPushesUnlockedAchievement(t *testing.T) {
	userID := uuid.New()
	svc, _, _ := newCheckinFixture(t, models.UserProgress{
		UserID:          userID,
		CurrentStreak:   29,
		LastCheckinDate: ptrTime(day(2026, 3, 9)),
		Level:           1,
		League:          "bronze",
	})
	pusher := &chanPusher{sent: make(chan notify.Message, 1)}
	svc.pusher = pusher

	res, err := svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodGood})
	require.NoError(t, err)
	require.NotNil(t, res.Achievement)

	select {
	case msg := <-pusher.sent:
		assert.Equal(t, "Um Mês Livre", msg.Body)
		assert.Equal(t, notify.LinkProfile, msg.Link)
	case <-time.After(2 * time.Second):
		t.Fatal("achievement push not sent")
	}
}

func TestStatusAndHistory(t *testing.T) {
	userID := uuid.New()
	svc, store, _ := newCheckinFixture(t, models.UserProgress{UserID: userID, Level: 1, League: "bronze"})

	status, err := svc.Status(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, status.CheckedInToday)

	_, err = svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodGood})
	require.NoError(t, err)
	store.state.checkins = append(store.state.checkins, models.Checkin{UserID: userID, CheckinDate: day(2026, 3, 1)})

	status, err = svc.Status(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, status.CheckedInToday)
	assert.Equal(t, 1, status.CurrentStreak)

	history, err := svc.History(context.Background(), userID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].CheckinDate.After(history[1].CheckinDate))
}

func TestUseStreakFreeze(t *testing.T) {
	userID := uuid.New()
	svc, store, _ := newCheckinFixture(t, models.UserProgress{
		UserID:          userID,
		CurrentStreak:   9,
		LastCheckinDate: ptrTime(day(2026, 3, 8)),
		Level:           1,
		League:          "bronze",
	})

	_, err := svc.UseStreakFreeze(context.Background(), userID)
	assert.True(t, utils.IsKind(err, utils.KindInsufficientFunds))

	store.state.profiles[userID] = models.Profile{UserID: userID, StreakFreezes: 2}
	p, err := svc.UseStreakFreeze(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, utils.SameDay(day(2026, 3, 9), *p.LastCheckinDate))
	assert.Equal(t, 1, store.snapshot().profiles[userID].StreakFreezes)

	res, err := svc.Submit(context.Background(), userID, CheckinInput{Mood: models.MoodGood})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Streak)
}

func TestUseStreakFreezeNeedsOneMissedDay(t *testing.T) {
	userID := uuid.New()
	svc, store, _ := newCheckinFixture(t, models.UserProgress{
		UserID:          userID,
		CurrentStreak:   9,
		LastCheckinDate: ptrTime(day(2026, 3, 9)),
		Level:           1,
		League:          "bronze",
	})
	store.state.profiles[userID] = models.Profile{UserID: userID, StreakFreezes: 1}

	_, err := svc.UseStreakFreeze(context.Background(), userID)
	assert.True(t, utils.IsKind(err, utils.KindInvalidInput))
	assert.Equal(t, 1, store.snapshot().profiles[userID].StreakFreezes)
}
