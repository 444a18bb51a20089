package service

import (
	"testing"
	"time"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/testutil"
	"photoquest_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestEligibility(db *gorm.DB) *EligibilityService {
	return NewEligibilityService(
		repository.NewUserRepository(db),
		repository.NewQuestRepository(db),
		repository.NewAttemptRepository(db),
		3,
	)
}

func seedUserAndQuest(t *testing.T, db *gorm.DB, level int, quest *model.Quest) (*model.User, *model.Quest) {
	t.Helper()
	user := &model.User{Name: "mei", Email: "mei@example.com", Password: "x", Level: level}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(quest).Error)
	return user, quest
}

func TestCheckPassesWhenAllRulesHold(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestEligibility(db)
	user, quest := seedUserAndQuest(t, db, 5, &model.Quest{Title: "q", Latitude: 1, Longitude: 1, MinLevel: 3})

	result, _, _, err := svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.True(t, result.CanAttempt)
	assert.Empty(t, result.Reason)
}

func TestCheckLevelTooLow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestEligibility(db)
	user, quest := seedUserAndQuest(t, db, 2, &model.Quest{Title: "q", Latitude: 1, Longitude: 1, MinLevel: 5})

	result, _, _, err := svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.False(t, result.CanAttempt)
	assert.Equal(t, ReasonLevelTooLow, result.Reason)
}

func TestCheckAttemptsExhausted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestEligibility(db)
	user, quest := seedUserAndQuest(t, db, 5, &model.Quest{Title: "q", Latitude: 1, Longitude: 1, MaxAttempts: 2})

	// 历史尝试计入上限，不论结果
	old := time.Now().Add(-48 * time.Hour)
	for _, status := range []model.AttemptStatus{model.AttemptCancelled, model.AttemptCompleted} {
		require.NoError(t, db.Create(&model.QuestAttempt{
			QuestID: quest.ID, UserID: user.ID, Status: status, StartedAt: old,
		}).Error)
	}

	result, _, _, err := svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonAttemptsExhausted, result.Reason)
}

func TestCheckOutsideAvailabilityWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestEligibility(db)
	from, to := 8.0, 17.0
	user, quest := seedUserAndQuest(t, db, 5, &model.Quest{Title: "q", Latitude: 1, Longitude: 1, AvailableFrom: &from, AvailableTo: &to})

	svc.Now = func() time.Time { return time.Date(2026, 8, 20, 22, 30, 0, 0, time.UTC) }
	result, _, _, err := svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonOutsideWindow, result.Reason)

	// 边界取含
	svc.Now = func() time.Time { return time.Date(2026, 8, 20, 17, 0, 0, 0, time.UTC) }
	result, _, _, err = svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.True(t, result.CanAttempt)
}

func TestCheckWindowWrapsMidnight(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestEligibility(db)
	from, to := 22.0, 4.0
	user, quest := seedUserAndQuest(t, db, 5, &model.Quest{Title: "night", Latitude: 1, Longitude: 1, AvailableFrom: &from, AvailableTo: &to})

	svc.Now = func() time.Time { return time.Date(2026, 8, 20, 23, 0, 0, 0, time.UTC) }
	result, _, _, err := svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.True(t, result.CanAttempt)

	svc.Now = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }
	result, _, _, err = svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonOutsideWindow, result.Reason)
}

func TestCheckDailyQuotaReached(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestEligibility(db)
	user, quest := seedUserAndQuest(t, db, 5, &model.Quest{Title: "q", Latitude: 1, Longitude: 1})

	now := time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	// 今天已经开了3个，不论哪个任务
	other := &model.Quest{Title: "other", Latitude: 2, Longitude: 2}
	require.NoError(t, db.Create(other).Error)
	for i := 0; i < 3; i++ {
		questID := quest.ID
		if i == 2 {
			questID = other.ID
		}
		require.NoError(t, db.Create(&model.QuestAttempt{
			QuestID: questID, UserID: user.ID, Status: model.AttemptInProgress,
			StartedAt: now.Add(-time.Duration(i+1) * time.Hour),
		}).Error)
	}

	result, _, _, err := svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonDailyQuotaReached, result.Reason)

	// 昨天的不计入
	require.NoError(t, db.Where("1 = 1").Delete(&model.QuestAttempt{}).Error)
	require.NoError(t, db.Create(&model.QuestAttempt{
		QuestID: quest.ID, UserID: user.ID, Status: model.AttemptCompleted,
		StartedAt: now.Add(-30 * time.Hour),
	}).Error)

	result, _, _, err = svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.True(t, result.CanAttempt)
}

func TestCheckRuleOrdering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestEligibility(db)
	// 等级和次数同时不满足时，等级原因优先
	user, quest := seedUserAndQuest(t, db, 1, &model.Quest{Title: "q", Latitude: 1, Longitude: 1, MinLevel: 10, MaxAttempts: 1})
	require.NoError(t, db.Create(&model.QuestAttempt{
		QuestID: quest.ID, UserID: user.ID, Status: model.AttemptCompleted, StartedAt: time.Now().Add(-48 * time.Hour),
	}).Error)

	result, _, _, err := svc.Check(user.ID, quest.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonLevelTooLow, result.Reason)
}

func TestCheckUnknownTargets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newTestEligibility(db)

	_, _, _, err := svc.Check(999, 1)
	assert.Equal(t, util.KindNotFound, util.KindOf(err))

	user := &model.User{Name: "solo", Email: "solo@example.com", Password: "x", Level: 1}
	require.NoError(t, db.Create(user).Error)
	_, _, _, err = svc.Check(user.ID, 999)
	assert.Equal(t, util.KindNotFound, util.KindOf(err))

	// 已下架任务等同不存在
	quest := &model.Quest{Title: "gone", Latitude: 1, Longitude: 1, IsArchived: true}
	require.NoError(t, db.Create(quest).Error)
	_, _, _, err = svc.Check(user.ID, quest.ID)
	assert.Equal(t, util.KindNotFound, util.KindOf(err))
}
