package service

import (
	"testing"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/testutil"
	"photoquest_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAchievementStack(t *testing.T) (*gorm.DB, *AchievementService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	database.Seed(db)

	tags := NewTagService(
		repository.NewTagRepository(db),
		repository.NewAchievementRepository(db),
		repository.NewProgressionRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
	)
	achievements := NewAchievementService(
		repository.NewAchievementRepository(db),
		repository.NewProgressionRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
		tags, db,
	)
	return db, achievements
}

func seedCompletions(t *testing.T, db *gorm.DB, userID uint, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&model.CompletedQuest{UserID: userID, QuestID: uint(i + 1), AwardedXP: 100}).Error)
	}
}

func earnedCodes(t *testing.T, db *gorm.DB, userID uint) []string {
	t.Helper()
	var earned []model.UserAchievement
	require.NoError(t, db.Where("user_id = ?", userID).Find(&earned).Error)
	codes := make([]string, 0, len(earned))
	for _, e := range earned {
		codes = append(codes, e.Code)
	}
	return codes
}

func TestRecheckAwardsFirstQuest(t *testing.T) {
	db, svc := newAchievementStack(t)
	user := &model.User{Name: "ida", Email: "ida@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	seedCompletions(t, db, user.ID, 1)

	require.NoError(t, svc.Recheck(user.ID, EventQuestCompleted))
	assert.ElementsMatch(t, []string{"first_quest"}, earnedCodes(t, db, user.ID))

	// 成就奖励入账并重算等级
	var fresh model.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, 25, fresh.TotalXP)
	assert.Equal(t, 1, fresh.Level)
}

func TestRecheckIsIdempotent(t *testing.T) {
	db, svc := newAchievementStack(t)
	user := &model.User{Name: "bo", Email: "bo@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	seedCompletions(t, db, user.ID, 1)

	require.NoError(t, svc.Recheck(user.ID, EventQuestCompleted))
	require.NoError(t, svc.Recheck(user.ID, EventQuestCompleted))

	assert.Len(t, earnedCodes(t, db, user.ID), 1)

	// 不重复发奖励
	var fresh model.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, 25, fresh.TotalXP)
}

func TestRecheckStopsAtFirstUnmetThreshold(t *testing.T) {
	db, svc := newAchievementStack(t)
	user := &model.User{Name: "uma", Email: "uma@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	seedCompletions(t, db, user.ID, 12)

	require.NoError(t, svc.Recheck(user.ID, EventQuestCompleted))
	assert.ElementsMatch(t, []string{"first_quest", "quest_10"}, earnedCodes(t, db, user.ID))
}

func TestRecheckVoteAchievements(t *testing.T) {
	db, svc := newAchievementStack(t)
	user := &model.User{Name: "leo", Email: "leo@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&model.Submission{
		AttemptID: "a-1", QuestID: 1, UserID: user.ID,
		ModerationStatus: model.ModerationApproved, Votes: 11,
	}).Error)

	require.NoError(t, svc.Recheck(user.ID, EventVoteReceived))
	assert.ElementsMatch(t, []string{"vote_10"}, earnedCodes(t, db, user.ID))
}

func TestRecheckStreakAchievements(t *testing.T) {
	db, svc := newAchievementStack(t)
	user := &model.User{Name: "nia", Email: "nia@example.com", Password: "x", StreakCount: 7}
	require.NoError(t, db.Create(user).Error)

	require.NoError(t, svc.Recheck(user.ID, EventStreak))
	assert.ElementsMatch(t, []string{"streak_7"}, earnedCodes(t, db, user.ID))
}

func TestAwardCascadesIntoTagUnlock(t *testing.T) {
	db, svc := newAchievementStack(t)
	user := &model.User{Name: "ren", Email: "ren@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	seedCompletions(t, db, user.ID, 1)

	require.NoError(t, svc.Recheck(user.ID, EventQuestCompleted))

	// first_quest 成就落地后 rookie 标签随之解锁
	var tags []model.UserTag
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&tags).Error)
	require.Len(t, tags, 1)
	assert.Equal(t, "rookie", tags[0].TagCode)

	var history []model.TagUnlockHistory
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&history).Error)
	assert.Len(t, history, 1)
}
