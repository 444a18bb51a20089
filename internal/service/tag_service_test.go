package service

import (
	"testing"
	"time"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/testutil"
	"photoquest_backend/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTagStack(t *testing.T) (*gorm.DB, *TagService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	database.Seed(db)
	return db, NewTagService(
		repository.NewTagRepository(db),
		repository.NewAchievementRepository(db),
		repository.NewProgressionRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
	)
}

func TestTagRecheckUnlocksWhenStatsMeet(t *testing.T) {
	db, svc := newTagStack(t)
	user := &model.User{Name: "aki", Email: "aki@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&model.CompletedQuest{UserID: user.ID, QuestID: 1}).Error)

	unlocked, err := svc.Recheck(user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rookie"}, unlocked)
}

func TestTagRecheckIsAppendOnly(t *testing.T) {
	db, svc := newTagStack(t)
	user := &model.User{Name: "emi", Email: "emi@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&model.CompletedQuest{UserID: user.ID, QuestID: 1}).Error)

	_, err := svc.Recheck(user.ID)
	require.NoError(t, err)

	// 第二次什么也不新增
	unlocked, err := svc.Recheck(user.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	var tagRows, historyRows int64
	require.NoError(t, db.Model(&model.UserTag{}).Where("user_id = ?", user.ID).Count(&tagRows).Error)
	require.NoError(t, db.Model(&model.TagUnlockHistory{}).Where("user_id = ?", user.ID).Count(&historyRows).Error)
	assert.EqualValues(t, 1, tagRows)
	assert.EqualValues(t, 1, historyRows)
}

func TestTagRequirementsCombineWithAnd(t *testing.T) {
	db, svc := newTagStack(t)
	// globetrotter 需要 25 次完成且 5000 XP，只满足其一不解锁
	user := &model.User{Name: "joa", Email: "joa@example.com", Password: "x", TotalXP: 9000}
	require.NoError(t, db.Create(user).Error)
	for i := 0; i < 10; i++ {
		require.NoError(t, db.Create(&model.CompletedQuest{UserID: user.ID, QuestID: uint(i + 1)}).Error)
	}

	unlocked, err := svc.Recheck(user.ID)
	require.NoError(t, err)
	assert.NotContains(t, unlocked, "globetrotter")

	for i := 10; i < 25; i++ {
		require.NoError(t, db.Create(&model.CompletedQuest{UserID: user.ID, QuestID: uint(i + 1)}).Error)
	}
	unlocked, err = svc.Recheck(user.ID)
	require.NoError(t, err)
	assert.Contains(t, unlocked, "globetrotter")
}

func TestTagAchievementRequirements(t *testing.T) {
	db, svc := newTagStack(t)
	user := &model.User{Name: "zed", Email: "zed@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	for i := 0; i < 100; i++ {
		require.NoError(t, db.Create(&model.CompletedQuest{UserID: user.ID, QuestID: uint(i + 1)}).Error)
	}

	// legend 还要求两个成就都在手
	require.NoError(t, db.Create(&model.UserAchievement{UserID: user.ID, Code: "streak_30", EarnedAt: time.Now()}).Error)
	unlocked, err := svc.Recheck(user.ID)
	require.NoError(t, err)
	assert.NotContains(t, unlocked, "legend")

	require.NoError(t, db.Create(&model.UserAchievement{UserID: user.ID, Code: "vote_100", EarnedAt: time.Now()}).Error)
	unlocked, err = svc.Recheck(user.ID)
	require.NoError(t, err)
	assert.Contains(t, unlocked, "legend")
}

func TestTagRecheckSkipsInactiveTags(t *testing.T) {
	db, svc := newTagStack(t)
	require.NoError(t, db.Model(&model.Tag{}).Where("code = ?", "rookie").Update("is_active", false).Error)

	user := &model.User{Name: "pia", Email: "pia@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&model.CompletedQuest{UserID: user.ID, QuestID: 1}).Error)

	unlocked, err := svc.Recheck(user.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}
