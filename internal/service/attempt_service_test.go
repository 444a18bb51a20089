package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photoquest_backend/internal/config"
	"photoquest_backend/internal/geo"
	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/testutil"
	"photoquest_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testStack struct {
	db          *gorm.DB
	storageDir  string
	attempt     *AttemptService
	review      *ReviewService
	submission  *SubmissionService
	achievement *AchievementService
}

func newTestStack(t *testing.T, classifier VisionClassifier) *testStack {
	t.Helper()
	db := testutil.SetupTestDB(t)
	storageDir := t.TempDir()

	userRepo := repository.NewUserRepository(db)
	questRepo := repository.NewQuestRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	tagRepo := repository.NewTagRepository(db)
	moderationRepo := repository.NewModerationRepository(db)
	progressionRepo := repository.NewProgressionRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	storage := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: storageDir}}}
	moderation := NewModerationService(classifier, moderationRepo)
	eligibility := NewEligibilityService(userRepo, questRepo, attemptRepo, 3)
	progression := NewProgressionService(userRepo, progressionRepo, analyticsRepo, db, 1.0, 2.0)
	tags := NewTagService(tagRepo, achievementRepo, progressionRepo, submissionRepo, userRepo)
	achievements := NewAchievementService(achievementRepo, progressionRepo, submissionRepo, userRepo, tags, db)

	return &testStack{
		db:         db,
		storageDir: storageDir,
		attempt: NewAttemptService(eligibility, attemptRepo, questRepo, submissionRepo,
			analyticsRepo, storage, moderation, progression, achievements, db),
		review: NewReviewService(submissionRepo, attemptRepo, questRepo, userRepo,
			analyticsRepo, storage, moderation, progression, achievements),
		submission:  NewSubmissionService(submissionRepo, achievements),
		achievement: achievements,
	}
}

func (ts *testStack) seedPlayerAndQuest(t *testing.T) (*model.User, *model.Quest) {
	t.Helper()
	user := &model.User{Name: "noa", Email: "noa@example.com", Password: "x", Level: 3}
	require.NoError(t, ts.db.Create(user).Error)
	quest := &model.Quest{
		Title: "harbor at dusk", Latitude: 40.7128, Longitude: -74.0060,
		RadiusMeters: 100, MinLevel: 1, BaseXP: 100, SpeedBonus: 20, FirstTimeBonus: 10,
	}
	require.NoError(t, ts.db.Create(quest).Error)
	return user, quest
}

func questCoord(quest *model.Quest) geo.Point {
	return geo.Point{Latitude: quest.Latitude, Longitude: quest.Longitude}
}

func TestStartCreatesInProgressAttempt(t *testing.T) {
	ts := newTestStack(t, &fakeClassifier{result: cleanClassifierResult()})
	user, quest := ts.seedPlayerAndQuest(t)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, attempt.Status)
	assert.NotEmpty(t, attempt.ID)

	var analytics model.QuestAnalytics
	require.NoError(t, ts.db.Where("quest_id = ?", quest.ID).First(&analytics).Error)
	assert.Equal(t, 1, analytics.Attempts)
}

func TestStartReValidatesEligibility(t *testing.T) {
	ts := newTestStack(t, &fakeClassifier{result: cleanClassifierResult()})
	user, quest := ts.seedPlayerAndQuest(t)

	require.NoError(t, ts.db.Model(quest).Update("min_level", 50).Error)

	_, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.Error(t, err)
	assert.Equal(t, util.KindIneligible, util.KindOf(err))
	assert.Contains(t, err.Error(), ReasonLevelTooLow)
}

func TestCancelIsTerminal(t *testing.T) {
	ts := newTestStack(t, &fakeClassifier{result: cleanClassifierResult()})
	user, quest := ts.seedPlayerAndQuest(t)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)

	cancelled, err := ts.attempt.Cancel(user.ID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)

	// 再取消或提交都报已结算
	_, err = ts.attempt.Cancel(user.ID, attempt.ID)
	assert.Equal(t, util.KindAlreadySettled, util.KindOf(err))

	_, err = ts.attempt.Submit(context.Background(), user.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("fake"), "image/jpeg")
	assert.Equal(t, util.KindAlreadySettled, util.KindOf(err))
}

func TestSubmitOutsideGeofenceLeavesAttemptOpen(t *testing.T) {
	ts := newTestStack(t, &fakeClassifier{result: cleanClassifierResult()})
	user, quest := ts.seedPlayerAndQuest(t)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)

	// 约1.1公里以外
	far := geo.Point{Latitude: quest.Latitude + 0.01, Longitude: quest.Longitude}
	_, err = ts.attempt.Submit(context.Background(), user.ID, attempt.ID, far,
		goodProbe(), strings.NewReader("fake"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, util.KindOutOfRange, util.KindOf(err))

	fresh, err := ts.attempt.Get(user.ID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, fresh.Status)
}

func TestSubmitApprovedSettlesEverything(t *testing.T) {
	ts := newTestStack(t, &fakeClassifier{result: cleanClassifierResult()})
	user, quest := ts.seedPlayerAndQuest(t)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)

	result, err := ts.attempt.Submit(context.Background(), user.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, model.ModerationApproved, result.Verdict)
	assert.Equal(t, model.AttemptCompleted, result.Attempt.Status)
	assert.True(t, result.Submission.RewardSettled)
	assert.Equal(t, 130, result.AwardedXP) // 100 + 20速度 + 10首次

	var fresh model.User
	require.NoError(t, ts.db.First(&fresh, user.ID).Error)
	assert.Equal(t, 130, fresh.TotalXP)

	// 照片落盘
	stored := filepath.Join(ts.storageDir, result.Submission.ArtifactPath)
	_, statErr := os.Stat(stored)
	assert.NoError(t, statErr)

	// 审核日志追加
	var logs []model.ModerationLog
	require.NoError(t, ts.db.Where("submission_id = ?", result.Submission.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ModerationApproved, logs[0].Verdict)

	// 重复提交同一 attempt
	_, err = ts.attempt.Submit(context.Background(), user.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("again"), "image/jpeg")
	assert.Equal(t, util.KindAlreadySettled, util.KindOf(err))
}

func TestSubmitRejectedDeletesArtifactAndKeepsAttemptOpen(t *testing.T) {
	classified := cleanClassifierResult()
	classified.Categories.Adult = model.LikelihoodVeryLikely
	ts := newTestStack(t, &fakeClassifier{result: classified})
	user, quest := ts.seedPlayerAndQuest(t)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)

	_, err = ts.attempt.Submit(context.Background(), user.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("bad"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, util.KindContentRejected, util.KindOf(err))

	// attempt 未结算，可以重试
	fresh, err := ts.attempt.Get(user.ID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, fresh.Status)

	// 照片已删除，提交记录保留用于审计
	var submission model.Submission
	require.NoError(t, ts.db.Where("attempt_id = ?", attempt.ID).First(&submission).Error)
	assert.Equal(t, model.ModerationRejected, submission.ModerationStatus)
	_, statErr := os.Stat(filepath.Join(ts.storageDir, submission.ArtifactPath))
	assert.True(t, os.IsNotExist(statErr))

	// 无XP入账
	var freshUser model.User
	require.NoError(t, ts.db.First(&freshUser, user.ID).Error)
	assert.Zero(t, freshUser.TotalXP)
}

func TestSubmitPendingDefersRewardUntilReview(t *testing.T) {
	classified := cleanClassifierResult()
	classified.Categories.Racy = model.LikelihoodPossible
	ts := newTestStack(t, &fakeClassifier{result: classified})
	user, quest := ts.seedPlayerAndQuest(t)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)

	result, err := ts.attempt.Submit(context.Background(), user.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("maybe"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, result.Pending)
	assert.Equal(t, model.AttemptCompleted, result.Attempt.Status)
	assert.False(t, result.Submission.RewardSettled)

	var freshUser model.User
	require.NoError(t, ts.db.First(&freshUser, user.ID).Error)
	assert.Zero(t, freshUser.TotalXP, "reward must wait for the moderator")

	// 审核员放行后补发奖励
	moderator := &model.User{Name: "mod", Email: "mod@example.com", Password: "x", Role: model.Moderator}
	require.NoError(t, ts.db.Create(moderator).Error)

	resolved, err := ts.review.Resolve(context.Background(), moderator.ID, result.Submission.ID, true, "looks fine")
	require.NoError(t, err)
	assert.Equal(t, model.ModerationApproved, resolved.ModerationStatus)
	assert.True(t, resolved.RewardSettled)

	require.NoError(t, ts.db.First(&freshUser, user.ID).Error)
	assert.Equal(t, 130, freshUser.TotalXP)

	// 再次裁决报冲突
	_, err = ts.review.Resolve(context.Background(), moderator.ID, result.Submission.ID, false, "")
	assert.Equal(t, util.KindAlreadySettled, util.KindOf(err))
}

func TestResolveRejectSettlesWithZeroReward(t *testing.T) {
	classified := cleanClassifierResult()
	classified.Categories.Racy = model.LikelihoodPossible
	ts := newTestStack(t, &fakeClassifier{result: classified})
	user, quest := ts.seedPlayerAndQuest(t)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)
	result, err := ts.attempt.Submit(context.Background(), user.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("maybe"), "image/jpeg")
	require.NoError(t, err)

	moderator := &model.User{Name: "mod", Email: "mod2@example.com", Password: "x", Role: model.Moderator}
	require.NoError(t, ts.db.Create(moderator).Error)

	resolved, err := ts.review.Resolve(context.Background(), moderator.ID, result.Submission.ID, false, "not the harbor")
	require.NoError(t, err)
	assert.Equal(t, model.ModerationRejected, resolved.ModerationStatus)

	_, statErr := os.Stat(filepath.Join(ts.storageDir, resolved.ArtifactPath))
	assert.True(t, os.IsNotExist(statErr))

	var freshUser model.User
	require.NoError(t, ts.db.First(&freshUser, user.ID).Error)
	assert.Zero(t, freshUser.TotalXP)
}

// 钩子在分类期间触发，模拟并发赢家先一步结算 attempt
type hookedClassifier struct {
	result *ClassifierResult
	hook   func()
}

func (h *hookedClassifier) Classify(ctx context.Context, artifactURL string) (*ClassifierResult, error) {
	if h.hook != nil {
		h.hook()
	}
	return h.result, nil
}

func TestSubmitLosingSettlementRaceCleansUpArtifact(t *testing.T) {
	classifier := &hookedClassifier{result: cleanClassifierResult()}
	ts := newTestStack(t, classifier)
	user, quest := ts.seedPlayerAndQuest(t)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)

	// 审核还在跑的时候另一条提交已经赢下结算
	classifier.hook = func() {
		require.NoError(t, ts.db.Model(&model.QuestAttempt{}).
			Where("id = ?", attempt.ID).
			Update("status", model.AttemptCompleted).Error)
	}

	_, err = ts.attempt.Submit(context.Background(), user.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("late"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, util.KindAlreadySettled, util.KindOf(err))

	// 输家的照片不能留成无主孤儿
	orphan := filepath.Join(ts.storageDir, fmt.Sprintf("submissions/%d/%s.jpg", user.ID, attempt.ID))
	_, statErr := os.Stat(orphan)
	assert.True(t, os.IsNotExist(statErr))

	// 提交行也随事务回滚
	var count int64
	require.NoError(t, ts.db.Model(&model.Submission{}).Where("attempt_id = ?", attempt.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitOtherUsersAttemptIsHidden(t *testing.T) {
	ts := newTestStack(t, &fakeClassifier{result: cleanClassifierResult()})
	user, quest := ts.seedPlayerAndQuest(t)
	stranger := &model.User{Name: "sam", Email: "sam@example.com", Password: "x", Level: 3}
	require.NoError(t, ts.db.Create(stranger).Error)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)

	_, err = ts.attempt.Submit(context.Background(), stranger.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("x"), "image/jpeg")
	assert.Equal(t, util.KindNotFound, util.KindOf(err))
}

func TestVoteFlow(t *testing.T) {
	ts := newTestStack(t, &fakeClassifier{result: cleanClassifierResult()})
	user, quest := ts.seedPlayerAndQuest(t)
	voter := &model.User{Name: "rio", Email: "rio@example.com", Password: "x", Level: 3}
	require.NoError(t, ts.db.Create(voter).Error)

	attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.NoError(t, err)
	result, err := ts.attempt.Submit(context.Background(), user.ID, attempt.ID, questCoord(quest),
		goodProbe(), strings.NewReader("ok"), "image/jpeg")
	require.NoError(t, err)

	// 自己不能点赞
	_, err = ts.submission.Vote(user.ID, result.Submission.ID)
	assert.Equal(t, util.KindIneligible, util.KindOf(err))

	voted, err := ts.submission.Vote(voter.ID, result.Submission.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.Votes)

	// 重复点赞
	_, err = ts.submission.Vote(voter.ID, result.Submission.ID)
	assert.Equal(t, util.KindPersistenceConflict, util.KindOf(err))
}

func TestDailyQuotaBlocksFourthStart(t *testing.T) {
	ts := newTestStack(t, &fakeClassifier{result: cleanClassifierResult()})
	user, _ := ts.seedPlayerAndQuest(t)

	for i := 0; i < 3; i++ {
		quest := &model.Quest{Title: "q", Latitude: 1, Longitude: 1, RadiusMeters: 100}
		require.NoError(t, ts.db.Create(quest).Error)
		attempt, err := ts.attempt.Start(user.ID, quest.ID, nil)
		require.NoError(t, err)
		_, err = ts.attempt.Cancel(user.ID, attempt.ID)
		require.NoError(t, err)
	}

	quest := &model.Quest{Title: "fourth", Latitude: 1, Longitude: 1, RadiusMeters: 100}
	require.NoError(t, ts.db.Create(quest).Error)
	_, err := ts.attempt.Start(user.ID, quest.ID, nil)
	require.Error(t, err)
	assert.Equal(t, util.KindIneligible, util.KindOf(err))
	assert.Contains(t, err.Error(), ReasonDailyQuotaReached)
}
