package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"photoquest_backend/internal/geo"
	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/util"
	"photoquest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmitResult 提交结算结果
type SubmitResult struct {
	Attempt    *model.QuestAttempt     `json:"attempt"`
	Submission *model.Submission       `json:"submission"`
	Verdict    model.ModerationStatus  `json:"verdict"`
	Result     *model.ModerationResult `json:"moderationResult,omitempty"`
	AwardedXP  int                     `json:"awardedXp"`
	Pending    bool                    `json:"pending"`
}

// AttemptService owns the attempt lifecycle: in-progress is the only live
// state, completed and cancelled are terminal and never transition again.
type AttemptService struct {
	Eligibility    *EligibilityService
	AttemptRepo    *repository.AttemptRepository
	QuestRepo      *repository.QuestRepository
	SubmissionRepo *repository.SubmissionRepository
	AnalyticsRepo  *repository.AnalyticsRepository
	Storage        *StorageService
	Moderation     *ModerationService
	Progression    *ProgressionService
	Achievements   *AchievementService
	DB             *gorm.DB

	Now func() time.Time
}

func NewAttemptService(
	eligibility *EligibilityService,
	attemptRepo *repository.AttemptRepository,
	questRepo *repository.QuestRepository,
	submissionRepo *repository.SubmissionRepository,
	analyticsRepo *repository.AnalyticsRepository,
	storage *StorageService,
	moderation *ModerationService,
	progression *ProgressionService,
	achievements *AchievementService,
	db *gorm.DB,
) *AttemptService {
	return &AttemptService{
		Eligibility:    eligibility,
		AttemptRepo:    attemptRepo,
		QuestRepo:      questRepo,
		SubmissionRepo: submissionRepo,
		AnalyticsRepo:  analyticsRepo,
		Storage:        storage,
		Moderation:     moderation,
		Progression:    progression,
		Achievements:   achievements,
		DB:             db,
		Now:            time.Now,
	}
}

// Start re-validates eligibility server-side before creating the attempt; a
// stale client-side check must not open a door the rules have since closed.
func (s *AttemptService) Start(userID, questID uint, coord *geo.Point) (*model.QuestAttempt, error) {
	result, _, _, err := s.Eligibility.Check(userID, questID)
	if err != nil {
		return nil, err
	}
	if !result.CanAttempt {
		return nil, util.NewAppError(util.KindIneligible, result.Reason)
	}

	attempt := &model.QuestAttempt{
		QuestID:   questID,
		UserID:    userID,
		Status:    model.AttemptInProgress,
		StartedAt: s.Now(),
	}
	if coord != nil {
		if err := geo.Validate(*coord); err != nil {
			return nil, err
		}
		attempt.StartLatitude = &coord.Latitude
		attempt.StartLongitude = &coord.Longitude
	}

	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, util.WrapAppError(util.KindPersistenceConflict, "failed to create attempt", err)
	}

	s.AnalyticsRepo.IncrementAttempts(questID)
	return attempt, nil
}

// Cancel moves an owned in-progress attempt to cancelled. Terminal attempts
// report AlreadySettled rather than silently succeeding.
func (s *AttemptService) Cancel(userID uint, attemptID string) (*model.QuestAttempt, error) {
	attempt, err := s.findOwned(userID, attemptID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	rows, err := s.AttemptRepo.Settle(s.DB, attempt.ID, model.AttemptCancelled, map[string]interface{}{
		"completed_at": now,
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, util.NewAppError(util.KindAlreadySettled, string(attempt.Status))
	}

	attempt.Status = model.AttemptCancelled
	attempt.CompletedAt = &now
	return attempt, nil
}

// Submit runs the full settlement pipeline: geofence, artifact upload,
// moderation, then verdict-specific settlement. A rejected photo leaves the
// attempt in-progress so the user may retry within their attempt limit.
func (s *AttemptService) Submit(ctx context.Context, userID uint, attemptID string, coord geo.Point, probe PhotoProbe, photo io.Reader, contentType string) (*SubmitResult, error) {
	attempt, err := s.findOwned(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status.IsTerminal() {
		return nil, util.NewAppError(util.KindAlreadySettled, string(attempt.Status))
	}

	quest, err := s.QuestRepo.FindByID(attempt.QuestID)
	if err != nil {
		return nil, util.ErrQuestNotFound
	}

	if err := geo.Validate(coord); err != nil {
		return nil, err
	}
	center := geo.Point{Latitude: quest.Latitude, Longitude: quest.Longitude}
	if !geo.WithinRadius(coord, center, quest.RadiusMeters) {
		distance := geo.Distance(coord, center) * 1000
		return nil, util.NewAppError(util.KindOutOfRange,
			fmt.Sprintf("%.0fm from quest location, radius is %.0fm", distance, quest.RadiusMeters))
	}

	objectName := fmt.Sprintf("submissions/%d/%s%s", userID, attempt.ID, filepath.Ext(probe.Filename))
	artifactURL, err := s.Storage.Upload(ctx, objectName, photo, probe.Size, contentType)
	if err != nil {
		return nil, util.WrapAppError(util.KindStorageFailure, "failed to store photo", err)
	}

	verdict, modResult := s.Moderation.Evaluate(ctx, artifactURL, probe, quest.PhotoRequirements.Data())

	submission := &model.Submission{
		AttemptID:        attempt.ID,
		QuestID:          quest.ID,
		UserID:           userID,
		ArtifactPath:     objectName,
		ArtifactURL:      artifactURL,
		ModerationStatus: verdict,
		SubmittedAt:      s.Now(),
	}
	if modResult != nil {
		submission.ModerationResult = datatypes.NewJSONType(*modResult)
	}

	switch verdict {
	case model.ModerationRejected:
		return nil, s.settleRejected(ctx, submission, modResult)
	case model.ModerationApproved:
		return s.settleApproved(ctx, submission, attempt, quest, modResult)
	default:
		return s.settlePending(ctx, submission, attempt, modResult)
	}
}

func (s *AttemptService) Get(userID uint, attemptID string) (*model.QuestAttempt, error) {
	return s.findOwned(userID, attemptID)
}

func (s *AttemptService) ListByUser(userID uint, page, limit int) ([]model.QuestAttempt, int64, error) {
	return s.AttemptRepo.FindByUser(userID, page, limit)
}

func (s *AttemptService) findOwned(userID uint, attemptID string) (*model.QuestAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	if attempt.UserID != userID {
		// 不暴露他人 attempt 的存在
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}

// settleRejected removes the stored artifact, keeps the submission row for the
// audit trail and leaves the attempt in-progress.
func (s *AttemptService) settleRejected(ctx context.Context, submission *model.Submission, modResult *model.ModerationResult) error {
	s.deleteArtifact(ctx, submission.ArtifactPath)
	submission.ArtifactURL = ""

	if err := s.SubmissionRepo.Create(s.DB, submission); err != nil {
		return util.WrapAppError(util.KindPersistenceConflict, "failed to record rejected submission", err)
	}
	s.Moderation.AppendAudit(submission, model.ModerationRejected, modResult, nil, "")
	s.AnalyticsRepo.IncrementRejections(submission.QuestID)

	reason := "photo failed moderation"
	if modResult != nil && modResult.Reason != "" {
		reason = modResult.Reason
	}
	return util.NewAppError(util.KindContentRejected, reason)
}

// settleApproved completes the attempt and pays out in one pass. The guarded
// status update is the linearization point for double submits.
func (s *AttemptService) settleApproved(ctx context.Context, submission *model.Submission, attempt *model.QuestAttempt, quest *model.Quest, modResult *model.ModerationResult) (*SubmitResult, error) {
	submission.RewardSettled = true

	now := s.Now()
	if err := s.completeAttempt(submission, attempt, now); err != nil {
		// 提交记录已回滚，照片不能留成孤儿
		s.deleteArtifact(ctx, submission.ArtifactPath)
		return nil, err
	}
	s.Moderation.AppendAudit(submission, model.ModerationApproved, modResult, nil, "")

	user, err := s.Eligibility.UserRepo.FindByID(attempt.UserID)
	if err != nil {
		return nil, err
	}

	qualityPassed := modResult != nil && modResult.Quality != nil && modResult.Quality.IsAcceptable
	award, err := s.Progression.Apply(user, quest, attempt, qualityPassed)
	if err != nil {
		// 完成态已落库，奖励失败不回滚任务完成
		logger.Log.Error("reward settlement failed after completion",
			zap.String("attempt", attempt.ID), zap.Error(err))
		return &SubmitResult{Attempt: attempt, Submission: submission, Verdict: model.ModerationApproved, Result: modResult}, nil
	}

	if err := s.Achievements.Recheck(attempt.UserID, EventQuestCompleted, EventStreak); err != nil {
		logger.Log.Error("achievement recheck failed after completion",
			zap.Uint("user", attempt.UserID), zap.Error(err))
	}

	return &SubmitResult{
		Attempt:    attempt,
		Submission: submission,
		Verdict:    model.ModerationApproved,
		Result:     modResult,
		AwardedXP:  award,
	}, nil
}

// settlePending completes the attempt optimistically but defers the reward
// until a moderator approves the submission.
func (s *AttemptService) settlePending(ctx context.Context, submission *model.Submission, attempt *model.QuestAttempt, modResult *model.ModerationResult) (*SubmitResult, error) {
	now := s.Now()
	if err := s.completeAttempt(submission, attempt, now); err != nil {
		s.deleteArtifact(ctx, submission.ArtifactPath)
		return nil, err
	}
	s.Moderation.AppendAudit(submission, model.ModerationPending, modResult, nil, "")

	return &SubmitResult{
		Attempt:    attempt,
		Submission: submission,
		Verdict:    model.ModerationPending,
		Result:     modResult,
		Pending:    true,
	}, nil
}

func (s *AttemptService) deleteArtifact(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.Storage.Delete(ctx, path); err != nil {
		logger.Log.Error("failed to delete artifact",
			zap.String("path", path), zap.Error(err))
	}
}

func (s *AttemptService) completeAttempt(submission *model.Submission, attempt *model.QuestAttempt, now time.Time) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.SubmissionRepo.Create(tx, submission); err != nil {
			return err
		}
		rows, err := s.AttemptRepo.Settle(tx, attempt.ID, model.AttemptCompleted, map[string]interface{}{
			"completed_at":  now,
			"submission_id": submission.ID,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return util.NewAppError(util.KindAlreadySettled, string(model.AttemptCompleted))
		}
		return nil
	})
	if err != nil {
		if util.KindOf(err) == util.KindAlreadySettled {
			return err
		}
		return util.WrapAppError(util.KindPersistenceConflict, "failed to settle attempt", err)
	}

	attempt.Status = model.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.SubmissionID = submission.ID
	return nil
}
