package service

import (
	"context"
	"time"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/util"
	"photoquest_backend/pkg/logger"

	"go.uber.org/zap"
)

// ReviewService is the moderator side of the pipeline: the pending_review
// queue and its resolutions. Resolving is the point where a deferred reward
// finally settles.
type ReviewService struct {
	SubmissionRepo *repository.SubmissionRepository
	AttemptRepo    *repository.AttemptRepository
	QuestRepo      *repository.QuestRepository
	UserRepo       *repository.UserRepository
	AnalyticsRepo  *repository.AnalyticsRepository
	Storage        *StorageService
	Moderation     *ModerationService
	Progression    *ProgressionService
	Achievements   *AchievementService

	Now func() time.Time
}

func NewReviewService(
	submissionRepo *repository.SubmissionRepository,
	attemptRepo *repository.AttemptRepository,
	questRepo *repository.QuestRepository,
	userRepo *repository.UserRepository,
	analyticsRepo *repository.AnalyticsRepository,
	storage *StorageService,
	moderation *ModerationService,
	progression *ProgressionService,
	achievements *AchievementService,
) *ReviewService {
	return &ReviewService{
		SubmissionRepo: submissionRepo,
		AttemptRepo:    attemptRepo,
		QuestRepo:      questRepo,
		UserRepo:       userRepo,
		AnalyticsRepo:  analyticsRepo,
		Storage:        storage,
		Moderation:     moderation,
		Progression:    progression,
		Achievements:   achievements,
		Now:            time.Now,
	}
}

// ListPending returns the manual review queue, oldest submissions first.
func (s *ReviewService) ListPending(page, limit int) ([]model.Submission, int64, error) {
	return s.SubmissionRepo.ListPendingReview(page, limit)
}

// Resolve settles a pending submission. Approving pays out the deferred
// reward; rejecting deletes the artifact and settles with zero reward. Either
// way the decision lands in the audit log with the reviewer attached.
// The guarded status update is the linearization point: of two concurrent
// resolutions only one matches the pending row, the loser gets AlreadySettled.
func (s *ReviewService) Resolve(ctx context.Context, reviewerID uint, submissionID string, approve bool, notes string) (*model.Submission, error) {
	submission, err := s.SubmissionRepo.FindByID(submissionID)
	if err != nil {
		return nil, util.WrapAppError(util.KindNotFound, "submission not found", err)
	}
	if submission.ModerationStatus != model.ModerationPending {
		return nil, util.NewAppError(util.KindAlreadySettled, string(submission.ModerationStatus))
	}

	now := s.Now()
	submission.ReviewerID = &reviewerID
	submission.ReviewedAt = &now

	if approve {
		return s.resolveApprove(submission, reviewerID, now, notes)
	}
	return s.resolveReject(ctx, submission, reviewerID, now, notes)
}

func (s *ReviewService) resolveApprove(submission *model.Submission, reviewerID uint, now time.Time, notes string) (*model.Submission, error) {
	rows, err := s.SubmissionRepo.SettleReview(submission.ID, model.ModerationApproved, map[string]interface{}{
		"reward_settled": true,
		"reviewer_id":    reviewerID,
		"reviewed_at":    now,
	})
	if err != nil {
		return nil, util.WrapAppError(util.KindPersistenceConflict, "failed to update submission", err)
	}
	if rows == 0 {
		return nil, util.NewAppError(util.KindAlreadySettled, "submission already resolved")
	}
	submission.ModerationStatus = model.ModerationApproved
	submission.RewardSettled = true

	result := submission.ModerationResult.Data()
	s.Moderation.AppendAudit(submission, model.ModerationApproved, &result, &reviewerID, notes)

	attempt, err := s.AttemptRepo.FindByID(submission.AttemptID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	quest, err := s.QuestRepo.FindByID(submission.QuestID)
	if err != nil {
		return nil, util.ErrQuestNotFound
	}
	user, err := s.UserRepo.FindByID(submission.UserID)
	if err != nil {
		return nil, err
	}

	qualityPassed := result.Quality != nil && result.Quality.IsAcceptable
	if _, err := s.Progression.Apply(user, quest, attempt, qualityPassed); err != nil {
		logger.Log.Error("deferred reward settlement failed",
			zap.String("submission", submission.ID), zap.Error(err))
		return submission, nil
	}
	if err := s.Achievements.Recheck(user.ID, EventQuestCompleted, EventStreak); err != nil {
		logger.Log.Error("achievement recheck failed after review approval",
			zap.Uint("user", user.ID), zap.Error(err))
	}
	return submission, nil
}

func (s *ReviewService) resolveReject(ctx context.Context, submission *model.Submission, reviewerID uint, now time.Time, notes string) (*model.Submission, error) {
	// 先赢下结算，只有赢家才删除照片
	rows, err := s.SubmissionRepo.SettleReview(submission.ID, model.ModerationRejected, map[string]interface{}{
		// 零奖励结算：complete 态保留，不再有待发放奖励
		"reward_settled": true,
		"artifact_url":   "",
		"reviewer_id":    reviewerID,
		"reviewed_at":    now,
	})
	if err != nil {
		return nil, util.WrapAppError(util.KindPersistenceConflict, "failed to update submission", err)
	}
	if rows == 0 {
		return nil, util.NewAppError(util.KindAlreadySettled, "submission already resolved")
	}
	submission.ModerationStatus = model.ModerationRejected
	submission.ArtifactURL = ""
	submission.RewardSettled = true

	if submission.ArtifactPath != "" {
		if err := s.Storage.Delete(ctx, submission.ArtifactPath); err != nil {
			logger.Log.Error("failed to delete rejected artifact",
				zap.String("path", submission.ArtifactPath), zap.Error(err))
		}
	}

	result := submission.ModerationResult.Data()
	s.Moderation.AppendAudit(submission, model.ModerationRejected, &result, &reviewerID, notes)
	s.AnalyticsRepo.IncrementRejections(submission.QuestID)
	return submission, nil
}

// AuditTrail returns the append-only moderation log for one submission.
func (s *ReviewService) AuditTrail(submissionID string) ([]model.ModerationLog, error) {
	return s.Moderation.ModerationRepo.ListBySubmission(submissionID)
}
