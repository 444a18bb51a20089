package service

import (
	"errors"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/util"
	"photoquest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionService 已结算提交的查询与社区点赞
type SubmissionService struct {
	SubmissionRepo *repository.SubmissionRepository
	Achievements   *AchievementService
}

func NewSubmissionService(submissionRepo *repository.SubmissionRepository, achievements *AchievementService) *SubmissionService {
	return &SubmissionService{
		SubmissionRepo: submissionRepo,
		Achievements:   achievements,
	}
}

func (s *SubmissionService) Get(id string) (*model.Submission, error) {
	submission, err := s.SubmissionRepo.FindByID(id)
	if err != nil {
		return nil, util.WrapAppError(util.KindNotFound, "submission not found", err)
	}
	return submission, nil
}

// Vote records one vote per voter per submission. Voting your own photo or an
// unapproved one is rejected; a repeat vote surfaces as a conflict.
func (s *SubmissionService) Vote(voterID uint, submissionID string) (*model.Submission, error) {
	submission, err := s.Get(submissionID)
	if err != nil {
		return nil, err
	}
	if submission.UserID == voterID {
		return nil, util.NewAppError(util.KindIneligible, "cannot vote for your own submission")
	}
	if submission.ModerationStatus != model.ModerationApproved {
		return nil, util.NewAppError(util.KindIneligible, "submission is not approved")
	}

	if err := s.SubmissionRepo.CreateVote(submissionID, voterID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.WrapAppError(util.KindPersistenceConflict, "already voted", err)
		}
		return nil, util.WrapAppError(util.KindPersistenceConflict, "failed to record vote", err)
	}

	// 点赞可能触发被点赞者的成就
	if err := s.Achievements.Recheck(submission.UserID, EventVoteReceived); err != nil {
		logger.Log.Error("achievement recheck failed after vote",
			zap.Uint("user", submission.UserID), zap.Error(err))
	}

	return s.Get(submissionID)
}
