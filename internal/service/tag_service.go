package service

import (
	"errors"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TagService unlocks profile tags. The unlocked set is append-only: a recheck
// can only add tags, it never revokes one even if the underlying stats later
// fall below the requirements.
type TagService struct {
	TagRepo         *repository.TagRepository
	AchievementRepo *repository.AchievementRepository
	ProgressionRepo *repository.ProgressionRepository
	SubmissionRepo  *repository.SubmissionRepository
	UserRepo        *repository.UserRepository
}

func NewTagService(tagRepo *repository.TagRepository, achievementRepo *repository.AchievementRepository, progressionRepo *repository.ProgressionRepository, submissionRepo *repository.SubmissionRepository, userRepo *repository.UserRepository) *TagService {
	return &TagService{
		TagRepo:         tagRepo,
		AchievementRepo: achievementRepo,
		ProgressionRepo: progressionRepo,
		SubmissionRepo:  submissionRepo,
		UserRepo:        userRepo,
	}
}

// Recheck evaluates every active tag the user has not unlocked yet and unlocks
// the ones whose requirements are now met. Returns the newly unlocked codes.
func (s *TagService) Recheck(userID uint) ([]string, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	tags, err := s.TagRepo.ListActive()
	if err != nil {
		return nil, err
	}

	owned, err := s.TagRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	ownedSet := make(map[string]bool, len(owned))
	for _, t := range owned {
		ownedSet[t.TagCode] = true
	}

	stats, err := s.collectStats(user)
	if err != nil {
		return nil, err
	}

	var unlocked []string
	for _, tag := range tags {
		if ownedSet[tag.Code] {
			continue
		}
		if !stats.meets(tag.Requirements.Data()) {
			continue
		}
		if err := s.TagRepo.Unlock(userID, tag.Code); err != nil {
			// 并发 recheck 撞到唯一索引属正常情况
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			logger.Log.Error("failed to unlock tag",
				zap.Uint("user", userID), zap.String("tag", tag.Code), zap.Error(err))
			continue
		}
		unlocked = append(unlocked, tag.Code)
	}
	return unlocked, nil
}

func (s *TagService) ListActive() ([]model.Tag, error) {
	return s.TagRepo.ListActive()
}

func (s *TagService) ListByUser(userID uint) ([]model.UserTag, error) {
	return s.TagRepo.ListByUser(userID)
}

func (s *TagService) History(userID uint) ([]model.TagUnlockHistory, error) {
	return s.TagRepo.History(userID)
}

type tagStats struct {
	QuestsCompleted int64
	TotalXP         int
	Votes           int64
	StreakDays      int
	Achievements    map[string]bool
}

func (s *TagService) collectStats(user *model.User) (*tagStats, error) {
	completed, err := s.ProgressionRepo.CountCompleted(user.ID)
	if err != nil {
		return nil, err
	}
	votes, err := s.SubmissionRepo.CountVotesReceived(user.ID)
	if err != nil {
		return nil, err
	}
	earned, err := s.AchievementRepo.ListByUser(user.ID)
	if err != nil {
		return nil, err
	}

	stats := &tagStats{
		QuestsCompleted: completed,
		TotalXP:         user.TotalXP,
		Votes:           votes,
		StreakDays:      user.StreakCount,
		Achievements:    make(map[string]bool, len(earned)),
	}
	for _, a := range earned {
		stats.Achievements[a.Code] = true
	}
	return stats, nil
}

// meets combines the requirement dimensions that are present with AND; absent
// dimensions do not constrain.
func (st *tagStats) meets(req model.TagRequirements) bool {
	if req.QuestsCompleted > 0 && st.QuestsCompleted < int64(req.QuestsCompleted) {
		return false
	}
	if req.TotalXP > 0 && st.TotalXP < req.TotalXP {
		return false
	}
	if req.Votes > 0 && st.Votes < int64(req.Votes) {
		return false
	}
	if req.StreakDays > 0 && st.StreakDays < req.StreakDays {
		return false
	}
	for _, code := range req.Achievements {
		if !st.Achievements[code] {
			return false
		}
	}
	return true
}
