package service

import (
	"errors"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AchievementEvent 触发成就复查的事件类型
type AchievementEvent string

const (
	EventQuestCompleted AchievementEvent = "quest_completed"
	EventVoteReceived   AchievementEvent = "vote_received"
	EventStreak         AchievementEvent = "streak"
)

// AchievementService awards threshold achievements. Awards are idempotent:
// the unique (user, code) index is the source of truth, a recheck can never
// award the same achievement twice.
type AchievementService struct {
	AchievementRepo *repository.AchievementRepository
	ProgressionRepo *repository.ProgressionRepository
	SubmissionRepo  *repository.SubmissionRepository
	UserRepo        *repository.UserRepository
	Tags            *TagService
	DB              *gorm.DB
}

func NewAchievementService(achievementRepo *repository.AchievementRepository, progressionRepo *repository.ProgressionRepository, submissionRepo *repository.SubmissionRepository, userRepo *repository.UserRepository, tags *TagService, db *gorm.DB) *AchievementService {
	return &AchievementService{
		AchievementRepo: achievementRepo,
		ProgressionRepo: progressionRepo,
		SubmissionRepo:  submissionRepo,
		UserRepo:        userRepo,
		Tags:            tags,
		DB:              db,
	}
}

var eventToType = map[AchievementEvent]model.AchievementType{
	EventQuestCompleted: model.AchievementQuest,
	EventVoteReceived:   model.AchievementVote,
	EventStreak:         model.AchievementStreak,
}

// Recheck re-evaluates the achievement types touched by the given events. Any
// new award cascades into a tag recheck, since tags may depend on achievements.
func (s *AchievementService) Recheck(userID uint, events ...AchievementEvent) error {
	types := make(map[model.AchievementType]bool)
	for _, e := range events {
		if t, ok := eventToType[e]; ok {
			types[t] = true
		}
	}
	if len(types) == 0 {
		return nil
	}

	awarded := 0
	for t := range types {
		n, err := s.recheckType(userID, t)
		if err != nil {
			return err
		}
		awarded += n
	}

	if awarded > 0 {
		if _, err := s.Tags.Recheck(userID); err != nil {
			logger.Log.Error("tag recheck failed after achievement award",
				zap.Uint("user", userID), zap.Error(err))
		}
	}
	return nil
}

func (s *AchievementService) recheckType(userID uint, t model.AchievementType) (int, error) {
	metric, err := s.metricFor(userID, t)
	if err != nil {
		return 0, err
	}

	defs, err := s.AchievementRepo.ListDefsByType(t)
	if err != nil {
		return 0, err
	}

	awarded := 0
	for _, def := range defs {
		if metric < int64(def.Threshold) {
			// defs 按阈值升序，后面的也不会满足
			break
		}
		has, err := s.AchievementRepo.Has(userID, def.Code)
		if err != nil {
			return awarded, err
		}
		if has {
			continue
		}
		if err := s.AchievementRepo.Award(userID, def.Code); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return awarded, err
		}
		awarded++
		if def.XPReward > 0 {
			if err := s.grantXP(userID, def.XPReward); err != nil {
				logger.Log.Error("failed to grant achievement xp",
					zap.Uint("user", userID), zap.String("achievement", def.Code), zap.Error(err))
			}
		}
	}
	return awarded, nil
}

func (s *AchievementService) metricFor(userID uint, t model.AchievementType) (int64, error) {
	switch t {
	case model.AchievementQuest:
		return s.ProgressionRepo.CountCompleted(userID)
	case model.AchievementVote:
		return s.SubmissionRepo.CountVotesReceived(userID)
	case model.AchievementStreak:
		user, err := s.UserRepo.FindByID(userID)
		if err != nil {
			return 0, err
		}
		return int64(user.StreakCount), nil
	}
	return 0, nil
}

// grantXP applies a flat achievement bonus and recomputes the level from the
// new lifetime total.
func (s *AchievementService) grantXP(userID uint, amount int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.UserRepo.AwardXP(tx, userID, amount); err != nil {
			return err
		}
		var fresh model.User
		if err := tx.First(&fresh, userID).Error; err != nil {
			return err
		}
		return s.UserRepo.SetLevel(tx, userID, CalculateLevel(fresh.TotalXP))
	})
}

func (s *AchievementService) ListDefs() ([]model.AchievementDef, error) {
	return s.AchievementRepo.ListDefs()
}

func (s *AchievementService) ListByUser(userID uint) ([]model.UserAchievement, error) {
	return s.AchievementRepo.ListByUser(userID)
}
