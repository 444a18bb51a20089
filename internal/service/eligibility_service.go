package service

import (
	"errors"
	"time"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/util"

	"gorm.io/gorm"
)

// Eligibility reason codes, reported in check responses and Ineligible errors.
const (
	ReasonLevelTooLow       = "LevelTooLow"
	ReasonAttemptsExhausted = "AttemptsExhausted"
	ReasonOutsideWindow     = "OutsideWindow"
	ReasonDailyQuotaReached = "DailyQuotaReached"
)

// EligibilityResult 资格检查结果
type EligibilityResult struct {
	CanAttempt bool   `json:"canAttempt"`
	Reason     string `json:"reason,omitempty"`
}

// EligibilityService decides whether a user may start a quest. The check is
// advisory for clients; AttemptService re-runs it at start time to close the
// check/start race.
type EligibilityService struct {
	UserRepo    *repository.UserRepository
	QuestRepo   *repository.QuestRepository
	AttemptRepo *repository.AttemptRepository

	MaxDailyQuests int
	Now            func() time.Time
}

func NewEligibilityService(userRepo *repository.UserRepository, questRepo *repository.QuestRepository, attemptRepo *repository.AttemptRepository, maxDailyQuests int) *EligibilityService {
	if maxDailyQuests <= 0 {
		maxDailyQuests = 3
	}
	return &EligibilityService{
		UserRepo:       userRepo,
		QuestRepo:      questRepo,
		AttemptRepo:    attemptRepo,
		MaxDailyQuests: maxDailyQuests,
		Now:            time.Now,
	}
}

// Check evaluates the rules in order; the first failing rule wins.
func (s *EligibilityService) Check(userID, questID uint) (*EligibilityResult, *model.User, *model.Quest, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, util.ErrUserNotFound
		}
		return nil, nil, nil, err
	}

	quest, err := s.QuestRepo.FindByID(questID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, util.ErrQuestNotFound
		}
		return nil, nil, nil, err
	}
	if quest.IsArchived {
		return nil, nil, nil, util.ErrQuestNotFound
	}

	if user.Level < quest.MinLevel {
		return &EligibilityResult{Reason: ReasonLevelTooLow}, user, quest, nil
	}

	if quest.MaxAttempts > 0 {
		count, err := s.AttemptRepo.CountByUserAndQuest(userID, questID)
		if err != nil {
			return nil, nil, nil, err
		}
		if count >= int64(quest.MaxAttempts) {
			return &EligibilityResult{Reason: ReasonAttemptsExhausted}, user, quest, nil
		}
	}

	if quest.AvailableFrom != nil && quest.AvailableTo != nil {
		if !withinHours(s.Now(), *quest.AvailableFrom, *quest.AvailableTo) {
			return &EligibilityResult{Reason: ReasonOutsideWindow}, user, quest, nil
		}
	}

	// 每日配额必须实时查询，客户端可能多开
	dayStart, dayEnd := localDayBounds(s.Now())
	started, err := s.AttemptRepo.CountStartedBetween(userID, dayStart, dayEnd)
	if err != nil {
		return nil, nil, nil, err
	}
	if started >= int64(s.MaxDailyQuests) {
		return &EligibilityResult{Reason: ReasonDailyQuotaReached}, user, quest, nil
	}

	return &EligibilityResult{CanAttempt: true}, user, quest, nil
}

// withinHours compares the local time-of-day as decimal hours, inclusive at
// both ends. Windows crossing midnight (from > to) wrap around.
func withinHours(now time.Time, from, to float64) bool {
	current := float64(now.Hour()) + float64(now.Minute())/60.0
	if from <= to {
		return current >= from && current <= to
	}
	return current >= from || current <= to
}

func localDayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}
