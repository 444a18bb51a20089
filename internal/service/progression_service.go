package service

import (
	"math"
	"time"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/pkg/monitoring"

	"gorm.io/gorm"
)

const (
	levelBaseXP     = 500.0
	levelGrowthRate = 1.3
)

// CalculateLevel derives a level from lifetime XP. Level 1 requires nothing;
// reaching level 2 takes 500 XP and every later step costs 1.3x the previous
// one, cumulatively. Pure and monotonic in totalXP.
func CalculateLevel(totalXP int) int {
	level := 1
	step := levelBaseXP
	cumulative := levelBaseXP
	for float64(totalXP) >= cumulative {
		level++
		step *= levelGrowthRate
		cumulative += step
	}
	return level
}

// NextLevelXP returns the cumulative lifetime XP needed for the next level.
func NextLevelXP(totalXP int) int {
	step := levelBaseXP
	cumulative := levelBaseXP
	for float64(totalXP) >= cumulative {
		step *= levelGrowthRate
		cumulative += step
	}
	return int(math.Ceil(cumulative))
}

// ProgressionService settles XP awards for completed attempts. Settlement is
// atomic with the completed-quest record so concurrent completions by the
// same user cannot lose an update.
type ProgressionService struct {
	UserRepo        *repository.UserRepository
	ProgressionRepo *repository.ProgressionRepository
	AnalyticsRepo   *repository.AnalyticsRepository
	DB              *gorm.DB

	XPMultiplier     float64
	SpeedBonusWindow time.Duration
	Now              func() time.Time
}

func NewProgressionService(userRepo *repository.UserRepository, progressionRepo *repository.ProgressionRepository, analyticsRepo *repository.AnalyticsRepository, db *gorm.DB, xpMultiplier float64, speedBonusWindowHours float64) *ProgressionService {
	if xpMultiplier <= 0 {
		xpMultiplier = 1.0
	}
	if speedBonusWindowHours <= 0 {
		speedBonusWindowHours = 2.0
	}
	return &ProgressionService{
		UserRepo:         userRepo,
		ProgressionRepo:  progressionRepo,
		AnalyticsRepo:    analyticsRepo,
		DB:               db,
		XPMultiplier:     xpMultiplier,
		SpeedBonusWindow: time.Duration(speedBonusWindowHours * float64(time.Hour)),
		Now:              time.Now,
	}
}

// ComputeAward returns the XP total for one completion before persistence.
// firstTime and qualityPassed are resolved by the caller.
func (s *ProgressionService) ComputeAward(quest *model.Quest, elapsed time.Duration, firstTime, qualityPassed bool) int {
	total := quest.BaseXP
	if elapsed <= s.SpeedBonusWindow {
		total += quest.SpeedBonus
	}
	if firstTime {
		total += quest.FirstTimeBonus
	}
	if qualityPassed {
		total += quest.QualityBonus
	}
	return int(math.Floor(float64(total) * s.XPMultiplier))
}

// Apply settles the reward for a completed attempt: XP balances, recomputed
// level, streak, completed-quest record and quest analytics, all in one
// transaction. Returns the awarded XP.
func (s *ProgressionService) Apply(user *model.User, quest *model.Quest, attempt *model.QuestAttempt, qualityPassed bool) (int, error) {
	now := s.Now()

	// Elapsed ends at the attempt's completion, not at settlement. A deferred
	// settlement after moderator review must not erase an earned speed bonus.
	end := now
	if attempt.CompletedAt != nil {
		end = *attempt.CompletedAt
	}
	elapsed := end.Sub(attempt.StartedAt)

	var award int
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// First-time is decided inside the settlement transaction so two
		// concurrent completions of the same quest cannot both claim the bonus.
		completedBefore, err := s.ProgressionRepo.HasCompleted(tx, user.ID, quest.ID)
		if err != nil {
			return err
		}
		award = s.ComputeAward(quest, elapsed, !completedBefore, qualityPassed)

		if err := s.UserRepo.AwardXP(tx, user.ID, award); err != nil {
			return err
		}

		// Level is always recomputed from the fresh lifetime total, never
		// incremented independently.
		var fresh model.User
		if err := tx.First(&fresh, user.ID).Error; err != nil {
			return err
		}
		if err := s.UserRepo.SetLevel(tx, user.ID, CalculateLevel(fresh.TotalXP)); err != nil {
			return err
		}

		if err := s.updateStreak(tx, &fresh, now); err != nil {
			return err
		}

		return s.ProgressionRepo.CreateCompleted(tx, &model.CompletedQuest{
			UserID:          user.ID,
			QuestID:         quest.ID,
			AttemptID:       attempt.ID,
			AwardedXP:       award,
			DurationSeconds: int(elapsed.Seconds()),
		})
	})
	if err != nil {
		return 0, err
	}

	// Analytics are best-effort counters outside the settlement transaction.
	s.AnalyticsRepo.IncrementCompletions(quest.ID)
	monitoring.XPAwarded.Add(float64(award))

	return award, nil
}

// updateStreak keeps a consecutive-day completion counter: same day keeps the
// streak, the following day extends it, anything longer resets to 1.
func (s *ProgressionService) updateStreak(tx *gorm.DB, user *model.User, now time.Time) error {
	// 两个时间点都折算到结算时区再取日历日
	lastDay := truncateToDay(user.LastQuestAt.In(now.Location()))
	today := truncateToDay(now)

	streak := user.StreakCount
	switch {
	case user.LastQuestAt.IsZero():
		streak = 1
	case today.Equal(lastDay):
		// 同日不变
	case lastDay.AddDate(0, 0, 1).Equal(today):
		// 日历日相邻；AddDate 正确跨过23/25小时的夏令时切换日
		streak++
	default:
		streak = 1
	}

	return tx.Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"streak_count":  streak,
		"last_quest_at": now,
	}).Error
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
