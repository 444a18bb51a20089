package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/util"
	"photoquest_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	leaderboardCacheKey = "photoquest:leaderboard"
	leaderboardCacheTTL = 60 * time.Second
)

// Profile 用户主页数据
type Profile struct {
	User            *model.User             `json:"user"`
	NextLevelXP     int                     `json:"nextLevelXp"`
	QuestsCompleted int64                   `json:"questsCompleted"`
	VotesReceived   int64                   `json:"votesReceived"`
	Achievements    []model.UserAchievement `json:"achievements"`
	Tags            []model.UserTag         `json:"tags"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	UserID  uint   `json:"userId"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	Level   int    `json:"level"`
	TotalXP int    `json:"totalXp"`
}

type UserService struct {
	UserRepo        *repository.UserRepository
	ProgressionRepo *repository.ProgressionRepository
	SubmissionRepo  *repository.SubmissionRepository
	AchievementRepo *repository.AchievementRepository
	TagRepo         *repository.TagRepository
	Storage         *StorageService
	Redis           *redis.Client
}

func NewUserService(userRepo *repository.UserRepository, progressionRepo *repository.ProgressionRepository, submissionRepo *repository.SubmissionRepository, achievementRepo *repository.AchievementRepository, tagRepo *repository.TagRepository, storage *StorageService, redisClient *redis.Client) *UserService {
	return &UserService{
		UserRepo:        userRepo,
		ProgressionRepo: progressionRepo,
		SubmissionRepo:  submissionRepo,
		AchievementRepo: achievementRepo,
		TagRepo:         tagRepo,
		Storage:         storage,
		Redis:           redisClient,
	}
}

func (s *UserService) GetProfile(userID uint) (*Profile, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	user.Password = ""

	completed, err := s.ProgressionRepo.CountCompleted(userID)
	if err != nil {
		return nil, err
	}
	votes, err := s.SubmissionRepo.CountVotesReceived(userID)
	if err != nil {
		return nil, err
	}
	achievements, err := s.AchievementRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	tags, err := s.TagRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:            user,
		NextLevelXP:     NextLevelXP(user.TotalXP),
		QuestsCompleted: completed,
		VotesReceived:   votes,
		Achievements:    achievements,
		Tags:            tags,
	}, nil
}

func (s *UserService) UpdateName(userID uint, name string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	user.Name = name
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *UserService) UploadAvatar(ctx context.Context, userID uint, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return "", util.ErrUserNotFound
	}

	objectName := fmt.Sprintf("avatars/%d/%s", userID, filename)
	url, err := s.Storage.Upload(ctx, objectName, reader, size, contentType)
	if err != nil {
		return "", util.WrapAppError(util.KindStorageFailure, "failed to store avatar", err)
	}

	user.Avatar = url
	if err := s.UserRepo.Update(user); err != nil {
		return "", err
	}
	return url, nil
}

// Leaderboard returns the top users by lifetime XP, cached in Redis for a
// short window since it is read far more often than it changes.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	cacheKey := fmt.Sprintf("%s:%d", leaderboardCacheKey, limit)

	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var entries []LeaderboardEntry
			if json.Unmarshal([]byte(cached), &entries) == nil {
				return entries, nil
			}
		}
	}

	users, err := s.UserRepo.FindTopByTotalXP(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, LeaderboardEntry{
			UserID:  u.ID,
			Name:    u.Name,
			Avatar:  u.Avatar,
			Level:   u.Level,
			TotalXP: u.TotalXP,
		})
	}

	if s.Redis != nil {
		data, _ := json.Marshal(entries)
		if err := s.Redis.Set(ctx, cacheKey, data, leaderboardCacheTTL).Err(); err != nil {
			logger.Log.Warn("failed to cache leaderboard", zap.Error(err))
		}
	}
	return entries, nil
}
