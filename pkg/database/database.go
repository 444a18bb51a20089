package database

import (
	"fmt"
	"log"
	"photoquest_backend/internal/config"
	"photoquest_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Info),
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	Seed(db)

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Quest{},
		&model.QuestAttempt{},
		&model.Submission{},
		&model.Vote{},
		&model.CompletedQuest{},
		&model.AchievementDef{},
		&model.UserAchievement{},
		&model.Tag{},
		&model.UserTag{},
		&model.TagUnlockHistory{},
		&model.ModerationLog{},
		&model.QuestAnalytics{},
	)
}

// Seed inserts the default achievement and tag catalogue on first boot.
func Seed(db *gorm.DB) {
	var count int64
	db.Model(&model.AchievementDef{}).Count(&count)
	if count == 0 {
		defaults := []model.AchievementDef{
			{Code: "first_quest", Type: model.AchievementQuest, Title: "First Steps", Description: "Complete your first quest", Threshold: 1, XPReward: 25},
			{Code: "quest_10", Type: model.AchievementQuest, Title: "Explorer", Description: "Complete 10 quests", Threshold: 10, XPReward: 100},
			{Code: "quest_50", Type: model.AchievementQuest, Title: "Pathfinder", Description: "Complete 50 quests", Threshold: 50, XPReward: 500},
			{Code: "quest_100", Type: model.AchievementQuest, Title: "Cartographer", Description: "Complete 100 quests", Threshold: 100, XPReward: 1000},
			{Code: "vote_10", Type: model.AchievementVote, Title: "Crowd Pleaser", Description: "Receive 10 votes on your photos", Threshold: 10, XPReward: 50},
			{Code: "vote_100", Type: model.AchievementVote, Title: "Local Favorite", Description: "Receive 100 votes on your photos", Threshold: 100, XPReward: 500},
			{Code: "streak_7", Type: model.AchievementStreak, Title: "Week Warrior", Description: "Complete quests 7 days in a row", Threshold: 7, XPReward: 150},
			{Code: "streak_30", Type: model.AchievementStreak, Title: "Dedicated", Description: "Complete quests 30 days in a row", Threshold: 30, XPReward: 750},
		}
		for _, def := range defaults {
			db.Create(&def)
		}
	}

	var tagCount int64
	db.Model(&model.Tag{}).Count(&tagCount)
	if tagCount == 0 {
		defaults := []model.Tag{
			{Code: "rookie", Name: "Rookie", Rarity: "common",
				Requirements: datatypes.NewJSONType(model.TagRequirements{QuestsCompleted: 1})},
			{Code: "globetrotter", Name: "Globetrotter", Rarity: "rare",
				Requirements: datatypes.NewJSONType(model.TagRequirements{QuestsCompleted: 25, TotalXP: 5000})},
			{Code: "shutterbug", Name: "Shutterbug", Rarity: "rare",
				Requirements: datatypes.NewJSONType(model.TagRequirements{Votes: 50})},
			{Code: "legend", Name: "Legend", Rarity: "epic",
				Requirements: datatypes.NewJSONType(model.TagRequirements{QuestsCompleted: 100, Achievements: []string{"streak_30", "vote_100"}})},
		}
		for _, tag := range defaults {
			db.Create(&tag)
		}
	}
}
