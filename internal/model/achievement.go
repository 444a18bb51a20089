package model

import "time"

type AchievementType string

const (
	AchievementQuest  AchievementType = "quest"
	AchievementVote   AchievementType = "vote"
	AchievementStreak AchievementType = "streak"
)

// AchievementDef 成就定义。阈值是显式字段，不从描述文本解析。
// swagger:model AchievementDef
type AchievementDef struct {
	BaseModel
	Code        string          `gorm:"size:50;unique;not null" json:"code"`
	Type        AchievementType `gorm:"size:20;not null" json:"type"`
	Title       string          `gorm:"size:100;not null" json:"title"`
	Description string          `gorm:"size:255" json:"description"`
	Threshold   int             `gorm:"not null" json:"threshold"`
	Icon        string          `gorm:"size:255" json:"icon"`
	XPReward    int             `gorm:"default:0" json:"xpReward"`
}

func (AchievementDef) TableName() string {
	return "achievements"
}

// UserAchievement 用户已获得的成就（集合，唯一）
type UserAchievement struct {
	BaseModel
	UserID   uint      `gorm:"index:idx_user_achievement,unique;not null" json:"userId"`
	Code     string    `gorm:"size:50;index:idx_user_achievement,unique;not null" json:"code"`
	EarnedAt time.Time `gorm:"not null" json:"earnedAt"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
