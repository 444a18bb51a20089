package model

import (
	"time"

	"gorm.io/datatypes"
)

// TagRequirements 解锁条件；存在的维度按 AND 组合
type TagRequirements struct {
	QuestsCompleted int      `json:"questsCompleted,omitempty"`
	TotalXP         int      `json:"totalXP,omitempty"`
	Achievements    []string `json:"achievements,omitempty"`
	Votes           int      `json:"votes,omitempty"`
	StreakDays      int      `json:"streakDays,omitempty"`
}

// Tag 个人资料装饰标签
// swagger:model Tag
type Tag struct {
	BaseModel
	Code         string                              `gorm:"size:50;unique;not null" json:"code"`
	Name         string                              `gorm:"size:100;not null" json:"name"`
	Rarity       string                              `gorm:"size:20;default:'common'" json:"rarity"`
	Requirements datatypes.JSONType[TagRequirements] `json:"requirements"`
	IsActive     bool                                `gorm:"default:true" json:"isActive"`
}

func (Tag) TableName() string {
	return "tags"
}

// UserTag 已解锁标签集合，只增不减
type UserTag struct {
	BaseModel
	UserID  uint   `gorm:"index:idx_user_tag,unique;not null" json:"userId"`
	TagCode string `gorm:"size:50;index:idx_user_tag,unique;not null" json:"tagCode"`
}

func (UserTag) TableName() string {
	return "user_tags"
}

// TagUnlockHistory 解锁日志，追加写入
type TagUnlockHistory struct {
	BaseModel
	UserID     uint      `gorm:"index;not null" json:"userId"`
	TagCode    string    `gorm:"size:50;not null" json:"tagCode"`
	UnlockedAt time.Time `gorm:"not null" json:"unlockedAt"`
}

func (TagUnlockHistory) TableName() string {
	return "tag_unlock_history"
}
