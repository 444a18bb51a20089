package model

import (
	"gorm.io/datatypes"
)

type QuestDifficulty string

const (
	DifficultyBeginner     QuestDifficulty = "beginner"
	DifficultyIntermediate QuestDifficulty = "intermediate"
	DifficultyAdvanced     QuestDifficulty = "advanced"
	DifficultyExpert       QuestDifficulty = "expert"
)

// DifficultyRank orders difficulties for sorting and comparison.
func DifficultyRank(d QuestDifficulty) int {
	switch d {
	case DifficultyBeginner:
		return 0
	case DifficultyIntermediate:
		return 1
	case DifficultyAdvanced:
		return 2
	case DifficultyExpert:
		return 3
	}
	return -1
}

// PhotoRequirements 任务照片要求，存储为JSON列
type PhotoRequirements struct {
	Subjects  []string `json:"subjects,omitempty"`
	TimeOfDay string   `json:"timeOfDay,omitempty"`
	MinWidth  int      `json:"minWidth,omitempty"`
	MinHeight int      `json:"minHeight,omitempty"`
}

// swagger:model Quest
type Quest struct {
	BaseModel
	Title        string          `gorm:"size:200;not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Category     string          `gorm:"size:50;index" json:"category"`
	Difficulty   QuestDifficulty `gorm:"size:20;default:'beginner'" json:"difficulty"`
	Latitude     float64         `gorm:"type:decimal(10,8);not null" json:"latitude"`
	Longitude    float64         `gorm:"type:decimal(11,8);not null" json:"longitude"`
	RadiusMeters float64         `gorm:"default:100" json:"radiusMeters"`
	MinLevel     int             `gorm:"default:1" json:"minLevel"`
	// MaxAttempts 0 表示不限制
	MaxAttempts int `gorm:"default:0" json:"maxAttempts"`
	// Available hours as decimal time-of-day, e.g. 8.5 = 08:30. Nil = always open.
	AvailableFrom *float64 `json:"availableFrom,omitempty"`
	AvailableTo   *float64 `json:"availableTo,omitempty"`

	BaseXP         int `gorm:"default:50" json:"baseXp"`
	FirstTimeBonus int `gorm:"default:0" json:"firstTimeBonus"`
	SpeedBonus     int `gorm:"default:0" json:"speedBonus"`
	QualityBonus   int `gorm:"default:0" json:"qualityBonus"`

	PhotoRequirements datatypes.JSONType[PhotoRequirements] `json:"photoRequirements"`

	IsArchived bool `gorm:"default:false" json:"isArchived"`
	CreatorID  uint `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Quest) TableName() string {
	return "quests"
}
