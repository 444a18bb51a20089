package model

import (
	"gorm.io/datatypes"
)

// ModerationLog 审核审计日志，追加写入，不可修改
type ModerationLog struct {
	BaseModel
	SubmissionID string                               `gorm:"size:36;index;not null" json:"submissionId"`
	QuestID      uint                                 `gorm:"index" json:"questId"`
	UserID       uint                                 `gorm:"index" json:"userId"`
	Verdict      ModerationStatus                     `gorm:"size:20;not null" json:"verdict"`
	Confidence   float64                              `json:"confidence"`
	Result       datatypes.JSONType[ModerationResult] `json:"result"`
	ReviewerID   *uint                                `json:"reviewerId,omitempty"`
	Notes        string                               `gorm:"size:255" json:"notes"`
}

func (ModerationLog) TableName() string {
	return "moderation_logs"
}
