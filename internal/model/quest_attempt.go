package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in-progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptCancelled  AttemptStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transition.
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptCompleted || s == AttemptCancelled
}

// QuestAttempt 一次任务挑战记录；仅由 AttemptService 修改，永不删除（审计需要）
// swagger:model QuestAttempt
type QuestAttempt struct {
	UUIDBase
	QuestID uint          `gorm:"index:idx_attempt_user_quest;not null" json:"questId"`
	UserID  uint          `gorm:"index:idx_attempt_user_quest;index;not null" json:"userId"`
	Status  AttemptStatus `gorm:"size:20;default:'in-progress';index" json:"status"`

	StartedAt   time.Time  `gorm:"not null;index" json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	SubmissionID string `gorm:"size:36" json:"submissionId,omitempty"`

	StartLatitude  *float64 `gorm:"type:decimal(10,8)" json:"startLatitude,omitempty"`
	StartLongitude *float64 `gorm:"type:decimal(11,8)" json:"startLongitude,omitempty"`
}

func (QuestAttempt) TableName() string {
	return "quest_attempts"
}
