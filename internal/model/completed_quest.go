package model

// CompletedQuest 完成记录，追加写入；首次完成奖励依赖它判断
type CompletedQuest struct {
	BaseModel
	UserID          uint   `gorm:"index:idx_completed_user_quest;not null" json:"userId"`
	QuestID         uint   `gorm:"index:idx_completed_user_quest;not null" json:"questId"`
	AttemptID       string `gorm:"size:36" json:"attemptId"`
	AwardedXP       int    `json:"awardedXp"`
	DurationSeconds int    `json:"durationSeconds"`
}

func (CompletedQuest) TableName() string {
	return "completed_quests"
}
