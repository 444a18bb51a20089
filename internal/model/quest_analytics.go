package model

// QuestAnalytics 任务维度计数器
type QuestAnalytics struct {
	BaseModel
	QuestID     uint `gorm:"unique;not null" json:"questId"`
	Attempts    int  `gorm:"default:0" json:"attempts"`
	Completions int  `gorm:"default:0" json:"completions"`
	Rejections  int  `gorm:"default:0" json:"rejections"`
}

func (QuestAnalytics) TableName() string {
	return "quest_analytics"
}
