package repository

import (
	"photoquest_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalyticsRepository struct {
	DB *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{DB: db}
}

func (r *AnalyticsRepository) increment(questID uint, column string) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "quest_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{column: gorm.Expr(column+" + ?", 1)}),
	}).Create(&model.QuestAnalytics{QuestID: questID, Attempts: boolToInt(column == "attempts"),
		Completions: boolToInt(column == "completions"), Rejections: boolToInt(column == "rejections")}).Error
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *AnalyticsRepository) IncrementAttempts(questID uint) error {
	return r.increment(questID, "attempts")
}

func (r *AnalyticsRepository) IncrementCompletions(questID uint) error {
	return r.increment(questID, "completions")
}

func (r *AnalyticsRepository) IncrementRejections(questID uint) error {
	return r.increment(questID, "rejections")
}

func (r *AnalyticsRepository) FindByQuest(questID uint) (*model.QuestAnalytics, error) {
	var analytics model.QuestAnalytics
	err := r.DB.Where("quest_id = ?", questID).First(&analytics).Error
	return &analytics, err
}
