package repository

import (
	"photoquest_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressionRepository struct {
	DB *gorm.DB
}

func NewProgressionRepository(db *gorm.DB) *ProgressionRepository {
	return &ProgressionRepository{DB: db}
}

func (r *ProgressionRepository) CreateCompleted(tx *gorm.DB, record *model.CompletedQuest) error {
	return tx.Create(record).Error
}

func (r *ProgressionRepository) HasCompleted(tx *gorm.DB, userID, questID uint) (bool, error) {
	var count int64
	err := tx.Model(&model.CompletedQuest{}).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		Count(&count).Error
	return count > 0, err
}

func (r *ProgressionRepository) CountCompleted(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.CompletedQuest{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *ProgressionRepository) ListCompleted(userID uint, limit int) ([]model.CompletedQuest, error) {
	var records []model.CompletedQuest
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
