package repository

import (
	"time"

	"photoquest_backend/internal/model"

	"gorm.io/gorm"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

func (r *AchievementRepository) ListDefs() ([]model.AchievementDef, error) {
	var defs []model.AchievementDef
	err := r.DB.Order("threshold ASC").Find(&defs).Error
	return defs, err
}

func (r *AchievementRepository) ListDefsByType(t model.AchievementType) ([]model.AchievementDef, error) {
	var defs []model.AchievementDef
	err := r.DB.Where("type = ?", t).Order("threshold ASC").Find(&defs).Error
	return defs, err
}

func (r *AchievementRepository) FindDefByCode(code string) (*model.AchievementDef, error) {
	var def model.AchievementDef
	err := r.DB.Where("code = ?", code).First(&def).Error
	return &def, err
}

func (r *AchievementRepository) ListByUser(userID uint) ([]model.UserAchievement, error) {
	var earned []model.UserAchievement
	err := r.DB.Where("user_id = ?", userID).Order("earned_at ASC").Find(&earned).Error
	return earned, err
}

func (r *AchievementRepository) Has(userID uint, code string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.UserAchievement{}).
		Where("user_id = ? AND code = ?", userID, code).
		Count(&count).Error
	return count > 0, err
}

func (r *AchievementRepository) Award(userID uint, code string) error {
	return r.DB.Create(&model.UserAchievement{
		UserID:   userID,
		Code:     code,
		EarnedAt: time.Now(),
	}).Error
}
