package repository

import (
	"time"

	"photoquest_backend/internal/model"

	"gorm.io/gorm"
)

type TagRepository struct {
	DB *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{DB: db}
}

func (r *TagRepository) ListActive() ([]model.Tag, error) {
	var tags []model.Tag
	err := r.DB.Where("is_active = ?", true).Find(&tags).Error
	return tags, err
}

func (r *TagRepository) ListByUser(userID uint) ([]model.UserTag, error) {
	var tags []model.UserTag
	err := r.DB.Where("user_id = ?", userID).Find(&tags).Error
	return tags, err
}

func (r *TagRepository) Has(userID uint, code string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.UserTag{}).
		Where("user_id = ? AND tag_code = ?", userID, code).
		Count(&count).Error
	return count > 0, err
}

// Unlock appends both the set entry and the history row. The unique index on
// (user, tag) keeps the set append-only even under concurrent rechecks.
func (r *TagRepository) Unlock(userID uint, code string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model.UserTag{UserID: userID, TagCode: code}).Error; err != nil {
			return err
		}
		return tx.Create(&model.TagUnlockHistory{
			UserID:     userID,
			TagCode:    code,
			UnlockedAt: time.Now(),
		}).Error
	})
}

func (r *TagRepository) History(userID uint) ([]model.TagUnlockHistory, error) {
	var history []model.TagUnlockHistory
	err := r.DB.Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&history).Error
	return history, err
}
