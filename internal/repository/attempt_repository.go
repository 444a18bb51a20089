package repository

import (
	"time"

	"photoquest_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.QuestAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id string) (*model.QuestAttempt, error) {
	var attempt model.QuestAttempt
	err := r.DB.Where("id = ?", id).First(&attempt).Error
	return &attempt, err
}

func (r *AttemptRepository) Update(attempt *model.QuestAttempt) error {
	return r.DB.Save(attempt).Error
}

// Settle transitions an in-progress attempt to a terminal status. The guarded
// WHERE clause serializes concurrent settlements: the second caller matches
// zero rows and gets RowsAffected == 0.
func (r *AttemptRepository) Settle(tx *gorm.DB, attemptID string, status model.AttemptStatus, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	res := tx.Model(&model.QuestAttempt{}).
		Where("id = ? AND status = ?", attemptID, model.AttemptInProgress).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *AttemptRepository) CountByUserAndQuest(userID, questID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuestAttempt{}).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		Count(&count).Error
	return count, err
}

// CountStartedBetween counts attempts the user started inside [start, end).
// Used for the daily quota; always queried fresh, never cached.
func (r *AttemptRepository) CountStartedBetween(userID uint, start, end time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuestAttempt{}).
		Where("user_id = ? AND started_at >= ? AND started_at < ?", userID, start, end).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) FindByUser(userID uint, page, limit int) ([]model.QuestAttempt, int64, error) {
	var attempts []model.QuestAttempt
	var total int64

	query := r.DB.Model(&model.QuestAttempt{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Offset(offset).Limit(limit).Order("started_at DESC").Find(&attempts).Error
	return attempts, total, err
}
