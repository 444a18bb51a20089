package repository

import (
	"photoquest_backend/internal/model"

	"gorm.io/gorm"
)

type ModerationRepository struct {
	DB *gorm.DB
}

func NewModerationRepository(db *gorm.DB) *ModerationRepository {
	return &ModerationRepository{DB: db}
}

// Append writes an audit entry. Entries are never updated or deleted.
func (r *ModerationRepository) Append(log *model.ModerationLog) error {
	return r.DB.Create(log).Error
}

func (r *ModerationRepository) ListBySubmission(submissionID string) ([]model.ModerationLog, error) {
	var logs []model.ModerationLog
	err := r.DB.Where("submission_id = ?", submissionID).Order("created_at ASC").Find(&logs).Error
	return logs, err
}
