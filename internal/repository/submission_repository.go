package repository

import (
	"photoquest_backend/internal/model"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(tx *gorm.DB, submission *model.Submission) error {
	return tx.Create(submission).Error
}

func (r *SubmissionRepository) FindByID(id string) (*model.Submission, error) {
	var submission model.Submission
	err := r.DB.Where("id = ?", id).First(&submission).Error
	return &submission, err
}

// SettleReview flips a pending submission to its final status. Only rows still
// in pending_review match, so of two concurrent resolutions exactly one wins.
func (r *SubmissionRepository) SettleReview(id string, status model.ModerationStatus, updates map[string]interface{}) (int64, error) {
	updates["moderation_status"] = status
	result := r.DB.Model(&model.Submission{}).
		Where("id = ? AND moderation_status = ?", id, model.ModerationPending).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *SubmissionRepository) ListPendingReview(page, limit int) ([]model.Submission, int64, error) {
	var submissions []model.Submission
	var total int64

	query := r.DB.Model(&model.Submission{}).Where("moderation_status = ?", model.ModerationPending)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Offset(offset).Limit(limit).Order("submitted_at ASC").Find(&submissions).Error
	return submissions, total, err
}

// CreateVote inserts the unique (submission, voter) row and bumps the counter
// in one transaction. A duplicate vote fails on the unique index.
func (r *SubmissionRepository) CreateVote(submissionID string, voterID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		vote := &model.Vote{SubmissionID: submissionID, VoterID: voterID}
		if err := tx.Create(vote).Error; err != nil {
			return err
		}
		return tx.Model(&model.Submission{}).
			Where("id = ?", submissionID).
			Update("votes", gorm.Expr("votes + ?", 1)).Error
	})
}

// CountVotesReceived sums votes across all of a user's submissions.
func (r *SubmissionRepository) CountVotesReceived(userID uint) (int64, error) {
	var total int64
	err := r.DB.Model(&model.Submission{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(votes), 0)").
		Scan(&total).Error
	return total, err
}
