package repository

import (
	"testing"
	"time"

	"photoquest_backend/internal/model"
	"photoquest_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleReviewMatchesOnlyPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewSubmissionRepository(db)

	sub := &model.Submission{
		AttemptID: "a-1", QuestID: 1, UserID: 1,
		ModerationStatus: model.ModerationPending,
		SubmittedAt:      time.Now(),
	}
	require.NoError(t, repo.Create(db, sub))

	rows, err := repo.SettleReview(sub.ID, model.ModerationApproved, map[string]interface{}{
		"reward_settled": true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	// 第二次裁决匹配不到 pending 行
	rows, err = repo.SettleReview(sub.ID, model.ModerationRejected, map[string]interface{}{
		"reward_settled": true,
	})
	require.NoError(t, err)
	assert.Zero(t, rows)

	fresh, err := repo.FindByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModerationApproved, fresh.ModerationStatus)
	assert.True(t, fresh.RewardSettled)
}
