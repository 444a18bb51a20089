package testutil

import (
	"testing"

	"photoquest_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 全部模型必须能在sqlite上建表；方言专属的列类型会让整个测试库起不来
func TestSetupTestDBMigratesFullSchema(t *testing.T) {
	db := SetupTestDB(t)

	for _, table := range []string{
		"users", "quests", "quest_attempts", "submissions", "votes",
		"completed_quests", "achievements", "user_achievements",
		"tags", "user_tags", "tag_unlock_history", "moderation_logs",
		"quest_analytics",
	} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	user := &model.User{Name: "ivy", Email: "ivy@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	var fresh model.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Equal(t, model.Player, fresh.Role)
	assert.Equal(t, 1, fresh.Level)
}
