package repository

import (
	"photoquest_backend/internal/model"

	"gorm.io/gorm"
)

type QuestRepository struct {
	DB *gorm.DB
}

func NewQuestRepository(db *gorm.DB) *QuestRepository {
	return &QuestRepository{DB: db}
}

func (r *QuestRepository) Create(quest *model.Quest) error {
	return r.DB.Create(quest).Error
}

func (r *QuestRepository) FindByID(id uint) (*model.Quest, error) {
	var quest model.Quest
	err := r.DB.First(&quest, id).Error
	return &quest, err
}

func (r *QuestRepository) Update(quest *model.Quest) error {
	return r.DB.Save(quest).Error
}

func (r *QuestRepository) Archive(id uint) error {
	return r.DB.Model(&model.Quest{}).Where("id = ?", id).Update("is_archived", true).Error
}

// QuestFilter 任务列表筛选条件
type QuestFilter struct {
	Category   string
	Difficulty model.QuestDifficulty
	MaxLevel   int
}

func (r *QuestRepository) List(page, limit int, filter QuestFilter) ([]model.Quest, int64, error) {
	var quests []model.Quest
	var total int64

	query := r.DB.Model(&model.Quest{}).Where("is_archived = ?", false)
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.MaxLevel > 0 {
		query = query.Where("min_level <= ?", filter.MaxLevel)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&quests).Error
	return quests, total, err
}

// FindInBoundingBox returns active quests inside a lat/lon box. The box is a
// coarse pre-filter; precise circular distance is applied by the caller.
func (r *QuestRepository) FindInBoundingBox(minLat, maxLat, minLon, maxLon float64) ([]model.Quest, error) {
	var quests []model.Quest
	err := r.DB.Where("is_archived = ?", false).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLon, maxLon).
		Find(&quests).Error
	return quests, err
}
