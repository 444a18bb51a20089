package service

import (
	"math"
	"sort"

	"photoquest_backend/internal/geo"
	"photoquest_backend/internal/model"
	"photoquest_backend/internal/repository"
	"photoquest_backend/internal/util"
)

// NearbyQuest 附近任务及到中心点的距离
type NearbyQuest struct {
	Quest          model.Quest `json:"quest"`
	DistanceMeters float64     `json:"distanceMeters"`
}

type QuestService struct {
	QuestRepo     *repository.QuestRepository
	AnalyticsRepo *repository.AnalyticsRepository
}

func NewQuestService(questRepo *repository.QuestRepository, analyticsRepo *repository.AnalyticsRepository) *QuestService {
	return &QuestService{QuestRepo: questRepo, AnalyticsRepo: analyticsRepo}
}

func (s *QuestService) List(page, limit int, filter repository.QuestFilter) ([]model.Quest, int64, error) {
	return s.QuestRepo.List(page, limit, filter)
}

func (s *QuestService) Get(id uint) (*model.Quest, error) {
	quest, err := s.QuestRepo.FindByID(id)
	if err != nil || quest.IsArchived {
		return nil, util.ErrQuestNotFound
	}
	return quest, nil
}

// Nearby finds active quests within radiusMeters of the given point, nearest
// first. A bounding box narrows the candidates before the exact haversine
// filter.
func (s *QuestService) Nearby(center geo.Point, radiusMeters float64) ([]NearbyQuest, error) {
	if err := geo.Validate(center); err != nil {
		return nil, err
	}
	if radiusMeters <= 0 {
		radiusMeters = 5000
	}

	radiusKm := radiusMeters / 1000
	latDelta := radiusKm / 111.0
	lonDelta := radiusKm / (111.0 * math.Cos(center.Latitude*math.Pi/180))
	lonDelta = math.Abs(lonDelta)

	candidates, err := s.QuestRepo.FindInBoundingBox(
		center.Latitude-latDelta, center.Latitude+latDelta,
		center.Longitude-lonDelta, center.Longitude+lonDelta,
	)
	if err != nil {
		return nil, err
	}

	nearby := make([]NearbyQuest, 0, len(candidates))
	for _, quest := range candidates {
		distance := geo.Distance(center, geo.Point{Latitude: quest.Latitude, Longitude: quest.Longitude}) * 1000
		if distance <= radiusMeters {
			nearby = append(nearby, NearbyQuest{Quest: quest, DistanceMeters: distance})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})
	return nearby, nil
}

func (s *QuestService) Create(quest *model.Quest) error {
	center := geo.Point{Latitude: quest.Latitude, Longitude: quest.Longitude}
	if err := geo.Validate(center); err != nil {
		return err
	}
	if quest.RadiusMeters <= 0 {
		quest.RadiusMeters = 100
	}
	return s.QuestRepo.Create(quest)
}

func (s *QuestService) Update(quest *model.Quest) error {
	center := geo.Point{Latitude: quest.Latitude, Longitude: quest.Longitude}
	if err := geo.Validate(center); err != nil {
		return err
	}
	return s.QuestRepo.Update(quest)
}

// Archive soft-retires a quest; it disappears from listings and eligibility
// but existing attempts and submissions keep their history.
func (s *QuestService) Archive(id uint) error {
	if _, err := s.QuestRepo.FindByID(id); err != nil {
		return util.ErrQuestNotFound
	}
	return s.QuestRepo.Archive(id)
}

func (s *QuestService) Analytics(questID uint) (*model.QuestAnalytics, error) {
	if _, err := s.QuestRepo.FindByID(questID); err != nil {
		return nil, util.ErrQuestNotFound
	}
	analytics, err := s.AnalyticsRepo.FindByQuest(questID)
	if err != nil {
		// 尚无任何计数时返回零值
		return &model.QuestAnalytics{QuestID: questID}, nil
	}
	return analytics, nil
}
