package service

import (
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/repository"
)

type AiHistoryService struct {
	HistoryRepo *repository.AiHistoryRepository
	Plans       *SkillPlanService
}

func NewAiHistoryService(historyRepo *repository.AiHistoryRepository, plans *SkillPlanService) *AiHistoryService {
	return &AiHistoryService{HistoryRepo: historyRepo, Plans: plans}
}

// List planID 为 0 时返回该用户全部记录
func (s *AiHistoryService) List(userID, planID uint) ([]model.AiHistory, error) {
	if planID == 0 {
		return s.HistoryRepo.FindByUser(userID)
	}
	if _, err := s.Plans.OwnedPlan(planID, userID); err != nil {
		return nil, err
	}
	return s.HistoryRepo.FindByUserAndPlan(userID, planID)
}

func (s *AiHistoryService) DeleteForPlan(userID, planID uint) (int64, error) {
	if _, err := s.Plans.OwnedPlan(planID, userID); err != nil {
		return 0, err
	}
	return s.HistoryRepo.DeleteByUserAndPlan(userID, planID)
}
