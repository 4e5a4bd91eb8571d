package repository

import (
	"skillplan_backend/internal/model"

	"gorm.io/gorm"
)

type AiHistoryRepository struct {
	DB *gorm.DB
}

func NewAiHistoryRepository(db *gorm.DB) *AiHistoryRepository {
	return &AiHistoryRepository{DB: db}
}

func (r *AiHistoryRepository) WithTx(tx *gorm.DB) *AiHistoryRepository {
	return &AiHistoryRepository{DB: tx}
}

func (r *AiHistoryRepository) Create(h *model.AiHistory) error {
	return r.DB.Create(h).Error
}

func (r *AiHistoryRepository) FindByUserAndPlan(userID, planID uint) ([]model.AiHistory, error) {
	var history []model.AiHistory
	err := r.DB.Where("user_id = ? AND skill_plan_id = ?", userID, planID).
		Order("day ASC, id ASC").
		Find(&history).Error
	return history, err
}

func (r *AiHistoryRepository) DeleteByUserAndPlan(userID, planID uint) (int64, error) {
	res := r.DB.Where("user_id = ? AND skill_plan_id = ?", userID, planID).Delete(&model.AiHistory{})
	return res.RowsAffected, res.Error
}

func (r *AiHistoryRepository) FindByUser(userID uint) ([]model.AiHistory, error) {
	var history []model.AiHistory
	err := r.DB.Where("user_id = ?", userID).
		Order("skill_plan_id ASC, day ASC, id ASC").
		Find(&history).Error
	return history, err
}
