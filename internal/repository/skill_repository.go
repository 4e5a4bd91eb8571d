package repository

import (
	"skillplan_backend/internal/model"

	"gorm.io/gorm"
)

type SkillRepository struct {
	DB *gorm.DB
}

func NewSkillRepository(db *gorm.DB) *SkillRepository {
	return &SkillRepository{DB: db}
}

func (r *SkillRepository) WithTx(tx *gorm.DB) *SkillRepository {
	return &SkillRepository{DB: tx}
}

func (r *SkillRepository) Create(skill *model.Skill) error {
	return r.DB.Create(skill).Error
}

func (r *SkillRepository) FindByID(id uint) (*model.Skill, error) {
	var skill model.Skill
	err := r.DB.First(&skill, id).Error
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

// FindAll 按分类过滤，category 为空时返回全部
func (r *SkillRepository) FindAll(category string) ([]model.Skill, error) {
	var skills []model.Skill
	query := r.DB.Order("created_at DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Find(&skills).Error
	return skills, err
}
