package repository

import (
	"skillplan_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SkillPlanRepository struct {
	DB *gorm.DB
}

func NewSkillPlanRepository(db *gorm.DB) *SkillPlanRepository {
	return &SkillPlanRepository{DB: db}
}

func (r *SkillPlanRepository) WithTx(tx *gorm.DB) *SkillPlanRepository {
	return &SkillPlanRepository{DB: tx}
}

func (r *SkillPlanRepository) Create(plan *model.SkillPlan) error {
	return r.DB.Create(plan).Error
}

func (r *SkillPlanRepository) FindByID(id uint) (*model.SkillPlan, error) {
	var plan model.SkillPlan
	err := r.DB.Preload("Skill").First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *SkillPlanRepository) FindByUserAndSkill(userID, skillID uint) (*model.SkillPlan, error) {
	var plan model.SkillPlan
	err := r.DB.Where("user_id = ? AND skill_id = ?", userID, skillID).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *SkillPlanRepository) FindByUserID(userID uint) ([]model.SkillPlan, error) {
	var plans []model.SkillPlan
	err := r.DB.Preload("Skill").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&plans).Error
	return plans, err
}

// FindActive 返回所有进行中的计划，供提醒任务使用
func (r *SkillPlanRepository) FindActive() ([]model.SkillPlan, error) {
	var plans []model.SkillPlan
	err := r.DB.Preload("Skill").
		Where("status = ?", model.PlanActive).
		Order("user_id ASC, id ASC").
		Find(&plans).Error
	return plans, err
}

// LockByID 事务内加行锁读取计划
func (r *SkillPlanRepository) LockByID(id uint) (*model.SkillPlan, error) {
	var plan model.SkillPlan
	err := r.DB.Clauses(clause.Locking{Strength: "UPDATE"}).First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// UpdateTransition 按版本号写回状态迁移，版本不符时返回 false
func (r *SkillPlanRepository) UpdateTransition(plan *model.SkillPlan, expectedVersion int) (bool, error) {
	res := r.DB.Model(&model.SkillPlan{}).
		Where("id = ? AND version = ?", plan.ID, expectedVersion).
		Updates(map[string]interface{}{
			"current_day":         plan.CurrentDay,
			"completed_days":      plan.CompletedDays,
			"completed_subtopics": plan.CompletedSubtopics,
			"status":              plan.Status,
			"last_delivered_note": plan.LastDeliveredNote,
			"version":             expectedVersion + 1,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	plan.Version = expectedVersion + 1
	return true, nil
}
