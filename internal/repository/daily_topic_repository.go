package repository

import (
	"skillplan_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DailyTopicRepository struct {
	DB *gorm.DB
}

func NewDailyTopicRepository(db *gorm.DB) *DailyTopicRepository {
	return &DailyTopicRepository{DB: db}
}

func (r *DailyTopicRepository) WithTx(tx *gorm.DB) *DailyTopicRepository {
	return &DailyTopicRepository{DB: tx}
}

func (r *DailyTopicRepository) FindByPlanAndDay(planID uint, day int) (*model.DailyTopic, error) {
	var topic model.DailyTopic
	err := r.DB.Where("skill_plan_id = ? AND day = ?", planID, day).First(&topic).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *DailyTopicRepository) FindByPlan(planID uint) ([]model.DailyTopic, error) {
	var topics []model.DailyTopic
	err := r.DB.Where("skill_plan_id = ?", planID).Order("day ASC").Find(&topics).Error
	return topics, err
}

// CreateIfAbsent 唯一键冲突时不写入，返回是否真正插入
func (r *DailyTopicRepository) CreateIfAbsent(topic *model.DailyTopic) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(topic)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DailyTopicRepository) Create(topic *model.DailyTopic) error {
	return r.DB.Create(topic).Error
}

func (r *DailyTopicRepository) DeleteByPlanAndDay(planID uint, day int) error {
	return r.DB.Where("skill_plan_id = ? AND day = ?", planID, day).Delete(&model.DailyTopic{}).Error
}
