package repository

import (
	"skillplan_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NoteRepository struct {
	DB *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{DB: db}
}

// CreateIfAbsent 同一天已有笔记时不写入
func (r *NoteRepository) CreateIfAbsent(note *model.Note) (bool, error) {
	res := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(note)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *NoteRepository) FindByPlanAndDay(userID, planID uint, day int) (*model.Note, error) {
	var note model.Note
	err := r.DB.Where("user_id = ? AND skill_plan_id = ? AND day = ?", userID, planID, day).First(&note).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *NoteRepository) FindByPlan(userID, planID uint) ([]model.Note, error) {
	var notes []model.Note
	err := r.DB.Where("user_id = ? AND skill_plan_id = ?", userID, planID).Order("day ASC").Find(&notes).Error
	return notes, err
}

func (r *NoteRepository) UpdateContent(note *model.Note, content string) error {
	return r.DB.Model(note).Update("content", content).Error
}

// DeleteByPlanAndDay 返回是否删除了记录
func (r *NoteRepository) DeleteByPlanAndDay(userID, planID uint, day int) (bool, error) {
	res := r.DB.Where("user_id = ? AND skill_plan_id = ? AND day = ?", userID, planID, day).Delete(&model.Note{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
