package model

import "time"

// Note 用户对某一天课程的笔记，每个 (plan, day) 至多一条
type Note struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	SkillID     uint      `gorm:"not null" json:"skillId"`
	SkillPlanID uint      `gorm:"not null;uniqueIndex:idx_note_plan_day" json:"skillPlanId"`
	Day         int       `gorm:"not null;uniqueIndex:idx_note_plan_day" json:"day"`
	Content     string    `gorm:"type:text" json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Note) TableName() string {
	return "notes"
}
