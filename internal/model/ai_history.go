package model

import (
	"time"

	"gorm.io/datatypes"
)

type GeneratedTopic struct {
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generatedAt"`
	Model       string    `json:"model"`
}

// AiHistory 生成审计记录，只追加不修改
type AiHistory struct {
	ID              uint                               `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint                               `gorm:"not null;index:idx_history_user_plan" json:"userId"`
	SkillPlanID     uint                               `gorm:"not null;index:idx_history_user_plan" json:"skillPlanId"`
	Day             int                                `gorm:"not null" json:"day"`
	GeneratedTopics datatypes.JSONSlice[GeneratedTopic] `gorm:"not null" json:"generatedTopics"`
	CreatedAt       time.Time                          `json:"createdAt"`
}

func (AiHistory) TableName() string {
	return "ai_histories"
}
