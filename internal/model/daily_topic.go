package model

import "time"

// DailyTopic 每个 (plan, day) 至多一条，重新生成时先删后插
type DailyTopic struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SkillPlanID   uint      `gorm:"not null;uniqueIndex:idx_topic_plan_day" json:"skillPlanId"`
	Day           int       `gorm:"not null;uniqueIndex:idx_topic_plan_day" json:"day"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	Content       string    `gorm:"type:text" json:"content"`
	OptionalTip   string    `gorm:"type:text" json:"optionalTip"`
	Model         string    `gorm:"size:100" json:"model"`
	GeneratedAt   time.Time `gorm:"not null" json:"generatedAt"`
	IsRegenerated bool      `gorm:"not null;default:false" json:"isRegenerated"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (DailyTopic) TableName() string {
	return "daily_topics"
}
