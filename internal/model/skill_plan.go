package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// PlanStatus 计划状态，只有 active 可以继续完成天数
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
)

type CompletedSubtopic struct {
	Title       string    `json:"title"`
	CompletedAt time.Time `json:"completedAt"`
}

type SkillPlan struct {
	BaseModel
	SkillID     uint        `gorm:"not null;uniqueIndex:idx_plan_user_skill" json:"skillId"`
	UserID      uint        `gorm:"not null;index;uniqueIndex:idx_plan_user_skill" json:"userId"`
	Skill       *Skill      `gorm:"foreignKey:SkillID" json:"skill,omitempty"`
	TargetLevel TargetLevel `gorm:"size:20;not null" json:"targetLevel"`

	DurationInDays     int                                   `gorm:"not null" json:"durationInDays"`
	CurrentDay         int                                   `gorm:"not null;default:1" json:"currentDay"`
	CompletedDays      datatypes.JSONSlice[int]               `gorm:"not null" json:"completedDays"`
	CompletedSubtopics datatypes.JSONSlice[CompletedSubtopic] `gorm:"not null" json:"completedSubtopics"`
	Status             PlanStatus                            `gorm:"size:20;not null;index" json:"status"`
	LastDeliveredNote  *time.Time                            `json:"lastDeliveredNote"`

	// Version 每次状态迁移 +1，用于乐观并发校验
	Version int `gorm:"not null;default:0" json:"-"`
}

func (SkillPlan) TableName() string {
	return "skill_plans"
}

// NewSkillPlan 按初始状态创建计划：第 1 天、空集合
func NewSkillPlan(userID, skillID uint, level TargetLevel, duration int) *SkillPlan {
	return &SkillPlan{
		SkillID:            skillID,
		UserID:             userID,
		TargetLevel:        level,
		DurationInDays:     duration,
		CurrentDay:         1,
		CompletedDays:      datatypes.JSONSlice[int]{},
		CompletedSubtopics: datatypes.JSONSlice[CompletedSubtopic]{},
		Status:             PlanActive,
	}
}

func (p *SkillPlan) IsCompleted() bool {
	return p.Status == PlanCompleted
}

func (p *SkillPlan) HasCompletedDay(day int) bool {
	for _, d := range p.CompletedDays {
		if d == day {
			return true
		}
	}
	return false
}

// HasSubtopic 标题比较忽略大小写和多余空白
func (p *SkillPlan) HasSubtopic(title string) bool {
	key := NormalizeTitle(title)
	for _, s := range p.CompletedSubtopics {
		if NormalizeTitle(s.Title) == key {
			return true
		}
	}
	return false
}

// SubtopicTitles 按完成顺序返回已学标题
func (p *SkillPlan) SubtopicTitles() []string {
	titles := make([]string, 0, len(p.CompletedSubtopics))
	for _, s := range p.CompletedSubtopics {
		titles = append(titles, s.Title)
	}
	return titles
}

func NormalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
