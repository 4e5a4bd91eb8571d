package model

import "strings"

// TargetLevel 学习目标等级
type TargetLevel string

const (
	LevelBeginner     TargetLevel = "beginner"
	LevelIntermediate TargetLevel = "intermediate"
	LevelAdvanced     TargetLevel = "advanced"
	LevelExpert       TargetLevel = "expert"
)

// ParseTargetLevel 大小写不敏感地解析等级
func ParseTargetLevel(s string) (TargetLevel, bool) {
	switch l := TargetLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return l, true
	}
	return "", false
}

type Skill struct {
	BaseModel
	Title       string      `gorm:"size:150;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Level       TargetLevel `gorm:"size:20;not null" json:"level"`
	Category    string      `gorm:"size:50;index" json:"category"`
	CreatedBy   uint        `gorm:"index" json:"createdBy"`
}

func (Skill) TableName() string {
	return "skills"
}
