package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationPreferences 用户通知偏好
type NotificationPreferences struct {
	StreakReminder bool `gorm:"not null" json:"streakReminder"`
	DailyReminder  bool `gorm:"not null" json:"dailyReminder"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{StreakReminder: true, DailyReminder: true}
}

type User struct {
	BaseModel
	Name     string `gorm:"size:100;not null" json:"name"`
	Email    string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`
	Timezone string `gorm:"size:64" json:"timezone"`

	Streak            int                      `gorm:"not null;default:0" json:"streak"`
	LongestStreak     int                      `gorm:"not null;default:0" json:"longestStreak"`
	LastCompletedDate *time.Time               `json:"lastCompletedDate"`
	CompletedSkills   datatypes.JSONSlice[uint] `gorm:"not null" json:"completedSkills"`

	NotificationPreferences NotificationPreferences `gorm:"embedded;embeddedPrefix:notify_" json:"notificationPreferences"`
}

func (User) TableName() string {
	return "users"
}

// Location 返回用户用于日历计算的时区，未知时退回 UTC
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasCompletedSkill 判断技能是否已在完成列表中
func (u *User) HasCompletedSkill(skillID uint) bool {
	for _, id := range u.CompletedSkills {
		if id == skillID {
			return true
		}
	}
	return false
}

// AddCompletedSkill 幂等地记录完成的技能
func (u *User) AddCompletedSkill(skillID uint) bool {
	if u.HasCompletedSkill(skillID) {
		return false
	}
	u.CompletedSkills = append(u.CompletedSkills, skillID)
	return true
}
