package model

type NotificationType string

const (
	NotificationSystem      NotificationType = "system"
	NotificationAchievement NotificationType = "achievement"
	NotificationReminder    NotificationType = "reminder"
	NotificationProgress    NotificationType = "progress"
)

type Notification struct {
	UUIDBase
	UserID  uint             `gorm:"not null;index" json:"userId"`
	Message string           `gorm:"size:500;not null" json:"message"`
	Type    NotificationType `gorm:"size:20;not null;index" json:"type"`
	IsRead  bool             `gorm:"not null;default:false" json:"isRead"`
}

func (Notification) TableName() string {
	return "notifications"
}
