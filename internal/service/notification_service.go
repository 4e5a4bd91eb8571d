package service

import (
	"errors"
	"fmt"
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/repository"
	"skillplan_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// CompletionOutcome 一次完成当日学习后的状态迁移结果
type CompletionOutcome struct {
	UserID         uint
	CompletedDay   int
	TopicTitle     string
	SkillTitle     string
	DurationInDays int
	PlanCompleted  bool
	Streak         int
	Preferences    model.NotificationPreferences
}

// BuildCompletionNotifications 由迁移结果推导通知，不做任何 IO
func BuildCompletionNotifications(o CompletionOutcome) []model.Notification {
	var notifications []model.Notification

	if o.Streak > 1 && o.Preferences.StreakReminder {
		notifications = append(notifications, model.Notification{
			UserID:  o.UserID,
			Type:    model.NotificationReminder,
			Message: fmt.Sprintf("You're on a %d-day streak! Keep it going tomorrow.", o.Streak),
		})
	}

	if o.PlanCompleted {
		notifications = append(notifications, model.Notification{
			UserID:  o.UserID,
			Type:    model.NotificationAchievement,
			Message: fmt.Sprintf("Congratulations! You completed your %d-day plan for %s.", o.DurationInDays, o.SkillTitle),
		})
	}

	progress := fmt.Sprintf("Day %d completed.", o.CompletedDay)
	if o.TopicTitle != "" {
		progress = fmt.Sprintf("Day %d completed: %s.", o.CompletedDay, o.TopicTitle)
	}
	notifications = append(notifications, model.Notification{
		UserID:  o.UserID,
		Type:    model.NotificationProgress,
		Message: progress,
	})

	return notifications
}

type NotificationService struct {
	NotificationRepo *repository.NotificationRepository
	UserRepo         *repository.UserRepository
	now              func() time.Time
}

func NewNotificationService(notificationRepo *repository.NotificationRepository, userRepo *repository.UserRepository) *NotificationService {
	return &NotificationService{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		now:              time.Now,
	}
}

// List filter 为 all / unread / today，today 按用户时区计算
func (s *NotificationService) List(userID uint, filter string) ([]model.Notification, error) {
	switch filter {
	case "", util.NotificationFilterAll:
		return s.NotificationRepo.FindByUser(userID, false, nil)
	case util.NotificationFilterUnread:
		return s.NotificationRepo.FindByUser(userID, true, nil)
	case util.NotificationFilterToday:
		user, err := s.UserRepo.FindByID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrUserNotFound
			}
			return nil, err
		}
		since := startOfDay(s.now(), user.Location())
		return s.NotificationRepo.FindByUser(userID, false, &since)
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", util.ErrValidation, filter)
	}
}

func (s *NotificationService) Get(userID uint, id string) (*model.Notification, error) {
	n, err := s.NotificationRepo.FindByIDAndUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: notification %s", util.ErrNotFound, id)
		}
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) MarkRead(userID uint, id string) (*model.Notification, error) {
	n, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.NotificationRepo.MarkRead(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.NotificationRepo.MarkAllRead(userID)
}

func (s *NotificationService) Delete(userID uint, id string) error {
	n, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	return s.NotificationRepo.Delete(n)
}
