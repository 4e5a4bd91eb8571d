package service

import (
	"context"
	"fmt"
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/repository"
	"skillplan_backend/pkg/logger"
	"skillplan_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
)

type ReminderService struct {
	PlanRepo         *repository.SkillPlanRepository
	UserRepo         *repository.UserRepository
	NotificationRepo *repository.NotificationRepository
	now              func() time.Time
}

func NewReminderService(planRepo *repository.SkillPlanRepository, userRepo *repository.UserRepository, notificationRepo *repository.NotificationRepository) *ReminderService {
	return &ReminderService{
		PlanRepo:         planRepo,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
		now:              time.Now,
	}
}

// SendDailyReminders 对有进行中计划、今天还没有完成任何一天且开启了每日提醒的用户发一条提醒。
// 同一天重复执行不会重复发送。
func (s *ReminderService) SendDailyReminders(ctx context.Context) (int, error) {
	plans, err := s.PlanRepo.FindActive()
	if err != nil {
		return 0, err
	}
	if len(plans) == 0 {
		return 0, nil
	}

	byUser := make(map[uint][]model.SkillPlan)
	var userIDs []uint
	for _, p := range plans {
		if _, ok := byUser[p.UserID]; !ok {
			userIDs = append(userIDs, p.UserID)
		}
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	users, err := s.UserRepo.FindByIDs(userIDs)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var notes []model.Notification
	for _, user := range users {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !user.NotificationPreferences.DailyReminder {
			continue
		}
		loc := user.Location()

		var pending *model.SkillPlan
		doneToday := false
		for i := range byUser[user.ID] {
			p := &byUser[user.ID][i]
			if p.LastDeliveredNote != nil && sameCalendarDay(*p.LastDeliveredNote, now, loc) {
				doneToday = true
				break
			}
			if pending == nil {
				pending = p
			}
		}
		if doneToday || pending == nil {
			continue
		}

		sent, err := s.NotificationRepo.CountByTypeSince(user.ID, model.NotificationReminder, startOfDay(now, loc))
		if err != nil {
			return 0, err
		}
		if sent > 0 {
			continue
		}

		notes = append(notes, model.Notification{
			UserID:  user.ID,
			Type:    model.NotificationReminder,
			Message: reminderMessage(pending, len(byUser[user.ID])),
		})
	}

	if err := s.NotificationRepo.CreateBatch(notes); err != nil {
		return 0, err
	}
	monitoring.NotificationsCreated.WithLabelValues(string(model.NotificationReminder)).Add(float64(len(notes)))
	logger.Log.Info("Daily reminders sent", zap.Int("count", len(notes)))
	return len(notes), nil
}

func reminderMessage(p *model.SkillPlan, activePlans int) string {
	name := "your skill"
	if p.Skill != nil {
		name = p.Skill.Title
	}
	msg := fmt.Sprintf("Day %d of %d for %s is waiting for you today.", p.CurrentDay, p.DurationInDays, name)
	if activePlans > 1 {
		msg += fmt.Sprintf(" You have %d active plans.", activePlans)
	}
	return msg
}
