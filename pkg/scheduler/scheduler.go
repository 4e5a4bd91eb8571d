package scheduler

import (
	"context"
	"fmt"
	"skillplan_backend/pkg/logger"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// ReminderJob 每日提醒任务
type ReminderJob interface {
	SendDailyReminders(ctx context.Context) (int, error)
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	job       ReminderJob
	timeout   time.Duration
}

func New(loc *time.Location, job ReminderJob) *Scheduler {
	s := gocron.NewScheduler(loc)
	// 上一轮未结束时跳过本轮
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		job:       job,
		timeout:   5 * time.Minute,
	}
}

// Start 每天 at (HH:MM) 触发一次提醒任务，非阻塞
func (s *Scheduler) Start(at string) error {
	if _, err := s.scheduler.Every(1).Day().At(at).Do(s.runReminders); err != nil {
		return fmt.Errorf("schedule daily reminders at %q: %w", at, err)
	}
	s.scheduler.StartAsync()
	logger.Log.Info("Reminder scheduler started", zap.String("at", at))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	sent, err := s.job.SendDailyReminders(ctx)
	if err != nil {
		logger.Log.Error("Daily reminder job failed", zap.Error(err))
		return
	}
	logger.Log.Debug("Daily reminder job finished", zap.Int("sent", sent))
}
