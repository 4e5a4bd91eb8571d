package service

import (
	"context"
	"errors"
	"fmt"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/repository"
	"skillplan_backend/internal/util"
	"skillplan_backend/pkg/logger"
	"skillplan_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPlanDurationDays = 365

type SkillPlanService struct {
	DB               *gorm.DB
	PlanRepo         *repository.SkillPlanRepository
	SkillRepo        *repository.SkillRepository
	UserRepo         *repository.UserRepository
	TopicRepo        *repository.DailyTopicRepository
	NotificationRepo *repository.NotificationRepository

	cfg   config.PlanConfig
	locks planLocks
	now   func() time.Time
}

func NewSkillPlanService(
	db *gorm.DB,
	planRepo *repository.SkillPlanRepository,
	skillRepo *repository.SkillRepository,
	userRepo *repository.UserRepository,
	topicRepo *repository.DailyTopicRepository,
	notificationRepo *repository.NotificationRepository,
	cfg config.PlanConfig,
) *SkillPlanService {
	return &SkillPlanService{
		DB:               db,
		PlanRepo:         planRepo,
		SkillRepo:        skillRepo,
		UserRepo:         userRepo,
		TopicRepo:        topicRepo,
		NotificationRepo: notificationRepo,
		cfg:              cfg,
		now:              time.Now,
	}
}

type CreatePlanRequest struct {
	TargetLevel    string `json:"targetLevel"`
	DurationInDays int    `json:"durationInDays"`
}

// PlanSnapshot 计划对外视图
type PlanSnapshot struct {
	ID                 uint                      `json:"id"`
	SkillID            uint                      `json:"skillId"`
	SkillTitle         string                    `json:"skillTitle,omitempty"`
	UserID             uint                      `json:"userId"`
	TargetLevel        model.TargetLevel         `json:"targetLevel"`
	DurationInDays     int                       `json:"durationInDays"`
	CurrentDay         int                       `json:"currentDay"`
	CompletedDays      []int                     `json:"completedDays"`
	CompletedSubtopics []model.CompletedSubtopic `json:"completedSubtopics"`
	Status             model.PlanStatus          `json:"status"`
	IsCompleted        bool                      `json:"isCompleted"`
	LastDeliveredNote  *time.Time                `json:"lastDeliveredNote"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

func NewPlanSnapshot(p *model.SkillPlan) PlanSnapshot {
	snap := PlanSnapshot{
		ID:                 p.ID,
		SkillID:            p.SkillID,
		UserID:             p.UserID,
		TargetLevel:        p.TargetLevel,
		DurationInDays:     p.DurationInDays,
		CurrentDay:         p.CurrentDay,
		CompletedDays:      append([]int{}, p.CompletedDays...),
		CompletedSubtopics: append([]model.CompletedSubtopic{}, p.CompletedSubtopics...),
		Status:             p.Status,
		IsCompleted:        p.IsCompleted(),
		LastDeliveredNote:  p.LastDeliveredNote,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.Skill != nil {
		snap.SkillTitle = p.Skill.Title
	}
	return snap
}

// DayCompletion completeDay 的返回结果
type DayCompletion struct {
	Plan          PlanSnapshot         `json:"plan"`
	CompletedDay  int                  `json:"completedDay"`
	Streak        int                  `json:"streak"`
	LongestStreak int                  `json:"longestStreak"`
	Notifications []model.Notification `json:"notifications"`
}

func (s *SkillPlanService) CreatePlan(userID, skillID uint, req CreatePlanRequest) (*PlanSnapshot, error) {
	skill, err := s.SkillRepo.FindByID(skillID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: skill %d", util.ErrNotFound, skillID)
		}
		return nil, err
	}

	level := skill.Level
	if req.TargetLevel != "" {
		parsed, ok := model.ParseTargetLevel(req.TargetLevel)
		if !ok {
			return nil, fmt.Errorf("%w: unknown target level %q", util.ErrValidation, req.TargetLevel)
		}
		level = parsed
	}
	if level == "" {
		level = model.LevelBeginner
	}

	duration := req.DurationInDays
	if duration == 0 {
		duration = s.cfg.DefaultDurationDays
	}
	if duration < 1 || duration > maxPlanDurationDays {
		return nil, fmt.Errorf("%w: durationInDays must be between 1 and %d", util.ErrValidation, maxPlanDurationDays)
	}

	if _, err := s.PlanRepo.FindByUserAndSkill(userID, skillID); err == nil {
		return nil, fmt.Errorf("%w: a plan for this skill already exists", util.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	plan := model.NewSkillPlan(userID, skillID, level, duration)
	if err := s.PlanRepo.Create(plan); err != nil {
		// 并发创建时唯一索引兜底
		if _, findErr := s.PlanRepo.FindByUserAndSkill(userID, skillID); findErr == nil {
			return nil, fmt.Errorf("%w: a plan for this skill already exists", util.ErrConflict)
		}
		return nil, err
	}
	plan.Skill = skill

	logger.Log.Info("Skill plan created",
		zap.Uint("user_id", userID),
		zap.Uint("skill_id", skillID),
		zap.Int("duration", duration),
	)
	snap := NewPlanSnapshot(plan)
	return &snap, nil
}

// OwnedPlan 读取计划并校验归属
func (s *SkillPlanService) OwnedPlan(planID, userID uint) (*model.SkillPlan, error) {
	plan, err := s.PlanRepo.FindByID(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: plan %d", util.ErrNotFound, planID)
		}
		return nil, err
	}
	if plan.UserID != userID {
		return nil, fmt.Errorf("%w: plan %d belongs to another user", util.ErrForbidden, planID)
	}
	return plan, nil
}

func (s *SkillPlanService) GetPlan(planID, userID uint) (*PlanSnapshot, error) {
	plan, err := s.OwnedPlan(planID, userID)
	if err != nil {
		return nil, err
	}
	snap := NewPlanSnapshot(plan)
	return &snap, nil
}

func (s *SkillPlanService) ListPlans(userID uint) ([]PlanSnapshot, error) {
	plans, err := s.PlanRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	result := make([]PlanSnapshot, 0, len(plans))
	for i := range plans {
		result = append(result, NewPlanSnapshot(&plans[i]))
	}
	return result, nil
}

// CompleteDay 完成当前天：追加已学主题、推进或结束计划、更新连续天数并生成通知，
// 计划、用户和通知在同一事务内写入。
func (s *SkillPlanService) CompleteDay(ctx context.Context, planID, actorID uint) (*DayCompletion, error) {
	unlock := s.locks.lock(planID)
	defer unlock()

	now := s.now()
	var result *DayCompletion

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plans := s.PlanRepo.WithTx(tx)
		users := s.UserRepo.WithTx(tx)
		topics := s.TopicRepo.WithTx(tx)
		notifications := s.NotificationRepo.WithTx(tx)

		plan, err := plans.LockByID(planID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: plan %d", util.ErrNotFound, planID)
			}
			return err
		}
		if plan.UserID != actorID {
			return fmt.Errorf("%w: plan %d belongs to another user", util.ErrForbidden, planID)
		}
		if plan.IsCompleted() {
			return fmt.Errorf("%w: plan is already completed", util.ErrConflict)
		}
		if plan.HasCompletedDay(plan.CurrentDay) {
			return fmt.Errorf("%w: day %d is already completed", util.ErrConflict, plan.CurrentDay)
		}

		user, err := users.LockByID(actorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrUserNotFound
			}
			return err
		}
		if s.cfg.EnforceDailyUnlock && plan.LastDeliveredNote != nil &&
			sameCalendarDay(*plan.LastDeliveredNote, now, user.Location()) {
			return fmt.Errorf("%w: a day was already completed today, the next day unlocks tomorrow", util.ErrConflict)
		}

		expectedVersion := plan.Version
		completedDay := plan.CurrentDay

		topic, err := topics.FindByPlanAndDay(plan.ID, completedDay)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		topicTitle := ""
		if topic != nil {
			topicTitle = topic.Title
			if !plan.HasSubtopic(topic.Title) {
				plan.CompletedSubtopics = append(plan.CompletedSubtopics, model.CompletedSubtopic{
					Title:       topic.Title,
					CompletedAt: now,
				})
			}
		}

		plan.CompletedDays = append(plan.CompletedDays, completedDay)

		justCompleted := false
		if completedDay >= plan.DurationInDays {
			plan.Status = model.PlanCompleted
			plan.CurrentDay = plan.DurationInDays
			user.AddCompletedSkill(plan.SkillID)
			justCompleted = true
		} else {
			plan.CurrentDay++
		}

		plan.LastDeliveredNote = &now

		UpdateStreak(user, now)

		skillTitle := ""
		skill, err := s.SkillRepo.WithTx(tx).FindByID(plan.SkillID)
		switch {
		case err == nil:
			skillTitle = skill.Title
			plan.Skill = skill
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		notes := BuildCompletionNotifications(CompletionOutcome{
			UserID:         user.ID,
			CompletedDay:   completedDay,
			TopicTitle:     topicTitle,
			SkillTitle:     skillTitle,
			DurationInDays: plan.DurationInDays,
			PlanCompleted:  justCompleted,
			Streak:         user.Streak,
			Preferences:    user.NotificationPreferences,
		})

		updated, err := plans.UpdateTransition(plan, expectedVersion)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: plan was modified concurrently", util.ErrConflict)
		}
		if err := users.UpdateProgress(user); err != nil {
			return err
		}
		if err := notifications.CreateBatch(notes); err != nil {
			return err
		}

		plan.UpdatedAt = now
		result = &DayCompletion{
			Plan:          NewPlanSnapshot(plan),
			CompletedDay:  completedDay,
			Streak:        user.Streak,
			LongestStreak: user.LongestStreak,
			Notifications: notes,
		}
		return nil
	})
	if err != nil {
		err = classifyPersistence(err)
		monitoring.PlanTransitions.WithLabelValues(transitionOutcome(err)).Inc()
		if errors.Is(err, util.ErrPersistence) {
			logger.Log.Error("Day completion rolled back",
				zap.Uint("plan_id", planID),
				zap.Uint("user_id", actorID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	monitoring.PlanTransitions.WithLabelValues("success").Inc()
	for _, n := range result.Notifications {
		monitoring.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	}
	logger.Log.Info("Plan day completed",
		zap.Uint("plan_id", planID),
		zap.Uint("user_id", actorID),
		zap.Int("day", result.CompletedDay),
		zap.Bool("plan_completed", result.Plan.IsCompleted),
		zap.Int("streak", result.Streak),
	)
	return result, nil
}

var domainErrors = []error{
	util.ErrValidation,
	util.ErrNotFound,
	util.ErrUserNotFound,
	util.ErrForbidden,
	util.ErrConflict,
	util.ErrRateLimited,
	util.ErrUpstream,
	util.ErrGenerationAuth,
	util.ErrPersistence,
}

// classifyPersistence 未归类的存储错误统一包装为 ErrPersistence
func classifyPersistence(err error) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", util.ErrPersistence, err)
}

func transitionOutcome(err error) string {
	switch {
	case errors.Is(err, util.ErrConflict):
		return "conflict"
	case errors.Is(err, util.ErrForbidden):
		return "forbidden"
	case errors.Is(err, util.ErrNotFound), errors.Is(err, util.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}
