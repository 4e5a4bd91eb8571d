package service

import (
	"context"
	"errors"
	"fmt"
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/repository"
	"skillplan_backend/internal/util"
	"skillplan_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DailyTopicService struct {
	DB          *gorm.DB
	Plans       *SkillPlanService
	TopicRepo   *repository.DailyTopicRepository
	HistoryRepo *repository.AiHistoryRepository
	Generator   *LessonGenerator

	group singleflight.Group
	now   func() time.Time
}

func NewDailyTopicService(
	db *gorm.DB,
	plans *SkillPlanService,
	topicRepo *repository.DailyTopicRepository,
	historyRepo *repository.AiHistoryRepository,
	generator *LessonGenerator,
) *DailyTopicService {
	return &DailyTopicService{
		DB:          db,
		Plans:       plans,
		TopicRepo:   topicRepo,
		HistoryRepo: historyRepo,
		Generator:   generator,
		now:         time.Now,
	}
}

// EnsureLesson 返回指定天的课程，不存在时生成并保存。day 为 0 表示当前天。
// 生成过程与请求上下文解绑，调用方放弃等待不会中断生成。
func (s *DailyTopicService) EnsureLesson(ctx context.Context, planID, userID uint, day int) (*model.DailyTopic, error) {
	plan, err := s.Plans.OwnedPlan(planID, userID)
	if err != nil {
		return nil, err
	}
	if day == 0 {
		day = plan.CurrentDay
	}
	if day < 1 || day > plan.DurationInDays {
		return nil, fmt.Errorf("%w: day must be between 1 and %d", util.ErrValidation, plan.DurationInDays)
	}
	if day > plan.CurrentDay {
		return nil, fmt.Errorf("%w: day %d is not unlocked yet", util.ErrConflict, day)
	}

	if topic, err := s.TopicRepo.FindByPlanAndDay(planID, day); err == nil {
		return topic, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	completedBefore := plan.HasCompletedDay(day)
	detached := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(fmt.Sprintf("ensure:%d:%d", planID, day), func() (interface{}, error) {
		if topic, err := s.TopicRepo.FindByPlanAndDay(planID, day); err == nil {
			return topic, nil
		}

		lesson, err := s.Generator.Generate(detached, lessonContextFor(plan, day))
		if err != nil {
			return nil, err
		}

		topic := s.newTopic(plan.ID, day, lesson, false)
		var stored *model.DailyTopic
		err = s.writeLocked(detached, plan.ID, func(fresh *model.SkillPlan) error {
			if !completedBefore && fresh.HasCompletedDay(day) {
				return fmt.Errorf("%w: day %d was completed during generation", util.ErrConflict, day)
			}
			return nil
		}, func(tx *gorm.DB) error {
			topics := s.TopicRepo.WithTx(tx)
			created, err := topics.CreateIfAbsent(topic)
			if err != nil {
				return err
			}
			if !created {
				// 其他实例已写入同一天
				stored, err = topics.FindByPlanAndDay(plan.ID, day)
				return err
			}
			stored = topic
			return s.HistoryRepo.WithTx(tx).Create(s.newHistory(plan, day, topic))
		})
		if err != nil {
			return nil, classifyPersistence(err)
		}
		logger.Log.Info("Daily topic generated",
			zap.Uint("plan_id", plan.ID),
			zap.Int("day", day),
			zap.String("title", stored.Title),
		)
		return stored, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.DailyTopic), nil
}

// RegenerateLesson 丢弃当前天的课程并生成新课程，删除与插入在同一事务内
func (s *DailyTopicService) RegenerateLesson(ctx context.Context, planID, userID uint) (*model.DailyTopic, error) {
	plan, err := s.Plans.OwnedPlan(planID, userID)
	if err != nil {
		return nil, err
	}
	if plan.IsCompleted() {
		return nil, fmt.Errorf("%w: plan is already completed", util.ErrConflict)
	}
	day := plan.CurrentDay
	if plan.HasCompletedDay(day) {
		return nil, fmt.Errorf("%w: day %d is already completed", util.ErrConflict, day)
	}

	detached := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(fmt.Sprintf("regenerate:%d:%d", planID, day), func() (interface{}, error) {
		lc := lessonContextFor(plan, day)
		lc.Regenerate = true
		current, err := s.TopicRepo.FindByPlanAndDay(plan.ID, day)
		switch {
		case err == nil:
			lc.Exclude = []string{current.Title}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}

		lesson, err := s.Generator.Generate(detached, lc)
		if err != nil {
			return nil, err
		}

		topic := s.newTopic(plan.ID, day, lesson, true)
		err = s.writeLocked(detached, plan.ID, func(fresh *model.SkillPlan) error {
			switch {
			case fresh.IsCompleted():
				return fmt.Errorf("%w: plan is already completed", util.ErrConflict)
			case fresh.HasCompletedDay(day), fresh.CurrentDay != day:
				return fmt.Errorf("%w: day %d is no longer the current day", util.ErrConflict, day)
			}
			return nil
		}, func(tx *gorm.DB) error {
			topics := s.TopicRepo.WithTx(tx)
			if err := topics.DeleteByPlanAndDay(plan.ID, day); err != nil {
				return err
			}
			if err := topics.Create(topic); err != nil {
				return err
			}
			return s.HistoryRepo.WithTx(tx).Create(s.newHistory(plan, day, topic))
		})
		if err != nil {
			return nil, classifyPersistence(err)
		}
		logger.Log.Info("Daily topic regenerated",
			zap.Uint("plan_id", plan.ID),
			zap.Int("day", day),
			zap.String("title", topic.Title),
		)
		return topic, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.DailyTopic), nil
}

// writeLocked 与 CompleteDay 共用计划锁，事务内重新读取计划并校验后再写入
func (s *DailyTopicService) writeLocked(ctx context.Context, planID uint, check func(*model.SkillPlan) error, write func(tx *gorm.DB) error) error {
	unlock := s.Plans.locks.lock(planID)
	defer unlock()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh, err := s.Plans.PlanRepo.WithTx(tx).LockByID(planID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: plan %d", util.ErrNotFound, planID)
			}
			return err
		}
		if err := check(fresh); err != nil {
			return err
		}
		return write(tx)
	})
}

func (s *DailyTopicService) ListTopics(planID, userID uint) ([]model.DailyTopic, error) {
	if _, err := s.Plans.OwnedPlan(planID, userID); err != nil {
		return nil, err
	}
	return s.TopicRepo.FindByPlan(planID)
}

func (s *DailyTopicService) GetTopicByDay(planID, userID uint, day int) (*model.DailyTopic, error) {
	if _, err := s.Plans.OwnedPlan(planID, userID); err != nil {
		return nil, err
	}
	topic, err := s.TopicRepo.FindByPlanAndDay(planID, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no topic for day %d", util.ErrNotFound, day)
		}
		return nil, err
	}
	return topic, nil
}

// LearnedTopics 按完成顺序返回已学主题
func (s *DailyTopicService) LearnedTopics(planID, userID uint) ([]model.CompletedSubtopic, error) {
	plan, err := s.Plans.OwnedPlan(planID, userID)
	if err != nil {
		return nil, err
	}
	return append([]model.CompletedSubtopic{}, plan.CompletedSubtopics...), nil
}

func (s *DailyTopicService) newTopic(planID uint, day int, lesson *GeneratedLesson, regenerated bool) *model.DailyTopic {
	return &model.DailyTopic{
		SkillPlanID:   planID,
		Day:           day,
		Title:         lesson.Title,
		Description:   lesson.Description,
		Content:       lesson.Content,
		OptionalTip:   lesson.OptionalTip,
		Model:         s.Generator.ModelName(),
		GeneratedAt:   s.now(),
		IsRegenerated: regenerated,
	}
}

func (s *DailyTopicService) newHistory(plan *model.SkillPlan, day int, topic *model.DailyTopic) *model.AiHistory {
	return &model.AiHistory{
		UserID:      plan.UserID,
		SkillPlanID: plan.ID,
		Day:         day,
		GeneratedTopics: datatypes.JSONSlice[model.GeneratedTopic]{{
			Title:       topic.Title,
			GeneratedAt: topic.GeneratedAt,
			Model:       topic.Model,
		}},
	}
}

func lessonContextFor(plan *model.SkillPlan, day int) LessonContext {
	lc := LessonContext{
		TargetLevel:        plan.TargetLevel,
		DurationInDays:     plan.DurationInDays,
		CurrentDay:         day,
		CompletedSubtopics: plan.SubtopicTitles(),
	}
	if plan.Skill != nil {
		lc.SkillName = plan.Skill.Title
		lc.Category = plan.Skill.Category
	}
	return lc
}
