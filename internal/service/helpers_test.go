package service

import (
	"context"
	"fmt"
	"path/filepath"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/repository"
	"skillplan_backend/pkg/cache"
	"skillplan_backend/pkg/database"
	"skillplan_backend/pkg/ratelimit"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "skillplan.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fakeReply struct {
	text string
	err  error
}

// fakeModel 按顺序返回预设结果，用完后重复最后一条
type fakeModel struct {
	mu       sync.Mutex
	replies  []fakeReply
	calls    int
	requests []GenerationRequest
}

func newFakeModel(replies ...fakeReply) *fakeModel {
	return &fakeModel{replies: replies}
}

func (m *fakeModel) Generate(_ context.Context, req GenerationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	idx := m.calls
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	m.calls++
	r := m.replies[idx]
	return r.text, r.err
}

func (m *fakeModel) Name() string { return "fake-model" }

func (m *fakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func lessonJSON(title string) string {
	content := "## Overview\n" + strings.Repeat(fmt.Sprintf("%s explained step by step. ", title), 8) +
		"\n\n## Practice\nTry it on a small example."
	return fmt.Sprintf(`{"title": %q, "description": %q, "content": %q, "optionalTip": "Write it down."}`,
		title, "A focused look at "+title+".", content)
}

func newTestGenerator(m LessonModel, maxCalls int) *LessonGenerator {
	g := NewLessonGenerator(m, ratelimit.NewSlidingWindow(maxCalls, time.Minute), cache.NewMemory(100, time.Hour), config.AIConfig{
		MaxAttempts:      3,
		BackoffInitialMS: 1,
		BackoffMaxMS:     2,
	})
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

type fixture struct {
	db       *gorm.DB
	users    *repository.UserRepository
	skills   *repository.SkillRepository
	plansRep *repository.SkillPlanRepository
	topics   *repository.DailyTopicRepository
	notes    *repository.NotificationRepository
	history  *repository.AiHistoryRepository
	plans    *SkillPlanService
	clock    *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, cfg config.PlanConfig) *fixture {
	t.Helper()

	db := newTestDB(t)
	f := &fixture{
		db:       db,
		users:    repository.NewUserRepository(db),
		skills:   repository.NewSkillRepository(db),
		plansRep: repository.NewSkillPlanRepository(db),
		topics:   repository.NewDailyTopicRepository(db),
		notes:    repository.NewNotificationRepository(db),
		history:  repository.NewAiHistoryRepository(db),
		clock:    &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
	}
	if cfg.DefaultDurationDays == 0 {
		cfg.DefaultDurationDays = 30
	}
	f.plans = NewSkillPlanService(db, f.plansRep, f.skills, f.users, f.topics, f.notes, cfg)
	f.plans.now = f.clock.Now
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{
		Name:                    "Learner",
		Email:                   email,
		Password:                "hashed",
		Timezone:                "UTC",
		CompletedSkills:         datatypes.JSONSlice[uint]{},
		NotificationPreferences: model.DefaultNotificationPreferences(),
	}
	if err := f.users.Create(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) createSkill(t *testing.T, title string) *model.Skill {
	t.Helper()
	s := &model.Skill{Title: title, Description: "Learn " + title, Level: model.LevelBeginner, Category: "programming"}
	if err := f.skills.Create(s); err != nil {
		t.Fatalf("create skill: %v", err)
	}
	return s
}

func (f *fixture) createPlan(t *testing.T, userID, skillID uint, days int) *PlanSnapshot {
	t.Helper()
	plan, err := f.plans.CreatePlan(userID, skillID, CreatePlanRequest{DurationInDays: days})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return plan
}
