package service

import (
	"context"
	"errors"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/util"
	"sync"
	"testing"
	"time"
)

func newTopicFixture(t *testing.T, m LessonModel) (*fixture, *DailyTopicService) {
	t.Helper()
	f := newFixture(t, config.PlanConfig{EnforceDailyUnlock: true})
	svc := NewDailyTopicService(f.db, f.plans, f.topics, f.history, newTestGenerator(m, 10))
	svc.now = f.clock.Now
	return f, svc
}

func TestEnsureLessonGeneratesOnce(t *testing.T) {
	m := newFakeModel(fakeReply{text: lessonJSON("Hello, World")})
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 10)

	topic, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 0)
	if err != nil {
		t.Fatalf("ensure lesson: %v", err)
	}
	if topic.Day != 1 || topic.Title != "Hello, World" || topic.Model != "fake-model" || topic.IsRegenerated {
		t.Fatalf("unexpected topic: %+v", topic)
	}

	again, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 1)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if again.ID != topic.ID || m.Calls() != 1 {
		t.Fatalf("expected stored topic to be reused, got id %d after %d calls", again.ID, m.Calls())
	}

	history, err := f.history.FindByUserAndPlan(user.ID, plan.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one history entry, got %d (%v)", len(history), err)
	}
	if history[0].GeneratedTopics[0].Title != "Hello, World" {
		t.Fatalf("unexpected history: %+v", history[0])
	}
}

func TestEnsureLessonConcurrentCallersShareTopic(t *testing.T) {
	m := newFakeModel(fakeReply{text: lessonJSON("Hello, World")})
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 10)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 0); err != nil {
				t.Errorf("ensure lesson: %v", err)
			}
		}()
	}
	wg.Wait()

	topics, err := f.topics.FindByPlan(plan.ID)
	if err != nil || len(topics) != 1 {
		t.Fatalf("expected exactly one topic, got %d (%v)", len(topics), err)
	}
}

func TestEnsureLessonDayBounds(t *testing.T) {
	m := newFakeModel(fakeReply{text: lessonJSON("Hello, World")})
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 5)

	if _, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 6); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error past duration, got %v", err)
	}
	if _, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 3); !errors.Is(err, util.ErrConflict) {
		t.Fatalf("expected conflict for locked day, got %v", err)
	}
	if m.Calls() != 0 {
		t.Fatalf("rejected requests must not call the model, got %d", m.Calls())
	}
}

func TestEnsureLessonDetachedFromCaller(t *testing.T) {
	m := newFakeModel(fakeReply{text: lessonJSON("Hello, World")})
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.EnsureLesson(ctx, plan.ID, user.ID, 0); err != nil {
		t.Fatalf("cancelled caller must not abort generation: %v", err)
	}
}

func TestRegenerateLessonReplacesTopic(t *testing.T) {
	m := newFakeModel(
		fakeReply{text: lessonJSON("Hello, World")},
		fakeReply{text: lessonJSON("Packages and Modules")},
	)
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 5)

	if _, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 0); err != nil {
		t.Fatalf("ensure lesson: %v", err)
	}
	topic, err := svc.RegenerateLesson(context.Background(), plan.ID, user.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if topic.Title != "Packages and Modules" || !topic.IsRegenerated {
		t.Fatalf("unexpected regenerated topic: %+v", topic)
	}

	topics, _ := f.topics.FindByPlan(plan.ID)
	if len(topics) != 1 || topics[0].Title != "Packages and Modules" {
		t.Fatalf("expected the old topic to be replaced, got %+v", topics)
	}
	history, _ := f.history.FindByUserAndPlan(user.ID, plan.ID)
	if len(history) != 2 {
		t.Fatalf("expected two history entries, got %d", len(history))
	}
}

func TestRegenerateLessonRejectsCompletedDay(t *testing.T) {
	m := newFakeModel(fakeReply{text: lessonJSON("Hello, World")})
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 1)

	if _, err := f.plans.CompleteDay(context.Background(), plan.ID, user.ID); err != nil {
		t.Fatalf("complete day: %v", err)
	}
	if _, err := svc.RegenerateLesson(context.Background(), plan.ID, user.ID); !errors.Is(err, util.ErrConflict) {
		t.Fatalf("expected conflict on completed plan, got %v", err)
	}
}

func TestCompletedTopicFeedsNextPrompt(t *testing.T) {
	m := newFakeModel(
		fakeReply{text: lessonJSON("Hello, World")},
		fakeReply{text: lessonJSON("Variables")},
	)
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 5)

	if _, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 0); err != nil {
		t.Fatalf("day 1: %v", err)
	}
	if _, err := f.plans.CompleteDay(context.Background(), plan.ID, user.ID); err != nil {
		t.Fatalf("complete day: %v", err)
	}
	f.clock.Advance(24 * time.Hour)

	topic, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 0)
	if err != nil {
		t.Fatalf("day 2: %v", err)
	}
	if topic.Day != 2 {
		t.Fatalf("expected day 2 topic, got %d", topic.Day)
	}

	learned, err := svc.LearnedTopics(plan.ID, user.ID)
	if err != nil || len(learned) != 1 || learned[0].Title != "Hello, World" {
		t.Fatalf("unexpected learned topics %+v (%v)", learned, err)
	}
	if _, err := svc.GetTopicByDay(plan.ID, user.ID, 4); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected not found for missing day, got %v", err)
	}
}

// gatedModel 前 open 次调用直接返回，之后的调用阻塞到 release 关闭
type gatedModel struct {
	mu      sync.Mutex
	calls   int
	open    int
	texts   []string
	started chan struct{}
	release chan struct{}
}

func newGatedModel(open int, texts ...string) *gatedModel {
	return &gatedModel{open: open, texts: texts, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (m *gatedModel) Generate(ctx context.Context, _ GenerationRequest) (string, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.mu.Unlock()
	gated := idx >= m.open
	if idx >= len(m.texts) {
		idx = len(m.texts) - 1
	}
	if gated {
		m.started <- struct{}{}
		select {
		case <-m.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.texts[idx], nil
}

func (m *gatedModel) Name() string { return "gated-model" }

func TestRegenerateLessonLosesToConcurrentCompletion(t *testing.T) {
	m := newGatedModel(1, lessonJSON("Hello, World"), lessonJSON("Packages and Modules"))
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 5)

	if _, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 0); err != nil {
		t.Fatalf("ensure lesson: %v", err)
	}

	regenErr := make(chan error, 1)
	go func() {
		_, err := svc.RegenerateLesson(context.Background(), plan.ID, user.ID)
		regenErr <- err
	}()
	<-m.started

	if _, err := f.plans.CompleteDay(context.Background(), plan.ID, user.ID); err != nil {
		t.Fatalf("complete day: %v", err)
	}
	close(m.release)

	if err := <-regenErr; !errors.Is(err, util.ErrConflict) {
		t.Fatalf("expected conflict after the day was completed, got %v", err)
	}
	topic, err := f.topics.FindByPlanAndDay(plan.ID, 1)
	if err != nil {
		t.Fatalf("find day 1 topic: %v", err)
	}
	if topic.Title != "Hello, World" || topic.IsRegenerated {
		t.Fatalf("completed day 1 lesson was replaced: %+v", topic)
	}
	stored, _ := f.plansRep.FindByID(plan.ID)
	if len(stored.CompletedSubtopics) != 1 || stored.CompletedSubtopics[0].Title != topic.Title {
		t.Fatalf("learned topics out of sync with stored lesson: %+v", stored.CompletedSubtopics)
	}
}

func TestEnsureLessonLosesToConcurrentCompletion(t *testing.T) {
	m := newGatedModel(0, lessonJSON("Hello, World"))
	f, svc := newTopicFixture(t, m)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 5)

	ensureErr := make(chan error, 1)
	go func() {
		_, err := svc.EnsureLesson(context.Background(), plan.ID, user.ID, 0)
		ensureErr <- err
	}()
	<-m.started

	if _, err := f.plans.CompleteDay(context.Background(), plan.ID, user.ID); err != nil {
		t.Fatalf("complete day: %v", err)
	}
	close(m.release)

	if err := <-ensureErr; !errors.Is(err, util.ErrConflict) {
		t.Fatalf("expected conflict after the day was completed, got %v", err)
	}
	topics, _ := f.topics.FindByPlan(plan.ID)
	if len(topics) != 0 {
		t.Fatalf("no lesson should be stored for a day completed mid-generation, got %+v", topics)
	}
}
