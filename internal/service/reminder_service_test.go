package service

import (
	"context"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/model"
	"testing"
	"time"
)

func TestSendDailyReminders(t *testing.T) {
	f := newFixture(t, config.PlanConfig{EnforceDailyUnlock: true})
	f.plans.now = time.Now

	pending := f.createUser(t, "pending@example.com")
	done := f.createUser(t, "done@example.com")
	muted := f.createUser(t, "muted@example.com")
	muted.NotificationPreferences.DailyReminder = false
	if err := f.users.UpdatePreferences(muted); err != nil {
		t.Fatalf("mute: %v", err)
	}

	skill := f.createSkill(t, "Go")
	f.createPlan(t, pending.ID, skill.ID, 10)
	donePlan := f.createPlan(t, done.ID, skill.ID, 10)
	f.createPlan(t, muted.ID, skill.ID, 10)

	if _, err := f.plans.CompleteDay(context.Background(), donePlan.ID, done.ID); err != nil {
		t.Fatalf("complete day: %v", err)
	}

	svc := NewReminderService(f.plansRep, f.users, f.notes)

	sent, err := svc.SendDailyReminders(context.Background())
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected one reminder, got %d", sent)
	}

	reminders, _ := f.notes.FindByUser(pending.ID, false, nil)
	if len(reminders) != 1 || reminders[0].Type != model.NotificationReminder {
		t.Fatalf("expected a reminder for the pending user, got %+v", reminders)
	}

	again, err := svc.SendDailyReminders(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected no duplicate reminders on the same day, got %d", again)
	}
}
