package service

import (
	"context"
	"errors"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/repository"
	"skillplan_backend/internal/util"
	"strings"
	"testing"
)

func newNoteFixture(t *testing.T) (*fixture, *NoteService) {
	t.Helper()
	f := newFixture(t, config.PlanConfig{EnforceDailyUnlock: true})
	return f, NewNoteService(f.plans, repository.NewNoteRepository(f.db))
}

func TestNoteLifecycle(t *testing.T) {
	f, svc := newNoteFixture(t)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 5)

	note, err := svc.CreateNote(plan.ID, user.ID, NoteRequest{Day: 1, Content: "  goroutines are cheap  "})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if note.Content != "goroutines are cheap" || note.SkillID != skill.ID || note.Day != 1 {
		t.Fatalf("unexpected note: %+v", note)
	}
	if _, err := svc.CreateNote(plan.ID, user.ID, NoteRequest{Day: 1, Content: "again"}); !errors.Is(err, util.ErrConflict) {
		t.Fatalf("expected conflict for second note on the same day, got %v", err)
	}

	updated, err := svc.UpdateNote(plan.ID, user.ID, 1, "channels need an owner")
	if err != nil || updated.Content != "channels need an owner" {
		t.Fatalf("update note: %+v (%v)", updated, err)
	}
	got, err := svc.GetNote(plan.ID, user.ID, 1)
	if err != nil || got.Content != "channels need an owner" {
		t.Fatalf("get note: %+v (%v)", got, err)
	}

	if err := svc.DeleteNote(plan.ID, user.ID, 1); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	if err := svc.DeleteNote(plan.ID, user.ID, 1); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := svc.GetNote(plan.ID, user.ID, 1); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestNoteValidation(t *testing.T) {
	f, svc := newNoteFixture(t)
	user := f.createUser(t, "a@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, user.ID, skill.ID, 5)

	cases := []struct {
		name string
		req  NoteRequest
		want error
	}{
		{name: "empty content", req: NoteRequest{Day: 1, Content: "   "}, want: util.ErrValidation},
		{name: "too long", req: NoteRequest{Day: 1, Content: strings.Repeat("x", maxNoteLength+1)}, want: util.ErrValidation},
		{name: "day zero", req: NoteRequest{Day: 0, Content: "x"}, want: util.ErrValidation},
		{name: "past duration", req: NoteRequest{Day: 6, Content: "x"}, want: util.ErrValidation},
		{name: "locked day", req: NoteRequest{Day: 3, Content: "x"}, want: util.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateNote(plan.ID, user.ID, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if _, err := svc.UpdateNote(plan.ID, user.ID, 1, "x"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected not found updating a missing note, got %v", err)
	}
}

func TestNotesAreScopedToOwner(t *testing.T) {
	f, svc := newNoteFixture(t)
	owner := f.createUser(t, "a@example.com")
	other := f.createUser(t, "b@example.com")
	skill := f.createSkill(t, "Go")
	plan := f.createPlan(t, owner.ID, skill.ID, 5)

	if _, err := svc.CreateNote(plan.ID, owner.ID, NoteRequest{Day: 1, Content: "mine"}); err != nil {
		t.Fatalf("create note: %v", err)
	}
	if _, err := f.plans.CompleteDay(context.Background(), plan.ID, owner.ID); err != nil {
		t.Fatalf("complete day: %v", err)
	}
	if _, err := svc.CreateNote(plan.ID, owner.ID, NoteRequest{Day: 2, Content: "unlocked now"}); err != nil {
		t.Fatalf("note on newly unlocked day: %v", err)
	}

	if _, err := svc.ListNotes(plan.ID, other.ID); !errors.Is(err, util.ErrForbidden) {
		t.Fatalf("expected forbidden for another user, got %v", err)
	}
	if err := svc.DeleteNote(plan.ID, other.ID, 1); !errors.Is(err, util.ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if _, err := svc.ListNotes(9999, owner.ID); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected not found for missing plan, got %v", err)
	}

	notes, err := svc.ListNotes(plan.ID, owner.ID)
	if err != nil || len(notes) != 2 || notes[0].Day != 1 || notes[1].Day != 2 {
		t.Fatalf("unexpected notes %+v (%v)", notes, err)
	}
}
