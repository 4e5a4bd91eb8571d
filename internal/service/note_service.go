package service

import (
	"errors"
	"fmt"
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/repository"
	"skillplan_backend/internal/util"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

const maxNoteLength = 10000

type NoteService struct {
	Plans    *SkillPlanService
	NoteRepo *repository.NoteRepository
}

func NewNoteService(plans *SkillPlanService, noteRepo *repository.NoteRepository) *NoteService {
	return &NoteService{Plans: plans, NoteRepo: noteRepo}
}

type NoteRequest struct {
	Day     int    `json:"day"`
	Content string `json:"content"`
}

// CreateNote 为已解锁的某一天写笔记，同一天只能有一条
func (s *NoteService) CreateNote(planID, userID uint, req NoteRequest) (*model.Note, error) {
	plan, err := s.Plans.OwnedPlan(planID, userID)
	if err != nil {
		return nil, err
	}
	if err := checkNoteDay(plan, req.Day); err != nil {
		return nil, err
	}
	content, err := cleanNoteContent(req.Content)
	if err != nil {
		return nil, err
	}

	note := &model.Note{
		UserID:      userID,
		SkillID:     plan.SkillID,
		SkillPlanID: plan.ID,
		Day:         req.Day,
		Content:     content,
	}
	created, err := s.NoteRepo.CreateIfAbsent(note)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: a note for day %d already exists", util.ErrConflict, req.Day)
	}
	return note, nil
}

func (s *NoteService) GetNote(planID, userID uint, day int) (*model.Note, error) {
	if _, err := s.Plans.OwnedPlan(planID, userID); err != nil {
		return nil, err
	}
	return s.findNote(planID, userID, day)
}

func (s *NoteService) ListNotes(planID, userID uint) ([]model.Note, error) {
	if _, err := s.Plans.OwnedPlan(planID, userID); err != nil {
		return nil, err
	}
	return s.NoteRepo.FindByPlan(userID, planID)
}

func (s *NoteService) UpdateNote(planID, userID uint, day int, content string) (*model.Note, error) {
	if _, err := s.Plans.OwnedPlan(planID, userID); err != nil {
		return nil, err
	}
	cleaned, err := cleanNoteContent(content)
	if err != nil {
		return nil, err
	}
	note, err := s.findNote(planID, userID, day)
	if err != nil {
		return nil, err
	}
	if err := s.NoteRepo.UpdateContent(note, cleaned); err != nil {
		return nil, err
	}
	note.Content = cleaned
	return note, nil
}

func (s *NoteService) DeleteNote(planID, userID uint, day int) error {
	if _, err := s.Plans.OwnedPlan(planID, userID); err != nil {
		return err
	}
	deleted, err := s.NoteRepo.DeleteByPlanAndDay(userID, planID, day)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: no note for day %d", util.ErrNotFound, day)
	}
	return nil
}

func (s *NoteService) findNote(planID, userID uint, day int) (*model.Note, error) {
	note, err := s.NoteRepo.FindByPlanAndDay(userID, planID, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no note for day %d", util.ErrNotFound, day)
		}
		return nil, err
	}
	return note, nil
}

func checkNoteDay(plan *model.SkillPlan, day int) error {
	if day < 1 || day > plan.DurationInDays {
		return fmt.Errorf("%w: day must be between 1 and %d", util.ErrValidation, plan.DurationInDays)
	}
	if day > plan.CurrentDay {
		return fmt.Errorf("%w: day %d is not unlocked yet", util.ErrConflict, day)
	}
	return nil
}

func cleanNoteContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: note content is required", util.ErrValidation)
	}
	if utf8.RuneCountInString(content) > maxNoteLength {
		return "", fmt.Errorf("%w: note exceeds %d characters", util.ErrValidation, maxNoteLength)
	}
	return content, nil
}
