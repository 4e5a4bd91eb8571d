package service

import (
	"context"
	"errors"
	"fmt"
	"skillplan_backend/internal/model"
	"skillplan_backend/internal/repository"
	"skillplan_backend/internal/util"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

const defaultSkillCategory = "general"

type SkillService struct {
	SkillRepo *repository.SkillRepository
	Generator *LessonGenerator
}

func NewSkillService(skillRepo *repository.SkillRepository, generator *LessonGenerator) *SkillService {
	return &SkillService{SkillRepo: skillRepo, Generator: generator}
}

type CreateSkillRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Category    string `json:"category"`
}

// CreateSkill 未提供描述时由模型生成两句话的简介
func (s *SkillService) CreateSkill(ctx context.Context, userID uint, req CreateSkillRequest) (*model.Skill, error) {
	title := strings.TrimSpace(req.Title)
	if n := utf8.RuneCountInString(title); n < 2 || n > 150 {
		return nil, fmt.Errorf("%w: title must be 2-150 characters", util.ErrValidation)
	}

	level := model.LevelBeginner
	if req.Level != "" {
		parsed, ok := model.ParseTargetLevel(req.Level)
		if !ok {
			return nil, fmt.Errorf("%w: unknown level %q", util.ErrValidation, req.Level)
		}
		level = parsed
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		category = defaultSkillCategory
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		prompt := fmt.Sprintf("Give a concise, 2-sentence description of the skill %q for a %s learner. Make it clear, motivating, and informative.", title, level)
		generated, err := s.Generator.GenerateText(context.WithoutCancel(ctx), "You are a concise, encouraging learning coach.", prompt)
		if err != nil {
			return nil, err
		}
		description = generated
	}

	skill := &model.Skill{
		Title:       title,
		Description: description,
		Level:       level,
		Category:    category,
		CreatedBy:   userID,
	}
	if err := s.SkillRepo.Create(skill); err != nil {
		return nil, err
	}
	return skill, nil
}

func (s *SkillService) GetSkill(id uint) (*model.Skill, error) {
	skill, err := s.SkillRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: skill %d", util.ErrNotFound, id)
		}
		return nil, err
	}
	return skill, nil
}

func (s *SkillService) ListSkills(category string) ([]model.Skill, error) {
	return s.SkillRepo.FindAll(strings.ToLower(strings.TrimSpace(category)))
}
