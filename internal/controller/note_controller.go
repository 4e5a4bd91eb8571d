package controller

import (
	"skillplan_backend/internal/service"
	"skillplan_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NoteController struct {
	NoteService *service.NoteService
}

func NewNoteController(noteService *service.NoteService) *NoteController {
	return &NoteController{NoteService: noteService}
}

type updateNoteRequest struct {
	Content string `json:"content"`
}

// CreateNote godoc
// @Summary 为某一天写笔记
// @Tags 笔记
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Param   body body service.NoteRequest true "笔记"
// @Success 201 {object} util.Response{data=model.Note}
// @Failure 409 {object} util.Response "当天已有笔记或尚未解锁"
// @Router /api/plans/{id}/notes [post]
func (c *NoteController) CreateNote(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.NoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	note, err := c.NoteService.CreateNote(planID, userID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, note)
}

// ListNotes godoc
// @Summary 计划下的全部笔记
// @Tags 笔记
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "计划ID"
// @Success 200 {object} util.Response{data=[]model.Note}
// @Router /api/plans/{id}/notes [get]
func (c *NoteController) ListNotes(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	planID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	notes, err := c.NoteService.ListNotes(planID, userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, notes)
}

func (c *NoteController) GetNote(ctx *gin.Context) {
	userID, planID, day, ok := noteParams(ctx)
	if !ok {
		return
	}
	note, err := c.NoteService.GetNote(planID, userID, day)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, note)
}

func (c *NoteController) UpdateNote(ctx *gin.Context) {
	userID, planID, day, ok := noteParams(ctx)
	if !ok {
		return
	}
	var req updateNoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	note, err := c.NoteService.UpdateNote(planID, userID, day, req.Content)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, note)
}

func (c *NoteController) DeleteNote(ctx *gin.Context) {
	userID, planID, day, ok := noteParams(ctx)
	if !ok {
		return
	}
	if err := c.NoteService.DeleteNote(planID, userID, day); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func noteParams(ctx *gin.Context) (userID, planID uint, day int, ok bool) {
	if userID, ok = currentUserID(ctx); !ok {
		return
	}
	if planID, ok = pathID(ctx, "id"); !ok {
		return
	}
	day, ok = util.ParsePositiveInt(ctx.Param("day"))
	if !ok {
		util.BadRequest(ctx, "无效的day")
	}
	return
}
