package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

// SquadController manages squad membership.
type SquadController struct {
	squads *services.SquadService
}

// NewSquadController creates a SquadController.
func NewSquadController(squads *services.SquadService) *SquadController {
	return &SquadController{squads: squads}
}

type squadRef struct {
	SquadID string `json:"squad_id" binding:"required"`
}

func bindSquadRef(ctx *gin.Context) (uuid.UUID, bool) {
	var req squadRef
	if !bindJSON(ctx, &req) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.SquadID)
	if err != nil {
		utils.Fail(ctx, utils.Invalid("invalid squad_id"))
		return uuid.Nil, false
	}
	return id, true
}

// Create makes a squad led by the caller.
func (s *SquadController) Create(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req services.CreateSquadInput
	if !bindJSON(ctx, &req) {
		return
	}
	squad, err := s.squads.Create(ctx.Request.Context(), userID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"squad": squad})
}

func (s *SquadController) Join(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	squadID, ok := bindSquadRef(ctx)
	if !ok {
		return
	}
	squad, err := s.squads.Join(ctx.Request.Context(), userID, squadID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"squad": squad})
}

// Leave removes the caller; a departing leader is replaced by the earliest member.
func (s *SquadController) Leave(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	squadID, ok := bindSquadRef(ctx)
	if !ok {
		return
	}
	squad, err := s.squads.Leave(ctx.Request.Context(), userID, squadID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"squad": squad})
}

func (s *SquadController) Get(ctx *gin.Context) {
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	view, err := s.squads.Get(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, view)
}
