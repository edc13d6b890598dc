package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

// ProgressController serves onboarding, the dashboard progress and achievements.
type ProgressController struct {
	progress     *services.ProgressService
	achievements *services.AchievementService
}

// NewProgressController creates a ProgressController.
func NewProgressController(progress *services.ProgressService, achievements *services.AchievementService) *ProgressController {
	return &ProgressController{progress: progress, achievements: achievements}
}

// CompleteOnboarding creates the caller's profile and progress rows if missing.
func (p *ProgressController) CompleteOnboarding(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req services.OnboardingInput
	if !bindJSON(ctx, &req) {
		return
	}
	view, err := p.progress.CompleteOnboarding(ctx.Request.Context(), userID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// GetProgress returns balances, streak and benefits.
func (p *ProgressController) GetProgress(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	view, err := p.progress.Get(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

func (p *ProgressController) ListAchievements(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	list, err := p.achievements.List(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"achievements": list})
}
