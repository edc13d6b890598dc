package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

// CheckinController exposes the daily check-in.
type CheckinController struct {
	checkins *services.CheckinService
}

// NewCheckinController creates a CheckinController.
func NewCheckinController(checkins *services.CheckinService) *CheckinController {
	return &CheckinController{checkins: checkins}
}

// Submit settles today's check-in.
func (c *CheckinController) Submit(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req services.CheckinInput
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := c.checkins.Submit(ctx.Request.Context(), userID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Status reports whether today's check-in is done and the current streak.
func (c *CheckinController) Status(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	status, err := c.checkins.Status(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, status)
}

// History lists past check-ins; ?limit= caps the result.
func (c *CheckinController) History(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	list, err := c.checkins.History(ctx.Request.Context(), userID, limit)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"checkins": list})
}

// UseStreakFreeze spends a freeze to bridge a single missed day.
func (c *CheckinController) UseStreakFreeze(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	progress, err := c.checkins.UseStreakFreeze(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"progress": progress})
}
