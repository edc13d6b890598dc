package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

// NotificationController registers devices and triggers push fan-out.
type NotificationController struct {
	notifications *services.NotificationService
}

// NewNotificationController creates a NotificationController.
func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// RegisterToken stores the caller's device token.
func (n *NotificationController) RegisterToken(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req services.PushTokenInput
	if !bindJSON(ctx, &req) {
		return
	}
	if err := n.notifications.RegisterToken(ctx.Request.Context(), userID, req); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"registered": true})
}

func (n *NotificationController) UnregisterToken(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	if err := n.notifications.UnregisterToken(ctx.Request.Context(), userID, req.Token); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"removed": true})
}

// Send dispatches a notification class. Callers are cron jobs or admins.
func (n *NotificationController) Send(ctx *gin.Context) {
	var req services.NotificationRequest
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := n.notifications.Dispatch(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}
