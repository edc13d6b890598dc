package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/respiralivre/api/middleware"
	"github.com/respiralivre/api/utils"
)

// currentUser returns the authenticated caller or writes 401.
func currentUser(ctx *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Fail(ctx, utils.NewError(utils.KindUnauthorized, "unauthorized"))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body into req or writes 400.
func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		utils.Fail(ctx, utils.Invalid("invalid request payload"))
		return false
	}
	return true
}

func uuidParam(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		utils.Fail(ctx, utils.Invalid("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func uintParam(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || n == 0 {
		utils.Fail(ctx, utils.Invalid("invalid "+name))
		return 0, false
	}
	return uint(n), true
}
