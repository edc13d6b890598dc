package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

// GameController serves the mission, chest, shop and boss ledgers.
type GameController struct {
	missions *services.MissionService
	chests   *services.ChestService
	shop     *services.ShopService
	bosses   *services.BossService
}

// NewGameController creates a GameController.
func NewGameController(missions *services.MissionService, chests *services.ChestService, shop *services.ShopService, bosses *services.BossService) *GameController {
	return &GameController{missions: missions, chests: chests, shop: shop, bosses: bosses}
}

// ListMissions returns the caller's daily and weekly missions.
func (g *GameController) ListMissions(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	list, err := g.missions.List(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"missions": list})
}

// ClaimMission pays out a completed mission once.
func (g *GameController) ClaimMission(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	res, err := g.missions.Claim(ctx.Request.Context(), userID, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

func (g *GameController) ListChests(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	list, err := g.chests.List(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"chests": list})
}

// OpenChest rolls the chest rewards.
func (g *GameController) OpenChest(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}
	res, err := g.chests.Open(ctx.Request.Context(), userID, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

func (g *GameController) ListShopItems(ctx *gin.Context) {
	items, err := g.shop.Catalog(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Purchase buys a catalog item with the caller's balance.
func (g *GameController) Purchase(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	item, err := g.shop.Purchase(ctx.Request.Context(), userID, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"item": item})
}

func (g *GameController) Inventory(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	items, err := g.shop.Inventory(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"inventory": items})
}

func (g *GameController) ListBosses(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	list, err := g.bosses.List(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"bosses": list})
}

// Fight runs today's encounter against a boss.
func (g *GameController) Fight(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req services.FightInput
	if ctx.Request.ContentLength != 0 && !bindJSON(ctx, &req) {
		return
	}
	res, err := g.bosses.Fight(ctx.Request.Context(), userID, id, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}
