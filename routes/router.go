package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/respiralivre/api/coach"
	"github.com/respiralivre/api/config"
	"github.com/respiralivre/api/controllers"
	"github.com/respiralivre/api/middleware"
	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

// Deps are the long-lived collaborators built at boot.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Events services.EventSink
	// Pusher, Tokens, Checkout and Streamer stay nil when the provider is not configured.
	Pusher   services.BulkPusher
	Tokens   services.TokenRegistry
	Checkout services.CheckoutCreator
	Streamer coach.Streamer
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.CronSecretHeader},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	loc := cfg.Location()
	events := d.Events

	progressSvc := services.NewProgressService(d.DB)
	achievementSvc := services.NewAchievementService(d.DB)
	checkinSvc := services.NewCheckinService(services.NewGormSettlementStore(d.DB), services.CheckinConfig{
		Coins:    cfg.CheckinCoins,
		XP:       cfg.CheckinXP,
		Location: loc,
	}, events, d.Pusher)
	missionSvc := services.NewMissionService(d.DB, loc, events)
	chestSvc := services.NewChestService(d.DB, loc, events)
	shopSvc := services.NewShopService(services.NewGormShopStore(d.DB), loc, events)
	bossSvc := services.NewBossService(d.DB, services.DamageConfig{
		Base:    cfg.BossBaseDamage,
		Streak:  cfg.BossStreakDamage,
		Crystal: cfg.BossCrystalDamage,
	}, loc, events)
	squadSvc := services.NewSquadService(d.DB, cfg.SquadMaxMembers, events, d.Pusher)
	notificationSvc := services.NewNotificationService(d.DB, d.Pusher, d.Tokens, loc)
	paymentSvc := services.NewPaymentService(d.Checkout, services.NewGormBenefitStore(d.DB), services.PaymentConfig{
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.PaymentCurrency,
		SuccessURL:    cfg.StripeSuccessURL,
		CancelURL:     cfg.StripeCancelURL,
		Prices: map[string]int64{
			services.ProductStreakFreeze: int64(cfg.PriceStreakFreezeCts),
			services.ProductPremium:      int64(cfg.PricePremiumCts),
			services.ProductRemoveAds:    int64(cfg.PriceRemoveAdsCts),
		},
	}, events)
	coachSvc := coach.NewService(d.Streamer, coach.NewGormHistory(d.DB), cfg.CoachPersona, cfg.CoachMaxTurns)

	healthController := controllers.NewHealthController(d.DB, d.Redis)
	progressController := controllers.NewProgressController(progressSvc, achievementSvc)
	checkinController := controllers.NewCheckinController(checkinSvc)
	gameController := controllers.NewGameController(missionSvc, chestSvc, shopSvc, bossSvc)
	squadController := controllers.NewSquadController(squadSvc)
	notificationController := controllers.NewNotificationController(notificationSvc)
	coachController := controllers.NewCoachController(coachSvc)
	paymentController := controllers.NewPaymentController(paymentSvc)
	analyticsController := controllers.NewAnalyticsController(events)

	r.GET("/health", healthController.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.GET("/health", healthController.Health)
	api.POST("/webhook-stripe", middleware.IPRateLimit(cfg.RateLimitPerMinute), paymentController.Webhook)
	api.POST("/send-notification", middleware.CronOrAdmin(), notificationController.Send)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired())
	authed.GET("/progress", progressController.GetProgress)
	authed.GET("/checkin/status", checkinController.Status)
	authed.GET("/checkin/history", checkinController.History)
	authed.GET("/achievements", progressController.ListAchievements)
	authed.GET("/missions", gameController.ListMissions)
	authed.GET("/chests", gameController.ListChests)
	authed.GET("/shop/items", gameController.ListShopItems)
	authed.GET("/inventory", gameController.Inventory)
	authed.GET("/bosses", gameController.ListBosses)
	authed.GET("/squads/:id", squadController.Get)

	limited := authed.Group("")
	limited.Use(middleware.RateLimit(utils.NewRedisRateLimiter(d.Redis, cfg.RateLimitPerMinute)))
	limited.POST("/onboarding/complete", progressController.CompleteOnboarding)
	limited.POST("/checkin", checkinController.Submit)
	limited.POST("/streak/freeze", checkinController.UseStreakFreeze)
	limited.POST("/missions/:id/claim", gameController.ClaimMission)
	limited.POST("/chests/:id/open", gameController.OpenChest)
	limited.POST("/shop/items/:id/purchase", gameController.Purchase)
	limited.POST("/bosses/:id/fight", gameController.Fight)
	limited.POST("/create-squad", squadController.Create)
	limited.POST("/join-squad", squadController.Join)
	limited.POST("/leave-squad", squadController.Leave)
	limited.POST("/push-tokens", notificationController.RegisterToken)
	limited.DELETE("/push-tokens", notificationController.UnregisterToken)
	limited.POST("/ai-coach", coachController.Chat)
	limited.POST("/create-payment", paymentController.CreatePayment)
	limited.POST("/analytics/events", analyticsController.Ingest)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, utils.KindNotFound.Code(), "route not found")
	})

	return r
}
