package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/respiralivre/api/analytics"
	"github.com/respiralivre/api/coach"
	"github.com/respiralivre/api/config"
	"github.com/respiralivre/api/notify"
	"github.com/respiralivre/api/payments"
	"github.com/respiralivre/api/routes"
	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API with graceful restart",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		db := config.InitDatabase()

		batcher := analytics.NewBatcher(analytics.NewGormTransport(db),
			time.Duration(cfg.AnalyticsFlushSeconds)*time.Second, cfg.AnalyticsBatchSize)
		batcher.Start()

		tokens := notify.NewGormTokenStore(db)
		deps := routes.Deps{
			DB:     db,
			Redis:  utils.GetRedis(),
			Events: batcher,
			Pusher: newDispatcher(cfg, tokens),
			Tokens: tokens,
		}
		if cfg.StripeSecretKey != "" {
			deps.Checkout = payments.NewClient(cfg.StripeSecretKey)
		} else {
			utils.Logger.Warn("stripe not configured, checkout disabled")
		}
		if cfg.OpenAIKey != "" {
			deps.Streamer = coach.NewOpenAIStreamer(cfg.OpenAIKey, cfg.OpenAIModel)
		} else {
			utils.Logger.Warn("openai not configured, coach disabled")
		}

		sweepCtx, stopSweep := context.WithCancel(context.Background())
		go services.NewJanitor(db, time.Hour).Run(sweepCtx)

		srv := utils.NewServer(":"+cfg.AppPort, routes.SetupRouter(deps))
		srv.OnStop(func(ctx context.Context) {
			stopSweep()
			if err := batcher.Shutdown(ctx); err != nil {
				utils.Logger.Error("analytics final flush failed", zap.Error(err), zap.Int("pending", batcher.Pending()))
			}
		})

		utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
		return srv.ListenAndServe()
	},
}

// newDispatcher sends through FCM when credentials are configured and logs pushes otherwise.
func newDispatcher(cfg config.AppConfig, tokens notify.TokenStore) *notify.Dispatcher {
	var sender notify.Sender = notify.LogSender{}
	if cfg.FCMCredentialsFile != "" {
		fcm, err := notify.NewFCMSender(context.Background(), cfg.FCMProjectID, cfg.FCMCredentialsFile)
		if err != nil {
			utils.Logger.Error("fcm unavailable, pushes will only be logged", zap.Error(err))
		} else {
			sender = fcm
		}
	}
	return notify.NewDispatcher(tokens, sender, cfg.PushRatePerSecond)
}
