package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/respiralivre/api/config"
	"github.com/respiralivre/api/notify"
	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

var notifyClass string

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a bulk notification class from a scheduled job",
	RunE: func(cmd *cobra.Command, args []string) error {
		if notifyClass != services.NotifyDailyReminder && notifyClass != services.NotifyStreakAtRisk {
			return fmt.Errorf("--class must be %s or %s", services.NotifyDailyReminder, services.NotifyStreakAtRisk)
		}
		cfg := config.Get()
		db := config.InitDatabase()
		tokens := notify.NewGormTokenStore(db)
		svc := services.NewNotificationService(db, newDispatcher(cfg, tokens), tokens, cfg.Location())

		res, err := svc.Dispatch(cmd.Context(), services.NotificationRequest{Type: notifyClass})
		if err != nil {
			return err
		}
		utils.Sugar.Infof("notification %s: sent=%d failed=%d removed=%d", notifyClass, res.Sent, res.Failed, res.Removed)
		return nil
	},
}

func init() {
	notifyCmd.Flags().StringVar(&notifyClass, "class", services.NotifyDailyReminder, "daily_reminder or streak_at_risk")
}
