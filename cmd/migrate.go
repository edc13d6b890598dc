package cmd

import (
	"github.com/spf13/cobra"

	"github.com/respiralivre/api/config"
	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Migrate(config.InitDatabase(), models.All()...); err != nil {
			return err
		}
		utils.Sugar.Infof("migrated %d models", len(models.All()))
		return nil
	},
}
