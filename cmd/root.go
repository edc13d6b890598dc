package cmd

import (
	"github.com/spf13/cobra"

	"github.com/respiralivre/api/config"
	"github.com/respiralivre/api/utils"
)

var rootCmd = &cobra.Command{
	Use:   "respira",
	Short: "Respira Livre API server and maintenance tasks",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		return utils.InitLogger(cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, notifyCmd)
	// bare invocation serves
	rootCmd.RunE = serveCmd.RunE
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}
