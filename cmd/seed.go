package cmd

import (
	"github.com/spf13/cobra"

	"github.com/respiralivre/api/config"
	"github.com/respiralivre/api/seed"
)

var catalogFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert missions, chests, shop items and bosses from a catalog file",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := seed.LoadFile(catalogFile)
		if err != nil {
			return err
		}
		return seed.Apply(cmd.Context(), config.InitDatabase(), catalog)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&catalogFile, "file", "f", "seed/catalog.yaml", "catalog yaml file")
}
