package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knoguchi/campusrag/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening the stores applies the schema
		return withStores(cmd.Context(), func(*app.Stores) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s).\n", cfg.StoreDriver)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
