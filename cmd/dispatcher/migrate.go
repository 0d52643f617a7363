package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the dispatcher tables if they do not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.NewDB(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context()); err != nil {
			return err
		}
		if seed, _ := cmd.Flags().GetBool("seed"); !seed {
			return nil
		}
		vouchers, _ := cmd.Flags().GetInt("vouchers")
		res, err := db.SeedDemo(cmd.Context(), vouchers)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rule(s), %d template(s), %d member row(s), %d voucher(s)\n",
			res.Rules, res.Templates, res.Members, res.PoolValues)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("seed", false, "Insert demo rules, templates, members and vouchers")
	migrateCmd.Flags().Int("vouchers", 20, "Number of WELCOME vouchers to add when seeding")
}
