package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cozy-creator/player-predictor/internal/app"
	"github.com/cozy-creator/player-predictor/internal/config"
	"github.com/cozy-creator/player-predictor/internal/db"
	"github.com/cozy-creator/player-predictor/internal/db/drivers"
	"github.com/cozy-creator/player-predictor/internal/db/migrations"
	historysvc "github.com/cozy-creator/player-predictor/internal/services/history"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Cmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the stored prediction history",
}

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the history tables",
		RunE: withDriver(func(cmd *cobra.Command, driver drivers.Driver) error {
			group, err := migrations.Migrate(cmd.Context(), driver.GetDB())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "there are no new migrations to run (database is up to date)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated to %s\n", group)
			return nil
		}),
	}

	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last migration group",
		RunE: withDriver(func(cmd *cobra.Command, driver drivers.Driver) error {
			group, err := migrations.Rollback(cmd.Context(), driver.GetDB())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "there are no groups to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", group)
			return nil
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the most recent predictions as JSON",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}

			views, err := a.History.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(views)
		}),
	}
	listCmd.Flags().Int("limit", historysvc.DefaultListLimit, fmt.Sprintf("Number of records to print (max %d)", historysvc.MaxListLimit))

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete predictions older than a given age",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			olderThan, err := cmd.Flags().GetDuration("older-than")
			if err != nil {
				return err
			}

			deleted, err := a.History.Prune(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d predictions\n", deleted)
			return nil
		}),
	}
	pruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete records created before now minus this duration")

	Cmd.AddCommand(migrateCmd, rollbackCmd, listCmd, pruneCmd)
}

func withDriver(f func(cmd *cobra.Command, driver drivers.Driver) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		driver, err := db.NewConnection(cmd.Context(), config.GetConfig())
		if err != nil {
			return err
		}
		defer driver.Close()

		return f(cmd, driver)
	}
}

// withApp opens the history store through the App so list and prune read
// records the same way the server does.
func withApp(f func(cmd *cobra.Command, a *app.App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := config.GetConfig()

		driver, err := db.NewConnection(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		// the command prints its own output
		a, err := app.NewApp(cfg, app.WithLogger(zap.NewNop()), app.WithDB(driver))
		if err != nil {
			driver.Close()
			return err
		}
		defer a.Close()

		return f(cmd, a)
	}
}
