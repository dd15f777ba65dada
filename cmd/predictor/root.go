package cmd

import (
	"fmt"
	"os"

	// Subcommands
	history "github.com/cozy-creator/player-predictor/cmd/predictor/history"
	run "github.com/cozy-creator/player-predictor/cmd/predictor/run"
	"github.com/cozy-creator/player-predictor/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = &cobra.Command{
	Use:   "predictor",
	Short: "Player rating prediction server",
	Long:  "Serves the player rating form API and relays each prediction to the Python inference scripts",

	SilenceUsage: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()

		config.SetDefaults(v)
		config.BindEnvs(v)

		// Load config and env files
		if err := config.LoadEnvAndConfigFiles(v); err != nil {
			return err
		}

		cfg, err := config.LoadConfig(v)
		if err != nil {
			return err
		}
		config.SetConfig(cfg)

		return nil
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("config-file", "", "Path to a YAML config file")
	pflags.String("env-file", "", "Path to the env file (defaults to ./.env when present)")
	pflags.String("environment", config.EnvDevelopment, "Environment: development, production or test")
	pflags.String("db-dsn", "", "History database DSN (postgres://, libsql:// or a sqlite path). Empty disables history")
	pflags.Bool("db-debug", false, "Log every history database query")

	// Bind flags to viper
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	viper.BindPFlag("environment", pflags.Lookup("environment"))
	viper.BindPFlag("db.dsn", pflags.Lookup("db-dsn"))
	viper.BindPFlag("db.debug", pflags.Lookup("db-debug"))

	// Add subcommands
	Cmd.AddCommand(run.Cmd, history.Cmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}
