// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-13

// Package commands implements the tuleap-migrate CLI.
package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tuleap-migrate",
	Short: "Migrate a Tuleap tracker into GitHub issues",
	Long: `tuleap-migrate reads every artifact of a Tuleap tracker, turns each one
into a GitHub issue (title, markdown description, labels, assignee, comments
and attachments) and publishes the result.

Assembly and publishing are recorded in a local SQLite ledger, so a run can be
inspected with "report" and failed issues resent with "publish --retry-failed".

Settings are read from tuleap-migrate.yaml. Global flags can also be set as
TULEAP_MIGRATE_<FLAG> environment variables, and a .env file is loaded first.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initEnv)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default: ./tuleap-migrate.yaml)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("log-level", "", "Log level override (debug, info, warn, error)")
	flags.String("log-format", "", "Log format override (console or json)")
	flags.Bool("no-tui", false, "Disable the progress view and log every artifact instead")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind flags: %v\n", err)
	}
}

// initEnv loads .env and maps TULEAP_MIGRATE_* variables onto the global flags.
func initEnv() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("TULEAP_MIGRATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
