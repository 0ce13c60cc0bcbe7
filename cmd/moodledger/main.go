package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	moodledger "github.com/unowned-ai/moodledger/pkg"
	"github.com/unowned-ai/moodledger/pkg/config"
	pkgdb "github.com/unowned-ai/moodledger/pkg/db"
	"github.com/unowned-ai/moodledger/pkg/stores"
	"github.com/unowned-ai/moodledger/pkg/utils"
)

var (
	configFile string
	v          = viper.New()
)

var rootCmd = &cobra.Command{
	Use:     "moodledger",
	Short:   "Record one mood per patient per day and summarize how it moves.",
	Version: fmt.Sprintf("v%s", moodledger.Version),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for moodledger.

Examples:

  Bash (current shell):
    $ source <(moodledger completion bash)

  Zsh:
    $ moodledger completion zsh > "${fpath[1]}/_moodledger"

  Fish:
    $ moodledger completion fish > ~/.config/fish/completions/moodledger.fish

  PowerShell:
    PS> moodledger completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of moodledger",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), moodledger.Version)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the mood ledger database",
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Create or upgrade the storage schema for the configured driver",
	Long: `For SQLite, brings the moodledger component of the database at --db up to the
current schema version, creating the file if needed. For PostgreSQL the mood_entries
table is created if missing; for MongoDB the unique (patient_id, date) index is ensured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()

		if cfg.Driver != config.DriverSQLite {
			store, err := stores.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema for driver %s is up to date.\n", cfg.Driver)
			return store.Close()
		}

		if cfg.SQLite.Path == "" {
			return errors.New("database path is required")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Upgrading moodledger component in database at: %s (WAL: %t, Sync: %s)\n", cfg.SQLite.Path, cfg.SQLite.WAL, cfg.SQLite.Sync)

		dbConn, err := pkgdb.OpenDBConnection(cfg.SQLite.Path, cfg.SQLite.WAL, cfg.SQLite.Sync)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		return pkgdb.UpgradeDB(dbConn, cfg.SQLite.Path, pkgdb.TargetSchemaVersion, log)
	},
}

func initCmd() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, toml, json or env); MOODLEDGER_* environment variables also apply")
	flags.String("driver", config.DriverSQLite, "Storage driver: sqlite, postgres or mongo")
	flags.String("db", "", "Path to the SQLite database file (uses a system-specific default if not provided)")
	flags.Bool("wal", true, "Enable SQLite WAL (Write-Ahead Logging) mode")
	flags.String("sync", "NORMAL", "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA)")
	flags.String("timezone", "UTC", "IANA zone that decides which calendar day an instant falls on")
	flags.String("log-mode", "development", "Log format: development or production")

	bindFlag("driver", flags.Lookup("driver"))
	bindFlag("sqlite.path", flags.Lookup("db"))
	bindFlag("sqlite.wal", flags.Lookup("wal"))
	bindFlag("sqlite.sync", flags.Lookup("sync"))
	bindFlag("timezone", flags.Lookup("timezone"))
	bindFlag("log.mode", flags.Lookup("log-mode"))

	dbCmd.AddCommand(dbUpgradeCmd)

	initMoodsCmd()
	initServeCmd()
	initEventsCmd()
	rootCmd.AddCommand(completionCmd, versionCmd, dbCmd, moodsCmd, serveCmd, mcpCmd, eventsCmd)
}

func main() {
	initCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// defaultSQLitePath is used when neither --db, a config file nor the
// environment names a database.
func defaultSQLitePath() string {
	return utils.DefaultDBPath()
}
