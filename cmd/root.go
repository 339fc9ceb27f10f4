package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/ledger"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/output"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/recovery"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/session"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pneumatic",
	Short: "Pneumatic test recorder - time leak/pressure tests on vessels",
	Long: `pneumatic records the lifecycle of pneumatic leak/pressure tests.

An operator and a vessel are confirmed in order, a timed test runs, and the
outcome (pass or leak) is durably logged with timestamps and duration. The
session survives process restarts: a running stopwatch resumes from its
original start instant.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return statusRun()
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/pneumatic/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "pneumatic")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PNEUMATIC")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "pneumatic")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "pneumatic.db"))
	viper.SetDefault("snapshot_path", filepath.Join(defaultConfigDir, "session.yaml"))
	viper.SetDefault("ledger_timeout", ledger.DefaultTimeout.String())
	viper.SetDefault("station", "")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	// Store and coordinator are initialized lazily, only when commands
	// actually need them.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getLedger builds the segment ledger over the shared store.
func getLedger() (*ledger.Ledger, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	return ledger.New(s, viper.GetDuration("ledger_timeout")), nil
}

// getCoordinator builds the session coordinator, restoring any persisted
// session from the recovery snapshot.
func getCoordinator() (*session.Coordinator, error) {
	led, err := getLedger()
	if err != nil {
		return nil, err
	}
	snaps := recovery.NewFileStore(viper.GetString("snapshot_path"))
	return session.New(led, snaps)
}
