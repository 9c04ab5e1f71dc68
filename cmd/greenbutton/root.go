package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/greenbutton/internal/config"
	"github.com/jgoulah/greenbutton/internal/database"
	"github.com/jgoulah/greenbutton/internal/logging"
	"github.com/jgoulah/greenbutton/internal/partition"
	"github.com/jgoulah/greenbutton/internal/utility"
)

var (
	cfgFile   string
	dbPath    string
	debug     bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "greenbutton",
	Short: "Merge utility meter exports and forecast usage",
	Long: `GreenButton ingests electricity and water usage exports, merges them into
per-year canonical datasets, fits per-year regression models against weather,
and forecasts the next day's usage.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logFormat != "text" && logFormat != "json" {
			return fmt.Errorf("unknown log format: %s (available: text, json)", logFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog database file (default is ./greenbutton.db)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "greenbutton.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// newLogger builds the structured logger from the global flags
func newLogger() *logging.Logger {
	return logging.New(debug, logFormat == "json")
}

// newStore opens the partition store configured in cfg
func newStore(cfg *config.Config, logger *logging.Logger) *partition.Store {
	return partition.NewStore(cfg.GetStorageDir(), logger)
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// profilesFor resolves a --utility flag; empty means every utility
func profilesFor(name string) ([]utility.Profile, error) {
	if name == "" {
		return utility.All(), nil
	}
	p, err := utility.Lookup(name)
	if err != nil {
		return nil, err
	}
	return []utility.Profile{p}, nil
}
