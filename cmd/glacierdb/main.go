package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/atampy25/glacierdb/internal/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string

	runtimeDir   string
	hashListPath string
	dbPath       string
	archives     []string
	logLevel     string
	logFormat    string
	noProgress   bool
)

var rootCmd = &cobra.Command{
	Use:   "glacierdb",
	Short: "Glacier engine resource extraction and inspection tool",
	Long: `glacierdb reads Glacier engine resource package archives from a game
installation, extracts and de-scrambles resources by runtime ID or path,
and can index every archive's directory into a queryable SQLite database.

Resource paths are resolved through the community hash list when one is
configured; otherwise identifiers are shown as 16-hex-digit runtime IDs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("runtime-dir") {
			cfg.RuntimeDir = runtimeDir
		}
		if cmd.Flags().Changed("hash-list") {
			cfg.HashList = hashListPath
		}
		if cmd.Flags().Changed("database") {
			cfg.Database = dbPath
		}
		if cmd.Flags().Changed("archives") {
			cfg.Archives = archives
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}

		var level slog.Level
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		var handler slog.Handler
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})
		} else {
			handler = tint.NewHandler(os.Stderr, &tint.Options{
				Level: level,
			})
		}

		logger := slog.New(handler)
		slog.SetDefault(logger)

		slog.Debug("Configuration",
			"runtime_dir", cfg.RuntimeDir,
			"hash_list", cfg.HashList,
			"database", cfg.Database,
			"archives", cfg.Archives,
			"log_level", cfg.LogLevel,
			"log_format", cfg.LogFormat)

		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is glacierdb.yaml in pwd)")
	rootCmd.PersistentFlags().StringVarP(&runtimeDir, "runtime-dir", "r", "", "game Runtime directory containing .rpkg archives")
	rootCmd.PersistentFlags().StringVar(&hashListPath, "hash-list", "", "path to the compressed hash list")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d", "", "database file path")
	rootCmd.PersistentFlags().StringSliceVar(&archives, "archives", []string{}, "explicit ordered archive list (overrides discovery)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}
