package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/voxscript/pkg/config"
	"github.com/killallgit/voxscript/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voxscript",
	Short: "VoxScript transcription service",
	Long: `VoxScript - speech-to-text for audio sources

VoxScript snapshots audio sources, resamples them to 16 kHz mono and runs
them one at a time through a whisper.cpp engine. Finished transcriptions
are kept in a document that can be saved to and restored from an archive.

Features:
  • Background transcription queue with cancellation
  • Sample-accurate resampling to the engine rate
  • Document persistence (sqlite or badger)
  • Live pipeline events over WebSocket`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// loadConfig initializes configuration for commands that need it. Help and
// version never call it.
func loadConfig() (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Flags win over the config file only
// when they were set explicitly.
func newLogger(cmd *cobra.Command, cfg *config.Config) zerolog.Logger {
	lc := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		lc.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("json-logs") {
		if jsonLogs, _ := flags.GetBool("json-logs"); jsonLogs {
			lc.Format = "json"
		} else {
			lc.Format = "console"
		}
	}
	return logger.New(lc)
}
