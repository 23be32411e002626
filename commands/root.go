package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Codealike/Codealike-plugins-core/internal/config"
	"github.com/Codealike/Codealike-plugins-core/internal/core/constants"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

// version is stamped at build time with -ldflags "-X ...commands.version=..."
var version = "dev"

var (
	// Logging related
	debug     bool
	logLevel  string
	logFormat string

	// Identity and configuration
	clientID     string
	settingsPath string

	// Effective settings, loaded before any subcommand runs
	settings config.Settings

	rootCmd = &cobra.Command{
		Use:   "codealike-agent",
		Short: "Developer activity tracking agent",
		Long: `codealike-agent turns editor notifications into coding, debugging, navigating
and idle time and ships it to Codealike in periodic batches.

Examples:
  codealike-agent token set jdoe/0f6b1c2e                # Store the user token
  codealike-agent configure ~/src/app                    # Register a project folder
  editor-plugin | codealike-agent track --project .      # Track signals read from stdin
  codealike-agent track --signals ~/.editor/signals.jsonl
  codealike-agent replay session.jsonl --tail 1s         # Dry-run a scripted session
  codealike-agent spool list                             # Show batches awaiting delivery`,
		SilenceUsage:      true,
		PersistentPreRunE: loadSettings,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error); overrides settings")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Log format (text, json); overrides settings")

	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", constants.DefaultClientID,
		"Client identifier sent with every request")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "",
		"Settings file (default $CODEALIKE_HOME/settings.toml or ~/.codealike/settings.toml)")

	rootCmd.Version = version
}

func Execute() error {
	return rootCmd.Execute()
}

func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.Load(resolvedSettingsPath())
	if err != nil {
		return err
	}

	if logLevel != "" {
		s.Log.Level = logLevel
	}
	if logFormat != "" {
		s.Log.Format = logFormat
	}
	if debug {
		s.Log.Level = "debug"
	}
	if err := s.Validate(); err != nil {
		return err
	}

	if err := util.InitializeTimeProvider(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}

	settings = s
	return initLogging("")
}

// initLogging installs the process logger. Commands without a log file
// only log when --debug is set.
func initLogging(file string) error {
	if file == "" && !debug {
		util.SetLogger(nil)
		return nil
	}
	if file != "" {
		if err := ensureDir(filepath.Dir(file)); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return util.InitLogger(util.LoggerConfig{
		Level:   settings.Log.Level,
		Format:  util.LogFormat(settings.Log.Format),
		File:    file,
		Console: debug,
	})
}

func resolvedSettingsPath() string {
	if settingsPath == "" {
		return config.SettingsPath()
	}
	return expandPath(settingsPath)
}

// Helper functions

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
