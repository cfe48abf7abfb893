// =============================================================================
// RFFA Reconciler - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (rffa)
//   ├── sheetsCmd      (rffa sheets)
//   ├── reconcileCmd   (rffa reconcile)
//   ├── exportCmd      (rffa export)
//   ├── preferencesCmd (rffa preferences)
//   └── versionCmd     (rffa version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration (config.yaml, .env, RFFA_* variables)
//   3. Setting up logging and the preferences store
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/rffa-reconciler/internal/apperrors"
	"github.com/ginjaninja78/rffa-reconciler/internal/config"
	"github.com/ginjaninja78/rffa-reconciler/internal/logger"
	"github.com/ginjaninja78/rffa-reconciler/internal/preferences"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// Initialised by the root command's PersistentPreRunE.
var (
	mainConfig *config.MainConfig
	rootLog    zerolog.Logger
	prefs      *preferences.Store
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rffa",
	Short: "RFFA Reconciler - Cross-reference RFFA rosters against IMP Top-up lists",
	Long: `RFFA Reconciler finds the farmers of an RFFA roster who also appear in an
IMP Top-up roster, matched by RSBSA number.

Key Features:
  - Highlights matches in both workbooks and collects them in a Duplicates sheet
  - Flags farm areas outside the allowed range for review
  - Exports matched IMP Top-up rows into per-municipality batch reports
  - Optional backups of both inputs before anything is modified

Example Usage:
  rffa sheets --primary RFFA.xlsx
  rffa reconcile --primary RFFA.xlsx --secondary IMP.xlsx --all --review
  rffa export --primary RFFA.xlsx --secondary IMP.xlsx --batch 3 --province "Camarines Sur" --municipality Magarao`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntime()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apperrors.UserMessage(err))
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (default is config.yaml)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initRuntime loads the configuration and builds the shared services.
func initRuntime() error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeValidation, fmt.Sprintf("Failed to load configuration: %v", err))
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	mainConfig = cfg

	rootLog = logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	prefs = preferences.NewStore(cfg.PreferencesFile, logger.Component(rootLog, "preferences"))

	rootLog.Debug().Str("config", cfgFile).Str("preferences", cfg.PreferencesFile).Msg("runtime initialised")
	return nil
}
