// =============================================================================
// RFFA Reconciler - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Everything the engine
// treats as a "fixed" convention of the roster files (header aliases,
// fallback columns, fill colours, the farm-area limit) lives here so a new
// roster layout can be handled without a code change.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. config.yaml (or the file named by --config), if it exists
//   3. .env file in the working directory, if it exists
//   4. RFFA_* environment variables
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// Columns holds the header aliases used to locate roster fields.
	Columns ColumnConfig `yaml:"columns"`

	// Validation holds the farm-area rules.
	Validation ValidationConfig `yaml:"validation"`

	// Colors holds the RGB hex fills written into the workbooks.
	Colors ColorConfig `yaml:"colors"`

	// Sheets holds worksheet naming conventions.
	Sheets SheetConfig `yaml:"sheets"`

	// BackupPrefix is prepended to the file name of backup copies.
	// Default: "BACKUP_"
	BackupPrefix string `yaml:"backup_prefix"`

	// PreferencesFile is the JSON file holding operator preferences.
	// Default: "preferences.json"
	PreferencesFile string `yaml:"preferences_file"`

	// ExportDir is where review reports (invalid farm areas, history) are
	// written when the operator does not name a directory. Empty means the
	// primary roster's directory.
	ExportDir string `yaml:"export_dir"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error", "disabled"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects "console" or "json" output.
	// Default: "console"
	LogFormat string `yaml:"log_format"`
}

// ColumnConfig lists header aliases in priority order.
type ColumnConfig struct {
	// ReferenceAliases locate the RSBSA number column.
	// Default: ["RSBSA NUMBER", "RSBSA"]
	ReferenceAliases []string `yaml:"reference_aliases"`

	// ReferenceFallback is the 1-based column used when no alias matches.
	// Default: 2 (column B)
	ReferenceFallback int `yaml:"reference_fallback"`

	// SecondaryReferenceColumn is the column of the IMP Top-up roster that
	// holds the identifier.
	// Default: 1 (column A)
	SecondaryReferenceColumn int `yaml:"secondary_reference_column"`

	// FarmAreaAliases locate the farm-area column. When none matches,
	// farm-area validation is skipped for that sheet.
	// Default: ["TOTAL FARM AREA (Ha)", "FARM AREA", "FARM SIZE"]
	FarmAreaAliases []string `yaml:"farm_area_aliases"`

	LastNameAliases   []string `yaml:"last_name_aliases"`
	FirstNameAliases  []string `yaml:"first_name_aliases"`
	MiddleNameAliases []string `yaml:"middle_name_aliases"`
}

// ValidationConfig holds the farm-area limits.
type ValidationConfig struct {
	// MaxFarmArea is the inclusive upper bound in hectares.
	// Default: 2.0
	MaxFarmArea float64 `yaml:"max_farm_area"`

	// ReportLowThreshold marks report rows red when the area is below it.
	// Default: 0.1
	ReportLowThreshold float64 `yaml:"report_low_threshold"`
}

// ColorConfig holds RGB hex colours without the leading '#'.
type ColorConfig struct {
	DuplicateRow   string `yaml:"duplicate_row"`
	InvalidCell    string `yaml:"invalid_cell"`
	SecondaryMatch string `yaml:"secondary_match"`
	Header         string `yaml:"header"`
	ReportHigh     string `yaml:"report_high"`
	ReportLow      string `yaml:"report_low"`
}

// SheetConfig holds worksheet naming and scan-width conventions.
type SheetConfig struct {
	// DuplicatesName is the base name of the sheet added to the primary
	// roster. Default: "Duplicates"
	DuplicatesName string `yaml:"duplicates_name"`

	// MetadataName is the ledger sheet of batch reports.
	// Default: "Metadata"
	MetadataName string `yaml:"metadata_name"`

	// SecondaryHighlightColumns caps the highlighted span of matched rows
	// in the secondary roster. Default: 20
	SecondaryHighlightColumns int `yaml:"secondary_highlight_columns"`

	// HighlightProbeColumns is how many leading columns are checked for a
	// fill when the batch exporter falls back to highlighted rows.
	// Default: 5
	HighlightProbeColumns int `yaml:"highlight_probe_columns"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration populated with the built-in defaults.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//     is not an error; the defaults are used instead.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file exists but cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()
	applyEnvOverrides(&config)

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides copies RFFA_* environment variables over file values.
func applyEnvOverrides(config *MainConfig) {
	if v := os.Getenv("RFFA_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv("RFFA_LOG_FORMAT"); v != "" {
		config.LogFormat = v
	}
	if v := os.Getenv("RFFA_PREFERENCES_FILE"); v != "" {
		config.PreferencesFile = v
	}
	if v := os.Getenv("RFFA_BACKUP_PREFIX"); v != "" {
		config.BackupPrefix = v
	}
	if v := os.Getenv("RFFA_EXPORT_DIR"); v != "" {
		config.ExportDir = v
	}
	if v := os.Getenv("RFFA_MAX_FARM_AREA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Validation.MaxFarmArea = f
		}
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	c := &config.Columns
	if len(c.ReferenceAliases) == 0 {
		c.ReferenceAliases = []string{"RSBSA NUMBER", "RSBSA"}
	}
	if c.ReferenceFallback == 0 {
		c.ReferenceFallback = 2
	}
	if c.SecondaryReferenceColumn == 0 {
		c.SecondaryReferenceColumn = 1
	}
	if len(c.FarmAreaAliases) == 0 {
		c.FarmAreaAliases = []string{"TOTAL FARM AREA (Ha)", "FARM AREA", "FARM SIZE"}
	}
	if len(c.LastNameAliases) == 0 {
		c.LastNameAliases = []string{"LAST NAME"}
	}
	if len(c.FirstNameAliases) == 0 {
		c.FirstNameAliases = []string{"FIRST NAME"}
	}
	if len(c.MiddleNameAliases) == 0 {
		c.MiddleNameAliases = []string{"MIDDLE NAME"}
	}

	if config.Validation.MaxFarmArea == 0 {
		config.Validation.MaxFarmArea = 2.0
	}
	if config.Validation.ReportLowThreshold == 0 {
		config.Validation.ReportLowThreshold = 0.1
	}

	colors := &config.Colors
	if colors.DuplicateRow == "" {
		colors.DuplicateRow = "FFF9AC"
	}
	if colors.InvalidCell == "" {
		colors.InvalidCell = "FF9999"
	}
	if colors.SecondaryMatch == "" {
		colors.SecondaryMatch = "77DFD8"
	}
	if colors.Header == "" {
		colors.Header = "D3D3D3"
	}
	if colors.ReportHigh == "" {
		colors.ReportHigh = "FFEB9C"
	}
	if colors.ReportLow == "" {
		colors.ReportLow = "FFC7CE"
	}

	s := &config.Sheets
	if s.DuplicatesName == "" {
		s.DuplicatesName = "Duplicates"
	}
	if s.MetadataName == "" {
		s.MetadataName = "Metadata"
	}
	if s.SecondaryHighlightColumns == 0 {
		s.SecondaryHighlightColumns = 20
	}
	if s.HighlightProbeColumns == 0 {
		s.HighlightProbeColumns = 5
	}

	if config.BackupPrefix == "" {
		config.BackupPrefix = "BACKUP_"
	}
	if config.PreferencesFile == "" {
		config.PreferencesFile = "preferences.json"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if config.Validation.MaxFarmArea < 0 {
		return fmt.Errorf("validation.max_farm_area must not be negative, got %v", config.Validation.MaxFarmArea)
	}
	if config.Columns.ReferenceFallback < 1 || config.Columns.SecondaryReferenceColumn < 1 {
		return fmt.Errorf("column positions are 1-based")
	}
	if config.Sheets.SecondaryHighlightColumns < 1 || config.Sheets.HighlightProbeColumns < 1 {
		return fmt.Errorf("sheet column spans must be positive")
	}

	for name, value := range map[string]string{
		"duplicate_row":   config.Colors.DuplicateRow,
		"invalid_cell":    config.Colors.InvalidCell,
		"secondary_match": config.Colors.SecondaryMatch,
		"header":          config.Colors.Header,
		"report_high":     config.Colors.ReportHigh,
		"report_low":      config.Colors.ReportLow,
	} {
		if !isHexColor(value) {
			return fmt.Errorf("colors.%s must be a 6-digit RGB hex value, got %q", name, value)
		}
	}

	switch strings.ToLower(config.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", config.LogFormat)
	}

	if config.ExportDir != "" {
		if err := os.MkdirAll(config.ExportDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", config.ExportDir, err)
		}
	}

	return nil
}

func isHexColor(s string) bool {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return false
	}
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}
