package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMainConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"RSBSA NUMBER", "RSBSA"}, cfg.Columns.ReferenceAliases)
	assert.Equal(t, 2, cfg.Columns.ReferenceFallback)
	assert.Equal(t, 1, cfg.Columns.SecondaryReferenceColumn)
	assert.Equal(t, []string{"TOTAL FARM AREA (Ha)", "FARM AREA", "FARM SIZE"}, cfg.Columns.FarmAreaAliases)
	assert.Equal(t, 2.0, cfg.Validation.MaxFarmArea)
	assert.Equal(t, "BACKUP_", cfg.BackupPrefix)
	assert.Equal(t, "Duplicates", cfg.Sheets.DuplicatesName)
	assert.Equal(t, 20, cfg.Sheets.SecondaryHighlightColumns)
	assert.Equal(t, 5, cfg.Sheets.HighlightProbeColumns)
	assert.Equal(t, "FFF9AC", cfg.Colors.DuplicateRow)
}

func TestLoadMainConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backup_prefix: "COPY_"
validation:
  max_farm_area: 3.5
columns:
  farm_area_aliases: ["AREA"]
log_format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "COPY_", cfg.BackupPrefix)
	assert.Equal(t, 3.5, cfg.Validation.MaxFarmArea)
	assert.Equal(t, []string{"AREA"}, cfg.Columns.FarmAreaAliases)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"LAST NAME"}, cfg.Columns.LastNameAliases)
}

func TestLoadMainConfigEnvOverride(t *testing.T) {
	t.Setenv("RFFA_LOG_LEVEL", "debug")
	t.Setenv("RFFA_BACKUP_PREFIX", "ENV_")

	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ENV_", cfg.BackupPrefix)
}

func TestLoadMainConfigRejectsBadColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("colors:\n  header: grey\n"), 0644))

	_, err := LoadMainConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colors.header")
}

func TestLoadMainConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("columns: [unclosed"), 0644))

	_, err := LoadMainConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}
