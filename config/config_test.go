package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassandra-migration/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("USER", "deployer")
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_PROJECT_ID", "MIGRATION_TABLE", "MIGRATION_LOCATIONS", "MIGRATION_TARGET",
		"MIGRATION_OUT_OF_ORDER", "MIGRATION_BASELINE_VERSION", "MIGRATION_INSTALLED_BY",
		"OTEL_ENABLED", "OTEL_SAMPLING_RATE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Empty(t, cfg.LogProjectID)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, 1.0, cfg.OtelSamplingRate)

	m := cfg.Migration
	assert.Equal(t, domain.DefaultLedgerTable, m.Table)
	assert.Equal(t, []string{"filesystem:./migrations"}, m.Locations)
	assert.Equal(t, "V", m.Prefix)
	assert.Equal(t, "__", m.Separator)
	assert.Equal(t, ".cql", m.Suffix)
	assert.True(t, m.Target.IsLatest())
	assert.False(t, m.OutOfOrder)
	assert.Equal(t, "1", m.BaselineVersion.String())
	assert.Equal(t, DefaultBaselineDescription, m.BaselineDescription)
	assert.Equal(t, "deployer", m.InstalledBy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MIGRATION_TABLE", "schema_history")
	t.Setenv("MIGRATION_LOCATIONS", "embedded:db/migration, filesystem:/opt/cql ,")
	t.Setenv("MIGRATION_TARGET", "2_1")
	t.Setenv("MIGRATION_OUT_OF_ORDER", "true")
	t.Setenv("MIGRATION_BASELINE_VERSION", "3")
	t.Setenv("MIGRATION_INSTALLED_BY", "ci")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATE", "0.25")
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("LOG_PROJECT_ID", "ops-logs")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, "ops-logs", cfg.LogProjectID)

	assert.Equal(t, "schema_history", cfg.Migration.Table)
	assert.Equal(t, []string{"embedded:db/migration", "filesystem:/opt/cql"}, cfg.Migration.Locations)
	assert.Equal(t, "2.1", cfg.Migration.Target.String())
	assert.True(t, cfg.Migration.OutOfOrder)
	assert.Equal(t, "3", cfg.Migration.BaselineVersion.String())
	assert.Equal(t, "ci", cfg.Migration.InstalledBy)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, 0.25, cfg.OtelSamplingRate)

	t.Setenv("MIGRATION_TARGET", "current")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Migration.Target.IsCurrent())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LOG_FORMAT", "xml"},
		{"OTEL_ENABLED", "maybe"},
		{"OTEL_SAMPLING_RATE", "half"},
		{"MIGRATION_OUT_OF_ORDER", "yes please"},
		{"MIGRATION_TARGET", "v1.x"},
		{"MIGRATION_BASELINE_VERSION", "abc"},
		{"MIGRATION_BASELINE_VERSION", "current"},
		{"MIGRATION_LOCATIONS", " , "},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
