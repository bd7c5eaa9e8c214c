// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"cassandra-migration/internal/domain"
)

// Config はアプリケーション設定を表す。
type Config struct {
	Port         string
	DatabaseURL  string
	LogProjectID string
	LogLevel     string
	LogFormat    string

	OtelEnabled      bool
	OtelEndpoint     string
	OtelServiceName  string
	OtelSamplingRate float64

	Migration MigrationConfig
}

// MigrationConfig はマイグレーションの探索と適用に関する設定を表す。
type MigrationConfig struct {
	Table               string
	Locations           []string
	Prefix              string
	Separator           string
	Suffix              string
	Encoding            string
	Target              domain.Version
	OutOfOrder          bool
	BaselineVersion     domain.Version
	BaselineDescription string
	InstalledBy         string
}

// ログの出力形式。
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// DefaultBaselineDescription はベースライン行の既定の説明。
const DefaultBaselineDescription = "<< Cassandra Baseline >>"

// Load は環境変数から設定を読み込む。
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LogProjectID:    os.Getenv("LOG_PROJECT_ID"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", LogFormatJSON)),
		OtelEndpoint:    getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName: getEnv("OTEL_SERVICE_NAME", "cassandra-migration"),
		Migration: MigrationConfig{
			Table:               getEnv("MIGRATION_TABLE", domain.DefaultLedgerTable),
			Locations:           splitList(getEnv("MIGRATION_LOCATIONS", "filesystem:./migrations")),
			Prefix:              getEnv("MIGRATION_PREFIX", "V"),
			Separator:           getEnv("MIGRATION_SEPARATOR", "__"),
			Suffix:              getEnv("MIGRATION_SUFFIX", ".cql"),
			Encoding:            getEnv("MIGRATION_ENCODING", "UTF-8"),
			BaselineDescription: getEnv("MIGRATION_BASELINE_DESCRIPTION", DefaultBaselineDescription),
			InstalledBy:         getEnv("MIGRATION_INSTALLED_BY", os.Getenv("USER")),
		},
	}

	if cfg.LogFormat != LogFormatJSON && cfg.LogFormat != LogFormatText {
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q", cfg.LogFormat)
	}

	var err error
	if cfg.OtelEnabled, err = getBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OtelSamplingRate, err = getFloat("OTEL_SAMPLING_RATE", 1.0); err != nil {
		return nil, err
	}
	if cfg.Migration.OutOfOrder, err = getBool("MIGRATION_OUT_OF_ORDER", false); err != nil {
		return nil, err
	}
	if cfg.Migration.Target, err = domain.ParseTargetVersion(getEnv("MIGRATION_TARGET", "latest")); err != nil {
		return nil, fmt.Errorf("invalid MIGRATION_TARGET: %w", err)
	}
	if cfg.Migration.BaselineVersion, err = domain.ParseVersion(getEnv("MIGRATION_BASELINE_VERSION", "1")); err != nil {
		return nil, fmt.Errorf("invalid MIGRATION_BASELINE_VERSION: %w", err)
	}
	if cfg.Migration.BaselineVersion.IsSentinel() {
		return nil, fmt.Errorf("invalid MIGRATION_BASELINE_VERSION: %s", cfg.Migration.BaselineVersion)
	}
	if len(cfg.Migration.Locations) == 0 {
		return nil, fmt.Errorf("MIGRATION_LOCATIONS must not be empty")
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
