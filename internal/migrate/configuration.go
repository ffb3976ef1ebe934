package migrate

import (
	"strings"

	pathutils "github.com/temirov/goose/internal/utils/path"
)

const (
	workersKeyConstant                = "workers"
	submissionsPerSecondKeyConstant   = "submissions_per_second"
	outputDirectoryKeyConstant        = "output_directory"
	metricsFileKeyConstant            = "metrics_file"
	cacheSizeKeyConstant              = "cache_size"
	configurationKeySeparatorConstant = "."
	defaultOutputDirectoryConstant    = "."
	defaultCacheSizeConstant          = 128
)

var migrateConfigurationPathResolver = pathutils.NewPathResolver()

// CommandConfiguration captures persisted configuration for migration runs.
type CommandConfiguration struct {
	Workers              int     `mapstructure:"workers"`
	SubmissionsPerSecond float64 `mapstructure:"submissions_per_second"`
	OutputDirectory      string  `mapstructure:"output_directory"`
	MetricsFile          string  `mapstructure:"metrics_file"`
	CacheSize            int     `mapstructure:"cache_size"`
}

// DefaultCommandConfiguration returns baseline configuration values for migration runs.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Workers:         defaultWorkerCountConstant,
		OutputDirectory: defaultOutputDirectoryConstant,
		CacheSize:       defaultCacheSizeConstant,
	}
}

// DefaultConfigurationValues exposes DefaultCommandConfiguration as viper defaults under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		qualifyKey(prefix, workersKeyConstant):              defaults.Workers,
		qualifyKey(prefix, submissionsPerSecondKeyConstant): defaults.SubmissionsPerSecond,
		qualifyKey(prefix, outputDirectoryKeyConstant):      defaults.OutputDirectory,
		qualifyKey(prefix, metricsFileKeyConstant):          defaults.MetricsFile,
		qualifyKey(prefix, cacheSizeKeyConstant):            defaults.CacheSize,
	}
}

// Sanitize clamps numeric values and expands configured paths.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := CommandConfiguration{
		Workers:              configuration.Workers,
		SubmissionsPerSecond: configuration.SubmissionsPerSecond,
		OutputDirectory:      migrateConfigurationPathResolver.Expand(configuration.OutputDirectory),
		MetricsFile:          migrateConfigurationPathResolver.Expand(configuration.MetricsFile),
		CacheSize:            configuration.CacheSize,
	}
	if sanitized.Workers < 1 {
		sanitized.Workers = defaults.Workers
	}
	if sanitized.SubmissionsPerSecond < 0 {
		sanitized.SubmissionsPerSecond = 0
	}
	if len(sanitized.OutputDirectory) == 0 {
		sanitized.OutputDirectory = defaults.OutputDirectory
	}
	if sanitized.CacheSize <= 0 {
		sanitized.CacheSize = defaults.CacheSize
	}
	return sanitized
}

func qualifyKey(prefix string, key string) string {
	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return key
	}
	return trimmedPrefix + configurationKeySeparatorConstant + key
}
