package session

import (
	"strings"

	"github.com/temirov/goose/internal/wallet"
)

const (
	configurationPathKeyConstant      = "config_path"
	rpcURLKeyConstant                 = "rpc_url"
	keypairPathKeyConstant            = "keypair_path"
	programIDKeyConstant              = "program_id"
	commitmentKeyConstant             = "commitment"
	timeoutSecondsKeyConstant         = "timeout_seconds"
	configurationKeySeparatorConstant = "."
	defaultTimeoutSecondsConstant     = 60
)

// Configuration describes how commands connect to a cluster.
type Configuration struct {
	ConfigPath     string `mapstructure:"config_path"`
	RPCURL         string `mapstructure:"rpc_url"`
	KeypairPath    string `mapstructure:"keypair_path"`
	ProgramID      string `mapstructure:"program_id"`
	Commitment     string `mapstructure:"commitment"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DefaultConfiguration returns the baseline connection configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		ConfigPath:     wallet.DefaultCLIConfigurationPath,
		TimeoutSeconds: defaultTimeoutSecondsConstant,
	}
}

// DefaultConfigurationValues exposes DefaultConfiguration as viper defaults under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		qualifyKey(prefix, configurationPathKeyConstant): defaults.ConfigPath,
		qualifyKey(prefix, rpcURLKeyConstant):            defaults.RPCURL,
		qualifyKey(prefix, keypairPathKeyConstant):       defaults.KeypairPath,
		qualifyKey(prefix, programIDKeyConstant):         defaults.ProgramID,
		qualifyKey(prefix, commitmentKeyConstant):        defaults.Commitment,
		qualifyKey(prefix, timeoutSecondsKeyConstant):    defaults.TimeoutSeconds,
	}
}

// Sanitize trims values and restores defaults for unset fields.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := Configuration{
		ConfigPath:     strings.TrimSpace(configuration.ConfigPath),
		RPCURL:         strings.TrimSpace(configuration.RPCURL),
		KeypairPath:    strings.TrimSpace(configuration.KeypairPath),
		ProgramID:      strings.TrimSpace(configuration.ProgramID),
		Commitment:     strings.TrimSpace(configuration.Commitment),
		TimeoutSeconds: configuration.TimeoutSeconds,
	}
	defaults := DefaultConfiguration()
	if len(sanitized.ConfigPath) == 0 {
		sanitized.ConfigPath = defaults.ConfigPath
	}
	if sanitized.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaults.TimeoutSeconds
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
