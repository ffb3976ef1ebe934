// Package utils exposes reusable helpers consumed by multiple commands.
//
// ConfigurationLoader layers defaults, an embedded document, configuration files,
// environment variables and command-line flags through Viper. LoggerFactory builds
// zap loggers that keep diagnostics off standard output. WriteJSONFile and
// SynchronizedWriter back the manifests and progress lines written by commands.
package utils
