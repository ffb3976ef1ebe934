package utils

import "context"

type commandContextKey struct {
	name string
}

var (
	configurationFilePathContextKey = commandContextKey{name: "configuration_file_path"}
	runIDContextKey                 = commandContextKey{name: "run_id"}
)

// CommandContextAccessor stores and retrieves invocation metadata carried by command contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath records the configuration file that produced the invocation's settings.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKey, configurationFilePath)
}

// ConfigurationFilePath reports the recorded configuration file. It is false when no file was loaded.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, available := executionContext.Value(configurationFilePathContextKey).(string)
	if !available || len(configurationFilePath) == 0 {
		return "", false
	}
	return configurationFilePath, true
}

// WithRunID records the identifier shared by the logs and reports of one migration run.
func (accessor CommandContextAccessor) WithRunID(parentContext context.Context, runID string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, runIDContextKey, runID)
}

// RunID reports the migration run identifier recorded by the invoking command.
func (accessor CommandContextAccessor) RunID(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	runID, available := executionContext.Value(runIDContextKey).(string)
	if !available || len(runID) == 0 {
		return "", false
	}
	return runID, true
}
