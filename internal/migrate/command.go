package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/resolver"
	"github.com/temirov/goose/internal/session"
	"github.com/temirov/goose/internal/ui"
	"github.com/temirov/goose/internal/utils"
	"github.com/temirov/goose/internal/utils/flags"
)

const (
	commandUseConstant                    = "migrate"
	commandShortDescriptionConstant       = "Migrate every item of a collection listed in a mint manifest"
	commandLongDescriptionConstant        = "migrate reads a JSON array of item mints, submits one migrate transaction per item, and writes the signatures of migrated items and the errors of failed items to result manifests."
	mintListFlagNameConstant              = "mint-list"
	mintListFlagShorthandConstant         = "m"
	mintListFlagUsageConstant             = "Path to a JSON array of item mint addresses"
	outputDirectoryFlagNameConstant       = "output-directory"
	outputDirectoryFlagShorthandConstant  = "d"
	outputDirectoryFlagUsageConstant      = "Directory receiving the result manifests"
	workersFlagNameConstant               = "workers"
	workersFlagShorthandConstant          = "w"
	workersFlagUsageConstant              = "Number of items migrated concurrently"
	rateFlagNameConstant                  = "rate"
	rateFlagUsageConstant                 = "Maximum transaction submissions per second (0 disables throttling)"
	metricsFileFlagNameConstant           = "metrics-file"
	metricsFileFlagUsageConstant          = "Write run metrics in Prometheus text format to this file"
	migratedManifestLabelConstant         = "migrated mints"
	failedManifestLabelConstant           = "failed mints"
	sessionOpenErrorTemplateConstant      = "unable to open session: %w"
	clusterErrorTemplateConstant          = "unable to determine cluster: %w"
	resolverCreationErrorTemplateConstant = "unable to construct account resolver: %w"
	serviceCreationErrorTemplateConstant  = "unable to construct migration service: %w"
	logMessageMetricsWriteFailedConstant  = "Unable to write metrics file"
	logFieldMetricsFileConstant           = "metrics_file"
	logFieldConfigurationFileConstant     = "config_file"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// Runner executes a migration run.
type Runner interface {
	Run(executionContext context.Context, request Request) (Report, error)
}

// ServiceProvider constructs a Runner from dependencies.
type ServiceProvider func(dependencies ServiceDependencies, options Options) (Runner, error)

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        func() CommandConfiguration
	SessionConfigurationProvider func() session.Configuration
	SessionProvider              session.Provider
	ServiceProvider              ServiceProvider
}

type commandOptions struct {
	manifestPath  string
	configuration CommandConfiguration
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
	}

	collectionMint := flags.BindCollectionMintFlag(command)
	command.Flags().StringP(mintListFlagNameConstant, mintListFlagShorthandConstant, "", mintListFlagUsageConstant)
	_ = command.MarkFlagRequired(mintListFlagNameConstant)
	command.Flags().StringP(outputDirectoryFlagNameConstant, outputDirectoryFlagShorthandConstant, "", outputDirectoryFlagUsageConstant)
	command.Flags().IntP(workersFlagNameConstant, workersFlagShorthandConstant, 0, workersFlagUsageConstant)
	command.Flags().Float64(rateFlagNameConstant, 0, rateFlagUsageConstant)
	command.Flags().String(metricsFileFlagNameConstant, "", metricsFileFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		collectionKey, _ := collectionMint.PublicKey()
		return builder.run(command, collectionKey, builder.parseOptions(command))
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, collection solana.PublicKey, options commandOptions) error {
	contextAccessor := utils.NewCommandContextAccessor()
	runID := uuid.NewString()
	executionContext := contextAccessor.WithRunID(command.Context(), runID)
	serviceLogger := builder.resolveLogger()
	if configurationFilePath, available := contextAccessor.ConfigurationFilePath(executionContext); available {
		serviceLogger = serviceLogger.With(zap.String(logFieldConfigurationFileConstant, configurationFilePath))
	}
	logger := serviceLogger.With(zap.String(logFieldRunIDConstant, runID))

	items, manifestError := ReadItemManifest(options.manifestPath)
	if manifestError != nil {
		return manifestError
	}

	sessionConfiguration := session.DefaultConfiguration()
	if builder.SessionConfigurationProvider != nil {
		sessionConfiguration = builder.SessionConfigurationProvider()
	}
	sessionProvider := builder.SessionProvider
	if sessionProvider == nil {
		sessionProvider = session.NewOpener().Open
	}
	activeSession, sessionError := sessionProvider(sessionConfiguration.Sanitize(), logger)
	if sessionError != nil {
		return fmt.Errorf(sessionOpenErrorTemplateConstant, sessionError)
	}

	cluster, clusterError := activeSession.Cluster(executionContext)
	if clusterError != nil {
		return fmt.Errorf(clusterErrorTemplateConstant, clusterError)
	}
	reporter := ui.NewProgressReporter(command.OutOrStdout(), cluster, logger)

	itemResolver, resolverError := resolver.NewResolver(activeSession.Client, options.configuration.CacheSize, logger)
	if resolverError != nil {
		return fmt.Errorf(resolverCreationErrorTemplateConstant, resolverError)
	}

	metrics := NewMetrics()
	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:       serviceLogger,
		Payer:        activeSession.Payer,
		Builder:      activeSession.Builder,
		Resolver:     itemResolver,
		StateFetcher: activeSession.Reader,
		Submitter:    activeSession.Submitter,
		Progress:     reporter,
		Metrics:      metrics,
	}, Options{
		Workers:              options.configuration.Workers,
		SubmissionsPerSecond: options.configuration.SubmissionsPerSecond,
	})
	if serviceError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, serviceError)
	}

	report, runError := service.Run(executionContext, Request{
		Collection:      collection,
		ManifestPath:    options.manifestPath,
		OutputDirectory: options.configuration.OutputDirectory,
		Items:           items,
	})

	if len(report.ResultManifestPath) > 0 {
		reporter.ManifestWritten(len(report.Outcomes), migratedManifestLabelConstant, report.ResultManifestPath)
	}
	if len(report.FailureManifestPath) > 0 {
		reporter.ManifestWritten(len(report.Failures), failedManifestLabelConstant, report.FailureManifestPath)
	}
	if len(report.RunID) > 0 {
		reporter.RunCompleted(len(report.Outcomes), report.ItemCount)
	}

	if len(options.configuration.MetricsFile) > 0 {
		if metricsError := metrics.WriteToTextfile(options.configuration.MetricsFile); metricsError != nil {
			logger.Warn(logMessageMetricsWriteFailedConstant, zap.String(logFieldMetricsFileConstant, options.configuration.MetricsFile), zap.Error(metricsError))
			runError = errors.Join(runError, metricsError)
		}
	}

	return runError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) commandOptions {
	configuration := builder.resolveConfiguration()

	manifestPath, _ := command.Flags().GetString(mintListFlagNameConstant)
	if command.Flags().Changed(outputDirectoryFlagNameConstant) {
		configuration.OutputDirectory, _ = command.Flags().GetString(outputDirectoryFlagNameConstant)
	}
	if command.Flags().Changed(workersFlagNameConstant) {
		configuration.Workers, _ = command.Flags().GetInt(workersFlagNameConstant)
	}
	if command.Flags().Changed(rateFlagNameConstant) {
		configuration.SubmissionsPerSecond, _ = command.Flags().GetFloat64(rateFlagNameConstant)
	}
	if command.Flags().Changed(metricsFileFlagNameConstant) {
		configuration.MetricsFile, _ = command.Flags().GetString(metricsFileFlagNameConstant)
	}

	return commandOptions{
		manifestPath:  migrateConfigurationPathResolver.Expand(manifestPath),
		configuration: configuration.Sanitize(),
	}
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies, options Options) (Runner, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies, options)
	}
	return NewService(dependencies, options)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}
