package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/authority"
	"github.com/temirov/goose/internal/migrate"
	"github.com/temirov/goose/internal/session"
	"github.com/temirov/goose/internal/utils"
)

const (
	applicationNameConstant                 = "goose"
	applicationShortDescriptionConstant     = "Operate collection migrations through the migration validator program"
	applicationLongDescriptionConstant      = "goose initializes and administers per-collection migration state accounts and migrates every item of a collection, reporting each confirmed transaction with an explorer link."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level (debug, info, warn, error)."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	solanaConfigFlagNameConstant            = "solana-config"
	solanaConfigFlagUsageConstant           = "Path to the Solana CLI configuration file."
	rpcURLFlagNameConstant                  = "rpc-url"
	rpcURLFlagUsageConstant                 = "Override the RPC endpoint from the Solana CLI configuration."
	keypairFlagNameConstant                 = "keypair"
	keypairFlagUsageConstant                = "Override the fee payer keypair from the Solana CLI configuration."
	programIDFlagNameConstant               = "program-id"
	programIDFlagUsageConstant              = "Migration validator program address (defaults to the deployed program)."
	commitmentFlagNameConstant              = "commitment"
	commitmentFlagUsageConstant             = "Override the commitment level from the Solana CLI configuration."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	solanaConfigurationKeyConstant          = "solana"
	solanaConfigPathConfigKeyConstant       = solanaConfigurationKeyConstant + ".config_path"
	solanaRPCURLConfigKeyConstant           = solanaConfigurationKeyConstant + ".rpc_url"
	solanaKeypairConfigKeyConstant          = solanaConfigurationKeyConstant + ".keypair_path"
	solanaProgramIDConfigKeyConstant        = solanaConfigurationKeyConstant + ".program_id"
	solanaCommitmentConfigKeyConstant       = solanaConfigurationKeyConstant + ".commitment"
	migrateConfigurationKeyConstant         = "migrate"
	environmentPrefixConstant               = "GOOSE"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationDirectoryNameConstant  = "goose"
	configurationInitializedMessageConstant = "Configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
)

// Version is the application version reported by --version. Release builds override it through -ldflags.
var Version = "dev"

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common  ApplicationCommonConfiguration `mapstructure:"common"`
	Solana  session.Configuration          `mapstructure:"solana"`
	Migrate migrate.CommandConfiguration   `mapstructure:"migrate"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	commandContextAccessor utils.CommandContextAccessor
	sessionProvider        session.Provider
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader := utils.NewConfigurationLoader(utils.ConfigurationSource{
		Name:              configurationNameConstant,
		Type:              embeddedConfigurationType,
		EnvironmentPrefix: environmentPrefixConstant,
		SearchPaths:       configurationSearchPaths(),
		Embedded:          embeddedConfiguration,
	})

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.String(logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.String(logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	persistentFlags.String(solanaConfigFlagNameConstant, "", solanaConfigFlagUsageConstant)
	persistentFlags.String(rpcURLFlagNameConstant, "", rpcURLFlagUsageConstant)
	persistentFlags.String(keypairFlagNameConstant, "", keypairFlagUsageConstant)
	persistentFlags.String(programIDFlagNameConstant, "", programIDFlagUsageConstant)
	persistentFlags.String(commitmentFlagNameConstant, "", commitmentFlagUsageConstant)

	authorityBuilder := authority.CommandBuilder{
		LoggerProvider: application.currentLogger,
		ConfigurationProvider: func() session.Configuration {
			return application.configuration.Solana
		},
		SessionProvider: application.openSession,
	}
	authorityCommands, authorityBuildError := authorityBuilder.Build()
	if authorityBuildError == nil {
		cobraCommand.AddCommand(authorityCommands...)
	}

	migrateBuilder := migrate.CommandBuilder{
		LoggerProvider: application.currentLogger,
		ConfigurationProvider: func() migrate.CommandConfiguration {
			return application.configuration.Migrate
		},
		SessionConfigurationProvider: func() session.Configuration {
			return application.configuration.Solana
		},
		SessionProvider: application.openSession,
	}
	migrateCommand, migrateBuildError := migrateBuilder.Build()
	if migrateBuildError == nil {
		cobraCommand.AddCommand(migrateCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command hierarchy until completion or until SIGINT/SIGTERM cancels it, then flushes the logger.
func (application *Application) Execute() error {
	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	executionError := application.rootCommand.ExecuteContext(signalContext)
	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for configurationKey, configurationValue := range session.DefaultConfigurationValues(solanaConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range migrate.DefaultConfigurationValues(migrateConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(
		application.configurationFilePath,
		defaultValues,
		application.flagBindings(command),
		&application.configuration,
	)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		application.configuration.Common.LogLevel,
		application.configuration.Common.LogFormat,
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
	}

	return nil
}

// flagBindings maps configuration keys to the persistent flags that override them.
func (application *Application) flagBindings(command *cobra.Command) map[string]*pflag.Flag {
	flagSet := application.rootCommand.PersistentFlags()
	if command != nil {
		flagSet = command.Root().PersistentFlags()
	}
	return map[string]*pflag.Flag{
		commonLogLevelConfigKeyConstant:   flagSet.Lookup(logLevelFlagNameConstant),
		commonLogFormatConfigKeyConstant:  flagSet.Lookup(logFormatFlagNameConstant),
		solanaConfigPathConfigKeyConstant: flagSet.Lookup(solanaConfigFlagNameConstant),
		solanaRPCURLConfigKeyConstant:     flagSet.Lookup(rpcURLFlagNameConstant),
		solanaKeypairConfigKeyConstant:    flagSet.Lookup(keypairFlagNameConstant),
		solanaProgramIDConfigKeyConstant:  flagSet.Lookup(programIDFlagNameConstant),
		solanaCommitmentConfigKeyConstant: flagSet.Lookup(commitmentFlagNameConstant),
	}
}

func (application *Application) currentLogger() *zap.Logger {
	return application.logger
}

func (application *Application) openSession(configuration session.Configuration, logger *zap.Logger) (*session.Session, error) {
	if application.sessionProvider != nil {
		return application.sessionProvider(configuration, logger)
	}
	return session.NewOpener().Open(configuration, logger)
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}
