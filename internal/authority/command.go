package authority

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/goose/internal/instructions"
	"github.com/temirov/goose/internal/session"
	"github.com/temirov/goose/internal/state"
	"github.com/temirov/goose/internal/ui"
	"github.com/temirov/goose/internal/utils"
	"github.com/temirov/goose/internal/utils/flags"
)

const (
	initCommandUseConstant                = "init"
	initCommandShortConstant              = "Initialize the migration state of a collection"
	initMessageCommandUseConstant         = "init-msg"
	initMessageCommandShortConstant       = "Print an unsigned initialize transaction message for external signing"
	initSignerCommandUseConstant          = "init-signer"
	initSignerCommandShortConstant        = "Create the migration program signer account"
	cancelCommandUseConstant              = "cancel"
	cancelCommandShortConstant            = "Cancel a migration by closing its state"
	updateCommandUseConstant              = "update"
	updateCommandShortConstant            = "Update the rule set or collection size of a migration state"
	startCommandUseConstant               = "start"
	startCommandShortConstant             = "Start the migration of a collection"
	sudoCommandUseConstant                = "sudo"
	sudoCommandShortConstant              = "Override the unlock time of a migration state"
	getStateCommandUseConstant            = "get-state"
	getStateCommandShortConstant          = "Print the migration state of a collection"
	getAllStatesCommandUseConstant        = "get-all-states"
	getAllStatesCommandShortConstant      = "Write every migration state on the cluster to a JSON file"
	unlockMethodFlagNameConstant          = "unlock-method"
	unlockMethodFlagShorthandConstant     = "u"
	unlockMethodFlagDescriptionConstant   = "Unlock method of the migration."
	sizeFlagNameConstant                  = "size"
	sizeFlagShorthandConstant             = "s"
	sizeFlagUsageConstant                 = "Number of items in the collection"
	ruleSetFlagNameConstant               = "rule-set"
	ruleSetFlagShorthandConstant          = "r"
	ruleSetFlagUsageConstant              = "Rule set applied to migrated items"
	authorityFlagNameConstant             = "authority"
	authorityFlagShorthandConstant        = "a"
	authorityFlagUsageConstant            = "Authority that will sign the message (defaults to the configured keypair)"
	waitFlagNameConstant                  = "wait"
	waitFlagUsageConstant                 = "Delay before reading back the initialized state"
	unlockTimeFlagNameConstant            = "unlock-time"
	unlockTimeFlagShorthandConstant       = "t"
	unlockTimeFlagUsageConstant           = "Unix timestamp to set as the unlock time (defaults to now)"
	outputFlagNameConstant                = "output"
	outputFlagShorthandConstant           = "o"
	outputFlagDescriptionConstant         = "Output format."
	outputDirectoryFlagNameConstant       = "output-directory"
	outputDirectoryFlagShorthandConstant  = "d"
	outputDirectoryFlagUsageConstant      = "Directory receiving the states file"
	outputFormatYAMLConstant              = "yaml"
	outputFormatJSONConstant              = "json"
	defaultInitializeWaitConstant         = 3 * time.Second
	defaultOutputDirectoryConstant        = "."
	initializedActionConstant             = "Initialized migration state"
	signerInitializedActionConstant       = "Initialized program signer"
	canceledActionConstant                = "Canceled migration"
	updatedActionConstant                 = "Updated migration state"
	startedActionConstant                 = "Started migration"
	sudoActionConstant                    = "Updated unlock time"
	migrationStateHeaderConstant          = "Migration state:"
	statesLabelConstant                   = "migration states"
	nothingToUpdateMessageConstant        = "update requires --rule-set or --size"
	sessionOpenErrorTemplateConstant      = "unable to open session: %w"
	renderStateErrorTemplateConstant      = "unable to render migration state: %w"
	invalidOutputFormatTemplateConstant   = "invalid output format: %w"
	unlockMethodFlagErrorTemplateConstant = "invalid --unlock-method: %w"
	clusterForOutputErrorTemplateConstant = "unable to determine cluster: %w"
	logFieldCommandConstant               = "command"
	logFieldConfigurationFileConstant     = "config_file"
)

var errNothingToUpdate = errors.New(nothingToUpdateMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the connection configuration.
type ConfigurationProvider func() session.Configuration

// CommandBuilder assembles the authority commands.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	SessionProvider       session.Provider
	Clock                 func() time.Time
}

// Build constructs every authority command.
func (builder *CommandBuilder) Build() ([]*cobra.Command, error) {
	return []*cobra.Command{
		builder.buildInitCommand(),
		builder.buildInitMessageCommand(),
		builder.buildInitSignerCommand(),
		builder.buildCancelCommand(),
		builder.buildUpdateCommand(),
		builder.buildStartCommand(),
		builder.buildSudoCommand(),
		builder.buildGetStateCommand(),
		builder.buildGetAllStatesCommand(),
	}, nil
}

func (builder *CommandBuilder) buildInitCommand() *cobra.Command {
	command := newLeafCommand(initCommandUseConstant, initCommandShortConstant)
	collectionMint := flags.BindCollectionMintFlag(command)
	ruleSet := flags.BindPublicKeyFlag(command, ruleSetFlagNameConstant, ruleSetFlagShorthandConstant, ruleSetFlagUsageConstant)
	bindInitializeFlags(command)
	command.Flags().Duration(waitFlagNameConstant, defaultInitializeWaitConstant, waitFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		options, optionsError := readInitializeOptions(command, collectionMint, ruleSet)
		if optionsError != nil {
			return optionsError
		}
		waitDuration, _ := command.Flags().GetDuration(waitFlagNameConstant)

		service, reporter, serviceError := builder.openService(command)
		if serviceError != nil {
			return serviceError
		}

		signature, initializeError := service.Initialize(command.Context(), options)
		if initializeError != nil {
			return initializeError
		}
		reporter.TransactionConfirmed(initializedActionConstant, signature)

		migrationState, stateError := service.AwaitState(command.Context(), options.CollectionMint, waitDuration)
		if stateError != nil {
			return stateError
		}
		reporter.Println(migrationStateHeaderConstant)
		return renderState(command.OutOrStdout(), migrationState, outputFormatYAMLConstant)
	}
	return command
}

func (builder *CommandBuilder) buildInitMessageCommand() *cobra.Command {
	command := newLeafCommand(initMessageCommandUseConstant, initMessageCommandShortConstant)
	collectionMint := flags.BindCollectionMintFlag(command)
	ruleSet := flags.BindPublicKeyFlag(command, ruleSetFlagNameConstant, ruleSetFlagShorthandConstant, ruleSetFlagUsageConstant)
	authority := flags.BindPublicKeyFlag(command, authorityFlagNameConstant, authorityFlagShorthandConstant, authorityFlagUsageConstant)
	bindInitializeFlags(command)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		options, optionsError := readInitializeOptions(command, collectionMint, ruleSet)
		if optionsError != nil {
			return optionsError
		}

		activeSession, sessionError := builder.openSession(command)
		if sessionError != nil {
			return sessionError
		}
		service, serviceError := NewService(activeSession, builder.resolveLogger(command))
		if serviceError != nil {
			return serviceError
		}

		signingAuthority, authorityProvided := authority.PublicKey()
		if !authorityProvided {
			signingAuthority = activeSession.PayerPublicKey()
		}

		encodedMessage, messageError := service.InitializeMessage(options, signingAuthority)
		if messageError != nil {
			return messageError
		}
		_, writeError := fmt.Fprintln(command.OutOrStdout(), encodedMessage)
		return writeError
	}
	return command
}

func (builder *CommandBuilder) buildInitSignerCommand() *cobra.Command {
	command := newLeafCommand(initSignerCommandUseConstant, initSignerCommandShortConstant)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		service, reporter, serviceError := builder.openService(command)
		if serviceError != nil {
			return serviceError
		}
		signature, signerError := service.InitializeSigner(command.Context())
		if signerError != nil {
			return signerError
		}
		reporter.TransactionConfirmed(signerInitializedActionConstant, signature)
		return nil
	}
	return command
}

func (builder *CommandBuilder) buildCancelCommand() *cobra.Command {
	command := newLeafCommand(cancelCommandUseConstant, cancelCommandShortConstant)
	collectionMint := flags.BindCollectionMintFlag(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		collectionKey, _ := collectionMint.PublicKey()
		service, reporter, serviceError := builder.openService(command)
		if serviceError != nil {
			return serviceError
		}
		signature, closeError := service.Close(command.Context(), collectionKey)
		if closeError != nil {
			return closeError
		}
		reporter.TransactionConfirmed(canceledActionConstant, signature)
		return nil
	}
	return command
}

func (builder *CommandBuilder) buildUpdateCommand() *cobra.Command {
	command := newLeafCommand(updateCommandUseConstant, updateCommandShortConstant)
	collectionMint := flags.BindCollectionMintFlag(command)
	ruleSet := flags.BindPublicKeyFlag(command, ruleSetFlagNameConstant, ruleSetFlagShorthandConstant, ruleSetFlagUsageConstant)
	command.Flags().Uint32P(sizeFlagNameConstant, sizeFlagShorthandConstant, 0, sizeFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		collectionKey, _ := collectionMint.PublicKey()
		updateArguments := instructions.UpdateArgs{RuleSet: ruleSet.Pointer()}
		if command.Flags().Changed(sizeFlagNameConstant) {
			collectionSize, _ := command.Flags().GetUint32(sizeFlagNameConstant)
			updateArguments.CollectionSize = &collectionSize
		}
		if updateArguments.RuleSet == nil && updateArguments.CollectionSize == nil {
			return errNothingToUpdate
		}

		service, reporter, serviceError := builder.openService(command)
		if serviceError != nil {
			return serviceError
		}
		signature, updateError := service.Update(command.Context(), collectionKey, updateArguments)
		if updateError != nil {
			return updateError
		}
		reporter.TransactionConfirmed(updatedActionConstant, signature)
		return nil
	}
	return command
}

func (builder *CommandBuilder) buildStartCommand() *cobra.Command {
	command := newLeafCommand(startCommandUseConstant, startCommandShortConstant)
	collectionMint := flags.BindCollectionMintFlag(command)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		collectionKey, _ := collectionMint.PublicKey()
		service, reporter, serviceError := builder.openService(command)
		if serviceError != nil {
			return serviceError
		}
		signature, startError := service.Start(command.Context(), collectionKey)
		if startError != nil {
			return startError
		}
		reporter.TransactionConfirmed(startedActionConstant, signature)
		return nil
	}
	return command
}

func (builder *CommandBuilder) buildSudoCommand() *cobra.Command {
	command := newLeafCommand(sudoCommandUseConstant, sudoCommandShortConstant)
	collectionMint := flags.BindCollectionMintFlag(command)
	command.Flags().Int64P(unlockTimeFlagNameConstant, unlockTimeFlagShorthandConstant, 0, unlockTimeFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		collectionKey, _ := collectionMint.PublicKey()
		unlockTime := builder.now().Unix()
		if command.Flags().Changed(unlockTimeFlagNameConstant) {
			unlockTime, _ = command.Flags().GetInt64(unlockTimeFlagNameConstant)
		}

		service, reporter, serviceError := builder.openService(command)
		if serviceError != nil {
			return serviceError
		}
		signature, sudoError := service.Sudo(command.Context(), collectionKey, unlockTime)
		if sudoError != nil {
			return sudoError
		}
		reporter.TransactionConfirmed(sudoActionConstant, signature)
		return nil
	}
	return command
}

func (builder *CommandBuilder) buildGetStateCommand() *cobra.Command {
	command := newLeafCommand(getStateCommandUseConstant, getStateCommandShortConstant)
	collectionMint := flags.BindCollectionMintFlag(command)
	command.Flags().StringP(outputFlagNameConstant, outputFlagShorthandConstant, outputFormatYAMLConstant, flags.FormatChoiceUsage(outputFormatYAMLConstant, outputFormatChoices(), outputFlagDescriptionConstant))

	command.RunE = func(command *cobra.Command, arguments []string) error {
		rawFormat, _ := command.Flags().GetString(outputFlagNameConstant)
		outputFormat, formatError := flags.NormalizeChoice(rawFormat, outputFormatChoices())
		if formatError != nil {
			return fmt.Errorf(invalidOutputFormatTemplateConstant, formatError)
		}
		collectionKey, _ := collectionMint.PublicKey()

		activeSession, sessionError := builder.openSession(command)
		if sessionError != nil {
			return sessionError
		}
		service, serviceError := NewService(activeSession, builder.resolveLogger(command))
		if serviceError != nil {
			return serviceError
		}
		migrationState, stateError := service.State(command.Context(), collectionKey)
		if stateError != nil {
			return stateError
		}
		return renderState(command.OutOrStdout(), migrationState, outputFormat)
	}
	return command
}

func (builder *CommandBuilder) buildGetAllStatesCommand() *cobra.Command {
	command := newLeafCommand(getAllStatesCommandUseConstant, getAllStatesCommandShortConstant)
	command.Flags().StringP(outputDirectoryFlagNameConstant, outputDirectoryFlagShorthandConstant, defaultOutputDirectoryConstant, outputDirectoryFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		outputDirectory, _ := command.Flags().GetString(outputDirectoryFlagNameConstant)

		service, reporter, serviceError := builder.openService(command)
		if serviceError != nil {
			return serviceError
		}
		statesDump, dumpError := service.WriteAllStates(command.Context(), outputDirectory)
		if dumpError != nil {
			return dumpError
		}
		reporter.ManifestWritten(statesDump.StateCount, statesLabelConstant, statesDump.Path)
		return nil
	}
	return command
}

func (builder *CommandBuilder) openService(command *cobra.Command) (*Service, *ui.ProgressReporter, error) {
	logger := builder.resolveLogger(command)
	activeSession, sessionError := builder.openSession(command)
	if sessionError != nil {
		return nil, nil, sessionError
	}
	service, serviceError := NewService(activeSession, logger)
	if serviceError != nil {
		return nil, nil, serviceError
	}
	cluster, clusterError := activeSession.Cluster(command.Context())
	if clusterError != nil {
		return nil, nil, fmt.Errorf(clusterForOutputErrorTemplateConstant, clusterError)
	}
	return service, ui.NewProgressReporter(command.OutOrStdout(), cluster, logger), nil
}

func (builder *CommandBuilder) openSession(command *cobra.Command) (*session.Session, error) {
	configuration := session.DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	provider := builder.SessionProvider
	if provider == nil {
		provider = session.NewOpener().Open
	}
	activeSession, openError := provider(configuration.Sanitize(), builder.resolveLogger(command))
	if openError != nil {
		return nil, fmt.Errorf(sessionOpenErrorTemplateConstant, openError)
	}
	return activeSession, nil
}

func (builder *CommandBuilder) resolveLogger(command *cobra.Command) *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String(logFieldCommandConstant, command.Name()))
	if configurationFilePath, available := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context()); available {
		logger = logger.With(zap.String(logFieldConfigurationFileConstant, configurationFilePath))
	}
	return logger
}

func (builder *CommandBuilder) now() time.Time {
	if builder.Clock != nil {
		return builder.Clock()
	}
	return time.Now()
}

func newLeafCommand(use string, short string) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
	}
}

func bindInitializeFlags(command *cobra.Command) {
	defaultUnlockMethod := strings.ToLower(state.UnlockMethodTimed.String())
	command.Flags().StringP(unlockMethodFlagNameConstant, unlockMethodFlagShorthandConstant, defaultUnlockMethod, flags.FormatChoiceUsage(defaultUnlockMethod, state.UnlockMethodChoices(), unlockMethodFlagDescriptionConstant))
	command.Flags().Uint32P(sizeFlagNameConstant, sizeFlagShorthandConstant, 0, sizeFlagUsageConstant)
}

func readInitializeOptions(command *cobra.Command, collectionMint *flags.PublicKeyValue, ruleSet *flags.PublicKeyValue) (InitializeOptions, error) {
	rawUnlockMethod, _ := command.Flags().GetString(unlockMethodFlagNameConstant)
	unlockMethod, unlockError := state.ParseUnlockMethod(rawUnlockMethod)
	if unlockError != nil {
		return InitializeOptions{}, fmt.Errorf(unlockMethodFlagErrorTemplateConstant, unlockError)
	}
	collectionSize, _ := command.Flags().GetUint32(sizeFlagNameConstant)
	collectionKey, _ := collectionMint.PublicKey()
	return InitializeOptions{
		CollectionMint: collectionKey,
		UnlockMethod:   unlockMethod,
		CollectionSize: collectionSize,
		RuleSet:        ruleSet.Pointer(),
	}, nil
}

func outputFormatChoices() []string {
	return []string{outputFormatYAMLConstant, outputFormatJSONConstant}
}

func renderState(output io.Writer, migrationState state.MigrationState, outputFormat string) error {
	stateView := state.NewStateView(solana.PublicKey{}, migrationState)

	var rendered []byte
	var renderError error
	switch outputFormat {
	case outputFormatJSONConstant:
		rendered, renderError = json.MarshalIndent(stateView, "", "  ")
		rendered = append(rendered, '\n')
	default:
		rendered, renderError = yaml.Marshal(stateView)
	}
	if renderError != nil {
		return fmt.Errorf(renderStateErrorTemplateConstant, renderError)
	}

	_, writeError := output.Write(rendered)
	return writeError
}
