package authority

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/chain"
	"github.com/temirov/goose/internal/instructions"
	"github.com/temirov/goose/internal/session"
	"github.com/temirov/goose/internal/state"
	"github.com/temirov/goose/internal/utils"
)

const (
	statesFileNameTemplateConstant         = "%s_migration_states.json"
	missingSessionMessageConstant          = "authority service requires a session"
	buildErrorTemplateConstant             = "unable to build %s instruction: %w"
	submitErrorTemplateConstant            = "%s transaction failed: %w"
	messageEncodeErrorTemplateConstant     = "unable to encode %s message: %w"
	clusterErrorTemplateConstant           = "unable to determine cluster: %w"
	fetchStatesErrorTemplateConstant       = "unable to fetch migration states: %w"
	writeStatesErrorTemplateConstant       = "unable to write migration states: %w"
	logMessageTransactionConfirmedConstant = "Authority transaction confirmed"
	logMessageStatesWrittenConstant        = "Migration states written"
	logFieldInstructionConstant            = "instruction"
	logFieldSignatureConstant              = "signature"
	logFieldCollectionMintConstant         = "collection_mint"
	logFieldStatesPathConstant             = "path"
	logFieldStateCountConstant             = "state_count"
)

var errMissingSession = errors.New(missingSessionMessageConstant)

// InitializeOptions describes a new migration state.
type InitializeOptions struct {
	CollectionMint solana.PublicKey
	UnlockMethod   state.UnlockMethod
	CollectionSize uint32
	RuleSet        *solana.PublicKey
}

// StatesDump reports where all migration states of a cluster were written.
type StatesDump struct {
	Path       string
	Cluster    chain.Cluster
	StateCount int
}

// Service executes authority operations with the session payer acting as authority.
type Service struct {
	session *session.Session
	logger  *zap.Logger
}

// NewService constructs a Service.
func NewService(activeSession *session.Session, logger *zap.Logger) (*Service, error) {
	if activeSession == nil {
		return nil, errMissingSession
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{session: activeSession, logger: logger}, nil
}

// Initialize creates the migration state for a collection. An absent rule set is stored as the zero key.
func (service *Service) Initialize(executionContext context.Context, options InitializeOptions) (solana.Signature, error) {
	payer := service.session.PayerPublicKey()
	instruction, buildError := service.session.Builder.Initialize(payer, payer, options.CollectionMint, initializeArguments(options))
	if buildError != nil {
		return solana.Signature{}, fmt.Errorf(buildErrorTemplateConstant, instructions.KindInitialize, buildError)
	}
	return service.submit(executionContext, instructions.KindInitialize, options.CollectionMint, instruction)
}

// InitializeMessage encodes an unsigned initialize transaction message where authority pays and signs.
// The result is base64 and suitable for external signing tools.
func (service *Service) InitializeMessage(options InitializeOptions, authority solana.PublicKey) (string, error) {
	instruction, buildError := service.session.Builder.Initialize(authority, authority, options.CollectionMint, initializeArguments(options))
	if buildError != nil {
		return "", fmt.Errorf(buildErrorTemplateConstant, instructions.KindInitialize, buildError)
	}
	encodedMessage, encodeError := chain.EncodeUnsignedMessage([]solana.Instruction{instruction}, authority)
	if encodeError != nil {
		return "", fmt.Errorf(messageEncodeErrorTemplateConstant, instructions.KindInitialize, encodeError)
	}
	return encodedMessage, nil
}

// InitializeSigner creates the program signer account.
func (service *Service) InitializeSigner(executionContext context.Context) (solana.Signature, error) {
	instruction, buildError := service.session.Builder.InitSigner(service.session.PayerPublicKey())
	if buildError != nil {
		return solana.Signature{}, fmt.Errorf(buildErrorTemplateConstant, instructions.KindInitSigner, buildError)
	}
	return service.submit(executionContext, instructions.KindInitSigner, solana.PublicKey{}, instruction)
}

// Close cancels a migration by deleting its state.
func (service *Service) Close(executionContext context.Context, collectionMint solana.PublicKey) (solana.Signature, error) {
	instruction, buildError := service.session.Builder.Close(service.session.PayerPublicKey(), collectionMint)
	if buildError != nil {
		return solana.Signature{}, fmt.Errorf(buildErrorTemplateConstant, instructions.KindClose, buildError)
	}
	return service.submit(executionContext, instructions.KindClose, collectionMint, instruction)
}

// Update changes the rule set or collection size of a migration state.
func (service *Service) Update(executionContext context.Context, collectionMint solana.PublicKey, arguments instructions.UpdateArgs) (solana.Signature, error) {
	instruction, buildError := service.session.Builder.Update(service.session.PayerPublicKey(), collectionMint, arguments)
	if buildError != nil {
		return solana.Signature{}, fmt.Errorf(buildErrorTemplateConstant, instructions.KindUpdate, buildError)
	}
	return service.submit(executionContext, instructions.KindUpdate, collectionMint, instruction)
}

// Start opens the migration window of a collection.
func (service *Service) Start(executionContext context.Context, collectionMint solana.PublicKey) (solana.Signature, error) {
	payer := service.session.PayerPublicKey()
	instruction, buildError := service.session.Builder.Start(payer, payer, collectionMint)
	if buildError != nil {
		return solana.Signature{}, fmt.Errorf(buildErrorTemplateConstant, instructions.KindStart, buildError)
	}
	return service.submit(executionContext, instructions.KindStart, collectionMint, instruction)
}

// Sudo overrides the unlock time of a migration state.
func (service *Service) Sudo(executionContext context.Context, collectionMint solana.PublicKey, unlockTime int64) (solana.Signature, error) {
	instruction, buildError := service.session.Builder.Sudo(service.session.PayerPublicKey(), collectionMint, unlockTime)
	if buildError != nil {
		return solana.Signature{}, fmt.Errorf(buildErrorTemplateConstant, instructions.KindSudo, buildError)
	}
	return service.submit(executionContext, instructions.KindSudo, collectionMint, instruction)
}

// State reads the migration state of a collection.
func (service *Service) State(executionContext context.Context, collectionMint solana.PublicKey) (state.MigrationState, error) {
	return service.session.Reader.Fetch(executionContext, collectionMint)
}

// AwaitState waits for delay and then reads the migration state of a collection.
func (service *Service) AwaitState(executionContext context.Context, collectionMint solana.PublicKey, delay time.Duration) (state.MigrationState, error) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-executionContext.Done():
			timer.Stop()
			return state.MigrationState{}, executionContext.Err()
		case <-timer.C:
		}
	}
	return service.State(executionContext, collectionMint)
}

// WriteAllStates writes every migration state of the connected cluster to {cluster}_migration_states.json in outputDirectory.
func (service *Service) WriteAllStates(executionContext context.Context, outputDirectory string) (StatesDump, error) {
	cluster, clusterError := service.session.Cluster(executionContext)
	if clusterError != nil {
		return StatesDump{}, fmt.Errorf(clusterErrorTemplateConstant, clusterError)
	}

	programStates, fetchError := service.session.Reader.FetchAll(executionContext)
	if fetchError != nil {
		return StatesDump{}, fmt.Errorf(fetchStatesErrorTemplateConstant, fetchError)
	}

	stateViews := make([]state.StateView, 0, len(programStates))
	for _, programState := range programStates {
		stateViews = append(stateViews, state.NewStateView(programState.Address, programState.State))
	}

	statesPath := filepath.Join(outputDirectory, fmt.Sprintf(statesFileNameTemplateConstant, cluster))
	if writeError := utils.WriteJSONFile(statesPath, stateViews); writeError != nil {
		return StatesDump{}, fmt.Errorf(writeStatesErrorTemplateConstant, writeError)
	}

	service.logger.Info(
		logMessageStatesWrittenConstant,
		zap.String(logFieldStatesPathConstant, statesPath),
		zap.Int(logFieldStateCountConstant, len(stateViews)),
	)
	return StatesDump{Path: statesPath, Cluster: cluster, StateCount: len(stateViews)}, nil
}

func (service *Service) submit(executionContext context.Context, kind instructions.Kind, collectionMint solana.PublicKey, instruction solana.Instruction) (solana.Signature, error) {
	signature, submitError := service.session.Submitter.Submit(executionContext, []solana.Instruction{instruction}, service.session.Payer)
	if submitError != nil {
		return solana.Signature{}, fmt.Errorf(submitErrorTemplateConstant, kind, submitError)
	}
	service.logger.Info(
		logMessageTransactionConfirmedConstant,
		zap.String(logFieldInstructionConstant, kind.String()),
		zap.String(logFieldCollectionMintConstant, collectionMint.String()),
		zap.String(logFieldSignatureConstant, signature.String()),
	)
	return signature, nil
}

func initializeArguments(options InitializeOptions) instructions.InitializeArgs {
	ruleSet := solana.PublicKey{}
	if options.RuleSet != nil {
		ruleSet = *options.RuleSet
	}
	return instructions.InitializeArgs{
		RuleSet:        &ruleSet,
		UnlockMethod:   options.UnlockMethod,
		CollectionSize: options.CollectionSize,
	}
}
