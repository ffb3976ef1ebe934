package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/chain"
	"github.com/temirov/goose/internal/instructions"
	"github.com/temirov/goose/internal/pda"
	"github.com/temirov/goose/internal/state"
	"github.com/temirov/goose/internal/wallet"
)

const (
	walletLoadErrorTemplateConstant     = "unable to load wallet: %w"
	programIDParseErrorTemplateConstant = "invalid program id %q: %w"
	clientCreationErrorTemplateConstant = "unable to create rpc client: %w"
	submitterErrorTemplateConstant      = "unable to create transaction submitter: %w"
	readerErrorTemplateConstant         = "unable to create state reader: %w"
	missingClientMessageConstant        = "session requires an rpc client"
	logMessageSessionOpenedConstant     = "Session opened"
	logMessageClusterResolvedConstant   = "Cluster resolved"
	logFieldRPCURLConstant              = "rpc_url"
	logFieldPayerConstant               = "payer"
	logFieldProgramIDConstant           = "program_id"
	logFieldClusterConstant             = "cluster"
)

var errMissingClient = errors.New(missingClientMessageConstant)

// ClientFactory creates a chain client for the resolved connection options.
type ClientFactory func(options chain.RPCClientOptions) (chain.Client, error)

// WalletLoader resolves the payer and endpoint.
type WalletLoader interface {
	Load(settings wallet.Settings) (wallet.Wallet, error)
}

// Provider opens a Session for a command.
type Provider func(configuration Configuration, logger *zap.Logger) (*Session, error)

// Session bundles the collaborators shared by every command invocation.
type Session struct {
	Client    chain.Client
	Payer     solana.PrivateKey
	Deriver   pda.Deriver
	Builder   instructions.Builder
	Submitter *chain.Submitter
	Reader    *state.Reader

	logger       *zap.Logger
	clusterGuard sync.Once
	cluster      chain.Cluster
	clusterError error
}

// Opener builds sessions from configuration.
type Opener struct {
	WalletLoader  WalletLoader
	ClientFactory ClientFactory
}

// NewOpener returns an Opener backed by the Solana CLI configuration and the JSON-RPC client.
func NewOpener() Opener {
	return Opener{WalletLoader: wallet.NewLoader(nil), ClientFactory: newRPCClient}
}

// Open loads the wallet and constructs a Session.
func (opener Opener) Open(configuration Configuration, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitizedConfiguration := configuration.Sanitize()

	programID := solana.PublicKey{}
	if len(sanitizedConfiguration.ProgramID) > 0 {
		parsedProgramID, parseError := solana.PublicKeyFromBase58(sanitizedConfiguration.ProgramID)
		if parseError != nil {
			return nil, fmt.Errorf(programIDParseErrorTemplateConstant, sanitizedConfiguration.ProgramID, parseError)
		}
		programID = parsedProgramID
	}

	walletLoader := opener.WalletLoader
	if walletLoader == nil {
		walletLoader = wallet.NewLoader(nil)
	}
	loadedWallet, walletError := walletLoader.Load(wallet.Settings{
		ConfigurationPath: sanitizedConfiguration.ConfigPath,
		RPCURL:            sanitizedConfiguration.RPCURL,
		KeypairPath:       sanitizedConfiguration.KeypairPath,
		Commitment:        sanitizedConfiguration.Commitment,
	})
	if walletError != nil {
		return nil, fmt.Errorf(walletLoadErrorTemplateConstant, walletError)
	}

	clientFactory := opener.ClientFactory
	if clientFactory == nil {
		clientFactory = newRPCClient
	}
	client, clientError := clientFactory(chain.RPCClientOptions{
		Endpoint:            loadedWallet.RPCURL,
		Commitment:          loadedWallet.Commitment,
		ConfirmationTimeout: time.Duration(sanitizedConfiguration.TimeoutSeconds) * time.Second,
		Logger:              logger,
	})
	if clientError != nil {
		return nil, fmt.Errorf(clientCreationErrorTemplateConstant, clientError)
	}

	session, sessionError := New(client, loadedWallet.Payer, programID, logger)
	if sessionError != nil {
		return nil, sessionError
	}

	logger.Debug(
		logMessageSessionOpenedConstant,
		zap.String(logFieldRPCURLConstant, loadedWallet.RPCURL),
		zap.String(logFieldPayerConstant, loadedWallet.Payer.PublicKey().String()),
		zap.String(logFieldProgramIDConstant, session.Deriver.MigrationProgramID().String()),
	)
	return session, nil
}

// New constructs a Session around an existing client. A zero programID selects the default migration program.
func New(client chain.Client, payer solana.PrivateKey, programID solana.PublicKey, logger *zap.Logger) (*Session, error) {
	if client == nil {
		return nil, errMissingClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deriver := pda.NewDeriver(programID)
	submitter, submitterError := chain.NewSubmitter(client, logger)
	if submitterError != nil {
		return nil, fmt.Errorf(submitterErrorTemplateConstant, submitterError)
	}
	reader, readerError := state.NewReader(client, deriver, logger)
	if readerError != nil {
		return nil, fmt.Errorf(readerErrorTemplateConstant, readerError)
	}

	return &Session{
		Client:    client,
		Payer:     payer,
		Deriver:   deriver,
		Builder:   instructions.NewBuilder(deriver),
		Submitter: submitter,
		Reader:    reader,
		logger:    logger,
	}, nil
}

// PayerPublicKey returns the fee payer address.
func (session *Session) PayerPublicKey() solana.PublicKey {
	return session.Payer.PublicKey()
}

// Cluster classifies the connected endpoint. The genesis hash is queried at most once per session.
func (session *Session) Cluster(executionContext context.Context) (chain.Cluster, error) {
	session.clusterGuard.Do(func() {
		session.cluster, session.clusterError = chain.ResolveCluster(executionContext, session.Client)
		if session.clusterError == nil {
			session.logger.Debug(logMessageClusterResolvedConstant, zap.String(logFieldClusterConstant, session.cluster.String()))
		}
	})
	return session.cluster, session.clusterError
}

func newRPCClient(options chain.RPCClientOptions) (chain.Client, error) {
	if len(strings.TrimSpace(options.Endpoint)) == 0 {
		return nil, wallet.ErrMissingRPCURL
	}
	rpcClient, clientError := chain.NewRPCClient(options)
	if clientError != nil {
		return nil, clientError
	}
	return rpcClient, nil
}
