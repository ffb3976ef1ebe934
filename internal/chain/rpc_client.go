package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	defaultConfirmationTimeoutConstant       = 60 * time.Second
	defaultConfirmationPollIntervalConstant  = 500 * time.Millisecond
	commitmentProcessedConstant              = "processed"
	commitmentConfirmedConstant              = "confirmed"
	commitmentFinalizedConstant              = "finalized"
	unsupportedCommitmentTemplateConstant    = "unsupported commitment level: %s"
	accountFetchErrorTemplateConstant        = "unable to fetch account %s: %w"
	accountNotFoundTemplateConstant          = "%w: %s"
	programAccountsErrorTemplateConstant     = "unable to list accounts owned by %s: %w"
	largestAccountsErrorTemplateConstant     = "unable to list token accounts for mint %s: %w"
	latestBlockhashErrorTemplateConstant     = "unable to fetch latest blockhash: %w"
	genesisHashErrorTemplateConstant         = "unable to fetch genesis hash: %w"
	sendTransactionErrorTemplateConstant     = "%w: %v"
	transactionFailedTemplateConstant        = "%w: transaction %s failed: %v"
	confirmationTimeoutTemplateConstant      = "%w: transaction %s was not confirmed within %s"
	signatureStatusErrorTemplateConstant     = "unable to fetch status of transaction %s: %w"
	logMessageTransactionSentConstant        = "Transaction sent"
	logMessageTransactionConfirmedConstant   = "Transaction confirmed"
	logFieldSignatureConstant                = "signature"
	logFieldConfirmationStatusConstant       = "confirmation_status"
	emptyAccountDataMessageConstant          = "account returned without data"
	missingLatestBlockhashMessageConstant    = "latest blockhash response was empty"
	missingTokenAccountsResponseMessageConst = "token largest accounts response was empty"
)

var commitmentMapping = map[string]rpc.CommitmentType{
	commitmentProcessedConstant: rpc.CommitmentProcessed,
	commitmentConfirmedConstant: rpc.CommitmentConfirmed,
	commitmentFinalizedConstant: rpc.CommitmentFinalized,
}

// RPCClientOptions configures the solana-go backed client.
type RPCClientOptions struct {
	Endpoint                 string
	Commitment               string
	ConfirmationTimeout      time.Duration
	ConfirmationPollInterval time.Duration
	Logger                   *zap.Logger
}

// RPCClient implements Client on top of the solana-go JSON-RPC client.
type RPCClient struct {
	rpcClient                *rpc.Client
	commitment               rpc.CommitmentType
	confirmationTimeout      time.Duration
	confirmationPollInterval time.Duration
	logger                   *zap.Logger
}

// ParseCommitment validates a commitment level name.
func ParseCommitment(commitment string) (rpc.CommitmentType, error) {
	normalizedCommitment := strings.ToLower(strings.TrimSpace(commitment))
	if len(normalizedCommitment) == 0 {
		return rpc.CommitmentConfirmed, nil
	}
	mappedCommitment, commitmentKnown := commitmentMapping[normalizedCommitment]
	if !commitmentKnown {
		return "", fmt.Errorf(unsupportedCommitmentTemplateConstant, commitment)
	}
	return mappedCommitment, nil
}

// NewRPCClient constructs an RPCClient for the configured endpoint.
func NewRPCClient(options RPCClientOptions) (*RPCClient, error) {
	commitment, commitmentError := ParseCommitment(options.Commitment)
	if commitmentError != nil {
		return nil, commitmentError
	}

	confirmationTimeout := options.ConfirmationTimeout
	if confirmationTimeout <= 0 {
		confirmationTimeout = defaultConfirmationTimeoutConstant
	}
	confirmationPollInterval := options.ConfirmationPollInterval
	if confirmationPollInterval <= 0 {
		confirmationPollInterval = defaultConfirmationPollIntervalConstant
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RPCClient{
		rpcClient:                rpc.New(options.Endpoint),
		commitment:               commitment,
		confirmationTimeout:      confirmationTimeout,
		confirmationPollInterval: confirmationPollInterval,
		logger:                   logger,
	}, nil
}

// GetAccount fetches a single account, mapping missing accounts to ErrAccountNotFound.
func (client *RPCClient) GetAccount(executionContext context.Context, address solana.PublicKey) (Account, error) {
	result, fetchError := client.rpcClient.GetAccountInfoWithOpts(executionContext, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: client.commitment,
	})
	if fetchError != nil {
		if errors.Is(fetchError, rpc.ErrNotFound) {
			return Account{}, fmt.Errorf(accountNotFoundTemplateConstant, ErrAccountNotFound, address)
		}
		return Account{}, fmt.Errorf(accountFetchErrorTemplateConstant, address, fetchError)
	}
	if result == nil || result.Value == nil {
		return Account{}, fmt.Errorf(accountNotFoundTemplateConstant, ErrAccountNotFound, address)
	}

	return convertAccount(address, result.Value)
}

// GetProgramAccounts lists every account owned by programID.
func (client *RPCClient) GetProgramAccounts(executionContext context.Context, programID solana.PublicKey) ([]Account, error) {
	result, fetchError := client.rpcClient.GetProgramAccountsWithOpts(executionContext, programID, &rpc.GetProgramAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: client.commitment,
	})
	if fetchError != nil {
		return nil, fmt.Errorf(programAccountsErrorTemplateConstant, programID, fetchError)
	}

	accounts := make([]Account, 0, len(result))
	for _, keyedAccount := range result {
		if keyedAccount == nil || keyedAccount.Account == nil {
			continue
		}
		account, conversionError := convertAccount(keyedAccount.Pubkey, keyedAccount.Account)
		if conversionError != nil {
			return nil, fmt.Errorf(programAccountsErrorTemplateConstant, programID, conversionError)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// GetTokenLargestAccounts lists the token accounts of mint ordered by balance, largest first.
func (client *RPCClient) GetTokenLargestAccounts(executionContext context.Context, mint solana.PublicKey) ([]solana.PublicKey, error) {
	result, fetchError := client.rpcClient.GetTokenLargestAccounts(executionContext, mint, client.commitment)
	if fetchError != nil {
		return nil, fmt.Errorf(largestAccountsErrorTemplateConstant, mint, fetchError)
	}
	if result == nil {
		return nil, fmt.Errorf(largestAccountsErrorTemplateConstant, mint, errors.New(missingTokenAccountsResponseMessageConst))
	}

	addresses := make([]solana.PublicKey, 0, len(result.Value))
	for _, tokenAccount := range result.Value {
		if tokenAccount == nil {
			continue
		}
		addresses = append(addresses, tokenAccount.Address)
	}
	return addresses, nil
}

// GetLatestBlockhash returns the most recent blockhash at the configured commitment.
func (client *RPCClient) GetLatestBlockhash(executionContext context.Context) (solana.Hash, error) {
	result, fetchError := client.rpcClient.GetLatestBlockhash(executionContext, client.commitment)
	if fetchError != nil {
		return solana.Hash{}, fmt.Errorf(latestBlockhashErrorTemplateConstant, fetchError)
	}
	if result == nil || result.Value == nil {
		return solana.Hash{}, fmt.Errorf(latestBlockhashErrorTemplateConstant, errors.New(missingLatestBlockhashMessageConstant))
	}
	return result.Value.Blockhash, nil
}

// GetGenesisHash returns the genesis hash of the connected cluster.
func (client *RPCClient) GetGenesisHash(executionContext context.Context) (solana.Hash, error) {
	genesisHash, fetchError := client.rpcClient.GetGenesisHash(executionContext)
	if fetchError != nil {
		return solana.Hash{}, fmt.Errorf(genesisHashErrorTemplateConstant, fetchError)
	}
	return genesisHash, nil
}

// SendAndConfirm submits a signed transaction and polls its status until it reaches the configured commitment.
func (client *RPCClient) SendAndConfirm(executionContext context.Context, transaction *solana.Transaction) (solana.Signature, error) {
	signature, sendError := client.rpcClient.SendTransactionWithOpts(executionContext, transaction, rpc.TransactionOpts{
		PreflightCommitment: client.commitment,
	})
	if sendError != nil {
		return solana.Signature{}, fmt.Errorf(sendTransactionErrorTemplateConstant, ErrSubmission, sendError)
	}

	client.logger.Debug(logMessageTransactionSentConstant, zap.String(logFieldSignatureConstant, signature.String()))

	if confirmationError := client.awaitConfirmation(executionContext, signature); confirmationError != nil {
		return signature, confirmationError
	}
	return signature, nil
}

func (client *RPCClient) awaitConfirmation(executionContext context.Context, signature solana.Signature) error {
	confirmationContext, cancel := context.WithTimeout(executionContext, client.confirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(client.confirmationPollInterval)
	defer ticker.Stop()

	for {
		statuses, statusError := client.rpcClient.GetSignatureStatuses(confirmationContext, true, signature)
		if statusError != nil && confirmationContext.Err() == nil {
			return fmt.Errorf(signatureStatusErrorTemplateConstant, signature, statusError)
		}

		if statusError == nil && statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf(transactionFailedTemplateConstant, ErrSubmission, signature, status.Err)
			}
			if client.satisfiesCommitment(status.ConfirmationStatus) {
				client.logger.Debug(
					logMessageTransactionConfirmedConstant,
					zap.String(logFieldSignatureConstant, signature.String()),
					zap.String(logFieldConfirmationStatusConstant, string(status.ConfirmationStatus)),
				)
				return nil
			}
		}

		select {
		case <-confirmationContext.Done():
			if executionContext.Err() != nil {
				return executionContext.Err()
			}
			return fmt.Errorf(confirmationTimeoutTemplateConstant, ErrSubmission, signature, client.confirmationTimeout)
		case <-ticker.C:
		}
	}
}

func (client *RPCClient) satisfiesCommitment(status rpc.ConfirmationStatusType) bool {
	switch client.commitment {
	case rpc.CommitmentProcessed:
		return status == rpc.ConfirmationStatusProcessed || status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}

func convertAccount(address solana.PublicKey, account *rpc.Account) (Account, error) {
	if account.Data == nil {
		return Account{}, errors.New(emptyAccountDataMessageConstant)
	}
	return Account{
		Address:    address,
		Owner:      account.Owner,
		Lamports:   account.Lamports,
		Executable: account.Executable,
		Data:       account.Data.GetBinary(),
	}, nil
}
