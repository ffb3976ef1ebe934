package chain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

const (
	accountNotFoundMessageConstant    = "account not found"
	submissionFailedMessageConstant   = "transaction submission failed"
	unsupportedClusterMessageConstant = "unsupported cluster"
)

var (
	// ErrAccountNotFound indicates that a required on-chain account does not exist.
	ErrAccountNotFound = errors.New(accountNotFoundMessageConstant)
	// ErrSubmission indicates that a transaction was rejected or could not be confirmed.
	ErrSubmission = errors.New(submissionFailedMessageConstant)
	// ErrUnsupportedCluster indicates that the connected endpoint belongs to an unknown network.
	ErrUnsupportedCluster = errors.New(unsupportedClusterMessageConstant)
)

// Account captures the fields of an on-chain account consumed by goose.
type Account struct {
	Address    solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Executable bool
	Data       []byte
}

// Client exposes the RPC operations required by the migration workflow.
type Client interface {
	GetAccount(executionContext context.Context, address solana.PublicKey) (Account, error)
	GetProgramAccounts(executionContext context.Context, programID solana.PublicKey) ([]Account, error)
	GetTokenLargestAccounts(executionContext context.Context, mint solana.PublicKey) ([]solana.PublicKey, error)
	GetLatestBlockhash(executionContext context.Context) (solana.Hash, error)
	SendAndConfirm(executionContext context.Context, transaction *solana.Transaction) (solana.Signature, error)
	GetGenesisHash(executionContext context.Context) (solana.Hash, error)
}
