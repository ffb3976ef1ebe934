package testsupport

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/temirov/goose/internal/resolver"
	"github.com/temirov/goose/internal/state"
)

const (
	migrateItemMintAccountIndexConstant = 6
	migrateRuleSetAccountIndexConstant  = 18
	unexpectedInstructionMessage        = "submitter stub expects a single migrate instruction"
)

var errUnexpectedInstruction = errors.New(unexpectedInstructionMessage)

// SignatureForMint derives a deterministic signature from an item mint.
func SignatureForMint(itemMint solana.PublicKey) solana.Signature {
	var signature solana.Signature
	copy(signature[:solana.PublicKeyLength], itemMint.Bytes())
	copy(signature[solana.PublicKeyLength:], itemMint.Bytes())
	return signature
}

// ResolverStub resolves every mint to itself unless an error is configured for it.
type ResolverStub struct {
	Errors map[solana.PublicKey]error

	mutex         sync.Mutex
	ResolvedMints []solana.PublicKey
}

// Resolve records the mint and returns a synthetic resolution or the configured error.
func (stub *ResolverStub) Resolve(_ context.Context, mint solana.PublicKey) (resolver.Resolution, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.ResolvedMints = append(stub.ResolvedMints, mint)
	if resolveError, exists := stub.Errors[mint]; exists {
		return resolver.Resolution{}, resolveError
	}
	return resolver.Resolution{
		Mint:           mint,
		HoldingAccount: mint,
		Owner:          solana.SystemProgramID,
		OwningProgram:  solana.TokenProgramID,
	}, nil
}

// StateFetcherStub returns a fixed migration state.
type StateFetcherStub struct {
	State      state.MigrationState
	Error      error
	FetchCount int
}

// Fetch counts the request and returns the configured state.
func (stub *StateFetcherStub) Fetch(context.Context, solana.PublicKey) (state.MigrationState, error) {
	stub.FetchCount++
	if stub.Error != nil {
		return state.MigrationState{}, stub.Error
	}
	return stub.State, nil
}

// SubmitterStub records migrate submissions and answers with SignatureForMint.
// Mints listed in Unconfirmed return their signature together with the configured error,
// as a client does when confirmation is interrupted after sending.
type SubmitterStub struct {
	Errors      map[solana.PublicKey]error
	Unconfirmed map[solana.PublicKey]bool
	OnSubmit    func(itemMint solana.PublicKey)

	mutex          sync.Mutex
	SubmittedMints []solana.PublicKey
	RuleSets       []solana.PublicKey
}

// Submit extracts the item mint from the migrate instruction and returns its configured outcome.
func (stub *SubmitterStub) Submit(_ context.Context, instructions []solana.Instruction, _ ...solana.PrivateKey) (solana.Signature, error) {
	if len(instructions) != 1 {
		return solana.Signature{}, errUnexpectedInstruction
	}
	accounts := instructions[0].Accounts()
	if len(accounts) <= migrateRuleSetAccountIndexConstant {
		return solana.Signature{}, errUnexpectedInstruction
	}
	itemMint := accounts[migrateItemMintAccountIndexConstant].PublicKey

	stub.mutex.Lock()
	stub.SubmittedMints = append(stub.SubmittedMints, itemMint)
	stub.RuleSets = append(stub.RuleSets, accounts[migrateRuleSetAccountIndexConstant].PublicKey)
	submitError, failing := stub.Errors[itemMint]
	unconfirmed := stub.Unconfirmed[itemMint]
	onSubmit := stub.OnSubmit
	stub.mutex.Unlock()

	if onSubmit != nil {
		onSubmit(itemMint)
	}
	if failing && unconfirmed {
		return SignatureForMint(itemMint), submitError
	}
	if failing {
		return solana.Signature{}, submitError
	}
	return SignatureForMint(itemMint), nil
}

// ProgressRecorder collects progress notifications.
type ProgressRecorder struct {
	mutex    sync.Mutex
	Migrated []solana.PublicKey
	Failed   []string
}

// ItemMigrated records a migrated item.
func (recorder *ProgressRecorder) ItemMigrated(itemMint solana.PublicKey, _ solana.Signature) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.Migrated = append(recorder.Migrated, itemMint)
}

// ItemFailed records a failed item.
func (recorder *ProgressRecorder) ItemFailed(itemMint string, _ error) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.Failed = append(recorder.Failed, itemMint)
}
