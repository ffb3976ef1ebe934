package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/chain"
	"github.com/temirov/goose/internal/pda"
)

const (
	readerClientMissingMessageConstant = "state reader requires an RPC client"
	stateFetchErrorTemplateConstant    = "unable to fetch migration state for collection %s: %w"
	stateDecodeErrorTemplateConstant   = "migration state %s: %w"
	programAccountsErrorTemplateConst  = "unable to enumerate migration states: %w"
	logMessageStateFetchedConstant     = "Migration state fetched"
	logMessageStatesEnumeratedConstant = "Migration states enumerated"
	logFieldCollectionMintConstant     = "collection_mint"
	logFieldMigrationStateConstant     = "migration_state"
	logFieldMigrationProgramConstant   = "migration_program"
	logFieldStateCountConstant         = "state_count"
	logFieldSkippedCountConstant       = "skipped_count"
	logFieldItemsMigratedConstant      = "items_migrated"
)

var errReaderClientMissing = errors.New(readerClientMissingMessageConstant)

// ProgramState pairs a decoded migration state with the account it was read from.
type ProgramState struct {
	Address solana.PublicKey
	State   MigrationState
}

// Reader fetches migration states from the chain.
type Reader struct {
	client  chain.Client
	deriver pda.Deriver
	logger  *zap.Logger
}

// NewReader constructs a Reader.
func NewReader(client chain.Client, deriver pda.Deriver, logger *zap.Logger) (*Reader, error) {
	if client == nil {
		return nil, errReaderClientMissing
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{client: client, deriver: deriver, logger: logger}, nil
}

// Fetch reads the migration state for collectionMint.
// It fails with chain.ErrAccountNotFound when the collection was never initialized and ErrDecode when the layout does not match.
func (reader *Reader) Fetch(executionContext context.Context, collectionMint solana.PublicKey) (MigrationState, error) {
	stateAddress, derivationError := reader.deriver.MigrationStateAddress(collectionMint)
	if derivationError != nil {
		return MigrationState{}, derivationError
	}

	account, fetchError := reader.client.GetAccount(executionContext, stateAddress.Address)
	if fetchError != nil {
		return MigrationState{}, fmt.Errorf(stateFetchErrorTemplateConstant, collectionMint, fetchError)
	}

	migrationState, decodeError := DecodeMigrationState(account.Data)
	if decodeError != nil {
		return MigrationState{}, fmt.Errorf(stateDecodeErrorTemplateConstant, stateAddress.Address, decodeError)
	}

	reader.logger.Debug(
		logMessageStateFetchedConstant,
		zap.String(logFieldCollectionMintConstant, collectionMint.String()),
		zap.String(logFieldMigrationStateConstant, stateAddress.Address.String()),
		zap.Uint32(logFieldItemsMigratedConstant, migrationState.Status.ItemsMigrated),
	)

	return migrationState, nil
}

// FetchAll decodes every migration state owned by the migration program, ordered by address.
// Accounts shorter than MinimumEncodedSize are not migration states and are skipped.
// A single malformed candidate aborts the enumeration.
func (reader *Reader) FetchAll(executionContext context.Context) ([]ProgramState, error) {
	programID := reader.deriver.MigrationProgramID()
	accounts, fetchError := reader.client.GetProgramAccounts(executionContext, programID)
	if fetchError != nil {
		return nil, fmt.Errorf(programAccountsErrorTemplateConst, fetchError)
	}

	sort.Slice(accounts, func(leftIndex int, rightIndex int) bool {
		return bytes.Compare(accounts[leftIndex].Address.Bytes(), accounts[rightIndex].Address.Bytes()) < 0
	})

	programStates := make([]ProgramState, 0, len(accounts))
	skippedCount := 0
	for _, account := range accounts {
		if len(account.Data) < MinimumEncodedSize {
			skippedCount++
			continue
		}
		migrationState, decodeError := DecodeMigrationState(account.Data)
		if decodeError != nil {
			return nil, fmt.Errorf(stateDecodeErrorTemplateConstant, account.Address, decodeError)
		}
		programStates = append(programStates, ProgramState{Address: account.Address, State: migrationState})
	}

	reader.logger.Debug(
		logMessageStatesEnumeratedConstant,
		zap.String(logFieldMigrationProgramConstant, programID.String()),
		zap.Int(logFieldStateCountConstant, len(programStates)),
		zap.Int(logFieldSkippedCountConstant, skippedCount),
	)

	return programStates, nil
}
