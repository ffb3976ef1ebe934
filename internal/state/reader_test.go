package state_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/chain"
	"github.com/temirov/goose/internal/chain/testsupport"
	"github.com/temirov/goose/internal/pda"
	"github.com/temirov/goose/internal/state"
)

const (
	testSecondAddressConstant     = "11111111111111111111111111111111"
	testEnumerationFailureMessage = "rpc unavailable"
	testProgramSignerBump         = 254
)

func newTestReader(testInstance *testing.T, client chain.Client) *state.Reader {
	reader, readerError := state.NewReader(client, pda.NewDeriver(solana.PublicKey{}), zap.NewNop())
	require.NoError(testInstance, readerError)
	return reader
}

func TestReaderFetch(testInstance *testing.T) {
	collectionMint := solana.MustPublicKeyFromBase58(testCollectionMintConstant)
	stateAddress, derivationError := pda.NewDeriver(solana.PublicKey{}).MigrationStateAddress(collectionMint)
	require.NoError(testInstance, derivationError)

	expectedState := buildTestMigrationState(nil)
	encodedState, encodeError := state.EncodeMigrationState(expectedState)
	require.NoError(testInstance, encodeError)

	client := &testsupport.FakeClient{}
	client.AddAccount(chain.Account{Address: stateAddress.Address, Owner: pda.DefaultMigrationProgramID, Data: encodedState})

	fetchedState, fetchError := newTestReader(testInstance, client).Fetch(context.Background(), collectionMint)
	require.NoError(testInstance, fetchError)
	require.Equal(testInstance, expectedState, fetchedState)
	require.Equal(testInstance, []solana.PublicKey{stateAddress.Address}, client.AccountRequests)
}

func TestReaderFetchMissingState(testInstance *testing.T) {
	client := &testsupport.FakeClient{}
	_, fetchError := newTestReader(testInstance, client).Fetch(context.Background(), solana.MustPublicKeyFromBase58(testCollectionMintConstant))
	require.ErrorIs(testInstance, fetchError, chain.ErrAccountNotFound)
}

func TestReaderFetchMalformedState(testInstance *testing.T) {
	collectionMint := solana.MustPublicKeyFromBase58(testCollectionMintConstant)
	stateAddress, derivationError := pda.NewDeriver(solana.PublicKey{}).MigrationStateAddress(collectionMint)
	require.NoError(testInstance, derivationError)

	client := &testsupport.FakeClient{}
	client.AddAccount(chain.Account{Address: stateAddress.Address, Data: []byte{1, 2, 3}})

	_, fetchError := newTestReader(testInstance, client).Fetch(context.Background(), collectionMint)
	require.ErrorIs(testInstance, fetchError, state.ErrDecode)
}

func TestReaderFetchAllOrdersByAddress(testInstance *testing.T) {
	firstState := buildTestMigrationState(nil)
	secondState := buildTestMigrationState(nil)
	secondState.Status.ItemsMigrated = 7

	firstEncoded, firstError := state.EncodeMigrationState(firstState)
	require.NoError(testInstance, firstError)
	secondEncoded, secondError := state.EncodeMigrationState(secondState)
	require.NoError(testInstance, secondError)

	highAddress := solana.MustPublicKeyFromBase58(testAuthorityConstant)
	lowAddress := solana.MustPublicKeyFromBase58(testSecondAddressConstant)

	client := &testsupport.FakeClient{
		ProgramAccounts: map[solana.PublicKey][]chain.Account{
			pda.DefaultMigrationProgramID: {
				{Address: highAddress, Data: firstEncoded},
				{Address: lowAddress, Data: secondEncoded},
			},
		},
	}

	programStates, fetchError := newTestReader(testInstance, client).FetchAll(context.Background())
	require.NoError(testInstance, fetchError)
	require.Len(testInstance, programStates, 2)
	require.Equal(testInstance, lowAddress, programStates[0].Address)
	require.Equal(testInstance, secondState, programStates[0].State)
	require.Equal(testInstance, highAddress, programStates[1].Address)
	require.Equal(testInstance, firstState, programStates[1].State)
}

func TestReaderFetchAllAbortsOnMalformedAccount(testInstance *testing.T) {
	validEncoded, encodeError := state.EncodeMigrationState(buildTestMigrationState(nil))
	require.NoError(testInstance, encodeError)

	client := &testsupport.FakeClient{
		ProgramAccounts: map[solana.PublicKey][]chain.Account{
			pda.DefaultMigrationProgramID: {
				{Address: solana.MustPublicKeyFromBase58(testSecondAddressConstant), Data: validEncoded},
				{Address: solana.MustPublicKeyFromBase58(testAuthorityConstant), Data: bytes.Repeat([]byte{0xff}, state.MinimumEncodedSize)},
			},
		},
	}

	programStates, fetchError := newTestReader(testInstance, client).FetchAll(context.Background())
	require.ErrorIs(testInstance, fetchError, state.ErrDecode)
	require.Nil(testInstance, programStates)
}

func TestReaderFetchAllSkipsProgramSigner(testInstance *testing.T) {
	migrationState := buildTestMigrationState(nil)
	encodedState, encodeError := state.EncodeMigrationState(migrationState)
	require.NoError(testInstance, encodeError)
	stateAddress := solana.MustPublicKeyFromBase58(testAuthorityConstant)

	client := &testsupport.FakeClient{
		ProgramAccounts: map[solana.PublicKey][]chain.Account{
			pda.DefaultMigrationProgramID: {
				{Address: solana.MustPublicKeyFromBase58(testSecondAddressConstant), Data: []byte{testProgramSignerBump}},
				{Address: stateAddress, Data: encodedState},
			},
		},
	}

	programStates, fetchError := newTestReader(testInstance, client).FetchAll(context.Background())
	require.NoError(testInstance, fetchError)
	require.Equal(testInstance, []state.ProgramState{{Address: stateAddress, State: migrationState}}, programStates)
}

func TestReaderFetchAllPropagatesEnumerationFailure(testInstance *testing.T) {
	enumerationFailure := errors.New(testEnumerationFailureMessage)
	client := &testsupport.FakeClient{ProgramAccountsError: enumerationFailure}

	_, fetchError := newTestReader(testInstance, client).FetchAll(context.Background())
	require.ErrorIs(testInstance, fetchError, enumerationFailure)
}

func TestNewReaderRequiresClient(testInstance *testing.T) {
	_, readerError := state.NewReader(nil, pda.NewDeriver(solana.PublicKey{}), nil)
	require.Error(testInstance, readerError)
}
