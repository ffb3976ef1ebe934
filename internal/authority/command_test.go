package authority_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/goose/internal/authority"
	"github.com/temirov/goose/internal/chain"
	"github.com/temirov/goose/internal/chain/testsupport"
	"github.com/temirov/goose/internal/instructions"
	"github.com/temirov/goose/internal/pda"
	"github.com/temirov/goose/internal/session"
	"github.com/temirov/goose/internal/state"
)

const (
	testInvalidPublicKeyConstant = "not-a-key"
	testSudoUnlockTimeConstant   = 1750000000
)

type commandHarness struct {
	client    *testsupport.FakeClient
	openCount int
	builder   authority.CommandBuilder
}

func newCommandHarness(testInstance *testing.T) *commandHarness {
	payer, keyError := solana.NewRandomPrivateKey()
	require.NoError(testInstance, keyError)

	harness := &commandHarness{client: newTestClient()}
	harness.builder = authority.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		SessionProvider: func(configuration session.Configuration, logger *zap.Logger) (*session.Session, error) {
			harness.openCount++
			return session.New(harness.client, payer, solana.PublicKey{}, logger)
		},
		Clock: func() time.Time { return time.Unix(testSudoUnlockTimeConstant, 0) },
	}
	return harness
}

func (harness *commandHarness) execute(testInstance *testing.T, commandName string, arguments ...string) (string, error) {
	commands, buildError := harness.builder.Build()
	require.NoError(testInstance, buildError)

	var selectedCommand *cobra.Command
	for _, command := range commands {
		if command.Name() == commandName {
			selectedCommand = command
		}
	}
	require.NotNil(testInstance, selectedCommand, commandName)

	outputBuffer := &bytes.Buffer{}
	selectedCommand.SetOut(outputBuffer)
	selectedCommand.SetErr(outputBuffer)
	selectedCommand.SetArgs(arguments)
	executionError := selectedCommand.ExecuteContext(context.Background())
	return outputBuffer.String(), executionError
}

func TestCommandBuilderRegistersAuthorityCommands(testInstance *testing.T) {
	builder := authority.CommandBuilder{}
	commands, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	commandNames := make([]string, 0, len(commands))
	for _, command := range commands {
		commandNames = append(commandNames, command.Name())
	}
	require.Equal(testInstance, []string{"init", "init-msg", "init-signer", "cancel", "update", "start", "sudo", "get-state", "get-all-states"}, commandNames)
}

func TestTransactionCommandsReportExplorerLinks(testInstance *testing.T) {
	testCases := []struct {
		name            string
		commandName     string
		arguments       []string
		expectedAction  string
		expectedKind    instructions.Kind
		expectedPayload []byte
	}{
		{
			name:           "cancel",
			commandName:    "cancel",
			arguments:      []string{"-c", testCollectionMintConstant},
			expectedAction: "Canceled migration",
			expectedKind:   instructions.KindClose,
		},
		{
			name:           "start",
			commandName:    "start",
			arguments:      []string{"--collection-mint", testCollectionMintConstant},
			expectedAction: "Started migration",
			expectedKind:   instructions.KindStart,
		},
		{
			name:           "init_signer",
			commandName:    "init-signer",
			expectedAction: "Initialized program signer",
			expectedKind:   instructions.KindInitSigner,
		},
		{
			name:            "update_size",
			commandName:     "update",
			arguments:       []string{"-c", testCollectionMintConstant, "--size", "7"},
			expectedAction:  "Updated migration state",
			expectedKind:    instructions.KindUpdate,
			expectedPayload: []byte{0, 1, 7, 0, 0, 0},
		},
		{
			name:            "sudo_defaults_to_now",
			commandName:     "sudo",
			arguments:       []string{"-c", testCollectionMintConstant},
			expectedAction:  "Updated unlock time",
			expectedKind:    instructions.KindSudo,
			expectedPayload: binary.LittleEndian.AppendUint64(nil, testSudoUnlockTimeConstant),
		},
		{
			name:            "sudo_explicit_time",
			commandName:     "sudo",
			arguments:       []string{"-c", testCollectionMintConstant, "--unlock-time", "42"},
			expectedAction:  "Updated unlock time",
			expectedKind:    instructions.KindSudo,
			expectedPayload: binary.LittleEndian.AppendUint64(nil, 42),
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplate, testCaseIndex, testCase.name), func(subtest *testing.T) {
			harness := newCommandHarness(subtest)
			expectedSignature := testSignature(0x11)
			harness.client.SendResults = []testsupport.SendResult{{Signature: expectedSignature}}

			output, executionError := harness.execute(subtest, testCase.commandName, testCase.arguments...)
			require.NoError(subtest, executionError)

			expectedLine := fmt.Sprintf("%s successfully in tx: %s", testCase.expectedAction, chain.TransactionExplorerURL(expectedSignature, chain.ClusterDevnet))
			require.Contains(subtest, output, expectedLine)

			data, _ := sentInstructionData(subtest, harness.client, 0)
			require.Equal(subtest, byte(testCase.expectedKind), data[0])
			if testCase.expectedPayload != nil {
				require.Equal(subtest, testCase.expectedPayload, data[1:])
			}
		})
	}
}

func TestInitCommandPrintsResultingState(testInstance *testing.T) {
	harness := newCommandHarness(testInstance)
	registerMigrationState(testInstance, harness.client, testMigrationState(state.UnlockMethodVote))

	output, executionError := harness.execute(testInstance, "init", "-c", testCollectionMintConstant, "-u", "Vote", "-s", "25", "--wait", "0s")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, "Initialized migration state successfully in tx: ")
	require.Contains(testInstance, output, "Migration state:")
	require.Contains(testInstance, output, "unlock_method: Vote")
	require.Contains(testInstance, output, "size: 25")

	data, _ := sentInstructionData(testInstance, harness.client, 0)
	require.Equal(testInstance, byte(instructions.KindInitialize), data[0])
	require.Equal(testInstance, byte(state.UnlockMethodVote), data[2+solana.PublicKeyLength])
}

func TestCommandsRejectInvalidInputBeforeOpeningSession(testInstance *testing.T) {
	testCases := []struct {
		name          string
		commandName   string
		arguments     []string
		expectedError string
	}{
		{
			name:          "invalid_unlock_method",
			commandName:   "init",
			arguments:     []string{"-c", testCollectionMintConstant, "-u", "eventually"},
			expectedError: "invalid unlock method",
		},
		{
			name:          "invalid_collection_mint",
			commandName:   "cancel",
			arguments:     []string{"-c", testInvalidPublicKeyConstant},
			expectedError: "invalid public key",
		},
		{
			name:          "missing_collection_mint",
			commandName:   "start",
			expectedError: "collection-mint",
		},
		{
			name:          "update_without_changes",
			commandName:   "update",
			arguments:     []string{"-c", testCollectionMintConstant},
			expectedError: "update requires --rule-set or --size",
		},
		{
			name:          "unsupported_output_format",
			commandName:   "get-state",
			arguments:     []string{"-c", testCollectionMintConstant, "-o", "toml"},
			expectedError: "invalid output format",
		},
		{
			name:          "unexpected_argument",
			commandName:   "init-signer",
			arguments:     []string{"extra"},
			expectedError: "unknown command",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplate, testCaseIndex, testCase.name), func(subtest *testing.T) {
			harness := newCommandHarness(subtest)
			_, executionError := harness.execute(subtest, testCase.commandName, testCase.arguments...)
			require.ErrorContains(subtest, executionError, testCase.expectedError)
			require.Zero(subtest, harness.openCount)
			require.Empty(subtest, harness.client.SentTransactions)
		})
	}
}

func TestGetStateCommandRendersJSON(testInstance *testing.T) {
	harness := newCommandHarness(testInstance)
	expectedState := testMigrationState(state.UnlockMethodTimed)
	registerMigrationState(testInstance, harness.client, expectedState)

	output, executionError := harness.execute(testInstance, "get-state", "-c", testCollectionMintConstant, "--output", "JSON")
	require.NoError(testInstance, executionError)

	var stateView state.StateView
	require.NoError(testInstance, json.Unmarshal([]byte(output), &stateView))
	require.Equal(testInstance, state.NewStateView(solana.PublicKey{}, expectedState), stateView)
}

func TestInitMessageCommandPrintsUnsignedMessage(testInstance *testing.T) {
	harness := newCommandHarness(testInstance)

	output, executionError := harness.execute(testInstance, "init-msg", "-c", testCollectionMintConstant, "-a", testAuthorityConstant)
	require.NoError(testInstance, executionError)

	messageContent, decodeError := base64.StdEncoding.DecodeString(strings.TrimSpace(output))
	require.NoError(testInstance, decodeError)
	require.Equal(testInstance, solana.MustPublicKeyFromBase58(testAuthorityConstant).Bytes(), messageContent[4:4+solana.PublicKeyLength])
	require.Empty(testInstance, harness.client.SentTransactions)
	require.Zero(testInstance, harness.client.GenesisRequestCount)
}

func TestGetAllStatesCommandWritesStatesFile(testInstance *testing.T) {
	harness := newCommandHarness(testInstance)
	encodedState, encodeError := state.EncodeMigrationState(testMigrationState(state.UnlockMethodTimed))
	require.NoError(testInstance, encodeError)
	harness.client.ProgramAccounts = map[solana.PublicKey][]chain.Account{
		pda.DefaultMigrationProgramID: {
			{Address: solana.MustPublicKeyFromBase58(testAuthorityConstant), Data: encodedState},
		},
	}

	outputDirectory := testInstance.TempDir()
	output, executionError := harness.execute(testInstance, "get-all-states", "-d", outputDirectory)
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, output, fmt.Sprintf("Wrote 1 migration states to %s", filepath.Join(outputDirectory, "devnet_migration_states.json")))
	require.Equal(testInstance, 1, harness.client.GenesisRequestCount)
}
