package migrate_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	migrate "github.com/temirov/goose/internal/migrate"
)

func TestParseItemManifest(testInstance *testing.T) {
	firstItem := solana.MustPublicKeyFromBase58(testFirstItemConstant)
	secondItem := solana.MustPublicKeyFromBase58(testSecondItemConstant)

	testCases := []struct {
		name          string
		content       string
		expectedItems []solana.PublicKey
		expectError   bool
	}{
		{
			name:          "ordered_entries",
			content:       fmt.Sprintf(`["%s","%s"]`, testFirstItemConstant, testSecondItemConstant),
			expectedItems: []solana.PublicKey{firstItem, secondItem},
		},
		{
			name:          "duplicates_preserved",
			content:       fmt.Sprintf(`["%s","%s","%s"]`, testSecondItemConstant, testFirstItemConstant, testSecondItemConstant),
			expectedItems: []solana.PublicKey{secondItem, firstItem, secondItem},
		},
		{
			name:          "empty_array",
			content:       `[]`,
			expectedItems: []solana.PublicKey{},
		},
		{
			name:        "not_an_array",
			content:     fmt.Sprintf(`{"mint":"%s"}`, testFirstItemConstant),
			expectError: true,
		},
		{
			name:        "non_string_entry",
			content:     `[1, 2]`,
			expectError: true,
		},
		{
			name:        "invalid_entry",
			content:     fmt.Sprintf(`["%s","Mint1"]`, testFirstItemConstant),
			expectError: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplate, testCaseIndex, testCase.name), func(subtest *testing.T) {
			items, parseError := migrate.ParseItemManifest([]byte(testCase.content))
			if testCase.expectError {
				require.ErrorIs(subtest, parseError, migrate.ErrManifestParse)
				require.Nil(subtest, items)
				return
			}
			require.NoError(subtest, parseError)
			require.Equal(subtest, testCase.expectedItems, items)
		})
	}
}

func TestParseItemManifestNamesInvalidEntry(testInstance *testing.T) {
	_, parseError := migrate.ParseItemManifest([]byte(fmt.Sprintf(`["%s","Mint1"]`, testFirstItemConstant)))
	require.ErrorContains(testInstance, parseError, `entry 1 "Mint1"`)
}

func TestReadItemManifestMissingFile(testInstance *testing.T) {
	_, readError := migrate.ReadItemManifest(filepath.Join(testInstance.TempDir(), testManifestFileName))
	require.ErrorIs(testInstance, readError, migrate.ErrManifestParse)
}

func TestManifestPaths(testInstance *testing.T) {
	collection := solana.MustPublicKeyFromBase58(testCollectionConstant)
	outputDirectory := testInstance.TempDir()

	require.Equal(testInstance, filepath.Join(outputDirectory, testCollectionConstant+"_migrated_mints.json"), migrate.MigratedManifestPath(outputDirectory, collection))
	require.Equal(testInstance, filepath.Join(outputDirectory, testCollectionConstant+"_failed_mints.json"), migrate.FailedManifestPath(outputDirectory, collection))
}
