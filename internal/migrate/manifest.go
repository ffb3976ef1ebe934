package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"

	"github.com/temirov/goose/internal/utils"
)

const (
	manifestParseMessageConstant             = "unable to parse item manifest"
	manifestReadErrorTemplateConstant        = "%w: unable to read %s: %v"
	manifestDecodeErrorTemplateConstant      = "%w: %v"
	manifestEntryErrorTemplateConstant       = "%w: entry %d %q: %v"
	migratedManifestFileNameTemplateConstant = "%s_migrated_mints.json"
	failedManifestFileNameTemplateConstant   = "%s_failed_mints.json"
)

// ErrManifestParse indicates the item manifest is unreadable or holds an invalid mint.
var ErrManifestParse = errors.New(manifestParseMessageConstant)

// Outcome records a successfully migrated item.
type Outcome struct {
	Signature string `json:"sig"`
	ItemMint  string `json:"item_mint"`
}

// Failure records an item whose migration failed.
type Failure struct {
	ItemMint string `json:"item_mint"`
	Error    string `json:"error"`
}

// ReadItemManifest loads a JSON array of base58 mint addresses. Order and duplicates are preserved.
func ReadItemManifest(manifestPath string) ([]solana.PublicKey, error) {
	manifestContent, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return nil, fmt.Errorf(manifestReadErrorTemplateConstant, ErrManifestParse, manifestPath, readError)
	}
	return ParseItemManifest(manifestContent)
}

// ParseItemManifest decodes manifest content. Any entry that is not a valid public key rejects the whole manifest.
func ParseItemManifest(manifestContent []byte) ([]solana.PublicKey, error) {
	var rawEntries []string
	if decodeError := json.Unmarshal(manifestContent, &rawEntries); decodeError != nil {
		return nil, fmt.Errorf(manifestDecodeErrorTemplateConstant, ErrManifestParse, decodeError)
	}

	items := make([]solana.PublicKey, 0, len(rawEntries))
	for entryIndex, rawEntry := range rawEntries {
		item, parseError := solana.PublicKeyFromBase58(rawEntry)
		if parseError != nil {
			return nil, fmt.Errorf(manifestEntryErrorTemplateConstant, ErrManifestParse, entryIndex, rawEntry, parseError)
		}
		items = append(items, item)
	}
	return items, nil
}

// MigratedManifestPath names the success manifest of a collection inside outputDirectory.
func MigratedManifestPath(outputDirectory string, collection solana.PublicKey) string {
	return filepath.Join(outputDirectory, fmt.Sprintf(migratedManifestFileNameTemplateConstant, collection))
}

// FailedManifestPath names the failure manifest of a collection inside outputDirectory.
func FailedManifestPath(outputDirectory string, collection solana.PublicKey) string {
	return filepath.Join(outputDirectory, fmt.Sprintf(failedManifestFileNameTemplateConstant, collection))
}

func writeOutcomes(manifestPath string, outcomes []Outcome) error {
	if outcomes == nil {
		outcomes = []Outcome{}
	}
	return utils.WriteJSONFile(manifestPath, outcomes)
}

func writeFailures(manifestPath string, failures []Failure) error {
	return utils.WriteJSONFile(manifestPath, failures)
}
