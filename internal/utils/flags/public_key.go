package flags

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// CollectionMintFlagName is the flag naming the collection parent mint.
	CollectionMintFlagName = "collection-mint"
	// CollectionMintFlagShorthand is the shorthand of CollectionMintFlagName.
	CollectionMintFlagShorthand = "c"
	// CollectionMintFlagUsage describes CollectionMintFlagName.
	CollectionMintFlagUsage = "Collection parent mint address"

	publicKeyFlagTypeConstant        = "pubkey"
	invalidPublicKeyTemplateConstant = "invalid public key %q: %w"
)

// PublicKeyValue is a pflag.Value holding an optional base58 public key.
type PublicKeyValue struct {
	publicKey *solana.PublicKey
}

var _ pflag.Value = (*PublicKeyValue)(nil)

// String renders the key, or an empty string when unset.
func (value *PublicKeyValue) String() string {
	if value == nil || value.publicKey == nil {
		return ""
	}
	return value.publicKey.String()
}

// Set parses a base58 public key. An empty string clears the value.
func (value *PublicKeyValue) Set(rawValue string) error {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		value.publicKey = nil
		return nil
	}
	parsedKey, parseError := solana.PublicKeyFromBase58(trimmedValue)
	if parseError != nil {
		return fmt.Errorf(invalidPublicKeyTemplateConstant, rawValue, parseError)
	}
	value.publicKey = &parsedKey
	return nil
}

// Type names the value kind in usage output.
func (value *PublicKeyValue) Type() string {
	return publicKeyFlagTypeConstant
}

// PublicKey returns the parsed key and whether one was provided.
func (value *PublicKeyValue) PublicKey() (solana.PublicKey, bool) {
	if value == nil || value.publicKey == nil {
		return solana.PublicKey{}, false
	}
	return *value.publicKey, true
}

// Pointer returns a copy of the parsed key, or nil when unset.
func (value *PublicKeyValue) Pointer() *solana.PublicKey {
	publicKey, provided := value.PublicKey()
	if !provided {
		return nil
	}
	return &publicKey
}

// BindPublicKeyFlag attaches a public key flag to command.
func BindPublicKeyFlag(command *cobra.Command, name string, shorthand string, usage string) *PublicKeyValue {
	value := &PublicKeyValue{}
	if command == nil {
		return value
	}
	command.Flags().VarP(value, name, shorthand, usage)
	return value
}

// BindCollectionMintFlag attaches the required collection mint flag to command.
func BindCollectionMintFlag(command *cobra.Command) *PublicKeyValue {
	value := BindPublicKeyFlag(command, CollectionMintFlagName, CollectionMintFlagShorthand, CollectionMintFlagUsage)
	if command != nil {
		_ = command.MarkFlagRequired(CollectionMintFlagName)
	}
	return value
}
