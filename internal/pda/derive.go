package pda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	metadataSeedConstant                = "metadata"
	migrationSeedConstant               = "migration"
	signerSeedConstant                  = "signer"
	editionSeedConstant                 = "edition"
	tokenRecordSeedConstant             = "token_record"
	collectionAuthoritySeedConstant     = "collection_authority"
	metadataAddressLabelConstant        = "metadata"
	migrationStateAddressLabelConstant  = "migration state"
	programSignerAddressLabelConstant   = "program signer"
	editionAddressLabelConstant         = "edition"
	tokenRecordAddressLabelConstant     = "token record"
	delegateRecordAddressLabelConstant  = "collection delegate record"
	derivationErrorTemplateConstant     = "unable to derive %s address: %w"
	defaultMigrationProgramIDConstant   = "migrxZFChTqicHpNa1CAjPcF29Mui2JU2q4Ym7qQUTi"
	tokenMetadataProgramIDValueConstant = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

var (
	// TokenMetadataProgramID identifies the token metadata program that owns metadata accounts.
	TokenMetadataProgramID = solana.MustPublicKeyFromBase58(tokenMetadataProgramIDValueConstant)
	// DefaultMigrationProgramID identifies the deployed migration validator program.
	DefaultMigrationProgramID = solana.MustPublicKeyFromBase58(defaultMigrationProgramIDConstant)
)

// DerivedAddress pairs a program-derived address with its bump seed.
type DerivedAddress struct {
	Address solana.PublicKey
	Bump    uint8
}

// Deriver computes addresses owned by the migration validator and token metadata programs.
type Deriver struct {
	migrationProgramID solana.PublicKey
}

// NewDeriver constructs a Deriver for the provided migration program. A zero key selects DefaultMigrationProgramID.
func NewDeriver(migrationProgramID solana.PublicKey) Deriver {
	if migrationProgramID.IsZero() {
		migrationProgramID = DefaultMigrationProgramID
	}
	return Deriver{migrationProgramID: migrationProgramID}
}

// MigrationProgramID reports the program that owns migration state and signer accounts.
func (deriver Deriver) MigrationProgramID() solana.PublicKey {
	if deriver.migrationProgramID.IsZero() {
		return DefaultMigrationProgramID
	}
	return deriver.migrationProgramID
}

// MetadataAddress derives the token metadata account for a mint.
func (deriver Deriver) MetadataAddress(mint solana.PublicKey) (DerivedAddress, error) {
	seeds := [][]byte{
		[]byte(metadataSeedConstant),
		TokenMetadataProgramID.Bytes(),
		mint.Bytes(),
	}
	return derive(metadataAddressLabelConstant, seeds, TokenMetadataProgramID)
}

// MigrationStateAddress derives the migration state account for a collection mint.
func (deriver Deriver) MigrationStateAddress(collectionMint solana.PublicKey) (DerivedAddress, error) {
	seeds := [][]byte{
		[]byte(migrationSeedConstant),
		collectionMint.Bytes(),
	}
	return derive(migrationStateAddressLabelConstant, seeds, deriver.MigrationProgramID())
}

// ProgramSignerAddress derives the migration program's signing authority.
func (deriver Deriver) ProgramSignerAddress() (DerivedAddress, error) {
	seeds := [][]byte{[]byte(signerSeedConstant)}
	return derive(programSignerAddressLabelConstant, seeds, deriver.MigrationProgramID())
}

// EditionAddress derives the master edition account for a mint.
func (deriver Deriver) EditionAddress(mint solana.PublicKey) (DerivedAddress, error) {
	seeds := [][]byte{
		[]byte(metadataSeedConstant),
		TokenMetadataProgramID.Bytes(),
		mint.Bytes(),
		[]byte(editionSeedConstant),
	}
	return derive(editionAddressLabelConstant, seeds, TokenMetadataProgramID)
}

// TokenRecordAddress derives the token record tracking a programmable asset held in tokenAccount.
func (deriver Deriver) TokenRecordAddress(mint solana.PublicKey, tokenAccount solana.PublicKey) (DerivedAddress, error) {
	seeds := [][]byte{
		[]byte(metadataSeedConstant),
		TokenMetadataProgramID.Bytes(),
		mint.Bytes(),
		[]byte(tokenRecordSeedConstant),
		tokenAccount.Bytes(),
	}
	return derive(tokenRecordAddressLabelConstant, seeds, TokenMetadataProgramID)
}

// CollectionDelegateRecordAddress derives the collection authority record granted to delegate.
func (deriver Deriver) CollectionDelegateRecordAddress(collectionMint solana.PublicKey, delegate solana.PublicKey) (DerivedAddress, error) {
	seeds := [][]byte{
		[]byte(metadataSeedConstant),
		TokenMetadataProgramID.Bytes(),
		collectionMint.Bytes(),
		[]byte(collectionAuthoritySeedConstant),
		delegate.Bytes(),
	}
	return derive(delegateRecordAddressLabelConstant, seeds, TokenMetadataProgramID)
}

func derive(label string, seeds [][]byte, programID solana.PublicKey) (DerivedAddress, error) {
	address, bump, derivationError := solana.FindProgramAddress(seeds, programID)
	if derivationError != nil {
		return DerivedAddress{}, fmt.Errorf(derivationErrorTemplateConstant, label, derivationError)
	}
	return DerivedAddress{Address: address, Bump: bump}, nil
}
