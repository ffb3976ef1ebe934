package instructions

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/temirov/goose/internal/pda"
	"github.com/temirov/goose/internal/state"
)

const (
	authorizationRulesProgramIDValueConstant = "auth9SigNpDKz4sJJ1DfCTuZrZNSAgh9sFD3rboVmgg"
	optionNoneTagConstant                    = 0
	optionSomeTagConstant                    = 1
	instructionEncodeErrorTemplateConstant   = "unable to encode %s instruction: %w"
	instructionAccountsErrorTemplateConstant = "unable to derive %s instruction accounts: %w"
)

// AuthorizationRulesProgramID identifies the program that evaluates programmable asset rule sets.
var AuthorizationRulesProgramID = solana.MustPublicKeyFromBase58(authorizationRulesProgramIDValueConstant)

// Kind is the instruction discriminator understood by the migration validator.
type Kind uint8

// Instruction discriminators in program order.
const (
	KindInitialize Kind = iota
	KindClose
	KindUpdate
	KindMigrate
	KindStart
	KindInitSigner
	KindSudo
)

var kindNames = map[Kind]string{
	KindInitialize: "initialize",
	KindClose:      "close",
	KindUpdate:     "update",
	KindMigrate:    "migrate",
	KindStart:      "start",
	KindInitSigner: "init-signer",
	KindSudo:       "sudo",
}

// String returns the command-style name of the instruction.
func (kind Kind) String() string {
	if name, known := kindNames[kind]; known {
		return name
	}
	return fmt.Sprintf("instruction(%d)", uint8(kind))
}

// InitializeArgs configures a new migration state.
type InitializeArgs struct {
	RuleSet        *solana.PublicKey
	UnlockMethod   state.UnlockMethod
	CollectionSize uint32
}

// UpdateArgs carries the optional fields of an update. Nil fields are left unchanged on chain.
type UpdateArgs struct {
	RuleSet        *solana.PublicKey
	CollectionSize *uint32
}

// MigrateAccounts lists the accounts involved in migrating a single item.
type MigrateAccounts struct {
	Payer                   solana.PublicKey
	ItemMint                solana.PublicKey
	ItemToken               solana.PublicKey
	TokenOwner              solana.PublicKey
	TokenOwnerProgram       solana.PublicKey
	TokenOwnerProgramBuffer *solana.PublicKey
	CollectionMint          solana.PublicKey
	RuleSet                 *solana.PublicKey
}

// Builder produces migration validator instructions addressed to the deriver's program.
type Builder struct {
	deriver pda.Deriver
}

// NewBuilder constructs a Builder.
func NewBuilder(deriver pda.Deriver) Builder {
	return Builder{deriver: deriver}
}

// ProgramID returns the migration program targeted by built instructions.
func (builder Builder) ProgramID() solana.PublicKey {
	return builder.deriver.MigrationProgramID()
}

// Initialize creates the migration state for a collection.
func (builder Builder) Initialize(payer solana.PublicKey, authority solana.PublicKey, collectionMint solana.PublicKey, arguments InitializeArgs) (solana.Instruction, error) {
	collectionMetadata, metadataError := builder.deriver.MetadataAddress(collectionMint)
	if metadataError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindInitialize, metadataError)
	}
	migrationState, stateError := builder.deriver.MigrationStateAddress(collectionMint)
	if stateError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindInitialize, stateError)
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(authority, false, true),
		solana.NewAccountMeta(collectionMint, false, false),
		solana.NewAccountMeta(collectionMetadata.Address, false, false),
		solana.NewAccountMeta(migrationState.Address, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}

	return builder.instruction(KindInitialize, accounts, func(encoder *bin.Encoder) error {
		if writeError := writeOptionalPublicKey(encoder, arguments.RuleSet); writeError != nil {
			return writeError
		}
		if writeError := encoder.WriteUint8(uint8(arguments.UnlockMethod)); writeError != nil {
			return writeError
		}
		return encoder.WriteUint32(arguments.CollectionSize, binary.LittleEndian)
	})
}

// Close deletes the migration state and returns its rent to the authority.
func (builder Builder) Close(authority solana.PublicKey, collectionMint solana.PublicKey) (solana.Instruction, error) {
	migrationState, stateError := builder.deriver.MigrationStateAddress(collectionMint)
	if stateError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindClose, stateError)
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(authority, true, true),
		solana.NewAccountMeta(migrationState.Address, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return builder.instruction(KindClose, accounts, nil)
}

// Update changes the rule set or collection size of an existing migration state.
func (builder Builder) Update(authority solana.PublicKey, collectionMint solana.PublicKey, arguments UpdateArgs) (solana.Instruction, error) {
	migrationState, stateError := builder.deriver.MigrationStateAddress(collectionMint)
	if stateError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindUpdate, stateError)
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(authority, false, true),
		solana.NewAccountMeta(migrationState.Address, true, false),
	}
	return builder.instruction(KindUpdate, accounts, func(encoder *bin.Encoder) error {
		if writeError := writeOptionalPublicKey(encoder, arguments.RuleSet); writeError != nil {
			return writeError
		}
		if arguments.CollectionSize == nil {
			return encoder.WriteUint8(optionNoneTagConstant)
		}
		if writeError := encoder.WriteUint8(optionSomeTagConstant); writeError != nil {
			return writeError
		}
		return encoder.WriteUint32(*arguments.CollectionSize, binary.LittleEndian)
	})
}

// Start begins a migration by delegating collection authority to the program signer.
func (builder Builder) Start(payer solana.PublicKey, authority solana.PublicKey, collectionMint solana.PublicKey) (solana.Instruction, error) {
	collectionAccounts, accountsError := builder.collectionAccounts(collectionMint)
	if accountsError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindStart, accountsError)
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(authority, false, true),
		solana.NewAccountMeta(collectionMint, false, false),
		solana.NewAccountMeta(collectionAccounts.metadata, true, false),
		solana.NewAccountMeta(collectionAccounts.delegateRecord, true, false),
		solana.NewAccountMeta(collectionAccounts.migrationState, true, false),
		solana.NewAccountMeta(collectionAccounts.programSigner, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(pda.TokenMetadataProgramID, false, false),
	}
	return builder.instruction(KindStart, accounts, nil)
}

// InitSigner creates the program signer account.
func (builder Builder) InitSigner(payer solana.PublicKey) (solana.Instruction, error) {
	programSigner, signerError := builder.deriver.ProgramSignerAddress()
	if signerError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindInitSigner, signerError)
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(programSigner.Address, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return builder.instruction(KindInitSigner, accounts, nil)
}

// Sudo overrides the unlock time of a migration state.
func (builder Builder) Sudo(authority solana.PublicKey, collectionMint solana.PublicKey, unlockTime int64) (solana.Instruction, error) {
	migrationState, stateError := builder.deriver.MigrationStateAddress(collectionMint)
	if stateError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindSudo, stateError)
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(authority, false, true),
		solana.NewAccountMeta(migrationState.Address, true, false),
	}
	return builder.instruction(KindSudo, accounts, func(encoder *bin.Encoder) error {
		return encoder.WriteInt64(unlockTime, binary.LittleEndian)
	})
}

// Migrate converts one collection item.
func (builder Builder) Migrate(migrateAccounts MigrateAccounts) (solana.Instruction, error) {
	itemMetadata, metadataError := builder.deriver.MetadataAddress(migrateAccounts.ItemMint)
	if metadataError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindMigrate, metadataError)
	}
	itemEdition, editionError := builder.deriver.EditionAddress(migrateAccounts.ItemMint)
	if editionError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindMigrate, editionError)
	}
	tokenRecord, recordError := builder.deriver.TokenRecordAddress(migrateAccounts.ItemMint, migrateAccounts.ItemToken)
	if recordError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindMigrate, recordError)
	}
	collectionAccounts, accountsError := builder.collectionAccounts(migrateAccounts.CollectionMint)
	if accountsError != nil {
		return nil, fmt.Errorf(instructionAccountsErrorTemplateConstant, KindMigrate, accountsError)
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(itemMetadata.Address, true, false),
		solana.NewAccountMeta(itemEdition.Address, true, false),
		solana.NewAccountMeta(migrateAccounts.ItemToken, true, false),
		solana.NewAccountMeta(migrateAccounts.TokenOwner, false, false),
		solana.NewAccountMeta(migrateAccounts.TokenOwnerProgram, false, false),
		solana.NewAccountMeta(builder.optionalAccount(migrateAccounts.TokenOwnerProgramBuffer), false, false),
		solana.NewAccountMeta(migrateAccounts.ItemMint, false, false),
		solana.NewAccountMeta(migrateAccounts.Payer, true, true),
		solana.NewAccountMeta(collectionAccounts.programSigner, false, false),
		solana.NewAccountMeta(collectionAccounts.metadata, true, false),
		solana.NewAccountMeta(collectionAccounts.delegateRecord, false, false),
		solana.NewAccountMeta(tokenRecord.Address, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarInstructionsPubkey, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(pda.TokenMetadataProgramID, false, false),
		solana.NewAccountMeta(AuthorizationRulesProgramID, false, false),
		solana.NewAccountMeta(builder.optionalAccount(migrateAccounts.RuleSet), false, false),
		solana.NewAccountMeta(collectionAccounts.migrationState, true, false),
	}
	return builder.instruction(KindMigrate, accounts, nil)
}

type collectionAccountSet struct {
	metadata       solana.PublicKey
	migrationState solana.PublicKey
	programSigner  solana.PublicKey
	delegateRecord solana.PublicKey
}

func (builder Builder) collectionAccounts(collectionMint solana.PublicKey) (collectionAccountSet, error) {
	collectionMetadata, metadataError := builder.deriver.MetadataAddress(collectionMint)
	if metadataError != nil {
		return collectionAccountSet{}, metadataError
	}
	migrationState, stateError := builder.deriver.MigrationStateAddress(collectionMint)
	if stateError != nil {
		return collectionAccountSet{}, stateError
	}
	programSigner, signerError := builder.deriver.ProgramSignerAddress()
	if signerError != nil {
		return collectionAccountSet{}, signerError
	}
	delegateRecord, delegateError := builder.deriver.CollectionDelegateRecordAddress(collectionMint, programSigner.Address)
	if delegateError != nil {
		return collectionAccountSet{}, delegateError
	}
	return collectionAccountSet{
		metadata:       collectionMetadata.Address,
		migrationState: migrationState.Address,
		programSigner:  programSigner.Address,
		delegateRecord: delegateRecord.Address,
	}, nil
}

func (builder Builder) optionalAccount(publicKey *solana.PublicKey) solana.PublicKey {
	if publicKey == nil || publicKey.IsZero() {
		return builder.ProgramID()
	}
	return *publicKey
}

func (builder Builder) instruction(kind Kind, accounts solana.AccountMetaSlice, writeArguments func(encoder *bin.Encoder) error) (solana.Instruction, error) {
	buffer := new(bytes.Buffer)
	encoder := bin.NewBorshEncoder(buffer)
	if writeError := encoder.WriteUint8(uint8(kind)); writeError != nil {
		return nil, fmt.Errorf(instructionEncodeErrorTemplateConstant, kind, writeError)
	}
	if writeArguments != nil {
		if writeError := writeArguments(encoder); writeError != nil {
			return nil, fmt.Errorf(instructionEncodeErrorTemplateConstant, kind, writeError)
		}
	}
	return solana.NewInstruction(builder.ProgramID(), accounts, buffer.Bytes()), nil
}

func writeOptionalPublicKey(encoder *bin.Encoder, publicKey *solana.PublicKey) error {
	if publicKey == nil {
		return encoder.WriteUint8(optionNoneTagConstant)
	}
	if writeError := encoder.WriteUint8(optionSomeTagConstant); writeError != nil {
		return writeError
	}
	return encoder.WriteBytes(publicKey.Bytes(), false)
}
