package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	publicKeyLengthConstant          = 32
	optionNoneTagConstant            = 0
	optionSomeTagConstant            = 1
	decodeErrorMessageConstant       = "unable to decode migration state"
	decodeFieldErrorTemplateConstant = "%w: %s: %v"
	encodeErrorTemplateConstant      = "unable to encode migration state: %w"
	invalidOptionTagTemplateConstant = "invalid option tag %d"
	invalidBooleanTemplateConstant   = "invalid boolean value %d"
	invalidUnlockTagTemplateConstant = "invalid unlock method %d"
	fieldAuthorityConstant           = "collection_info.authority"
	fieldMintConstant                = "collection_info.mint"
	fieldRuleSetConstant             = "collection_info.rule_set"
	fieldDelegateRecordConstant      = "collection_info.delegate_record"
	fieldSizeConstant                = "collection_info.size"
	fieldUnlockMethodConstant        = "unlock_method"
	fieldUnlockTimeConstant          = "status.unlock_time"
	fieldIsLockedConstant            = "status.is_locked"
	fieldInProgressConstant          = "status.in_progress"
	fieldItemsMigratedConstant       = "status.items_migrated"
)

// MinimumEncodedSize is the length of a migration state without a rule set.
// Shorter accounts owned by the migration program hold other records, such as the program signer.
const MinimumEncodedSize = 3*publicKeyLengthConstant + 1 + 4 + 1 + 8 + 1 + 1 + 4

// ErrDecode indicates that account data does not match the migration state layout.
var ErrDecode = errors.New(decodeErrorMessageConstant)

// DecodeMigrationState parses borsh-encoded account data. Bytes after the record are ignored.
func DecodeMigrationState(data []byte) (MigrationState, error) {
	var migrationState MigrationState
	if decodeError := migrationState.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); decodeError != nil {
		return MigrationState{}, decodeError
	}
	return migrationState, nil
}

// EncodeMigrationState serializes a migration state using the on-chain layout.
func EncodeMigrationState(migrationState MigrationState) ([]byte, error) {
	buffer := new(bytes.Buffer)
	if encodeError := migrationState.MarshalWithEncoder(bin.NewBorshEncoder(buffer)); encodeError != nil {
		return nil, fmt.Errorf(encodeErrorTemplateConstant, encodeError)
	}
	return buffer.Bytes(), nil
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (migrationState *MigrationState) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var decodeError error
	fieldReader := stateFieldReader{decoder: decoder}

	decoded := MigrationState{}
	decoded.CollectionInfo.Authority, decodeError = fieldReader.publicKey(fieldAuthorityConstant)
	if decodeError != nil {
		return decodeError
	}
	decoded.CollectionInfo.Mint, decodeError = fieldReader.publicKey(fieldMintConstant)
	if decodeError != nil {
		return decodeError
	}
	decoded.CollectionInfo.RuleSet, decodeError = fieldReader.optionalPublicKey(fieldRuleSetConstant)
	if decodeError != nil {
		return decodeError
	}
	decoded.CollectionInfo.DelegateRecord, decodeError = fieldReader.publicKey(fieldDelegateRecordConstant)
	if decodeError != nil {
		return decodeError
	}
	decoded.CollectionInfo.Size, decodeError = fieldReader.uint32(fieldSizeConstant)
	if decodeError != nil {
		return decodeError
	}

	unlockMethodTag, unlockError := decoder.ReadUint8()
	if unlockError != nil {
		return decodeFieldError(fieldUnlockMethodConstant, unlockError)
	}
	if unlockMethodTag > uint8(UnlockMethodVote) {
		return decodeFieldError(fieldUnlockMethodConstant, fmt.Errorf(invalidUnlockTagTemplateConstant, unlockMethodTag))
	}
	decoded.UnlockMethod = UnlockMethod(unlockMethodTag)

	decoded.Status.UnlockTime, decodeError = fieldReader.int64(fieldUnlockTimeConstant)
	if decodeError != nil {
		return decodeError
	}
	decoded.Status.IsLocked, decodeError = fieldReader.boolean(fieldIsLockedConstant)
	if decodeError != nil {
		return decodeError
	}
	decoded.Status.InProgress, decodeError = fieldReader.boolean(fieldInProgressConstant)
	if decodeError != nil {
		return decodeError
	}
	decoded.Status.ItemsMigrated, decodeError = fieldReader.uint32(fieldItemsMigratedConstant)
	if decodeError != nil {
		return decodeError
	}

	*migrationState = decoded
	return nil
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (migrationState MigrationState) MarshalWithEncoder(encoder *bin.Encoder) error {
	collectionInfo := migrationState.CollectionInfo
	if writeError := encoder.WriteBytes(collectionInfo.Authority.Bytes(), false); writeError != nil {
		return writeError
	}
	if writeError := encoder.WriteBytes(collectionInfo.Mint.Bytes(), false); writeError != nil {
		return writeError
	}
	if writeError := writeOptionalPublicKey(encoder, collectionInfo.RuleSet); writeError != nil {
		return writeError
	}
	if writeError := encoder.WriteBytes(collectionInfo.DelegateRecord.Bytes(), false); writeError != nil {
		return writeError
	}
	if writeError := encoder.WriteUint32(collectionInfo.Size, binary.LittleEndian); writeError != nil {
		return writeError
	}
	if writeError := encoder.WriteUint8(uint8(migrationState.UnlockMethod)); writeError != nil {
		return writeError
	}
	if writeError := encoder.WriteInt64(migrationState.Status.UnlockTime, binary.LittleEndian); writeError != nil {
		return writeError
	}
	if writeError := encoder.WriteBool(migrationState.Status.IsLocked); writeError != nil {
		return writeError
	}
	if writeError := encoder.WriteBool(migrationState.Status.InProgress); writeError != nil {
		return writeError
	}
	return encoder.WriteUint32(migrationState.Status.ItemsMigrated, binary.LittleEndian)
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

type stateFieldReader struct {
	decoder *bin.Decoder
}

func (reader stateFieldReader) publicKey(fieldName string) (solana.PublicKey, error) {
	keyBytes, readError := reader.decoder.ReadNBytes(publicKeyLengthConstant)
	if readError != nil {
		return solana.PublicKey{}, decodeFieldError(fieldName, readError)
	}
	return solana.PublicKeyFromBytes(keyBytes), nil
}

func (reader stateFieldReader) optionalPublicKey(fieldName string) (*solana.PublicKey, error) {
	optionTag, readError := reader.decoder.ReadUint8()
	if readError != nil {
		return nil, decodeFieldError(fieldName, readError)
	}
	switch optionTag {
	case optionNoneTagConstant:
		return nil, nil
	case optionSomeTagConstant:
		publicKey, keyError := reader.publicKey(fieldName)
		if keyError != nil {
			return nil, keyError
		}
		return &publicKey, nil
	default:
		return nil, decodeFieldError(fieldName, fmt.Errorf(invalidOptionTagTemplateConstant, optionTag))
	}
}

func (reader stateFieldReader) uint32(fieldName string) (uint32, error) {
	value, readError := reader.decoder.ReadUint32(binary.LittleEndian)
	if readError != nil {
		return 0, decodeFieldError(fieldName, readError)
	}
	return value, nil
}

func (reader stateFieldReader) int64(fieldName string) (int64, error) {
	value, readError := reader.decoder.ReadInt64(binary.LittleEndian)
	if readError != nil {
		return 0, decodeFieldError(fieldName, readError)
	}
	return value, nil
}

func (reader stateFieldReader) boolean(fieldName string) (bool, error) {
	value, readError := reader.decoder.ReadUint8()
	if readError != nil {
		return false, decodeFieldError(fieldName, readError)
	}
	switch value {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, decodeFieldError(fieldName, fmt.Errorf(invalidBooleanTemplateConstant, value))
	}
}

func decodeFieldError(fieldName string, cause error) error {
	return fmt.Errorf(decodeFieldErrorTemplateConstant, ErrDecode, fieldName, cause)
}
