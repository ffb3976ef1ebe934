package resolver

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	loaderPublicKeyLengthConstant = 32
	loaderOptionNoneConstant      = 0
	loaderOptionSomeConstant      = 1
)

// LoaderStateKind enumerates the variants of an upgradeable loader account.
type LoaderStateKind uint32

// Upgradeable loader variants in their serialized tag order.
const (
	LoaderStateUninitialized LoaderStateKind = iota
	LoaderStateBuffer
	LoaderStateProgram
	LoaderStateProgramData
)

// UpgradeableLoaderState is a decoded upgradeable loader account.
type UpgradeableLoaderState struct {
	Kind           LoaderStateKind
	Authority      *solana.PublicKey
	ProgramData    solana.PublicKey
	DeploymentSlot uint64
}

// ProgramDataAddress returns the program-data buffer when the state describes a deployed program.
func (loaderState UpgradeableLoaderState) ProgramDataAddress() (solana.PublicKey, bool) {
	if loaderState.Kind != LoaderStateProgram {
		return solana.PublicKey{}, false
	}
	return loaderState.ProgramData, true
}

// ParseUpgradeableLoaderState decodes data as an upgradeable loader account.
// The boolean is false when data does not use the upgradeable loader layout,
// which is the normal answer for programs deployed with an immutable loader.
func ParseUpgradeableLoaderState(data []byte) (UpgradeableLoaderState, bool) {
	decoder := bin.NewBinDecoder(data)

	tag, tagError := decoder.ReadUint32(binary.LittleEndian)
	if tagError != nil {
		return UpgradeableLoaderState{}, false
	}

	switch LoaderStateKind(tag) {
	case LoaderStateUninitialized:
		return UpgradeableLoaderState{Kind: LoaderStateUninitialized}, true
	case LoaderStateBuffer:
		authority, authorityParsed := readOptionalLoaderKey(decoder)
		if !authorityParsed {
			return UpgradeableLoaderState{}, false
		}
		return UpgradeableLoaderState{Kind: LoaderStateBuffer, Authority: authority}, true
	case LoaderStateProgram:
		programDataBytes, readError := decoder.ReadNBytes(loaderPublicKeyLengthConstant)
		if readError != nil {
			return UpgradeableLoaderState{}, false
		}
		return UpgradeableLoaderState{Kind: LoaderStateProgram, ProgramData: solana.PublicKeyFromBytes(programDataBytes)}, true
	case LoaderStateProgramData:
		slot, slotError := decoder.ReadUint64(binary.LittleEndian)
		if slotError != nil {
			return UpgradeableLoaderState{}, false
		}
		authority, authorityParsed := readOptionalLoaderKey(decoder)
		if !authorityParsed {
			return UpgradeableLoaderState{}, false
		}
		return UpgradeableLoaderState{Kind: LoaderStateProgramData, DeploymentSlot: slot, Authority: authority}, true
	default:
		return UpgradeableLoaderState{}, false
	}
}

func readOptionalLoaderKey(decoder *bin.Decoder) (*solana.PublicKey, bool) {
	optionTag, tagError := decoder.ReadUint8()
	if tagError != nil {
		return nil, false
	}
	switch optionTag {
	case loaderOptionNoneConstant:
		return nil, true
	case loaderOptionSomeConstant:
		keyBytes, readError := decoder.ReadNBytes(loaderPublicKeyLengthConstant)
		if readError != nil {
			return nil, false
		}
		publicKey := solana.PublicKeyFromBytes(keyBytes)
		return &publicKey, true
	default:
		return nil, false
	}
}
