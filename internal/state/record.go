package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const (
	unlockMethodTimedNameConstant      = "timed"
	unlockMethodVoteNameConstant       = "vote"
	unlockMethodTimedDisplayConstant   = "Timed"
	unlockMethodVoteDisplayConstant    = "Vote"
	invalidUnlockMethodMessageConstant = "invalid unlock method; must be one of: Timed, Vote"
	invalidUnlockMethodTemplateConst   = "%w: %q"
	unknownUnlockMethodTemplateConst   = "UnlockMethod(%d)"
)

// ErrInvalidUnlockMethod indicates an unlock method outside the supported set.
var ErrInvalidUnlockMethod = errors.New(invalidUnlockMethodMessageConstant)

// UnlockMethod selects how a collection's migration window opens.
type UnlockMethod uint8

// Supported unlock methods, in on-chain discriminant order.
const (
	UnlockMethodTimed UnlockMethod = iota
	UnlockMethodVote
)

// UnlockMethodChoices lists the accepted unlock method names.
func UnlockMethodChoices() []string {
	return []string{unlockMethodTimedNameConstant, unlockMethodVoteNameConstant}
}

// ParseUnlockMethod accepts an unlock method name case-insensitively.
func ParseUnlockMethod(value string) (UnlockMethod, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case unlockMethodTimedNameConstant:
		return UnlockMethodTimed, nil
	case unlockMethodVoteNameConstant:
		return UnlockMethodVote, nil
	default:
		return 0, fmt.Errorf(invalidUnlockMethodTemplateConst, ErrInvalidUnlockMethod, value)
	}
}

// String renders the unlock method the way operators type it.
func (method UnlockMethod) String() string {
	switch method {
	case UnlockMethodTimed:
		return unlockMethodTimedDisplayConstant
	case UnlockMethodVote:
		return unlockMethodVoteDisplayConstant
	default:
		return fmt.Sprintf(unknownUnlockMethodTemplateConst, uint8(method))
	}
}

// CollectionInfo describes the collection governed by a migration state.
type CollectionInfo struct {
	Authority      solana.PublicKey
	Mint           solana.PublicKey
	RuleSet        *solana.PublicKey
	DelegateRecord solana.PublicKey
	Size           uint32
}

// MigrationStatus tracks the progress of a collection's migration.
type MigrationStatus struct {
	UnlockTime    int64
	IsLocked      bool
	InProgress    bool
	ItemsMigrated uint32
}

// MigrationState is the authority record stored at the collection's migration PDA.
type MigrationState struct {
	CollectionInfo CollectionInfo
	UnlockMethod   UnlockMethod
	Status         MigrationStatus
}

// RuleSet returns the rule set propagated into every migrate instruction, or nil when none is configured.
func (migrationState MigrationState) RuleSet() *solana.PublicKey {
	if migrationState.CollectionInfo.RuleSet == nil || migrationState.CollectionInfo.RuleSet.IsZero() {
		return nil
	}
	ruleSet := *migrationState.CollectionInfo.RuleSet
	return &ruleSet
}
