package state

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// StateView is the human-facing rendering of a migration state used for JSON and YAML output.
type StateView struct {
	Address        string             `json:"address,omitempty" yaml:"address,omitempty"`
	CollectionInfo CollectionInfoView `json:"collection_info" yaml:"collection_info"`
	UnlockMethod   string             `json:"unlock_method" yaml:"unlock_method"`
	Status         StatusView         `json:"status" yaml:"status"`
}

// CollectionInfoView renders CollectionInfo with base58 identifiers.
type CollectionInfoView struct {
	Authority      string  `json:"authority" yaml:"authority"`
	Mint           string  `json:"mint" yaml:"mint"`
	RuleSet        *string `json:"rule_set" yaml:"rule_set"`
	DelegateRecord string  `json:"delegate_record" yaml:"delegate_record"`
	Size           uint32  `json:"size" yaml:"size"`
}

// StatusView renders MigrationStatus with an RFC 3339 unlock time alongside the raw timestamp.
type StatusView struct {
	UnlockTime     int64  `json:"unlock_time" yaml:"unlock_time"`
	UnlockTimeText string `json:"unlock_time_utc" yaml:"unlock_time_utc"`
	IsLocked       bool   `json:"is_locked" yaml:"is_locked"`
	InProgress     bool   `json:"in_progress" yaml:"in_progress"`
	ItemsMigrated  uint32 `json:"items_migrated" yaml:"items_migrated"`
}

// NewStateView renders migrationState; address may be zero when unknown.
func NewStateView(address solana.PublicKey, migrationState MigrationState) StateView {
	view := StateView{
		CollectionInfo: CollectionInfoView{
			Authority:      migrationState.CollectionInfo.Authority.String(),
			Mint:           migrationState.CollectionInfo.Mint.String(),
			DelegateRecord: migrationState.CollectionInfo.DelegateRecord.String(),
			Size:           migrationState.CollectionInfo.Size,
		},
		UnlockMethod: migrationState.UnlockMethod.String(),
		Status: StatusView{
			UnlockTime:     migrationState.Status.UnlockTime,
			UnlockTimeText: time.Unix(migrationState.Status.UnlockTime, 0).UTC().Format(time.RFC3339),
			IsLocked:       migrationState.Status.IsLocked,
			InProgress:     migrationState.Status.InProgress,
			ItemsMigrated:  migrationState.Status.ItemsMigrated,
		},
	}
	if !address.IsZero() {
		view.Address = address.String()
	}
	if migrationState.CollectionInfo.RuleSet != nil {
		ruleSet := migrationState.CollectionInfo.RuleSet.String()
		view.CollectionInfo.RuleSet = &ruleSet
	}
	return view
}
