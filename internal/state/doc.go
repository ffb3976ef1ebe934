// Package state models the migration validator's authority record and reads
// it from the chain.
//
// MigrationState mirrors the account's borsh layout, Reader fetches one
// collection's record or enumerates every record owned by the program, and
// UnlockMethod parsing validates operator input before any network call.
package state
