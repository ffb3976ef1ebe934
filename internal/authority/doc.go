// Package authority implements the administrative lifecycle of a collection's migration state.
//
// The service initializes, updates, starts, and closes migration states, creates the
// program signer, overrides unlock times, and reads states back for display. Cobra
// commands in this package adapt those operations to the goose CLI.
package authority
