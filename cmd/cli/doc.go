// Package cli constructs the goose command-line interface. It wires the Cobra
// command hierarchy to the layered configuration loader and the zap logger, and
// registers the authority and migration commands.
package cli
