// Package chain wraps the Solana JSON-RPC surface consumed by goose.
//
// Client narrows the RPC API to the handful of calls the migration workflow
// needs so that resolvers and services can be exercised against in-memory
// fakes, RPCClient adapts the solana-go RPC client to it, and Submitter signs,
// sends, and confirms single-purpose transactions. Cluster classification maps
// a genesis hash onto the explorer cluster used in human-readable links.
package chain
