// Package wallet reads the Solana CLI configuration and the payer keypair it references.
package wallet
