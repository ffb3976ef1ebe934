// Package pda derives the program-derived addresses used by the migration
// validator program and the token metadata program.
//
// Every derivation is a pure function of its seeds and owning program, so the
// same collection mint always maps to the same address and bump that the
// on-chain program computes for itself.
package pda
