// Package instructions encodes the migration validator program instructions.
//
// Every instruction carries a one byte discriminator followed by its borsh encoded
// arguments. Optional accounts that are absent are replaced by the migration program
// id, which the program treats as "not provided".
package instructions
