// Package resolver locates the accounts involved in migrating a single asset:
// the token account that holds it, the wallet or program account that owns
// that token account, the program administering the owner, and, when that
// program is upgradeable, the program-data buffer behind it.
package resolver
