// Package session assembles the chain client, payer, and address helpers a command needs from configuration.
package session
