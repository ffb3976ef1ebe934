// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate migration and authority events into concise lines with
// explorer links, while detailed telemetry continues to flow through structured
// loggers.
package ui
