// Package migrate implements the collection migration run: it reads a manifest of item
// mints, migrates each item through the migration validator program, and persists the
// outcomes as result manifests.
package migrate
