// Package integration holds end-to-end tests that exercise the corpus,
// index, loader, search and watcher packages together.
package integration
