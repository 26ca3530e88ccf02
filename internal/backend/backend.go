// Package backend selects and constructs the record store a binary runs
// against: SQLite with optional AMQP sync, Google Sheets direct, or the
// in-memory store.
package backend

import (
	"context"

	"bilancio/internal/sheets"
)

// Backend bundles the store ports the HTTP layer needs.
type Backend interface {
	sheets.RecordWriter
	sheets.RecordLister
	sheets.RecordDeleter
	sheets.CategoryReader
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult pairs a ready backend with its cleanup, which may be nil.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory builds backends from a Config.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
