package adapters

import (
	"context"

	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

// SQLiteAdapter exposes the repository plus record service as the sheets
// ports, so handlers work unchanged against the SQLite + AMQP backend.
// Writes go through the service (which also publishes sync messages);
// reads go straight to the repository.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.RecordService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.RecordService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// Append implements sheets.RecordWriter
func (a *SQLiteAdapter) Append(ctx context.Context, rec core.Record) (string, error) {
	stored, err := a.service.CreateRecord(ctx, rec)
	if err != nil {
		return "", err
	}
	return stored.ID, nil
}

// ListRecords implements sheets.RecordLister
func (a *SQLiteAdapter) ListRecords(ctx context.Context, owner string, kind core.Kind) ([]core.Record, error) {
	return a.storage.ListRecordsByOwner(ctx, owner, kind)
}

// DeleteRecord implements sheets.RecordDeleter
func (a *SQLiteAdapter) DeleteRecord(ctx context.Context, owner string, id string) error {
	return a.service.DeleteRecord(ctx, owner, id)
}

// ListCategories implements sheets.CategoryReader
func (a *SQLiteAdapter) ListCategories(ctx context.Context, owner string, kind core.Kind) ([]string, error) {
	return a.storage.ListCategories(ctx, owner, kind)
}

// Ping reports database health for readiness probes.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}

var (
	_ sheets.RecordWriter   = (*SQLiteAdapter)(nil)
	_ sheets.RecordLister   = (*SQLiteAdapter)(nil)
	_ sheets.RecordDeleter  = (*SQLiteAdapter)(nil)
	_ sheets.CategoryReader = (*SQLiteAdapter)(nil)
)
