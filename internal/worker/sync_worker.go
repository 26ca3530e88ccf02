package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

// SyncWorker mirrors records from SQLite to Google Sheets. Messages from
// AMQP drive the fast path; the pending sweep catches anything the broker
// lost or the sheet rejected.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.RecordWriter
	deleter   sheets.RecordDeleter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer sheets.RecordWriter, deleter sheets.RecordDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single record sync message from AMQP.
// A missing record means it was deleted before we got here; the message is
// acked and forgotten. An append failure marks the record failed and acks:
// the sweep retries it later, a requeue would just hammer a broken sheet.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	rec, err := w.storage.GetRecord(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Record gone before sync, skipping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get record from storage: %w", err)
	}

	if err := w.syncRecordToSheets(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to sync record", "id", msg.ID, "error", err)
	}
	return nil
}

// HandleDeleteMessage processes a single record delete message from AMQP.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.RecordDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.deleter == nil {
		slog.WarnContext(ctx, "No record deleter configured, skipping sheet deletion",
			"id", msg.ID)
		return nil
	}

	// The worker is trusted; owner scoping happened at the HTTP layer.
	if err := w.deleter.DeleteRecord(ctx, "", msg.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete record from sheet",
			"id", msg.ID,
			"error", err,
			"timestamp", msg.Timestamp)
		return fmt.Errorf("delete record from sheet: %w", err)
	}

	slog.InfoContext(ctx, "Deleted record from sheet", "id", msg.ID)
	return nil
}

// ProcessPendingRecords pushes records that never made it to the sheet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingRecords(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending records: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	for _, rec := range pending {
		if err := w.syncRecordToSheets(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync record", "id", rec.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains the pending backlog at worker startup. This is
// useful to recover from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	// The backlog after downtime can exceed one normal batch.
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending records for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, rec := range pending {
		if err := w.syncRecordToSheets(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync record during startup",
				"id", rec.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) syncRecordToSheets(ctx context.Context, rec core.Record) error {
	ref, err := w.writer.Append(ctx, rec)
	if err != nil {
		if markErr := w.storage.MarkSyncFailed(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync failed", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, rec.ID, ref); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", rec.ID, "error", err)
		// The row landed in the sheet, so failing the message would sync
		// it twice. The startup check reconciles the flag later.
	}

	slog.InfoContext(ctx, "Synced record to sheet",
		"id", rec.ID,
		"sheets_ref", ref,
		"kind", rec.Kind,
		"amount_cents", rec.Amount.Cents)

	return nil
}
