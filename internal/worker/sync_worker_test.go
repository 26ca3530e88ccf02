package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type fakeWriter struct {
	appended []core.Record
	err      error
}

func (f *fakeWriter) Append(_ context.Context, rec core.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, rec)
	return "fake:1", nil
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteRecord(_ context.Context, owner string, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, owner+"/"+id)
	return nil
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func insertRecord(t *testing.T, repo *storage.SQLiteRepository, id string) core.Record {
	t.Helper()
	rec := core.Record{
		ID:         id,
		Owner:      "alice",
		Kind:       core.KindExpense,
		Category:   "Spesa",
		Amount:     core.Money{Cents: 1250},
		OccurredAt: core.NewDate(2024, 3, 15),
	}
	if err := repo.InsertRecord(context.Background(), rec); err != nil {
		t.Fatalf("insert record: %v", err)
	}
	return rec
}

func pendingCount(t *testing.T, repo *storage.SQLiteRepository) int {
	t.Helper()
	pending, err := repo.ListPendingSync(context.Background(), 100)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	return len(pending)
}

func TestHandleSyncMessage_AppendsAndMarksSynced(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, nil, 10)

	insertRecord(t, repo, "rec-1")

	msg := amqp.NewRecordSyncMessage("rec-1")
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle sync: %v", err)
	}

	if len(writer.appended) != 1 || writer.appended[0].ID != "rec-1" {
		t.Errorf("unexpected appends: %v", writer.appended)
	}
	if n := pendingCount(t, repo); n != 0 {
		t.Errorf("expected no pending records, got %d", n)
	}
}

func TestHandleSyncMessage_MissingRecordIsSkipped(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, nil, 10)

	msg := amqp.NewRecordSyncMessage("nope")
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected nil for missing record, got %v", err)
	}
	if len(writer.appended) != 0 {
		t.Errorf("writer should not be called for a missing record")
	}
}

func TestHandleSyncMessage_AppendFailureMarksFailedAndAcks(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeWriter{err: errors.New("sheet down")}
	w := NewSyncWorker(repo, writer, nil, 10)

	insertRecord(t, repo, "rec-1")

	msg := amqp.NewRecordSyncMessage("rec-1")
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("append failure should ack, got %v", err)
	}

	// Still pending: failed records are retried by the sweep.
	if n := pendingCount(t, repo); n != 1 {
		t.Errorf("expected 1 pending record after failure, got %d", n)
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	repo := newTestRepo(t)
	deleter := &fakeDeleter{}
	w := NewSyncWorker(repo, &fakeWriter{}, deleter, 10)

	msg := amqp.NewRecordDeleteMessage("rec-9")
	if err := w.HandleDeleteMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if len(deleter.deleted) != 1 || deleter.deleted[0] != "/rec-9" {
		t.Errorf("unexpected deletes: %v", deleter.deleted)
	}
}

func TestHandleDeleteMessage_NoDeleterConfigured(t *testing.T) {
	repo := newTestRepo(t)
	w := NewSyncWorker(repo, &fakeWriter{}, nil, 10)

	msg := amqp.NewRecordDeleteMessage("rec-9")
	if err := w.HandleDeleteMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected nil without deleter, got %v", err)
	}
}

func TestHandleDeleteMessage_DeleterFailureRequeues(t *testing.T) {
	repo := newTestRepo(t)
	deleter := &fakeDeleter{err: errors.New("sheet down")}
	w := NewSyncWorker(repo, &fakeWriter{}, deleter, 10)

	msg := amqp.NewRecordDeleteMessage("rec-9")
	if err := w.HandleDeleteMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestProcessPendingRecords(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, nil, 10)

	insertRecord(t, repo, "rec-1")
	insertRecord(t, repo, "rec-2")
	insertRecord(t, repo, "rec-3")

	if err := w.ProcessPendingRecords(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(writer.appended) != 3 {
		t.Errorf("expected 3 appends, got %d", len(writer.appended))
	}
	if n := pendingCount(t, repo); n != 0 {
		t.Errorf("expected backlog drained, got %d pending", n)
	}

	// Nothing left: a second sweep is a no-op.
	if err := w.ProcessPendingRecords(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(writer.appended) != 3 {
		t.Errorf("second sweep re-synced records: %d appends", len(writer.appended))
	}
}

func TestProcessPendingRecords_RespectsBatchSize(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, nil, 2)

	insertRecord(t, repo, "rec-1")
	insertRecord(t, repo, "rec-2")
	insertRecord(t, repo, "rec-3")

	if err := w.ProcessPendingRecords(context.Background()); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(writer.appended) != 2 {
		t.Errorf("expected batch of 2, got %d", len(writer.appended))
	}
	if n := pendingCount(t, repo); n != 1 {
		t.Errorf("expected 1 record left, got %d", n)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	repo := newTestRepo(t)
	writer := &fakeWriter{}
	w := NewSyncWorker(repo, writer, nil, 1)

	insertRecord(t, repo, "rec-1")
	insertRecord(t, repo, "rec-2")
	insertRecord(t, repo, "rec-3")

	// Startup uses a larger batch than the periodic sweep.
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if len(writer.appended) != 3 {
		t.Errorf("expected 3 appends, got %d", len(writer.appended))
	}
}
