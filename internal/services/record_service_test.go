package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
)

type fakeStore struct {
	inserted  []core.Record
	deleted   []string
	insertErr error
	deleteErr error
	closed    bool
}

func (f *fakeStore) InsertRecord(ctx context.Context, rec core.Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeStore) DeleteRecord(ctx context.Context, owner string, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, owner+"/"+id)
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

type fakePublisher struct {
	synced     []string
	deleted    []string
	publishErr error
	closed     bool
}

func (f *fakePublisher) PublishRecordSync(ctx context.Context, id string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.synced = append(f.synced, id)
	return nil
}

func (f *fakePublisher) PublishRecordDelete(ctx context.Context, id string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func validRecord() core.Record {
	return core.Record{
		Owner:      "alice",
		Kind:       core.KindExpense,
		Category:   "Spesa",
		Amount:     core.Money{Cents: 4500},
		OccurredAt: core.NewDate(2024, 1, 5),
	}
}

func TestCreateRecordAssignsIDAndPublishes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	service := NewRecordService(store, pub)

	rec, err := service.CreateRecord(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected generated id")
	}
	if len(store.inserted) != 1 || store.inserted[0].ID != rec.ID {
		t.Fatalf("record not stored: %+v", store.inserted)
	}
	if len(pub.synced) != 1 || pub.synced[0] != rec.ID {
		t.Fatalf("sync message not published: %v", pub.synced)
	}
}

func TestCreateRecordKeepsProvidedID(t *testing.T) {
	store := &fakeStore{}
	service := NewRecordService(store, &fakePublisher{})

	in := validRecord()
	in.ID = "fixed-id"
	rec, err := service.CreateRecord(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID != "fixed-id" {
		t.Fatalf("expected fixed-id, got %s", rec.ID)
	}
}

func TestCreateRecordRejectsInvalid(t *testing.T) {
	store := &fakeStore{}
	service := NewRecordService(store, &fakePublisher{})

	bad := validRecord()
	bad.Category = ""
	if _, err := service.CreateRecord(context.Background(), bad); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatal("invalid record must not reach storage")
	}
}

func TestCreateRecordSurvivesPublishFailure(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{publishErr: errors.New("broker down")}
	service := NewRecordService(store, pub)

	rec, err := service.CreateRecord(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if len(store.inserted) != 1 || store.inserted[0].ID != rec.ID {
		t.Fatalf("record should still be stored: %+v", store.inserted)
	}
}

func TestCreateRecordWithoutPublisher(t *testing.T) {
	store := &fakeStore{}
	service := NewRecordService(store, nil)

	if _, err := service.CreateRecord(context.Background(), validRecord()); err != nil {
		t.Fatalf("missing publisher must not fail the request: %v", err)
	}
}

func TestCreateRecordStorageFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("disk full")}
	pub := &fakePublisher{}
	service := NewRecordService(store, pub)

	if _, err := service.CreateRecord(context.Background(), validRecord()); err == nil {
		t.Fatal("expected storage error")
	}
	if len(pub.synced) != 0 {
		t.Fatal("nothing should be published when the save fails")
	}
}

func TestDeleteRecordPublishes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	service := NewRecordService(store, pub)

	if err := service.DeleteRecord(context.Background(), "alice", "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "alice/r1" {
		t.Fatalf("owner-scoped delete not forwarded: %v", store.deleted)
	}
	if len(pub.deleted) != 1 || pub.deleted[0] != "r1" {
		t.Fatalf("delete message not published: %v", pub.deleted)
	}
}

func TestDeleteRecordStorageFailure(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("not found")}
	pub := &fakePublisher{}
	service := NewRecordService(store, pub)

	if err := service.DeleteRecord(context.Background(), "alice", "r1"); err == nil {
		t.Fatal("expected delete error")
	}
	if len(pub.deleted) != 0 {
		t.Fatal("nothing should be published when the delete fails")
	}
}

func TestClose(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := NewRecordService(nil, nil)
		if err := service.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes both", func(t *testing.T) {
		store := &fakeStore{}
		pub := &fakePublisher{}
		service := NewRecordService(store, pub)
		if err := service.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if !store.closed || !pub.closed {
			t.Fatal("both components should be closed")
		}
	})
}
