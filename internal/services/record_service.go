package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// RecordStore is the slice of the SQLite repository the service needs.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec core.Record) error
	DeleteRecord(ctx context.Context, owner string, id string) error
	Close() error
}

// SyncPublisher is the slice of the AMQP client the service needs.
type SyncPublisher interface {
	PublishRecordSync(ctx context.Context, id string) error
	PublishRecordDelete(ctx context.Context, id string) error
	Close() error
}

// RecordService orchestrates record operations across SQLite and AMQP.
// The database write always comes first; the broker only mirrors what is
// already durable.
type RecordService struct {
	store     RecordStore
	publisher SyncPublisher
}

func NewRecordService(store RecordStore, publisher SyncPublisher) *RecordService {
	return &RecordService{
		store:     store,
		publisher: publisher,
	}
}

// CreateRecord validates and saves a record locally, then publishes a sync
// message. A publish failure is logged and swallowed: the record is saved
// and the worker's backup sweep will pick it up.
func (s *RecordService) CreateRecord(ctx context.Context, rec core.Record) (core.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}

	if err := s.store.InsertRecord(ctx, rec); err != nil {
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}

	if err := s.publishSyncMessage(ctx, rec.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", rec.ID, "error", err)
		// Don't fail the request - record is saved locally
	}

	return rec, nil
}

// DeleteRecord removes an owner's record locally and publishes a delete
// message so the mirror catches up. Same publish policy as CreateRecord.
func (s *RecordService) DeleteRecord(ctx context.Context, owner string, id string) error {
	if err := s.store.DeleteRecord(ctx, owner, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	if err := s.publishDeleteMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request - record is deleted locally
	}

	return nil
}

func (s *RecordService) publishSyncMessage(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishRecordSync(ctx, id)
}

func (s *RecordService) publishDeleteMessage(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.publisher.PublishRecordDelete(ctx, id)
}

// Close closes both storage and AMQP connections
func (s *RecordService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close record service: %v", errs)
	}

	return nil
}
