package sheets

import (
	"context"

	"bilancio/internal/core"
)

// Ports for outbound adapters. Every backend (sqlite, google sheets,
// memory) implements these; handlers and the worker depend on nothing else.
type (
	RecordWriter interface {
		Append(ctx context.Context, r core.Record) (rowRef string, err error)
	}

	// RecordLister returns an owner's records of one kind ordered by
	// occurrence date, oldest first. That order feeds the window filter
	// and the summary, both of which preserve it.
	RecordLister interface {
		ListRecords(ctx context.Context, owner string, kind core.Kind) ([]core.Record, error)
	}

	// RecordDeleter removes one record. The owner comes along so a caller
	// can never delete across account boundaries by guessing ids.
	RecordDeleter interface {
		DeleteRecord(ctx context.Context, owner string, id string) error
	}

	// CategoryReader lists the distinct categories an owner has used for
	// one kind, in first-use order. Backs the datalist suggestions.
	CategoryReader interface {
		ListCategories(ctx context.Context, owner string, kind core.Kind) ([]string, error)
	}
)
