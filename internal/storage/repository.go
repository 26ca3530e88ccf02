package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// Sync lifecycle of a stored record.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncFailed  = "failed"
)

var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertRecord stores a validated record with sync status pending.
func (r *SQLiteRepository) InsertRecord(ctx context.Context, rec core.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, owner_id, kind, category, description, amount_cents, occurred_on)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Owner, string(rec.Kind), rec.Category, rec.Description,
		rec.Amount.Cents, rec.OccurredAt.ISO())
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", rec.ID,
		"kind", rec.Kind,
		"category", rec.Category,
		"amount_cents", rec.Amount.Cents,
		"occurred_on", rec.OccurredAt.ISO())

	return nil
}

// GetRecord fetches one record by id. Returns ErrNotFound when absent.
func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, kind, category, description, amount_cents, occurred_on
		FROM records WHERE id = ?`, id)

	rec, err := scanRecord(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

// DeleteRecord removes one record scoped to its owner. Returns ErrNotFound
// when the id does not exist or belongs to someone else. Owner "" matches any
// owner; only trusted internal callers use that form.
func (r *SQLiteRepository) DeleteRecord(ctx context.Context, owner string, id string) error {
	var res sql.Result
	var err error
	if owner == "" {
		res, err = r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ? AND owner_id = ?`, id, owner)
	}
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Record deleted from SQLite", "id", id)
	return nil
}

// ListRecordsByOwner returns one owner's records of one kind ordered by
// occurrence date, oldest first. Insertion order breaks date ties so the
// sequence is deterministic.
func (r *SQLiteRepository) ListRecordsByOwner(ctx context.Context, owner string, kind core.Kind) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, category, description, amount_cents, occurred_on
		FROM records
		WHERE owner_id = ? AND kind = ?
		ORDER BY occurred_on ASC, created_at ASC, rowid ASC`,
		owner, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	return collectRecords(ctx, rows)
}

// ListCategories returns the distinct categories an owner has used for one
// kind, ordered by first use.
func (r *SQLiteRepository) ListCategories(ctx context.Context, owner string, kind core.Kind) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category FROM records
		WHERE owner_id = ? AND kind = ?
		GROUP BY category
		ORDER BY MIN(created_at), MIN(rowid)`,
		owner, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListPendingSync returns up to limit records still waiting to be mirrored,
// oldest first. Previously failed records are retried too.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, category, description, amount_cents, occurred_on
		FROM records
		WHERE sync_status IN (?, ?)
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?`,
		SyncPending, SyncFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	return collectRecords(ctx, rows)
}

// MarkSynced records a successful mirror together with the remote row ref.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, rowRef string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE records
		SET sync_status = ?, sync_ref = ?, synced_at = datetime('now')
		WHERE id = ?`,
		SyncDone, rowRef, id)
	if err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}

	slog.InfoContext(ctx, "Record marked as synced", "id", id, "row_ref", rowRef)
	return nil
}

// MarkSyncFailed flags a record so the backup sweep retries it later.
func (r *SQLiteRepository) MarkSyncFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE records SET sync_status = ? WHERE id = ?`,
		SyncFailed, id)
	if err != nil {
		return fmt.Errorf("mark record sync failed: %w", err)
	}

	slog.WarnContext(ctx, "Record marked with sync error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row leniently. A row with an unparsable date or a
// non-numeric amount still becomes a record: the date collapses to zero
// (kept only in the unbounded view) and the amount to zero cents. Bad rows
// are logged, never fatal.
func scanRecord(ctx context.Context, row rowScanner) (core.Record, error) {
	var (
		rec        core.Record
		kind       string
		amountRaw  sql.NullString
		occurredOn sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Owner, &kind, &rec.Category, &rec.Description, &amountRaw, &occurredOn); err != nil {
		return core.Record{}, err
	}

	rec.Kind = core.Kind(kind)

	if amountRaw.Valid {
		cents, err := strconv.ParseInt(strings.TrimSpace(amountRaw.String), 10, 64)
		if err != nil {
			slog.WarnContext(ctx, "Record has non-numeric amount, coercing to zero",
				"id", rec.ID, "amount", amountRaw.String)
			cents = 0
		}
		rec.Amount = core.Money{Cents: cents}
	}

	if occurredOn.Valid {
		d, err := core.ParseDate(occurredOn.String)
		if err != nil {
			slog.WarnContext(ctx, "Record has unparsable date, coercing to zero",
				"id", rec.ID, "occurred_on", occurredOn.String)
		}
		rec.OccurredAt = d
	}

	return rec, nil
}

func collectRecords(ctx context.Context, rows *sql.Rows) ([]core.Record, error) {
	records := []core.Record{}
	for rows.Next() {
		rec, err := scanRecord(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
