package google

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"bilancio/internal/core"
)

// recordsFromValues converts a sheet values matrix (A:F = id, owner, date,
// category, description, amount) into the owner's records, sorted by
// occurrence date with the original row order breaking ties. Rows are
// parsed leniently: an unparsable date collapses to zero and a
// non-numeric amount to zero cents, mirroring how database reads treat
// corrupt rows. Rows without an id (headers, cleared rows) are skipped.
func recordsFromValues(ctx context.Context, values [][]interface{}, owner string, kind core.Kind) []core.Record {
	records := []core.Record{}
	for _, row := range values {
		cols := toStrings(row)
		rec, ok := parseRecordRow(cols, kind)
		if !ok {
			continue
		}
		if rec.Owner != owner {
			continue
		}
		if rec.OccurredAt.IsZero() {
			slog.WarnContext(ctx, "Sheet row has unparsable date, keeping with zero date",
				"id", rec.ID, "date", safeGet(cols, 2))
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].OccurredAt.Before(records[j].OccurredAt.Time)
	})

	return records
}

// parseRecordRow reads one sheet row. ok is false only for rows that are
// not records at all: blank ids, or the header row.
func parseRecordRow(cols []string, kind core.Kind) (core.Record, bool) {
	id := safeGet(cols, 0)
	if id == "" || strings.EqualFold(id, "id") {
		return core.Record{}, false
	}

	amount := int64(0)
	if cents, ok := parseEurosToCents(safeGet(cols, 5)); ok {
		amount = cents
	}

	occurredAt, err := core.ParseDate(safeGet(cols, 2))
	if err != nil {
		occurredAt = core.Date{}
	}

	return core.Record{
		ID:          id,
		Owner:       safeGet(cols, 1),
		Kind:        kind,
		Category:    safeGet(cols, 3),
		Description: safeGet(cols, 4),
		Amount:      core.Money{Cents: amount},
		OccurredAt:  occurredAt,
	}, true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func parseEurosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// Normalize decimal comma
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	cents := int64((f * 100.0) + 0.5)
	return cents, true
}
