//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"bilancio/internal/core"

	"github.com/google/uuid"
)

// Integration tests need a real spreadsheet and service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_RecordRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") == "" &&
		os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}

	now := time.Now()
	rec := core.Record{
		ID:          uuid.NewString(),
		Owner:       "integration",
		Kind:        core.KindExpense,
		Category:    "Test",
		Description: "round trip probe",
		Amount:      core.Money{Cents: 1234},
		OccurredAt:  core.NewDate(now.Year(), int(now.Month()), now.Day()),
	}

	t.Run("Append", func(t *testing.T) {
		ref, err := client.Append(ctx, rec)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if ref == "" {
			t.Error("Append() returned an empty row reference")
		}
		t.Logf("appended as %s", ref)
	})

	t.Run("ListRecords", func(t *testing.T) {
		records, err := client.ListRecords(ctx, rec.Owner, rec.Kind)
		if err != nil {
			t.Fatalf("ListRecords() error = %v", err)
		}
		found := false
		for _, r := range records {
			if r.ID == rec.ID {
				found = true
				if r.Amount.Cents != rec.Amount.Cents {
					t.Errorf("amount = %d, want %d", r.Amount.Cents, rec.Amount.Cents)
				}
				if r.Category != rec.Category {
					t.Errorf("category = %q, want %q", r.Category, rec.Category)
				}
			}
		}
		if !found {
			t.Errorf("appended record %s not in ListRecords result (%d rows)", rec.ID, len(records))
		}
	})

	t.Run("ListCategories", func(t *testing.T) {
		categories, err := client.ListCategories(ctx, rec.Owner, rec.Kind)
		if err != nil {
			t.Fatalf("ListCategories() error = %v", err)
		}
		seen := make(map[string]bool)
		found := false
		for _, cat := range categories {
			if seen[cat] {
				t.Errorf("duplicate category %q", cat)
			}
			seen[cat] = true
			if cat == rec.Category {
				found = true
			}
		}
		if !found {
			t.Errorf("category %q missing from %v", rec.Category, categories)
		}
	})

	t.Run("DeleteRecord", func(t *testing.T) {
		if err := client.DeleteRecord(ctx, rec.Owner, rec.ID); err != nil {
			t.Fatalf("DeleteRecord() error = %v", err)
		}
		records, err := client.ListRecords(ctx, rec.Owner, rec.Kind)
		if err != nil {
			t.Fatalf("ListRecords() after delete error = %v", err)
		}
		for _, r := range records {
			if r.ID == rec.ID {
				t.Errorf("record %s still present after delete", rec.ID)
			}
		}
	})
}
