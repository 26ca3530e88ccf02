package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors records into one spreadsheet with a tab per record kind.
// Rows are laid out as A:F = id, owner, date (ISO), category, description,
// amount in euros. The id column makes rows addressable for deletion.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	incomeSheet   string
	expensesSheet string

	// Next-row cache per sheet tab. Appending needs the current row count;
	// caching it saves one read per append on busy days.
	mu                 sync.Mutex
	cachedRows         map[string]rowCache
	cacheValidDuration time.Duration
}

type rowCache struct {
	count     int
	expiresAt time.Time
}

var (
	_ ports.RecordWriter   = (*Client)(nil)
	_ ports.RecordLister   = (*Client)(nil)
	_ ports.RecordDeleter  = (*Client)(nil)
	_ ports.CategoryReader = (*Client)(nil)
)

// envTrim reads an environment variable with surrounding space removed, or
// fallback when unset.
func envTrim(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// NewFromEnv builds the client from the environment. GOOGLE_SPREADSHEET_ID
// is required; credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS. Tab names
// default to "Income" and "Expenses" and get the current year prefixed, so
// each January starts fresh tabs without redeploying.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := envTrim("GOOGLE_SPREADSHEET_ID", "")
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	year := time.Now().Year()
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		incomeSheet:        yearPrefixedName(envTrim("GOOGLE_INCOME_SHEET_NAME", "Income"), year),
		expensesSheet:      yearPrefixedName(envTrim("GOOGLE_EXPENSES_SHEET_NAME", "Expenses"), year),
		cachedRows:         map[string]rowCache{},
		cacheValidDuration: 30 * time.Second,
	}, nil
}

// newSheetsService authenticates with whichever service account source the
// environment provides. GOOGLE_APPLICATION_CREDENTIALS, the conventional
// gcloud variable, is honored last.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inline := envTrim("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	file := envTrim("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	if inline == "" && file == "" {
		file = envTrim("GOOGLE_APPLICATION_CREDENTIALS", "")
	}

	var creds []byte
	switch {
	case inline != "":
		creds = []byte(inline)
	case file != "":
		var err error
		if creds, err = os.ReadFile(file); err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets client ready")
	return svc, nil
}

func (c *Client) sheetFor(kind core.Kind) string {
	if kind == core.KindIncome {
		return c.incomeSheet
	}
	return c.expensesSheet
}

// nextRow returns the 1-based row index to write to, using the cached row
// count when still fresh.
func (c *Client) nextRow(ctx context.Context, sheetName string) (int, error) {
	c.mu.Lock()
	cached, ok := c.cachedRows[sheetName]
	c.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.count + 1, nil
	}

	rng := fmt.Sprintf("%s!A:A", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get sheet dimensions for %s: %w", sheetName, err)
	}

	count := len(resp.Values)
	c.mu.Lock()
	c.cachedRows[sheetName] = rowCache{count: count, expiresAt: time.Now().Add(c.cacheValidDuration)}
	c.mu.Unlock()

	return count + 1, nil
}

func (c *Client) bumpCachedRows(sheetName string) {
	c.mu.Lock()
	if cached, ok := c.cachedRows[sheetName]; ok {
		cached.count++
		c.cachedRows[sheetName] = cached
	}
	c.mu.Unlock()
}

func (c *Client) invalidateRowCache() {
	c.mu.Lock()
	c.cachedRows = map[string]rowCache{}
	c.mu.Unlock()
}

// Append implements ports.RecordWriter
func (c *Client) Append(ctx context.Context, rec core.Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := c.sheetFor(rec.Kind)
	row, err := c.nextRow(ctx, sheetName)
	if err != nil {
		return "", err
	}

	// Convert cents to decimal euros; USER_ENTERED turns it into a number cell
	euros := float64(rec.Amount.Cents) / 100.0

	dataRange := fmt.Sprintf("%s!A%d:F%d", sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		rec.ID, rec.Owner, rec.OccurredAt.ISO(), rec.Category, rec.Description, euros,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	c.bumpCachedRows(sheetName)

	return dataRange, nil
}

// ListRecords implements ports.RecordLister
func (c *Client) ListRecords(ctx context.Context, owner string, kind core.Kind) ([]core.Record, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	sheetName := c.sheetFor(kind)
	rng := fmt.Sprintf("%s!A:F", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	return recordsFromValues(ctx, resp.Values, owner, kind), nil
}

// ListCategories implements ports.CategoryReader
func (c *Client) ListCategories(ctx context.Context, owner string, kind core.Kind) ([]string, error) {
	records, err := c.ListRecords(ctx, owner, kind)
	if err != nil {
		return nil, err
	}

	// First occurrence wins so the sheet order carries through.
	seen := map[string]struct{}{}
	uniq := []string{}
	for _, rec := range records {
		if _, ok := seen[rec.Category]; ok {
			continue
		}
		seen[rec.Category] = struct{}{}
		uniq = append(uniq, rec.Category)
	}
	return uniq, nil
}

// DeleteRecord implements ports.RecordDeleter. The row is located by record
// id and cleared rather than removed, so other row references stay stable.
// A record that never reached the sheet is treated as already deleted;
// failing here would requeue the delete message forever.
func (c *Client) DeleteRecord(ctx context.Context, owner string, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	for _, sheetName := range []string{c.incomeSheet, c.expensesSheet} {
		rng := fmt.Sprintf("%s!A:B", sheetName)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s: %w", rng, err)
		}
		for i, row := range resp.Values {
			cols := toStrings(row)
			if safeGet(cols, 0) != id {
				continue
			}
			if owner != "" && safeGet(cols, 1) != owner {
				continue
			}
			clearRange := fmt.Sprintf("%s!A%d:F%d", sheetName, i+1, i+1)
			if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
				return fmt.Errorf("clear %s: %w", clearRange, err)
			}
			c.invalidateRowCache()
			slog.InfoContext(ctx, "Cleared record row in sheet", "id", id, "range", clearRange)
			return nil
		}
	}

	slog.WarnContext(ctx, "Record not present in sheet, nothing to delete", "id", id)
	return nil
}

// Title returns the spreadsheet title, used by setup tooling to verify
// access.
func (c *Client) Title(ctx context.Context) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet: %w", err)
	}
	if ss.Properties == nil {
		return "", nil
	}
	return ss.Properties.Title, nil
}

// yearPrefixedName turns "Expenses" into "2025 Expenses". A base that
// already starts with a "<year> " prefix is returned as is.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	if prefix, _, ok := strings.Cut(base, " "); ok && len(prefix) == 4 {
		if y, err := strconv.Atoi(prefix); err == nil && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
