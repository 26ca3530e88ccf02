package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"
)

// Store is an in-memory backend for local development and tests. Seed
// category lists give the forms something to suggest before any record
// exists.
type Store struct {
	mu           sync.Mutex
	incomeCats   []string
	expenseCats  []string
	records      []core.Record
	appendsTotal int
}

var (
	_ ports.RecordWriter   = (*Store)(nil)
	_ ports.RecordLister   = (*Store)(nil)
	_ ports.RecordDeleter  = (*Store)(nil)
	_ ports.CategoryReader = (*Store)(nil)
)

func New(incomeCats, expenseCats []string) *Store {
	return &Store{incomeCats: dedupe(incomeCats), expenseCats: dedupe(expenseCats)}
}

func NewFromFiles(base string) *Store {
	income := readLines(filepath.Join(base, "seed_income_categories.txt"))
	expense := readLines(filepath.Join(base, "seed_expense_categories.txt"))
	if len(income) == 0 {
		income = []string{"Stipendio", "Rimborso", "Altro"}
	}
	if len(expense) == 0 {
		expense = []string{"Casa", "Spesa", "Trasporti"}
	}
	return New(income, expense)
}

// Append stores the record and returns a synthetic row reference. Records
// arriving without an id adopt the reference as their id so they stay
// addressable for deletion.
func (s *Store) Append(_ context.Context, rec core.Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendsTotal++
	ref := fmt.Sprintf("mem:%d", s.appendsTotal)
	if rec.ID == "" {
		rec.ID = ref
	}
	s.records = append(s.records, rec)
	return ref, nil
}

// ListRecords returns the owner's records of the given kind, oldest first.
func (s *Store) ListRecords(_ context.Context, owner string, kind core.Kind) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Record{}
	for _, rec := range s.records {
		if rec.Owner != owner || rec.Kind != kind {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Time.Before(out[j].OccurredAt.Time)
	})
	return out, nil
}

// DeleteRecord removes the record with the given id. An empty owner matches
// any owner. Deleting a record that is not there is not an error.
func (s *Store) DeleteRecord(_ context.Context, owner string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.records {
		if rec.ID != id {
			continue
		}
		if owner != "" && rec.Owner != owner {
			continue
		}
		s.records = append(s.records[:i], s.records[i+1:]...)
		return nil
	}
	return nil
}

// ListCategories returns the seed categories for the kind followed by any
// category the owner has actually used, in first-use order.
func (s *Store) ListCategories(_ context.Context, owner string, kind core.Kind) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeds := s.expenseCats
	if kind == core.KindIncome {
		seeds = s.incomeCats
	}

	out := append([]string(nil), seeds...)
	seen := map[string]struct{}{}
	for _, c := range out {
		seen[c] = struct{}{}
	}
	for _, rec := range s.records {
		if rec.Owner != owner || rec.Kind != kind {
			continue
		}
		if _, ok := seen[rec.Category]; ok {
			continue
		}
		seen[rec.Category] = struct{}{}
		out = append(out, rec.Category)
	}
	return out, nil
}

// readLines loads a seed file, one category per line. Blank lines and
// #-comments are skipped; a missing file yields nil.
func readLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats while preserving input order, so seed
// files control suggestion order.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
