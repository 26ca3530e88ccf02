package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in  string
		out Date
		ok  bool
	}{
		{"2024-01-08", NewDate(2024, 1, 8), true},
		{" 2024-01-08 ", NewDate(2024, 1, 8), true},
		{"2024-1-8", Date{}, false},
		{"08/01/2024", Date{}, false},
		{"not-a-date", Date{}, false},
		{"", Date{}, false},
	}
	for i, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.out.Time) {
				t.Fatalf("case %d expected %v, got %v (err=%v)", i, tc.out, got, err)
			}
			continue
		}
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("case %d expected ErrInvalidDate, got %v", i, err)
		}
	}
}

func TestDateISO(t *testing.T) {
	if got := NewDate(2024, 3, 7).ISO(); got != "2024-03-07" {
		t.Fatalf("expected 2024-03-07, got %s", got)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		in  string
		out Kind
		ok  bool
	}{
		{"income", KindIncome, true},
		{"expense", KindExpense, true},
		{" Income ", KindIncome, true},
		{"EXPENSE", KindExpense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("case %d expected %q, got %q (err=%v)", i, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidKind) {
			t.Fatalf("case %d expected ErrInvalidKind, got %v", i, err)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	good := Record{
		Owner:      "alice",
		Kind:       KindExpense,
		Category:   "Spesa",
		Amount:     Money{Cents: 100},
		OccurredAt: NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		r    Record
		want error
	}{
		{Record{Owner: "", Kind: KindExpense, Category: "c", Amount: Money{Cents: 1}, OccurredAt: NewDate(2025, 1, 1)}, ErrEmptyOwner},
		{Record{Owner: "a", Kind: "transfer", Category: "c", Amount: Money{Cents: 1}, OccurredAt: NewDate(2025, 1, 1)}, ErrInvalidKind},
		{Record{Owner: "a", Kind: KindIncome, Category: "  ", Amount: Money{Cents: 1}, OccurredAt: NewDate(2025, 1, 1)}, ErrEmptyCategory},
		{Record{Owner: "a", Kind: KindIncome, Category: "c", Amount: Money{Cents: 0}, OccurredAt: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{Record{Owner: "a", Kind: KindIncome, Category: "c", Amount: Money{Cents: 1}, OccurredAt: Date{}}, nil}, // zero date, message error
	}
	for i, tc := range bads {
		err := tc.r.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestRecordValidateDescriptionOptional(t *testing.T) {
	r := Record{
		Owner:      "alice",
		Kind:       KindIncome,
		Category:   "Stipendio",
		Amount:     Money{Cents: 150000},
		OccurredAt: NewDate(2025, 1, 1),
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("empty description should be allowed, got %v", err)
	}
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}
	r.Description = string(long)
	if err := r.Validate(); err == nil {
		t.Fatalf("expected error for over-long description")
	}
}
