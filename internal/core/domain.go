package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

type (
	// Kind distinguishes the two record flavors. Income and expenses share
	// one Record shape; Kind is the only thing that tells them apart.
	Kind string

	// Date is a calendar day. The time of day is always midnight UTC;
	// construction goes through NewDate or ParseDate.
	Date struct {
		time.Time
	}

	// Money is an amount in euro cents.
	Money struct {
		Cents int64
	}

	// Record is a single financial event owned by one user. Category is
	// free text and case sensitive; it is used verbatim as the grouping
	// key when summarizing. For income the UI calls it "source", but it
	// is the same field.
	Record struct {
		ID          string
		Owner       string
		Kind        Kind
		Category    string
		Description string
		Amount      Money
		OccurredAt  Date
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidKind   = errors.New("invalid record kind")
	ErrEmptyOwner    = errors.New("empty owner")
	ErrEmptyCategory = errors.New("empty category")
)

// ParseKind maps a user-supplied string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return KindIncome, nil
	case "expense":
		return KindExpense, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// NewDate builds a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD) at day granularity.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO renders the date as YYYY-MM-DD, the storage and wire format.
func (d Date) ISO() string {
	return d.Time.Format("2006-01-02")
}

// Validate rejects the zero date. Out-of-range components cannot occur
// once a value has been through NewDate or ParseDate.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the invariants every stored record satisfies. The
// description is optional; everything else is required.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Owner) == "" {
		return ErrEmptyOwner
	}
	if !r.Kind.IsValid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if len(r.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.OccurredAt.Validate(); err != nil {
		return err
	}
	return nil
}
