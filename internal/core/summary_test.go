package core

import "testing"

func sumRec(cat string, cents int64) Record {
	return Record{
		Owner:      "alice",
		Kind:       KindExpense,
		Category:   cat,
		Amount:     Money{Cents: cents},
		OccurredAt: NewDate(2024, 1, 1),
	}
}

func TestAggregateFirstSeenOrder(t *testing.T) {
	records := []Record{
		sumRec("A", 100),
		sumRec("B", 100),
		sumRec("A", 200),
	}
	got := Aggregate(records)
	if got.Total.Cents != 400 {
		t.Fatalf("expected total 400, got %d", got.Total.Cents)
	}
	want := []Bucket{
		{Category: "A", Total: Money{Cents: 300}},
		{Category: "B", Total: Money{Cents: 100}},
	}
	if len(got.Buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(got.Buckets))
	}
	for i, b := range want {
		if got.Buckets[i] != b {
			t.Fatalf("bucket %d: expected %+v, got %+v", i, b, got.Buckets[i])
		}
	}
}

func TestAggregateCaseSensitiveCategories(t *testing.T) {
	records := []Record{
		sumRec("Spesa", 100),
		sumRec("spesa", 50),
	}
	got := Aggregate(records)
	if len(got.Buckets) != 2 {
		t.Fatalf("case-differing categories must stay separate, got %d buckets", len(got.Buckets))
	}
	if got.Buckets[0].Category != "Spesa" || got.Buckets[1].Category != "spesa" {
		t.Fatalf("unexpected bucket order: %+v", got.Buckets)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	got := Aggregate(nil)
	if got.Total.Cents != 0 {
		t.Fatalf("expected zero total, got %d", got.Total.Cents)
	}
	if got.Buckets == nil || len(got.Buckets) != 0 {
		t.Fatalf("expected empty non-nil bucket slice, got %v", got.Buckets)
	}
}

func TestAggregateBucketSumEqualsTotal(t *testing.T) {
	records := []Record{
		sumRec("A", 199),
		sumRec("B", 201),
		sumRec("C", 333),
		sumRec("A", 67),
	}
	got := Aggregate(records)
	var sum int64
	for _, b := range got.Buckets {
		sum += b.Total.Cents
	}
	if sum != got.Total.Cents {
		t.Fatalf("bucket sum %d != total %d", sum, got.Total.Cents)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	records := []Record{
		sumRec("A", 100),
		sumRec("B", 250),
	}
	first := Aggregate(records)
	second := Aggregate(records)
	if first.Total != second.Total || len(first.Buckets) != len(second.Buckets) {
		t.Fatalf("repeated aggregation differs: %+v vs %+v", first, second)
	}
	for i := range first.Buckets {
		if first.Buckets[i] != second.Buckets[i] {
			t.Fatalf("bucket %d differs between runs", i)
		}
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	records := []Record{
		sumRec("A", 100),
		sumRec("B", 250),
	}
	_ = Aggregate(records)
	if records[0].Category != "A" || records[0].Amount.Cents != 100 {
		t.Fatalf("input record changed: %+v", records[0])
	}
	if records[1].Category != "B" || records[1].Amount.Cents != 250 {
		t.Fatalf("input record changed: %+v", records[1])
	}
}

func TestFilterThenAggregate(t *testing.T) {
	// The composed pipeline: window selection feeding aggregation.
	nowRecords := []Record{
		sumRecOn("Affitto", 80000, NewDate(2024, 1, 3)),
		sumRecOn("Spesa", 4500, NewDate(2024, 1, 5)),
		sumRecOn("Affitto", 80000, NewDate(2023, 11, 1)), // outside the week
	}
	filtered := FilterByWindow(nowRecords, NewDate(2024, 1, 8).Time, WindowWeek)
	got := Aggregate(filtered)
	if got.Total.Cents != 84500 {
		t.Fatalf("expected 84500, got %d", got.Total.Cents)
	}
	if len(got.Buckets) != 2 || got.Buckets[0].Category != "Affitto" || got.Buckets[1].Category != "Spesa" {
		t.Fatalf("unexpected buckets: %+v", got.Buckets)
	}
}

func sumRecOn(cat string, cents int64, d Date) Record {
	r := sumRec(cat, cents)
	r.OccurredAt = d
	return r
}
