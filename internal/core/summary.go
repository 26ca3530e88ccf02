package core

// Bucket is the total for one category.
type Bucket struct {
	Category string
	Total    Money
}

// Summary is the aggregate view of a record set: the grand total plus one
// bucket per distinct category, in first-encountered order. Callers rely on
// that order, so it is part of the contract, not an accident of iteration.
type Summary struct {
	Total   Money
	Buckets []Bucket
}

// Aggregate folds records into a Summary. Categories are compared verbatim,
// case sensitively. The empty input yields a zero total and an empty (not
// nil) bucket slice. Aggregate never mutates its input and is deterministic:
// aggregating the same records again gives the same summary.
func Aggregate(records []Record) Summary {
	order := []string{}
	byCat := map[string]int64{}
	var total int64
	for _, r := range records {
		if _, ok := byCat[r.Category]; !ok {
			order = append(order, r.Category)
		}
		byCat[r.Category] += r.Amount.Cents
		total += r.Amount.Cents
	}
	buckets := make([]Bucket, 0, len(order))
	for _, cat := range order {
		buckets = append(buckets, Bucket{Category: cat, Total: Money{Cents: byCat[cat]}})
	}
	return Summary{Total: Money{Cents: total}, Buckets: buckets}
}
