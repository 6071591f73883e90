package metrics

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/stat"

	"sttbench/internal/category"
)

// Aggregate summarizes the records of one method within one category.
type Aggregate struct {
	Method   string
	Key      category.Key
	Count    int
	Excluded int
	Means    map[string]float64
	// Samples counts the records contributing to each mean. Optional metrics
	// such as vocabulary accuracy may cover fewer records than Count.
	Samples map[string]int
}

// Mean returns the mean of a metric and whether any record defined it.
func (a Aggregate) Mean(name string) (float64, bool) {
	n, ok := a.Samples[name]
	if !ok || n == 0 {
		return 0, false
	}
	return a.Means[name], true
}

type groupKey struct {
	method string
	key    category.Key
}

// AggregateRecords groups records by method and category key and computes
// per-metric means over the non-degenerate records. The result is sorted by
// method and then category. Calling it twice on the same input yields the
// same output.
func AggregateRecords(records []Record) []Aggregate {
	type bucket struct {
		count    int
		excluded int
		values   map[string][]float64
	}
	buckets := make(map[groupKey]*bucket)
	for _, r := range records {
		gk := groupKey{method: r.Method, key: r.Key}
		b := buckets[gk]
		if b == nil {
			b = &bucket{values: make(map[string][]float64)}
			buckets[gk] = b
		}
		if r.Degenerate {
			b.excluded++
			continue
		}
		b.count++
		for name, v := range r.Metrics {
			b.values[name] = append(b.values[name], v)
		}
	}

	out := make([]Aggregate, 0, len(buckets))
	for gk, b := range buckets {
		agg := Aggregate{
			Method:   gk.method,
			Key:      gk.key,
			Count:    b.count,
			Excluded: b.excluded,
			Means:    make(map[string]float64, len(b.values)),
			Samples:  make(map[string]int, len(b.values)),
		}
		for name, values := range b.values {
			agg.Means[name] = stat.Mean(values, nil)
			agg.Samples[name] = len(values)
		}
		out = append(out, agg)
	}
	slices.SortFunc(out, func(a, b Aggregate) int {
		return cmp.Or(cmp.Compare(a.Method, b.Method), category.Compare(a.Key, b.Key))
	})
	return out
}

// Overall folds aggregates of one method into a single summary weighted by
// record count, the way per-method totals are reported.
func Overall(records []Record, method string) Aggregate {
	filtered := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Method != method {
			continue
		}
		r.Key = category.Key{}
		filtered = append(filtered, r)
	}
	aggs := AggregateRecords(filtered)
	if len(aggs) == 0 {
		return Aggregate{Method: method, Means: map[string]float64{}, Samples: map[string]int{}}
	}
	return aggs[0]
}

// Methods lists the distinct methods in records, sorted.
func Methods(records []Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if _, ok := seen[r.Method]; ok {
			continue
		}
		seen[r.Method] = struct{}{}
		out = append(out, r.Method)
	}
	slices.Sort(out)
	return out
}
