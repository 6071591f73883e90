// Package report turns scored records and latency samples into tables.
//
// Aggregates are always recomputed from the records handed in; nothing here
// reads stored means.
package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"sttbench/internal/metrics"
)

// NotAvailable is printed for metrics no record in a group defines.
const NotAvailable = "N/A"

// overallLabel names the per-method total row.
const overallLabel = "Overall"

type metricColumn struct {
	name   string
	header string
}

var baseColumns = []metricColumn{
	{metrics.MetricErrorRate, "Error rate"},
	{metrics.MetricRecognitionRate, "Recognition rate"},
	{metrics.MetricSentenceError, "Sentence error"},
}

// MethodTables builds one aggregate table per method, each closed by an
// Overall row. Optional columns appear only when some record defines them.
func MethodTables(records []metrics.Record) []Table {
	aggregates := metrics.AggregateRecords(records)
	columns := slices.Clone(baseColumns)
	for _, col := range optionalColumns(aggregates) {
		if slices.ContainsFunc(aggregates, func(a metrics.Aggregate) bool { _, ok := a.Mean(col.name); return ok }) {
			columns = append(columns, col)
		}
	}

	headers := []string{"Category", "Count", "Excluded"}
	aligns := []Alignment{AlignLeft, AlignRight, AlignRight}
	for _, col := range columns {
		headers = append(headers, col.header)
		aligns = append(aligns, AlignRight)
	}

	byMethod := make(map[string][]metrics.Aggregate)
	for _, agg := range aggregates {
		byMethod[agg.Method] = append(byMethod[agg.Method], agg)
	}

	var tables []Table
	for _, method := range slices.Sorted(maps.Keys(byMethod)) {
		t := Table{Title: method, Headers: headers, Aligns: aligns}
		for _, agg := range byMethod[method] {
			t.Rows = append(t.Rows, aggregateRow(agg.Key.String(), agg, columns))
		}
		t.Rows = append(t.Rows, aggregateRow(overallLabel, metrics.Overall(records, method), columns))
		tables = append(tables, t)
	}
	return tables
}

// optionalColumns lists number accuracy, one column per vocabulary seen in
// aggregates (unnamed first, then by name), and segmentation accuracy.
func optionalColumns(aggregates []metrics.Aggregate) []metricColumn {
	columns := []metricColumn{{metrics.MetricNumberAccuracy, "Number accuracy"}}
	vocabularies := make(map[string]struct{})
	for _, agg := range aggregates {
		for name := range agg.Samples {
			if vocab, ok := metrics.VocabularyName(name); ok {
				vocabularies[vocab] = struct{}{}
			}
		}
	}
	for _, vocab := range slices.Sorted(maps.Keys(vocabularies)) {
		header := "Vocabulary accuracy"
		if vocab != "" {
			header += " (" + vocab + ")"
		}
		columns = append(columns, metricColumn{metrics.VocabularyMetric(vocab), header})
	}
	return append(columns, metricColumn{metrics.MetricSegmentationAccuracy, "Segmentation accuracy"})
}

func aggregateRow(label string, agg metrics.Aggregate, columns []metricColumn) []string {
	row := []string{label, strconv.Itoa(agg.Count), strconv.Itoa(agg.Excluded)}
	for _, col := range columns {
		if v, ok := agg.Mean(col.name); ok {
			row = append(row, Percent(v))
		} else {
			row = append(row, NotAvailable)
		}
	}
	return row
}

// SampleTable lists every record with both texts so single results can be
// inspected. Excluded records show N/A rates.
func SampleTable(records []metrics.Record) Table {
	t := Table{
		Title:   "Samples",
		Headers: []string{"Sample", "Method", "Category", "Error rate", "Recognition rate", "Ground truth", "Hypothesis"},
		Aligns:  []Alignment{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignLeft, AlignLeft},
	}
	for _, rec := range records {
		row := []string{rec.SampleID, rec.Method, rec.Key.String()}
		for _, name := range []string{metrics.MetricErrorRate, metrics.MetricRecognitionRate} {
			if v, ok := rec.Metric(name); ok {
				row = append(row, Percent(v))
			} else {
				row = append(row, NotAvailable)
			}
		}
		row = append(row, rec.GroundTruth, rec.Hypothesis)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Percent renders a rate as a percentage with two decimals.
func Percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

// LatencyTable summarizes call latencies per provider.
func LatencyTable(latencies map[string][]time.Duration) Table {
	t := Table{
		Title:   "Latency",
		Headers: []string{"Provider", "Calls", "Mean (s)", "Median (s)", "Std dev (s)", "P95 (s)", "Max (s)"},
		Aligns:  []Alignment{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight},
	}
	for _, provider := range slices.Sorted(maps.Keys(latencies)) {
		s := metrics.SummarizeLatencies(latencies[provider])
		t.Rows = append(t.Rows, []string{
			provider,
			strconv.Itoa(s.Count),
			seconds(s.Mean),
			seconds(s.Median),
			seconds(s.StdDev),
			seconds(s.P95),
			seconds(s.Max),
		})
	}
	return t
}

// StressTable summarizes stress stages in the order given.
func StressTable(provider string, stages []metrics.StageSummary) Table {
	t := Table{
		Title:   "Stress: " + provider,
		Headers: []string{"Concurrency", "Calls", "Success rate", "Mean (s)", "P95 (s)", "Max (s)", "Mean RTF", "P95 RTF"},
		Aligns:  []Alignment{AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight},
	}
	for _, s := range stages {
		row := []string{strconv.Itoa(s.Concurrency), strconv.Itoa(s.Calls), Percent(s.SuccessRate())}
		if s.Latency.Count > 0 {
			row = append(row, seconds(s.Latency.Mean), seconds(s.Latency.P95), seconds(s.Latency.Max))
		} else {
			row = append(row, NotAvailable, NotAvailable, NotAvailable)
		}
		if s.RTFCount > 0 {
			row = append(row, ratio(s.MeanRTF), ratio(s.P95RTF))
		} else {
			row = append(row, NotAvailable, NotAvailable)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// Write renders tables to w. Text and Markdown output get a heading per
// table; CSV output separates tables with a blank line.
func Write(w io.Writer, format Format, tables ...Table) error {
	for i, t := range tables {
		if len(t.Rows) == 0 {
			continue
		}
		var b strings.Builder
		if i > 0 {
			b.WriteString("\n")
		}
		switch format {
		case FormatMarkdown:
			fmt.Fprintf(&b, "## %s\n\n", t.Title)
		case FormatCSV:
			fmt.Fprintf(&b, "# %s\n", t.Title)
		default:
			fmt.Fprintf(&b, "%s\n", t.Title)
		}
		b.WriteString(t.Render(format))
		b.WriteString("\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
