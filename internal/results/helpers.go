package results

import (
	"database/sql"
	"encoding/json"
	"time"

	"sttbench/internal/category"
	"sttbench/internal/metrics"
)

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableMetric(rec metrics.Record, name string) any {
	if v, ok := rec.Metric(name); ok {
		return v
	}
	return nil
}

func setMetric(dst map[string]float64, name string, value sql.NullFloat64) {
	if value.Valid {
		dst[name] = value.Float64
	}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func categoryModifier(v int) category.Modifier {
	switch category.Modifier(v) {
	case category.ModifierAccent:
		return category.ModifierAccent
	case category.ModifierNoise:
		return category.ModifierNoise
	default:
		return category.ModifierNone
	}
}

func encodeList(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(data)
}

func decodeList(value sql.NullString) []string {
	if !value.Valid || value.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(value.String), &out); err != nil {
		return nil
	}
	return out
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
