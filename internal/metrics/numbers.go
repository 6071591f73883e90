package metrics

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var (
	digitPattern      = regexp.MustCompile(`\d+(?:\.\d+)?`)
	magnitudePattern  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([kmb])\b`)
	chineseNumPattern = regexp.MustCompile(`[零〇一二兩两三四五六七八九十百千萬万億亿點点0-9.]+`)
)

// ExtractNumbers returns the numbers mentioned in text as canonical decimal
// strings ("1000", "2.5"). Character-mode text also recognizes Chinese
// numerals; word-mode text expands K/M/B magnitude suffixes.
func ExtractNumbers(text string, mode TokenMode) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	text = width.Fold.String(text)
	if mode == Characters {
		return extractChineseNumbers(text)
	}
	text = magnitudePattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := magnitudePattern.FindStringSubmatch(match)
		value, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return match
		}
		switch strings.ToLower(parts[2]) {
		case "k":
			value *= 1e3
		case "m":
			value *= 1e6
		case "b":
			value *= 1e9
		}
		return canonicalNumber(value)
	})
	var out []string
	for _, match := range digitPattern.FindAllString(text, -1) {
		value, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		out = append(out, canonicalNumber(value))
	}
	return out
}

func extractChineseNumbers(text string) []string {
	var out []string
	for _, candidate := range chineseNumPattern.FindAllString(text, -1) {
		value, ok := parseChineseNumber(candidate)
		if !ok {
			continue
		}
		out = append(out, canonicalNumber(value))
	}
	return out
}

// NumberAccuracy is the multiset overlap of predicted numbers with reference
// numbers, divided by the reference count. With no reference numbers the
// result is 1 when the prediction has none either and 0 otherwise.
func NumberAccuracy(groundTruth, predicted []string) float64 {
	if len(groundTruth) == 0 {
		if len(predicted) == 0 {
			return 1
		}
		return 0
	}
	counts := make(map[string]int, len(predicted))
	for _, n := range predicted {
		counts[n]++
	}
	matched := 0
	for _, n := range groundTruth {
		if counts[n] > 0 {
			counts[n]--
			matched++
		}
	}
	return float64(matched) / float64(len(groundTruth))
}

func canonicalNumber(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
