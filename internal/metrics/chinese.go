package metrics

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

var chineseDigits = map[rune]int64{
	'零': 0, '〇': 0,
	'一': 1, '二': 2, '兩': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

var chineseUnits = map[rune]int64{
	'十': 10, '百': 100, '千': 1000,
}

var chineseSections = map[rune]int64{
	'萬': 10_000, '万': 10_000, '億': 100_000_000, '亿': 100_000_000,
}

// parseChineseNumber converts a numeral run such as "三千五百", "一二三",
// "2萬" or "三點五" into its value. Bare single characters that are common in
// ordinary words (一, 兩, 十 and similar) are still accepted; callers compare
// both sides with the same rules.
func parseChineseNumber(s string) (float64, bool) {
	intPart, fracPart, hasPoint := cutAny(s, "點点.")
	whole, ok := parseChineseInteger(intPart)
	if !ok {
		return 0, false
	}
	if !hasPoint {
		return float64(whole), true
	}
	var digits strings.Builder
	for _, r := range fracPart {
		if d, ok := chineseDigits[r]; ok {
			digits.WriteString(strconv.FormatInt(d, 10))
			continue
		}
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		return 0, false
	}
	if digits.Len() == 0 {
		return float64(whole), true
	}
	value, err := strconv.ParseFloat(strconv.FormatInt(whole, 10)+"."+digits.String(), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func parseChineseInteger(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	runes := []rune(s)
	if isDigitSequence(runes) {
		var b strings.Builder
		for _, r := range runes {
			if d, ok := chineseDigits[r]; ok {
				b.WriteString(strconv.FormatInt(d, 10))
			} else {
				b.WriteRune(r)
			}
		}
		n, err := strconv.ParseInt(b.String(), 10, 64)
		return n, err == nil
	}

	var total, section, pending int64
	havePending := false
	for i, r := range runes {
		switch {
		case r >= '0' && r <= '9':
			pending = pending*10 + int64(r-'0')
			havePending = true
		case chineseDigits[r] != 0 || r == '零' || r == '〇':
			if r == '零' || r == '〇' {
				continue
			}
			pending = chineseDigits[r]
			havePending = true
		case chineseUnits[r] != 0:
			if !havePending {
				// "十五" reads as fifteen.
				if i != 0 && section != 0 {
					return 0, false
				}
				pending = 1
			}
			section += pending * chineseUnits[r]
			pending, havePending = 0, false
		case chineseSections[r] != 0:
			section += pending
			if section == 0 {
				return 0, false
			}
			total += section * chineseSections[r]
			section, pending, havePending = 0, 0, false
		default:
			return 0, false
		}
	}
	return total + section + pending, true
}

// isDigitSequence reports whether runes contain only digit characters, which
// reads positionally ("一二三" is 123).
func isDigitSequence(runes []rune) bool {
	if len(runes) < 2 {
		return false
	}
	for _, r := range runes {
		if _, ok := chineseDigits[r]; ok {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

func cutAny(s, seps string) (before, after string, found bool) {
	if i := strings.IndexAny(s, seps); i >= 0 {
		_, size := utf8.DecodeRuneInString(s[i:])
		return s[:i], s[i+size:], true
	}
	return s, "", false
}
