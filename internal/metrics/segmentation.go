package metrics

import "unicode"

// SegmentationAccuracy reports the share of reference cue boundaries that the
// hypothesis keeps as whitespace or punctuation.
//
// Each reference segment is mapped onto the hypothesis by counting content
// runes (anything that is neither space nor punctuation). A boundary counts
// as kept when the rune right after the mapped span is a separator. The
// second value is false when the reference has fewer than two segments, since
// there is no boundary to check.
func SegmentationAccuracy(segments []string, hypothesis string) (float64, bool) {
	boundaries := len(segments) - 1
	if boundaries <= 0 {
		return 0, false
	}
	hyp := []rune(hypothesis)
	pos, kept := 0, 0
	for _, segment := range segments[:boundaries] {
		want := contentRunes(segment)
		if want == 0 {
			continue
		}
		end, found := -1, 0
		for i := pos; i < len(hyp); i++ {
			if !isSeparator(hyp[i]) {
				found++
				if found == want {
					end = i
					break
				}
			}
		}
		if end < 0 {
			pos = len(hyp)
			continue
		}
		next := end + 1
		if next < len(hyp) && isSeparator(hyp[next]) {
			kept++
			next++
		}
		pos = next
	}
	return float64(kept) / float64(boundaries), true
}

func contentRunes(text string) int {
	n := 0
	for _, r := range text {
		if !isSeparator(r) {
			n++
		}
	}
	return n
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}
