package metrics

// EditDistance returns the Levenshtein distance between two token sequences
// with unit costs for substitution, insertion, and deletion.
func EditDistance(ref, hyp []string) int {
	if len(ref) == 0 {
		return len(hyp)
	}
	if len(hyp) == 0 {
		return len(ref)
	}
	prev := make([]int, len(hyp)+1)
	curr := make([]int, len(hyp)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ref); i++ {
		curr[0] = i
		for j := 1; j <= len(hyp); j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(hyp)]
}
