package allocation

// Tier boundaries and caps for the phone-repetition distribution.
const (
	smallOrderMax  = 10
	mediumOrderMax = 20
	largeOrderMax  = 40

	mediumPairCap = 10
	largePairCap  = 20

	minPerPattern = 4
)

// distributeByPattern applies the phone repetition rules to an ordered
// candidate list and returns at most n leads. Candidates are bucketed by
// phone fingerprint; leads whose fingerprint fails classifyPattern are
// dropped, leads without a fingerprint form a backfill bucket used only
// when the patterned buckets cannot satisfy n.
//
// Tiers by requested count:
//
//	n <= 10: at most one lead per fingerprint, then backfill
//	n <= 20: round-robin across fingerprints, at most 10 pairs total
//	n <= 40: round-robin across fingerprints, at most 20 pairs total
//	n  > 40: round-robin capped at max(4, ceil(n/patterns)) per fingerprint
//
// A "pair" is the second, fourth, ... lead taken from the same fingerprint.
func distributeByPattern(leads []Lead, n int) []Lead {
	if len(leads) == 0 || n <= 0 {
		return nil
	}

	groups := make(map[string][]Lead)
	var patterns []string // first-seen order
	var noPattern []Lead

	for _, lead := range leads {
		fp, ok := fingerprint(lead.Phone)
		if !ok {
			noPattern = append(noPattern, lead)
			continue
		}
		if classifyPattern(fp) != verdictAccept {
			continue
		}
		if _, seen := groups[fp]; !seen {
			patterns = append(patterns, fp)
		}
		groups[fp] = append(groups[fp], lead)
	}

	var selected []Lead
	switch {
	case n <= smallOrderMax:
		for _, fp := range patterns {
			if len(selected) >= n {
				break
			}
			selected = append(selected, groups[fp][0])
		}
	case n <= mediumOrderMax:
		selected = roundRobinWithPairCap(patterns, groups, n, mediumPairCap)
	case n <= largeOrderMax:
		selected = roundRobinWithPairCap(patterns, groups, n, largePairCap)
	default:
		selected = roundRobinPerPatternCap(patterns, groups, n)
	}

	for i := 0; len(selected) < n && i < len(noPattern); i++ {
		selected = append(selected, noPattern[i])
	}
	if len(selected) > n {
		selected = selected[:n]
	}
	return selected
}

// roundRobinWithPairCap cycles through the fingerprints taking one lead per
// pattern per round. Once pairCap even-numbered takes have been made across
// all patterns, patterns that would form another pair are skipped; the loop
// stops when a full round adds nothing.
func roundRobinWithPairCap(patterns []string, groups map[string][]Lead, n, pairCap int) []Lead {
	var selected []Lead
	taken := make(map[string]int, len(patterns))
	totalPairs := 0

	for len(selected) < n {
		added := 0
		for _, fp := range patterns {
			if len(selected) >= n {
				break
			}
			count := taken[fp]
			if count >= len(groups[fp]) {
				continue
			}
			formsPair := (count+1)%2 == 0
			if formsPair && totalPairs >= pairCap {
				continue
			}
			selected = append(selected, groups[fp][count])
			taken[fp] = count + 1
			added++
			if formsPair {
				totalPairs++
			}
		}
		if added == 0 {
			break
		}
	}
	return selected
}

// roundRobinPerPatternCap spreads a large order across fingerprints, taking
// at most max(minPerPattern, ceil(n/patterns)) leads from any one of them.
func roundRobinPerPatternCap(patterns []string, groups map[string][]Lead, n int) []Lead {
	if len(patterns) == 0 {
		return nil
	}
	maxPerPattern := (n + len(patterns) - 1) / len(patterns)
	if maxPerPattern < minPerPattern {
		maxPerPattern = minPerPattern
	}

	var selected []Lead
	taken := make(map[string]int, len(patterns))

	for round := 0; len(selected) < n && round < maxPerPattern; round++ {
		added := 0
		for _, fp := range patterns {
			if len(selected) >= n {
				break
			}
			count := taken[fp]
			if count < len(groups[fp]) && count <= round {
				selected = append(selected, groups[fp][count])
				taken[fp] = count + 1
				added++
			}
		}
		if added == 0 {
			break
		}
	}
	return selected
}
