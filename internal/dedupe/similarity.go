package dedupe

// Similarity returns a ratio in [0, 1] reflecting how alike two strings
// are: twice the number of matched characters over the combined length,
// with matches taken greedily from the longest common substrings. Equal
// strings score 1, disjoint strings 0.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	matched := matchSize(ra, rb)
	return 2 * float64(matched) / float64(total)
}

type span struct {
	aLo, aHi, bLo, bHi int
}

// matchSize sums the lengths of the matching blocks found by recursively
// taking the longest common substring and matching to its left and right.
func matchSize(a, b []rune) int {
	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		ai, bi, size := longestMatch(a, b, s)
		if size == 0 {
			continue
		}
		matched += size
		queue = append(queue,
			span{s.aLo, ai, s.bLo, bi},
			span{ai + size, s.aHi, bi + size, s.bHi},
		)
	}
	return matched
}

// longestMatch finds the longest run of identical runes within the given
// window of each string.
func longestMatch(a, b []rune, s span) (bestA, bestB, bestSize int) {
	bestA, bestB = s.aLo, s.bLo
	// lengths[j] is the match run length ending at a[i-1], b[j-1].
	lengths := make([]int, s.bHi-s.bLo+1)
	for i := s.aLo; i < s.aHi; i++ {
		prev := 0
		for j := s.bLo; j < s.bHi; j++ {
			cur := lengths[j-s.bLo+1]
			if a[i] == b[j] {
				run := prev + 1
				lengths[j-s.bLo+1] = run
				if run > bestSize {
					bestSize = run
					bestA = i - run + 1
					bestB = j - run + 1
				}
			} else {
				lengths[j-s.bLo+1] = 0
			}
			prev = cur
		}
	}
	return bestA, bestB, bestSize
}
