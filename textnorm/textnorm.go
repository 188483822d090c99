// Package textnorm provides text canonicalization and string similarity
// scoring for cross-registry record linkage.
package textnorm

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes a string for comparison: punctuation is stripped,
// whitespace runs collapse to single spaces, and the result is lowercased
// and trimmed. Normalize is idempotent and never fails; empty input yields
// the empty string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity returns a ratio in [0,1] of how alike two strings are, using
// Ratcliff/Obershelp longest-matching-block comparison: twice the number
// of matching characters divided by the total length. It is symmetric.
// Either input empty yields 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	matched := matchingBlocks([]rune(a), []rune(b))
	total := len([]rune(a)) + len([]rune(b))
	return 2.0 * float64(matched) / float64(total)
}

// matchingBlocks sums the lengths of the longest matching blocks found by
// recursively splitting around each longest common substring.
func matchingBlocks(a, b []rune) int {
	type span struct{ alo, ahi, blo, bhi int }
	total := 0
	stack := []span{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ai, bi, size := longestMatch(a, b, s.alo, s.ahi, s.blo, s.bhi)
		if size == 0 {
			continue
		}
		total += size
		stack = append(stack, span{s.alo, ai, s.blo, bi})
		stack = append(stack, span{ai + size, s.ahi, bi + size, s.bhi})
	}
	return total
}

// longestMatch finds the longest matching block of a[alo:ahi] and
// b[blo:bhi]. Ties go to the earliest block in a, then in b.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestsize int) {
	// positions of each rune in b[blo:bhi]
	b2j := make(map[rune][]int, bhi-blo)
	for j := blo; j < bhi; j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}
	besti, bestj = alo, blo
	// j2len[j] = length of match ending at a[i-1], b[j-1]
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}

// SharesToken reports whether the two strings have at least one
// whitespace-delimited token in common. Inputs are expected to be
// normalized already.
func SharesToken(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(a) {
		seen[tok] = struct{}{}
	}
	for _, tok := range strings.Fields(b) {
		if _, ok := seen[tok]; ok {
			return true
		}
	}
	return false
}
