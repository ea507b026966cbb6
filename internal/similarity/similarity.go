// Package similarity provides the word-set heuristics used to spot
// near-duplicate blog content.
package similarity

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MinWordLength is the shortest token length kept after normalization.
const MinWordLength = 3

var (
	punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// Tokenize lowercases text, strips punctuation, collapses whitespace and drops
// words of two characters or fewer.
func Tokenize(text string) []string {
	text = norm.NFKC.String(strings.ToLower(text))
	text = punctuationRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, w := range fields {
		if len([]rune(w)) >= MinWordLength {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Tokenize(text) {
		set[w] = struct{}{}
	}
	return set
}

// CalculateSimilarity returns the Jaccard similarity of the normalized word
// sets of a and b. Two texts with no tokens have similarity 0.
func CalculateSimilarity(a, b string) float64 {
	return jaccard(tokenSet(a), tokenSet(b))
}

// WordSetSimilarity is CalculateSimilarity for short lists of already
// normalized words, such as key phrases. It does not allocate.
func WordSetSimilarity(a, b []string) float64 {
	distinctA := countDistinct(a)
	distinctB := countDistinct(b)

	intersection := 0
	for i, w := range a {
		if indexOf(a[:i], w) >= 0 {
			continue
		}
		if indexOf(b, w) >= 0 {
			intersection++
		}
	}
	union := distinctA + distinctB - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func countDistinct(words []string) int {
	n := 0
	for i, w := range words {
		if indexOf(words[:i], w) < 0 {
			n++
		}
	}
	return n
}

func indexOf(words []string, w string) int {
	for i, v := range words {
		if v == w {
			return i
		}
	}
	return -1
}

func jaccard(setA, setB map[string]struct{}) float64 {
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ExtractKeyPhrases returns every adjacent 2-word and 3-word sequence of the
// normalized text, in order of appearance.
func ExtractKeyPhrases(text string) []string {
	words := Tokenize(text)
	if len(words) < 2 {
		return []string{}
	}

	phrases := make([]string, 0, 2*len(words))
	for i := 0; i < len(words)-1; i++ {
		phrases = append(phrases, words[i]+" "+words[i+1])
		if i < len(words)-2 {
			phrases = append(phrases, words[i]+" "+words[i+1]+" "+words[i+2])
		}
	}
	return phrases
}
