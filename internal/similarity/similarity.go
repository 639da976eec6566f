// Package similarity provides the lexical and semantic text comparison
// primitives behind support scoring and drift detection. The staged
// cheap-then-expensive contract lives in the verifier; this package only
// supplies the individual measures.
package similarity

import (
	"math"
	"strings"
	"unicode"
)

// stopwords excluded from overlap so that function words never count as
// support.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"with": {},
}

// Tokenize lowercases and splits text into content words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

// WordOverlap is the cheap lexical support measure: the fraction of the
// claim's content words present in the candidate text. Returns 0 when the
// claim has no content words.
func WordOverlap(claim, candidate string) float64 {
	claimTokens := Tokenize(claim)
	if len(claimTokens) == 0 {
		return 0
	}

	candidateSet := make(map[string]struct{})
	for _, tok := range Tokenize(candidate) {
		candidateSet[tok] = struct{}{}
	}

	matched := 0
	for _, tok := range claimTokens {
		if _, ok := candidateSet[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(claimTokens))
}

// Jaccard is the symmetric token similarity used for drift detection, where
// near-identical-but-diverging variants need to land in a mid band rather
// than at 1.0 or 0.
func Jaccard(a, b string) float64 {
	setA := make(map[string]struct{})
	for _, tok := range Tokenize(a) {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{})
	for _, tok := range Tokenize(b) {
		setB[tok] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Cosine computes cosine similarity between two vectors, clamped to [0,1].
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// ContainsNegation reports whether the text carries an explicit negation
// marker. Used as the cheap pre-filter in conflict detection.
func ContainsNegation(text string) bool {
	lower := " " + strings.ToLower(text) + " "
	for _, marker := range []string{" not ", " never ", " no ", "n't ", " isn ", " wasn ", " cannot ", " false "} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
