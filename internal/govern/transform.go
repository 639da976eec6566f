package govern

import (
	"fmt"
	"strings"
	"unicode"
)

// clause lowercases the leading rune and strips terminal punctuation so a
// claim can sit inside a larger sentence.
func clause(claim string) string {
	s := strings.TrimSpace(claim)
	s = strings.TrimRight(s, ".!? ")
	if s == "" {
		return s
	}
	r := []rune(s)
	// Leave acronyms and proper-noun-looking openers alone.
	if len(r) > 1 && unicode.IsUpper(r[0]) && !unicode.IsUpper(r[1]) {
		r[0] = unicode.ToLower(r[0])
	}
	return string(r)
}

// sentence capitalizes the claim and ensures it ends with a period.
func sentence(claim string) string {
	s := strings.TrimSpace(claim)
	s = strings.TrimRight(s, ".!? ")
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r) + "."
}

// openQuestion rewrites the claim as an open question. Used when confidence
// falls far short of the bar.
func openQuestion(claim string) string {
	return fmt.Sprintf("Could it be that %s?", clause(claim))
}

// collaborative frames the claim as a shared working theory.
func collaborative(claim string) string {
	return fmt.Sprintf("My working understanding is that %s, but I'm not certain. I'd value your perspective on this.", clause(claim))
}

// invitation frames a near-miss creative claim as something to play with.
func invitation(claim string) string {
	return fmt.Sprintf("Here's a thought worth playing with: %s. Where does it take you?", clause(claim))
}

// hedge wraps a near-miss serious claim in an explicit caveat.
func hedge(claim string) string {
	return fmt.Sprintf("It may be that %s, though I can't fully confirm it.", clause(claim))
}

// reflectiveQuestion is the ritual-safe form: never an assertion.
func reflectiveQuestion(claim string) string {
	return fmt.Sprintf("What would it mean for you if %s?", clause(claim))
}
