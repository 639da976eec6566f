package field

import (
	"regexp"
	"strconv"
	"strings"
)

// ContradictionChecker tests a claim against trusted knowledge. Pluggable
// so the regex default can be swapped for an NLI-backed implementation
// without touching the orchestrator.
type ContradictionChecker interface {
	// Check returns whether the claim contradicts trusted facts and a short
	// human-readable detail when it does.
	Check(claim string) (bool, string)
}

// RegexChecker is the default checker: exact domain knowledge, simple
// arithmetic sanity, and logical self-contradiction.
type RegexChecker struct {
	trusted []trustedFact
}

type trustedFact struct {
	match  *regexp.Regexp
	detail string
}

var arithmeticRe = regexp.MustCompile(`(\d+)\s*([+\-x*×])\s*(\d+)\s*(?:=|equals|is)\s*(\d+)`)

// NewRegexChecker creates the default checker with its built-in fact set.
func NewRegexChecker() *RegexChecker {
	return &RegexChecker{
		trusted: []trustedFact{
			{regexp.MustCompile(`(?i)\bearth\b.*\bflat\b`), "contradicts trusted fact: the earth is not flat"},
			{regexp.MustCompile(`(?i)\bsun\b.*\borbits?\b.*\bearth\b`), "contradicts trusted fact: the earth orbits the sun"},
			{regexp.MustCompile(`(?i)\bwater\b.*\bboils?\b.*\bat\b.*\b(5?0|200|300)\s*(°|degrees)\s*c\b`), "contradicts trusted fact: water boils at 100°C at sea level"},
		},
	}
}

// Check runs the three detection families in cheap-first order.
func (c *RegexChecker) Check(claim string) (bool, string) {
	if ok, detail := c.checkArithmetic(claim); ok {
		return true, detail
	}
	if ok, detail := c.checkSelfContradiction(claim); ok {
		return true, detail
	}
	for _, fact := range c.trusted {
		if fact.match.MatchString(claim) {
			return true, fact.detail
		}
	}
	return false, ""
}

// checkArithmetic evaluates simple "a op b = c" statements.
func (c *RegexChecker) checkArithmetic(claim string) (bool, string) {
	m := arithmeticRe.FindStringSubmatch(claim)
	if m == nil {
		return false, ""
	}

	a, errA := strconv.Atoi(m[1])
	b, errB := strconv.Atoi(m[3])
	stated, errC := strconv.Atoi(m[4])
	if errA != nil || errB != nil || errC != nil {
		return false, ""
	}

	var actual int
	switch m[2] {
	case "+":
		actual = a + b
	case "-":
		actual = a - b
	case "x", "*", "×":
		actual = a * b
	default:
		return false, ""
	}

	if actual != stated {
		return true, "arithmetic contradiction: " + m[0]
	}
	return false, ""
}

// checkSelfContradiction flags absolute quantifiers that cancel each other
// inside one claim.
func (c *RegexChecker) checkSelfContradiction(claim string) (bool, string) {
	lower := strings.ToLower(claim)
	pairs := [][2]string{
		{"always", "never"},
		{"everyone", "no one"},
		{"all ", "none "},
	}
	for _, p := range pairs {
		if strings.Contains(lower, p[0]) && strings.Contains(lower, p[1]) {
			return true, "self-contradiction: claim contains both \"" + strings.TrimSpace(p[0]) + "\" and \"" + strings.TrimSpace(p[1]) + "\""
		}
	}
	return false, ""
}
