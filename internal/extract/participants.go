package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// participantPatterns are tried in order; the first that yields a name wins.
var participantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bordered\s+by\s+(.+)`),
	regexp.MustCompile(`(?i)\bsplit(?:ting)?\s+(?:it\s+|this\s+|the\s+bill\s+)?(?:with|between)\s+(.+)`),
	regexp.MustCompile(`(?i)\bwith\s+(.+)`),
}

var (
	// clauseEnd cuts a captured tail at the end of its clause.
	clauseEnd = regexp.MustCompile(`(?i)[.;:!?\n()]|\s(?:for|at|on|in|from|to|because|but)\s`)

	// listSep splits "A, B and C" / "A & B".
	listSep = regexp.MustCompile(`(?i)\s*(?:,|&|\band\b)\s*`)
)

var notNames = map[string]bool{
	"i": true, "me": true, "my": true, "myself": true, "we": true, "us": true,
	"the": true, "a": true, "an": true, "friends": true, "family": true, "everyone": true,
}

// InferParticipants guesses participant names from free text such as
// "ordered by Sam and Priya" or "split with Alex, Jo". Only capitalized
// words count as names. The result is a best-effort guess.
func InferParticipants(text string) []string {
	for _, re := range participantPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		tail := m[1]
		if loc := clauseEnd.FindStringIndex(tail); loc != nil {
			tail = tail[:loc[0]]
		}

		var names []string
		for _, part := range listSep.Split(tail, -1) {
			if name := nameFrom(part); name != "" {
				names = append(names, name)
			}
		}
		if names = cleanNames(names); len(names) > 0 {
			return names
		}
	}
	return nil
}

// nameFrom keeps the leading run of capitalized words in s.
func nameFrom(s string) string {
	var words []string
	for _, w := range strings.Fields(s) {
		r := []rune(w)
		if notNames[strings.ToLower(w)] || !unicode.IsUpper(r[0]) || strings.ContainsFunc(w, unicode.IsDigit) {
			break
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}
