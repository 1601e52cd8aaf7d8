package importer

import "strings"

// Trailing legal-entity tokens stripped during name normalization.
var legalSuffixes = map[string]struct{}{
	"LLC":         {},
	"CORP":        {},
	"CORPORATION": {},
	"INC":         {},
	"LTD":         {},
	"CO":          {},
}

// NormalizeName reduces a raw customer or company name to its canonical
// comparison key. Two names refer to the same party iff their normalized forms
// are equal. The function is pure and idempotent.
//
// Steps, in order:
//   - drop percentage/colon qualifier segments ("White Cap 30%:Edmonton" keeps
//     only "White Cap")
//   - reorder "Last, First" to "First Last"
//   - uppercase, strip punctuation, collapse whitespace
//   - strip trailing legal suffixes (LLC, CORP, CORPORATION, INC, LTD, CO)
func NormalizeName(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	hadPercent := false
	if i := strings.IndexByte(s, '%'); i >= 0 {
		s = s[:i]
		hadPercent = true
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}

	// "Smith, John" is the QuickBooks person form; reorder before any
	// token-level work so "John Smith" compares equal.
	if i := strings.IndexByte(s, ','); i >= 0 {
		last := strings.TrimSpace(s[:i])
		first := strings.TrimSpace(s[i+1:])
		s = first + " " + last
	}

	s = strings.ToUpper(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '\'':
			return -1
		}
		return r
	}, s)

	tokens := strings.Fields(s)
	for len(tokens) > 0 {
		tail := tokens[len(tokens)-1]
		if _, ok := legalSuffixes[tail]; ok {
			tokens = tokens[:len(tokens)-1]
			continue
		}
		// A trailing number left over from a "<name> 30%" qualifier.
		if hadPercent && isNumericToken(tail) {
			tokens = tokens[:len(tokens)-1]
			continue
		}
		break
	}

	return strings.Join(tokens, " ")
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
