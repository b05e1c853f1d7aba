package champions

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// aliases maps display names whose data-dragon key differs from the name
// itself. Keys are lowercased display names.
var aliases = map[string]string{
	"wukong":         "monkeyking",
	"nunu & willump": "nunu",
	"nunu":           "nunu",
	"renata glasc":   "renata",
	"renata":         "renata",
	"bel'veth":       "belveth",
	"dr. mundo":      "drmundo",
	"kog'maw":        "kogmaw",
	"rek'sai":        "reksai",
}

var lower = cases.Lower(language.Und)

// Normalize returns the canonical affinity key for a champion display name:
// aliases first, then diacritics folded, non-alphanumerics stripped, lowercased.
func Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if key, ok := aliases[strings.ToLower(trimmed)]; ok {
		return key
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, trimmed)
	if err != nil {
		folded = trimmed
	}
	folded = lower.String(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
