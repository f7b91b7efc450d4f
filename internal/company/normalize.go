// Package company normalizes company names at run intake so logs, run IDs,
// and report headers carry one canonical spelling.
package company

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes diacritic marks after canonical decomposition, so
// "Café" and "Cafe" normalize to the same name.
var stripMarks = runes.Remove(runes.In(unicode.Mn))

// NormalizeName canonicalizes a company name: trims and collapses
// whitespace and removes diacritics. An empty result is an error.
func NormalizeName(name string) (string, error) {
	decomposed := norm.NFD.String(name)
	stripped := stripMarks.String(decomposed)
	recomposed := norm.NFC.String(stripped)

	fields := strings.Fields(recomposed)
	if len(fields) == 0 {
		return "", eris.New("company: name is empty")
	}
	return strings.Join(fields, " "), nil
}
