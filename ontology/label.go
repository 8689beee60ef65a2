package ontology

import (
	"strings"
	"unicode"

	"github.com/teranos/ontomap/kg"
)

// NormalizeLabel turns an IRI or identifier into lowercase words:
// "https://w3id.org/idsa/core/SmartDataApp" -> "smart data app",
// "DATAResource" -> "data resource", "has_title" -> "has title".
func NormalizeLabel(s string) string {
	if i := strings.LastIndex(s, "#"); i >= 0 {
		s = s[i+1:]
	} else if strings.Contains(s, "://") {
		s = kg.LocalName(s)
	}
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)

	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
