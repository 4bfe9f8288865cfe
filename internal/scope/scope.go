// Package scope detects the geographic intent of a search query so the
// prompt builder can inject the right locality clause.
package scope

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/convocatorias-pro/search-service/internal/model"
)

type keywordID struct {
	kw string
	id string
}

// countryKeywords maps folded keywords to a country location ID. Order
// matters: the first match wins, so a query naming two countries resolves
// the same way on every run.
var countryKeywords = []keywordID{
	{"chile", "cl"},
	{"chileno", "cl"},
	{"chilena", "cl"},
	{"peru", "pe"},
	{"peruano", "pe"},
	{"colombia", "co"},
	{"mexico", "mx"},
	{"mexicano", "mx"},
	{"argentina", "ar"},
	{"espana", "es"},
	{"spain", "es"},
}

// regionKeywords maps folded keywords to a region location ID, first match
// wins.
var regionKeywords = []keywordID{
	{"latinoamerica", "latam"},
	{"latam", "latam"},
	{"iberoamerica", "iberoamerica"},
	{"sudamerica", "latam"},
	{"america latina", "latam"},
	{"regional", "regional"},
}

// internationalKeywords signal explicitly global intent.
var internationalKeywords = []string{
	"internacional",
	"international",
	"global",
	"mundial",
	"union europea",
	"europa",
	"worldwide",
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases a string and strips diacritics so Spanish keyword matching
// is accent-insensitive.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Detect computes the geographic scope of a query. It is a pure function over
// the query text and location parameter.
func Detect(q model.Query) model.GeographicScope {
	text := Fold(q.Text)
	if q.Parameters.Location != "" {
		text += " " + Fold(q.Parameters.Location)
	}

	for _, kw := range internationalKeywords {
		if strings.Contains(text, kw) {
			return model.GeographicScope{
				Kind:       model.ScopeInternational,
				LocationID: "intl",
				Breadth:    model.BreadthInternational,
			}
		}
	}

	for _, entry := range countryKeywords {
		if containsWord(text, entry.kw) {
			return model.GeographicScope{
				Kind:       model.ScopeCountry,
				LocationID: entry.id,
				Breadth:    model.BreadthNational,
			}
		}
	}

	for _, entry := range regionKeywords {
		if strings.Contains(text, entry.kw) {
			return model.GeographicScope{
				Kind:       model.ScopeRegion,
				LocationID: entry.id,
				Breadth:    model.BreadthRegional,
			}
		}
	}

	return model.GeographicScope{
		Kind:       model.ScopeDefault,
		LocationID: "default",
		Breadth:    model.BreadthLocalPlusIntl,
	}
}

// containsWord matches kw on word boundaries to avoid substrings like
// "peruano" matching inside unrelated words.
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		leftOK := start == 0 || !isLetter(text[start-1])
		rightOK := end == len(text) || !isLetter(text[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
