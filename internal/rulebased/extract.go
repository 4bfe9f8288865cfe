// Package rulebased is the terminal extraction fallback: a deterministic
// keyword and regex scan that needs no model, no network and no credentials.
// It always produces at least one record.
package rulebased

import (
	"regexp"
	"strings"

	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/parser"
	"github.com/convocatorias-pro/search-service/internal/scope"
	"github.com/convocatorias-pro/search-service/internal/validate"
)

const maxRecords = 10

// callKeywords mark a line as describing a funding opportunity. Matching is
// diacritic-folded, so "Convocatoria" and "convocatoría" both hit.
var callKeywords = []string{
	"convocatoria",
	"fondo",
	"beca",
	"subsidio",
	"concurso",
	"financiamiento",
	"grant",
	"programa de apoyo",
}

// orgKeywords anchor a best-effort organization guess inside a line.
var orgKeywords = []string{
	"corfo",
	"sercotec",
	"anid",
	"fosis",
	"conicyt",
	"ministerio",
	"municipalidad",
	"gobierno regional",
	"universidad",
	"fundacion",
	"union europea",
	"banco interamericano",
}

var (
	// Amount spans with currency markers, tolerant of both separator styles
	// ("$1.000.000" and "$1,000,000").
	amountRe = regexp.MustCompile(`(?i)(?:\$|CLP|USD|EUR|€)\s*\d[\d.,]*(?:\s*(?:CLP|USD|EUR|millones|mm))?`)

	// ISO, slash and written-out Spanish dates.
	dateRe = regexp.MustCompile(`(?i)\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}\s+de\s+[a-záéíóú]+\s+de\s+\d{4}`)

	urlRe = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
)

// Extract scans raw model text (or, when none exists, the query itself) for
// opportunity-shaped lines. Every record carries the rule_based method tag
// and a reliability score computed under the rule-based ceiling.
func Extract(rawText string, q model.Query) []model.Convocatoria {
	source := rawText
	if strings.TrimSpace(source) == "" {
		source = q.Text
	}

	var records []model.Convocatoria
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-*•\t "))
		if line == "" || !hasCallKeyword(line) {
			continue
		}

		rec := model.Convocatoria{
			Title:        title(line),
			Organization: organization(line),
			Description:  model.SentinelDescription,
			Amount:       firstMatch(amountRe, line, model.SentinelAmount),
			Deadline:     firstMatch(dateRe, line, model.SentinelDeadline),
			Requirements: model.SentinelRequirements,
			SourceURL:    firstMatch(urlRe, line, ""),
			Category:     model.SentinelCategory,
			Status:       model.SentinelStatus,
			Notes:        model.ExtractionNotes{Status: model.NoteUnverified},
			Method:       model.MethodRuleBased,
		}
		rec.ReliabilityScore = validate.Score(rec, model.MethodRuleBased)
		records = append(records, rec)
		if len(records) == maxRecords {
			break
		}
	}

	if len(records) == 0 {
		rec := parser.SyntheticNoResult(q.Text)
		rec.ReliabilityScore = validate.Score(rec, model.MethodSynthetic)
		return []model.Convocatoria{rec}
	}
	return records
}

func hasCallKeyword(line string) bool {
	folded := scope.Fold(line)
	for _, kw := range callKeywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// title strips trailing amount, date and URL fragments so the line's leading
// phrase stands alone.
func title(line string) string {
	t := line
	for _, re := range []*regexp.Regexp{urlRe, amountRe, dateRe} {
		t = re.ReplaceAllString(t, "")
	}
	t = strings.Trim(strings.TrimSpace(t), ".,;:()-|")
	t = strings.TrimSpace(t)
	if t == "" {
		t = line
	}
	if runes := []rune(t); len(runes) > 200 {
		t = string(runes[:200])
	}
	return t
}

func organization(line string) string {
	folded := scope.Fold(line)
	for _, kw := range orgKeywords {
		if idx := strings.Index(folded, kw); idx >= 0 {
			// Slice the original line at the folded offsets; folding is
			// length-changing for some runes, so fall back to the keyword
			// itself when the slice looks wrong.
			if idx+len(kw) <= len(line) {
				candidate := strings.TrimSpace(line[idx : idx+len(kw)])
				if scope.Fold(candidate) == kw {
					return candidate
				}
			}
			return strings.ToUpper(kw[:1]) + kw[1:]
		}
	}
	return "Organismo no identificado"
}

func firstMatch(re *regexp.Regexp, s, fallback string) string {
	if m := re.FindString(s); m != "" {
		return strings.TrimSpace(m)
	}
	return fallback
}
