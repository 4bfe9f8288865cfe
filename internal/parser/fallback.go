package parser

import (
	"regexp"
	"strings"

	"github.com/convocatorias-pro/search-service/internal/model"
)

// titleLineRe matches title-like lines in free-form model prose. Labels the
// models use for a result name, in either language.
var titleLineRe = regexp.MustCompile(`(?im)^\s*(?:[-*\d.)\s]*)?(?:t[íi]tulo|title|nombre)\s*[:\-]\s*(.+)$`)

const maxFallbackRecords = 10

// FallbackExtract scavenges candidate records from raw text when no JSON
// could be recovered. It always returns at least one record: if the text
// yields nothing, a single synthetic record carries the query so the failed
// extraction stays traceable downstream.
func FallbackExtract(raw, queryText string) []model.Convocatoria {
	var records []model.Convocatoria
	for _, m := range titleLineRe.FindAllStringSubmatch(raw, maxFallbackRecords) {
		title := strings.TrimSpace(strings.Trim(m[1], `"'*`))
		if title == "" {
			continue
		}
		records = append(records, model.Convocatoria{
			Title:        truncate(title, maxShortField),
			Description:  model.SentinelDescription,
			Amount:       model.SentinelAmount,
			Deadline:     model.SentinelDeadline,
			Requirements: model.SentinelRequirements,
			Category:     model.SentinelCategory,
			Status:       model.SentinelStatus,
			Notes:        model.ExtractionNotes{Status: model.NoteUnverified},
		})
	}
	if len(records) > 0 {
		return records
	}
	return []model.Convocatoria{SyntheticNoResult(queryText)}
}

// SyntheticNoResult builds the single traceability record returned when a
// search produced nothing usable at all.
func SyntheticNoResult(queryText string) model.Convocatoria {
	return model.Convocatoria{
		Title:        "Sin resultados para: " + truncate(queryText, maxShortField),
		Organization: "Sistema de búsqueda",
		Description:  "No se encontraron convocatorias verificables para esta búsqueda.",
		Amount:       model.SentinelAmount,
		Deadline:     model.SentinelDeadline,
		Requirements: model.SentinelRequirements,
		Category:     model.SentinelCategory,
		Status:       model.SentinelStatus,
		Notes:        model.ExtractionNotes{Status: model.NoteUnverified},
		Method:       model.MethodSynthetic,
	}
}
