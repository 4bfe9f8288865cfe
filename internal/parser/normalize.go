package parser

import (
	"strconv"
	"strings"

	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/scope"
)

// Field length ceilings. Free text past the ceiling is cut at a rune
// boundary and marked with an ellipsis.
const (
	maxShortField = 300
	maxLongField  = 1000
)

// Key aliases per canonical field. Lookup keys are diacritic-folded and
// lowercased first, so "Título" and "titulo" hit the same alias.
var fieldAliases = map[string][]string{
	"title":        {"title", "titulo", "nombre", "name"},
	"organization": {"organization", "organismo", "organizacion", "entidad", "institucion", "org"},
	"description":  {"description", "descripcion", "resumen", "detalle"},
	"amount":       {"amount", "monto", "importe", "financiamiento", "presupuesto"},
	"deadline":     {"deadline", "fecha_cierre", "fecha_limite", "plazo", "cierre", "fecha"},
	"requirements": {"requirements", "requisitos"},
	"source_url":   {"source_url", "url", "fuente", "enlace", "link", "sitio_web", "website"},
	"category":     {"category", "categoria", "area", "sector"},
	"status":       {"status", "estado"},
}

// Normalize canonicalizes one loose parsed object into a Convocatoria.
// Bilingual and alternate-spelling keys collapse into the canonical shape;
// values are coerced to strings and long text is truncated.
func Normalize(m map[string]any) model.Convocatoria {
	fields := foldKeys(m)

	var c model.Convocatoria
	c.Title = truncate(aliasString(fields, "title"), maxShortField)
	c.Organization = truncate(aliasString(fields, "organization"), maxShortField)
	c.Description = truncate(aliasString(fields, "description"), maxLongField)
	c.Amount = truncate(aliasString(fields, "amount"), maxShortField)
	c.Deadline = truncate(aliasString(fields, "deadline"), maxShortField)
	c.Requirements = truncate(aliasString(fields, "requirements"), maxLongField)
	c.SourceURL = truncate(aliasString(fields, "source_url"), maxShortField)
	c.Category = truncate(aliasString(fields, "category"), maxShortField)
	c.Status = truncate(aliasString(fields, "status"), maxShortField)
	c.Tags = tagList(fields)
	c.Verification = verification(fields)
	c.Notes = extractionNotes(fields)
	return c
}

// foldKeys rewrites map keys to folded lowercase. On alias collisions the
// first key wins.
func foldKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		fk := scope.Fold(strings.TrimSpace(k))
		fk = strings.ReplaceAll(fk, " ", "_")
		if _, exists := out[fk]; !exists {
			out[fk] = v
		}
	}
	return out
}

func aliasString(fields map[string]any, canonical string) string {
	for _, alias := range fieldAliases[canonical] {
		if v, ok := fields[alias]; ok {
			if s := stringValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// stringValue coerces a parsed JSON value into a trimmed string. Numbers
// keep their shortest decimal form; objects and arrays coerce to "".
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func tagList(fields map[string]any) []string {
	var raw any
	for _, alias := range []string{"tags", "etiquetas"} {
		if v, ok := fields[alias]; ok {
			raw = v
			break
		}
	}
	switch t := raw.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s := stringValue(el); s != "" {
				out = append(out, truncate(s, maxShortField))
			}
		}
		if len(out) > 0 {
			return out
		}
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, truncate(s, maxShortField))
			}
		}
		return out
	}
	return nil
}

// verification reads the per-field verified flags, either nested under a
// verification object or flattened as *_verified keys at the top level.
func verification(fields map[string]any) model.Verification {
	src := fields
	for _, alias := range []string{"verification", "verificacion"} {
		if nested, ok := fields[alias].(map[string]any); ok {
			src = foldKeys(nested)
			break
		}
	}
	flag := func(names ...string) bool {
		for _, n := range names {
			if v, ok := src[n]; ok {
				return boolValue(v)
			}
		}
		return false
	}
	return model.Verification{
		Title:        flag("title_verified", "title", "titulo_verificado", "titulo"),
		Organization: flag("organization_verified", "organization", "organismo_verificado", "organismo"),
		Amount:       flag("amount_verified", "amount", "monto_verificado", "monto"),
		Deadline:     flag("deadline_verified", "deadline", "fecha_verificada", "fecha"),
		SourceURL:    flag("source_url_verified", "source_url", "url_verificada", "url"),
	}
}

// boolValue accepts the spellings models actually emit for a verified flag:
// booleans, SI/NO, yes/no, true/false, 1/0.
func boolValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch scope.Fold(strings.TrimSpace(t)) {
		case "si", "yes", "true", "verified", "verificado", "1":
			return true
		}
	}
	return false
}

func extractionNotes(fields map[string]any) model.ExtractionNotes {
	var notes model.ExtractionNotes
	var raw any
	for _, alias := range []string{"extraction_notes", "notas_extraccion", "notas"} {
		if v, ok := fields[alias]; ok {
			raw = v
			break
		}
	}
	switch t := raw.(type) {
	case map[string]any:
		for k, v := range foldKeys(t) {
			s := stringValue(v)
			if s == "" {
				continue
			}
			if k == "status" || k == "estado" {
				notes.Status = noteStatus(s)
				continue
			}
			if notes.Fields == nil {
				notes.Fields = make(map[string]string)
			}
			notes.Fields[k] = truncate(s, maxShortField)
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			if st := noteStatus(s); st != "" {
				notes.Status = st
			} else {
				notes.Fields = map[string]string{"general": truncate(s, maxShortField)}
			}
		}
	}
	return notes
}

func noteStatus(s string) model.NoteStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(model.NoteVerified):
		return model.NoteVerified
	case string(model.NotePartial):
		return model.NotePartial
	case string(model.NoteUnverified):
		return model.NoteUnverified
	}
	return ""
}
