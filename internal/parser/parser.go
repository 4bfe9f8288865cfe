// Package parser turns free-form model output into candidate convocatoria
// records. It never fails: layered extraction strategies, deterministic JSON
// repair and a regex fallback guarantee that some record list always comes
// out, even from garbage input.
package parser

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/convocatorias-pro/search-service/internal/model"
)

// Parse extracts candidate records from raw model text. queryText is carried
// into the synthetic record when nothing at all can be recovered.
func Parse(raw, queryText string) []model.Convocatoria {
	span, ok := ExtractJSON(raw)
	if !ok {
		zap.L().Debug("no JSON span found in model output, using regex fallback",
			zap.Int("raw_len", len(raw)),
		)
		return FallbackExtract(raw, queryText)
	}

	repaired := Repair(span)

	var payload any
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		zap.L().Debug("JSON parse failed after repair, using regex fallback",
			zap.Error(err),
		)
		return FallbackExtract(raw, queryText)
	}

	items := recordItems(payload)
	if len(items) == 0 {
		return FallbackExtract(raw, queryText)
	}

	records := make([]model.Convocatoria, 0, len(items))
	for _, item := range items {
		records = append(records, Normalize(item))
	}
	return records
}

// recordItems unwraps the parsed payload into a list of loose records. The
// payload may be a bare array or an object wrapping one under a known key.
func recordItems(payload any) []map[string]any {
	switch v := payload.(type) {
	case []any:
		return asMaps(v)
	case map[string]any:
		for _, key := range []string{"convocatorias", "results", "resultados", "records"} {
			if arr, ok := v[key].([]any); ok {
				return asMaps(arr)
			}
		}
		// A single record object.
		if _, ok := v["title"]; ok {
			return []map[string]any{v}
		}
		if _, ok := v["nombre"]; ok {
			return []map[string]any{v}
		}
	}
	return nil
}

func asMaps(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
