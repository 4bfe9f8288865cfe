package model

import "strings"

// Canonical "not available" sentinel phrases. When a field's true value is
// unknown, records carry exactly one of these instead of a guess. Any
// near-variant spelling coming out of a model is normalized to the canonical
// form during validation.
const (
	SentinelDescription  = "Descripción no disponible en fuente"
	SentinelAmount       = "Monto no disponible en fuente"
	SentinelDeadline     = "Fecha no disponible en fuente"
	SentinelRequirements = "Requisitos no disponibles en fuente"
	SentinelCategory     = "Categoría no disponible"
	SentinelStatus       = "Estado no disponible"
)

// sentinelByField maps canonical field names to their sentinel phrase.
var sentinelByField = map[string]string{
	"description":  SentinelDescription,
	"amount":       SentinelAmount,
	"deadline":     SentinelDeadline,
	"requirements": SentinelRequirements,
	"category":     SentinelCategory,
	"status":       SentinelStatus,
}

// sentinelVariants lists lowercase spellings that count as "not available"
// for normalization purposes. Matching is case-insensitive on the folded
// string; the canonical phrase for the field is substituted.
var sentinelVariants = []string{
	"no disponible",
	"no disponibles",
	"not available",
	"no especificado",
	"no especificada",
	"sin información",
	"sin informacion",
	"desconocido",
	"desconocida",
	"n/a",
	"unknown",
	"no data",
}

// SentinelFor returns the canonical sentinel phrase for a field, or "" if
// the field has no sentinel (required fields never do).
func SentinelFor(field string) string {
	return sentinelByField[field]
}

// IsSentinel reports whether a value is a canonical sentinel phrase.
func IsSentinel(value string) bool {
	for _, s := range sentinelByField {
		if value == s {
			return true
		}
	}
	return false
}

// IsSentinelVariant reports whether a value reads as a "not available"
// marker, canonical or not.
func IsSentinelVariant(value string) bool {
	if value == "" {
		return false
	}
	if IsSentinel(value) {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, v := range sentinelVariants {
		if lower == v {
			return true
		}
		// Containment only counts for short values; long prose that happens
		// to include "no disponible" is real content.
		if len(lower) <= 60 && strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

// CanonicalSentinel normalizes a sentinel-looking value to the canonical
// phrase for the field. Non-sentinel values are returned unchanged.
func CanonicalSentinel(field, value string) string {
	canonical, ok := sentinelByField[field]
	if !ok {
		return value
	}
	if IsSentinelVariant(value) {
		return canonical
	}
	return value
}
