package validate

import (
	"fmt"

	"github.com/convocatorias-pro/search-service/internal/model"
)

// RejectionError reports why a candidate record was dropped. Rejections are
// logged and swallowed by the caller; they never surface to the user.
type RejectionError struct {
	Field  string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("validate: rejected (%s): %s", e.Field, e.Reason)
}

// Validator applies the fabrication rule set to candidate records.
type Validator struct {
	rules *RuleSet
}

// NewValidator builds a validator over a compiled rule set.
func NewValidator(rules *RuleSet) *Validator {
	return &Validator{rules: rules}
}

// Rules exposes the active rule set, for diagnostics.
func (v *Validator) Rules() *RuleSet { return v.rules }

// Validate checks one candidate. On success it returns the record with
// sentinel variants rewritten to their canonical phrases; on failure it
// returns a *RejectionError naming the offending field.
func (v *Validator) Validate(rec model.Convocatoria) (model.Convocatoria, error) {
	for field, val := range map[string]string{
		"title":        rec.Title,
		"organization": rec.Organization,
		"source_url":   rec.SourceURL,
	} {
		if val == "" {
			return model.Convocatoria{}, &RejectionError{Field: field, Reason: "missing required field"}
		}
	}

	fields := map[string]string{
		"title":        rec.Title,
		"organization": rec.Organization,
		"description":  rec.Description,
		"amount":       rec.Amount,
		"deadline":     rec.Deadline,
		"requirements": rec.Requirements,
		"source_url":   rec.SourceURL,
	}
	for _, sig := range v.rules.Signatures {
		for _, field := range sig.Fields {
			val := fields[field]
			if val == "" || model.IsSentinel(val) {
				continue
			}
			if sig.re.MatchString(val) {
				return model.Convocatoria{}, &RejectionError{Field: field, Reason: sig.Reason}
			}
		}
	}

	for _, amt := range v.rules.SuspiciousAmounts {
		if rec.Amount == amt {
			return model.Convocatoria{}, &RejectionError{Field: "amount", Reason: "known example amount"}
		}
	}
	for _, re := range v.rules.deadlineRes {
		if rec.Deadline != "" && re.MatchString(rec.Deadline) {
			return model.Convocatoria{}, &RejectionError{Field: "deadline", Reason: "suspicious round deadline"}
		}
	}

	if v.rules.Denied(rec.SourceURL) {
		return model.Convocatoria{}, &RejectionError{Field: "source_url", Reason: "generic institution homepage"}
	}

	rec.Description = model.CanonicalSentinel("description", rec.Description)
	rec.Amount = model.CanonicalSentinel("amount", rec.Amount)
	rec.Deadline = model.CanonicalSentinel("deadline", rec.Deadline)
	rec.Requirements = model.CanonicalSentinel("requirements", rec.Requirements)
	rec.Category = model.CanonicalSentinel("category", rec.Category)
	rec.Status = model.CanonicalSentinel("status", rec.Status)

	return rec, nil
}
