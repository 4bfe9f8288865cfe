package validate

import "github.com/convocatorias-pro/search-service/internal/model"

// Scoring weights. The score is recomputed here from observable record
// state, never taken from the model's own claims, so the same record always
// scores the same.
const (
	scoreBase            = 50
	scorePerVerifiedFlag = 8
	scorePerFilledField  = 3
	scorePerSentinel     = 5

	scoreCeilingAI        = 95
	scoreCeilingRuleBased = 75
)

// optionalFields lists the fields that earn a fill bonus or a sentinel
// penalty.
func optionalFields(rec model.Convocatoria) []string {
	return []string{
		rec.Description,
		rec.Amount,
		rec.Deadline,
		rec.Requirements,
		rec.Category,
		rec.Status,
	}
}

// Score computes the deterministic reliability score for a record produced
// by the given extraction method.
func Score(rec model.Convocatoria, method model.ExtractionMethod) int {
	score := scoreBase
	score += scorePerVerifiedFlag * rec.Verification.Count()

	for _, val := range optionalFields(rec) {
		switch {
		case val == "":
		case model.IsSentinel(val):
			score -= scorePerSentinel
		default:
			score += scorePerFilledField
		}
	}

	ceiling := scoreCeilingRuleBased
	if method.IsAI() {
		ceiling = scoreCeilingAI
	}
	if score > ceiling {
		score = ceiling
	}
	if score < scoreBase {
		score = scoreBase
	}
	return score
}
