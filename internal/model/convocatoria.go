package model

// ExtractionMethod tags how a record was produced.
type ExtractionMethod string

const (
	MethodTwoStep    ExtractionMethod = "two_step"
	MethodSingleStep ExtractionMethod = "single_step"
	MethodStep1Only  ExtractionMethod = "step1_only"
	MethodRuleBased  ExtractionMethod = "rule_based"
	MethodSynthetic  ExtractionMethod = "synthetic"
)

// IsAI reports whether the method involved a model-generated record.
func (m ExtractionMethod) IsAI() bool {
	switch m {
	case MethodTwoStep, MethodSingleStep, MethodStep1Only:
		return true
	}
	return false
}

// NoteStatus is the overall provenance status a model reports for a record.
type NoteStatus string

const (
	NoteVerified   NoteStatus = "VERIFIED"
	NotePartial    NoteStatus = "PARTIAL"
	NoteUnverified NoteStatus = "UNVERIFIED"
)

// Verification holds the per-field verified flags the detail-step prompt
// asks the model to emit. These are model claims; the reliability score is
// recomputed deterministically from them, never trusted as-is.
type Verification struct {
	Title        bool `json:"title_verified"`
	Organization bool `json:"organization_verified"`
	Amount       bool `json:"amount_verified"`
	Deadline     bool `json:"deadline_verified"`
	SourceURL    bool `json:"source_url_verified"`
}

// Count returns the number of verified flags set.
func (v Verification) Count() int {
	n := 0
	for _, b := range []bool{v.Title, v.Organization, v.Amount, v.Deadline, v.SourceURL} {
		if b {
			n++
		}
	}
	return n
}

// ExtractionNotes carries per-field provenance strings plus the overall
// status the model reported.
type ExtractionNotes struct {
	Fields map[string]string `json:"fields,omitempty"`
	Status NoteStatus        `json:"status,omitempty"`
}

// Convocatoria is the canonical funding-opportunity record. Candidate records
// coming out of the parser use this same shape; validation either promotes a
// candidate or drops it.
type Convocatoria struct {
	Title            string           `json:"title"`
	Organization     string           `json:"organization"`
	Description      string           `json:"description,omitempty"`
	Amount           string           `json:"amount,omitempty"`
	Deadline         string           `json:"deadline,omitempty"`
	Requirements     string           `json:"requirements,omitempty"`
	SourceURL        string           `json:"source_url"`
	Category         string           `json:"category,omitempty"`
	Status           string           `json:"status,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	Verification     Verification     `json:"verification"`
	Notes            ExtractionNotes  `json:"extraction_notes,omitempty"`
	ReliabilityScore int              `json:"reliability_score"`
	Method           ExtractionMethod `json:"extraction_method,omitempty"`

	// Assigned by the result sink.
	Rank           int     `json:"rank,omitempty"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// HasRequiredFields reports whether the record carries the minimum fields
// needed to enter validation.
func (c Convocatoria) HasRequiredFields() bool {
	return c.Title != "" && c.Organization != "" && c.SourceURL != ""
}
