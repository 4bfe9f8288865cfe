// Package prompt builds the system and task prompts sent to model providers.
// The prompts encode the output schema and the anti-fabrication rules; when
// true data is unknown the model is instructed to emit a fixed sentinel
// phrase instead of a guess.
package prompt

import (
	"fmt"
	"strings"

	"github.com/convocatorias-pro/search-service/internal/model"
)

// Step selects which prompt variant is built.
type Step int

const (
	// StepSingle requests the full schema in one pass.
	StepSingle Step = iota
	// StepList requests only a minimal name + organization list (step 1 of
	// the two-step flow).
	StepList
	// StepDetail elaborates step 1's raw output into full records with
	// per-field verification flags (step 2 of the two-step flow).
	StepDetail
)

// Prompt is a system + user prompt pair.
type Prompt struct {
	System string
	User   string
}

const systemText = `Eres un asistente experto en convocatorias y fondos concursables. Tu única función es reportar convocatorias REALES que conoces de tu entrenamiento.

REGLAS ESTRICTAS:
1. NUNCA inventes montos, fechas, organizaciones ni URLs.
2. NUNCA uses frases de plantilla ni texto de ejemplo.
3. Si NO conoces el valor real de un campo, usa EXACTAMENTE la frase centinela indicada para ese campo.
4. Cada registro debe indicar de qué elemento del contexto provienen sus datos.
5. Es preferible entregar menos resultados verificados que muchos inventados.`

const schemaText = `Esquema de salida (JSON, arreglo bajo la clave "convocatorias"):
{
  "convocatorias": [
    {
      "title": "string (nombre oficial de la convocatoria)",
      "organization": "string (organismo convocante)",
      "description": "string | "%s",
      "amount": "string | "%s",
      "deadline": "YYYY-MM-DD | "%s",
      "requirements": "string | "%s",
      "source_url": "URL específica de la convocatoria, no la portada del organismo",
      "category": "string | "%s",
      "status": "abierta | cerrada | "%s",
      "tags": ["string"]
    }
  ]
}`

const detailExtrasText = `Además, para cada registro agrega:
  "title_verified": "SI" | "NO",
  "organization_verified": "SI" | "NO",
  "amount_verified": "SI" | "NO",
  "deadline_verified": "SI" | "NO",
  "source_url_verified": "SI" | "NO",
  "extraction_notes": { "<campo>": "de dónde proviene el dato", "status": "VERIFIED" | "PARTIAL" | "UNVERIFIED" }`

const listFormatText = `Entrega SOLO una lista simple, una convocatoria por línea, con el formato:
nombre | organismo
Sin numeración, sin JSON, máximo %d líneas. Solo convocatorias que realmente conoces.`

// localityClause translates the detected scope into a natural-language
// constraint for the prompt.
func localityClause(scope model.GeographicScope) string {
	switch scope.Breadth {
	case model.BreadthNational:
		return fmt.Sprintf("Limita la búsqueda a convocatorias nacionales del país indicado (%s).", scope.LocationID)
	case model.BreadthRegional:
		return "Limita la búsqueda a convocatorias de alcance regional latinoamericano o iberoamericano."
	case model.BreadthInternational:
		return "Incluye solo convocatorias internacionales abiertas a postulantes de cualquier país."
	default:
		return "Incluye convocatorias locales e internacionales abiertas a postulantes de la región."
	}
}

// Builder constructs prompts for the search pipeline.
type Builder struct {
	maxResults int
}

// NewBuilder creates a prompt builder. maxResults caps how many records the
// model is asked for.
func NewBuilder(maxResults int) *Builder {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Builder{maxResults: maxResults}
}

// Build constructs the prompt for a step. step1Output is only consulted for
// StepDetail. The query is validated first so an oversize query never costs
// a network call.
func (b *Builder) Build(q model.Query, scope model.GeographicScope, step Step, step1Output string) (Prompt, error) {
	if err := q.Validate(); err != nil {
		return Prompt{}, err
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Consulta del usuario: %q\n\n", strings.TrimSpace(q.Text))

	if ctx := filterContext(q.Parameters); ctx != "" {
		user.WriteString(ctx)
		user.WriteString("\n")
	}

	user.WriteString(localityClause(scope))
	user.WriteString("\n\n")

	switch step {
	case StepList:
		fmt.Fprintf(&user, listFormatText, b.maxResults)
	case StepDetail:
		fmt.Fprintf(&user, "Lista preliminar (paso 1), elabora cada entrada que puedas verificar:\n%s\n\n", strings.TrimSpace(step1Output))
		user.WriteString(schema())
		user.WriteString("\n\n")
		user.WriteString(detailExtrasText)
		user.WriteString("\n\n")
		user.WriteString(sentinelDirective())
	default:
		fmt.Fprintf(&user, "Entrega máximo %d convocatorias.\n\n", b.maxResults)
		user.WriteString(schema())
		user.WriteString("\n\n")
		user.WriteString(sentinelDirective())
	}

	return Prompt{System: systemText, User: user.String()}, nil
}

// filterContext renders user-supplied filters as context lines.
func filterContext(p model.SearchParameters) string {
	var b strings.Builder
	if p.Sector != "" {
		fmt.Fprintf(&b, "Sector: %s\n", p.Sector)
	}
	if p.Location != "" {
		fmt.Fprintf(&b, "Ubicación: %s\n", p.Location)
	}
	if p.MinAmount > 0 {
		fmt.Fprintf(&b, "Monto mínimo: %.0f\n", p.MinAmount)
	}
	if p.MaxAmount > 0 {
		fmt.Fprintf(&b, "Monto máximo: %.0f\n", p.MaxAmount)
	}
	if p.DeadlineFrom != "" || p.DeadlineTo != "" {
		fmt.Fprintf(&b, "Rango de cierre: %s a %s\n", orAny(p.DeadlineFrom), orAny(p.DeadlineTo))
	}
	if b.Len() == 0 {
		return ""
	}
	return "Filtros del usuario:\n" + b.String()
}

func orAny(s string) string {
	if s == "" {
		return "cualquiera"
	}
	return s
}

func schema() string {
	return fmt.Sprintf(schemaText,
		model.SentinelDescription,
		model.SentinelAmount,
		model.SentinelDeadline,
		model.SentinelRequirements,
		model.SentinelCategory,
		model.SentinelStatus,
	)
}

func sentinelDirective() string {
	return fmt.Sprintf(
		"Frases centinela obligatorias cuando un dato es desconocido: %q, %q, %q, %q, %q, %q. Úsalas textualmente, sin variaciones.",
		model.SentinelDescription,
		model.SentinelAmount,
		model.SentinelDeadline,
		model.SentinelRequirements,
		model.SentinelCategory,
		model.SentinelStatus,
	)
}
