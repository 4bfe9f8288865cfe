package fallback

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocatorias-pro/search-service/internal/invoker"
	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/prompt"
	"github.com/convocatorias-pro/search-service/internal/validate"
)

type scripted struct {
	text string
	err  error
}

// scriptedInvoker returns canned responses in call order and records which
// models were asked what.
type scriptedInvoker struct {
	script  []scripted
	refs    []invoker.ModelRef
	prompts []prompt.Prompt
}

func (s *scriptedInvoker) Invoke(_ context.Context, ref invoker.ModelRef, p prompt.Prompt) (string, error) {
	s.refs = append(s.refs, ref)
	s.prompts = append(s.prompts, p)
	if len(s.script) == 0 {
		return "", eris.New("script exhausted")
	}
	next := s.script[0]
	s.script = s.script[1:]
	return next.text, next.err
}

var (
	listRef      = invoker.ModelRef{Provider: "openrouter", ID: "small-list", Tier: invoker.TierFast}
	detailRef    = invoker.ModelRef{Provider: "openrouter", ID: "big-detail", Tier: invoker.TierStrong}
	secondaryRef = invoker.ModelRef{Provider: "gemini", ID: "backup", Tier: invoker.TierFast}
)

func testPlan(twoStep bool) Plan {
	return Plan{
		TwoStep:        twoStep,
		ListModel:      listRef,
		DetailModel:    detailRef,
		SecondaryModel: secondaryRef,
	}
}

func newOrchestrator(t *testing.T, inv ModelInvoker) *Orchestrator {
	t.Helper()
	rules, err := validate.DefaultRules()
	require.NoError(t, err)
	return New(prompt.NewBuilder(10), inv, validate.NewValidator(rules))
}

const goodDetailJSON = `{"convocatorias": [
	{"title": "Fondo Innova Región", "organization": "CORFO",
	 "source_url": "https://corfo.cl/convocatorias/innova-region-2026",
	 "amount": "$90.000.000", "deadline": "2026-10-01",
	 "title_verified": "SI", "organization_verified": "SI"}
]}`

func run(t *testing.T, o *Orchestrator, plan Plan) Outcome {
	t.Helper()
	return o.Run(context.Background(), model.Query{Text: "fondos de innovación"}, model.GeographicScope{}, plan)
}

func TestSingleStepSuccess(t *testing.T) {
	inv := &scriptedInvoker{script: []scripted{{text: goodDetailJSON}}}
	o := newOrchestrator(t, inv)

	out := run(t, o, testPlan(false))

	require.Len(t, out.Records, 1)
	assert.Equal(t, model.MethodSingleStep, out.Method)
	assert.Equal(t, model.MethodSingleStep, out.Records[0].Method)
	assert.GreaterOrEqual(t, out.Records[0].ReliabilityScore, 50)
	assert.Equal(t, []invoker.ModelRef{detailRef}, inv.refs)
}

func TestTwoStepSuccessIsSequential(t *testing.T) {
	inv := &scriptedInvoker{script: []scripted{
		{text: "Fondo Innova Región | CORFO"},
		{text: goodDetailJSON},
	}}
	o := newOrchestrator(t, inv)

	out := run(t, o, testPlan(true))

	require.Len(t, out.Records, 1)
	assert.Equal(t, model.MethodTwoStep, out.Method)
	require.Equal(t, []invoker.ModelRef{listRef, detailRef}, inv.refs)
	// Step 2's prompt must carry step 1's raw output as context.
	assert.Contains(t, inv.prompts[1].User, "Fondo Innova Región | CORFO")
	assert.Equal(t, []string{"openrouter/small-list", "openrouter/big-detail"}, out.ModelsUsed)
}

func TestDetailFailureSubstitutesSecondaryOnce(t *testing.T) {
	inv := &scriptedInvoker{script: []scripted{
		{text: "Fondo Innova Región | CORFO"},
		{err: eris.New("boom")},
		{text: goodDetailJSON},
	}}
	o := newOrchestrator(t, inv)

	out := run(t, o, testPlan(true))

	require.Len(t, out.Records, 1)
	assert.Equal(t, model.MethodTwoStep, out.Method)
	assert.Equal(t, []invoker.ModelRef{listRef, detailRef, secondaryRef}, inv.refs)
}

func TestDetailFailureTwiceFallsBackToStep1(t *testing.T) {
	inv := &scriptedInvoker{script: []scripted{
		{text: "Fondo Innova Región | CORFO\nBeca Azul | ANID"},
		{err: eris.New("boom")},
		{err: eris.New("boom again")},
	}}
	o := newOrchestrator(t, inv)

	out := run(t, o, testPlan(true))

	require.Len(t, out.Records, 2)
	assert.Equal(t, model.MethodStep1Only, out.Method)
	assert.Equal(t, "Fondo Innova Región", out.Records[0].Title)
	assert.Equal(t, "CORFO", out.Records[0].Organization)
	assert.Equal(t, "ANID", out.Records[1].Organization)
	assert.Equal(t, model.SentinelAmount, out.Records[0].Amount)
	for _, rec := range out.Records {
		assert.LessOrEqual(t, rec.ReliabilityScore, 95)
		assert.GreaterOrEqual(t, rec.ReliabilityScore, 50)
	}
}

func TestListFailureFallsBackToRuleBased(t *testing.T) {
	inv := &scriptedInvoker{script: []scripted{{err: eris.New("down")}}}
	o := newOrchestrator(t, inv)

	out := run(t, o, testPlan(true))

	require.NotEmpty(t, out.Records)
	assert.Len(t, inv.refs, 1)
	assert.Contains(t, []model.ExtractionMethod{model.MethodRuleBased, model.MethodSynthetic}, out.Method)
}

func TestAllCandidatesRejectedFallsBackToRuleBased(t *testing.T) {
	fabricated := `{"convocatorias": [
		{"title": "Convocatoria [nombre del fondo]", "organization": "CORFO",
		 "source_url": "https://corfo.cl/x"},
		{"title": "Fondo Real", "organization": "CORFO", "source_url": "https://www.corfo.cl"}
	]}`
	inv := &scriptedInvoker{script: []scripted{{text: fabricated}}}
	o := newOrchestrator(t, inv)

	out := run(t, o, testPlan(false))

	require.NotEmpty(t, out.Records)
	assert.Equal(t, 2, out.Rejected)
	assert.NotEqual(t, model.MethodSingleStep, out.Method)
}

func TestSingleStepFailureAlwaysYieldsARecord(t *testing.T) {
	inv := &scriptedInvoker{script: []scripted{{err: eris.New("offline")}}}
	o := newOrchestrator(t, inv)

	out := run(t, o, testPlan(false))

	require.NotEmpty(t, out.Records)
	assert.Equal(t, StateDone, out.FinalState)
}

func TestStep1AsFinalWithEmptyListFallsThrough(t *testing.T) {
	inv := &scriptedInvoker{script: []scripted{
		{text: "   \n  \n"},
		{err: eris.New("boom")},
		{err: eris.New("boom")},
	}}
	o := newOrchestrator(t, inv)

	out := run(t, o, testPlan(true))

	require.NotEmpty(t, out.Records)
	assert.NotEqual(t, model.MethodStep1Only, out.Method)
}

func TestParseListOutput(t *testing.T) {
	records := parseListOutput("- Fondo A | CORFO\nFondo B\n\n* Fondo C | ANID | extra")
	require.Len(t, records, 3)
	assert.Equal(t, "Fondo A", records[0].Title)
	assert.Equal(t, "CORFO", records[0].Organization)
	assert.Equal(t, "Fondo B", records[1].Title)
	assert.Empty(t, records[1].Organization)
	assert.Equal(t, "ANID | extra", records[2].Organization)
}
