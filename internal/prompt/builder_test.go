package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convocatorias-pro/search-service/internal/model"
)

func query(text string) model.Query {
	return model.Query{Text: text}
}

func defaultScope() model.GeographicScope {
	return model.GeographicScope{Kind: model.ScopeDefault, LocationID: "default", Breadth: model.BreadthLocalPlusIntl}
}

func TestBuild_SingleStep(t *testing.T) {
	b := NewBuilder(5)
	p, err := b.Build(query("fondos para startups tecnológicas"), defaultScope(), StepSingle, "")
	require.NoError(t, err)

	assert.Contains(t, p.System, "NUNCA inventes")
	assert.Contains(t, p.User, "fondos para startups tecnológicas")
	assert.Contains(t, p.User, `"convocatorias"`)
	assert.Contains(t, p.User, model.SentinelAmount)
	assert.Contains(t, p.User, "máximo 5 convocatorias")
	assert.NotContains(t, p.User, "title_verified", "verification fields belong to the detail step only")
}

func TestBuild_ListStep(t *testing.T) {
	b := NewBuilder(10)
	p, err := b.Build(query("becas de postgrado"), defaultScope(), StepList, "")
	require.NoError(t, err)

	assert.Contains(t, p.User, "nombre | organismo")
	assert.NotContains(t, p.User, `"convocatorias"`, "list step uses the relaxed format, not the JSON schema")
}

func TestBuild_DetailStepCarriesStep1Output(t *testing.T) {
	b := NewBuilder(10)
	step1 := "Fondo Semilla | CORFO\nCapital Abeja | Sercotec"
	p, err := b.Build(query("fondos para pymes"), defaultScope(), StepDetail, step1)
	require.NoError(t, err)

	assert.Contains(t, p.User, "Fondo Semilla | CORFO")
	assert.Contains(t, p.User, "title_verified")
	assert.Contains(t, p.User, "extraction_notes")
	assert.Contains(t, p.User, model.SentinelDeadline)
}

func TestBuild_LocalityClausePerScope(t *testing.T) {
	b := NewBuilder(10)
	tests := []struct {
		breadth model.ScopeBreadth
		want    string
	}{
		{model.BreadthNational, "nacionales"},
		{model.BreadthRegional, "regional"},
		{model.BreadthInternational, "internacionales"},
		{model.BreadthLocalPlusIntl, "locales e internacionales"},
	}
	for _, tt := range tests {
		p, err := b.Build(query("fondos"), model.GeographicScope{Breadth: tt.breadth, LocationID: "cl"}, StepSingle, "")
		require.NoError(t, err)
		assert.Contains(t, p.User, tt.want)
	}
}

func TestBuild_FiltersRendered(t *testing.T) {
	b := NewBuilder(10)
	q := model.Query{
		Text: "fondos de innovación",
		Parameters: model.SearchParameters{
			Sector:       "tecnología",
			MinAmount:    1000000,
			DeadlineFrom: "2026-09-01",
		},
	}
	p, err := b.Build(q, defaultScope(), StepSingle, "")
	require.NoError(t, err)
	assert.Contains(t, p.User, "Sector: tecnología")
	assert.Contains(t, p.User, "Monto mínimo: 1000000")
	assert.Contains(t, p.User, "2026-09-01 a cualquiera")
}

func TestBuild_RejectsOversizeQueryBeforeAnyCost(t *testing.T) {
	b := NewBuilder(10)
	_, err := b.Build(query(strings.Repeat("x", model.MaxQueryLength+1)), defaultScope(), StepSingle, "")
	assert.ErrorIs(t, err, model.ErrQueryTooLong)
}
