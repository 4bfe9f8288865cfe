package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/convocatorias-pro/search-service/internal/model"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		rec    model.Convocatoria
		method model.ExtractionMethod
		want   int
	}{
		{
			name:   "bare record scores the base",
			rec:    model.Convocatoria{Title: "x", Organization: "y", SourceURL: "z"},
			method: model.MethodSingleStep,
			want:   50,
		},
		{
			name: "verified flags and filled fields add up",
			rec: model.Convocatoria{
				Title:        "x",
				Organization: "y",
				SourceURL:    "z",
				Amount:       "$1.000.000",
				Deadline:     "2026-09-01",
				Verification: model.Verification{Title: true, Amount: true},
			},
			method: model.MethodTwoStep,
			// 50 + 2*8 + 2*3
			want: 72,
		},
		{
			name: "sentinel fields subtract",
			rec: model.Convocatoria{
				Title:        "x",
				Organization: "y",
				SourceURL:    "z",
				Amount:       model.SentinelAmount,
				Deadline:     "2026-09-01",
				Verification: model.Verification{Title: true},
			},
			method: model.MethodTwoStep,
			// 50 + 8 + 3 - 5
			want: 56,
		},
		{
			name: "AI ceiling clamps at 95",
			rec: model.Convocatoria{
				Title: "x", Organization: "y", SourceURL: "z",
				Description: "d", Amount: "a", Deadline: "f",
				Requirements: "r", Category: "c", Status: "s",
				Verification: model.Verification{
					Title: true, Organization: true, Amount: true,
					Deadline: true, SourceURL: true,
				},
			},
			method: model.MethodTwoStep,
			want:   95,
		},
		{
			name: "rule-based ceiling clamps at 75",
			rec: model.Convocatoria{
				Title: "x", Organization: "y", SourceURL: "z",
				Description: "d", Amount: "a", Deadline: "f",
				Requirements: "r", Category: "c", Status: "s",
				Verification: model.Verification{
					Title: true, Organization: true, Amount: true,
					Deadline: true, SourceURL: true,
				},
			},
			method: model.MethodRuleBased,
			want:   75,
		},
		{
			name: "all-sentinel record never drops below the base",
			rec: model.Convocatoria{
				Title: "x", Organization: "y", SourceURL: "z",
				Description:  model.SentinelDescription,
				Amount:       model.SentinelAmount,
				Deadline:     model.SentinelDeadline,
				Requirements: model.SentinelRequirements,
				Category:     model.SentinelCategory,
				Status:       model.SentinelStatus,
			},
			method: model.MethodSynthetic,
			want:   50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.rec, tt.method))
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	rec := goodRecord()
	rec.Verification = model.Verification{Title: true, SourceURL: true}

	first := Score(rec, model.MethodTwoStep)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(rec, model.MethodTwoStep))
	}
}
