package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalSentinel_Variants(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  string
	}{
		{"english variant", "amount", "Not available", SentinelAmount},
		{"spanish variant", "deadline", "no especificado", SentinelDeadline},
		{"na marker", "description", "N/A", SentinelDescription},
		{"already canonical", "amount", SentinelAmount, SentinelAmount},
		{"real value untouched", "amount", "$25.000 USD", "$25.000 USD"},
		{"field without sentinel", "title", "n/a", "n/a"},
		{"embedded marker", "requirements", "Requisitos sin información adicional", SentinelRequirements},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalSentinel(tt.field, tt.value))
		})
	}
}

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel(SentinelDeadline))
	assert.False(t, IsSentinel("fecha no disponible en fuente")) // case matters for canonical form
	assert.False(t, IsSentinel(""))
}

func TestIsSentinelVariant_Empty(t *testing.T) {
	assert.False(t, IsSentinelVariant(""))
}
