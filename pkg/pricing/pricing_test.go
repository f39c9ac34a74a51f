package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/typedchat/pkg/models"
)

func TestCost(t *testing.T) {
	usage := models.Usage{
		PromptTokens:     2_000_000,
		CompletionTokens: 1_000_000,
		CachedTokens:     1_000_000,
		TotalTokens:      3_000_000,
	}
	cost, ok := Cost("gpt-4o", usage)
	require.True(t, ok)
	assert.InDelta(t, 2.50+1.25+10.00, cost, 1e-9)
}

func TestCostWithoutCachedRate(t *testing.T) {
	usage := models.Usage{PromptTokens: 1_000_000, CachedTokens: 500_000}
	cost, ok := Cost("claude-sonnet-4-20250514", usage)
	require.True(t, ok)
	assert.InDelta(t, 3.0, cost, 1e-9)
}

func TestLookupPrefersLongestPrefix(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o", "gpt-4o"},
		{"gpt-4o-2024-08-06", "gpt-4o"},
		{"gpt-4o-mini", "gpt-4o-mini"},
		{"gpt-4o-mini-2024-07-18", "gpt-4o-mini"},
		{"gpt-4.1-nano", "gpt-4.1-nano"},
		{"o1-pro-2025-03-19", "o1-pro"},
		{"o3-mini", "o3-mini"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			mc, ok := Lookup(tt.model)
			require.True(t, ok)
			assert.Equal(t, tt.want, mc.Name)
		})
	}
}

func TestUnknownModel(t *testing.T) {
	_, ok := Cost("llama-3-70b", models.Usage{PromptTokens: 10})
	assert.False(t, ok)
}
