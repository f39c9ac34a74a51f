// Package pricing estimates the dollar cost of chat completions.
package pricing

import (
	"strings"

	"github.com/pario-ai/typedchat/pkg/models"
)

// ModelCost is the price of a model in USD per million tokens.
type ModelCost struct {
	Name string
	// Input is charged for uncached prompt tokens.
	Input float64
	// CachedInput is charged for prompt tokens served from the provider's
	// prompt cache. Zero means the model has no discount and Input applies.
	CachedInput float64
	Output      float64
}

// ChatCompletions lists known chat models. Lookup matches model ids by prefix,
// so dated snapshots ("gpt-4o-2024-08-06") resolve to their family.
var ChatCompletions = []ModelCost{
	{Name: "claude-3-7-sonnet", Input: 3.0, Output: 15.0},
	{Name: "claude-3-5-haiku", Input: 0.80, Output: 4.0},
	{Name: "claude-3-opus", Input: 15.0, Output: 75.0},
	{Name: "claude-opus-4", Input: 15.0, Output: 75.0},
	{Name: "claude-sonnet-4", Input: 3.0, Output: 15.0},
	{Name: "claude-haiku-4", Input: 0.80, Output: 4.0},

	{Name: "gpt-4.1", Input: 2.00, CachedInput: 0.50, Output: 8.00},
	{Name: "gpt-4.1-mini", Input: 0.40, CachedInput: 0.10, Output: 1.60},
	{Name: "gpt-4.1-nano", Input: 0.10, CachedInput: 0.025, Output: 0.40},
	{Name: "gpt-4.5-preview", Input: 75.00, CachedInput: 37.50, Output: 150.00},
	{Name: "gpt-4o", Input: 2.50, CachedInput: 1.25, Output: 10.00},
	{Name: "gpt-4o-audio-preview", Input: 2.50, Output: 10.00},
	{Name: "gpt-4o-realtime-preview", Input: 5.00, CachedInput: 2.50, Output: 20.00},
	{Name: "gpt-4o-mini", Input: 0.15, CachedInput: 0.075, Output: 0.60},
	{Name: "gpt-4o-mini-audio-preview", Input: 0.15, Output: 0.60},
	{Name: "gpt-4o-mini-realtime-preview", Input: 0.60, CachedInput: 0.30, Output: 2.40},
	{Name: "gpt-4o-mini-search-preview", Input: 0.15, Output: 0.60},
	{Name: "gpt-4o-search-preview", Input: 2.50, Output: 10.00},
	{Name: "o1", Input: 15.00, CachedInput: 7.50, Output: 60.00},
	{Name: "o1-pro", Input: 150.00, Output: 600.00},
	{Name: "o1-mini", Input: 1.10, CachedInput: 0.55, Output: 4.40},
	{Name: "o3", Input: 10.00, CachedInput: 2.50, Output: 40.00},
	{Name: "o3-mini", Input: 1.10, CachedInput: 0.55, Output: 4.40},
	{Name: "o4-mini", Input: 1.10, CachedInput: 0.275, Output: 4.40},
	{Name: "computer-use-preview", Input: 3.00, Output: 12.00},
}

// Lookup returns the entry whose name is the longest prefix of model.
func Lookup(model string) (ModelCost, bool) {
	var best ModelCost
	found := false
	for _, mc := range ChatCompletions {
		if strings.HasPrefix(model, mc.Name) && len(mc.Name) > len(best.Name) {
			best = mc
			found = true
		}
	}
	return best, found
}

// Cost estimates the price of usage on model. The second result is false
// when the model is not in the table.
func Cost(model string, usage models.Usage) (float64, bool) {
	mc, ok := Lookup(model)
	if !ok {
		return 0, false
	}
	cached := min(usage.CachedTokens, usage.PromptTokens)
	uncached := usage.PromptTokens - cached

	cachedRate := mc.CachedInput
	if cachedRate == 0 {
		cachedRate = mc.Input
	}
	const perMillion = 1_000_000.0
	return (mc.Input*float64(uncached) +
		cachedRate*float64(cached) +
		mc.Output*float64(usage.CompletionTokens)) / perMillion, true
}
