package observability

import (
	"strconv"
	"strings"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains list prices keyed by model name
var PricingTable = map[string]ModelPricing{
	"gpt-4o":                  {InputPricePer1K: 0.0025, OutputPricePer1K: 0.01},
	"gpt-4o-mini":             {InputPricePer1K: 0.00015, OutputPricePer1K: 0.0006},
	"gpt-4.1-mini":            {InputPricePer1K: 0.0004, OutputPricePer1K: 0.0016},
	"gemini-2.5-flash":        {InputPricePer1K: 0.0003, OutputPricePer1K: 0.0025},
	"gemini-2.5-pro":          {InputPricePer1K: 0.00125, OutputPricePer1K: 0.01},
	"claude-3-5-haiku-latest": {InputPricePer1K: 0.0008, OutputPricePer1K: 0.004},
	"claude-sonnet-4-0":       {InputPricePer1K: 0.003, OutputPricePer1K: 0.015},
	"grok-3-mini":             {InputPricePer1K: 0.0003, OutputPricePer1K: 0.0005},
	"deepseek-chat":           {InputPricePer1K: 0.00027, OutputPricePer1K: 0.0011},
}

// CalculateCost returns the USD cost of a call, or 0 for models without a price.
// A "provider:model" id is accepted as well as a bare model name.
func CalculateCost(model string, inputTokens, outputTokens int64) float64 {
	if _, name, ok := strings.Cut(model, ":"); ok {
		model = name
	}
	pricing, exists := PricingTable[model]
	if !exists {
		return 0
	}

	inputCost := (float64(inputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(outputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	return inputCost + outputCost
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
