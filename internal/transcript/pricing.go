package transcript

import "github.com/shopspring/decimal"

// ModelPricing holds per-token USD rates for one model. Field names
// follow the pricing feed the caller loads the table from.
type ModelPricing struct {
	InputCostPerToken       float64 `json:"input_cost_per_token"`
	OutputCostPerToken      float64 `json:"output_cost_per_token"`
	CacheReadInputTokenCost float64 `json:"cache_read_input_token_cost"`
}

// PricingTable maps model identifiers to their per-token rates.
// Absent entries contribute zero cost; that is a degradation, not
// an error.
type PricingTable map[string]ModelPricing

// Cost returns the USD cost of the given usage under the table.
// Arithmetic is done in decimal to avoid drift when many small
// per-token rates are summed across models.
func (p PricingTable) Cost(usage map[string]TokenUsage) float64 {
	total := decimal.Zero
	for model, u := range usage {
		pricing, ok := p[model]
		if !ok {
			continue
		}
		total = total.
			Add(tokenCost(u.InputTokens, pricing.InputCostPerToken)).
			Add(tokenCost(u.OutputTokens, pricing.OutputCostPerToken)).
			Add(tokenCost(u.CacheReadInputTokens, pricing.CacheReadInputTokenCost))
	}
	return total.InexactFloat64()
}

func tokenCost(tokens int64, rate float64) decimal.Decimal {
	if tokens == 0 || rate == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(tokens).Mul(decimal.NewFromFloat(rate))
}
