package llm

// Approximate per-token prices in USD. Providers without an entry cost 0.
var costPerToken = map[ProviderType]float64{
	ProviderOpenAI: 0.15 / 1e6,
	ProviderQwen:   0.02 / 7.25 / 1000, // CNY per thousand tokens, converted
}

// CostPerToken returns the approximate USD price of one token for p.
func CostPerToken(p ProviderType) float64 {
	return costPerToken[p]
}

// EstimateCost returns the approximate USD cost of tokens for p.
func EstimateCost(p ProviderType, tokens int) float64 {
	return float64(tokens) * CostPerToken(p)
}
