package llm

// price is USD per million tokens.
type price struct {
	input  float64
	output float64
}

var prices = map[string]price{
	"sonar":               {input: 1, output: 1},
	"sonar-pro":           {input: 3, output: 15},
	"sonar-reasoning":     {input: 1, output: 5},
	"sonar-reasoning-pro": {input: 2, output: 8},
	"sonar-deep-research": {input: 2, output: 8},
}

// Cost estimates the USD cost of a completion. Unknown models are priced as
// sonar-pro.
func Cost(model string, u Usage) float64 {
	p, ok := prices[model]
	if !ok {
		p = prices[DefaultModel]
	}
	return (float64(u.PromptTokens)*p.input + float64(u.CompletionTokens)*p.output) / 1_000_000
}
